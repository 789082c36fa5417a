// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package obsfile

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/vimarian/mirage/pkg/table"
)

// Default epoch values used when an observation has no epoch line, or
// when no epoch list was supplied at all.
const (
	DefaultEpochDate  = "2020-10-14"
	fallbackEpochDate = "2018-10-14"
	defaultEpochPAV3  = "0.0"
)

// Epoch is one row of the epoch list: when an observation starts and
// the telescope roll angle at that time.
type Epoch struct {
	Date string
	PAV3 string
}

// LoadEpochs reads a whitespace-delimited epoch list with a header row
// and columns observation / date / pav3. Observation labels may contain
// spaces, so the date and roll are taken from the last two fields.
func LoadEpochs(path string) (map[string]Epoch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening epoch list: %w", err)
	}
	defer f.Close()

	epochs := make(map[string]Epoch)
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if first {
			// header row
			first = false
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("epoch list %s: malformed line %q", path, line)
		}
		pav3 := fields[len(fields)-1]
		if _, err := strconv.ParseFloat(pav3, 64); err != nil {
			return nil, fmt.Errorf("epoch list %s: bad pav3 in line %q: %w", path, line, err)
		}
		date := fields[len(fields)-2]
		label := strings.Join(fields[:len(fields)-2], " ")
		epochs[label] = Epoch{Date: date, PAV3: pav3}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading epoch list: %w", err)
	}
	return epochs, nil
}

// AttachEpochs adds epoch_start_date and pav3 columns from the epoch
// map. A nil map applies defaults to every row; a miss for a single
// observation is logged and falls back to defaults.
func AttachEpochs(tab *table.Table, epochs map[string]Epoch, log *slog.Logger) error {
	n := tab.Len()
	dates := make([]string, n)
	pav3 := make([]string, n)

	for i := 0; i < n; i++ {
		if epochs == nil {
			dates[i] = fallbackEpochDate
			pav3[i] = defaultEpochPAV3
			continue
		}
		label := tab.Value("obs_label", i)
		epoch, ok := epochs[label]
		if !ok {
			log.Warn("no epoch line found for observation", "obs", label)
			dates[i] = DefaultEpochDate
			pav3[i] = defaultEpochPAV3
			continue
		}
		dates[i] = epoch.Date
		pav3[i] = epoch.PAV3
	}

	if err := tab.AddColumn("epoch_start_date", dates); err != nil {
		return err
	}
	return tab.AddColumn("pav3", pav3)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/vimarian/mirage/internal/pointing"
	"github.com/vimarian/mirage/pkg/table"
)

var pointingCmd = &cobra.Command{
	Use:   "pointing",
	Short: "Parse a pointing log and print a per-visit summary",
	Long: `Pointing parses a proposal pointing log on its own, without the
observation XML, and prints one summary row per visit: the observation
label, exposure count, and the apertures the visit uses.`,
	RunE: runPointing,
}

func runPointing(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	if file == "" {
		return errors.New("--file is required")
	}
	propID, _ := cmd.Flags().GetInt("propid")

	tab, err := pointing.ParseFile(file, propID, newLogger(cmd))
	if err != nil {
		return err
	}

	summarizeVisits(os.Stdout, tab)
	return nil
}

// summarizeVisits prints one row per visit in first-seen order.
func summarizeVisits(w io.Writer, tab *table.Table) {
	type visitInfo struct {
		label     string
		exposures int
		apertures map[string]struct{}
	}
	byVisit := make(map[string]*visitInfo)
	var order []string

	for i := 0; i < tab.Len(); i++ {
		vid := tab.Value("visit_id", i)
		info, ok := byVisit[vid]
		if !ok {
			info = &visitInfo{label: tab.Value("obs_label", i), apertures: make(map[string]struct{})}
			byVisit[vid] = info
			order = append(order, vid)
		}
		info.exposures++
		info.apertures[tab.Value("aperture", i)] = struct{}{}
	}

	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"Visit", "Label", "Exposures", "Apertures"})
	for _, vid := range order {
		info := byVisit[vid]
		apertures := make([]string, 0, len(info.apertures))
		for ap := range info.apertures {
			apertures = append(apertures, ap)
		}
		sort.Strings(apertures)
		tw.Append([]string{vid, info.label, strconv.Itoa(info.exposures), joinLimited(apertures, 3)})
	}
	tw.SetFooter([]string{"Total", "", strconv.Itoa(tab.Len()), ""})
	tw.Render()
}

// joinLimited joins up to max values, appending "+N more" past the cap.
func joinLimited(values []string, max int) string {
	if len(values) <= max {
		return strings.Join(values, ", ")
	}
	return strings.Join(values[:max], ", ") + ", +" + strconv.Itoa(len(values)-max) + " more"
}

func init() {
	pointingCmd.Flags().String("file", "", "pointing log file (required)")
	pointingCmd.Flags().Int("propid", 0, "fallback proposal ID when the file header lacks one")

	rootCmd.AddCommand(pointingCmd)
}

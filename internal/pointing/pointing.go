// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pointing parses the APT-exported pointing log into a columnar
// table with one row per accepted exposure line.
//
// The file is line oriented. Comment, blank, and separator lines carry
// nothing. A "* " line names the observation that the following visits
// belong to, a "** " line gives the observation:visit number pair, and
// every other line is a candidate exposure whose whitespace-delimited
// fields have fixed positional meaning.
package pointing

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/vimarian/mirage/pkg/table"
)

// Columns lists the emitted columns in output order.
var Columns = []string{
	"tar", "tile", "exposure", "dither", "aperture", "targ1", "targ2",
	"ra", "dec", "basex", "basey", "dithx", "dithy", "v2", "v3",
	"idlx", "idly", "obs_label", "obs_num", "visit_num", "act_id",
	"visit_id", "visit_group", "sequence_id", "observation_id",
}

// instrumentCodes are the aperture-name substrings that identify a
// supported instrument. Lines whose aperture field matches none of these
// are not exposures for the simulator.
var instrumentCodes = []string{"NRC", "NIS", "FGS", "NRS", "MIR"}

// Fixed identifier parts. APT's visit-group subdivision and parallel
// sequence numbering are not modeled; all exposures are placed in visit
// group 01 with sequence id 1, and the parallel proposal slot of the
// observation id is zero-filled.
const (
	visitGroup       = "01"
	sequenceID       = "1"
	parallelProposal = "00000000"
)

// state is the carried parser state: the current observation label and
// visit numbers from the most recent marker lines, and the running
// activity ordinal. The activity counter starts at 1 and consumes one
// ordinal for every line that passes the acceptance test, whether or not
// a row is ultimately emitted, so activity ids stay stable across
// dropped lines.
type state struct {
	obsLabel   string
	skip       bool
	obsNum     string
	visitNum   string
	actCounter int
}

// ParseFile reads an APT pointing file. propID is the fallback proposal
// ID, used unless the file header carries one.
func ParseFile(path string, propID int, log *slog.Logger) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pointing file: %w", err)
	}
	defer f.Close()

	tab, err := Parse(f, propID, log)
	if err != nil {
		return nil, fmt.Errorf("parsing pointing file %s: %w", path, err)
	}
	return tab, nil
}

// Parse scans the pointing log from r and returns the pointing table.
// Malformed individual lines are logged and skipped; only a read failure
// is returned as an error.
func Parse(r io.Reader, propID int, log *slog.Logger) (*table.Table, error) {
	tab := table.New()
	for _, name := range Columns {
		if err := tab.AddColumn(name, nil); err != nil {
			return nil, err
		}
	}

	st := state{actCounter: 1}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") || strings.Contains(line, "====="):
			continue

		case firstToken(line) == "JWST":
			propID = headerProposalID(line, propID)
			log.Debug("extracted proposal ID", "propid", propID)
			continue

		case strings.HasPrefix(line, "** "):
			st.setVisit(line, log)
			continue

		case strings.HasPrefix(line, "* "):
			st.obsLabel = parseObsLabel(line)
			st.skip = false
			continue
		}

		row, ok := acceptLine(line, &st, propID, log)
		if !ok {
			continue
		}
		if err := tab.AppendRow(row); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading pointing file: %w", err)
	}
	if err := tab.Validate(); err != nil {
		return nil, err
	}
	return tab, nil
}

// acceptLine applies the acceptance test to a candidate data line and,
// if it passes, parses the positional fields into a full row. The
// activity ordinal is consumed as soon as the line is accepted: a field
// that later fails to parse drops the row but not the ordinal.
func acceptLine(line string, st *state, propID int, log *slog.Logger) (map[string]string, bool) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		log.Debug("skipping short line", "line", line)
		return nil, false
	}

	// Lines at the start of each visit describe the target rather than an
	// exposure and carry 0 in the tile field; non-exposure rows for
	// unsupported instruments are identified by the aperture field.
	tile, err := strconv.Atoi(fields[1])
	if err != nil {
		log.Debug("skipping line with non-numeric tile field", "line", line)
		return nil, false
	}
	if tile <= 0 || !supportedAperture(fields[4]) {
		return nil, false
	}

	if st.skip {
		st.actCounter++
		return nil, false
	}

	act := base36Encode(st.actCounter)
	st.actCounter++

	row, err := parseExposure(fields, st, act, propID)
	if err != nil {
		log.Warn("skipping malformed pointing line", "line", line, "err", err)
		return nil, false
	}
	return row, true
}

// parseExposure converts the positional fields of an accepted line into
// a row map. The row is assembled in full before anything is appended to
// the table, so a bad field can never leave columns ragged.
func parseExposure(fields []string, st *state, act string, propID int) (map[string]string, error) {
	if len(fields) < 21 {
		return nil, fmt.Errorf("expected at least 21 fields, got %d", len(fields))
	}

	intFields := map[string]int{"tar": 0, "dither": 3, "targ1": 5, "expar": 19, "dkpar": 20}
	parsed := make(map[string]string, len(Columns))
	for name, idx := range intFields {
		v, err := strconv.Atoi(fields[idx])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		parsed[name] = strconv.Itoa(v)
	}

	floatFields := map[string]int{
		"dithx": 11, "dithy": 12, "v2": 13, "v3": 14, "idlx": 15, "idly": 16,
	}
	for name, idx := range floatFields {
		if _, err := strconv.ParseFloat(fields[idx], 64); err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		parsed[name] = fields[idx]
	}

	// The dither-distance field is absent on PARALLEL rows.
	if fields[18] != "PARALLEL" {
		if len(fields) < 22 {
			return nil, fmt.Errorf("expected dither distance field, got %d fields", len(fields))
		}
		if _, err := strconv.ParseFloat(fields[21], 64); err != nil {
			return nil, fmt.Errorf("field ddist: %w", err)
		}
	}

	vid := fmt.Sprintf("%05d%s%s", propID, st.obsNum, st.visitNum)

	row := map[string]string{
		"tar":            parsed["tar"],
		"tile":           fields[1],
		"exposure":       zeroPad(fields[2], 5),
		"dither":         parsed["dither"],
		"aperture":       rewriteGrismAperture(fields[4]),
		"targ1":          parsed["targ1"],
		"targ2":          fields[6],
		"ra":             fields[7],
		"dec":            fields[8],
		"basex":          fields[9],
		"basey":          fields[10],
		"dithx":          parsed["dithx"],
		"dithy":          parsed["dithy"],
		"v2":             parsed["v2"],
		"v3":             parsed["v3"],
		"idlx":           parsed["idlx"],
		"idly":           parsed["idly"],
		"obs_label":      st.obsLabel,
		"obs_num":        st.obsNum,
		"visit_num":      st.visitNum,
		"act_id":         act,
		"visit_id":       vid,
		"visit_group":    visitGroup,
		"sequence_id":    sequenceID,
		"observation_id": fmt.Sprintf("V%sP%s%s%s%s", vid, parallelProposal, visitGroup, sequenceID, act),
	}
	return row, nil
}

// setVisit parses the "** <label> <obs>:<visit>" marker line.
func (st *state) setVisit(line string, log *slog.Logger) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		log.Warn("malformed visit marker line", "line", line)
		return
	}
	obs, visit, ok := strings.Cut(fields[2], ":")
	if !ok {
		log.Warn("malformed visit marker line", "line", line)
		return
	}
	st.obsNum = zeroPad(obs, 3)
	st.visitNum = zeroPad(visit, 3)
	if st.skip {
		log.Info("skipping observation", "obs", st.obsNum, "label", st.obsLabel)
	}
}

// parseObsLabel extracts the observation label from a "* " marker line,
// stripping a trailing parenthetical annotation and then, if the label
// still carries an " (...)" pattern, everything from that point on.
func parseObsLabel(line string) string {
	label := line[2:]
	if paren := strings.LastIndex(line, "("); paren > 2 {
		label = line[2 : paren-1]
	}
	label = strings.TrimSpace(label)
	if strings.Contains(label, " (") && strings.Contains(label, ")") {
		label = label[:strings.Index(label, " (")]
	}
	return label
}

// headerProposalID pulls the proposal ID out of the "JWST ..." header
// line (whitespace token 7). A header that does not parse keeps the
// fallback; the header is informational and never fatal.
func headerProposalID(line string, fallback int) int {
	fields := strings.Fields(line)
	if len(fields) < 8 {
		return fallback
	}
	id, err := strconv.Atoi(fields[7])
	if err != nil {
		return fallback
	}
	return id
}

// supportedAperture reports whether the aperture field names one of the
// supported instruments.
func supportedAperture(aperture string) bool {
	for _, code := range instrumentCodes {
		if strings.Contains(aperture, code) {
			return true
		}
	}
	return false
}

// rewriteGrismAperture maps WFSS grism apertures onto the equivalent
// full-frame aperture; the disperser does not change the field of view
// the simulator needs.
func rewriteGrismAperture(aperture string) string {
	aperture = strings.Replace(aperture, "GRISMR_WFSS", "FULL", 1)
	aperture = strings.Replace(aperture, "GRISMC_WFSS", "FULL", 1)
	return aperture
}

// base36Alphabet is the digit set for activity ids.
const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// base36Encode renders n in base 36, left-zero-padded to two characters.
// Ordinals past 36^2-1 widen to three or more characters rather than
// truncate, so ids stay unique in pathologically long visits.
func base36Encode(n int) string {
	var digits []byte
	for n > 0 {
		digits = append([]byte{base36Alphabet[n%36]}, digits...)
		n /= 36
	}
	for len(digits) < 2 {
		digits = append([]byte{'0'}, digits...)
	}
	return string(digits)
}

func firstToken(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// zeroPad left-pads s with zeros to the given width.
func zeroPad(s string, width int) string {
	for len(s) < width {
		s = "0" + s
	}
	return s
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline assembles the per-exposure table for a proposal
// export: the observation XML and the pointing file are parsed
// separately, expanded row-for-row until they line up, merged, and
// then enriched with observation metadata and sky coordinates.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/vimarian/mirage/internal/aptxml"
	"github.com/vimarian/mirage/internal/expand"
	"github.com/vimarian/mirage/internal/export"
	"github.com/vimarian/mirage/internal/obsfile"
	"github.com/vimarian/mirage/internal/pointing"
	"github.com/vimarian/mirage/internal/siaf"
	"github.com/vimarian/mirage/pkg/table"
)

// Options configures one pipeline run. XMLFile and PointingFile are
// required; the rest are optional.
type Options struct {
	XMLFile       string
	PointingFile  string
	ObsListFile   string
	EpochListFile string
	OutputCSV     string
	IndexDB       string
}

// DefaultOutputPath returns the CSV path used when none is given:
// Observation_table_for_<xml base>.csv inside dir.
func DefaultOutputPath(xmlFile, dir string) string {
	base := strings.TrimSuffix(filepath.Base(xmlFile), filepath.Ext(xmlFile))
	return filepath.Join(dir, "Observation_table_for_"+base+".csv")
}

// Run executes the full pipeline and returns the final exposure table.
func Run(ctx context.Context, opts Options, log *slog.Logger) (*table.Table, error) {
	xmlTab, err := aptxml.ReadFile(opts.XMLFile)
	if err != nil {
		return nil, err
	}
	logStage(log, "read observation xml", xmlTab)

	if expand.HasTightDithers(xmlTab) {
		if err := expand.NormalizeTightDithers(xmlTab); err != nil {
			return nil, err
		}
	}
	xmlTab, err = expand.ForDithers(xmlTab)
	if err != nil {
		return nil, err
	}
	logStage(log, "expanded dithers", xmlTab)

	propID := 0
	if xmlTab.Len() > 0 {
		if n, err := xmlTab.Int("ProposalID", 0); err == nil {
			propID = n
		}
	}
	ptTab, err := pointing.ParseFile(opts.PointingFile, propID, log)
	if err != nil {
		return nil, err
	}
	logStage(log, "parsed pointing file", ptTab)

	tab, err := Merge(xmlTab, ptTab)
	if err != nil {
		return nil, err
	}

	if opts.ObsListFile != "" && opts.ObsListFile != "none" {
		lk, err := obsfile.Load(obsfile.FullPath(opts.ObsListFile))
		if err != nil {
			return nil, err
		}
		if err := obsfile.Attach(tab, lk, log); err != nil {
			return nil, err
		}
	} else {
		var epochs map[string]obsfile.Epoch
		if opts.EpochListFile != "" {
			epochs, err = obsfile.LoadEpochs(opts.EpochListFile)
			if err != nil {
				return nil, err
			}
		}
		if err := obsfile.AttachEpochs(tab, epochs, log); err != nil {
			return nil, err
		}
	}
	logStage(log, "attached observation metadata", tab)

	if expand.ModulesAllNone(tab) {
		tab, err = expand.AssignDetectors(tab)
	} else {
		tab, err = expand.ForDetectors(tab)
	}
	if err != nil {
		return nil, err
	}
	logStage(log, "expanded detectors", tab)

	if err := UpdateRADec(tab); err != nil {
		return nil, err
	}
	logStage(log, "resolved aperture sky positions", tab)

	if opts.OutputCSV != "" {
		if err := export.WriteCSV(tab, opts.OutputCSV); err != nil {
			return nil, err
		}
		log.Info("wrote exposure table", "path", opts.OutputCSV, "rows", tab.Len())
	}
	if opts.IndexDB != "" {
		store, err := export.OpenStore(opts.IndexDB)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		if err := store.IndexExposures(ctx, tab, opts.XMLFile, opts.PointingFile); err != nil {
			return nil, err
		}
		log.Info("indexed exposures", "db", opts.IndexDB, "rows", tab.Len())
	}

	return tab, nil
}

func logStage(log *slog.Logger, stage string, tab *table.Table) {
	log.Debug(stage, "rows", tab.Len(), "columns", len(tab.Names()))
}

// Merge joins the expanded observation table with the pointing table
// positionally. The two must describe the same exposures in the same
// order; a row-count mismatch means the dither expansion and the
// pointing file disagree, which is fatal.
func Merge(xmlTab, ptTab *table.Table) (*table.Table, error) {
	if xmlTab.Len() != ptTab.Len() {
		return nil, fmt.Errorf("observation table has %d rows but pointing file has %d exposures", xmlTab.Len(), ptTab.Len())
	}
	return xmlTab.Merge(ptTab)
}

// UpdateRADec adds ra_ref and dec_ref columns holding the sky position
// of each exposure's aperture reference point. The telescope roll is
// taken from the pav3 column when present, the PAV3 column otherwise.
func UpdateRADec(tab *table.Table) error {
	n := tab.Len()
	raRef := make([]string, n)
	decRef := make([]string, n)
	for i := 0; i < n; i++ {
		ra, err := tab.Float("ra", i)
		if err != nil {
			return err
		}
		dec, err := tab.Float("dec", i)
		if err != nil {
			return err
		}
		v2, err := tab.Float("v2", i)
		if err != nil {
			return err
		}
		v3, err := tab.Float("v3", i)
		if err != nil {
			return err
		}
		pav3 := 0.0
		switch {
		case tab.Has("pav3"):
			pav3, err = tab.Float("pav3", i)
		case tab.Has("PAV3"):
			pav3, err = tab.Float("PAV3", i)
		}
		if err != nil {
			return err
		}
		refRA, refDec, err := siaf.Resolve(tab.Value("aperture", i), ra, dec, v2, v3, pav3)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		raRef[i] = strconv.FormatFloat(refRA, 'f', -1, 64)
		decRef[i] = strconv.FormatFloat(refDec, 'f', -1, 64)
	}
	if err := tab.AddColumn("ra_ref", raRef); err != nil {
		return err
	}
	return tab.AddColumn("dec_ref", decRef)
}

// Summarize renders a per-instrument exposure count table to w.
func Summarize(w io.Writer, tab *table.Table) {
	counts := make(map[string]int)
	visits := make(map[string]map[string]struct{})
	var order []string
	for i := 0; i < tab.Len(); i++ {
		inst := tab.Value("Instrument", i)
		if _, ok := counts[inst]; !ok {
			order = append(order, inst)
			visits[inst] = make(map[string]struct{})
		}
		counts[inst]++
		visits[inst][tab.Value("visit_id", i)] = struct{}{}
	}

	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"Instrument", "Visits", "Exposures"})
	for _, inst := range order {
		tw.Append([]string{inst, strconv.Itoa(len(visits[inst])), strconv.Itoa(counts[inst])})
	}
	tw.SetFooter([]string{"Total", "", strconv.Itoa(tab.Len())})
	tw.Render()
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package obsfile

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/vimarian/mirage/pkg/table"
)

// ObservationListFields are the flat metadata fields attached for
// single-channel instruments, in column order.
var ObservationListFields = []string{
	"Name", "Date", "PAV3", "Filter", "PointSourceCatalog",
	"GalaxyCatalog", "ExtendedCatalog", "ExtendedScale", "ExtendedCenter",
	"MovingTargetList", "MovingTargetSersic", "MovingTargetExtended",
	"MovingTargetConvolveExtended", "MovingTargetToTrack", "BackgroundRate",
}

// attacher layers observation-list metadata onto the merged table. The
// concrete strategy depends on which instruments the proposal uses.
type attacher interface {
	attach(tab *table.Table, lk *Lookup) error
}

// Attach picks the metadata strategy for the table's instrument set and
// applies it. Unrecognized multi-instrument combinations are fatal: the
// pipeline must not guess which catalog layout applies.
func Attach(tab *table.Table, lk *Lookup, log *slog.Logger) error {
	instruments := uniqueInstruments(tab)
	strategy, err := strategyFor(instruments)
	if err != nil {
		return err
	}
	log.Debug("attaching observation metadata", "instruments", instruments)
	if err := strategy.attach(tab, lk); err != nil {
		return err
	}
	return tab.Validate()
}

func strategyFor(instruments []string) (attacher, error) {
	if len(instruments) == 1 {
		if instruments[0] == "nircam" {
			return nircamAttacher{}, nil
		}
		return flatAttacher{}, nil
	}

	set := strings.Join(instruments, "+")
	switch set {
	case "fgs+niriss", "miri+niriss", "niriss+nirspec":
		return flatAttacher{}, nil
	}
	return nil, fmt.Errorf("unsupported instrument combination %q", set)
}

func uniqueInstruments(tab *table.Table) []string {
	seen := make(map[string]bool)
	for _, v := range tab.Column("Instrument") {
		seen[strings.ToLower(v)] = true
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// lookupEntry resolves the entry for one row's observation label.
func lookupEntry(tab *table.Table, lk *Lookup, i int) (Entry, error) {
	label := tab.Value("obs_label", i)
	entry, ok := lk.ByLabel(label)
	if !ok {
		return Entry{}, fmt.Errorf("no observation list entry found for observation %q (known: %v)", label, lk.Names())
	}
	return entry, nil
}

// nircamAttacher adds the SW/LW catalog columns, the epoch start date,
// and the telescope roll, and applies per-row filter overrides when the
// observation list provides them.
type nircamAttacher struct{}

// channelColumns maps output column suffixes to ChannelParams
// accessors, in column order. Path-valued fields are expanded to
// absolute paths on attach.
var channelColumns = []struct {
	suffix string
	path   bool
	get    func(ChannelParams) string
}{
	{"ptsrc", true, func(p ChannelParams) string { return p.PointSourceCatalog }},
	{"galcat", true, func(p ChannelParams) string { return p.GalaxyCatalog }},
	{"ext", true, func(p ChannelParams) string { return p.ExtendedCatalog }},
	{"extscl", false, func(p ChannelParams) string { return p.ExtendedScale }},
	{"extcent", false, func(p ChannelParams) string { return p.ExtendedCenter }},
	{"movptsrc", true, func(p ChannelParams) string { return p.MovingTargetList }},
	{"movgal", true, func(p ChannelParams) string { return p.MovingTargetSersic }},
	{"movext", true, func(p ChannelParams) string { return p.MovingTargetExtended }},
	{"movconv", false, func(p ChannelParams) string { return p.MovingTargetConvolveExtended }},
	{"solarsys", true, func(p ChannelParams) string { return p.MovingTargetToTrack }},
	{"bkgd", false, func(p ChannelParams) string { return p.BackgroundRate }},
}

func (nircamAttacher) attach(tab *table.Table, lk *Lookup) error {
	n := tab.Len()
	dates := make([]string, n)
	pav3 := make([]string, n)
	swCols := make(map[string][]string)
	lwCols := make(map[string][]string)
	for _, cc := range channelColumns {
		swCols["sw_"+cc.suffix] = make([]string, n)
		lwCols["lw_"+cc.suffix] = make([]string, n)
	}
	swFilter := make([]string, n)
	lwFilter := make([]string, n)

	for i := 0; i < n; i++ {
		entry, err := lookupEntry(tab, lk, i)
		if err != nil {
			return err
		}
		dates[i] = entry.Date
		pav3[i] = entry.PAV3

		sw, lw, err := channelParams(tab, entry, i)
		if err != nil {
			return err
		}
		for _, cc := range channelColumns {
			swCols["sw_"+cc.suffix][i] = channelValue(cc.get(sw), cc.path)
			lwCols["lw_"+cc.suffix][i] = channelValue(cc.get(lw), cc.path)
		}
		swFilter[i] = sw.Filter
		lwFilter[i] = lw.Filter
	}

	if err := tab.AddColumn("pav3", pav3); err != nil {
		return err
	}
	if err := tab.AddColumn("epoch_start_date", dates); err != nil {
		return err
	}
	for _, cc := range channelColumns {
		if err := tab.AddColumn("sw_"+cc.suffix, swCols["sw_"+cc.suffix]); err != nil {
			return err
		}
	}
	for _, cc := range channelColumns {
		if err := tab.AddColumn("lw_"+cc.suffix, lwCols["lw_"+cc.suffix]); err != nil {
			return err
		}
	}

	overrideFilters(tab, "ShortFilter", swFilter)
	overrideFilters(tab, "LongFilter", lwFilter)
	return nil
}

// channelParams picks the SW/LW parameter blocks for row i: the
// exposure-specific FilterConfig block when the entry defines them,
// otherwise the entry-level SW/LW blocks.
func channelParams(tab *table.Table, entry Entry, i int) (ChannelParams, ChannelParams, error) {
	if len(entry.FilterConfigs) > 0 {
		exp := tab.Value("exposure", i)
		ordinal, err := exposureOrdinal(exp)
		if err != nil {
			return ChannelParams{}, ChannelParams{}, fmt.Errorf("row %d: %w", i, err)
		}
		fc, ok := entry.FilterConfigFor(ordinal)
		if !ok {
			return ChannelParams{}, ChannelParams{}, fmt.Errorf("row %d: observation %q has no FilterConfig%d", i, entry.Name, ordinal)
		}
		return fc.SW, fc.LW, nil
	}

	var sw, lw ChannelParams
	if entry.SW != nil {
		sw = *entry.SW
	}
	if entry.LW != nil {
		lw = *entry.LW
	}
	return sw, lw, nil
}

// exposureOrdinal extracts the exposure number from the last two digits
// of the zero-padded exposure field.
func exposureOrdinal(exp string) (int, error) {
	if len(exp) < 2 {
		return 0, fmt.Errorf("exposure value %q too short", exp)
	}
	n, err := strconv.Atoi(exp[len(exp)-2:])
	if err != nil {
		return 0, fmt.Errorf("exposure value %q: %w", exp, err)
	}
	return n, nil
}

func channelValue(v string, isPath bool) string {
	if v == "" {
		return table.None
	}
	if isPath {
		return FullPath(v)
	}
	return v
}

// overrideFilters replaces column values with observation-list filters
// where provided; rows without an override keep the XML value.
func overrideFilters(tab *table.Table, column string, overrides []string) {
	if !tab.Has(column) {
		return
	}
	col := tab.Column(column)
	for i, v := range overrides {
		if v != "" {
			col[i] = v
		}
	}
}

// flatAttacher adds the observation-list fields verbatim as columns,
// used for single-channel instruments and the recognized
// NIRISS-with-parallel combinations.
type flatAttacher struct{}

func (flatAttacher) attach(tab *table.Table, lk *Lookup) error {
	n := tab.Len()
	cols := make(map[string][]string, len(ObservationListFields))
	for _, field := range ObservationListFields {
		cols[field] = make([]string, n)
	}
	dates := make([]string, n)

	for i := 0; i < n; i++ {
		entry, err := lookupEntry(tab, lk, i)
		if err != nil {
			return err
		}
		dates[i] = entry.Date
		for _, field := range ObservationListFields {
			cols[field][i] = flatValue(entry, field)
		}
	}

	for _, field := range ObservationListFields {
		if err := tab.AddColumn(field, cols[field]); err != nil {
			return err
		}
	}
	return tab.AddColumn("epoch_start_date", dates)
}

func flatValue(entry Entry, field string) string {
	var v string
	switch field {
	case "Name":
		v = entry.Name
	case "Date":
		v = entry.Date
	case "PAV3":
		v = entry.PAV3
	case "Filter":
		v = entry.Filter
	case "PointSourceCatalog":
		v = entry.PointSourceCatalog
	case "GalaxyCatalog":
		v = entry.GalaxyCatalog
	case "ExtendedCatalog":
		v = entry.ExtendedCatalog
	case "ExtendedScale":
		v = entry.ExtendedScale
	case "ExtendedCenter":
		v = entry.ExtendedCenter
	case "MovingTargetList":
		v = entry.MovingTargetList
	case "MovingTargetSersic":
		v = entry.MovingTargetSersic
	case "MovingTargetExtended":
		v = entry.MovingTargetExtended
	case "MovingTargetConvolveExtended":
		v = entry.MovingTargetConvolveExtended
	case "MovingTargetToTrack":
		v = entry.MovingTargetToTrack
	case "BackgroundRate":
		v = entry.BackgroundRate
	}
	if v == "" {
		return table.None
	}
	return v
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package aptxml reads the proposal XML export and produces the compact
// observation-set table: one row per exposure specification, before any
// dither or detector expansion. The rest of the pipeline only sees the
// columnar table, never the XML tree.
package aptxml

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"github.com/vimarian/mirage/pkg/table"
)

// Columns lists the observation-set columns in output order.
var Columns = []string{
	"Instrument", "Module", "Subarray", "PrimaryDithers",
	"SubpixelPositions", "ImageDithers", "ShortFilter", "LongFilter",
	"ReadoutPattern", "Groups", "Integrations", "ProposalID",
	"CoordinatedParallel", "ParallelInstrument", "TargetID",
}

// proposal mirrors the XML export structure.
type proposal struct {
	ID           string        `xml:"id,attr"`
	Observations []observation `xml:"Observation"`
}

type observation struct {
	Instrument          string `xml:"Instrument"`
	Module              string `xml:"Module"`
	Subarray            string `xml:"Subarray"`
	PrimaryDithers      string `xml:"PrimaryDithers"`
	SubpixelPositions   string `xml:"SubpixelPositions"`
	ImageDithers        string `xml:"ImageDithers"`
	ShortFilter         string `xml:"ShortFilter"`
	LongFilter          string `xml:"LongFilter"`
	ReadoutPattern      string `xml:"ReadoutPattern"`
	Groups              string `xml:"Groups"`
	Integrations        string `xml:"Integrations"`
	TargetID            string `xml:"TargetID"`
	CoordinatedParallel string `xml:"CoordinatedParallel"`
	ParallelInstrument  string `xml:"ParallelInstrument"`
}

// ReadFile parses the proposal XML export at path.
func ReadFile(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening proposal XML: %w", err)
	}
	defer f.Close()

	tab, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading proposal XML %s: %w", path, err)
	}
	return tab, nil
}

// Read decodes the proposal XML from r into the observation-set table.
// A proposal with no observations is a structural error.
func Read(r io.Reader) (*table.Table, error) {
	var prop proposal
	if err := xml.NewDecoder(r).Decode(&prop); err != nil {
		return nil, fmt.Errorf("decoding XML: %w", err)
	}
	if len(prop.Observations) == 0 {
		return nil, fmt.Errorf("proposal contains no observations")
	}

	tab := table.New()
	for _, name := range Columns {
		if err := tab.AddColumn(name, nil); err != nil {
			return nil, err
		}
	}

	for _, obs := range prop.Observations {
		row := map[string]string{
			"Instrument":          orNone(obs.Instrument),
			"Module":              orNone(obs.Module),
			"Subarray":            orNone(obs.Subarray),
			"PrimaryDithers":      orDefault(obs.PrimaryDithers, "1"),
			"SubpixelPositions":   orDefault(obs.SubpixelPositions, "1"),
			"ImageDithers":        orDefault(obs.ImageDithers, "1"),
			"ShortFilter":         orNone(obs.ShortFilter),
			"LongFilter":          orNone(obs.LongFilter),
			"ReadoutPattern":      orNone(obs.ReadoutPattern),
			"Groups":              orNone(obs.Groups),
			"Integrations":        orNone(obs.Integrations),
			"ProposalID":          orDefault(prop.ID, "0"),
			"CoordinatedParallel": orDefault(obs.CoordinatedParallel, "false"),
			"ParallelInstrument":  orDefault(obs.ParallelInstrument, "false"),
			"TargetID":            orNone(obs.TargetID),
		}
		if err := tab.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return tab, nil
}

func orNone(v string) string {
	if v == "" {
		return table.None
	}
	return v
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

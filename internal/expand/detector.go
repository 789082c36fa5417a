// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package expand

import (
	"fmt"
	"strings"

	"github.com/vimarian/mirage/pkg/table"
)

// Detector banks for the modular (NIRCam) focal plane.
var (
	detectorsA   = []string{"A1", "A2", "A3", "A4", "A5"}
	detectorsB   = []string{"B1", "B2", "B3", "B4", "B5"}
	detectorsAll = []string{"A1", "A2", "A3", "A4", "A5", "B1", "B2", "B3", "B4", "B5"}
)

// ModulesAllNone reports whether the module column holds only the "None"
// sentinel, i.e. no observation uses a modular instrument.
func ModulesAllNone(tab *table.Table) bool {
	for _, v := range tab.Column("Module") {
		if v != table.None {
			return false
		}
	}
	return true
}

// ForDetectors expands a table with one row per module designation into
// one row per physical detector, adding a detector column. Each source
// row is replicated once per detector the designation resolves to.
func ForDetectors(tab *table.Table) (*table.Table, error) {
	out := tab.EmptyLike()
	var assigned []string

	for i := 0; i < tab.Len(); i++ {
		module := tab.Value("Module", i)
		detectors, err := moduleDetectors(module)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		for _, det := range detectors {
			if err := out.AppendRowFrom(tab, i); err != nil {
				return nil, err
			}
			assigned = append(assigned, det)
		}
	}

	if err := out.AddColumn("detector", assigned); err != nil {
		return nil, err
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// AssignDetectors handles the non-modular case: every row keeps its
// identity and receives the single detector for its instrument. Bimodal
// FGS resolves the guider from the aperture name.
func AssignDetectors(tab *table.Table) (*table.Table, error) {
	detectors := make([]string, tab.Len())
	for i := 0; i < tab.Len(); i++ {
		instrument := strings.ToLower(tab.Value("Instrument", i))
		aperture := tab.Value("aperture", i)

		var det string
		switch instrument {
		case "niriss":
			det = "NIS"
		case "fgs":
			switch {
			case strings.Contains(aperture, "FGS1"):
				det = "G1"
			case strings.Contains(aperture, "FGS2"):
				det = "G2"
			default:
				return nil, fmt.Errorf("row %d: cannot resolve FGS guider from aperture %q", i, aperture)
			}
		case "nirspec":
			det = "NRS1"
		case "miri":
			det = "MIRIMAGE"
		default:
			return nil, fmt.Errorf("row %d: no detector mapping for instrument %q", i, instrument)
		}
		detectors[i] = det
	}

	if err := tab.AddColumn("detector", detectors); err != nil {
		return nil, err
	}
	return tab, nil
}

// moduleDetectors resolves a module designation to the ordered detector
// set it names. DHSPIL designations are the disperser pickoff, which
// sits on A3 or B4 depending on the bank.
func moduleDetectors(module string) ([]string, error) {
	switch {
	case module == "ALL":
		return detectorsAll, nil
	case module == "A":
		return detectorsA, nil
	case module == "B":
		return detectorsB, nil
	case strings.Contains(module, "A3"):
		return []string{"A3"}, nil
	case strings.Contains(module, "B4"):
		return []string{"B4"}, nil
	case strings.Contains(module, "DHSPIL"):
		switch {
		case strings.HasSuffix(module, "A"):
			return []string{"A3"}, nil
		case strings.HasSuffix(module, "B"):
			return []string{"B4"}, nil
		}
		return nil, fmt.Errorf("unknown module %q", module)
	default:
		return nil, fmt.Errorf("unknown module %q", module)
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package expand turns the compact observation-set table into literal
// per-exposure rows. The XML export lists one row per dither set and one
// row per detector module; the downstream simulator wants one row per
// physical exposure per detector.
package expand

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vimarian/mirage/pkg/table"
)

// subpixelCounts maps the APT subpixel-dither vocabulary to a position
// count. WFSS programs use the "N-Point" names.
var subpixelCounts = map[string]int{
	"0":       1,
	"NONE":    1,
	"4-Point": 4,
	"9-Point": 9,
}

// HasTightDithers reports whether any primary-dither count carries the
// TIGHT marker (e.g. "3TIGHT").
func HasTightDithers(tab *table.Table) bool {
	for _, v := range tab.Column("PrimaryDithers") {
		if strings.Contains(v, "TIGHT") {
			return true
		}
	}
	return false
}

// NormalizeTightDithers strips the TIGHT marker from the primary-dither
// column, leaving only the count. Must run before any expansion logic
// inspects the column.
func NormalizeTightDithers(tab *table.Table) error {
	col := tab.Column("PrimaryDithers")
	out := make([]string, len(col))
	for i, v := range col {
		out[i] = strings.TrimSuffix(v, "TIGHT")
	}
	return tab.SetColumn("PrimaryDithers", out)
}

// ForDithers expands the table so that each row describes a single
// dither position. Two passes, each triggered by its own column: the
// primary/subpixel pass multiplies each row, and the image-dither pass
// replicates rows while keeping coordinated-parallel pairs together.
// The two dither vocabularies belong to different instruments, so at
// most one pass triggers for a given proposal.
func ForDithers(tab *table.Table) (*table.Table, error) {
	expanded := tab

	allPrimaryOne, err := allOne(tab, "PrimaryDithers")
	if err != nil {
		return nil, err
	}
	if !allPrimaryOne {
		expanded, err = expandPrimary(tab)
		if err != nil {
			return nil, err
		}
	}

	allImageOne, err := allOne(tab, "ImageDithers")
	if err != nil {
		return nil, err
	}
	if !allImageOne {
		expanded, err = expandImage(tab)
		if err != nil {
			return nil, err
		}
	}

	if err := expanded.Validate(); err != nil {
		return nil, err
	}
	return expanded, nil
}

// expandPrimary replicates each row by subpixel count times primary
// dither count.
func expandPrimary(tab *table.Table) (*table.Table, error) {
	out := tab.EmptyLike()
	for i := 0; i < tab.Len(); i++ {
		subpix, err := subpixelCount(tab.Value("SubpixelPositions", i))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		primary, err := primaryCount(tab.Value("PrimaryDithers", i))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		for j := 0; j < subpix*primary; j++ {
			if err := out.AppendRowFrom(tab, i); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// expandImage replicates rows by their image-dither count. A prime row
// of a coordinated-parallel pair forms a two-row block with its
// immediate successor, and the whole block is replicated so the
// parallel instrument's exposure sequence stays aligned with the
// prime's. Replicating the prime alone would desynchronize the pair.
func expandImage(tab *table.Table) (*table.Table, error) {
	out := tab.EmptyLike()
	for i := 0; i < tab.Len(); i++ {
		coordinated := tab.Value("CoordinatedParallel", i) == "true"
		parallel := tab.Value("ParallelInstrument", i) == "true"

		switch {
		case coordinated && !parallel:
			if i+1 >= tab.Len() {
				return nil, fmt.Errorf("coordinated parallel observation at row %d has no parallel row", i)
			}
			reps, err := tab.Int("ImageDithers", i)
			if err != nil {
				return nil, err
			}
			if reps < 1 {
				reps = 1
			}
			for j := 0; j < reps; j++ {
				if err := out.AppendRowFrom(tab, i); err != nil {
					return nil, err
				}
				if err := out.AppendRowFrom(tab, i+1); err != nil {
					return nil, err
				}
			}

		case coordinated && parallel:
			// Consumed as part of the preceding prime row's block.

		default:
			reps, err := tab.Int("ImageDithers", i)
			if err != nil {
				return nil, err
			}
			for j := 0; j < reps; j++ {
				if err := out.AppendRowFrom(tab, i); err != nil {
					return nil, err
				}
			}
		}
	}
	return out, nil
}

func subpixelCount(v string) (int, error) {
	if n, ok := subpixelCounts[v]; ok {
		return n, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("unrecognized subpixel position value %q", v)
	}
	return n, nil
}

func primaryCount(v string) (int, error) {
	if v == "0" {
		return 1, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("unrecognized primary dither value %q", v)
	}
	return n, nil
}

// allOne reports whether every value in the named count column equals 1.
func allOne(tab *table.Table, column string) (bool, error) {
	for i := 0; i < tab.Len(); i++ {
		n, err := tab.Int(column, i)
		if err != nil {
			return false, fmt.Errorf("column %s: %w", column, err)
		}
		if n != 1 {
			return false, nil
		}
	}
	return true, nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export serializes the final exposure table: a CSV file for
// the ramp simulator and an optional SQLite index for querying past
// runs.
package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/vimarian/mirage/pkg/table"
)

// WriteCSV writes the table to path with a header row, one record per
// exposure, overwriting any prior file. A write failure is fatal to
// the run; a partial output file is worse than none.
func WriteCSV(tab *table.Table, path string) error {
	if err := tab.Validate(); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	bw := bufio.NewWriter(f)
	w := csv.NewWriter(bw)

	if err := w.Write(tab.Names()); err != nil {
		f.Close()
		return fmt.Errorf("writing CSV header: %w", err)
	}

	names := tab.Names()
	record := make([]string, len(names))
	for i := 0; i < tab.Len(); i++ {
		for j, name := range names {
			record[j] = tab.Value(name, i)
		}
		if err := w.Write(record); err != nil {
			f.Close()
			return fmt.Errorf("writing CSV row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flushing CSV: %w", err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return f.Close()
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vimarian/mirage/internal/expand"
	"github.com/vimarian/mirage/pkg/table"
)

func sampleTable(t *testing.T) *table.Table {
	t.Helper()
	tab := table.New()
	for _, col := range []struct {
		name   string
		values []string
	}{
		{"observation_id", []string{"V01111001001P0000000001101", "V01111001001P0000000001102"}},
		{"visit_id", []string{"01111001001", "01111001001"}},
		{"Instrument", []string{"NIRCAM", "NIRCAM"}},
		{"detector", []string{"A1", "A2"}},
		{"aperture", []string{"NRCA1_FULL", "NRCA2_FULL"}},
	} {
		require.NoError(t, tab.AddColumn(col.name, col.values))
	}
	return tab
}

func TestWriteCSVRoundTrip(t *testing.T) {
	tab := sampleTable(t)
	path := filepath.Join(t.TempDir(), "exposures.csv")
	require.NoError(t, WriteCSV(tab, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, tab.Names(), records[0])
	assert.Equal(t, "V01111001001P0000000001102", records[2][0])
	assert.Equal(t, "A2", records[2][3])
}

func TestWriteCSVBadPath(t *testing.T) {
	tab := sampleTable(t)
	err := WriteCSV(tab, filepath.Join(t.TempDir(), "missing", "exposures.csv"))
	assert.Error(t, err)
}

func TestStoreIndexesExposures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	store, err := OpenStore(path)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	tab := sampleTable(t)
	require.NoError(t, store.IndexExposures(ctx, tab, "prop.xml", "prop.pointing"))

	n, err := store.CountExposures(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Re-indexing the same proposal replaces rows rather than duplicating.
	require.NoError(t, store.IndexExposures(ctx, tab, "prop.xml", "prop.pointing"))
	n, err = store.CountExposures(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStoreKeepsAllDetectorRowsOfOneExposure(t *testing.T) {
	tab := table.New()
	for _, col := range []struct {
		name   string
		values []string
	}{
		{"observation_id", []string{"V01111001001P0000000001101"}},
		{"visit_id", []string{"01111001001"}},
		{"Instrument", []string{"NIRCAM"}},
		{"Module", []string{"ALL"}},
	} {
		require.NoError(t, tab.AddColumn(col.name, col.values))
	}
	expanded, err := expand.ForDetectors(tab)
	require.NoError(t, err)
	require.Equal(t, 10, expanded.Len())

	store, err := OpenStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.IndexExposures(ctx, expanded, "prop.xml", "prop.pointing"))

	// The ten detector rows share one observation id; each must survive
	// under its own detector.
	n, err := store.CountExposures(ctx)
	require.NoError(t, err)
	assert.Equal(t, expanded.Len(), n)

	require.NoError(t, store.IndexExposures(ctx, expanded, "prop.xml", "prop.pointing"))
	n, err = store.CountExposures(ctx)
	require.NoError(t, err)
	assert.Equal(t, expanded.Len(), n)
}

func TestStoreFillsMissingColumnsWithNone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	store, err := OpenStore(path)
	require.NoError(t, err)
	defer store.Close()

	tab := table.New()
	require.NoError(t, tab.AddColumn("observation_id", []string{"V01111001001P0000000001101"}))
	require.NoError(t, tab.AddColumn("visit_id", []string{"01111001001"}))

	ctx := context.Background()
	require.NoError(t, store.IndexExposures(ctx, tab, "", ""))

	var detector string
	row := store.db.QueryRowContext(ctx,
		`SELECT detector FROM exposures WHERE observation_id = ?`,
		"V01111001001P0000000001101")
	require.NoError(t, row.Scan(&detector))
	assert.Equal(t, table.None, detector)
}

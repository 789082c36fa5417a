// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package expand

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vimarian/mirage/pkg/table"
)

// buildTable constructs a test table from ordered name/values pairs.
func buildTable(t *testing.T, cols []string, values map[string][]string) *table.Table {
	t.Helper()
	tab := table.New()
	for _, name := range cols {
		require.NoError(t, tab.AddColumn(name, values[name]))
	}
	return tab
}

func TestNormalizeTightDithers(t *testing.T) {
	tab := buildTable(t, []string{"PrimaryDithers"}, map[string][]string{
		"PrimaryDithers": {"3TIGHT", "4", "1"},
	})
	assert.True(t, HasTightDithers(tab))
	require.NoError(t, NormalizeTightDithers(tab))
	assert.Equal(t, []string{"3", "4", "1"}, tab.Column("PrimaryDithers"))
	assert.False(t, HasTightDithers(tab))
}

func TestForDithersPrimaryPass(t *testing.T) {
	tab := buildTable(t,
		[]string{"Instrument", "PrimaryDithers", "SubpixelPositions", "ImageDithers", "CoordinatedParallel", "ParallelInstrument"},
		map[string][]string{
			"Instrument":          {"NIRCAM", "NIRCAM"},
			"PrimaryDithers":      {"3", "2"},
			"SubpixelPositions":   {"4-Point", "NONE"},
			"ImageDithers":        {"1", "1"},
			"CoordinatedParallel": {"false", "false"},
			"ParallelInstrument":  {"false", "false"},
		})

	out, err := ForDithers(tab)
	require.NoError(t, err)
	// 3*4 + 2*1 rows.
	assert.Equal(t, 14, out.Len())
	assert.Equal(t, "3", out.Value("PrimaryDithers", 0))
	assert.Equal(t, "2", out.Value("PrimaryDithers", 13))
}

func TestForDithersPrimaryZeroMeansOne(t *testing.T) {
	tab := buildTable(t,
		[]string{"PrimaryDithers", "SubpixelPositions", "ImageDithers", "CoordinatedParallel", "ParallelInstrument"},
		map[string][]string{
			"PrimaryDithers":      {"0", "2"},
			"SubpixelPositions":   {"9-Point", "0"},
			"ImageDithers":        {"1", "1"},
			"CoordinatedParallel": {"false", "false"},
			"ParallelInstrument":  {"false", "false"},
		})

	out, err := ForDithers(tab)
	require.NoError(t, err)
	// 1*9 + 2*1 rows. "0" counts as a single position in both vocabularies.
	assert.Equal(t, 11, out.Len())
}

func TestForDithersImagePassKeepsParallelPairsInSync(t *testing.T) {
	tab := buildTable(t,
		[]string{"Instrument", "PrimaryDithers", "ImageDithers", "CoordinatedParallel", "ParallelInstrument"},
		map[string][]string{
			"Instrument":          {"NIRISS", "FGS", "NIRISS"},
			"PrimaryDithers":      {"1", "1", "1"},
			"ImageDithers":        {"3", "1", "2"},
			"CoordinatedParallel": {"true", "true", "false"},
			"ParallelInstrument":  {"false", "true", "false"},
		})

	out, err := ForDithers(tab)
	require.NoError(t, err)
	require.Equal(t, 8, out.Len())
	// Three prime/parallel blocks, then the standalone row twice.
	want := []string{"NIRISS", "FGS", "NIRISS", "FGS", "NIRISS", "FGS", "NIRISS", "NIRISS"}
	assert.Equal(t, want, out.Column("Instrument"))
	assert.Equal(t, []string{"false", "true", "false", "true", "false", "true", "false", "false"},
		out.Column("ParallelInstrument"))
}

func TestForDithersPrimeWithoutParallelRowFails(t *testing.T) {
	tab := buildTable(t,
		[]string{"PrimaryDithers", "ImageDithers", "CoordinatedParallel", "ParallelInstrument"},
		map[string][]string{
			"PrimaryDithers":      {"1"},
			"ImageDithers":        {"2"},
			"CoordinatedParallel": {"true"},
			"ParallelInstrument":  {"false"},
		})

	_, err := ForDithers(tab)
	assert.Error(t, err)
}

func TestForDithersIdentity(t *testing.T) {
	tab := buildTable(t,
		[]string{"Instrument", "PrimaryDithers", "SubpixelPositions", "ImageDithers", "CoordinatedParallel", "ParallelInstrument"},
		map[string][]string{
			"Instrument":          {"NIRCAM"},
			"PrimaryDithers":      {"1"},
			"SubpixelPositions":   {"NONE"},
			"ImageDithers":        {"1"},
			"CoordinatedParallel": {"false"},
			"ParallelInstrument":  {"false"},
		})

	out, err := ForDithers(tab)
	require.NoError(t, err)
	require.Equal(t, tab.Len(), out.Len())
	for _, name := range tab.Names() {
		if diff := cmp.Diff(tab.Column(name), out.Column(name)); diff != "" {
			t.Errorf("column %s changed (-in +out):\n%s", name, diff)
		}
	}
}

func TestForDithersBadSubpixelValue(t *testing.T) {
	tab := buildTable(t,
		[]string{"PrimaryDithers", "SubpixelPositions", "ImageDithers"},
		map[string][]string{
			"PrimaryDithers":    {"2"},
			"SubpixelPositions": {"Spiral"},
			"ImageDithers":      {"1"},
		})

	_, err := ForDithers(tab)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Spiral")
}

func TestForDetectorsAll(t *testing.T) {
	tab := buildTable(t, []string{"Module", "Instrument"}, map[string][]string{
		"Module":     {"ALL"},
		"Instrument": {"NIRCAM"},
	})

	out, err := ForDetectors(tab)
	require.NoError(t, err)
	require.Equal(t, 10, out.Len())
	assert.Equal(t, []string{"A1", "A2", "A3", "A4", "A5", "B1", "B2", "B3", "B4", "B5"},
		out.Column("detector"))
	assert.Equal(t, "NIRCAM", out.Value("Instrument", 9))
}

func TestForDetectorsModules(t *testing.T) {
	tests := []struct {
		module string
		want   []string
	}{
		{"A", []string{"A1", "A2", "A3", "A4", "A5"}},
		{"B", []string{"B1", "B2", "B3", "B4", "B5"}},
		{"SUBA3", []string{"A3"}},
		{"SUBB4", []string{"B4"}},
		{"DHSPILA", []string{"A3"}},
		{"DHSPILB", []string{"B4"}},
	}
	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			got, err := moduleDetectors(tt.module)
			if err != nil {
				t.Fatalf("moduleDetectors(%q): %v", tt.module, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("moduleDetectors(%q) mismatch (-want +got):\n%s", tt.module, diff)
			}
		})
	}
}

func TestForDetectorsUnknownModule(t *testing.T) {
	tab := buildTable(t, []string{"Module"}, map[string][]string{
		"Module": {"Q"},
	})
	_, err := ForDetectors(tab)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Q")
}

func TestForDetectorsRowTotal(t *testing.T) {
	tab := buildTable(t, []string{"Module"}, map[string][]string{
		"Module": {"ALL", "A", "DHSPILB"},
	})
	out, err := ForDetectors(tab)
	require.NoError(t, err)
	assert.Equal(t, 10+5+1, out.Len())
}

func TestModulesAllNone(t *testing.T) {
	tab := buildTable(t, []string{"Module"}, map[string][]string{
		"Module": {table.None, table.None},
	})
	assert.True(t, ModulesAllNone(tab))

	tab2 := buildTable(t, []string{"Module"}, map[string][]string{
		"Module": {table.None, "A"},
	})
	assert.False(t, ModulesAllNone(tab2))
}

func TestAssignDetectorsNonModular(t *testing.T) {
	tab := buildTable(t, []string{"Instrument", "aperture"}, map[string][]string{
		"Instrument": {"NIRISS", "FGS", "FGS"},
		"aperture":   {"NIS_CEN", "FGS1_FULL", "FGS2_FULL"},
	})

	out, err := AssignDetectors(tab)
	require.NoError(t, err)
	require.Equal(t, 3, out.Len())
	assert.Equal(t, []string{"NIS", "G1", "G2"}, out.Column("detector"))
}

func TestAssignDetectorsUnknownInstrument(t *testing.T) {
	tab := buildTable(t, []string{"Instrument", "aperture"}, map[string][]string{
		"Instrument": {"WFIRST"},
		"aperture":   {"X"},
	})
	_, err := AssignDetectors(tab)
	assert.Error(t, err)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pointing

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const exposureLine = "1 1 00001 1 NRC_A1_FULL 1 target 10.0 20.0 0 0 0.0 0.0 100.0 200.0 0.0 0.0 TARGET_ACQ SCIENCE 1 1 0.01"

func TestParseSingleExposure(t *testing.T) {
	input := strings.Join([]string{
		"# comment",
		"* Obs Label",
		"** Visit 1:1",
		exposureLine,
	}, "\n")

	tab, err := Parse(strings.NewReader(input), 1111, testLogger())
	require.NoError(t, err)
	require.Equal(t, 1, tab.Len())

	assert.Equal(t, "Obs Label", tab.Value("obs_label", 0))
	assert.Equal(t, "001", tab.Value("obs_num", 0))
	assert.Equal(t, "001", tab.Value("visit_num", 0))
	assert.Equal(t, "00001", tab.Value("exposure", 0))
	assert.Equal(t, "NRC_A1_FULL", tab.Value("aperture", 0))
	assert.Equal(t, "01", tab.Value("act_id", 0))
	assert.Equal(t, "01111001001", tab.Value("visit_id", 0))
	assert.Len(t, tab.Value("visit_id", 0), 11)
	assert.Equal(t, "V01111001001P00000000011"+"01", tab.Value("observation_id", 0))
	assert.True(t, strings.HasPrefix(tab.Value("observation_id", 0), "V"+tab.Value("visit_id", 0)))
}

func TestParseHeaderProposalID(t *testing.T) {
	input := strings.Join([]string{
		"JWST Astronomers Proposal Tool Export of program 42 version 1.0",
		"* Obs",
		"** Visit 2:3",
		exposureLine,
	}, "\n")

	tab, err := Parse(strings.NewReader(input), 1111, testLogger())
	require.NoError(t, err)
	require.Equal(t, 1, tab.Len())
	assert.Equal(t, "00042002003", tab.Value("visit_id", 0))
}

func TestParseHeaderUnparseableKeepsFallback(t *testing.T) {
	input := strings.Join([]string{
		"JWST Astronomers Proposal Tool Export of program template version",
		"* Obs",
		"** Visit 1:1",
		exposureLine,
	}, "\n")

	tab, err := Parse(strings.NewReader(input), 7, testLogger())
	require.NoError(t, err)
	require.Equal(t, 1, tab.Len())
	assert.Equal(t, "00007001001", tab.Value("visit_id", 0))
}

func TestObsLabelParentheticalStripped(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"plain", "* Deep Field", "Deep Field"},
		{"trailing annotation", "* Deep Field (Obs 1)", "Deep Field"},
		{"nested annotation", "* Deep (Tile A) Field (Obs 2)", "Deep"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseObsLabel(tt.line); got != tt.want {
				t.Errorf("parseObsLabel(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestRejectedLinesEmitNoRows(t *testing.T) {
	input := strings.Join([]string{
		"* Obs",
		"** Visit 1:1",
		"============================",
		// Target-summary line: tile field is 0.
		"1 0 0 0 NRC_A1_FULL 1 target 10.0 20.0 0 0 0.0 0.0 0.0 0.0 0.0 0.0 TARGET SCIENCE 1 1 0.0",
		// Unsupported instrument in the aperture field.
		"1 1 00001 1 XXX_SOMETHING 1 target 10.0 20.0 0 0 0.0 0.0 0.0 0.0 0.0 0.0 TARGET_ACQ SCIENCE 1 1 0.01",
		exposureLine,
	}, "\n")

	tab, err := Parse(strings.NewReader(input), 1111, testLogger())
	require.NoError(t, err)
	require.Equal(t, 1, tab.Len())
	// Rejected candidates consume no activity ordinal.
	assert.Equal(t, "01", tab.Value("act_id", 0))
}

func TestMalformedAcceptedLineConsumesOrdinal(t *testing.T) {
	bad := strings.Replace(exposureLine, "0.0 0.0 100.0", "0.0 bad 100.0", 1)
	input := strings.Join([]string{
		"* Obs",
		"** Visit 1:1",
		bad,
		exposureLine,
	}, "\n")

	tab, err := Parse(strings.NewReader(input), 1111, testLogger())
	require.NoError(t, err)
	require.Equal(t, 1, tab.Len())
	// The dropped line passed the acceptance test, so its ordinal is gone.
	assert.Equal(t, "02", tab.Value("act_id", 0))
}

func TestActivityIDsIncrementAcrossVisits(t *testing.T) {
	input := strings.Join([]string{
		"* Obs One",
		"** Visit 1:1",
		exposureLine,
		exposureLine,
		"* Obs Two",
		"** Visit 2:1",
		exposureLine,
	}, "\n")

	tab, err := Parse(strings.NewReader(input), 1111, testLogger())
	require.NoError(t, err)
	require.Equal(t, 3, tab.Len())
	assert.Equal(t, []string{"01", "02", "03"}, tab.Column("act_id"))
	assert.Equal(t, "002", tab.Value("obs_num", 2))
	assert.Equal(t, "Obs Two", tab.Value("obs_label", 2))
}

func TestGrismApertureRewrite(t *testing.T) {
	line := strings.Replace(exposureLine, "NRC_A1_FULL", "NRCA5_GRISMR_WFSS", 1)
	input := strings.Join([]string{"* Obs", "** Visit 1:1", line}, "\n")

	tab, err := Parse(strings.NewReader(input), 1111, testLogger())
	require.NoError(t, err)
	require.Equal(t, 1, tab.Len())
	assert.Equal(t, "NRCA5_FULL", tab.Value("aperture", 0))
}

func TestParallelLineWithoutDitherDistance(t *testing.T) {
	line := "1 1 00002 1 NIS_CEN 1 target 10.0 20.0 0 0 0.0 0.0 -290.0 -697.5 0.0 0.0 TARGET_ACQ PARALLEL 1 1"
	input := strings.Join([]string{"* Obs", "** Visit 1:1", line}, "\n")

	tab, err := Parse(strings.NewReader(input), 1111, testLogger())
	require.NoError(t, err)
	require.Equal(t, 1, tab.Len())
	assert.Equal(t, "NIS_CEN", tab.Value("aperture", 0))
}

func TestBase36Encode(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "01"},
		{9, "09"},
		{10, "0a"},
		{35, "0z"},
		{36, "10"},
		{37, "11"},
		{1295, "zz"},
		{1296, "100"}, // widens past two characters rather than truncating
	}
	for _, tt := range tests {
		if got := base36Encode(tt.n); got != tt.want {
			t.Errorf("base36Encode(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestColumnsStayRectangular(t *testing.T) {
	input := strings.Join([]string{
		"* Obs",
		"** Visit 1:1",
		exposureLine,
		exposureLine,
	}, "\n")

	tab, err := Parse(strings.NewReader(input), 1111, testLogger())
	require.NoError(t, err)
	require.NoError(t, tab.Validate())
	for _, name := range Columns {
		assert.Len(t, tab.Column(name), 2, "column %s", name)
	}
}

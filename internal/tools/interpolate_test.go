package tools

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okmeso/okmeso/internal/domain"
)

func TestInterpolateMissingInterior(t *testing.T) {
	tk := newTestToolkit(&fakeSource{})
	tbl := fiveMinuteTable(t, "ACME", testDay, 5)
	require.NoError(t, tbl.SetColumn("TAIR", []float64{10, -996, -996, -999, 14}))

	n, err := tk.InterpolateMissing(tbl, nil, "")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	tair, _ := tbl.Column("TAIR")
	assert.InDelta(t, 11, tair[1], 1e-9)
	assert.InDelta(t, 12, tair[2], 1e-9)
	assert.InDelta(t, 13, tair[3], 1e-9)
}

func TestInterpolateMissingEdges(t *testing.T) {
	tk := newTestToolkit(&fakeSource{})
	tbl := fiveMinuteTable(t, "ACME", testDay, 5)
	require.NoError(t, tbl.SetColumn("TAIR", []float64{-996, 10, 12, -996, -996}))

	n, err := tk.InterpolateMissing(tbl, nil, "")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	tair, _ := tbl.Column("TAIR")
	assert.True(t, math.IsNaN(tair[0]), "nothing precedes the first observation")
	assert.Equal(t, 12.0, tair[3], "trailing gaps hold the last observation")
	assert.Equal(t, 12.0, tair[4])
}

func TestInterpolateMissingSubsetKeepsOtherCodes(t *testing.T) {
	tk := newTestToolkit(&fakeSource{})
	tbl := fiveMinuteTable(t, "ACME", testDay, 5)
	require.NoError(t, tbl.SetColumn("TAIR", []float64{10, -996, -995, -996, 14}))

	n, err := tk.InterpolateMissing(tbl, []domain.ErrorCode{domain.CodeDidNotReport}, "")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	tair, _ := tbl.Column("TAIR")
	assert.InDelta(t, 11, tair[1], 1e-9)
	assert.Equal(t, -995.0, tair[2], "untargeted codes come back after the fill")
	assert.InDelta(t, 13, tair[3], 1e-9)
}

func TestInterpolateMissingSingleColumn(t *testing.T) {
	tk := newTestToolkit(&fakeSource{})
	tbl := fiveMinuteTable(t, "ACME", testDay, 3)
	require.NoError(t, tbl.SetColumn("TAIR", []float64{10, -996, 12}))
	require.NoError(t, tbl.SetColumn("RELH", []float64{80, -996, 78}))

	_, err := tk.InterpolateMissing(tbl, nil, "TAIR")
	require.NoError(t, err)

	relh, _ := tbl.Column("RELH")
	assert.Equal(t, -996.0, relh[1], "other columns keep their codes")
}

func TestInterpolateMissingInvalidCodes(t *testing.T) {
	tk := newTestToolkit(&fakeSource{})
	tbl := fiveMinuteTable(t, "ACME", testDay, 2)
	require.NoError(t, tbl.SetColumn("TAIR", []float64{10, -996}))

	_, err := tk.InterpolateMissing(tbl, []domain.ErrorCode{-5}, "")
	assert.ErrorContains(t, err, "no valid error codes")
}

func TestInterpolateMissingAllMissingColumn(t *testing.T) {
	tk := newTestToolkit(&fakeSource{})
	tbl := fiveMinuteTable(t, "ACME", testDay, 3)
	require.NoError(t, tbl.SetColumn("TAIR", []float64{-996, -996, -996}))

	n, err := tk.InterpolateMissing(tbl, nil, "")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	tair, _ := tbl.Column("TAIR")
	for _, v := range tair {
		assert.True(t, math.IsNaN(v))
	}
}

package tools

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okmeso/okmeso/internal/domain"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestSaveCSV(t *testing.T) {
	tk := newTestToolkit(&fakeSource{})
	dir := t.TempDir()

	tbl := fiveMinuteTable(t, "ACME", testDay, 3)
	require.NoError(t, tbl.SetColumn("TAIR", []float64{12.5, math.NaN(), 12.9}))
	require.NoError(t, tbl.SetColumn("RAIN", []float64{0, 0.5, 0}))

	path, err := tk.SaveCSV(tbl, dir, "", false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ACME_030105-030105.csv"), path)

	records := readCSV(t, path)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"DATETIME", "STID", "TAIR", "RAIN"}, records[0])
	assert.Equal(t, []string{"2005-03-01 00:00:00", "ACME", "12.5", "0"}, records[1])
	assert.Equal(t, "", records[2][2], "NaN cells export as empty")
	assert.Equal(t, "0.5", records[2][3])
}

func TestSaveCSVGeneratedNameSpansRange(t *testing.T) {
	tk := newTestToolkit(&fakeSource{})
	dir := t.TempDir()

	tbl := domain.NewTable("NRMN")
	tbl.Times = append(tbl.Times, testDay, testDay.AddDate(0, 0, 30))
	require.NoError(t, tbl.SetColumn("TAIR", []float64{10, 11}))

	path, err := tk.SaveCSV(tbl, dir, "", false)
	require.NoError(t, err)
	assert.Equal(t, "NRMN_030105-033105.csv", filepath.Base(path))
}

func TestSaveCSVRejectsBadFilename(t *testing.T) {
	tk := newTestToolkit(&fakeSource{})
	tbl := fiveMinuteTable(t, "ACME", testDay, 1)
	require.NoError(t, tbl.SetColumn("TAIR", []float64{10}))

	_, err := tk.SaveCSV(tbl, t.TempDir(), "bad/name.csv", false)
	assert.ErrorContains(t, err, "invalid filename")
}

func TestSaveCSVRefusesOverwrite(t *testing.T) {
	tk := newTestToolkit(&fakeSource{})
	dir := t.TempDir()
	tbl := fiveMinuteTable(t, "ACME", testDay, 1)
	require.NoError(t, tbl.SetColumn("TAIR", []float64{10}))

	_, err := tk.SaveCSV(tbl, dir, "out.csv", false)
	require.NoError(t, err)

	_, err = tk.SaveCSV(tbl, dir, "out.csv", false)
	assert.ErrorIs(t, err, ErrFileExists)

	_, err = tk.SaveCSV(tbl, dir, "out.csv", true)
	assert.NoError(t, err)
}

func TestSaveCSVEmptyTable(t *testing.T) {
	tk := newTestToolkit(&fakeSource{})
	_, err := tk.SaveCSV(domain.NewTable("ACME"), t.TempDir(), "", false)
	assert.ErrorContains(t, err, "empty")
}

func TestSaveCSVSet(t *testing.T) {
	tk := newTestToolkit(&fakeSource{})
	dir := t.TempDir()

	a := fiveMinuteTable(t, "ACME", testDay, 1)
	require.NoError(t, a.SetColumn("TAIR", []float64{10}))
	b := fiveMinuteTable(t, "NRMN", testDay, 1)
	require.NoError(t, b.SetColumn("TAIR", []float64{12}))
	require.NoError(t, b.SetColumn("WSPD", []float64{4}))

	path, err := tk.SaveCSVSet(domain.TableSet{"NRMN": b, "ACME": a}, dir, "", false)
	require.NoError(t, err)
	assert.Equal(t, "ACME_and-1-more_030105-030105.csv", filepath.Base(path))

	records := readCSV(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"DATETIME", "STID", "TAIR", "WSPD"}, records[0])
	// Tables concatenate in STID order under the union of columns.
	assert.Equal(t, "ACME", records[1][1])
	assert.Equal(t, "", records[1][3], "ACME never measured WSPD")
	assert.Equal(t, "NRMN", records[2][1])
	assert.Equal(t, "4", records[2][3])
}

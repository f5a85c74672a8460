package tools

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okmeso/okmeso/internal/domain"
)

// summerDayTable builds a full day of five-minute summer observations with a
// short afternoon sensor outage.
func summerDayTable(t *testing.T, day time.Time) *domain.Table {
	t.Helper()
	const rows = 288

	tbl := fiveMinuteTable(t, "ACME", day, rows)
	tair := make([]float64, rows)
	relh := make([]float64, rows)
	wind := make([]float64, rows)
	srad := make([]float64, rows)
	for i := range tair {
		hour := float64(i) / 12
		tair[i] = 22 + 8*math.Sin(math.Pi*(hour-7)/12)
		relh[i] = 60
		wind[i] = 3
		if hour >= 7 && hour < 20 {
			srad[i] = 600 * math.Sin(math.Pi*(hour-7)/13)
		}
	}
	tair[170] = -996
	tair[171] = -996
	srad[170] = -996

	require.NoError(t, tbl.SetColumn("TAIR", tair))
	require.NoError(t, tbl.SetColumn("RELH", relh))
	require.NoError(t, tbl.SetColumn("WS2M", wind))
	require.NoError(t, tbl.SetColumn("SRAD", srad))
	return tbl
}

func TestCalculateRETHourly(t *testing.T) {
	tk := newTestToolkit(&fakeSource{stations: testStations()})
	day := time.Date(2005, time.June, 15, 0, 0, 0, 0, time.UTC)
	tbl := summerDayTable(t, day)

	ret, err := tk.CalculateRET(context.Background(), tbl, day, day, HourlyStep, "WS2M", HandleInterpolate)
	require.NoError(t, err)

	assert.Equal(t, HourlyStep, ret.StepMinutes)
	assert.Equal(t, day, ret.Start)
	require.Len(t, ret.Values, 24)

	total := 0.0
	for i, v := range ret.Values {
		require.False(t, math.IsNaN(v), "hour %d", i)
		total += v
	}
	assert.Greater(t, ret.Values[13], ret.Values[2], "midday demand exceeds night")
	assert.Greater(t, total, 2.0, "a clear summer day evaporates several millimeters")
	assert.Less(t, total, 15.0)

	// The input table is untouched: its sentinels are still in place.
	tair, _ := tbl.Column("TAIR")
	assert.Equal(t, -996.0, tair[170])
}

func TestCalculateRETDaily(t *testing.T) {
	tk := newTestToolkit(&fakeSource{stations: testStations()})
	day := time.Date(2005, time.June, 15, 0, 0, 0, 0, time.UTC)
	tbl := summerDayTable(t, day)

	ret, err := tk.CalculateRET(context.Background(), tbl, day, day, DailyStep, "WS2M", HandleInterpolate)
	require.NoError(t, err)

	require.Len(t, ret.Values, 1)
	assert.Greater(t, ret.Values[0], 2.0)
	assert.Less(t, ret.Values[0], 15.0)
}

func TestCalculateRETNaNHandlingPropagates(t *testing.T) {
	tk := newTestToolkit(&fakeSource{stations: testStations()})
	day := time.Date(2005, time.June, 15, 0, 0, 0, 0, time.UTC)
	tbl := summerDayTable(t, day)

	ret, err := tk.CalculateRET(context.Background(), tbl, day, day, HourlyStep, "WS2M", HandleNaN)
	require.NoError(t, err)
	require.Len(t, ret.Values, 24)

	// Rows 170-171 sit in hour 14; with gaps left as NaN the hourly mean
	// still exists because the rest of the hour reported.
	assert.False(t, math.IsNaN(ret.Values[14]))
}

func TestCalculateRETValidation(t *testing.T) {
	tk := newTestToolkit(&fakeSource{stations: testStations()})
	day := time.Date(2005, time.June, 15, 0, 0, 0, 0, time.UTC)
	tbl := summerDayTable(t, day)
	ctx := context.Background()

	_, err := tk.CalculateRET(ctx, tbl, day, day, 17, "WS2M", HandleNaN)
	assert.ErrorContains(t, err, "invalid step")

	_, err = tk.CalculateRET(ctx, tbl, day, day, HourlyStep, "TAIR", HandleNaN)
	assert.ErrorContains(t, err, "invalid wind column")

	_, err = tk.CalculateRET(ctx, tbl, day, day, HourlyStep, "WS2M", ErrorHandling("drop"))
	assert.ErrorContains(t, err, "invalid error handling")
}

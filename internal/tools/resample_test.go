package tools

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okmeso/okmeso/internal/domain"
)

func TestParseStep(t *testing.T) {
	for in, want := range map[string]int{
		"hourly": 60,
		"Daily":  1440,
		"15":     15,
		" 5 ":    5,
	} {
		got, err := ParseStep(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseStep("weekly")
	assert.ErrorContains(t, err, `invalid step "weekly"`)
}

func TestTimeseriesNativeStep(t *testing.T) {
	tk := newTestToolkit(&fakeSource{})
	tbl := fiveMinuteTable(t, "ACME", testDay, 3)
	require.NoError(t, tbl.SetColumn("TAIR", []float64{10, -996, 12}))

	ts, err := tk.Timeseries(tbl, "tair", 5, AggDefault)
	require.NoError(t, err)

	assert.Equal(t, 5, ts.StepMinutes)
	assert.Equal(t, testDay, ts.Start)
	require.Len(t, ts.Values, 3)
	assert.Equal(t, 10.0, ts.Values[0])
	assert.True(t, math.IsNaN(ts.Values[1]), "sentinels become NaN in series form")
	assert.Equal(t, 12.0, ts.Values[2])
}

func TestTimeseriesStepNormalization(t *testing.T) {
	tk := newTestToolkit(&fakeSource{})
	tbl := fiveMinuteTable(t, "ACME", testDay, 6)
	require.NoError(t, tbl.SetColumn("TAIR", []float64{10, 10, 10, 10, 10, 10}))

	// Below the observation interval: clamped up to it.
	ts, err := tk.Timeseries(tbl, "TAIR", 2, AggDefault)
	require.NoError(t, err)
	assert.Equal(t, 5, ts.StepMinutes)

	// Not a multiple of the interval: rounded up.
	ts, err = tk.Timeseries(tbl, "TAIR", 12, AggDefault)
	require.NoError(t, err)
	assert.Equal(t, 15, ts.StepMinutes)
}

func TestTimeseriesHourlyMeansAndSums(t *testing.T) {
	tk := newTestToolkit(&fakeSource{})
	tbl := fiveMinuteTable(t, "ACME", testDay, 24) // two hours of rows

	tair := make([]float64, 24)
	rain := make([]float64, 24)
	for i := range tair {
		if i < 12 {
			tair[i] = 10
			rain[i] = 0.1
		} else {
			tair[i] = 20
			rain[i] = 0.2
		}
	}
	tair[3] = -996 // dropped, not averaged in
	require.NoError(t, tbl.SetColumn("TAIR", tair))
	require.NoError(t, tbl.SetColumn("RAIN", rain))

	ts, err := tk.Timeseries(tbl, "TAIR", HourlyStep, AggDefault)
	require.NoError(t, err)
	require.Len(t, ts.Values, 2)
	assert.Equal(t, testDay, ts.Start)
	assert.InDelta(t, 10, ts.Values[0], 1e-9)
	assert.InDelta(t, 20, ts.Values[1], 1e-9)

	sums, err := tk.Timeseries(tbl, "RAIN", HourlyStep, AggDefault)
	require.NoError(t, err)
	assert.InDelta(t, 1.2, sums.Values[0], 1e-9, "accumulator columns sum")
	assert.InDelta(t, 2.4, sums.Values[1], 1e-9)
}

func TestTimeseriesMinMax(t *testing.T) {
	tk := newTestToolkit(&fakeSource{})
	tbl := fiveMinuteTable(t, "ACME", testDay, 12)
	vals := []float64{10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21}
	require.NoError(t, tbl.SetColumn("TAIR", vals))

	lo, err := tk.Timeseries(tbl, "TAIR", HourlyStep, AggMin)
	require.NoError(t, err)
	assert.Equal(t, []float64{10}, lo.Values)

	hi, err := tk.Timeseries(tbl, "TAIR", HourlyStep, AggMax)
	require.NoError(t, err)
	assert.Equal(t, []float64{21}, hi.Values)
}

func TestTimeseriesEmptyBuckets(t *testing.T) {
	tk := newTestToolkit(&fakeSource{})
	tbl := domain.NewTable("ACME")
	// One observation in the first hour, one in the third.
	tbl.Times = []time.Time{testDay, testDay.Add(2 * time.Hour)}
	require.NoError(t, tbl.SetColumn("TAIR", []float64{10, 12}))
	require.NoError(t, tbl.SetColumn("RAIN", []float64{0.1, 0.3}))

	means, err := tk.Timeseries(tbl, "TAIR", HourlyStep, AggDefault)
	require.NoError(t, err)
	require.Len(t, means.Values, 3)
	assert.True(t, math.IsNaN(means.Values[1]), "empty mean buckets are NaN")

	sums, err := tk.Timeseries(tbl, "RAIN", HourlyStep, AggDefault)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sums.Values[1], "empty sum buckets are zero")
}

func TestTimeseriesBucketAlignment(t *testing.T) {
	tk := newTestToolkit(&fakeSource{})
	tbl := domain.NewTable("ACME")
	// First observation at 00:35: the series starts at the enclosing hour.
	tbl.Times = []time.Time{testDay.Add(35 * time.Minute), testDay.Add(40 * time.Minute)}
	require.NoError(t, tbl.SetColumn("TAIR", []float64{10, 12}))

	ts, err := tk.Timeseries(tbl, "TAIR", HourlyStep, AggDefault)
	require.NoError(t, err)
	assert.Equal(t, testDay, ts.Start)
	require.Len(t, ts.Values, 1)
	assert.InDelta(t, 11, ts.Values[0], 1e-9)
}

func TestTimeseriesDaily(t *testing.T) {
	tk := newTestToolkit(&fakeSource{})
	tbl := domain.NewTable("ACME")
	tbl.Times = []time.Time{testDay, testDay.Add(12 * time.Hour), testDay.AddDate(0, 0, 1)}
	require.NoError(t, tbl.SetColumn("TAIR", []float64{10, 20, 30}))

	ts, err := tk.Timeseries(tbl, "TAIR", DailyStep, AggDefault)
	require.NoError(t, err)
	assert.Equal(t, 1440, ts.StepMinutes)
	require.Len(t, ts.Values, 2)
	assert.InDelta(t, 15, ts.Values[0], 1e-9)
	assert.InDelta(t, 30, ts.Values[1], 1e-9)
}

func TestTimeseriesUnknownColumn(t *testing.T) {
	tk := newTestToolkit(&fakeSource{})
	tbl := fiveMinuteTable(t, "ACME", testDay, 1)
	require.NoError(t, tbl.SetColumn("TAIR", []float64{10}))

	_, err := tk.Timeseries(tbl, "WSPD", 5, AggDefault)
	assert.Error(t, err)
}

func TestMeanTimeseries(t *testing.T) {
	tk := newTestToolkit(&fakeSource{})

	a := fiveMinuteTable(t, "ACME", testDay, 2)
	require.NoError(t, a.SetColumn("TAIR", []float64{10, -996}))
	b := fiveMinuteTable(t, "NRMN", testDay, 2)
	require.NoError(t, b.SetColumn("TAIR", []float64{20, 14}))

	ts, err := tk.MeanTimeseries(domain.TableSet{"ACME": a, "NRMN": b}, "tair", 5, AggDefault)
	require.NoError(t, err)

	require.Len(t, ts.Values, 2)
	assert.InDelta(t, 15, ts.Values[0], 1e-9, "mean across stations")
	assert.InDelta(t, 14, ts.Values[1], 1e-9, "sentinels drop out of the mean")
}

func TestMeanTimeseriesNoUsableData(t *testing.T) {
	tk := newTestToolkit(&fakeSource{})
	a := fiveMinuteTable(t, "ACME", testDay, 1)
	require.NoError(t, a.SetColumn("TAIR", []float64{-996}))

	_, err := tk.MeanTimeseries(domain.TableSet{"ACME": a}, "TAIR", 5, AggDefault)
	assert.ErrorContains(t, err, "no usable TAIR observations")
}

package et

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okmeso/okmeso/internal/domain"
)

// Norman, Oklahoma.
const (
	testLat  = 35.22
	testLon  = -97.44
	testElev = 357.0
)

func TestValidateStep(t *testing.T) {
	for _, step := range []int{5, 10, 15, 20, 30, 60, 1440} {
		assert.NoError(t, ValidateStep(step), "step %d", step)
	}
	for _, step := range []int{0, 3, 7, 25, 45, 61, 90, 720} {
		assert.Error(t, ValidateStep(step), "step %d", step)
	}
}

func TestAtmospherePressure(t *testing.T) {
	c, err := NewCalculator(HourlyStep)
	require.NoError(t, err)

	c.AddLocation(testLat, testLon, 0)
	assert.InDelta(t, 101.3, c.atmospherePressure(), 1e-9)

	c.AddLocation(testLat, testLon, testElev)
	assert.InDelta(t, 97.1, c.atmospherePressure(), 0.3)
}

func TestVaporPressure(t *testing.T) {
	assert.InDelta(t, 2.339, vaporPressure(20), 0.005)
	assert.InDelta(t, 0.6108, vaporPressure(0), 1e-9)
}

func TestWindCorrection(t *testing.T) {
	c, err := NewCalculator(HourlyStep)
	require.NoError(t, err)

	// The default 2 m height is a unit factor.
	assert.InDelta(t, 3.0, c.windCorrection(3), 0.01)

	c.SetWindHeight(10)
	assert.Less(t, c.windCorrection(3), 2.5, "10 m readings are corrected down")
	assert.Greater(t, c.windCorrection(3), 2.0)
}

func TestAddSeriesValidation(t *testing.T) {
	c, err := NewCalculator(HourlyStep)
	require.NoError(t, err)

	ts := domain.Timeseries{StepMinutes: DailyStep, Values: []float64{1}}
	err = c.AddSeries(SeriesTemperature, ts)
	assert.ErrorContains(t, err, "has step 1440, calculator uses 60")

	ts.StepMinutes = HourlyStep
	err = c.AddSeries(SeriesTMin, ts)
	assert.ErrorContains(t, err, `unknown series "tmin"`)

	assert.NoError(t, c.AddSeries(SeriesTemperature, ts))

	daily, err := NewCalculator(DailyStep)
	require.NoError(t, err)
	ts.StepMinutes = DailyStep
	assert.NoError(t, daily.AddSeries(SeriesTMin, ts))
	assert.ErrorContains(t, daily.AddSeries(SeriesTemperature, ts), "unknown series")
}

func TestSunNormanJune(t *testing.T) {
	c, err := NewCalculator(HourlyStep)
	require.NoError(t, err)
	c.AddLocation(testLat, testLon, testElev)

	day := time.Date(2005, time.June, 15, 0, 0, 0, 0, time.UTC)
	sunrise, sunset := c.Sun(day)

	riseHour := float64(sunrise.Hour()) + float64(sunrise.Minute())/60
	setHour := float64(sunset.Hour()) + float64(sunset.Minute())/60
	assert.InDelta(t, 6.2, riseHour, 0.75)
	assert.InDelta(t, 20.7, setHour, 0.75)

	assert.True(t, c.isDaytime(day.Add(12*time.Hour)))
	assert.False(t, c.isDaytime(day.Add(2*time.Hour)))
	assert.False(t, c.isDaytime(day.Add(23*time.Hour)))
}

func TestSunWinterOffset(t *testing.T) {
	c, err := NewCalculator(HourlyStep)
	require.NoError(t, err)
	c.AddLocation(testLat, testLon, testElev)

	day := time.Date(2005, time.December, 15, 0, 0, 0, 0, time.UTC)
	sunrise, sunset := c.Sun(day)

	// Short winter day, standard-time offset.
	assert.InDelta(t, 7.5, float64(sunrise.Hour())+float64(sunrise.Minute())/60, 0.75)
	assert.InDelta(t, 17.2, float64(sunset.Hour())+float64(sunset.Minute())/60, 0.75)
	assert.True(t, sunset.Sub(sunrise) < 11*time.Hour)
}

func hourlyInputs(start time.Time, hours int) map[string]domain.Timeseries {
	temperature := make([]float64, hours)
	dewpoint := make([]float64, hours)
	wind := make([]float64, hours)
	solar := make([]float64, hours)
	for i := range temperature {
		temperature[i] = 25
		dewpoint[i] = 14
		wind[i] = 3
		if h := i % 24; h >= 7 && h <= 19 {
			solar[i] = 600
		}
	}
	series := map[string][]float64{
		SeriesTemperature: temperature,
		SeriesDewpoint:    dewpoint,
		SeriesWind:        wind,
		SeriesSolar:       solar,
	}
	out := make(map[string]domain.Timeseries, len(series))
	for name, vals := range series {
		out[name] = domain.Timeseries{StepMinutes: HourlyStep, Start: start, Values: vals}
	}
	return out
}

func TestCalculateRETHourly(t *testing.T) {
	start := time.Date(2005, time.June, 15, 0, 0, 0, 0, time.UTC)

	c, err := NewCalculator(HourlyStep)
	require.NoError(t, err)
	c.AddLocation(testLat, testLon, testElev)
	c.SetWindHeight(10)
	for name, ts := range hourlyInputs(start, 24) {
		require.NoError(t, c.AddSeries(name, ts))
	}

	ret, err := c.CalculateRET(start, start.AddDate(0, 0, 1))
	require.NoError(t, err)

	assert.Equal(t, HourlyStep, ret.StepMinutes)
	assert.Equal(t, start, ret.Start)
	require.Len(t, ret.Values, 24)

	for i, v := range ret.Values {
		assert.False(t, math.IsNaN(v), "hour %d", i)
		assert.Less(t, math.Abs(v), 3.0, "hour %d is outside any plausible hourly rate", i)
	}

	noon := ret.Values[12]
	night := ret.Values[2]
	assert.Greater(t, noon, 0.3, "a sunny summer noon evaporates measurably")
	assert.Greater(t, noon, night, "daytime demand exceeds nighttime")
}

func TestCalculateRETDaily(t *testing.T) {
	start := time.Date(2005, time.June, 15, 0, 0, 0, 0, time.UTC)
	mk := func(vals ...float64) domain.Timeseries {
		return domain.Timeseries{StepMinutes: DailyStep, Start: start, Values: vals}
	}

	c, err := NewCalculator(DailyStep)
	require.NoError(t, err)
	c.AddLocation(testLat, testLon, testElev)
	require.NoError(t, c.AddSeries(SeriesTMin, mk(17, 18)))
	require.NoError(t, c.AddSeries(SeriesTMax, mk(33, 34)))
	require.NoError(t, c.AddSeries(SeriesDewpoint, mk(14, 15)))
	require.NoError(t, c.AddSeries(SeriesWind, mk(3, 4)))
	require.NoError(t, c.AddSeries(SeriesSolar, mk(280, 300)))

	ret, err := c.CalculateRET(start, start.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, ret.Values, 2)

	for i, v := range ret.Values {
		assert.Greater(t, v, 2.0, "day %d", i)
		assert.Less(t, v, 15.0, "day %d", i)
	}
}

func TestCalculateRETRequiresLocation(t *testing.T) {
	start := time.Date(2005, time.June, 15, 0, 0, 0, 0, time.UTC)
	c, err := NewCalculator(HourlyStep)
	require.NoError(t, err)

	_, err = c.CalculateRET(start, start.AddDate(0, 0, 1))
	assert.ErrorContains(t, err, "location not set")
}

func TestCalculateRETSeriesCoverage(t *testing.T) {
	start := time.Date(2005, time.June, 15, 0, 0, 0, 0, time.UTC)

	c, err := NewCalculator(HourlyStep)
	require.NoError(t, err)
	c.AddLocation(testLat, testLon, testElev)
	for name, ts := range hourlyInputs(start, 12) {
		require.NoError(t, c.AddSeries(name, ts))
	}

	_, err = c.CalculateRET(start, start.AddDate(0, 0, 1))
	assert.ErrorContains(t, err, "does not cover")

	c2, err := NewCalculator(HourlyStep)
	require.NoError(t, err)
	c2.AddLocation(testLat, testLon, testElev)
	_, err = c2.CalculateRET(start, start.AddDate(0, 0, 1))
	assert.ErrorContains(t, err, "missing")
}

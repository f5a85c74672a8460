// Package et estimates short-crop reference evapotranspiration with the ASCE
// standardized Penman-Monteith equation, at daily, hourly, or fractional
// hourly steps.
//
// Reference: ASCE-EWRI, The ASCE Standardized Reference Evapotranspiration
// Equation, January 2005 Final Report.
package et

import (
	"fmt"
	"math"
	"time"

	"github.com/okmeso/okmeso/internal/domain"
)

// Series names the calculator accepts. Daily calculations use minimum and
// maximum temperature; shorter steps use the interval average.
const (
	SeriesTemperature = "temperature"
	SeriesTMin        = "tmin"
	SeriesTMax        = "tmax"
	SeriesDewpoint    = "dewpoint"
	SeriesWind        = "wind"
	SeriesSolar       = "solar"
)

// Defaults for a short (grass) crop reference surface, per ASCE Table 1 and
// equations 65-66.
const (
	albedo = 0.23

	cnHourly = 37
	cnDaily  = 900

	cdDay   = 0.24
	cdNight = 0.96
	cdDaily = 0.34

	soilFluxDay   = 0.1
	soilFluxNight = 0.5

	sigmaDaily  = 4.903e-9  // Stefan-Boltzmann, MJ/m2/K4/day
	sigmaHourly = 2.042e-10 // MJ/m2/K4/hour
	solarConst  = 4.92      // MJ/m2/hour
)

// Calculator accumulates the climate series and location needed for one
// reference evapotranspiration run.
type Calculator struct {
	stepMinutes int

	lat, lon  float64
	elevation float64
	// windHeight is the anemometer height in meters; readings above 2 m are
	// corrected down with the ASCE log-profile factor.
	windHeight float64

	located bool
	series  map[string]domain.Timeseries
}

// NewCalculator creates a calculator for the given step in minutes. Valid
// steps are daily, hourly, or a factor of 60 that is a multiple of 5.
func NewCalculator(stepMinutes int) (*Calculator, error) {
	if err := ValidateStep(stepMinutes); err != nil {
		return nil, err
	}
	return &Calculator{
		stepMinutes: stepMinutes,
		windHeight:  2,
		series:      make(map[string]domain.Timeseries),
	}, nil
}

// ValidateStep reports whether a step in minutes is usable for reference
// evapotranspiration.
func ValidateStep(stepMinutes int) error {
	if stepMinutes == DailyStep {
		return nil
	}
	if stepMinutes >= 5 && stepMinutes <= 60 && stepMinutes%5 == 0 && 60%stepMinutes == 0 {
		return nil
	}
	return fmt.Errorf("invalid step %d: use %d (daily), %d (hourly), or a factor of 60 that is a multiple of 5",
		stepMinutes, DailyStep, HourlyStep)
}

// Step aliases shared with the resampling tools.
const (
	HourlyStep = 60
	DailyStep  = 1440
)

// AddLocation sets the station coordinates (degrees) and elevation (meters).
func (c *Calculator) AddLocation(lat, lon, elevation float64) {
	c.lat = lat
	c.lon = lon
	c.elevation = elevation
	c.located = true
}

// SetWindHeight records the height in meters the wind series was measured at.
// The default of 2 needs no correction.
func (c *Calculator) SetWindHeight(meters float64) {
	c.windHeight = meters
}

// AddSeries registers a climate series. Its step must match the calculator's.
func (c *Calculator) AddSeries(name string, ts domain.Timeseries) error {
	if ts.StepMinutes != c.stepMinutes {
		return fmt.Errorf("series %s has step %d, calculator uses %d", name, ts.StepMinutes, c.stepMinutes)
	}
	for _, valid := range c.requiredSeries() {
		if name == valid {
			c.series[name] = ts
			return nil
		}
	}
	return fmt.Errorf("unknown series %q for a %d minute step: valid names are %v",
		name, c.stepMinutes, c.requiredSeries())
}

func (c *Calculator) requiredSeries() []string {
	if c.stepMinutes == DailyStep {
		return []string{SeriesTMin, SeriesTMax, SeriesDewpoint, SeriesWind, SeriesSolar}
	}
	return []string{SeriesTemperature, SeriesDewpoint, SeriesWind, SeriesSolar}
}

// CalculateRET computes the reference evapotranspiration series in mm per
// interval for [start, end), where end is an exclusive date.
func (c *Calculator) CalculateRET(start, end time.Time) (*domain.Timeseries, error) {
	if !c.located {
		return nil, fmt.Errorf("location not set; call AddLocation first")
	}

	n := int(end.Sub(start).Minutes()) / c.stepMinutes
	if n <= 0 {
		return nil, fmt.Errorf("empty period %s to %s", start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	data := make(map[string][]float64, len(c.requiredSeries()))
	for _, name := range c.requiredSeries() {
		ts, ok := c.series[name]
		if !ok {
			return nil, fmt.Errorf("series %s missing; add it with AddSeries", name)
		}
		i := int(start.Sub(ts.Start).Minutes()) / c.stepMinutes
		j := i + n
		if i < 0 || j > len(ts.Values) {
			return nil, fmt.Errorf("series %s does not cover %s to %s",
				name, start.Format("2006-01-02"), end.Format("2006-01-02"))
		}
		data[name] = ts.Values[i:j]
	}

	times := make([]time.Time, n)
	for i := range times {
		times[i] = start.Add(time.Duration(i*c.stepMinutes) * time.Minute)
	}

	if c.stepMinutes == DailyStep {
		return &domain.Timeseries{StepMinutes: c.stepMinutes, Start: start, Values: c.dailyRET(times, data)}, nil
	}
	return &domain.Timeseries{StepMinutes: c.stepMinutes, Start: start, Values: c.hourlyRET(times, data)}, nil
}

func (c *Calculator) dailyRET(times []time.Time, data map[string][]float64) []float64 {
	n := len(times)
	out := make([]float64, n)

	pressure := c.atmospherePressure()
	gamma := 0.000665 * pressure

	for i := 0; i < n; i++ {
		tmin, tmax := data[SeriesTMin][i], data[SeriesTMax][i]
		temp := (tmin + tmax) / 2
		// A dewpoint above the daily minimum is physically impossible.
		dew := math.Min(tmin, data[SeriesDewpoint][i])
		solar := data[SeriesSolar][i] * 86400 / 1e6 // W/m2 to MJ/m2/day
		u2 := c.windCorrection(data[SeriesWind][i])

		ps := vaporPressure(temp)
		pv := vaporPressure(dew)
		slope := 4098 * vaporPressure(temp) / math.Pow(temp+237.3, 2)

		tK := temp + 273.15
		rnet := c.dailyRadiation(times[i], solar, tmin+273.15, tmax+273.15, pv)

		out[i] = (0.408*slope*rnet + gamma*cnDaily/tK*u2*(ps-pv)) /
			(slope + gamma*(1+cdDaily*u2))
	}
	return out
}

func (c *Calculator) hourlyRET(times []time.Time, data map[string][]float64) []float64 {
	n := len(times)
	out := make([]float64, n)

	pressure := c.atmospherePressure()
	gamma := 0.000665 * pressure
	stepHours := float64(c.stepMinutes) / 60

	for i := 0; i < n; i++ {
		temp := data[SeriesTemperature][i]
		dew := math.Min(temp, data[SeriesDewpoint][i])
		solar := data[SeriesSolar][i] * 3600 / 1e6 // W/m2 to MJ/m2/hour
		u2 := c.windCorrection(data[SeriesWind][i])

		ps := vaporPressure(temp)
		pv := vaporPressure(dew)
		slope := 4098 * vaporPressure(temp) / math.Pow(temp+237.3, 2)

		tK := temp + 273.15
		rnet := c.hourlyRadiation(times[i], solar, tK, pv, stepHours)

		day := c.isDaytime(times[i])
		soil := rnet * soilFlux(day)
		cd := denominatorCoefficient(day)

		out[i] = (0.408*slope*(rnet-soil) + gamma*cnHourly/tK*u2*(ps-pv)) /
			(slope + gamma*(1+cd*u2)) * stepHours
	}
	return out
}

func soilFlux(day bool) float64 {
	if day {
		return soilFluxDay
	}
	return soilFluxNight
}

func denominatorCoefficient(day bool) float64 {
	if day {
		return cdDay
	}
	return cdNight
}

// atmospherePressure estimates pressure (kPa) from elevation (m) with a
// simplified ideal gas law.
func (c *Calculator) atmospherePressure() float64 {
	return 101.3 * math.Pow((293.0-0.0065*c.elevation)/293.0, 5.26)
}

// vaporPressure estimates saturation vapor pressure (kPa) at temp (C).
func vaporPressure(temp float64) float64 {
	return 0.6108 * math.Exp(17.27*temp/(temp+237.3))
}

// windCorrection estimates wind speed at 2 m from a measurement at the
// configured height. At 2 m the factor is effectively 1.
func (c *Calculator) windCorrection(u float64) float64 {
	return u * 4.87 / math.Log(67.8*c.windHeight-5.42)
}

func rad(deg float64) float64 {
	return math.Pi / 180 * deg
}

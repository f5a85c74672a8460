package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/okmeso/okmeso/internal/domain"
	"github.com/okmeso/okmeso/internal/et"
)

// ErrorHandling selects how sentinel codes are treated before a reference
// evapotranspiration run.
type ErrorHandling string

const (
	// HandleNaN leaves gaps, which propagate into the output series.
	HandleNaN ErrorHandling = "nan"
	// HandleInterpolate fills gaps by linear interpolation.
	HandleInterpolate ErrorHandling = "interpolate"
	// HandleNeighbor fills gaps from the nearest reporting station.
	HandleNeighbor ErrorHandling = "neighbor"
)

// windHeights maps the usable wind speed columns to their measurement height
// in meters.
var windHeights = map[string]float64{
	"WS2M": 2,
	"WSPD": 10,
	"WMAX": 10,
}

// CalculateRET computes short-crop reference evapotranspiration in mm per
// interval for [start, end], both inclusive UTC dates. The input table is not
// modified; gaps are handled per the chosen strategy before the calculation.
// WS2M needs no height correction and is the recommended wind column.
func (tk *Toolkit) CalculateRET(ctx context.Context, t *domain.Table, start, end time.Time,
	stepMinutes int, windColumn string, handling ErrorHandling) (*domain.Timeseries, error) {

	if err := et.ValidateStep(stepMinutes); err != nil {
		return nil, err
	}
	height, ok := windHeights[windColumn]
	if !ok {
		return nil, fmt.Errorf("invalid wind column %q: use WS2M, WSPD, or WMAX", windColumn)
	}

	work := t.Clone()
	if err := tk.prepareForRET(ctx, work, windColumn, handling); err != nil {
		return nil, err
	}
	if err := tk.CalculateDewpoint(work); err != nil {
		return nil, err
	}

	set, err := tk.dl.Stations(ctx)
	if err != nil {
		return nil, err
	}
	station, err := set.Get(work.STID)
	if err != nil {
		return nil, err
	}

	calc, err := et.NewCalculator(stepMinutes)
	if err != nil {
		return nil, err
	}
	calc.AddLocation(station.Lat, station.Lon, station.Elevation)
	calc.SetWindHeight(height)

	if err := tk.addSeries(calc, work, stepMinutes, windColumn); err != nil {
		return nil, err
	}
	return calc.CalculateRET(dayStart(start), dayStart(end).AddDate(0, 0, 1))
}

func (tk *Toolkit) prepareForRET(ctx context.Context, t *domain.Table, windColumn string, handling ErrorHandling) error {
	inputs := []string{"TAIR", "RELH", windColumn, "SRAD"}
	switch handling {
	case HandleNaN:
		_, err := tk.ReplaceErrors(t, 0, "")
		return err
	case HandleInterpolate:
		for _, col := range inputs {
			if _, err := tk.InterpolateMissing(t, nil, col); err != nil {
				return err
			}
		}
		return nil
	case HandleNeighbor:
		for _, col := range inputs {
			if _, err := tk.FillNeighborData(ctx, t, nil, col); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("invalid error handling %q: use %q, %q, or %q",
			handling, HandleNaN, HandleInterpolate, HandleNeighbor)
	}
}

func (tk *Toolkit) addSeries(calc *et.Calculator, t *domain.Table, step int, windColumn string) error {
	type input struct {
		name   string
		column string
		agg    Aggregation
	}
	var inputs []input
	if step == et.DailyStep {
		// daily runs use the temperature extremes instead of the mean
		inputs = []input{
			{et.SeriesTMin, "TAIR", AggMin},
			{et.SeriesTMax, "TAIR", AggMax},
			{et.SeriesDewpoint, "TDEW", AggDefault},
			{et.SeriesWind, windColumn, AggDefault},
			{et.SeriesSolar, "SRAD", AggDefault},
		}
	} else {
		inputs = []input{
			{et.SeriesTemperature, "TAIR", AggDefault},
			{et.SeriesDewpoint, "TDEW", AggDefault},
			{et.SeriesWind, windColumn, AggDefault},
			{et.SeriesSolar, "SRAD", AggDefault},
		}
	}
	for _, in := range inputs {
		series, err := tk.Timeseries(t, in.column, step, in.agg)
		if err != nil {
			return err
		}
		if err := calc.AddSeries(in.name, *series); err != nil {
			return err
		}
	}
	return nil
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

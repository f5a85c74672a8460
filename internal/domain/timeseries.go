package domain

import "time"

// Timeseries is an evenly spaced single-variable series in the
// (step, start, values) shape hydrologic models consume. Missing intervals
// are NaN.
type Timeseries struct {
	StepMinutes int
	Start       time.Time
	Values      []float64
}

// End returns the timestamp one step past the last value.
func (ts Timeseries) End() time.Time {
	return ts.Start.Add(time.Duration(ts.StepMinutes*len(ts.Values)) * time.Minute)
}

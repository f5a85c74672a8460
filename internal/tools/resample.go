package tools

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/okmeso/okmeso/internal/domain"
)

// Named timesteps accepted wherever a step size in minutes is.
const (
	HourlyStep = 60
	DailyStep  = 1440
)

// nativeStep is the Mesonet observation interval in minutes.
const nativeStep = 5

// Aggregation selects how observations are combined into a resampled
// interval.
type Aggregation int

const (
	// AggDefault averages, except for accumulator columns which are summed.
	AggDefault Aggregation = iota
	AggMin
	AggMax
)

// ParseStep converts a step argument to minutes, accepting "hourly", "daily",
// or a number.
func ParseStep(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hourly":
		return HourlyStep, nil
	case "daily":
		return DailyStep, nil
	}
	step, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid step %q: use minutes, %q, or %q", s, "hourly", "daily")
	}
	return step, nil
}

// normalizeStep clamps the step to the native interval and rounds it up to a
// multiple of it, logging when the request had to be adjusted.
func (tk *Toolkit) normalizeStep(step int) int {
	if step < nativeStep {
		tk.logger.Warn("step size below the observation interval, using the interval",
			"requested", step, "used", nativeStep)
		return nativeStep
	}
	if step%nativeStep != 0 {
		rounded := step + nativeStep - step%nativeStep
		tk.logger.Warn("step size rounded up to a multiple of the observation interval",
			"requested", step, "used", rounded)
		return rounded
	}
	return step
}

// Timeseries extracts one variable as an evenly spaced series, replacing
// sentinel codes with NaN and resampling to the requested step in minutes.
func (tk *Toolkit) Timeseries(t *domain.Table, column string, step int, agg Aggregation) (*domain.Timeseries, error) {
	column = strings.ToUpper(column)
	vals, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	if t.Len() == 0 {
		return nil, fmt.Errorf("table for station %s is empty", t.STID)
	}
	step = tk.normalizeStep(step)

	clean := make([]float64, len(vals))
	for i, v := range vals {
		if domain.IsSentinel(v) {
			clean[i] = math.NaN()
		} else {
			clean[i] = v
		}
	}

	if step == nativeStep {
		return &domain.Timeseries{StepMinutes: step, Start: t.Times[0], Values: clean}, nil
	}
	values, start := resample(t.Times, clean, step, agg, contains(summedColumns, column))
	return &domain.Timeseries{StepMinutes: step, Start: start, Values: values}, nil
}

// MeanTimeseries extracts one variable averaged across every station in the
// set, then resamples. Sentinel codes are dropped before averaging so they do
// not skew the means.
func (tk *Toolkit) MeanTimeseries(set domain.TableSet, column string, step int, agg Aggregation) (*domain.Timeseries, error) {
	column = strings.ToUpper(column)

	samples := make(map[time.Time][]float64)
	for _, id := range sortedIDs(set) {
		t := set[id]
		vals, err := t.Column(column)
		if err != nil {
			return nil, fmt.Errorf("station %s: %w", id, err)
		}
		for i, v := range vals {
			if math.IsNaN(v) || domain.IsSentinel(v) {
				continue
			}
			samples[t.Times[i]] = append(samples[t.Times[i]], v)
		}
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("no usable %s observations in the set", column)
	}

	times := make([]time.Time, 0, len(samples))
	for ts := range samples {
		times = append(times, ts)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	mean := domain.NewTable("MEAN")
	mean.Times = times
	means := make([]float64, len(times))
	for i, ts := range times {
		means[i] = stat.Mean(samples[ts], nil)
	}
	if err := mean.SetColumn(column, means); err != nil {
		return nil, err
	}
	return tk.Timeseries(mean, column, step, agg)
}

// resample buckets the series into step-sized intervals anchored at midnight
// of the first observation's day, returning the bucketed values and the first
// bucket's timestamp. Accumulator columns sum, empty sum buckets are zero,
// and empty mean/min/max buckets are NaN.
func resample(times []time.Time, vals []float64, step int, agg Aggregation, sum bool) ([]float64, time.Time) {
	first := times[0]
	origin := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, time.UTC)

	bucket := func(ts time.Time) int {
		return int(ts.Sub(origin).Minutes()) / step
	}
	firstBucket := bucket(times[0])
	lastBucket := bucket(times[len(times)-1])

	grouped := make([][]float64, lastBucket-firstBucket+1)
	for i, ts := range times {
		if math.IsNaN(vals[i]) {
			continue
		}
		b := bucket(ts) - firstBucket
		grouped[b] = append(grouped[b], vals[i])
	}

	out := make([]float64, len(grouped))
	for i, group := range grouped {
		out[i] = aggregate(group, agg, sum)
	}
	return out, origin.Add(time.Duration(firstBucket*step) * time.Minute)
}

func aggregate(group []float64, agg Aggregation, sum bool) float64 {
	if len(group) == 0 {
		if sum && agg == AggDefault {
			return 0
		}
		return math.NaN()
	}
	switch agg {
	case AggMin:
		min := group[0]
		for _, v := range group[1:] {
			if v < min {
				min = v
			}
		}
		return min
	case AggMax:
		max := group[0]
		for _, v := range group[1:] {
			if v > max {
				max = v
			}
		}
		return max
	default:
		if sum {
			total := 0.0
			for _, v := range group {
				total += v
			}
			return total
		}
		return stat.Mean(group, nil)
	}
}

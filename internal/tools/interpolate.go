package tools

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"

	"github.com/okmeso/okmeso/internal/domain"
)

// InterpolateMissing replaces sentinel codes with values linearly interpolated
// between the surrounding known observations, in place, and returns the number
// of cells filled. When codes are given, only those sentinels are filled and
// the rest keep their numeric codes. Rows before the first known value stay
// NaN; rows after the last known value repeat it.
func (tk *Toolkit) InterpolateMissing(t *domain.Table, codes []domain.ErrorCode, column string) (int, error) {
	keep, err := codesToKeep(codes)
	if err != nil {
		return 0, err
	}
	cols, err := expandColumns(t, column)
	if err != nil {
		return 0, err
	}

	var backup *domain.Table
	if len(keep) > 0 {
		backup = t.Clone()
	}
	if _, err := tk.ReplaceErrors(t, 0, column); err != nil {
		return 0, err
	}

	filled := 0
	for _, name := range cols {
		vals, err := t.Column(name)
		if err != nil {
			return filled, err
		}
		candidates := interpolateColumn(vals)
		if backup != nil {
			restoreCodes(vals, mustColumn(backup, name), keep)
		}
		for _, i := range candidates {
			if !math.IsNaN(vals[i]) && !domain.IsSentinel(vals[i]) {
				filled++
			}
		}
	}
	tk.metrics.ValuesImputed.WithLabelValues("interpolate").Add(float64(filled))
	return filled, nil
}

// InterpolateMissingSet applies InterpolateMissing to every table in the set.
func (tk *Toolkit) InterpolateMissingSet(set domain.TableSet, codes []domain.ErrorCode, column string) (int, error) {
	filled := 0
	for _, id := range sortedIDs(set) {
		n, err := tk.InterpolateMissing(set[id], codes, column)
		filled += n
		if err != nil {
			return filled, fmt.Errorf("station %s: %w", id, err)
		}
	}
	return filled, nil
}

// codesToKeep inverts a target-code list into the sentinels that must survive
// the fill. An empty list targets everything, keeping nothing.
func codesToKeep(codes []domain.ErrorCode) ([]domain.ErrorCode, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	anyValid := false
	for _, c := range codes {
		if domain.ValidErrorCode(c) {
			anyValid = true
			break
		}
	}
	if !anyValid {
		return nil, fmt.Errorf("no valid error codes in %v; valid codes are %v", codes, domain.ErrorCodes)
	}
	var keep []domain.ErrorCode
	for _, c := range domain.ErrorCodes {
		targeted := false
		for _, given := range codes {
			if given == c {
				targeted = true
				break
			}
		}
		if !targeted {
			keep = append(keep, c)
		}
	}
	return keep, nil
}

// interpolateColumn fills NaN runs in place and returns the indexes it
// touched. Interior gaps are linear between the bracketing observations;
// trailing gaps hold the last observation.
func interpolateColumn(vals []float64) []int {
	var xs, ys []float64
	for i, v := range vals {
		if !math.IsNaN(v) {
			xs = append(xs, float64(i))
			ys = append(ys, v)
		}
	}
	if len(xs) == 0 {
		return nil
	}

	var touched []int
	first := int(xs[0])
	last := int(xs[len(xs)-1])

	if len(xs) == 1 {
		for i := first + 1; i < len(vals); i++ {
			vals[i] = ys[0]
			touched = append(touched, i)
		}
		return touched
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil
	}
	for i, v := range vals {
		if !math.IsNaN(v) || i < first {
			continue
		}
		if i > last {
			vals[i] = ys[len(ys)-1]
		} else {
			vals[i] = pl.Predict(float64(i))
		}
		touched = append(touched, i)
	}
	return touched
}

func restoreCodes(vals, original []float64, keep []domain.ErrorCode) {
	for i, v := range original {
		if matchesCode(v, keep) {
			vals[i] = v
		}
	}
}

func mustColumn(t *domain.Table, name string) []float64 {
	vals, err := t.Column(name)
	if err != nil {
		panic(err)
	}
	return vals
}

package tools

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/okmeso/okmeso/internal/domain"
)

// FillNeighborData replaces sentinel codes with the observation from the
// geographically closest station that recorded one, in place, and returns the
// number of cells filled. The off-interval code is never filled because no
// station samples on intervals the network skips, and locally calculated
// columns are never filled because no station measures them. Cells no
// neighbor can supply stay NaN.
func (tk *Toolkit) FillNeighborData(ctx context.Context, t *domain.Table, codes []domain.ErrorCode, column string) (int, error) {
	targets, err := neighborTargetCodes(codes)
	if err != nil {
		return 0, err
	}
	for _, code := range targets {
		if _, err := tk.ReplaceErrors(t, code, column); err != nil {
			return 0, err
		}
	}

	cols, err := fillableColumns(t, column)
	if err != nil {
		return 0, err
	}

	set, err := tk.dl.Stations(ctx)
	if err != nil {
		return 0, err
	}
	neighbors, err := set.Nearest(t.STID)
	if err != nil {
		return 0, err
	}

	filled := 0
	for _, nb := range neighbors {
		days := missingDays(t, cols)
		if len(days) == 0 {
			break
		}
		for _, day := range days {
			nt, err := tk.dl.Station(ctx, nb.Station.ID, day, day)
			if err != nil {
				if ctx.Err() != nil {
					return filled, err
				}
				tk.logger.Debug("neighbor has no usable data for day",
					"stid", t.STID, "neighbor", nb.Station.ID,
					"day", day.Format("2006-01-02"), "error", err)
				continue
			}
			tk.metrics.NeighborDownloads.Inc()
			if _, err := tk.ReplaceErrors(nt, 0, ""); err != nil {
				return filled, err
			}
			filled += copyMissing(t, nt, cols)
		}
	}

	tk.metrics.ValuesImputed.WithLabelValues("neighbor").Add(float64(filled))
	if remaining := missingCount(t, cols); remaining > 0 {
		tk.logger.Warn("no neighbor could supply some observations",
			"stid", t.STID, "remaining", remaining)
	}
	return filled, nil
}

// FillNeighborDataSet applies FillNeighborData to every table in the set.
func (tk *Toolkit) FillNeighborDataSet(ctx context.Context, set domain.TableSet, codes []domain.ErrorCode, column string) (int, error) {
	filled := 0
	for _, id := range sortedIDs(set) {
		n, err := tk.FillNeighborData(ctx, set[id], codes, column)
		filled += n
		if err != nil {
			return filled, fmt.Errorf("station %s: %w", id, err)
		}
	}
	return filled, nil
}

// neighborTargetCodes resolves which sentinels a neighbor fill should target,
// always excluding the off-interval code.
func neighborTargetCodes(codes []domain.ErrorCode) ([]domain.ErrorCode, error) {
	if len(codes) == 0 {
		codes = domain.ErrorCodes
	}
	var targets []domain.ErrorCode
	for _, c := range codes {
		if !domain.ValidErrorCode(c) {
			return nil, fmt.Errorf("%d is not a valid error code; valid codes are %v", c, domain.ErrorCodes)
		}
		if c == domain.CodeOffInterval {
			continue
		}
		targets = append(targets, c)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("only the off-interval code %d was given; neighbor fills cannot target it", domain.CodeOffInterval)
	}
	return targets, nil
}

// fillableColumns resolves the columns a neighbor fill may touch, dropping
// the locally calculated ones when no single column was named.
func fillableColumns(t *domain.Table, column string) ([]string, error) {
	if column != "" {
		if !t.HasColumn(column) {
			return nil, fmt.Errorf("no column named %q in the table for station %s", column, t.STID)
		}
		return []string{column}, nil
	}
	var cols []string
	for _, name := range t.Columns() {
		if contains(calculatedColumns, name) {
			continue
		}
		cols = append(cols, name)
	}
	return cols, nil
}

// missingDays returns the distinct UTC days with at least one NaN in the
// given columns, in chronological order.
func missingDays(t *domain.Table, cols []string) []time.Time {
	var days []time.Time
	seen := make(map[time.Time]bool)
	for _, name := range cols {
		vals, err := t.Column(name)
		if err != nil {
			continue
		}
		for i, v := range vals {
			if !math.IsNaN(v) {
				continue
			}
			ts := t.Times[i]
			day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
			if !seen[day] {
				seen[day] = true
				days = append(days, day)
			}
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

func missingCount(t *domain.Table, cols []string) int {
	count := 0
	for _, name := range cols {
		count += t.MissingCount(name)
	}
	return count
}

// copyMissing fills NaN cells in the target columns with the neighbor's value
// at the same timestamp, returning the number of cells copied.
func copyMissing(t, neighbor *domain.Table, cols []string) int {
	copied := 0
	for _, name := range cols {
		vals, err := t.Column(name)
		if err != nil {
			continue
		}
		nvals, err := neighbor.Column(name)
		if err != nil {
			continue
		}
		for i, v := range vals {
			if !math.IsNaN(v) {
				continue
			}
			j := neighbor.RowIndex(t.Times[i])
			if j < 0 || math.IsNaN(nvals[j]) {
				continue
			}
			vals[i] = nvals[j]
			copied++
		}
	}
	return copied
}

package tools

import (
	"fmt"
	"math"

	"github.com/okmeso/okmeso/internal/domain"
)

// ReplaceErrors replaces sentinel codes with NaN in place and returns the
// number of cells changed. A zero code replaces every sentinel; otherwise the
// code must be one of the reserved values. An empty column name applies the
// replacement to every column.
func (tk *Toolkit) ReplaceErrors(t *domain.Table, code domain.ErrorCode, column string) (int, error) {
	codes, err := expandCodes(code)
	if err != nil {
		return 0, err
	}
	cols, err := expandColumns(t, column)
	if err != nil {
		return 0, err
	}

	replaced := 0
	for _, name := range cols {
		vals, err := t.Column(name)
		if err != nil {
			return replaced, err
		}
		for i, v := range vals {
			if matchesCode(v, codes) {
				vals[i] = math.NaN()
				replaced++
			}
		}
	}
	tk.metrics.SentinelsReplaced.Add(float64(replaced))
	return replaced, nil
}

// ReplaceErrorsSet applies ReplaceErrors to every table in the set.
func (tk *Toolkit) ReplaceErrorsSet(set domain.TableSet, code domain.ErrorCode, column string) (int, error) {
	replaced := 0
	for _, id := range sortedIDs(set) {
		n, err := tk.ReplaceErrors(set[id], code, column)
		replaced += n
		if err != nil {
			return replaced, fmt.Errorf("station %s: %w", id, err)
		}
	}
	return replaced, nil
}

func expandCodes(code domain.ErrorCode) ([]domain.ErrorCode, error) {
	if code == 0 {
		return domain.ErrorCodes, nil
	}
	if !domain.ValidErrorCode(code) {
		return nil, fmt.Errorf("%d is not a valid error code; use 0 for all codes or one of %v", code, domain.ErrorCodes)
	}
	return []domain.ErrorCode{code}, nil
}

func expandColumns(t *domain.Table, column string) ([]string, error) {
	if column == "" {
		return t.Columns(), nil
	}
	if !t.HasColumn(column) {
		return nil, fmt.Errorf("no column named %q in the table for station %s", column, t.STID)
	}
	return []string{column}, nil
}

func matchesCode(v float64, codes []domain.ErrorCode) bool {
	for _, c := range codes {
		if v == float64(c) {
			return true
		}
	}
	return false
}

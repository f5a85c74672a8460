package domain

import (
	"math"
	"time"
)

// Observation is one station's readings at a single timestamp, the unit the
// export sinks publish. Missing cells are omitted from Values so the record
// stays JSON-safe.
type Observation struct {
	STID        string             `json:"stid"`
	Time        time.Time          `json:"time"`
	Values      map[string]float64 `json:"values"`
	ProcessedAt time.Time          `json:"processed_at"`
}

// Observations flattens the table into per-timestamp records, stamped with
// the current clock. Rows with no usable cells are dropped.
func (t *Table) Observations() []Observation {
	processed := Now().UTC()
	out := make([]Observation, 0, t.Len())
	for i, ts := range t.Times {
		values := make(map[string]float64)
		for _, name := range t.columns {
			v := t.values[name][i]
			if math.IsNaN(v) {
				continue
			}
			values[name] = v
		}
		if len(values) == 0 {
			continue
		}
		out = append(out, Observation{
			STID:        t.STID,
			Time:        ts,
			Values:      values,
			ProcessedAt: processed,
		})
	}
	return out
}

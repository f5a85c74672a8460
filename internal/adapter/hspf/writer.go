// Package hspf writes resampled series in the (step, start, values) layout
// hydrologic models consume.
package hspf

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/okmeso/okmeso/internal/domain"
	"github.com/okmeso/okmeso/internal/observability"
)

// ErrFileExists is returned when an export would overwrite a file without
// force set.
var ErrFileExists = errors.New("file already exists; pass force to overwrite")

// Writer serializes timeseries exports.
type Writer struct {
	metrics *observability.Metrics
}

// NewWriter creates a series writer.
func NewWriter(metrics *observability.Metrics) *Writer {
	return &Writer{metrics: metrics}
}

// series is the on-disk form. Missing intervals serialize as null, since NaN
// has no JSON representation.
type series struct {
	StepMinutes int        `json:"step_minutes"`
	Start       time.Time  `json:"start"`
	Values      []*float64 `json:"values"`
}

// Save writes the series to dir under the given filename and returns the path
// written.
func (w *Writer) Save(ts *domain.Timeseries, dir, filename string, force bool) (string, error) {
	if len(ts.Values) == 0 {
		return "", errors.New("series is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	path := filepath.Join(dir, filename)
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%s: %w", path, ErrFileExists)
	}

	out := series{
		StepMinutes: ts.StepMinutes,
		Start:       ts.Start.UTC(),
		Values:      make([]*float64, len(ts.Values)),
	}
	for i := range ts.Values {
		if math.IsNaN(ts.Values[i]) {
			continue
		}
		out.Values[i] = &ts.Values[i]
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize series: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write series: %w", err)
	}
	w.metrics.ExportedRows.WithLabelValues("hspf").Add(float64(len(ts.Values)))
	return path, nil
}

// Load reads a series written by Save back into memory. Null values become
// NaN.
func Load(path string) (*domain.Timeseries, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read series: %w", err)
	}
	var in series
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parse series %s: %w", path, err)
	}
	ts := &domain.Timeseries{
		StepMinutes: in.StepMinutes,
		Start:       in.Start,
		Values:      make([]float64, len(in.Values)),
	}
	for i, v := range in.Values {
		if v == nil {
			ts.Values[i] = math.NaN()
		} else {
			ts.Values[i] = *v
		}
	}
	return ts, nil
}

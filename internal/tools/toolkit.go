// Package tools cleans and reshapes the observation tables the downloader
// produces: sentinel-code replacement, gap filling by interpolation or from
// neighboring stations, missing-data summaries, resampling, dewpoint and
// reference evapotranspiration calculation, and CSV export.
package tools

import (
	"log/slog"
	"sort"

	"github.com/okmeso/okmeso/internal/domain"
	"github.com/okmeso/okmeso/internal/downloader"
	"github.com/okmeso/okmeso/internal/observability"
)

// calculatedColumns are derived locally rather than measured, so no other
// station can supply values for them during a neighbor fill.
var calculatedColumns = []string{"TDEW", "EVAP"}

// summedColumns accumulate over an interval, so resampling sums them instead
// of averaging.
var summedColumns = []string{"RAIN", "EVAP"}

// Toolkit bundles the cleaning operations with the downloader they need for
// neighbor fills and station locations.
type Toolkit struct {
	dl      *downloader.Downloader
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Toolkit.
func New(dl *downloader.Downloader, logger *slog.Logger, metrics *observability.Metrics) *Toolkit {
	return &Toolkit{
		dl:      dl,
		logger:  logger,
		metrics: metrics,
	}
}

func contains(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}

// sortedIDs returns the set's station IDs in a stable order so batch
// operations visit tables deterministically.
func sortedIDs(set domain.TableSet) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

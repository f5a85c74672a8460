package tools

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/okmeso/okmeso/internal/domain"
	"github.com/okmeso/okmeso/internal/downloader"
	"github.com/okmeso/okmeso/internal/observability"
)

// fakeSource serves canned station-day tables, keyed by date stamp plus STID.
type fakeSource struct {
	stations []domain.Station
	days     map[string]*domain.Table
	dayCalls []string
}

func (f *fakeSource) Stations(context.Context) (*domain.StationSet, error) {
	return domain.NewStationSet(f.stations), nil
}

func (f *fakeSource) Day(_ context.Context, stid string, day time.Time) (*domain.Table, error) {
	key := day.Format("20060102") + stid
	f.dayCalls = append(f.dayCalls, key)
	t, ok := f.days[key]
	if !ok {
		return nil, fmt.Errorf("unexpected day request %s", key)
	}
	return t.Clone(), nil
}

func testStations() []domain.Station {
	commissioned := time.Date(1994, time.January, 1, 0, 0, 0, 0, time.UTC)
	decommissioned := time.Date(2099, time.December, 31, 0, 0, 0, 0, time.UTC)
	return []domain.Station{
		{ID: "ACME", Lat: 34.81, Lon: -98.02, Elevation: 397, Commissioned: commissioned, Decommissioned: decommissioned},
		{ID: "WASH", Lat: 34.98, Lon: -97.52, Elevation: 345, Commissioned: commissioned, Decommissioned: decommissioned},
		{ID: "NRMN", Lat: 35.24, Lon: -97.46, Elevation: 357, Commissioned: commissioned, Decommissioned: decommissioned},
	}
}

func newTestToolkit(src downloader.Source) *Toolkit {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	return New(downloader.New(src, logger, metrics), logger, metrics)
}

// fiveMinuteTable builds a table with rows every five minutes from midnight of
// the given day.
func fiveMinuteTable(t *testing.T, stid string, day time.Time, n int) *domain.Table {
	t.Helper()
	tbl := domain.NewTable(stid)
	for i := 0; i < n; i++ {
		tbl.Times = append(tbl.Times, day.Add(time.Duration(i*5)*time.Minute))
	}
	return tbl
}

// Package downloader turns per-day Mesonet files into merged station time
// series. It resolves which stations to fetch (by ID, bounding box, or
// shapefile extent), walks the requested date range a day at a time, and
// converts the cumulative RAIN accumulator into per-interval amounts before
// merging.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	shp "github.com/jonas-p/go-shp"

	"github.com/okmeso/okmeso/internal/adapter/mesonet"
	"github.com/okmeso/okmeso/internal/domain"
	"github.com/okmeso/okmeso/internal/observability"
)

// Source provides station metadata and single station-day tables. The
// production implementation is the mesonet adapter with its layered cache.
type Source interface {
	Stations(ctx context.Context) (*domain.StationSet, error)
	Day(ctx context.Context, stid string, day time.Time) (*domain.Table, error)
}

// ErrStationInactive marks a station that was not collecting data for part
// of the requested range.
var ErrStationInactive = errors.New("station not active for the requested range")

// Downloader assembles merged observation tables for one or more stations.
type Downloader struct {
	source   Source
	stations *domain.StationSet
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// New creates a Downloader over the given source.
func New(source Source, logger *slog.Logger, metrics *observability.Metrics) *Downloader {
	return &Downloader{
		source:  source,
		logger:  logger,
		metrics: metrics,
	}
}

// Stations returns the station metadata set, loading it on first use.
func (d *Downloader) Stations(ctx context.Context) (*domain.StationSet, error) {
	if d.stations != nil {
		return d.stations, nil
	}
	set, err := d.source.Stations(ctx)
	if err != nil {
		return nil, err
	}
	d.stations = set
	return set, nil
}

// Station downloads and merges the observation table for one station over
// [start, end], both inclusive UTC dates. Days the station did not report are
// skipped; the call fails only when no day in the range produced data.
func (d *Downloader) Station(ctx context.Context, stid string, start, end time.Time) (*domain.Table, error) {
	set, err := d.Stations(ctx)
	if err != nil {
		return nil, err
	}
	station, err := set.Get(stid)
	if err != nil {
		return nil, err
	}

	start, end, err = d.clampRange(start, end)
	if err != nil {
		return nil, err
	}
	if !station.Active(start, end) {
		return nil, fmt.Errorf("%w: %s was collecting %s to %s",
			ErrStationInactive, station.ID,
			station.Commissioned.Format("2006-01-02"), station.Decommissioned.Format("2006-01-02"))
	}

	began := time.Now()
	table := domain.NewTable(station.ID)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		dayTable, err := d.source.Day(ctx, station.ID, day)
		if errors.Is(err, mesonet.ErrNoData) {
			d.logger.Debug("no observations for day", "stid", station.ID, "day", day.Format("2006-01-02"))
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			d.logger.Warn("skipping day after download failure",
				"stid", station.ID, "day", day.Format("2006-01-02"), "error", err)
			continue
		}
		differentiateRain(dayTable)
		table.AppendRows(dayTable)
	}
	d.metrics.StationDuration.Observe(time.Since(began).Seconds())

	if table.Len() == 0 {
		return nil, fmt.Errorf("no data for station %s between %s and %s",
			station.ID, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return table, nil
}

// BoundingBox downloads every station inside the box, optionally padded about
// its center, over [start, end]. Stations that were not active for the whole
// range are skipped with a warning rather than failing the batch.
func (d *Downloader) BoundingBox(ctx context.Context, box domain.BoundingBox, padding float64, start, end time.Time) (domain.TableSet, error) {
	set, err := d.Stations(ctx)
	if err != nil {
		return nil, err
	}
	inside := set.WithinBox(box.Pad(padding))
	if len(inside) == 0 {
		return nil, fmt.Errorf("no stations inside box [%g %g %g %g]",
			box.MinLon, box.MinLat, box.MaxLon, box.MaxLat)
	}

	tables := make(domain.TableSet, len(inside))
	for _, station := range inside {
		table, err := d.Station(ctx, station.ID, start, end)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			d.logger.Warn("skipping station", "stid", station.ID, "error", err)
			continue
		}
		tables[station.ID] = table
	}
	if len(tables) == 0 {
		return nil, errors.New("no station in the box produced data for the range")
	}
	return tables, nil
}

// Shapefile downloads every station inside a shapefile's bounding box. The
// shapefile must use geographic coordinates; projected extents are rejected
// rather than silently matching nothing.
func (d *Downloader) Shapefile(ctx context.Context, path string, padding float64, start, end time.Time) (domain.TableSet, error) {
	box, err := shapefileBox(path)
	if err != nil {
		return nil, err
	}
	return d.BoundingBox(ctx, box, padding, start, end)
}

func shapefileBox(path string) (domain.BoundingBox, error) {
	r, err := shp.Open(path)
	if err != nil {
		return domain.BoundingBox{}, fmt.Errorf("open shapefile: %w", err)
	}
	defer r.Close()

	b := r.BBox()
	box := domain.BoundingBox{MinLon: b.MinX, MinLat: b.MinY, MaxLon: b.MaxX, MaxLat: b.MaxY}
	if !box.Geographic() {
		return domain.BoundingBox{}, fmt.Errorf(
			"shapefile %s extent [%g %g %g %g] is not in geographic degrees; reproject to EPSG:4269 first",
			path, b.MinX, b.MinY, b.MaxX, b.MaxY)
	}
	return box, nil
}

// clampRange normalizes the request to whole UTC days and refuses ranges in
// the future, trimming an end date past today back to today.
func (d *Downloader) clampRange(start, end time.Time) (time.Time, time.Time, error) {
	start = truncateDay(start)
	end = truncateDay(end)
	if end.Before(start) {
		return start, end, fmt.Errorf("end date %s is before start date %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	today := truncateDay(domain.Now().UTC())
	if start.After(today) {
		return start, end, fmt.Errorf("start date %s is in the future", start.Format("2006-01-02"))
	}
	if end.After(today) {
		d.logger.Warn("end date is in the future, trimming to today",
			"end", end.Format("2006-01-02"), "today", today.Format("2006-01-02"))
		end = today
	}
	return start, end, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// differentiateRain converts the day's cumulative RAIN accumulator to
// per-interval amounts in place. Sentinel codes pass through unchanged, and
// an accumulator that is already lower at the second reading than the first
// means the midnight rollover landed inside the first interval, so the first
// reading becomes zero before differencing.
func differentiateRain(t *domain.Table) {
	rain, err := t.Column("RAIN")
	if err != nil || len(rain) < 2 {
		return
	}

	work := make([]float64, len(rain))
	for i, v := range rain {
		if domain.IsSentinel(v) {
			work[i] = math.NaN()
		} else {
			work[i] = v
		}
	}

	if !math.IsNaN(work[0]) && !math.IsNaN(work[1]) && work[0] > work[1] {
		work[0] = 0
	}

	for i := len(work) - 1; i >= 1; i-- {
		work[i] -= work[i-1]
	}

	for i, v := range work {
		if domain.IsSentinel(rain[i]) {
			continue
		}
		rain[i] = v
	}
}

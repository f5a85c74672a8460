package mesonet

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/okmeso/okmeso/internal/domain"
	"github.com/okmeso/okmeso/internal/observability"
)

const (
	geoInfoFile = "geoinfo.csv"
	mtsDirName  = "mts_files"
)

// Source serves station metadata and day tables, reading the local data
// directory before touching the network. Raw MTS files are kept on disk the
// way the Mesonet serves them; parsed tables are additionally held in an
// in-memory LRU because neighbor filling re-reads the same days often.
type Source struct {
	client  *Client
	dataDir string
	mtsDir  string
	parsed  *lruCache
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// NewSource creates a Source rooted at dataDir, creating the directory
// layout if needed.
func NewSource(client *Client, dataDir string, cacheSize int, logger *slog.Logger, metrics *observability.Metrics) (*Source, error) {
	mtsDir := filepath.Join(dataDir, mtsDirName)
	if err := os.MkdirAll(mtsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Source{
		client:  client,
		dataDir: dataDir,
		mtsDir:  mtsDir,
		parsed:  newLRUCache(cacheSize),
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Stations loads the geoinfo metadata, downloading it when no usable local
// copy exists.
func (s *Source) Stations(ctx context.Context) (*domain.StationSet, error) {
	path := filepath.Join(s.dataDir, geoInfoFile)

	if body, err := os.ReadFile(path); err == nil {
		stations, perr := ParseGeoInfo(bytes.NewReader(body))
		if perr == nil {
			return s.finishStations(stations), nil
		}
		s.logger.Warn("local geoinfo unreadable, downloading fresh copy", "path", path, "error", perr)
	} else {
		s.logger.Info("geoinfo not found locally, downloading", "path", path)
	}

	body, err := s.client.FetchGeoInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("station metadata unavailable locally or from the Mesonet: %w", err)
	}
	stations, err := ParseGeoInfo(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse downloaded geoinfo: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		s.logger.Warn("could not save geoinfo locally", "path", path, "error", err)
	}
	return s.finishStations(stations), nil
}

func (s *Source) finishStations(stations []domain.Station) *domain.StationSet {
	s.metrics.MetadataLoaded.Set(1)
	s.ready.Store(true)
	return domain.NewStationSet(stations)
}

// CheckReadiness returns nil once station metadata has been loaded.
func (s *Source) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return fmt.Errorf("station metadata not loaded yet")
	}
	return nil
}

// Day returns the parsed table for one station-day. Lookup order is the
// in-memory LRU, then the on-disk MTS file, then the Mesonet itself. The
// returned table is a private copy; callers may mutate it.
func (s *Source) Day(ctx context.Context, stid string, day time.Time) (*domain.Table, error) {
	key := dayKey(stid, day)

	if t, ok := s.parsed.get(key); ok {
		s.metrics.CacheLookups.WithLabelValues("memory", "hit").Inc()
		return t.Clone(), nil
	}
	s.metrics.CacheLookups.WithLabelValues("memory", "miss").Inc()

	path := filepath.Join(s.mtsDir, key+".mts")
	if body, err := os.ReadFile(path); err == nil {
		s.metrics.CacheLookups.WithLabelValues("disk", "hit").Inc()
		return s.parseAndCache(key, stid, day, body)
	}
	s.metrics.CacheLookups.WithLabelValues("disk", "miss").Inc()

	body, err := s.client.FetchDay(ctx, stid, day)
	if err != nil {
		return nil, err
	}
	// Empty bodies are saved too: they record that the station has no data
	// for this day, so later runs skip the network.
	if werr := os.WriteFile(path, body, 0o644); werr != nil {
		s.logger.Warn("could not save mts file", "path", path, "error", werr)
	}
	return s.parseAndCache(key, stid, day, body)
}

func (s *Source) parseAndCache(key, stid string, day time.Time, body []byte) (*domain.Table, error) {
	table, err := ParseMTS(bytes.NewReader(body), stid, day)
	if err != nil {
		return nil, err
	}
	s.metrics.RowsParsed.Add(float64(table.Len()))
	s.parsed.put(key, table)
	return table.Clone(), nil
}

func dayKey(stid string, day time.Time) string {
	return day.Format("20060102") + lowerSTID(stid)
}

func lowerSTID(stid string) string {
	return strings.ToLower(strings.TrimSpace(stid))
}

// Command mesoetl downloads Oklahoma Mesonet observations for a station,
// bounding box, or shapefile extent, optionally cleans them, and exports the
// result to CSV, a resampled model time series, and any configured sinks
// (Kafka, InfluxDB, SQLite).
//
// Connection settings come from the environment (see internal/config); the
// job itself is described with flags:
//
//	mesoetl -station ACME -start 2005-03-01 -end 2005-03-31 \
//	  -clean interpolate -dewpoint -csv-dir ./out
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	archiveadapter "github.com/okmeso/okmeso/internal/adapter/archive"
	hspfadapter "github.com/okmeso/okmeso/internal/adapter/hspf"
	httpadapter "github.com/okmeso/okmeso/internal/adapter/http"
	influxadapter "github.com/okmeso/okmeso/internal/adapter/influx"
	kafkaadapter "github.com/okmeso/okmeso/internal/adapter/kafka"
	"github.com/okmeso/okmeso/internal/adapter/mesonet"
	"github.com/okmeso/okmeso/internal/config"
	"github.com/okmeso/okmeso/internal/domain"
	"github.com/okmeso/okmeso/internal/downloader"
	"github.com/okmeso/okmeso/internal/observability"
	"github.com/okmeso/okmeso/internal/tools"
)

type jobFlags struct {
	station   string
	bbox      string
	shapefile string
	padding   float64
	start     string
	end       string

	clean    string
	dewpoint bool
	summary  bool

	csvDir   string
	filename string
	force    bool

	seriesColumn string
	seriesStep   string
	seriesAgg    string
	seriesDir    string
}

func main() {
	var f jobFlags
	flag.StringVar(&f.station, "station", "", "station ID to download (e.g. ACME)")
	flag.StringVar(&f.bbox, "bbox", "", "bounding box as minlon,minlat,maxlon,maxlat")
	flag.StringVar(&f.shapefile, "shapefile", "", "shapefile whose extent selects stations")
	flag.Float64Var(&f.padding, "padding", 0, "grow the box about its center by this factor")
	flag.StringVar(&f.start, "start", "", "first date, YYYY-MM-DD (required)")
	flag.StringVar(&f.end, "end", "", "last date inclusive, YYYY-MM-DD (required)")
	flag.StringVar(&f.clean, "clean", "none", "gap handling: none, nan, interpolate, or neighbor")
	flag.BoolVar(&f.dewpoint, "dewpoint", false, "derive the TDEW column before export")
	flag.BoolVar(&f.summary, "summary", false, "print a missing-data summary per station")
	flag.StringVar(&f.csvDir, "csv-dir", "", "directory to write CSV exports to")
	flag.StringVar(&f.filename, "filename", "", "CSV filename (default: generated from station and range)")
	flag.BoolVar(&f.force, "force", false, "overwrite existing export files")
	flag.StringVar(&f.seriesColumn, "series", "", "column to export as a resampled model time series")
	flag.StringVar(&f.seriesStep, "series-step", "hourly", "series step: minutes, hourly, or daily")
	flag.StringVar(&f.seriesAgg, "series-agg", "default", "series aggregation: default, min, or max")
	flag.StringVar(&f.seriesDir, "series-dir", "", "directory to write the series export to")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	if err := run(cfg, logger, metrics, f); err != nil {
		logger.Error("job failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, f jobFlags) error {
	start, end, err := parseRange(f.start, f.end)
	if err != nil {
		return err
	}

	client := mesonet.NewClient(cfg.BaseURL, cfg.DownloadTimeout, cfg.DownloadAttempts, logger, metrics)
	source, err := mesonet.NewSource(client, cfg.DataDir, cfg.ParseCacheSize, logger, metrics)
	if err != nil {
		return err
	}
	dl := downloader.New(source, logger, metrics)
	toolkit := tools.New(dl, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, source, source, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	set, err := download(ctx, dl, f, start, end)
	if err != nil {
		return err
	}

	if err := clean(ctx, toolkit, set, f); err != nil {
		return err
	}

	return export(ctx, cfg, logger, metrics, toolkit, set, f)
}

func download(ctx context.Context, dl *downloader.Downloader, f jobFlags, start, end time.Time) (domain.TableSet, error) {
	switch {
	case f.station != "":
		table, err := dl.Station(ctx, f.station, start, end)
		if err != nil {
			return nil, err
		}
		return domain.TableSet{table.STID: table}, nil
	case f.bbox != "":
		box, err := parseBBox(f.bbox)
		if err != nil {
			return nil, err
		}
		return dl.BoundingBox(ctx, box, f.padding, start, end)
	case f.shapefile != "":
		return dl.Shapefile(ctx, f.shapefile, f.padding, start, end)
	default:
		return nil, errors.New("select stations with -station, -bbox, or -shapefile")
	}
}

func clean(ctx context.Context, toolkit *tools.Toolkit, set domain.TableSet, f jobFlags) error {
	if f.summary {
		for _, t := range set {
			fmt.Print(toolkit.SummarizeMissing(t))
		}
	}

	switch f.clean {
	case "none":
	case "nan":
		if _, err := toolkit.ReplaceErrorsSet(set, 0, ""); err != nil {
			return err
		}
	case "interpolate":
		if _, err := toolkit.InterpolateMissingSet(set, nil, ""); err != nil {
			return err
		}
	case "neighbor":
		if _, err := toolkit.FillNeighborDataSet(ctx, set, nil, ""); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid -clean %q: use none, nan, interpolate, or neighbor", f.clean)
	}

	if f.dewpoint {
		return toolkit.CalculateDewpointSet(set)
	}
	return nil
}

func export(ctx context.Context, cfg *config.Config, logger *slog.Logger,
	metrics *observability.Metrics, toolkit *tools.Toolkit, set domain.TableSet, f jobFlags) error {

	if f.csvDir != "" {
		var path string
		var err error
		if len(set) == 1 {
			for _, t := range set {
				path, err = toolkit.SaveCSV(t, f.csvDir, f.filename, f.force)
			}
		} else {
			path, err = toolkit.SaveCSVSet(set, f.csvDir, f.filename, f.force)
		}
		if err != nil {
			return err
		}
		logger.Info("csv written", "path", path)
	}

	if f.seriesColumn != "" {
		if f.seriesDir == "" {
			return errors.New("-series requires -series-dir")
		}
		path, err := exportSeries(metrics, toolkit, set, f)
		if err != nil {
			return err
		}
		logger.Info("series written", "path", path, "column", f.seriesColumn)
	}

	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg, logger, metrics)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		if err := writer.PublishSet(ctx, set); err != nil {
			return err
		}
		logger.Info("observations published", "topic", cfg.KafkaSinkTopic)
	}

	if cfg.InfluxEnabled() {
		exporter := influxadapter.NewExporter(cfg, logger, metrics)
		defer exporter.Close()
		if err := exporter.ExportSet(ctx, set); err != nil {
			return err
		}
		logger.Info("observations exported", "bucket", cfg.InfluxBucket)
	}

	if cfg.ArchiveEnabled() {
		store, err := archiveadapter.Open(cfg.SQLitePath, metrics)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("archive close error", "error", err)
			}
		}()
		if err := store.SaveSet(ctx, set); err != nil {
			return err
		}
		logger.Info("observations archived", "path", cfg.SQLitePath)
	}

	return nil
}

func exportSeries(metrics *observability.Metrics, toolkit *tools.Toolkit,
	set domain.TableSet, f jobFlags) (string, error) {

	step, err := tools.ParseStep(f.seriesStep)
	if err != nil {
		return "", err
	}

	var agg tools.Aggregation
	switch f.seriesAgg {
	case "default":
		agg = tools.AggDefault
	case "min":
		agg = tools.AggMin
	case "max":
		agg = tools.AggMax
	default:
		return "", fmt.Errorf("invalid -series-agg %q: use default, min, or max", f.seriesAgg)
	}

	var ts *domain.Timeseries
	name := f.seriesColumn
	if len(set) == 1 {
		for _, t := range set {
			ts, err = toolkit.Timeseries(t, f.seriesColumn, step, agg)
			name = t.STID + "_" + name
		}
	} else {
		ts, err = toolkit.MeanTimeseries(set, f.seriesColumn, step, agg)
		name = "mean_" + name
	}
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("%s_%dm.json", name, ts.StepMinutes)
	return hspfadapter.NewWriter(metrics).Save(ts, f.seriesDir, filename, f.force)
}

func parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	if startStr == "" || endStr == "" {
		return time.Time{}, time.Time{}, errors.New("-start and -end are required")
	}
	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid -start: %w", err)
	}
	end, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid -end: %w", err)
	}
	return start, end, nil
}

func parseBBox(s string) (domain.BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return domain.BoundingBox{}, fmt.Errorf("invalid -bbox %q: need minlon,minlat,maxlon,maxlat", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return domain.BoundingBox{}, fmt.Errorf("invalid -bbox value %q: %w", p, err)
		}
		vals[i] = v
	}
	return domain.BoundingBox{MinLon: vals[0], MinLat: vals[1], MaxLon: vals[2], MaxLat: vals[3]}, nil
}

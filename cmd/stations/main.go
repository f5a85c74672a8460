// Command stations lists Oklahoma Mesonet station metadata, optionally
// ordered by distance from a station or a point.
//
//	stations                     list every station
//	stations -nearest ACME -n 5  five closest stations to ACME
//	stations -lat 35.2 -lon -97.4
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/okmeso/okmeso/internal/adapter/mesonet"
	"github.com/okmeso/okmeso/internal/config"
	"github.com/okmeso/okmeso/internal/domain"
	"github.com/okmeso/okmeso/internal/observability"
)

func main() {
	nearest := flag.String("nearest", "", "order by distance from this station ID")
	lat := flag.Float64("lat", 0, "order by distance from this latitude (with -lon)")
	lon := flag.Float64("lon", 0, "order by distance from this longitude (with -lat)")
	n := flag.Int("n", 0, "limit output to the n closest stations")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := mesonet.NewClient(cfg.BaseURL, cfg.DownloadTimeout, cfg.DownloadAttempts, logger, metrics)
	source, err := mesonet.NewSource(client, cfg.DataDir, cfg.ParseCacheSize, logger, metrics)
	if err != nil {
		logger.Error("source init failed", "error", err)
		os.Exit(1)
	}

	set, err := source.Stations(ctx)
	if err != nil {
		logger.Error("station metadata unavailable", "error", err)
		os.Exit(1)
	}

	if err := print(set, *nearest, *lat, *lon, *n); err != nil {
		logger.Error("listing failed", "error", err)
		os.Exit(1)
	}
}

func print(set *domain.StationSet, nearest string, lat, lon float64, n int) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	switch {
	case nearest != "":
		neighbors, err := set.Nearest(nearest)
		if err != nil {
			return err
		}
		printNeighbors(w, neighbors, n)
	case lat != 0 || lon != 0:
		printNeighbors(w, set.NearestToPoint(lat, lon), n)
	default:
		fmt.Fprintln(w, "STID\tNAME\tCOUNTY\tLAT\tLON\tELEV")
		for _, s := range set.All() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.4f\t%.4f\t%.0f\n",
				s.ID, s.Name, s.County, s.Lat, s.Lon, s.Elevation)
		}
	}
	return nil
}

func printNeighbors(w *tabwriter.Writer, neighbors []domain.Neighbor, n int) {
	if n > 0 && n < len(neighbors) {
		neighbors = neighbors[:n]
	}
	fmt.Fprintln(w, "STID\tNAME\tCOUNTY\tKM")
	for _, nb := range neighbors {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\n",
			nb.Station.ID, nb.Station.Name, nb.Station.County, nb.DistanceKm)
	}
}

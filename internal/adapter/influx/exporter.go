// Package influx writes cleaned observations to an InfluxDB bucket so they
// can be charted alongside other telemetry.
package influx

import (
	"context"
	"fmt"
	"log/slog"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/okmeso/okmeso/internal/config"
	"github.com/okmeso/okmeso/internal/domain"
	"github.com/okmeso/okmeso/internal/observability"
)

// measurement is the InfluxDB measurement cleaned observations land in.
const measurement = "mesonet"

// Exporter writes observation points with the blocking write API.
type Exporter struct {
	client  influxdb2.Client
	write   api.WriteAPIBlocking
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewExporter connects to the configured InfluxDB instance.
func NewExporter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Exporter {
	client := influxdb2.NewClient(cfg.InfluxURL, cfg.InfluxToken)
	return &Exporter{
		client:  client,
		write:   client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
		logger:  logger,
		metrics: metrics,
	}
}

// ExportTable writes one point per observation row, tagged by station, with a
// field per variable.
func (e *Exporter) ExportTable(ctx context.Context, t *domain.Table) error {
	observations := t.Observations()
	if len(observations) == 0 {
		e.logger.Warn("table has no exportable rows", "stid", t.STID)
		return nil
	}

	for _, obs := range observations {
		fields := make(map[string]interface{}, len(obs.Values))
		for name, v := range obs.Values {
			fields[name] = v
		}
		point := influxdb2.NewPoint(
			measurement,
			map[string]string{"stid": obs.STID},
			fields,
			obs.Time,
		)
		if err := e.write.WritePoint(ctx, point); err != nil {
			return fmt.Errorf("write point for %s at %s: %w", obs.STID, obs.Time, err)
		}
	}
	e.metrics.ExportedRows.WithLabelValues("influx").Add(float64(len(observations)))
	return nil
}

// ExportSet writes every table in the set.
func (e *Exporter) ExportSet(ctx context.Context, set domain.TableSet) error {
	for stid, t := range set {
		if err := e.ExportTable(ctx, t); err != nil {
			return fmt.Errorf("station %s: %w", stid, err)
		}
	}
	return nil
}

func (e *Exporter) Close() {
	e.client.Close()
}

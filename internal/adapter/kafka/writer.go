// Package kafka publishes cleaned observations to a Kafka topic for
// downstream consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/okmeso/okmeso/internal/config"
	"github.com/okmeso/okmeso/internal/domain"
	"github.com/okmeso/okmeso/internal/observability"
)

// Writer produces observation messages to the sink topic.
type Writer struct {
	writer  *kafkago.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger, metrics: metrics}
}

// PublishTable serializes every observation row in the table and publishes
// them in a single WriteMessages call.
func (w *Writer) PublishTable(ctx context.Context, t *domain.Table) error {
	observations := t.Observations()
	if len(observations) == 0 {
		w.logger.Warn("table has no publishable rows", "stid", t.STID)
		return nil
	}

	msgs := make([]kafkago.Message, len(observations))
	for i := range observations {
		msg, err := serializeToMessage(observations[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish observations for %s: %w", t.STID, err)
	}
	w.metrics.ExportedRows.WithLabelValues("kafka").Add(float64(len(msgs)))
	return nil
}

// PublishSet publishes every table in the set.
func (w *Writer) PublishSet(ctx context.Context, set domain.TableSet) error {
	for stid, t := range set {
		if err := w.PublishTable(ctx, t); err != nil {
			return fmt.Errorf("station %s: %w", stid, err)
		}
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an observation into a Kafka message keyed by
// station so one station's readings stay in order on a partition.
func serializeToMessage(obs domain.Observation) (kafkago.Message, error) {
	data, err := json.Marshal(obs)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize observation: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(obs.STID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "stid", Value: []byte(obs.STID)},
			{Key: "observed_at", Value: []byte(obs.Time.Format(time.RFC3339))},
		},
	}, nil
}

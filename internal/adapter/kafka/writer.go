// Package kafka streams the gridded anomaly dataset to the topic consumed by
// the downstream land+ocean merge step.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/gridtemp/internal/config"
	"github.com/couchcryptid/gridtemp/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// writeBatchSize bounds how many cell messages go into one WriteMessages
// call; the full 2° lattice is 16,200 cells.
const writeBatchSize = 500

// Writer publishes one message per grid cell. It implements
// pipeline.DatasetSink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// CellMessage is the wire form of one grid cell's combined series. Missing
// months are null entries, never zeros.
type CellMessage struct {
	Lat          float64    `json:"lat"`
	Lon          float64    `json:"lon"`
	StartYear    int        `json:"start_year"`
	EndYear      int        `json:"end_year"`
	StationCount int        `json:"station_count"`
	Anomalies    []*float64 `json:"anomalies"`
}

// WriteDataset publishes the full lattice, batching cells per produce call.
func (w *Writer) WriteDataset(ctx context.Context, ds *domain.Dataset) error {
	msgs := make([]kafkago.Message, 0, writeBatchSize)
	for i := range ds.Cells {
		msg, err := cellToMessage(ds, i)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)

		if len(msgs) == writeBatchSize {
			if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
				return fmt.Errorf("produce cell batch: %w", err)
			}
			msgs = msgs[:0]
		}
	}
	if len(msgs) > 0 {
		if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
			return fmt.Errorf("produce cell batch: %w", err)
		}
	}

	w.logger.Info("dataset published", "topic", w.writer.Topic, "cells", len(ds.Cells))
	return nil
}

// Close flushes and closes the underlying producer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

// CellKey is the message key for a cell, stable across runs so compacted
// topics retain only the latest series per cell.
func CellKey(cell domain.GridCell) string {
	return fmt.Sprintf("%g:%g", cell.Lat, cell.Lon)
}

func cellToMessage(ds *domain.Dataset, i int) (kafkago.Message, error) {
	cell := ds.Cells[i]
	m := CellMessage{
		Lat:          cell.Lat,
		Lon:          cell.Lon,
		StartYear:    ds.StartYear,
		EndYear:      ds.EndYear,
		StationCount: ds.StationCounts[i],
		Anomalies:    make([]*float64, len(ds.Series[i])),
	}
	for j, v := range ds.Series[i] {
		if v.Valid {
			temp := v.Temp
			m.Anomalies[j] = &temp
		}
	}

	value, err := json.Marshal(m)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize cell %s: %w", CellKey(cell), err)
	}
	return kafkago.Message{Key: []byte(CellKey(cell)), Value: value}, nil
}

package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/gridtemp/internal/domain"
)

// DatasetWriter persists the gridded anomaly dataset as CSV, one row per
// (cell, month), with missing anomalies encoded as an empty field. It
// implements pipeline.DatasetSink.
type DatasetWriter struct {
	path   string
	logger *slog.Logger
}

// NewDatasetWriter creates a writer. Parent directories are created on write.
func NewDatasetWriter(path string, logger *slog.Logger) *DatasetWriter {
	return &DatasetWriter{path: path, logger: logger}
}

// WriteDataset writes the full lattice × month table. Every cell appears for
// every month, so downstream consumers can tell "no data" from "not
// processed".
func (w *DatasetWriter) WriteDataset(ctx context.Context, ds *domain.Dataset) error {
	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("create dataset file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"latitude", "longitude", "year", "month", "anomaly", "stations"}); err != nil {
		return fmt.Errorf("write dataset header: %w", err)
	}

	months := ds.Months()
	row := make([]string, 6)
	for i, cell := range ds.Cells {
		if err := ctx.Err(); err != nil {
			return err
		}
		row[0] = strconv.FormatFloat(cell.Lat, 'f', -1, 64)
		row[1] = strconv.FormatFloat(cell.Lon, 'f', -1, 64)
		row[5] = strconv.Itoa(ds.StationCounts[i])
		for m := 0; m < months; m++ {
			year, month := domain.YearMonthAt(m, ds.StartYear)
			row[2] = strconv.Itoa(year)
			row[3] = strconv.Itoa(month)
			if v := ds.Series[i][m]; v.Valid {
				row[4] = strconv.FormatFloat(v.Temp, 'f', 4, 64)
			} else {
				row[4] = ""
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write dataset row: %w", err)
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush dataset: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync dataset: %w", err)
	}

	w.logger.Info("dataset written",
		"path", w.path, "cells", len(ds.Cells), "months", months)
	return nil
}

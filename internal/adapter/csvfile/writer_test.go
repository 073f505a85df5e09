package csvfile_test

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/gridtemp/internal/adapter/csvfile"
	"github.com/couchcryptid/gridtemp/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDataset() *domain.Dataset {
	first := domain.NewSeries(12)
	first[0] = domain.Value{Temp: 0.51234, Valid: true}
	first[11] = domain.Value{Temp: -1.25, Valid: true}

	return &domain.Dataset{
		StartYear:     2000,
		EndYear:       2000,
		Cells:         []domain.GridCell{{Lat: 89, Lon: -179}, {Lat: 89, Lon: -177}},
		Series:        []domain.Series{first, domain.NewSeries(12)},
		StationCounts: []int{3, 0},
		ProducedAt:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestDatasetWriter_WriteDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "gridded.csv")
	w := csvfile.NewDatasetWriter(path, discardLogger())

	require.NoError(t, w.WriteDataset(context.Background(), testDataset()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	// Header plus one row per (cell, month).
	require.Len(t, rows, 1+2*12)
	assert.Equal(t, []string{"latitude", "longitude", "year", "month", "anomaly", "stations"}, rows[0])

	jan := rows[1]
	assert.Equal(t, []string{"89", "-179", "2000", "1", "0.5123", "3"}, jan)

	feb := rows[2]
	assert.Empty(t, feb[4], "missing anomaly is an empty field")
	assert.Equal(t, "3", feb[5])

	dec := rows[12]
	assert.Equal(t, "12", dec[3])
	assert.Equal(t, "-1.2500", dec[4])

	// The empty cell still gets all of its months, with zero stations.
	emptyJan := rows[13]
	assert.Equal(t, "-177", emptyJan[1])
	assert.Empty(t, emptyJan[4])
	assert.Equal(t, "0", emptyJan[5])
}

func TestDatasetWriter_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := csvfile.NewDatasetWriter(filepath.Join(t.TempDir(), "out.csv"), discardLogger())
	err := w.WriteDataset(ctx, testDataset())
	require.ErrorIs(t, err, context.Canceled)
}

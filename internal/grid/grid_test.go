package grid_test

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/couchcryptid/gridtemp/internal/domain"
	"github.com/couchcryptid/gridtemp/internal/grid"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLattice_TwoDegree(t *testing.T) {
	cells := grid.Lattice(2)

	require.Len(t, cells, 16200)
	assert.Equal(t, domain.GridCell{Lat: 89, Lon: -179}, cells[0])
	assert.Equal(t, domain.GridCell{Lat: 89, Lon: 179}, cells[179])
	assert.Equal(t, domain.GridCell{Lat: -89, Lon: 179}, cells[16199])

	// Exhaustive, non-overlapping tiling: every center distinct, all inside
	// the globe with a half-cell margin.
	seen := make(map[domain.GridCell]bool, len(cells))
	for _, c := range cells {
		require.False(t, seen[c], "duplicate center %+v", c)
		seen[c] = true
		require.GreaterOrEqual(t, c.Lat, -89.0)
		require.LessOrEqual(t, c.Lat, 89.0)
		require.GreaterOrEqual(t, c.Lon, -179.0)
		require.LessOrEqual(t, c.Lon, 179.0)
	}
}

func TestLattice_FiveDegree(t *testing.T) {
	cells := grid.Lattice(5)
	require.Len(t, cells, 36*72)
	assert.Equal(t, domain.GridCell{Lat: 87.5, Lon: -177.5}, cells[0])
}

func TestBuildWeights_RadiusMembership(t *testing.T) {
	stations := []domain.Station{
		{ID: "NEAR", Lat: 0, Lon: 0},
		{ID: "ALSO", Lat: 0, Lon: 10}, // ~1113 km from the origin
		{ID: "FAR", Lat: 0, Lon: 40},
	}
	cells := []domain.GridCell{
		{Lat: 1, Lon: 5},
		{Lat: 1, Lon: 165}, // mid-Pacific, no station within reach
	}

	b := grid.NewBuilder(1200, domain.LinearWeight, 2, discardLogger())
	tables := b.BuildWeights(context.Background(), cells, stations)

	require.Len(t, tables, 2)

	near := tables[0]
	require.Contains(t, near, "NEAR")
	require.Contains(t, near, "ALSO")
	assert.NotContains(t, near, "FAR")
	for _, w := range near {
		assert.Greater(t, w, 0.0)
		assert.LessOrEqual(t, w, 1.0)
	}
	// The closer station carries the higher weight.
	dNear := domain.Distance(1, 5, 0, 0)
	dAlso := domain.Distance(1, 5, 0, 10)
	if dNear < dAlso {
		assert.Greater(t, near["NEAR"], near["ALSO"])
	} else {
		assert.Greater(t, near["ALSO"], near["NEAR"])
	}

	require.NotNil(t, tables[1], "empty cells get an empty table, not nil")
	assert.Empty(t, tables[1])
}

func TestBuildWeights_BoundaryIsOpen(t *testing.T) {
	// Place a cell whose distance to the station exceeds the radius by a
	// hair and one comfortably inside.
	stations := []domain.Station{{ID: "S", Lat: 0, Lon: 0}}
	cells := []domain.GridCell{
		{Lat: 0, Lon: 10.7}, // ~1190 km
		{Lat: 0, Lon: 10.9}, // ~1213 km
	}

	b := grid.NewBuilder(1200, domain.LinearWeight, 1, discardLogger())
	tables := b.BuildWeights(context.Background(), cells, stations)

	assert.Contains(t, tables[0], "S")
	assert.NotContains(t, tables[1], "S")
}

func TestBuildWeights_StationOrderIrrelevant(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	stations := make([]domain.Station, 40)
	for i := range stations {
		stations[i] = domain.Station{
			ID:  string(rune('A' + i%26)) + string(rune('a'+i/26)),
			Lat: rng.Float64()*40 - 20,
			Lon: rng.Float64()*40 - 20,
		}
	}
	cells := grid.Lattice(10)

	b := grid.NewBuilder(1200, domain.LinearWeight, 4, discardLogger())
	base := b.BuildWeights(context.Background(), cells, stations)

	shuffled := make([]domain.Station, len(stations))
	copy(shuffled, stations)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	again := b.BuildWeights(context.Background(), cells, shuffled)

	require.Len(t, again, len(base))
	for i := range base {
		if diff := cmp.Diff(base[i], again[i], cmpopts.EquateApprox(0, 1e-12)); diff != "" {
			t.Errorf("cell %d weight table mismatch (-base +shuffled):\n%s", i, diff)
		}
	}
}

func TestBuildWeights_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := grid.NewBuilder(1200, domain.LinearWeight, 2, discardLogger())
	tables := b.BuildWeights(ctx, grid.Lattice(30), nil)

	// The result slice keeps its shape even when the feed stops early.
	assert.Len(t, tables, 6*12)
}

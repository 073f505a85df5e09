// Package grid partitions the globe into a fixed latitude/longitude lattice
// and assigns every cell the set of stations that influence it, weighted by
// great-circle distance to the cell center.
package grid

import (
	"context"
	"log/slog"
	"math"
	"runtime"
	"sync"

	"github.com/couchcryptid/gridtemp/internal/domain"
)

// Lattice returns the centers of a non-overlapping, exhaustive cellSizeDeg
// tiling of the globe, ordered north to south, then west to east. For the
// default 2° cells that is 90×180 = 16,200 centers at odd degrees.
func Lattice(cellSizeDeg float64) []domain.GridCell {
	half := cellSizeDeg / 2
	rows := int(180 / cellSizeDeg)
	cols := int(360 / cellSizeDeg)

	cells := make([]domain.GridCell, 0, rows*cols)
	for r := 0; r < rows; r++ {
		lat := 90 - half - float64(r)*cellSizeDeg
		for c := 0; c < cols; c++ {
			lon := -180 + half + float64(c)*cellSizeDeg
			cells = append(cells, domain.GridCell{Lat: lat, Lon: lon})
		}
	}
	return cells
}

// Builder computes per-cell station weight tables.
type Builder struct {
	radiusKM float64
	weight   domain.WeightFunc
	workers  int
	logger   *slog.Logger
}

// NewBuilder creates a Builder. workers <= 0 means one worker per CPU.
func NewBuilder(radiusKM float64, weight domain.WeightFunc, workers int, logger *slog.Logger) *Builder {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Builder{
		radiusKM: radiusKM,
		weight:   weight,
		workers:  workers,
		logger:   logger,
	}
}

// BuildWeights returns one weight table per cell, index-aligned with cells.
// Stations strictly inside the search radius contribute with the configured
// falloff weight; stations at or beyond it are absent. Cells with no
// qualifying stations keep an empty table so downstream consumers can tell
// "no data" from "not processed".
//
// Cells are independent, so the work is fanned out across a bounded worker
// pool. Station coordinates are converted to radians once up front; each
// worker reuses a private distance buffer, and results land in their own
// slice slot, safe under any completion order.
func (b *Builder) BuildWeights(ctx context.Context, cells []domain.GridCell, stations []domain.Station) []domain.WeightTable {
	tables := make([]domain.WeightTable, len(cells))

	lats := make([]float64, len(stations))
	lons := make([]float64, len(stations))
	for i, st := range stations {
		lats[i] = st.Lat
		lons[i] = st.Lon
	}
	latRad, lonRad := domain.Radians(lats, lons)

	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < b.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dist := make([]float64, len(stations))
			for i := range indexes {
				tables[i] = b.cellTable(cells[i], stations, latRad, lonRad, dist)
			}
		}()
	}

feed:
	for i := range cells {
		select {
		case <-ctx.Done():
			break feed
		case indexes <- i:
		}
	}
	close(indexes)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		b.logger.Warn("weight build interrupted", "error", err)
	}
	return tables
}

func (b *Builder) cellTable(cell domain.GridCell, stations []domain.Station, latRad, lonRad, dist []float64) domain.WeightTable {
	domain.DistanceRow(radians(cell.Lat), radians(cell.Lon), latRad, lonRad, dist)

	table := make(domain.WeightTable)
	for j, d := range dist {
		if w := b.weight(d, b.radiusKM); w > 0 {
			table[stations[j].ID] = w
		}
	}
	return table
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

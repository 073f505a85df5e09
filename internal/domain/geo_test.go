package domain_test

import (
	"math"
	"testing"

	"github.com/couchcryptid/gridtemp/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance_Symmetric(t *testing.T) {
	d1 := domain.Distance(40.7, -74.0, 51.5, -0.1)
	d2 := domain.Distance(51.5, -0.1, 40.7, -74.0)
	assert.InDelta(t, d1, d2, 1e-9)
}

func TestDistance_ZeroForIdenticalPoints(t *testing.T) {
	assert.Zero(t, domain.Distance(35.0, -97.0, 35.0, -97.0))
}

func TestDistance_LongitudeWraparound(t *testing.T) {
	// ±180° is the same meridian.
	assert.InDelta(t, 0, domain.Distance(10, 180, 10, -180), 1e-6)
}

func TestDistance_Antipodal(t *testing.T) {
	halfCircumference := math.Pi * domain.EarthRadiusKM
	assert.InDelta(t, halfCircumference, domain.Distance(0, 0, 0, 180), 1)
	assert.InDelta(t, halfCircumference, domain.Distance(90, 0, -90, 0), 1)
}

func TestDistance_KnownSeparation(t *testing.T) {
	// 10° of longitude along the equator is one 36th of the circumference.
	want := 2 * math.Pi * domain.EarthRadiusKM / 36
	assert.InDelta(t, want, domain.Distance(0, 0, 0, 10), 1)
}

func TestDistanceRow_MatchesScalar(t *testing.T) {
	lats := []float64{0, 45, -30, 89.5}
	lons := []float64{0, 90, -120, 179}
	latRad, lonRad := domain.Radians(lats, lons)

	out := make([]float64, len(lats))
	domain.DistanceRow(latRad[0], lonRad[0], latRad, lonRad, out)

	for i := range lats {
		assert.InDelta(t, domain.Distance(lats[0], lons[0], lats[i], lons[i]), out[i], 1e-9)
	}
}

func TestDistanceMatrix_Shape(t *testing.T) {
	lats1 := []float64{0, 10, 20}
	lons1 := []float64{0, 10, 20}
	lats2 := []float64{-5, 5}
	lons2 := []float64{-5, 5}

	m := domain.DistanceMatrix(lats1, lons1, lats2, lons2)
	require.Len(t, m, 3)
	for _, row := range m {
		require.Len(t, row, 2)
	}
	assert.InDelta(t, domain.Distance(10, 10, 5, 5), m[1][1], 1e-9)
}

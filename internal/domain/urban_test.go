package domain_test

import (
	"testing"

	"github.com/couchcryptid/gridtemp/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOLSTrend_RecoversLine(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4}
	y := []float64{1, 1.5, 2, 2.5, 3}

	slope, intercept := domain.OLSTrend(x, y)

	assert.InDelta(t, 0.5, slope, 1e-9)
	assert.InDelta(t, 1.0, intercept, 1e-9)
}

func TestTheilSenTrend_IgnoresOutlier(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4, 5, 6}
	y := []float64{0, 1, 2, 3, 4, 5, 6}
	y[3] = 40 // single corrupt point

	slope, intercept := domain.TheilSenTrend(x, y)

	assert.InDelta(t, 1.0, slope, 1e-6)
	assert.InDelta(t, 0.0, intercept, 1e-6)
}

func TestTrendByName_Unknown(t *testing.T) {
	_, err := domain.TrendByName("loess")
	require.Error(t, err)
}

func urbanParams() domain.UrbanParams {
	return domain.UrbanParams{
		BrightnessThreshold: 10,
		RadiusKM:            100,
		MinRuralStations:    1,
		MinOverlapMonths:    12,
		Weight:              domain.LinearWeight,
		Trend:               domain.OLSTrend,
	}
}

// trendedStations builds one urban station with an injected linear bias and
// two flat rural neighbors well inside the reference radius.
func trendedStations(months int) []domain.Station {
	urban := domain.NewSeries(months)
	rural := domain.NewSeries(months)
	for i := 0; i < months; i++ {
		urban[i] = domain.Value{Temp: 0.01 * float64(i), Valid: true}
		rural[i] = domain.Value{Temp: 0, Valid: true}
	}
	return []domain.Station{
		{ID: "URB", Lat: 40, Lon: -100, Brightness: 60, Series: urban},
		{ID: "RUR1", Lat: 40.2, Lon: -100, Brightness: 2, Series: rural.Clone()},
		{ID: "RUR2", Lat: 39.8, Lon: -100.1, Brightness: 5, Series: rural.Clone()},
	}
}

func TestAdjustUrban_RemovesInjectedTrend(t *testing.T) {
	const months = 120
	stations := trendedStations(months)

	out, adjustments := domain.AdjustUrban(stations, urbanParams(), discardLogger())

	require.Len(t, adjustments, 1)
	adj := adjustments[0]
	assert.Equal(t, "URB", adj.StationID)
	assert.True(t, adj.Adjusted)
	assert.Equal(t, 2, adj.RuralRefs)
	assert.InDelta(t, 0.01, adj.Slope, 1e-9)

	require.Len(t, out, 3)
	assert.True(t, out[0].UrbanAdjusted)
	for i := range out[0].Series {
		require.True(t, out[0].Series[i].Valid)
		assert.InDelta(t, 0.0, out[0].Series[i].Temp, 1e-6)
	}

	// Rural neighbors are untouched, as is the input slice.
	assert.Equal(t, stations[1].Series, out[1].Series)
	assert.False(t, stations[0].UrbanAdjusted)
	assert.InDelta(t, 0.01*119, stations[0].Series[119].Temp, 1e-9)
}

func TestAdjustUrban_PassThroughWithoutRuralReferences(t *testing.T) {
	const months = 60
	urban := domain.NewSeries(months)
	for i := range urban {
		urban[i] = domain.Value{Temp: 1, Valid: true}
	}
	stations := []domain.Station{
		{ID: "URB", Lat: 0, Lon: 0, Brightness: 50, Series: urban},
		{ID: "FAR", Lat: 45, Lon: 90, Brightness: 1, Series: urban.Clone()},
	}

	out, adjustments := domain.AdjustUrban(stations, urbanParams(), discardLogger())

	require.Len(t, adjustments, 1)
	assert.False(t, adjustments[0].Adjusted)
	assert.Zero(t, adjustments[0].RuralRefs)
	assert.Equal(t, "insufficient rural references", adjustments[0].Reason)

	// Pass-through keeps the record in play.
	assert.False(t, out[0].UrbanAdjusted)
	assert.Equal(t, urban, out[0].Series)
}

func TestAdjustUrban_PassThroughOnShortOverlap(t *testing.T) {
	const months = 120
	stations := trendedStations(months)
	// Leave the urban record only 6 valid months.
	for i := 6; i < months; i++ {
		stations[0].Series[i] = domain.Value{}
	}

	_, adjustments := domain.AdjustUrban(stations, urbanParams(), discardLogger())

	require.Len(t, adjustments, 1)
	assert.False(t, adjustments[0].Adjusted)
	assert.Equal(t, "insufficient rural overlap", adjustments[0].Reason)
}

func TestAdjustUrban_Idempotent(t *testing.T) {
	stations := trendedStations(120)

	once, _ := domain.AdjustUrban(stations, urbanParams(), discardLogger())
	twice, adjustments := domain.AdjustUrban(once, urbanParams(), discardLogger())

	assert.Empty(t, adjustments, "already adjusted stations are skipped")
	assert.Equal(t, once[0].Series, twice[0].Series)
}

package domain

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
)

// TrendFunc estimates the low-frequency linear trend of a scatter, returning
// the slope per x unit and the intercept at x=0.
type TrendFunc func(x, y []float64) (slope, intercept float64)

// OLSTrend is an ordinary least-squares line fit.
func OLSTrend(x, y []float64) (float64, float64) {
	n := float64(len(x))
	var sumX, sumY float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
	}
	meanX := sumX / n
	meanY := sumY / n

	var sxx, sxy float64
	for i := range x {
		dx := x[i] - meanX
		sxx += dx * dx
		sxy += dx * (y[i] - meanY)
	}
	if sxx == 0 {
		return 0, meanY
	}
	slope := sxy / sxx
	return slope, meanY - slope*meanX
}

// TheilSenTrend is a robust fit: the median of all pairwise slopes, with the
// intercept taken as the median of y − slope·x. Quadratic in the number of
// points, which is acceptable for monthly series a few thousand points long.
func TheilSenTrend(x, y []float64) (float64, float64) {
	slopes := make([]float64, 0, len(x)*(len(x)-1)/2)
	for i := 0; i < len(x); i++ {
		for j := i + 1; j < len(x); j++ {
			if dx := x[j] - x[i]; dx != 0 {
				slopes = append(slopes, (y[j]-y[i])/dx)
			}
		}
	}
	if len(slopes) == 0 {
		_, intercept := OLSTrend(x, y)
		return 0, intercept
	}
	slope := median(slopes)

	residuals := make([]float64, len(x))
	for i := range x {
		residuals[i] = y[i] - slope*x[i]
	}
	return slope, median(residuals)
}

func median(v []float64) float64 {
	sort.Float64s(v)
	mid := len(v) / 2
	if len(v)%2 == 1 {
		return v[mid]
	}
	return (v[mid-1] + v[mid]) / 2
}

// TrendByName resolves a configured trend-fit name.
func TrendByName(name string) (TrendFunc, error) {
	switch name {
	case "ols":
		return OLSTrend, nil
	case "theilsen":
		return TheilSenTrend, nil
	default:
		return nil, fmt.Errorf("unknown trend fit %q", name)
	}
}

// UrbanParams configures the urban bias correction.
type UrbanParams struct {
	BrightnessThreshold float64
	RadiusKM            float64
	MinRuralStations    int
	MinOverlapMonths    int
	Weight              WeightFunc
	Trend               TrendFunc
}

// Adjustment is the audit record for one urban station.
type Adjustment struct {
	StationID string
	RuralRefs int
	Adjusted  bool
	Slope     float64 // trend removed, anomaly units per month
	Reason    string  // populated for pass-through stations
}

// AdjustUrban corrects the long-term trend of urban station series against
// a composite of nearby rural references.
//
// A station is urban when its brightness exceeds the threshold. Its rural
// references are the at-or-below-threshold stations strictly inside RadiusKM,
// weighted by the configured falloff. The difference series urban − composite
// is fitted with the configured trend and the fitted line is subtracted from
// the urban series, preserving higher-frequency variability. Urban stations
// with too few references or too little overlap pass through unadjusted with
// a recorded reason. Stations already flagged UrbanAdjusted are skipped, so
// re-running the adjustment is a no-op.
//
// The input slice is not mutated; adjusted copies are returned in the same
// order, together with one Adjustment per urban station considered.
func AdjustUrban(stations []Station, p UrbanParams, logger *slog.Logger) ([]Station, []Adjustment) {
	out := make([]Station, len(stations))
	copy(out, stations)

	var ruralIdx []int
	for i, st := range stations {
		if st.Brightness <= p.BrightnessThreshold {
			ruralIdx = append(ruralIdx, i)
		}
	}

	ruralLats := make([]float64, len(ruralIdx))
	ruralLons := make([]float64, len(ruralIdx))
	for k, i := range ruralIdx {
		ruralLats[k] = stations[i].Lat
		ruralLons[k] = stations[i].Lon
	}
	ruralLatRad, ruralLonRad := Radians(ruralLats, ruralLons)

	ruralSeries := make(map[string]Series, len(ruralIdx))
	for _, i := range ruralIdx {
		ruralSeries[stations[i].ID] = stations[i].Series
	}

	var adjustments []Adjustment
	dist := make([]float64, len(ruralIdx))
	for i, st := range stations {
		if st.Brightness <= p.BrightnessThreshold || st.UrbanAdjusted {
			continue
		}

		DistanceRow(radians(st.Lat), radians(st.Lon), ruralLatRad, ruralLonRad, dist)
		table := make(WeightTable)
		for k, d := range dist {
			if w := p.Weight(d, p.RadiusKM); w > 0 {
				table[stations[ruralIdx[k]].ID] = w
			}
		}

		if len(table) < p.MinRuralStations {
			logger.Warn("urban station passed through unadjusted",
				"station_id", st.ID, "rural_refs", len(table), "required", p.MinRuralStations)
			adjustments = append(adjustments, Adjustment{
				StationID: st.ID,
				RuralRefs: len(table),
				Reason:    "insufficient rural references",
			})
			continue
		}

		composite := Combine(table, ruralSeries, len(st.Series))
		adjusted, slope, overlap := subtractTrend(st.Series, composite, p)
		if adjusted == nil {
			logger.Warn("urban station passed through unadjusted",
				"station_id", st.ID, "overlap_months", overlap, "required", p.MinOverlapMonths)
			adjustments = append(adjustments, Adjustment{
				StationID: st.ID,
				RuralRefs: len(table),
				Reason:    "insufficient rural overlap",
			})
			continue
		}

		out[i].Series = adjusted
		out[i].UrbanAdjusted = true
		adjustments = append(adjustments, Adjustment{
			StationID: st.ID,
			RuralRefs: len(table),
			Adjusted:  true,
			Slope:     slope,
		})
	}
	return out, adjustments
}

// subtractTrend fits the urban − composite difference over their overlap and
// removes the fitted line from the urban series. Returns nil when the overlap
// is too short to estimate a trend.
func subtractTrend(urban, composite Series, p UrbanParams) (Series, float64, int) {
	var x, y []float64
	for i := range urban {
		if urban[i].Valid && composite[i].Valid {
			x = append(x, float64(i))
			y = append(y, urban[i].Temp-composite[i].Temp)
		}
	}
	minOverlap := p.MinOverlapMonths
	if minOverlap < 2 {
		minOverlap = 2
	}
	if len(x) < minOverlap {
		return nil, 0, len(x)
	}

	slope, intercept := p.Trend(x, y)
	if math.IsNaN(slope) || math.IsInf(slope, 0) {
		return nil, 0, len(x)
	}

	out := urban.Clone()
	for i := range out {
		if out[i].Valid {
			out[i].Temp -= intercept + slope*float64(i)
		}
	}
	return out, slope, len(x)
}

package domain

import (
	"fmt"
	"math"
)

// WeightFunc maps a distance to a station's influence on a cell or urban
// reference composite. Implementations must return 1 at distance 0, decrease
// monotonically, and return 0 at or beyond the radius.
type WeightFunc func(distanceKM, radiusKM float64) float64

// LinearWeight is the reference triangular falloff: 1 − d/R.
func LinearWeight(distanceKM, radiusKM float64) float64 {
	if distanceKM >= radiusKM {
		return 0
	}
	return 1 - distanceKM/radiusKM
}

// CosineWeight is a smooth alternative falloff: (1 + cos(π·d/R)) / 2.
func CosineWeight(distanceKM, radiusKM float64) float64 {
	if distanceKM >= radiusKM {
		return 0
	}
	return (1 + math.Cos(math.Pi*distanceKM/radiusKM)) / 2
}

// WeightByName resolves a configured falloff curve name.
func WeightByName(name string) (WeightFunc, error) {
	switch name {
	case "linear":
		return LinearWeight, nil
	case "cosine":
		return CosineWeight, nil
	default:
		return nil, fmt.Errorf("unknown weight function %q", name)
	}
}

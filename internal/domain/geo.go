package domain

import "math"

// EarthRadiusKM is the mean Earth radius used for all great-circle distances.
const EarthRadiusKM = 6371.0

// Distance returns the great-circle distance in kilometers between two
// points given in degrees, using the haversine formula.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	return haversine(radians(lat1), radians(lon1), radians(lat2), radians(lon2))
}

// Radians converts paired degree coordinates to radians. Grid weighting and
// the urban neighbor search convert the full station set once per run and
// reuse the result for every row, so the per-pair work is the haversine only.
func Radians(lats, lons []float64) (latRad, lonRad []float64) {
	latRad = make([]float64, len(lats))
	lonRad = make([]float64, len(lons))
	for i := range lats {
		latRad[i] = radians(lats[i])
		lonRad[i] = radians(lons[i])
	}
	return latRad, lonRad
}

// DistanceRow computes distances in kilometers from one point to many,
// all in radians, writing into out. out must have len(latsRad) entries.
func DistanceRow(latRad, lonRad float64, latsRad, lonsRad, out []float64) {
	for i := range latsRad {
		out[i] = haversine(latRad, lonRad, latsRad[i], lonsRad[i])
	}
}

// DistanceMatrix computes all pairwise distances in kilometers between two
// point sets given in degrees. Row i holds distances from point i of the
// first set to every point of the second.
func DistanceMatrix(lats1, lons1, lats2, lons2 []float64) [][]float64 {
	latRad1, lonRad1 := Radians(lats1, lons1)
	latRad2, lonRad2 := Radians(lats2, lons2)

	out := make([][]float64, len(lats1))
	for i := range out {
		row := make([]float64, len(lats2))
		DistanceRow(latRad1[i], lonRad1[i], latRad2, lonRad2, row)
		out[i] = row
	}
	return out
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := lat2 - lat1
	dLon := lon2 - lon1
	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	a := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	// Guard against rounding pushing a just past 1 for near-antipodal points.
	if a > 1 {
		a = 1
	}
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKM * c
}

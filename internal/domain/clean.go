package domain

import (
	"log/slog"
	"math"
)

// FilterCoordinates drops stations whose latitude or longitude is missing,
// non-finite, or outside the valid range. Returns the surviving stations and
// the number excluded.
func FilterCoordinates(stations []Station, logger *slog.Logger) ([]Station, int) {
	kept := make([]Station, 0, len(stations))
	excluded := 0
	for _, st := range stations {
		if !validCoordinate(st.Lat, 90) || !validCoordinate(st.Lon, 180) {
			logger.Warn("station excluded: invalid coordinates",
				"station_id", st.ID, "lat", st.Lat, "lon", st.Lon)
			excluded++
			continue
		}
		kept = append(kept, st)
	}
	if excluded > 0 {
		logger.Info("coordinate filter complete", "excluded", excluded, "kept", len(kept))
	}
	return kept, excluded
}

func validCoordinate(v, limit float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= -limit && v <= limit
}

// ApplyDropRules nulls every observation inside a rule's inclusive month
// window. The window is nulled, not removed; a station left with zero valid
// observations is dropped entirely. Returns the surviving stations, the
// number of observations nulled, and the number of stations dropped.
func ApplyDropRules(stations []Station, rules []DropRule, startYear int, logger *slog.Logger) ([]Station, int, int) {
	byStation := make(map[string][]DropRule, len(rules))
	for _, r := range rules {
		byStation[r.StationID] = append(byStation[r.StationID], r)
	}

	kept := make([]Station, 0, len(stations))
	nulled := 0
	dropped := 0
	for _, st := range stations {
		matched := byStation[st.ID]
		if len(matched) == 0 {
			kept = append(kept, st)
			continue
		}

		st.Series = st.Series.Clone()
		for _, r := range matched {
			nulled += nullWindow(st.Series, r, startYear)
		}
		if st.Series.CountValid() == 0 {
			logger.Warn("station dropped: no observations outside excluded windows",
				"station_id", st.ID)
			dropped++
			continue
		}
		kept = append(kept, st)
	}
	if nulled > 0 || dropped > 0 {
		logger.Info("drop rules applied",
			"observations_nulled", nulled, "stations_dropped", dropped)
	}
	return kept, nulled, dropped
}

// nullWindow clears valid observations inside the rule window, clamped to the
// processing range, and returns how many it cleared.
func nullWindow(s Series, r DropRule, startYear int) int {
	from := (r.StartYear-startYear)*12 + r.StartMonth - 1
	to := (r.EndYear-startYear)*12 + r.EndMonth - 1
	if from < 0 {
		from = 0
	}
	if to >= len(s) {
		to = len(s) - 1
	}

	n := 0
	for i := from; i <= to; i++ {
		if s[i].Valid {
			s[i] = Value{}
			n++
		}
	}
	return n
}

// FilterSparseMonths nulls a station's record for any calendar month with
// fewer than minValues valid observations across the processing years, so
// thinly covered months cannot anchor a baseline. Returns the stations and
// the number of observations nulled.
func FilterSparseMonths(stations []Station, minValues int) ([]Station, int) {
	if minValues <= 0 {
		return stations, 0
	}

	nulled := 0
	out := make([]Station, len(stations))
	for i, st := range stations {
		var counts [12]int
		for idx, v := range st.Series {
			if v.Valid {
				counts[idx%12]++
			}
		}

		sparse := false
		for _, c := range counts {
			if c > 0 && c < minValues {
				sparse = true
				break
			}
		}
		if sparse {
			st.Series = st.Series.Clone()
			for idx := range st.Series {
				if st.Series[idx].Valid && counts[idx%12] < minValues {
					st.Series[idx] = Value{}
					nulled++
				}
			}
		}
		out[i] = st
	}
	return out, nulled
}

package domain

import "time"

// Value is a single monthly temperature observation or anomaly. A gap in the
// record is Valid=false; missing months are never encoded as a numeric
// sentinel.
type Value struct {
	Temp  float64
	Valid bool
}

// Series holds one Value per calendar month of the processing range.
// Index 0 is January of the start year.
type Series []Value

// NewSeries returns an all-missing series covering months entries.
func NewSeries(months int) Series {
	return make(Series, months)
}

// Clone returns an independent copy of the series.
func (s Series) Clone() Series {
	out := make(Series, len(s))
	copy(out, s)
	return out
}

// CountValid returns the number of non-missing months.
func (s Series) CountValid() int {
	n := 0
	for _, v := range s {
		if v.Valid {
			n++
		}
	}
	return n
}

// MonthCount returns the number of monthly slots in [startYear, endYear].
func MonthCount(startYear, endYear int) int {
	if endYear < startYear {
		return 0
	}
	return (endYear - startYear + 1) * 12
}

// MonthIndex maps a (year, month) pair to its series index, month in 1..12.
// Returns -1 when the pair falls outside [startYear, startYear+len).
func MonthIndex(year, month, startYear, months int) int {
	idx := (year-startYear)*12 + month - 1
	if idx < 0 || idx >= months {
		return -1
	}
	return idx
}

// YearMonthAt is the inverse of MonthIndex.
func YearMonthAt(idx, startYear int) (year, month int) {
	return startYear + idx/12, idx%12 + 1
}

// Station is one land weather station: immutable metadata plus its monthly
// record over the processing range.
type Station struct {
	ID         string
	Lat        float64
	Lon        float64
	Elevation  *float64 // meters, nil when not reported
	Brightness float64  // satellite night-light index used for urban classification
	Series     Series

	// UrbanAdjusted marks a series that has already been corrected against a
	// rural composite, so a second adjustment pass leaves it untouched.
	UrbanAdjusted bool
}

// GridCell is one tile center of the fixed global latitude/longitude lattice.
type GridCell struct {
	Lat float64
	Lon float64
}

// WeightTable maps station ID to its distance-derived influence on one grid
// cell. Stations at or beyond the search radius are absent, not present with
// weight zero. An empty table means the cell has no coverage.
type WeightTable map[string]float64

// DropRule nulls a station's observations inside an inclusive month window.
// Windows come from the drop-rules file maintained alongside the raw archive.
type DropRule struct {
	StationID  string
	StartYear  int
	StartMonth int
	EndYear    int
	EndMonth   int
}

// Dataset is the gridded anomaly output handed to downstream consumers.
// Series and StationCounts are aligned with Cells by index.
type Dataset struct {
	StartYear     int
	EndYear       int
	Cells         []GridCell
	Series        []Series
	StationCounts []int
	ProducedAt    time.Time
}

// Months returns the number of monthly slots per cell series.
func (d *Dataset) Months() int {
	return MonthCount(d.StartYear, d.EndYear)
}

// RunReport carries the aggregate diagnostics of one pipeline run.
type RunReport struct {
	StationsLoaded      int       `json:"stations_loaded"`
	ExcludedCoordinates int       `json:"excluded_coordinates"`
	ExcludedEmptyRecord int       `json:"excluded_empty_record"`
	ExcludedNoBaseline  int       `json:"excluded_no_baseline"`
	NulledObservations  int       `json:"nulled_observations"`
	CellsTotal          int       `json:"cells_total"`
	CellsEmpty          int       `json:"cells_empty"`
	UrbanAdjusted       []string  `json:"urban_adjusted,omitempty"`
	UrbanUnadjusted     []string  `json:"urban_unadjusted,omitempty"`
	CompletedAt         time.Time `json:"completed_at"`
}

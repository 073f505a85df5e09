// Command validate performs integrity checks on a gridded anomaly dataset
// CSV: full lattice coverage, one row per cell per month, plausible anomaly
// magnitudes, and consistency between missing values and station counts.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -dataset results/gridded_anomalies.csv \
//	  -cell-size 2 -start-year 1880 -end-year 2023
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
)

// Anomalies beyond this magnitude in °C indicate a unit or baseline bug, not
// climate.
const maxPlausibleAnomaly = 30.0

// phase tracks pass/fail for one validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dataset := flag.String("dataset", "", "path to the gridded anomaly CSV")
	cellSize := flag.Float64("cell-size", 2, "lattice cell size in degrees")
	startYear := flag.Int("start-year", 1880, "first processing year")
	endYear := flag.Int("end-year", 2023, "last processing year")
	flag.Parse()

	if *dataset == "" {
		flag.Usage()
		os.Exit(2)
	}

	phases, err := validate(*dataset, *cellSize, *startYear, *endYear)
	if err != nil {
		fmt.Fprintf(os.Stderr, "validate: %v\n", err)
		os.Exit(1)
	}

	failed := false
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS %s\n", p.name)
			continue
		}
		failed = true
		fmt.Printf("FAIL %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	if failed {
		os.Exit(1)
	}
}

type cellMonth struct {
	lat, lon    float64
	year, month int
}

func validate(path string, cellSize float64, startYear, endYear int) ([]*phase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	parse := &phase{name: "rows parse"}
	coverage := &phase{name: "lattice coverage"}
	values := &phase{name: "anomaly plausibility"}
	consistency := &phase{name: "missing/station consistency"}

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	seen := make(map[cellMonth]int)
	line := 1
	for {
		line++
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(row) != 6 {
			parse.errorf("line %d: expected 6 fields, got %d", line, len(row))
			continue
		}

		lat, errLat := strconv.ParseFloat(row[0], 64)
		lon, errLon := strconv.ParseFloat(row[1], 64)
		year, errYear := strconv.Atoi(row[2])
		month, errMonth := strconv.Atoi(row[3])
		stations, errStations := strconv.Atoi(row[5])
		if errLat != nil || errLon != nil || errYear != nil || errMonth != nil || errStations != nil {
			parse.errorf("line %d: malformed row", line)
			continue
		}

		seen[cellMonth{lat: lat, lon: lon, year: year, month: month}]++

		if row[4] != "" {
			anomaly, err := strconv.ParseFloat(row[4], 64)
			if err != nil {
				parse.errorf("line %d: bad anomaly %q", line, row[4])
				continue
			}
			if math.Abs(anomaly) > maxPlausibleAnomaly {
				values.errorf("line %d: anomaly %.2f exceeds ±%.0f", line, anomaly, maxPlausibleAnomaly)
			}
			if stations == 0 {
				consistency.errorf("line %d: anomaly present but zero contributing stations", line)
			}
		}
	}

	checkCoverage(coverage, seen, cellSize, startYear, endYear)
	return []*phase{parse, coverage, values, consistency}, nil
}

// checkCoverage verifies every lattice center appears exactly once for every
// month of the processing range.
func checkCoverage(p *phase, seen map[cellMonth]int, cellSize float64, startYear, endYear int) {
	rows := int(180 / cellSize)
	cols := int(360 / cellSize)
	months := (endYear - startYear + 1) * 12
	if want := rows * cols * months; len(seen) != want {
		p.errorf("expected %d distinct (cell, month) rows, found %d", want, len(seen))
	}

	half := cellSize / 2
	missing := 0
	for r := 0; r < rows && missing < 5; r++ {
		lat := 90 - half - float64(r)*cellSize
		for c := 0; c < cols && missing < 5; c++ {
			lon := -180 + half + float64(c)*cellSize
			for year := startYear; year <= endYear; year++ {
				for month := 1; month <= 12; month++ {
					key := cellMonth{lat: lat, lon: lon, year: year, month: month}
					switch n := seen[key]; {
					case n == 0:
						p.errorf("missing row for cell (%.1f, %.1f) %d-%02d", lat, lon, year, month)
						missing++
					case n > 1:
						p.errorf("duplicate rows for cell (%.1f, %.1f) %d-%02d", lat, lon, year, month)
						missing++
					}
					if missing >= 5 {
						p.errorf("(further coverage errors suppressed)")
						return
					}
				}
			}
		}
	}
}

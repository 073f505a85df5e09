// Command genstations generates a synthetic station table and drop-rules
// file for local runs and fixtures. Stations get a seasonal cycle, a mild
// warming trend, and record gaps; stations marked urban additionally get an
// artificial warming bias and a high brightness index, so the urban
// adjustment has something real to remove.
//
// Usage:
//
//	go run ./cmd/genstations \
//	  -stations-out data/stations.csv \
//	  -rules-out data/drop_rules.csv \
//	  -count 200 -start-year 1880 -end-year 2023 -seed 1
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	stationsOut := flag.String("stations-out", "data/stations.csv", "output path for the station table")
	rulesOut := flag.String("rules-out", "", "optional output path for a sample drop-rules file")
	count := flag.Int("count", 200, "number of stations to generate")
	startYear := flag.Int("start-year", 1880, "first processing year")
	endYear := flag.Int("end-year", 2023, "last processing year")
	urbanShare := flag.Float64("urban-share", 0.2, "fraction of stations marked urban")
	seed := flag.Int64("seed", 1, "random seed for reproducible fixtures")
	flag.Parse()

	if *endYear < *startYear {
		return fmt.Errorf("-end-year must not precede -start-year")
	}

	rng := rand.New(rand.NewSource(*seed))

	if err := writeStations(*stationsOut, rng, *count, *startYear, *endYear, *urbanShare); err != nil {
		return err
	}
	log.Printf("wrote %d stations to %s", *count, *stationsOut)

	if *rulesOut != "" {
		if err := writeRules(*rulesOut, rng, *count, *startYear, *endYear); err != nil {
			return err
		}
		log.Printf("wrote sample drop rules to %s", *rulesOut)
	}
	return nil
}

func writeStations(path string, rng *rand.Rand, count, startYear, endYear int, urbanShare float64) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{
		"station_id", "latitude", "longitude", "elevation", "brightness",
		"year", "month", "temperature",
	}); err != nil {
		return err
	}

	for i := 0; i < count; i++ {
		id := fmt.Sprintf("SYN%08d", i)
		// Cluster around mid-latitudes where real station density is highest.
		lat := clamp(rng.NormFloat64()*25+30, -88, 88)
		lon := rng.Float64()*360 - 180
		elevation := math.Abs(rng.NormFloat64()) * 400

		urban := rng.Float64() < urbanShare
		brightness := rng.Float64() * 8
		urbanTrend := 0.0
		if urban {
			brightness = 20 + rng.Float64()*140
			urbanTrend = 0.3 + rng.Float64()*0.7 // °C per century of spurious warming
		}

		baseTemp := 25 - math.Abs(lat)*0.4 + rng.NormFloat64()*2
		amplitude := 3 + math.Abs(lat)*0.15
		recordStart := startYear + rng.Intn(40)

		for year := recordStart; year <= endYear; year++ {
			for month := 1; month <= 12; month++ {
				// Leave ~5% of months as gaps.
				if rng.Float64() < 0.05 {
					if err := writeRow(w, id, lat, lon, elevation, brightness, year, month, nil); err != nil {
						return err
					}
					continue
				}

				season := amplitude * math.Cos(2*math.Pi*float64(month-1)/12)
				if lat < 0 {
					season = -season
				}
				century := float64(year-startYear) / 100
				temp := baseTemp + season + 0.5*century + urbanTrend*century + rng.NormFloat64()*0.8
				if err := writeRow(w, id, lat, lon, elevation, brightness, year, month, &temp); err != nil {
					return err
				}
			}
		}
	}

	w.Flush()
	return w.Error()
}

func writeRow(w *csv.Writer, id string, lat, lon, elevation, brightness float64, year, month int, temp *float64) error {
	tempField := ""
	if temp != nil {
		tempField = strconv.FormatFloat(*temp, 'f', 2, 64)
	}
	return w.Write([]string{
		id,
		strconv.FormatFloat(lat, 'f', 4, 64),
		strconv.FormatFloat(lon, 'f', 4, 64),
		strconv.FormatFloat(elevation, 'f', 0, 64),
		strconv.FormatFloat(brightness, 'f', 1, 64),
		strconv.Itoa(year),
		strconv.Itoa(month),
		tempField,
	})
}

// writeRules emits a handful of windows against generated station IDs: one
// full-record exclusion, a few partial windows, and one deliberately
// malformed row so local runs exercise the skip path.
func writeRules(path string, rng *rand.Rand, count, startYear, endYear int) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"station_id", "omit_start", "omit_end"}); err != nil {
		return err
	}

	rows := [][]string{
		{fmt.Sprintf("SYN%08d", rng.Intn(count)), fmt.Sprintf("%d-01", startYear), fmt.Sprintf("%d-12", endYear)},
	}
	for i := 0; i < 3; i++ {
		year := startYear + rng.Intn(endYear-startYear+1)
		rows = append(rows, []string{
			fmt.Sprintf("SYN%08d", rng.Intn(count)),
			fmt.Sprintf("%d-01", year),
			fmt.Sprintf("%d-12", year),
		})
	}
	rows = append(rows, []string{fmt.Sprintf("SYN%08d", rng.Intn(count)), "not-a-date", "also-not"})

	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func createFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.Create(path)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

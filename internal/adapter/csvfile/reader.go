// Package csvfile reads station records and drop rules from CSV files and
// writes the gridded anomaly dataset back out, converting between the flat
// tabular boundary format and the typed domain records.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/gridtemp/internal/domain"
)

// stationColumns is the required header of the station table:
// one row per station per month.
var stationColumns = []string{
	"station_id", "latitude", "longitude", "elevation", "brightness",
	"year", "month", "temperature",
}

// StationReader loads the station table produced by the upstream retrieval
// step. It implements pipeline.StationSource.
type StationReader struct {
	path      string
	startYear int
	endYear   int
	logger    *slog.Logger
}

// NewStationReader creates a reader for the given processing window.
func NewStationReader(path string, startYear, endYear int, logger *slog.Logger) *StationReader {
	return &StationReader{path: path, startYear: startYear, endYear: endYear, logger: logger}
}

// Stations reads the full table into one Station per ID. The first row seen
// for an ID fixes its metadata; later rows with conflicting coordinates are
// skipped with a warning, since an ID must map to exactly one metadata tuple.
// Rows outside the processing window are ignored. Malformed rows are skipped,
// not fatal.
func (r *StationReader) Stations(ctx context.Context) ([]domain.Station, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open station table: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1 // length is validated per row so short rows skip, not abort

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read station table header: %w", err)
	}
	if err := checkHeader(header, stationColumns); err != nil {
		return nil, fmt.Errorf("station table: %w", err)
	}

	months := domain.MonthCount(r.startYear, r.endYear)
	byID := make(map[string]*domain.Station)
	var order []string
	malformed := 0

	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read station table: %w", err)
		}

		rec, err := parseStationRow(row)
		if err != nil {
			r.logger.Warn("skipping malformed station row", "line", line, "error", err)
			malformed++
			continue
		}

		st, seen := byID[rec.id]
		if !seen {
			st = &domain.Station{
				ID:         rec.id,
				Lat:        rec.lat,
				Lon:        rec.lon,
				Elevation:  rec.elevation,
				Brightness: rec.brightness,
				Series:     domain.NewSeries(months),
			}
			byID[rec.id] = st
			order = append(order, rec.id)
		} else if st.Lat != rec.lat || st.Lon != rec.lon {
			r.logger.Warn("skipping row with conflicting station metadata",
				"line", line, "station_id", rec.id)
			malformed++
			continue
		}

		idx := domain.MonthIndex(rec.year, rec.month, r.startYear, months)
		if idx < 0 || !rec.hasTemp {
			continue
		}
		st.Series[idx] = domain.Value{Temp: rec.temp, Valid: true}
	}

	stations := make([]domain.Station, len(order))
	for i, id := range order {
		stations[i] = *byID[id]
	}
	r.logger.Info("station table loaded",
		"path", r.path, "stations", len(stations), "malformed_rows", malformed)
	return stations, nil
}

type stationRow struct {
	id         string
	lat        float64
	lon        float64
	elevation  *float64
	brightness float64
	year       int
	month      int
	temp       float64
	hasTemp    bool
}

func parseStationRow(row []string) (stationRow, error) {
	if len(row) != len(stationColumns) {
		return stationRow{}, fmt.Errorf("expected %d fields, got %d", len(stationColumns), len(row))
	}

	rec := stationRow{id: strings.TrimSpace(row[0])}
	if rec.id == "" {
		return stationRow{}, fmt.Errorf("empty station_id")
	}

	var err error
	if rec.lat, err = strconv.ParseFloat(strings.TrimSpace(row[1]), 64); err != nil {
		return stationRow{}, fmt.Errorf("latitude: %w", err)
	}
	if rec.lon, err = strconv.ParseFloat(strings.TrimSpace(row[2]), 64); err != nil {
		return stationRow{}, fmt.Errorf("longitude: %w", err)
	}
	if s := strings.TrimSpace(row[3]); s != "" {
		elev, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return stationRow{}, fmt.Errorf("elevation: %w", err)
		}
		rec.elevation = &elev
	}
	if s := strings.TrimSpace(row[4]); s != "" {
		if rec.brightness, err = strconv.ParseFloat(s, 64); err != nil {
			return stationRow{}, fmt.Errorf("brightness: %w", err)
		}
	}
	if rec.year, err = strconv.Atoi(strings.TrimSpace(row[5])); err != nil {
		return stationRow{}, fmt.Errorf("year: %w", err)
	}
	if rec.month, err = strconv.Atoi(strings.TrimSpace(row[6])); err != nil {
		return stationRow{}, fmt.Errorf("month: %w", err)
	}
	if rec.month < 1 || rec.month > 12 {
		return stationRow{}, fmt.Errorf("month %d out of range", rec.month)
	}
	if s := strings.TrimSpace(row[7]); s != "" {
		if rec.temp, err = strconv.ParseFloat(s, 64); err != nil {
			return stationRow{}, fmt.Errorf("temperature: %w", err)
		}
		rec.hasTemp = true
	}
	return rec, nil
}

// RuleReader loads drop-rule windows. It implements pipeline.RuleSource.
// An empty path means no rules.
type RuleReader struct {
	path   string
	logger *slog.Logger
}

// NewRuleReader creates a reader for the drop-rules file.
func NewRuleReader(path string, logger *slog.Logger) *RuleReader {
	return &RuleReader{path: path, logger: logger}
}

// Rules reads {station id, omit start, omit end} windows with YYYY-MM bounds.
// A malformed rule is reported and skipped, never fatal to the run.
func (r *RuleReader) Rules(ctx context.Context) ([]domain.DropRule, error) {
	if r.path == "" {
		return nil, nil
	}

	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open drop rules: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read drop rules header: %w", err)
	}
	if err := checkHeader(header, []string{"station_id", "omit_start", "omit_end"}); err != nil {
		return nil, fmt.Errorf("drop rules: %w", err)
	}

	var rules []domain.DropRule
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read drop rules: %w", err)
		}

		rule, err := parseRule(row)
		if err != nil {
			r.logger.Warn("skipping malformed drop rule", "line", line, "error", err)
			continue
		}
		rules = append(rules, rule)
	}
	r.logger.Info("drop rules loaded", "path", r.path, "rules", len(rules))
	return rules, nil
}

func parseRule(row []string) (domain.DropRule, error) {
	if len(row) != 3 {
		return domain.DropRule{}, fmt.Errorf("expected 3 fields, got %d", len(row))
	}
	id := strings.TrimSpace(row[0])
	if id == "" {
		return domain.DropRule{}, fmt.Errorf("empty station_id")
	}

	startYear, startMonth, err := parseYearMonth(row[1])
	if err != nil {
		return domain.DropRule{}, fmt.Errorf("omit_start: %w", err)
	}
	endYear, endMonth, err := parseYearMonth(row[2])
	if err != nil {
		return domain.DropRule{}, fmt.Errorf("omit_end: %w", err)
	}
	if endYear < startYear || (endYear == startYear && endMonth < startMonth) {
		return domain.DropRule{}, fmt.Errorf("window end precedes start")
	}

	return domain.DropRule{
		StationID:  id,
		StartYear:  startYear,
		StartMonth: startMonth,
		EndYear:    endYear,
		EndMonth:   endMonth,
	}, nil
}

// parseYearMonth parses a YYYY-MM bound.
func parseYearMonth(s string) (int, int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected YYYY-MM, got %q", s)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("year: %w", err)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("month: %w", err)
	}
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("month %d out of range", month)
	}
	return year, month, nil
}

func checkHeader(got, want []string) error {
	if len(got) != len(want) {
		return fmt.Errorf("expected header %v, got %v", want, got)
	}
	for i := range want {
		if strings.TrimSpace(strings.ToLower(got[i])) != want[i] {
			return fmt.Errorf("expected header %v, got %v", want, got)
		}
	}
	return nil
}

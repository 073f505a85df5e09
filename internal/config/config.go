package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/gridtemp/internal/domain"
)

// Config holds all run parameters, populated from environment variables.
// It is immutable after Load and passed explicitly into every component;
// nothing reads ambient settings mid-run.
type Config struct {
	// Gridding.
	CellSizeDeg float64
	RadiusKM    float64

	// Urban adjustment.
	UrbanEnabled        bool
	UrbanRadiusKM       float64
	BrightnessThreshold float64
	MinRuralStations    int
	MinUrbanOverlap     int
	UrbanTrendFit       string

	// Processing and baseline windows.
	StartYear         int
	EndYear           int
	BaselineStartYear int
	BaselineEndYear   int

	// Cleaning.
	MinMonthlyValues int

	WeightFunction string
	Workers        int

	// I/O.
	StationsPath string
	RulesPath    string
	OutputPath   string

	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset. Structurally invalid configuration is rejected here, before
// any computation begins: a bad radius or an inconsistent window would
// silently degrade correctness mid-pipeline.
func Load() (*Config, error) {
	cfg := &Config{
		CellSizeDeg:         envFloat("GRID_CELL_SIZE_DEG", 2),
		RadiusKM:            envFloat("STATION_RADIUS_KM", 1200),
		UrbanEnabled:        envBool("URBAN_ADJUST_ENABLED", true),
		UrbanRadiusKM:       envFloat("URBAN_RADIUS_KM", 100),
		BrightnessThreshold: envFloat("URBAN_BRIGHTNESS_THRESHOLD", 10),
		MinRuralStations:    envInt("MIN_RURAL_STATIONS", 1),
		MinUrbanOverlap:     envInt("MIN_URBAN_OVERLAP", 24),
		UrbanTrendFit:       envOrDefault("URBAN_TREND_FIT", "ols"),
		StartYear:           envInt("START_YEAR", 1880),
		EndYear:             envInt("END_YEAR", 2023),
		BaselineStartYear:   envInt("BASELINE_START_YEAR", 1951),
		BaselineEndYear:     envInt("BASELINE_END_YEAR", 1980),
		MinMonthlyValues:    envInt("MIN_MONTHLY_VALUES", 20),
		WeightFunction:      envOrDefault("WEIGHT_FUNCTION", "linear"),
		Workers:             envInt("WORKERS", 0),
		StationsPath:        envOrDefault("STATIONS_PATH", "data/stations.csv"),
		RulesPath:           os.Getenv("RULES_PATH"),
		OutputPath:          envOrDefault("OUTPUT_PATH", "results/gridded_anomalies.csv"),
		KafkaEnabled:        envBool("KAFKA_ENABLED", false),
		KafkaBrokers:        splitBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic:      envOrDefault("KAFKA_SINK_TOPIC", "gridded-anomalies"),
		HTTPAddr:            envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:            envOrDefault("LOG_LEVEL", "info"),
		LogFormat:           envOrDefault("LOG_FORMAT", "json"),
	}

	timeout, err := time.ParseDuration(envOrDefault("SHUTDOWN_TIMEOUT", "10s"))
	if err != nil || timeout <= 0 {
		return nil, errors.New("invalid SHUTDOWN_TIMEOUT")
	}
	cfg.ShutdownTimeout = timeout

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.CellSizeDeg <= 0 {
		return errors.New("GRID_CELL_SIZE_DEG must be positive")
	}
	if !tilesEvenly(c.CellSizeDeg) {
		return fmt.Errorf("GRID_CELL_SIZE_DEG %v does not tile the globe evenly", c.CellSizeDeg)
	}
	if c.RadiusKM <= 0 {
		return errors.New("STATION_RADIUS_KM must be positive")
	}
	if c.UrbanRadiusKM <= 0 {
		return errors.New("URBAN_RADIUS_KM must be positive")
	}
	if c.BrightnessThreshold < 0 {
		return errors.New("URBAN_BRIGHTNESS_THRESHOLD must not be negative")
	}
	if c.MinRuralStations < 1 {
		return errors.New("MIN_RURAL_STATIONS must be at least 1")
	}
	if c.MinUrbanOverlap < 2 {
		return errors.New("MIN_URBAN_OVERLAP must be at least 2")
	}
	if c.StartYear > c.EndYear {
		return errors.New("START_YEAR must not exceed END_YEAR")
	}
	if c.BaselineStartYear > c.BaselineEndYear {
		return errors.New("BASELINE_START_YEAR must not exceed BASELINE_END_YEAR")
	}
	if c.BaselineStartYear < c.StartYear || c.BaselineEndYear > c.EndYear {
		return errors.New("baseline window must lie inside the processing window")
	}
	if c.MinMonthlyValues < 0 {
		return errors.New("MIN_MONTHLY_VALUES must not be negative")
	}
	if _, err := domain.WeightByName(c.WeightFunction); err != nil {
		return fmt.Errorf("WEIGHT_FUNCTION: %w", err)
	}
	if _, err := domain.TrendByName(c.UrbanTrendFit); err != nil {
		return fmt.Errorf("URBAN_TREND_FIT: %w", err)
	}
	if c.Workers < 0 {
		return errors.New("WORKERS must not be negative")
	}
	if c.StationsPath == "" {
		return errors.New("STATIONS_PATH is required")
	}
	if c.OutputPath == "" {
		return errors.New("OUTPUT_PATH is required")
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
		}
		if c.KafkaSinkTopic == "" {
			return errors.New("KAFKA_ENABLED is true but KAFKA_SINK_TOPIC is empty")
		}
	}
	return nil
}

// tilesEvenly reports whether the cell size divides 180° into a whole number
// of rows, so the lattice is exhaustive with no partial cells.
func tilesEvenly(cellSizeDeg float64) bool {
	rows := 180 / cellSizeDeg
	return math.Abs(rows-math.Round(rows)) < 1e-9
}

// Weight resolves the configured falloff curve. Valid after Load.
func (c *Config) Weight() domain.WeightFunc {
	w, _ := domain.WeightByName(c.WeightFunction)
	return w
}

// Trend resolves the configured urban trend fit. Valid after Load.
func (c *Config) Trend() domain.TrendFunc {
	t, _ := domain.TrendByName(c.UrbanTrendFit)
	return t
}

// Months returns the number of monthly slots in the processing range.
func (c *Config) Months() int {
	return domain.MonthCount(c.StartYear, c.EndYear)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if s := os.Getenv(key); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if s := os.Getenv(key); s != "" {
		return s == "true" || s == "1"
	}
	return fallback
}

func splitBrokers(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

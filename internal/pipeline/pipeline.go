package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/gridtemp/internal/config"
	"github.com/couchcryptid/gridtemp/internal/domain"
	"github.com/couchcryptid/gridtemp/internal/grid"
	"github.com/couchcryptid/gridtemp/internal/observability"
)

// StationSource provides the fully materialized station table.
type StationSource interface {
	Stations(ctx context.Context) ([]domain.Station, error)
}

// RuleSource provides the drop-rule windows to null out.
type RuleSource interface {
	Rules(ctx context.Context) ([]domain.DropRule, error)
}

// DatasetSink receives the gridded anomaly dataset.
type DatasetSink interface {
	WriteDataset(ctx context.Context, ds *domain.Dataset) error
}

// Pipeline orchestrates one gridding run: clean stations, convert to
// anomalies, adjust urban series, build the lattice weight tables, combine
// per cell, and hand the dataset to the sinks.
type Pipeline struct {
	stations StationSource
	rules    RuleSource
	sinks    []DatasetSink
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *observability.Metrics

	ready atomic.Bool

	mu         sync.Mutex
	lastReport *domain.RunReport
}

// New creates a Pipeline. The configuration must already be validated by
// config.Load.
func New(stations StationSource, rules RuleSource, sinks []DatasetSink, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		stations: stations,
		rules:    rules,
		sinks:    sinks,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// CheckReadiness returns nil once the pipeline has completed a run.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no gridding run has completed yet")
	}
	return nil
}

// LastReport returns the diagnostics of the most recent completed run, or
// nil if none has completed.
func (p *Pipeline) LastReport() *domain.RunReport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastReport
}

// Run executes one synchronous gridding run and returns its diagnostics.
func (p *Pipeline) Run(ctx context.Context) (*domain.RunReport, error) {
	start := time.Now()
	p.metrics.RunActive.Set(1)
	defer p.metrics.RunActive.Set(0)

	report, err := p.run(ctx)
	if err != nil {
		p.metrics.RunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	p.metrics.RunsTotal.WithLabelValues("success").Inc()

	p.mu.Lock()
	p.lastReport = report
	p.mu.Unlock()
	p.ready.Store(true)

	p.logger.Info("gridding run complete",
		"duration", time.Since(start).Round(time.Millisecond),
		"stations_loaded", report.StationsLoaded,
		"excluded_coordinates", report.ExcludedCoordinates,
		"excluded_empty_record", report.ExcludedEmptyRecord,
		"excluded_no_baseline", report.ExcludedNoBaseline,
		"observations_nulled", report.NulledObservations,
		"cells_total", report.CellsTotal,
		"cells_empty", report.CellsEmpty,
		"urban_adjusted", len(report.UrbanAdjusted),
		"urban_unadjusted", len(report.UrbanUnadjusted),
	)
	return report, nil
}

func (p *Pipeline) run(ctx context.Context) (*domain.RunReport, error) {
	report := &domain.RunReport{}

	stations, err := p.stations.Stations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stations: %w", err)
	}
	report.StationsLoaded = len(stations)
	p.metrics.StationsLoaded.Set(float64(len(stations)))

	var rules []domain.DropRule
	if p.rules != nil {
		if rules, err = p.rules.Rules(ctx); err != nil {
			return nil, fmt.Errorf("load drop rules: %w", err)
		}
	}

	stations = p.clean(stations, rules, report)
	stations = p.toAnomalies(stations, report)

	if p.cfg.UrbanEnabled {
		stations = p.adjustUrban(stations, report)
	}

	ds, err := p.combine(ctx, stations, report)
	if err != nil {
		return nil, err
	}

	writeStart := time.Now()
	for _, sink := range p.sinks {
		if err := sink.WriteDataset(ctx, ds); err != nil {
			return nil, fmt.Errorf("write dataset: %w", err)
		}
	}
	p.metrics.PhaseDuration.WithLabelValues("write").Observe(time.Since(writeStart).Seconds())

	report.CompletedAt = domain.Now()
	return report, nil
}

// clean applies the coordinate filter, drop rules, and the sparse-month
// coverage filter.
func (p *Pipeline) clean(stations []domain.Station, rules []domain.DropRule, report *domain.RunReport) []domain.Station {
	start := time.Now()
	defer func() {
		p.metrics.PhaseDuration.WithLabelValues("clean").Observe(time.Since(start).Seconds())
	}()

	stations, excluded := domain.FilterCoordinates(stations, p.logger)
	report.ExcludedCoordinates = excluded
	p.metrics.StationsExcluded.WithLabelValues("coordinates").Add(float64(excluded))

	stations, nulled, dropped := domain.ApplyDropRules(stations, rules, p.cfg.StartYear, p.logger)
	report.ExcludedEmptyRecord = dropped
	report.NulledObservations += nulled
	p.metrics.StationsExcluded.WithLabelValues("empty_record").Add(float64(dropped))

	stations, nulled = domain.FilterSparseMonths(stations, p.cfg.MinMonthlyValues)
	report.NulledObservations += nulled
	p.metrics.ObservationsNulled.Add(float64(report.NulledObservations))
	return stations
}

// toAnomalies converts every station record to baseline anomalies, dropping
// stations that cannot be anchored to the baseline window.
func (p *Pipeline) toAnomalies(stations []domain.Station, report *domain.RunReport) []domain.Station {
	start := time.Now()
	defer func() {
		p.metrics.PhaseDuration.WithLabelValues("anomaly").Observe(time.Since(start).Seconds())
	}()

	kept := stations[:0]
	for _, st := range stations {
		anomalies, ok := domain.ToAnomalies(st.Series, p.cfg.StartYear, p.cfg.BaselineStartYear, p.cfg.BaselineEndYear)
		if !ok {
			p.logger.Warn("station excluded: no observations in baseline window",
				"station_id", st.ID)
			report.ExcludedNoBaseline++
			continue
		}
		st.Series = anomalies
		kept = append(kept, st)
	}
	p.metrics.StationsExcluded.WithLabelValues("no_baseline").Add(float64(report.ExcludedNoBaseline))
	return kept
}

func (p *Pipeline) adjustUrban(stations []domain.Station, report *domain.RunReport) []domain.Station {
	start := time.Now()
	defer func() {
		p.metrics.PhaseDuration.WithLabelValues("urban").Observe(time.Since(start).Seconds())
	}()

	adjusted, audit := domain.AdjustUrban(stations, domain.UrbanParams{
		BrightnessThreshold: p.cfg.BrightnessThreshold,
		RadiusKM:            p.cfg.UrbanRadiusKM,
		MinRuralStations:    p.cfg.MinRuralStations,
		MinOverlapMonths:    p.cfg.MinUrbanOverlap,
		Weight:              p.cfg.Weight(),
		Trend:               p.cfg.Trend(),
	}, p.logger)

	for _, a := range audit {
		if a.Adjusted {
			report.UrbanAdjusted = append(report.UrbanAdjusted, a.StationID)
		} else {
			report.UrbanUnadjusted = append(report.UrbanUnadjusted, a.StationID)
		}
	}
	p.metrics.UrbanAdjusted.Set(float64(len(report.UrbanAdjusted)))
	p.metrics.UrbanUnadjusted.Set(float64(len(report.UrbanUnadjusted)))
	return adjusted
}

// combine builds the lattice weight tables and merges each cell's stations
// into its combined anomaly series, fanned out across a worker pool. Each
// cell writes only its own index, so completion order does not matter.
func (p *Pipeline) combine(ctx context.Context, stations []domain.Station, report *domain.RunReport) (*domain.Dataset, error) {
	weightStart := time.Now()
	cells := grid.Lattice(p.cfg.CellSizeDeg)
	builder := grid.NewBuilder(p.cfg.RadiusKM, p.cfg.Weight(), p.cfg.Workers, p.logger)
	tables := builder.BuildWeights(ctx, cells, stations)
	p.metrics.PhaseDuration.WithLabelValues("weights").Observe(time.Since(weightStart).Seconds())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	combineStart := time.Now()
	series := make(map[string]domain.Series, len(stations))
	for _, st := range stations {
		series[st.ID] = st.Series
	}

	months := p.cfg.Months()
	ds := &domain.Dataset{
		StartYear:     p.cfg.StartYear,
		EndYear:       p.cfg.EndYear,
		Cells:         cells,
		Series:        make([]domain.Series, len(cells)),
		StationCounts: make([]int, len(cells)),
		ProducedAt:    domain.Now(),
	}

	workers := p.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				ds.Series[i] = domain.Combine(tables[i], series, months)
				ds.StationCounts[i] = len(tables[i])
			}
		}()
	}
	for i := range cells {
		indexes <- i
	}
	close(indexes)
	wg.Wait()
	p.metrics.PhaseDuration.WithLabelValues("combine").Observe(time.Since(combineStart).Seconds())

	report.CellsTotal = len(cells)
	for _, n := range ds.StationCounts {
		if n == 0 {
			report.CellsEmpty++
		}
	}
	p.metrics.CellsEmpty.Set(float64(report.CellsEmpty))
	p.metrics.CellsCovered.Set(float64(report.CellsTotal - report.CellsEmpty))
	return ds, nil
}

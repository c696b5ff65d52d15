package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"solarcli/internal/analytics"
	"solarcli/internal/config"
	"solarcli/internal/infrastructure"
	"solarcli/internal/ingest"
	"solarcli/pkg/contracts/domain"
)

// AnalysisService answers comparison queries over the cleaned country files.
// The report is computed on first use and cached until Refresh.
type AnalysisService struct {
	paths   *config.Paths
	loader  *ingest.Loader
	options analytics.Options
	logger  *slog.Logger

	group singleflight.Group

	mu       sync.RWMutex
	datasets []*domain.Dataset
	report   *domain.AnalysisReport
	loadedAt time.Time
}

// CountryInfo describes one loaded country dataset
type CountryInfo struct {
	Country domain.Country `json:"country"`
	Name    string         `json:"name"`
	Records int            `json:"records"`
	Source  string         `json:"source"`
	First   time.Time      `json:"first,omitempty"`
	Last    time.Time      `json:"last,omitempty"`
}

// TestsResult holds the between-country significance tests for one metric
type TestsResult struct {
	Metric        domain.Metric      `json:"metric"`
	ANOVA         *domain.TestResult `json:"anova,omitempty"`
	KruskalWallis *domain.TestResult `json:"kruskal_wallis,omitempty"`
	Errors        []string           `json:"errors,omitempty"`
}

// NewAnalysisService creates a service reading cleaned files from paths
func NewAnalysisService(paths *config.Paths, loader *ingest.Loader, options analytics.Options, logger *slog.Logger) *AnalysisService {
	logger = infrastructure.WithComponent(logger, "analysis_service")
	logger.Info("analysis service initialized",
		slog.String("cleaned_dir", paths.CleanedDir),
		slog.String("primary_metric", options.PrimaryMetric.String()))

	return &AnalysisService{
		paths:   paths,
		loader:  loader,
		options: options,
		logger:  logger,
	}
}

// Refresh reloads the cleaned files and recomputes the report.
// Concurrent callers share one reload, which outlives any single caller:
// a caller whose ctx ends stops waiting without failing the others.
func (s *AnalysisService) Refresh(ctx context.Context) (*domain.AnalysisReport, error) {
	ch := s.group.DoChan("refresh", func() (interface{}, error) {
		return s.load(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.AnalysisReport), nil
	}
}

func (s *AnalysisService) load(ctx context.Context) (*domain.AnalysisReport, error) {
	start := time.Now()

	sources := make(map[domain.Country]string, len(domain.AllCountries))
	for _, c := range domain.AllCountries {
		path := s.paths.CleanedFile(c)
		if config.FileExists(path) {
			sources[c] = path
		}
	}
	if len(sources) == 0 {
		s.logger.WarnContext(ctx, "no cleaned files found", slog.String("cleaned_dir", s.paths.CleanedDir))
		return nil, fmt.Errorf("%w in %s", ErrNoData, s.paths.CleanedDir)
	}

	datasets, err := s.loader.LoadAll(ctx, sources)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load cleaned files", slog.String("error", err.Error()))
		return nil, fmt.Errorf("load cleaned files: %w", err)
	}

	report, err := analytics.Analyze(ctx, datasets, s.options)
	if err != nil {
		if errors.Is(err, analytics.ErrNoDatasets) {
			return nil, fmt.Errorf("%w: %v", ErrNoData, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	s.mu.Lock()
	s.datasets = datasets
	s.report = report
	s.loadedAt = time.Now()
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "analysis report refreshed",
		slog.Int("countries", len(datasets)),
		slog.Int("summaries", len(report.Summaries)),
		slog.Duration("duration", time.Since(start)))

	return report, nil
}

// Loaded reports whether a report is cached
func (s *AnalysisService) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report != nil
}

// LoadedAt returns when the cached report was computed
func (s *AnalysisService) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// snapshot returns the cached data, loading it on first use
func (s *AnalysisService) snapshot(ctx context.Context) ([]*domain.Dataset, *domain.AnalysisReport, error) {
	s.mu.RLock()
	datasets, report := s.datasets, s.report
	s.mu.RUnlock()
	if report != nil {
		return datasets, report, nil
	}

	if _, err := s.Refresh(ctx); err != nil {
		return nil, nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.datasets, s.report, nil
}

// Report returns the full cached report
func (s *AnalysisService) Report(ctx context.Context) (*domain.AnalysisReport, error) {
	_, report, err := s.snapshot(ctx)
	return report, err
}

// Countries lists the loaded country datasets in report order
func (s *AnalysisService) Countries(ctx context.Context) ([]CountryInfo, error) {
	datasets, _, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]CountryInfo, 0, len(datasets))
	for _, ds := range ordered(datasets) {
		first, last := ds.TimeRange()
		out = append(out, CountryInfo{
			Country: ds.Country,
			Name:    ds.Country.DisplayName(),
			Records: ds.Len(),
			Source:  ds.Source,
			First:   first,
			Last:    last,
		})
	}
	return out, nil
}

// Summary returns the descriptive statistics of metric for the given
// countries. An empty metric returns every metric; no countries means all.
func (s *AnalysisService) Summary(ctx context.Context, metric string, countries []string) ([]domain.MetricSummary, error) {
	_, report, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var filterMetric *domain.Metric
	if strings.TrimSpace(metric) != "" {
		m, err := parseMetric(metric, report.PrimaryMetric)
		if err != nil {
			return nil, err
		}
		filterMetric = &m
	}
	selected, err := parseCountries(countries)
	if err != nil {
		return nil, err
	}

	out := make([]domain.MetricSummary, 0, len(report.Summaries))
	for _, ms := range report.Summaries {
		if filterMetric != nil && ms.Metric != *filterMetric {
			continue
		}
		if selected != nil && !selected[ms.Country] {
			continue
		}
		out = append(out, ms)
	}
	return out, nil
}

// Ranking orders the countries by the mean of metric
func (s *AnalysisService) Ranking(ctx context.Context, metric string) (domain.Ranking, error) {
	_, report, err := s.snapshot(ctx)
	if err != nil {
		return domain.Ranking{}, err
	}
	m, err := parseMetric(metric, report.PrimaryMetric)
	if err != nil {
		return domain.Ranking{}, err
	}
	if ranking, ok := report.RankingFor(m); ok {
		return ranking, nil
	}
	return domain.Ranking{Metric: m, Entries: []domain.RankEntry{}}, nil
}

// Tests runs one-way ANOVA and Kruskal-Wallis across countries for metric.
// A test that cannot run is reported in Errors.
func (s *AnalysisService) Tests(ctx context.Context, metric string) (TestsResult, error) {
	datasets, report, err := s.snapshot(ctx)
	if err != nil {
		return TestsResult{}, err
	}
	m, err := parseMetric(metric, report.PrimaryMetric)
	if err != nil {
		return TestsResult{}, err
	}

	if m == report.PrimaryMetric {
		return TestsResult{
			Metric:        m,
			ANOVA:         report.ANOVA,
			KruskalWallis: report.KruskalWallis,
			Errors:        report.TestErrors,
		}, nil
	}

	groups := make(map[string][]float64, len(datasets))
	for _, ds := range datasets {
		groups[string(ds.Country)] = ds.Column(m)
	}

	result := TestsResult{Metric: m}
	if res, err := analytics.OneWayANOVA(groups, s.options.Alpha); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", analytics.NameANOVA, err))
	} else {
		tr := res.ForMetric(m)
		result.ANOVA = &tr
	}
	if res, err := analytics.KruskalWallis(groups, s.options.Alpha); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", analytics.NameKruskalWallis, err))
	} else {
		tr := res.ForMetric(m)
		result.KruskalWallis = &tr
	}
	return result, nil
}

// Correlation returns the pooled Pearson matrix
func (s *AnalysisService) Correlation(ctx context.Context) (domain.CorrelationMatrix, error) {
	_, report, err := s.snapshot(ctx)
	if err != nil {
		return domain.CorrelationMatrix{}, err
	}
	return report.Correlation, nil
}

// Aggregate averages metrics per period bucket. Empty period means daily,
// no metrics means the primary metric.
func (s *AnalysisService) Aggregate(ctx context.Context, period string, metrics, countries []string) ([]domain.AggregatePoint, error) {
	datasets, report, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	p := domain.Period(strings.ToLower(strings.TrimSpace(period)))
	if p == "" {
		p = domain.PeriodDaily
	}
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}

	selectedMetrics := []domain.Metric{report.PrimaryMetric}
	if len(metrics) > 0 {
		if selectedMetrics, err = domain.ParseMetrics(metrics); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnknownMetric, err)
		}
	}

	filtered, err := filterDatasets(datasets, countries)
	if err != nil {
		return nil, err
	}

	points, err := analytics.Aggregate(filtered, p, selectedMetrics)
	if err != nil {
		if errors.Is(err, analytics.ErrInvalidPeriod) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPeriod, err)
		}
		return nil, err
	}
	return points, nil
}

// Diurnal returns the hour-of-day profile of metric per country
func (s *AnalysisService) Diurnal(ctx context.Context, metric string, countries []string) ([]domain.HourlyProfile, error) {
	datasets, report, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	m, err := parseMetric(metric, report.PrimaryMetric)
	if err != nil {
		return nil, err
	}
	filtered, err := filterDatasets(datasets, countries)
	if err != nil {
		return nil, err
	}

	out := make([]domain.HourlyProfile, 0, len(filtered))
	for _, ds := range ordered(filtered) {
		out = append(out, analytics.DiurnalProfile(ds, m))
	}
	return out, nil
}

// Distribution bins metric per country over edges shared by every selected
// country. Zero bins means analytics.DefaultHistogramBins.
func (s *AnalysisService) Distribution(ctx context.Context, metric string, bins int, countries []string) (domain.Histogram, error) {
	datasets, report, err := s.snapshot(ctx)
	if err != nil {
		return domain.Histogram{}, err
	}
	m, err := parseMetric(metric, report.PrimaryMetric)
	if err != nil {
		return domain.Histogram{}, err
	}
	filtered, err := filterDatasets(datasets, countries)
	if err != nil {
		return domain.Histogram{}, err
	}

	h, err := analytics.Histogram(filtered, m, bins)
	switch {
	case errors.Is(err, analytics.ErrInvalidBins):
		return domain.Histogram{}, fmt.Errorf("%w: %v", ErrInvalidBins, err)
	case errors.Is(err, analytics.ErrEmptySample):
		return domain.Histogram{}, fmt.Errorf("%w: no %s values for the selected countries", ErrNoData, m)
	case err != nil:
		return domain.Histogram{}, err
	}
	return h, nil
}

// Recommendations returns the investment guidance of the cached report
func (s *AnalysisService) Recommendations(ctx context.Context) (*domain.Recommendations, error) {
	_, report, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if report.Recommendations == nil {
		return nil, fmt.Errorf("%w: recommendations need GHI summaries", ErrNoData)
	}
	return report.Recommendations, nil
}

// parseMetric resolves a metric name; empty means fallback
func parseMetric(name string, fallback domain.Metric) (domain.Metric, error) {
	if strings.TrimSpace(name) == "" {
		return fallback, nil
	}
	m, err := domain.ParseMetric(name)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
	return m, nil
}

// parseCountries returns the selected set, or nil when every country is selected
func parseCountries(values []string) (map[domain.Country]bool, error) {
	var names []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				names = append(names, part)
			}
		}
	}
	if len(names) == 0 {
		return nil, nil
	}

	countries, err := domain.ParseCountries(names)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownCountry, err)
	}
	set := make(map[domain.Country]bool, len(countries))
	for _, c := range countries {
		set[c] = true
	}
	return set, nil
}

func filterDatasets(datasets []*domain.Dataset, countries []string) ([]*domain.Dataset, error) {
	selected, err := parseCountries(countries)
	if err != nil {
		return nil, err
	}
	if selected == nil {
		return datasets, nil
	}
	out := make([]*domain.Dataset, 0, len(selected))
	for _, ds := range datasets {
		if selected[ds.Country] {
			out = append(out, ds)
		}
	}
	return out, nil
}

func ordered(datasets []*domain.Dataset) []*domain.Dataset {
	byCountry := make(map[domain.Country]*domain.Dataset, len(datasets))
	for _, ds := range datasets {
		byCountry[ds.Country] = ds
	}
	out := make([]*domain.Dataset, 0, len(datasets))
	for _, c := range ingest.SortedCountries(byCountry) {
		out = append(out, byCountry[c])
	}
	return out
}

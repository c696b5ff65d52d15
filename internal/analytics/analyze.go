package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"solarcli/internal/config"
	"solarcli/pkg/contracts/domain"
)

// Options configures an analysis run
type Options struct {
	PrimaryMetric  domain.Metric
	SummaryMetrics []domain.Metric
	Alpha          float64
	Thresholds     Thresholds
	// HistogramBins is the bin count of the primary metric distribution
	HistogramBins   int
	CleaningReports []*domain.CleaningReport
}

// DefaultOptions analyzes GHI over every metric at alpha 0.05
func DefaultOptions() Options {
	return Options{
		PrimaryMetric:  domain.MetricGHI,
		SummaryMetrics: domain.AllMetrics(),
		Alpha:          DefaultAlpha,
		Thresholds:     DefaultThresholds(),
		HistogramBins:  DefaultHistogramBins,
	}
}

// OptionsFromConfig maps the analysis section of the application config
func OptionsFromConfig(ac config.AnalysisConfig) (Options, error) {
	primary, err := domain.ParseMetric(ac.PrimaryMetric)
	if err != nil {
		return Options{}, fmt.Errorf("primary metric: %w", err)
	}
	opts := DefaultOptions()
	opts.PrimaryMetric = primary
	opts.Alpha = ac.Alpha
	opts.Thresholds = Thresholds{
		CSPMinDNI:       ac.CSPMinDNI,
		HeatAlertTamb:   ac.HeatAlertTamb,
		HumidityAlertRH: ac.HumidityAlertRH,
	}
	return opts, nil
}

// Analyze runs every comparison over the datasets and bundles the results.
// Failed significance tests and recommendations are reported inside the
// result; only cancellation and an empty input are returned as errors.
func Analyze(ctx context.Context, datasets []*domain.Dataset, opts Options) (*domain.AnalysisReport, error) {
	if len(datasets) == 0 {
		return nil, ErrNoDatasets
	}
	if !opts.PrimaryMetric.Valid() {
		return nil, fmt.Errorf("primary metric %d is not a known metric", int(opts.PrimaryMetric))
	}
	if len(opts.SummaryMetrics) == 0 {
		opts.SummaryMetrics = domain.AllMetrics()
	}

	ordered := append([]*domain.Dataset(nil), datasets...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Country.Order() < ordered[j].Country.Order()
	})

	report := &domain.AnalysisReport{
		GeneratedAt:     time.Now().UTC(),
		PrimaryMetric:   opts.PrimaryMetric,
		Records:         make(map[domain.Country]int, len(ordered)),
		CleaningReports: opts.CleaningReports,
	}
	for _, ds := range ordered {
		report.Countries = append(report.Countries, ds.Country)
		report.Records[ds.Country] = ds.Len()
	}

	summaries, err := SummarizeCountries(ctx, ordered, opts.SummaryMetrics)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	report.Summaries = summaries

	for _, m := range opts.SummaryMetrics {
		if ranking := Rank(summaries, m); len(ranking.Entries) > 0 {
			report.Rankings = append(report.Rankings, ranking)
		}
	}

	groups := make(map[string][]float64, len(ordered))
	for _, ds := range ordered {
		groups[string(ds.Country)] = ds.Column(opts.PrimaryMetric)
	}
	if res, err := OneWayANOVA(groups, opts.Alpha); err != nil {
		report.TestErrors = append(report.TestErrors, fmt.Sprintf("%s: %v", NameANOVA, err))
	} else {
		tr := res.ForMetric(opts.PrimaryMetric)
		report.ANOVA = &tr
	}
	if res, err := KruskalWallis(groups, opts.Alpha); err != nil {
		report.TestErrors = append(report.TestErrors, fmt.Sprintf("%s: %v", NameKruskalWallis, err))
	} else {
		tr := res.ForMetric(opts.PrimaryMetric)
		report.KruskalWallis = &tr
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report.Correlation = CorrelationMatrix(ordered, domain.CorrelationMetrics)

	for _, ds := range ordered {
		report.Diurnal = append(report.Diurnal, DiurnalProfile(ds, opts.PrimaryMetric))
		report.CleaningImpact = append(report.CleaningImpact, CleaningImpact(ds))
	}

	if hist, err := Histogram(ordered, opts.PrimaryMetric, opts.HistogramBins); err == nil {
		report.Distribution = &hist
	}

	if rec, err := Recommend(summaries, opts.Thresholds); err == nil {
		report.Recommendations = rec
	}

	return report, nil
}

package analytics

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarcli/internal/config"
	"solarcli/pkg/contracts/domain"
)

func summary(c domain.Country, m domain.Metric, s domain.Summary) domain.MetricSummary {
	return domain.MetricSummary{Country: c, Metric: m, Summary: s}
}

func TestRecommend(t *testing.T) {
	summaries := []domain.MetricSummary{
		summary(domain.CountryTogo, domain.MetricGHI, domain.Summary{Mean: 230, Median: 5, Std: 320}),
		summary(domain.CountryBenin, domain.MetricGHI, domain.Summary{Mean: 240, Median: 2, Std: 330}),
		summary(domain.CountrySierraLeone, domain.MetricGHI, domain.Summary{Mean: 200, Median: 9, Std: 300}),
		summary(domain.CountryBenin, domain.MetricDNI, domain.Summary{Mean: 420}),
		summary(domain.CountryTogo, domain.MetricDNI, domain.Summary{Mean: 150}),
		summary(domain.CountryBenin, domain.MetricTamb, domain.Summary{Max: 43.5}),
		summary(domain.CountryTogo, domain.MetricTamb, domain.Summary{Max: 39}),
		summary(domain.CountrySierraLeone, domain.MetricRH, domain.Summary{Mean: 79.4}),
		summary(domain.CountryBenin, domain.MetricRH, domain.Summary{Mean: 55}),
	}

	rec, err := Recommend(summaries, DefaultThresholds())
	require.NoError(t, err)

	assert.Equal(t, domain.CountryBenin, rec.PrimaryTarget)
	assert.Equal(t, 240.0, rec.PrimaryMeanGHI)
	assert.Equal(t, domain.CountrySierraLeone, rec.SecondaryTarget)
	assert.Equal(t, 9.0, rec.SecondaryMedianGHI)
	assert.Equal(t, domain.CountrySierraLeone, rec.MostConsistent)
	assert.Equal(t, 300.0, rec.MostConsistentStd)

	assert.Equal(t, []domain.TechnologyChoice{
		{Country: domain.CountryBenin, Technology: domain.TechnologyCSP, MeanDNI: 420},
		{Country: domain.CountryTogo, Technology: domain.TechnologyPV, MeanDNI: 150},
	}, rec.Technologies)

	require.Len(t, rec.HeatAlerts, 1)
	assert.Equal(t, domain.CountryBenin, rec.HeatAlerts[0].Country)
	assert.Equal(t, 40.0, rec.HeatAlerts[0].Threshold)
	assert.Contains(t, rec.HeatAlerts[0].Message, "Benin")

	require.Len(t, rec.HumidityAlerts, 1)
	assert.Equal(t, domain.CountrySierraLeone, rec.HumidityAlerts[0].Country)
	assert.Equal(t, 79.4, rec.HumidityAlerts[0].Value)
	assert.Contains(t, rec.HumidityAlerts[0].Message, "cleaning")
}

func TestRecommend_TiesKeepReportOrder(t *testing.T) {
	summaries := []domain.MetricSummary{
		summary(domain.CountryTogo, domain.MetricGHI, domain.Summary{Mean: 200, Median: 10, Std: 5}),
		summary(domain.CountryBenin, domain.MetricGHI, domain.Summary{Mean: 200, Median: 10, Std: 5}),
	}

	rec, err := Recommend(summaries, DefaultThresholds())
	require.NoError(t, err)
	assert.Equal(t, domain.CountryBenin, rec.PrimaryTarget)
	assert.Equal(t, domain.CountryBenin, rec.SecondaryTarget)
	assert.Equal(t, domain.CountryBenin, rec.MostConsistent)
	assert.Empty(t, rec.Technologies)
	assert.NotNil(t, rec.HeatAlerts)
}

func TestRecommend_RequiresGHI(t *testing.T) {
	_, err := Recommend([]domain.MetricSummary{
		summary(domain.CountryBenin, domain.MetricDNI, domain.Summary{Mean: 500}),
	}, DefaultThresholds())
	assert.ErrorIs(t, err, ErrEmptySample)
}

func TestOptionsFromConfig(t *testing.T) {
	opts, err := OptionsFromConfig(config.AnalysisConfig{
		PrimaryMetric:   "dni",
		Alpha:           0.01,
		CSPMinDNI:       350,
		HeatAlertTamb:   38,
		HumidityAlertRH: 80,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MetricDNI, opts.PrimaryMetric)
	assert.Equal(t, 0.01, opts.Alpha)
	assert.Equal(t, Thresholds{CSPMinDNI: 350, HeatAlertTamb: 38, HumidityAlertRH: 80}, opts.Thresholds)
	assert.Len(t, opts.SummaryMetrics, int(domain.MetricCount))

	_, err = OptionsFromConfig(config.AnalysisConfig{PrimaryMetric: "lux"})
	assert.Error(t, err)
}

func stationDataset(country domain.Country, ghi []float64, cleaning bool) *domain.Dataset {
	ds := &domain.Dataset{Country: country}
	start := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
	for i, v := range ghi {
		m := measurement(start.Add(time.Duration(i)*time.Hour), map[domain.Metric]float64{
			domain.MetricGHI:  v,
			domain.MetricDNI:  v * 1.5,
			domain.MetricModA: v * 0.9,
			domain.MetricTamb: 25 + float64(i),
			domain.MetricRH:   70,
		})
		m.Cleaning = cleaning && i == 0
		ds.Records = append(ds.Records, m)
	}
	return ds
}

func TestAnalyze(t *testing.T) {
	datasets := []*domain.Dataset{
		stationDataset(domain.CountryTogo, []float64{7, 8, 9}, false),
		stationDataset(domain.CountryBenin, []float64{1, 2, 3}, true),
		stationDataset(domain.CountrySierraLeone, []float64{4, 5, 6}, false),
	}
	reports := []*domain.CleaningReport{domain.NewCleaningReport(domain.CountryBenin, "benin.csv")}

	opts := DefaultOptions()
	opts.CleaningReports = reports

	report, err := Analyze(context.Background(), datasets, opts)
	require.NoError(t, err)

	assert.Equal(t, []domain.Country{domain.CountryBenin, domain.CountrySierraLeone, domain.CountryTogo}, report.Countries)
	assert.Equal(t, 3, report.Records[domain.CountryTogo])
	assert.Equal(t, domain.MetricGHI, report.PrimaryMetric)
	assert.False(t, report.GeneratedAt.IsZero())

	s, ok := report.SummaryFor(domain.CountryTogo, domain.MetricGHI)
	require.True(t, ok)
	assert.Equal(t, 8.0, s.Mean)

	ranking, ok := report.RankingFor(domain.MetricGHI)
	require.True(t, ok)
	assert.Equal(t, domain.CountryTogo, ranking.Entries[0].Country)
	_, ok = report.RankingFor(domain.MetricBP)
	assert.False(t, ok, "metrics without data are not ranked")

	require.NotNil(t, report.ANOVA)
	assert.InDelta(t, 27.0, report.ANOVA.Statistic, 1e-9)
	assert.Equal(t, domain.MetricGHI, report.ANOVA.Metric)
	require.NotNil(t, report.KruskalWallis)
	assert.InDelta(t, 7.2, report.KruskalWallis.Statistic, 1e-9)
	assert.Empty(t, report.TestErrors)

	ghiDNI, _ := report.Correlation.Get(domain.MetricGHI, domain.MetricDNI)
	assert.InDelta(t, 1.0, ghiDNI, 1e-9)

	require.Len(t, report.Diurnal, 3)
	assert.Equal(t, domain.CountryBenin, report.Diurnal[0].Country)
	assert.Equal(t, 1.0, report.Diurnal[0].Means[6])

	require.Len(t, report.CleaningImpact, 3)
	assert.Equal(t, 1, report.CleaningImpact[0].CleanedRows)

	require.NotNil(t, report.Distribution)
	assert.Equal(t, DefaultHistogramBins, report.Distribution.Bins())
	assert.Equal(t, 1.0, report.Distribution.Edges[0])
	assert.Equal(t, 9.0, report.Distribution.Edges[DefaultHistogramBins])
	require.Len(t, report.Distribution.Series, 3)
	assert.Equal(t, domain.CountryBenin, report.Distribution.Series[0].Country)

	require.NotNil(t, report.Recommendations)
	assert.Equal(t, domain.CountryTogo, report.Recommendations.PrimaryTarget)
	assert.Equal(t, reports, report.CleaningReports)

	_, err = json.Marshal(report)
	assert.NoError(t, err, "report must be JSON encodable")
}

func TestAnalyze_TestFailuresAreReported(t *testing.T) {
	datasets := []*domain.Dataset{stationDataset(domain.CountryBenin, []float64{1, 2, 3}, false)}

	report, err := Analyze(context.Background(), datasets, DefaultOptions())
	require.NoError(t, err)
	assert.Nil(t, report.ANOVA)
	assert.Nil(t, report.KruskalWallis)
	assert.Len(t, report.TestErrors, 2)
	assert.Contains(t, report.TestErrors[0], NameANOVA)
}

func TestAnalyze_Errors(t *testing.T) {
	_, err := Analyze(context.Background(), nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrNoDatasets)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Analyze(ctx, []*domain.Dataset{ghiDataset(domain.CountryBenin, 1, 2)}, DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

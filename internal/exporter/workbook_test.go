package exporter

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"solarcli/internal/infrastructure"
	"solarcli/pkg/contracts/domain"
)

func sampleReport() *domain.AnalysisReport {
	anova := domain.TestResult{Test: "one-way ANOVA", Metric: domain.MetricGHI, Statistic: 27, PValue: 0.001, DF1: 2, DF2: 6, Alpha: 0.05, Significant: true, Groups: 3, N: 9}

	diurnal := []domain.HourlyProfile{
		{Country: domain.CountryBenin, Metric: domain.MetricGHI},
		{Country: domain.CountryTogo, Metric: domain.MetricGHI},
	}
	diurnal[0].Means[12] = 850
	diurnal[1].Means[12] = 790

	cleaning := domain.NewCleaningReport(domain.CountryBenin, "benin.csv")
	cleaning.InputRows = 100
	cleaning.OutputRows = 98
	cleaning.DroppedDuplicates = 2

	return &domain.AnalysisReport{
		GeneratedAt:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		PrimaryMetric: domain.MetricGHI,
		Countries:     []domain.Country{domain.CountryBenin, domain.CountryTogo},
		Summaries: []domain.MetricSummary{
			{Country: domain.CountryBenin, Metric: domain.MetricGHI, Summary: domain.Summary{Count: 10, Mean: 240}},
			{Country: domain.CountryTogo, Metric: domain.MetricGHI, Summary: domain.Summary{Count: 10, Mean: 230}},
		},
		Rankings: []domain.Ranking{
			{Metric: domain.MetricDNI, Entries: []domain.RankEntry{{Rank: 1, Country: domain.CountryTogo, Value: 170}}},
			{Metric: domain.MetricGHI, Entries: []domain.RankEntry{
				{Rank: 1, Country: domain.CountryBenin, Value: 240},
				{Rank: 2, Country: domain.CountryTogo, Value: 230},
			}},
		},
		ANOVA:      &anova,
		TestErrors: []string{"Kruskal-Wallis H: test statistic is undefined for this sample"},
		Correlation: domain.CorrelationMatrix{
			Metrics: []domain.Metric{domain.MetricGHI, domain.MetricDNI},
			Values:  [][]float64{{1, 0.8}, {0.8, 1}},
		},
		Diurnal: diurnal,
		Distribution: &domain.Histogram{
			Metric: domain.MetricGHI,
			Edges:  []float64{0, 500, 1000},
			Series: []domain.HistogramSeries{
				{Country: domain.CountryBenin, Counts: []int{6, 4}, Total: 10},
				{Country: domain.CountryTogo, Counts: []int{7, 3}, Total: 10},
			},
		},
		CleaningImpact:  []domain.CleaningImpact{{Country: domain.CountryBenin, CleanedRows: 1, UncleanedRows: 9, ModAWithCleaning: 900, ModAWithout: 850}},
		CleaningReports: []*domain.CleaningReport{cleaning},
		Recommendations: &domain.Recommendations{
			PrimaryTarget:   domain.CountryBenin,
			PrimaryMeanGHI:  240,
			SecondaryTarget: domain.CountryTogo,
			MostConsistent:  domain.CountryTogo,
			Technologies:    []domain.TechnologyChoice{{Country: domain.CountryBenin, Technology: domain.TechnologyPV, MeanDNI: 160}},
			HeatAlerts:      []domain.Alert{{Country: domain.CountryBenin, Metric: domain.MetricTamb, Value: 43, Threshold: 40, Message: "hot"}},
		},
	}
}

func TestWorkbookWriter_Build(t *testing.T) {
	w := NewWorkbookWriter(infrastructure.NewLogger("error", io.Discard))

	f, err := w.Build(sampleReport())
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, WorkbookSheets, f.GetSheetList())

	cell := func(sheet, axis string) string {
		v, err := f.GetCellValue(sheet, axis)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "Country", cell(SheetSummary, "A1"))
	assert.Equal(t, "Benin", cell(SheetSummary, "A2"))
	assert.Equal(t, "GHI", cell(SheetSummary, "B3"))

	assert.Equal(t, "GHI", cell(SheetRanking, "A2"), "primary metric ranking comes first")
	assert.Equal(t, "Benin", cell(SheetRanking, "C2"))
	assert.Equal(t, "Togo", cell(SheetRanking, "C3"))
	assert.Equal(t, "DNI", cell(SheetRanking, "A4"))

	assert.Equal(t, "one-way ANOVA", cell(SheetTests, "A2"))
	assert.Equal(t, "error", cell(SheetTests, "A3"))

	assert.Equal(t, "DNI", cell(SheetCorrelation, "C1"))
	assert.Equal(t, "GHI", cell(SheetCorrelation, "A2"))

	assert.Equal(t, "Hour", cell(SheetDiurnal, "A1"))
	assert.Equal(t, "Togo", cell(SheetDiurnal, "C1"))
	assert.Equal(t, "23", cell(SheetDiurnal, "A25"))

	assert.Equal(t, "Bin", cell(SheetDistribution, "A1"))
	assert.Equal(t, "Togo", cell(SheetDistribution, "E1"))
	assert.Equal(t, "500.0-1000.0", cell(SheetDistribution, "A3"))
	assert.Equal(t, "6", cell(SheetDistribution, "D2"))
	assert.Equal(t, "3", cell(SheetDistribution, "E3"))
	assert.Equal(t, "", cell(SheetDistribution, "A4"))

	// ranking, diurnal and distribution each carry one chart
	for _, part := range []string{"xl/charts/chart1.xml", "xl/charts/chart2.xml", "xl/charts/chart3.xml"} {
		_, ok := f.Pkg.Load(part)
		assert.True(t, ok, part)
	}

	assert.Equal(t, "Benin", cell(SheetCleaning, "A2"))
	assert.Equal(t, "CleanedRows", cell(SheetCleaning, "B4"))

	assert.Equal(t, "Primary target", cell(SheetRecommendations, "A2"))
	assert.Equal(t, "Technology", cell(SheetRecommendations, "A5"))
	assert.Equal(t, "PV", cell(SheetRecommendations, "D5"))
	assert.Equal(t, "Heat alert", cell(SheetRecommendations, "A6"))
}

func TestWorkbookWriter_WriteAndReopen(t *testing.T) {
	w := NewWorkbookWriter(nil)
	path := filepath.Join(t.TempDir(), "reports", "solar_report.xlsx")

	require.NoError(t, w.Write(path, sampleReport()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, WorkbookSheets, f.GetSheetList())

	var buf bytes.Buffer
	require.NoError(t, w.WriteTo(&buf, sampleReport()))
	reopened, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, WorkbookSheets, reopened.GetSheetList())
}

func TestWorkbookWriter_SparseReport(t *testing.T) {
	w := NewWorkbookWriter(nil)

	f, err := w.Build(&domain.AnalysisReport{PrimaryMetric: domain.MetricGHI})
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue(SheetRecommendations, "A2")
	require.NoError(t, err)
	assert.Equal(t, "none", v)

	v, err = f.GetCellValue(SheetDistribution, "A2")
	require.NoError(t, err)
	assert.Equal(t, "none", v)

	_, err = w.Build(nil)
	assert.Error(t, err)
}

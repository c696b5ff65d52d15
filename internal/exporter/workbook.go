package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"solarcli/internal/infrastructure"
	"solarcli/pkg/contracts/domain"
)

// Workbook sheet names in tab order
const (
	SheetSummary         = "Summary"
	SheetRanking         = "Ranking"
	SheetTests           = "Tests"
	SheetCorrelation     = "Correlation"
	SheetDiurnal         = "Diurnal"
	SheetDistribution    = "Distribution"
	SheetCleaning        = "Cleaning"
	SheetRecommendations = "Recommendations"
)

// WorkbookSheets lists the sheets of the report workbook in tab order
var WorkbookSheets = []string{
	SheetSummary, SheetRanking, SheetTests, SheetCorrelation,
	SheetDiurnal, SheetDistribution, SheetCleaning, SheetRecommendations,
}

// WorkbookWriter renders an analysis report as an Excel workbook with native charts
type WorkbookWriter struct {
	logger *slog.Logger
}

// NewWorkbookWriter creates a workbook writer
func NewWorkbookWriter(logger *slog.Logger) *WorkbookWriter {
	return &WorkbookWriter{logger: infrastructure.WithComponent(logger, "workbook")}
}

// Write renders report to an .xlsx file at path
func (w *WorkbookWriter) Write(path string, report *domain.AnalysisReport) error {
	f, err := w.Build(report)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	w.logger.Info("wrote report workbook",
		slog.String("path", path),
		slog.Int("countries", len(report.Countries)))
	return nil
}

// WriteTo renders report into out
func (w *WorkbookWriter) WriteTo(out io.Writer, report *domain.AnalysisReport) error {
	f, err := w.Build(report)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(out)
}

// Build renders report into a new workbook; the caller closes it
func (w *WorkbookWriter) Build(report *domain.AnalysisReport) (*excelize.File, error) {
	if report == nil {
		return nil, fmt.Errorf("no analysis report to render")
	}

	f := excelize.NewFile()
	b := &workbookBuilder{f: f, report: report}

	steps := []func() error{
		b.createSheets,
		b.styles,
		b.summarySheet,
		b.rankingSheet,
		b.testsSheet,
		b.correlationSheet,
		b.diurnalSheet,
		b.distributionSheet,
		b.cleaningSheet,
		b.recommendationsSheet,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

type workbookBuilder struct {
	f      *excelize.File
	report *domain.AnalysisReport
	header int
	number int
}

func (b *workbookBuilder) createSheets() error {
	if err := b.f.SetSheetName("Sheet1", WorkbookSheets[0]); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range WorkbookSheets[1:] {
		if _, err := b.f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}
	b.f.SetActiveSheet(0)
	return nil
}

func (b *workbookBuilder) styles() error {
	var err error
	b.header, err = b.f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	numFmt := "0.00"
	b.number, err = b.f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return fmt.Errorf("failed to create number style: %w", err)
	}
	return nil
}

// row writes values starting at column A of row (1-based)
func (b *workbookBuilder) row(sheet string, row int, values ...interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return b.f.SetSheetRow(sheet, cell, &values)
}

// headerRow writes a bold first row and freezes it
func (b *workbookBuilder) headerRow(sheet string, row int, headers ...string) error {
	values := make([]interface{}, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	if err := b.row(sheet, row, values...); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), row)
	if err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	if err := b.f.SetCellStyle(sheet, first, last, b.header); err != nil {
		return err
	}
	if row != 1 {
		return nil
	}
	return b.f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func (b *workbookBuilder) numberColumns(sheet, fromCol, toCol string, firstRow, lastRow int) error {
	if lastRow < firstRow {
		return nil
	}
	return b.f.SetCellStyle(sheet,
		fmt.Sprintf("%s%d", fromCol, firstRow),
		fmt.Sprintf("%s%d", toCol, lastRow),
		b.number)
}

func (b *workbookBuilder) summarySheet() error {
	if err := b.headerRow(SheetSummary, 1, SummaryHeaders...); err != nil {
		return err
	}
	for i, s := range b.report.Summaries {
		if err := b.row(SheetSummary, i+2,
			s.Country.DisplayName(), s.Metric.String(), s.Count,
			s.Mean, s.Std, s.Min, s.P25, s.Median, s.P75, s.Max, s.CV); err != nil {
			return err
		}
	}
	if err := b.numberColumns(SheetSummary, "D", "K", 2, len(b.report.Summaries)+1); err != nil {
		return err
	}
	return b.f.SetColWidth(SheetSummary, "A", "B", 16)
}

// rankingSheet lists the primary metric first so the chart covers rows 2..n+1
func (b *workbookBuilder) rankingSheet() error {
	if err := b.headerRow(SheetRanking, 1, "Metric", "Rank", "Country", "Mean"); err != nil {
		return err
	}

	rankings := make([]domain.Ranking, 0, len(b.report.Rankings))
	var primaryRows int
	if primary, ok := b.report.RankingFor(b.report.PrimaryMetric); ok {
		rankings = append(rankings, primary)
		primaryRows = len(primary.Entries)
	}
	for _, rk := range b.report.Rankings {
		if rk.Metric != b.report.PrimaryMetric {
			rankings = append(rankings, rk)
		}
	}

	row := 2
	for _, rk := range rankings {
		for _, e := range rk.Entries {
			if err := b.row(SheetRanking, row, rk.Metric.String(), e.Rank, e.Country.DisplayName(), e.Value); err != nil {
				return err
			}
			row++
		}
	}
	if err := b.numberColumns(SheetRanking, "D", "D", 2, row-1); err != nil {
		return err
	}
	if err := b.f.SetColWidth(SheetRanking, "C", "C", 16); err != nil {
		return err
	}
	if primaryRows == 0 {
		return nil
	}

	metric := b.report.PrimaryMetric
	return b.f.AddChart(SheetRanking, "F2", &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("Mean %s", metric),
			Categories: fmt.Sprintf("%s!$C$2:$C$%d", SheetRanking, primaryRows+1),
			Values:     fmt.Sprintf("%s!$D$2:$D$%d", SheetRanking, primaryRows+1),
		}},
		Title:  []excelize.RichTextRun{{Text: fmt.Sprintf("Mean %s by country", metric.DisplayName())}},
		Legend: excelize.ChartLegend{Position: "none"},
	})
}

func (b *workbookBuilder) testsSheet() error {
	if err := b.headerRow(SheetTests, 1,
		"Test", "Metric", "Statistic", "PValue", "DF1", "DF2", "Alpha", "Significant", "Groups", "N"); err != nil {
		return err
	}
	row := 2
	for _, tr := range []*domain.TestResult{b.report.ANOVA, b.report.KruskalWallis} {
		if tr == nil {
			continue
		}
		if err := b.row(SheetTests, row, tr.Test, tr.Metric.String(), tr.Statistic, tr.PValue,
			tr.DF1, tr.DF2, tr.Alpha, tr.Significant, tr.Groups, tr.N); err != nil {
			return err
		}
		row++
	}
	for _, msg := range b.report.TestErrors {
		if err := b.row(SheetTests, row, "error", msg); err != nil {
			return err
		}
		row++
	}
	return b.f.SetColWidth(SheetTests, "A", "A", 20)
}

func (b *workbookBuilder) correlationSheet() error {
	metrics := b.report.Correlation.Metrics
	headers := make([]string, 0, len(metrics)+1)
	headers = append(headers, "")
	for _, m := range metrics {
		headers = append(headers, m.String())
	}
	if err := b.headerRow(SheetCorrelation, 1, headers...); err != nil {
		return err
	}
	for i, m := range metrics {
		values := make([]interface{}, 0, len(metrics)+1)
		values = append(values, m.String())
		for _, v := range b.report.Correlation.Values[i] {
			values = append(values, v)
		}
		if err := b.row(SheetCorrelation, i+2, values...); err != nil {
			return err
		}
	}
	if len(metrics) == 0 {
		return nil
	}
	lastCol, err := excelize.ColumnNumberToName(len(metrics) + 1)
	if err != nil {
		return err
	}
	return b.numberColumns(SheetCorrelation, "B", lastCol, 2, len(metrics)+1)
}

// diurnalSheet writes hours down column A and one column per country
func (b *workbookBuilder) diurnalSheet() error {
	profiles := b.report.Diurnal
	headers := make([]string, 0, len(profiles)+1)
	headers = append(headers, "Hour")
	for _, p := range profiles {
		headers = append(headers, p.Country.DisplayName())
	}
	if err := b.headerRow(SheetDiurnal, 1, headers...); err != nil {
		return err
	}

	for h := 0; h < 24; h++ {
		values := make([]interface{}, 0, len(profiles)+1)
		values = append(values, h)
		for _, p := range profiles {
			values = append(values, p.Means[h])
		}
		if err := b.row(SheetDiurnal, h+2, values...); err != nil {
			return err
		}
	}
	if len(profiles) == 0 {
		return nil
	}

	series := make([]excelize.ChartSeries, 0, len(profiles))
	for i, p := range profiles {
		col, err := excelize.ColumnNumberToName(i + 2)
		if err != nil {
			return err
		}
		series = append(series, excelize.ChartSeries{
			Name:       p.Country.DisplayName(),
			Categories: fmt.Sprintf("%s!$A$2:$A$25", SheetDiurnal),
			Values:     fmt.Sprintf("%s!$%s$2:$%s$25", SheetDiurnal, col, col),
		})
	}
	lastCol, _ := excelize.ColumnNumberToName(len(profiles) + 1)
	if err := b.numberColumns(SheetDiurnal, "B", lastCol, 2, 25); err != nil {
		return err
	}

	metric := b.report.PrimaryMetric
	return b.f.AddChart(SheetDiurnal, "H2", &excelize.Chart{
		Type:   excelize.Line,
		Series: series,
		Title:  []excelize.RichTextRun{{Text: fmt.Sprintf("Average %s by hour of day", metric.DisplayName())}},
		Legend: excelize.ChartLegend{Position: "bottom"},
	})
}

// distributionSheet writes one row per bin with a count column per country
func (b *workbookBuilder) distributionSheet() error {
	hist := b.report.Distribution
	if hist == nil || hist.Bins() == 0 {
		if err := b.headerRow(SheetDistribution, 1, "Bin", "From", "To"); err != nil {
			return err
		}
		return b.row(SheetDistribution, 2, "none", "", "", "no values to bin")
	}

	headers := []string{"Bin", "From", "To"}
	for _, s := range hist.Series {
		headers = append(headers, s.Country.DisplayName())
	}
	if err := b.headerRow(SheetDistribution, 1, headers...); err != nil {
		return err
	}

	bins := hist.Bins()
	for i := 0; i < bins; i++ {
		lo, hi := hist.Edges[i], hist.Edges[i+1]
		values := make([]interface{}, 0, len(hist.Series)+3)
		values = append(values, fmt.Sprintf("%.1f-%.1f", lo, hi), lo, hi)
		for _, s := range hist.Series {
			values = append(values, s.Counts[i])
		}
		if err := b.row(SheetDistribution, i+2, values...); err != nil {
			return err
		}
	}
	if err := b.numberColumns(SheetDistribution, "B", "C", 2, bins+1); err != nil {
		return err
	}
	if err := b.f.SetColWidth(SheetDistribution, "A", "A", 16); err != nil {
		return err
	}
	if len(hist.Series) == 0 {
		return nil
	}

	series := make([]excelize.ChartSeries, 0, len(hist.Series))
	for i, s := range hist.Series {
		col, err := excelize.ColumnNumberToName(i + 4)
		if err != nil {
			return err
		}
		series = append(series, excelize.ChartSeries{
			Name:       s.Country.DisplayName(),
			Categories: fmt.Sprintf("%s!$A$2:$A$%d", SheetDistribution, bins+1),
			Values:     fmt.Sprintf("%s!$%s$2:$%s$%d", SheetDistribution, col, col, bins+1),
		})
	}
	return b.f.AddChart(SheetDistribution, "J2", &excelize.Chart{
		Type:   excelize.Col,
		Series: series,
		Title:  []excelize.RichTextRun{{Text: fmt.Sprintf("%s distribution by country", hist.Metric.DisplayName())}},
		Legend: excelize.ChartLegend{Position: "bottom"},
		XAxis:  excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: hist.Metric.String()}}},
		YAxis:  excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "Readings"}}},
	})
}

func (b *workbookBuilder) cleaningSheet() error {
	if err := b.headerRow(SheetCleaning, 1,
		"Country", "InputRows", "OutputRows", "Dropped", "Outliers", "Imputed"); err != nil {
		return err
	}
	row := 2
	for _, r := range b.report.CleaningReports {
		if err := b.row(SheetCleaning, row, r.Country.DisplayName(), r.InputRows, r.OutputRows,
			r.Dropped(), r.TotalOutliers(), r.TotalImputed()); err != nil {
			return err
		}
		row++
	}

	row++
	if err := b.headerRow(SheetCleaning, row,
		"Country", "CleanedRows", "UncleanedRows", "ModA cleaned", "ModA not cleaned", "ModB cleaned", "ModB not cleaned"); err != nil {
		return err
	}
	first := row + 1
	for _, ci := range b.report.CleaningImpact {
		row++
		if err := b.row(SheetCleaning, row, ci.Country.DisplayName(), ci.CleanedRows, ci.UncleanedRows,
			ci.ModAWithCleaning, ci.ModAWithout, ci.ModBWithCleaning, ci.ModBWithout); err != nil {
			return err
		}
	}
	if err := b.numberColumns(SheetCleaning, "D", "G", first, row); err != nil {
		return err
	}
	return b.f.SetColWidth(SheetCleaning, "A", "G", 16)
}

func (b *workbookBuilder) recommendationsSheet() error {
	if err := b.headerRow(SheetRecommendations, 1, "Topic", "Country", "Value", "Note"); err != nil {
		return err
	}
	rec := b.report.Recommendations
	if rec == nil {
		return b.row(SheetRecommendations, 2, "none", "", "", "no GHI data available")
	}

	rows := [][]interface{}{
		{"Primary target", rec.PrimaryTarget.DisplayName(), rec.PrimaryMeanGHI, "highest mean GHI"},
		{"Secondary target", rec.SecondaryTarget.DisplayName(), rec.SecondaryMedianGHI, "highest median GHI"},
		{"Most consistent", rec.MostConsistent.DisplayName(), rec.MostConsistentStd, "lowest GHI standard deviation"},
	}
	for _, tc := range rec.Technologies {
		rows = append(rows, []interface{}{"Technology", tc.Country.DisplayName(), tc.MeanDNI, string(tc.Technology)})
	}
	for _, a := range rec.HeatAlerts {
		rows = append(rows, []interface{}{"Heat alert", a.Country.DisplayName(), a.Value, a.Message})
	}
	for _, a := range rec.HumidityAlerts {
		rows = append(rows, []interface{}{"Humidity alert", a.Country.DisplayName(), a.Value, a.Message})
	}

	for i, values := range rows {
		if err := b.row(SheetRecommendations, i+2, values...); err != nil {
			return err
		}
	}
	if err := b.numberColumns(SheetRecommendations, "C", "C", 2, len(rows)+1); err != nil {
		return err
	}
	if err := b.f.SetColWidth(SheetRecommendations, "A", "B", 18); err != nil {
		return err
	}
	return b.f.SetColWidth(SheetRecommendations, "D", "D", 60)
}

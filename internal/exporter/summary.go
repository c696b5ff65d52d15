package exporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"solarcli/pkg/contracts/domain"
)

// SummaryHeaders is the column layout of summary.csv
var SummaryHeaders = []string{
	"Country", "Metric", "Count", "Mean", "Std", "Min", "P25", "Median", "P75", "Max", "CV",
}

// CleaningReportHeaders is the column layout of cleaning_report.csv. Row
// counts repeat on every metric line of a country.
var CleaningReportHeaders = []string{
	"Country", "Source", "InputRows", "OutputRows", "DroppedBadTimestamp", "DroppedDuplicates",
	"DroppedOutlierRows", "Metric", "MissingBefore", "Converted", "Clipped", "Invalid",
	"Outliers", "Imputed", "MissingAfter",
}

// WriteSummary writes per-country metric summaries
func (w *CSVWriter) WriteSummary(filePath string, summaries []domain.MetricSummary) error {
	records := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		records = append(records, []string{
			s.Country.DisplayName(),
			s.Metric.String(),
			formatInt(s.Count),
			formatStat(s.Mean),
			formatStat(s.Std),
			formatStat(s.Min),
			formatStat(s.P25),
			formatStat(s.Median),
			formatStat(s.P75),
			formatStat(s.Max),
			formatStat(s.CV),
		})
	}
	return w.WriteSimpleCSV(filePath, SummaryHeaders, records)
}

// WriteCleaningReports writes one row per country and metric
func (w *CSVWriter) WriteCleaningReports(filePath string, reports []*domain.CleaningReport) error {
	var records [][]string
	for _, r := range reports {
		for _, m := range r.Metrics {
			records = append(records, []string{
				r.Country.DisplayName(),
				r.Source,
				formatInt(r.InputRows),
				formatInt(r.OutputRows),
				formatInt(r.DroppedBadTimestamp),
				formatInt(r.DroppedDuplicates),
				formatInt(r.DroppedOutlierRows),
				m.Metric.String(),
				formatInt(m.MissingBefore),
				formatInt(m.Converted),
				formatInt(m.Clipped),
				formatInt(m.Invalid),
				formatInt(m.Outliers),
				formatInt(m.Imputed),
				formatInt(m.MissingAfter),
			})
		}
	}
	return w.WriteSimpleCSV(filePath, CleaningReportHeaders, records)
}

// WriteJSON writes v as indented JSON, creating parent directories
func WriteJSON(filePath string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	return nil
}

// ReadJSON decodes the JSON file at filePath into v
func ReadJSON(filePath string, v interface{}) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", filePath, err)
	}
	return nil
}

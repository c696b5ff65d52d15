package exporter

import (
	"context"
	"fmt"
	"log/slog"

	"solarcli/internal/config"
	"solarcli/pkg/contracts/domain"
)

// DatasetHeaders returns the column layout of a cleaned dataset file
func DatasetHeaders() []string {
	headers := make([]string, 0, int(domain.MetricCount)+4)
	headers = append(headers, "Timestamp")
	for _, m := range domain.AllMetrics() {
		headers = append(headers, m.String())
	}
	return append(headers, "Cleaning", "Comments", "QualityFlags")
}

func measurementRow(r *domain.Measurement) []string {
	row := make([]string, 0, int(domain.MetricCount)+4)
	row = append(row, formatTimestamp(r.Timestamp))
	for _, v := range r.Values {
		row = append(row, formatValue(v))
	}
	return append(row, formatFlag(r.Cleaning), r.Comments, r.Flags.String())
}

// WriteDataset streams ds to filePath, one row per measurement. Missing values
// are written as empty cells so the file can be loaded back by ingest.
func (w *CSVWriter) WriteDataset(filePath string, ds *domain.Dataset) error {
	stream, err := w.CreateStreamWriter(filePath, DatasetHeaders())
	if err != nil {
		return err
	}

	for i := range ds.Records {
		if err := stream.WriteRecord(measurementRow(&ds.Records[i])); err != nil {
			stream.Close()
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	return stream.Close()
}

// DatasetExporter writes cleaned datasets to the cleaned data directory
type DatasetExporter struct {
	csvWriter *CSVWriter
	paths     *config.Paths
}

// NewDatasetExporter creates a new cleaned dataset exporter
func NewDatasetExporter(paths *config.Paths, bom bool) *DatasetExporter {
	return &DatasetExporter{
		csvWriter: NewCSVWriter(paths, bom),
		paths:     paths,
	}
}

// ExportCleaned writes every dataset to its <country>_clean.csv file and
// returns the written paths in the order of datasets
func (d *DatasetExporter) ExportCleaned(ctx context.Context, datasets []*domain.Dataset) ([]string, error) {
	written := make([]string, 0, len(datasets))
	for _, ds := range datasets {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		path := d.paths.CleanedFile(ds.Country)
		if err := d.csvWriter.WriteDataset(path, ds); err != nil {
			return written, fmt.Errorf("failed to write cleaned data for %s: %w", ds.Country.DisplayName(), err)
		}

		d.csvWriter.logger.InfoContext(ctx, "wrote cleaned dataset",
			slog.String("country", string(ds.Country)),
			slog.String("path", path),
			slog.Int("rows", ds.Len()))
		written = append(written, path)
	}
	return written, nil
}

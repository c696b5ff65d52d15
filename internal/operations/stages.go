package operations

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"solarcli/internal/analytics"
	"solarcli/internal/cleaning"
	"solarcli/internal/config"
	"solarcli/internal/exporter"
	"solarcli/internal/infrastructure"
	"solarcli/internal/ingest"
	"solarcli/pkg/contracts/domain"
)

// StageDeps holds the collaborators shared by the pipeline steps
type StageDeps struct {
	Paths    *config.Paths
	Loader   *ingest.Loader
	Cleaner  *cleaning.Cleaner
	Analysis analytics.Options
	CSV      *exporter.CSVWriter
	Datasets *exporter.DatasetExporter
	Workbook *exporter.WorkbookWriter
	Logger   *slog.Logger
}

// NewStageDeps wires the step collaborators from the application config
func NewStageDeps(cfg *config.Config, paths *config.Paths, logger *slog.Logger, metrics *infrastructure.PipelineMetrics) (StageDeps, error) {
	cleaner, err := cleaning.NewCleaner(cleaning.OptionsFromConfig(cfg.Cleaning), logger, metrics)
	if err != nil {
		return StageDeps{}, fmt.Errorf("cleaner: %w", err)
	}
	analysis, err := analytics.OptionsFromConfig(cfg.Analysis)
	if err != nil {
		return StageDeps{}, fmt.Errorf("analysis: %w", err)
	}

	return StageDeps{
		Paths:    paths,
		Loader:   ingest.NewLoader(logger, metrics),
		Cleaner:  cleaner,
		Analysis: analysis,
		CSV:      exporter.NewCSVWriter(paths, cfg.Pipeline.WriteBOM),
		Datasets: exporter.NewDatasetExporter(paths, cfg.Pipeline.WriteBOM),
		Workbook: exporter.NewWorkbookWriter(logger),
		Logger:   infrastructure.WithComponent(logger, "pipeline"),
	}, nil
}

// NewPipelineRegistry registers ingest, clean, analyze and export
func NewPipelineRegistry(deps StageDeps) (*Registry, error) {
	registry := NewRegistry()
	steps := []Step{
		NewIngestStage(deps),
		NewCleanStage(deps),
		NewAnalyzeStage(deps),
		NewExportStage(deps),
	}
	for _, step := range steps {
		if err := registry.Register(step); err != nil {
			return nil, err
		}
	}
	if err := registry.ValidateDependencies(); err != nil {
		return nil, err
	}
	return registry, nil
}

// selectedCountries reads the countries parameter; all countries when absent
func selectedCountries(state *OperationState) ([]domain.Country, error) {
	v, ok := state.GetConfig(ParamCountries)
	if !ok || v == nil {
		return domain.AllCountries, nil
	}

	switch list := v.(type) {
	case []domain.Country:
		if len(list) == 0 {
			return domain.AllCountries, nil
		}
		return list, nil
	case []string:
		if len(list) == 0 {
			return domain.AllCountries, nil
		}
		return domain.ParseCountries(list)
	case string:
		if list == "" {
			return domain.AllCountries, nil
		}
		return domain.ParseCountries(strings.Split(list, ","))
	default:
		return nil, fmt.Errorf("parameter %s has unsupported type %T", ParamCountries, v)
	}
}

// IngestStage reads the raw station files of the selected countries
type IngestStage struct {
	BaseStage
	deps StageDeps
}

// NewIngestStage creates the ingest step
func NewIngestStage(deps StageDeps) *IngestStage {
	return &IngestStage{
		BaseStage: NewBaseStage(StepIDIngest, StepNameIngest, nil),
		deps:      deps,
	}
}

func (s *IngestStage) sources(state *OperationState) (map[domain.Country]string, error) {
	countries, err := selectedCountries(state)
	if err != nil {
		return nil, err
	}
	sources := make(map[domain.Country]string, len(countries))
	for _, c := range countries {
		sources[c] = s.deps.Paths.RawFile(c)
	}
	return sources, nil
}

// Validate checks that every selected raw file exists
func (s *IngestStage) Validate(state *OperationState) error {
	sources, err := s.sources(state)
	if err != nil {
		return err
	}
	var missing []string
	for _, c := range ingest.SortedCountries(sources) {
		if _, err := os.Stat(sources[c]); err != nil {
			missing = append(missing, sources[c])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("raw files not found: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Execute loads the raw files concurrently
func (s *IngestStage) Execute(ctx context.Context, state *OperationState) error {
	sources, err := s.sources(state)
	if err != nil {
		return err
	}

	datasets, err := s.deps.Loader.LoadAll(ctx, sources)
	if err != nil {
		return err
	}

	rows := 0
	for _, ds := range datasets {
		rows += ds.Len()
	}
	state.SetContext(ContextKeyRawDatasets, datasets)
	if step := state.GetStage(s.ID()); step != nil {
		step.SetMetadata("countries", len(datasets))
		step.SetMetadata("rows", rows)
	}
	ReportProgress(ctx, 100, fmt.Sprintf("loaded %d rows from %d files", rows, len(datasets)))
	return nil
}

// CleanStage cleans each raw dataset, writes the cleaned CSVs with the
// cleaning report and keeps both for the later steps
type CleanStage struct {
	BaseStage
	deps StageDeps
}

// NewCleanStage creates the clean step
func NewCleanStage(deps StageDeps) *CleanStage {
	return &CleanStage{
		BaseStage: NewBaseStage(StepIDClean, StepNameClean, []string{StepIDIngest}),
		deps:      deps,
	}
}

// Validate requires the raw datasets from the ingest step
func (s *CleanStage) Validate(state *OperationState) error {
	_, err := state.Datasets(ContextKeyRawDatasets)
	return err
}

// Execute cleans every dataset in report order
func (s *CleanStage) Execute(ctx context.Context, state *OperationState) error {
	raw, err := state.Datasets(ContextKeyRawDatasets)
	if err != nil {
		return err
	}

	tracker := NewProgressTracker(ctx, len(raw))
	cleaned := make([]*domain.Dataset, 0, len(raw))
	reports := make([]*domain.CleaningReport, 0, len(raw))
	for _, ds := range raw {
		out, report, err := s.deps.Cleaner.Clean(ctx, ds)
		if err != nil {
			return fmt.Errorf("clean %s: %w", ds.Country.DisplayName(), err)
		}
		cleaned = append(cleaned, out)
		reports = append(reports, report)
		tracker.Increment(fmt.Sprintf("cleaned %s", ds.Country.DisplayName()))
	}

	state.SetContext(ContextKeyCleanDatasets, cleaned)
	state.SetContext(ContextKeyCleaningReports, reports)

	if err := ctx.Err(); err != nil {
		return err
	}
	written, err := s.deps.Datasets.ExportCleaned(ctx, cleaned)
	state.AddWrittenFiles(written...)
	if err != nil {
		return err
	}
	if err := s.deps.CSV.WriteCleaningReports(s.deps.Paths.CleaningReportCSV, reports); err != nil {
		return fmt.Errorf("write cleaning report: %w", err)
	}
	state.AddWrittenFiles(s.deps.Paths.CleaningReportCSV)
	return nil
}

// AnalyzeStage computes the comparative report. Run on its own, it loads
// the cleaned CSV files written by an earlier run.
type AnalyzeStage struct {
	BaseStage
	deps StageDeps
}

// NewAnalyzeStage creates the analyze step
func NewAnalyzeStage(deps StageDeps) *AnalyzeStage {
	return &AnalyzeStage{
		BaseStage: NewBaseStage(StepIDAnalyze, StepNameAnalyze, []string{StepIDClean}),
		deps:      deps,
	}
}

func (s *AnalyzeStage) options(state *OperationState) (analytics.Options, error) {
	opts := s.deps.Analysis
	if v, ok := state.GetConfig(ParamMetric); ok {
		name, _ := v.(string)
		if name != "" {
			metric, err := domain.ParseMetric(name)
			if err != nil {
				return opts, err
			}
			opts.PrimaryMetric = metric
		}
	}
	opts.CleaningReports = state.CleaningReports()
	return opts, nil
}

// Validate checks the metric parameter
func (s *AnalyzeStage) Validate(state *OperationState) error {
	_, err := s.options(state)
	return err
}

func (s *AnalyzeStage) datasets(ctx context.Context, state *OperationState) ([]*domain.Dataset, error) {
	if ds, err := state.Datasets(ContextKeyCleanDatasets); err == nil {
		return ds, nil
	}

	countries, err := selectedCountries(state)
	if err != nil {
		return nil, err
	}
	sources := make(map[domain.Country]string, len(countries))
	for _, c := range countries {
		path := s.deps.Paths.CleanedFile(c)
		if config.FileExists(path) {
			sources[c] = path
		}
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no cleaned files in %s: %w", s.deps.Paths.CleanedDir, analytics.ErrNoDatasets)
	}
	datasets, err := s.deps.Loader.LoadAll(ctx, sources)
	if err != nil {
		return nil, err
	}
	state.SetContext(ContextKeyCleanDatasets, datasets)
	return datasets, nil
}

// Execute runs the analysis
func (s *AnalyzeStage) Execute(ctx context.Context, state *OperationState) error {
	opts, err := s.options(state)
	if err != nil {
		return err
	}

	datasets, err := s.datasets(ctx, state)
	if err != nil {
		return err
	}
	ReportProgress(ctx, 25, fmt.Sprintf("analyzing %d countries", len(datasets)))

	report, err := analytics.Analyze(ctx, datasets, opts)
	if err != nil {
		return err
	}
	for _, msg := range report.TestErrors {
		s.deps.Logger.WarnContext(ctx, "significance test skipped", slog.String("reason", msg))
	}

	state.SetContext(ContextKeyAnalysisReport, report)
	if step := state.GetStage(s.ID()); step != nil {
		step.SetMetadata("primary_metric", report.PrimaryMetric.String())
		step.SetMetadata("summaries", len(report.Summaries))
	}
	return nil
}

// ExportStage writes summary.csv, analysis.json and the Excel workbook
type ExportStage struct {
	BaseStage
	deps StageDeps
}

// NewExportStage creates the export step
func NewExportStage(deps StageDeps) *ExportStage {
	return &ExportStage{
		BaseStage: NewBaseStage(StepIDExport, StepNameExport, []string{StepIDAnalyze}),
		deps:      deps,
	}
}

// Validate requires an analysis report in the operation context
func (s *ExportStage) Validate(state *OperationState) error {
	_, err := state.AnalysisReport()
	return err
}

func writeWorkbook(state *OperationState) bool {
	v, ok := state.GetConfig(ParamWorkbook)
	if !ok {
		return true
	}
	b, isBool := v.(bool)
	return !isBool || b
}

// workbookPath honours the output parameter, falling back to def
func workbookPath(state *OperationState, def string) string {
	if v, ok := state.GetConfig(ParamOutput); ok {
		if path, _ := v.(string); path != "" {
			return path
		}
	}
	return def
}

// Execute writes every output file
func (s *ExportStage) Execute(ctx context.Context, state *OperationState) error {
	report, err := state.AnalysisReport()
	if err != nil {
		return err
	}

	total := 2
	if writeWorkbook(state) {
		total++
	}
	tracker := NewProgressTracker(ctx, total)

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.deps.CSV.WriteSummary(s.deps.Paths.SummaryCSV, report.Summaries); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	state.AddWrittenFiles(s.deps.Paths.SummaryCSV)
	tracker.Increment("wrote summary")

	if err := exporter.WriteJSON(s.deps.Paths.AnalysisJSON, report); err != nil {
		return fmt.Errorf("write analysis: %w", err)
	}
	state.AddWrittenFiles(s.deps.Paths.AnalysisJSON)
	tracker.Increment("wrote analysis report")

	if writeWorkbook(state) {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := workbookPath(state, s.deps.Paths.ReportXLSX)
		if err := s.deps.Workbook.Write(path, report); err != nil {
			return fmt.Errorf("write workbook: %w", err)
		}
		state.AddWrittenFiles(path)
		tracker.Increment("wrote workbook")
	}

	s.deps.Logger.InfoContext(ctx, "exported pipeline outputs",
		slog.Int("files", len(state.WrittenFiles())),
		slog.String("reports_dir", s.deps.Paths.ReportsDir))
	return nil
}

package operations

import (
	"time"
)

// Pipeline step identifiers
const (
	StepIDIngest  = "ingest"
	StepIDClean   = "clean"
	StepIDAnalyze = "analyze"
	StepIDExport  = "export"
)

// Pipeline step names
const (
	StepNameIngest  = "Raw Data Ingestion"
	StepNameClean   = "Data Cleaning"
	StepNameAnalyze = "Comparative Analysis"
	StepNameExport  = "Report Export"
)

// StepIDs lists the pipeline steps in execution order
var StepIDs = []string{StepIDIngest, StepIDClean, StepIDAnalyze, StepIDExport}

// StepPlans lists what a single-step request runs. Analyze starts from
// the cleaned files on disk, so analyze and export skip ingest and clean.
var StepPlans = map[string][]string{
	StepIDIngest:  {StepIDIngest},
	StepIDClean:   {StepIDIngest, StepIDClean},
	StepIDAnalyze: {StepIDAnalyze, StepIDExport},
	StepIDExport:  {StepIDAnalyze, StepIDExport},
}

// Context keys for data passed between steps
const (
	ContextKeyRawDatasets     = "raw_datasets"
	ContextKeyCleanDatasets   = "clean_datasets"
	ContextKeyCleaningReports = "cleaning_reports"
	ContextKeyAnalysisReport  = "analysis_report"
	ContextKeyWrittenFiles    = "written_files"
)

// Config keys read from OperationRequest.Parameters
const (
	ParamStep      = "step"
	ParamCountries = "countries"
	ParamMetric    = "metric"
	ParamWorkbook  = "workbook"
	ParamOutput    = "output"
)

// ModeFull runs every registered step in dependency order
const ModeFull = "full"

// Default timeouts
const (
	DefaultStepTimeout    = 10 * time.Minute
	DefaultIngestTimeout  = 5 * time.Minute
	DefaultCleanTimeout   = 5 * time.Minute
	DefaultAnalyzeTimeout = 5 * time.Minute
	DefaultExportTimeout  = 2 * time.Minute
)

// RetryConfig defines retry behavior for steps
type RetryConfig struct {
	MaxAttempts  int           `json:"max_attempts"`
	InitialDelay time.Duration `json:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
	Multiplier   float64       `json:"multiplier"`
}

// NewRetryConfig returns the default retry configuration. Pipeline steps are
// deterministic over local files, so a single attempt is the default.
func NewRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  1,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// OperationRequest represents a request to execute the pipeline
type OperationRequest struct {
	ID         string                 `json:"id"`
	Mode       string                 `json:"mode"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// OperationResponse represents the response from a pipeline execution
type OperationResponse struct {
	ID       string                `json:"id"`
	Status   OperationStatusValue  `json:"status"`
	Duration time.Duration         `json:"duration"`
	Steps    map[string]*StepState `json:"steps"`
	Files    []string              `json:"files,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// ProgressUpdate represents a progress update from a step
type ProgressUpdate struct {
	OperationID string     `json:"operation_id"`
	StepID      string     `json:"step_id"`
	StepName    string     `json:"step_name"`
	Index       int        `json:"index"`
	Total       int        `json:"total"`
	Status      StepStatus `json:"status"`
	Progress    float64    `json:"progress"`
	Message     string     `json:"message"`
}

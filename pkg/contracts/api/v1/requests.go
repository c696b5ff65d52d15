// Package api contains the JSON API contracts of the solar analysis server.
// Version v1 represents the current stable API version.
package api

// Query parameters

// MetricQuery selects one metric; empty means the primary metric
type MetricQuery struct {
	Metric string `json:"metric" query:"metric" validate:"omitempty,metric"`
}

// SummaryQuery filters the per-country summary table
type SummaryQuery struct {
	Metric  string `json:"metric" query:"metric" validate:"omitempty,metric"`
	Country string `json:"country" query:"country" validate:"omitempty,countries"`
}

// AggregateQuery selects the time series returned by /api/aggregate
type AggregateQuery struct {
	Period  string `json:"period" query:"period" validate:"omitempty,oneof=raw hourly daily monthly"`
	Metric  string `json:"metric" query:"metric" validate:"omitempty,metrics"`
	Country string `json:"country" query:"country" validate:"omitempty,countries"`
}

// DiurnalQuery selects the hour-of-day profiles
type DiurnalQuery struct {
	Metric  string `json:"metric" query:"metric" validate:"omitempty,metric"`
	Country string `json:"country" query:"country" validate:"omitempty,countries"`
}

// DistributionQuery selects a histogram. Bins 0 means the default count.
type DistributionQuery struct {
	Metric  string `json:"metric" query:"metric" validate:"omitempty,metric"`
	Bins    int    `json:"bins" query:"bins" validate:"min=0,max=200"`
	Country string `json:"country" query:"country" validate:"omitempty,countries"`
}

// LatestFileQuery selects the directory for GET /api/files/latest
type LatestFileQuery struct {
	Kind string `json:"kind" query:"kind" validate:"omitempty,oneof=raw cleaned report"`
}

// Operation API Requests

// OperationStartRequest starts a pipeline run. An empty Step runs every step.
type OperationStartRequest struct {
	Step      string   `json:"step,omitempty" validate:"omitempty,oneof=full ingest clean analyze export"`
	Countries []string `json:"countries,omitempty" validate:"omitempty,dive,country"`
	Metric    string   `json:"metric,omitempty" validate:"omitempty,metric"`
	Workbook  *bool    `json:"workbook,omitempty"`
	Wait      bool     `json:"wait"`
}

// OperationIDRequest addresses one operation by its path parameter
type OperationIDRequest struct {
	ID string `json:"id" param:"id" validate:"required,max=64"`
}

package services

import "errors"

// Analysis service errors
var (
	// Data errors
	ErrNoData         = errors.New("no cleaned data available")
	ErrAnalysisFailed = errors.New("analysis failed")

	// Query errors
	ErrUnknownMetric  = errors.New("unknown metric")
	ErrUnknownCountry = errors.New("unknown country")
	ErrInvalidPeriod  = errors.New("invalid aggregation period")
	ErrInvalidBins    = errors.New("invalid histogram bin count")

	// Operation errors
	ErrOperationNotFound = errors.New("operation not found")
	ErrOperationRunning  = errors.New("operation already running")
)

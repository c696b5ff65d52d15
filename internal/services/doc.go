// Package services implements the business logic layer between the HTTP
// handlers and the pipeline packages.
//
// # Available Services
//
//	- AnalysisService: loads the cleaned country files, caches the comparison
//	  report and answers summary, ranking, test, correlation, aggregation,
//	  diurnal and recommendation queries
//	- HealthService: liveness and readiness checks
//	- OperationService: runs the ingest, clean, analyze and export pipeline
//	  through the operation manager and keeps recent outcomes
//
// # Error Handling
//
// Services return sentinel errors that handlers map to problem details:
//
//	- ErrNoData when no cleaned file is available
//	- ErrUnknownMetric, ErrUnknownCountry and ErrInvalidPeriod for bad queries
//	- ErrOperationNotFound and ErrOperationRunning for pipeline runs
//
// Check them with errors.Is; services wrap them with context.
package services

// Package operations runs the solar data pipeline as a sequence of steps.
//
// Steps implement the Step interface and are registered in a Registry,
// which orders them by their declared dependencies (Kahn's algorithm with
// cycle detection). The Manager executes the ordered steps one at a time:
//
//	ingest -> clean -> analyze -> export
//
// Each step runs under its own timeout and OpenTelemetry span and passes
// its output to the next step through the OperationState context map. A
// failing step stops the run unless Config.ContinueOnError is set; steps
// that depend on a failed step are always skipped. Errors are reported as
// *OperationError values typed validation, dependency, execution, timeout
// or cancellation.
//
// Example usage:
//
//	deps, err := operations.NewStageDeps(cfg, paths, logger, metrics)
//	registry, err := operations.NewPipelineRegistry(deps)
//	manager := operations.NewManager(registry, operations.ConfigFromPipeline(cfg.Pipeline), logger, metrics)
//	manager.OnProgress(func(u operations.ProgressUpdate) { ... })
//	resp, err := manager.Execute(ctx, operations.OperationRequest{})
package operations

package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"solarcli/internal/infrastructure"
)

const (
	TracerName = "solarcli.operations"
)

// OperationTracer provides OpenTelemetry instrumentation for pipeline runs.
// A nil metrics value records spans only.
type OperationTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewOperationTracer creates a tracer on the global tracer provider
func NewOperationTracer(metrics *infrastructure.PipelineMetrics) *OperationTracer {
	return &OperationTracer{
		tracer:  otel.Tracer(TracerName),
		metrics: metrics,
	}
}

// TraceOperationExecution creates a span for the entire pipeline execution
func (pt *OperationTracer) TraceOperationExecution(ctx context.Context, operationID string, req OperationRequest) (context.Context, trace.Span) {
	mode := req.Mode
	if mode == "" {
		mode = ModeFull
	}
	return pt.tracer.Start(ctx, fmt.Sprintf("operation.execute.%s", mode),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("operation.mode", mode),
		),
	)
}

// TraceStageExecution creates a span for one step
func (pt *OperationTracer) TraceStageExecution(ctx context.Context, operationID, stepID string) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, fmt.Sprintf("operation.step.%s", stepID),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("step.id", stepID),
		),
	)
}

// RecordOperationCompletion ends the operation span with its status and metrics
func (pt *OperationTracer) RecordOperationCompletion(ctx context.Context, span trace.Span, operationID string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
		infrastructure.RecordError(ctx, err)
	}

	span.SetAttributes(
		attribute.String("operation.status", status),
		attribute.Float64("operation.duration_seconds", duration.Seconds()),
	)
	if err == nil {
		span.SetStatus(codes.Ok, "operation completed successfully")
	}

	infrastructure.RecordOperationMetrics(ctx, pt.metrics, operationID, duration, err)
	if GetErrorType(err) == ErrorTypeCancellation {
		infrastructure.RecordOperationCancellation(ctx, pt.metrics, operationID, err.Error())
	}
	span.End()
}

// RecordStageCompletion ends a step span with its status and metrics
func (pt *OperationTracer) RecordStageCompletion(ctx context.Context, span trace.Span, stepID string, duration time.Duration, err error) {
	success := err == nil
	status := "success"
	if !success {
		status = "failure"
		infrastructure.RecordError(ctx, err, trace.WithAttributes(
			attribute.String("step.id", stepID),
			attribute.String("error.type", string(GetErrorType(err))),
		))
	}

	span.SetAttributes(
		attribute.String("step.status", status),
		attribute.Float64("step.duration_seconds", duration.Seconds()),
	)
	if success {
		span.SetStatus(codes.Ok, "step completed successfully")
	}

	infrastructure.RecordOperationStepMetrics(ctx, pt.metrics, stepID, duration, success)
	span.End()
}

// RecordStageProgress adds a progress event to the current step span
func (pt *OperationTracer) RecordStageProgress(ctx context.Context, stepID string, progress float64, message string) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent("step.progress", trace.WithAttributes(
		attribute.String("step.id", stepID),
		attribute.Float64("step.progress_percent", progress),
		attribute.String("step.progress_message", message),
	))
}

package operations

import (
	"context"
	"log/slog"
	"time"
)

func (m *Manager) logOperationStart(ctx context.Context, operationID string, req OperationRequest) {
	m.logger.InfoContext(ctx, "operation start",
		slog.String("operation_id", operationID),
		slog.String("mode", req.Mode),
		slog.Any("parameters", req.Parameters))
}

func (m *Manager) logOperationComplete(ctx context.Context, state *OperationState) {
	level := slog.LevelInfo
	if state.HasFailures() {
		level = slog.LevelWarn
	}
	m.logger.Log(ctx, level, "operation complete",
		slog.String("operation_id", state.ID),
		slog.String("status", string(state.GetStatus())),
		slog.Any("completed_steps", state.GetCompletedStages()),
		slog.Any("failed_steps", state.GetFailedStages()),
		slog.Duration("duration", state.Duration()))
}

func (m *Manager) logOperationError(ctx context.Context, operationID string, err error) {
	m.logger.ErrorContext(ctx, "operation error",
		slog.String("operation_id", operationID),
		slog.String("error", errString(err)))
}

func (m *Manager) logStageStart(ctx context.Context, operationID, stepID string, attempt int) {
	m.logger.InfoContext(ctx, "step start",
		slog.String("operation_id", operationID),
		slog.String("step", stepID),
		slog.Int("attempt", attempt))
}

func (m *Manager) logStageComplete(ctx context.Context, operationID, stepID string, duration time.Duration) {
	m.logger.InfoContext(ctx, "step complete",
		slog.String("operation_id", operationID),
		slog.String("step", stepID),
		slog.Duration("duration", duration))
}

func (m *Manager) logStageError(ctx context.Context, operationID, stepID string, err error) {
	m.logger.ErrorContext(ctx, "step error",
		slog.String("operation_id", operationID),
		slog.String("step", stepID),
		slog.String("error_type", string(GetErrorType(err))),
		slog.String("error", errString(err)))
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

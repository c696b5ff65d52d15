package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"solarcli/internal/infrastructure"
)

// Manager orchestrates pipeline execution
type Manager struct {
	registry *Registry
	config   *Config
	logger   *slog.Logger
	tracer   *OperationTracer
	progress ProgressFunc

	// Active operations
	mu         sync.RWMutex
	operations map[string]*OperationState
	cancels    map[string]context.CancelFunc
}

// NewManager creates a new pipeline manager. Nil arguments fall back to an
// empty registry, the default config and the global logger; nil metrics
// disables metric recording.
func NewManager(registry *Registry, config *Config, logger *slog.Logger, metrics *infrastructure.PipelineMetrics) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if config == nil {
		config = NewConfig()
	}

	return &Manager{
		registry:   registry,
		config:     config,
		logger:     infrastructure.WithComponent(logger, "operations"),
		tracer:     NewOperationTracer(metrics),
		operations: make(map[string]*OperationState),
		cancels:    make(map[string]context.CancelFunc),
	}
}

// RegisterStage registers a step with the pipeline
func (m *Manager) RegisterStage(step Step) error {
	return m.registry.Register(step)
}

// OnProgress installs the callback that receives step updates
func (m *Manager) OnProgress(fn ProgressFunc) {
	m.progress = fn
}

// SetConfig updates the pipeline configuration
func (m *Manager) SetConfig(config *Config) {
	if config != nil {
		m.config = config
	}
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *Config {
	return m.config
}

// GetRegistry returns the registry for accessing registered steps
func (m *Manager) GetRegistry() *Registry {
	return m.registry
}

// Execute runs the pipeline for req. The response is always non-nil and
// carries the final state of every selected step.
func (m *Manager) Execute(ctx context.Context, req OperationRequest) (*OperationResponse, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Mode == "" {
		req.Mode = ModeFull
	}

	state := NewOperationState(req.ID)
	for k, v := range req.Parameters {
		state.SetConfig(k, v)
	}

	ctx = infrastructure.EnsureTraceID(ctx)
	if m.config.OperationTimeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, m.config.OperationTimeout)
		defer cancelTimeout()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.storeOperation(state, cancel)
	defer m.removeOperation(req.ID)

	ctx, span := m.tracer.TraceOperationExecution(ctx, req.ID, req)
	m.logOperationStart(ctx, req.ID, req)

	steps, err := m.selectSteps(state)
	if err != nil {
		m.logOperationError(ctx, req.ID, err)
		state.Fail(err)
		m.tracer.RecordOperationCompletion(ctx, span, req.ID, state.Duration(), err)
		return m.createResponse(state), err
	}

	for _, step := range steps {
		state.SetStage(step.ID(), NewStepState(step.ID(), step.Name()))
	}

	state.Start()
	err = m.executeSequential(ctx, state, steps)

	switch {
	case err == nil:
		state.Complete()
	case GetErrorType(err) == ErrorTypeCancellation:
		state.Cancel(err)
	default:
		state.Fail(err)
	}

	m.logOperationComplete(ctx, state)
	m.tracer.RecordOperationCompletion(ctx, span, req.ID, state.Duration(), err)

	return m.createResponse(state), err
}

// selectSteps returns the plan for the requested step or every step in
// dependency order
func (m *Manager) selectSteps(state *OperationState) ([]Step, error) {
	if v, ok := state.GetConfig(ParamStep); ok {
		if id, _ := v.(string); id != "" && id != ModeFull {
			return m.planFor(id)
		}
	}

	steps, err := m.registry.GetDependencyOrder()
	if err != nil {
		return nil, fmt.Errorf("failed to get dependency order: %w", err)
	}
	if len(steps) == 0 {
		return nil, NewFatalError("no steps registered", nil)
	}
	return steps, nil
}

// planFor resolves StepPlans[id]; planned steps missing from the registry
// are left out, the requested one never is
func (m *Manager) planFor(id string) ([]Step, error) {
	target, err := m.registry.Get(id)
	if err != nil {
		return nil, err
	}
	plan, ok := StepPlans[id]
	if !ok {
		return []Step{target}, nil
	}

	steps := make([]Step, 0, len(plan))
	for _, planned := range plan {
		if planned == id {
			steps = append(steps, target)
			continue
		}
		if step, err := m.registry.Get(planned); err == nil {
			steps = append(steps, step)
		}
	}
	return steps, nil
}

// executeSequential executes steps one by one. Each step consumes the
// previous step's output, so steps never run concurrently.
func (m *Manager) executeSequential(ctx context.Context, state *OperationState, steps []Step) error {
	var firstErr error

	for i, step := range steps {
		stepState := state.GetStage(step.ID())

		if err := ctx.Err(); err != nil {
			cancelErr := NewCancellationError(step.ID(), err)
			m.skipRemaining(state, steps[i:], i, len(steps), "operation cancelled")
			return cancelErr
		}

		if stepState.GetStatus() == StepStatusSkipped {
			m.logger.InfoContext(ctx, "step skipped",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()),
				slog.String("reason", stepState.Message))
			continue
		}

		err := m.executeStage(ctx, state, step, i, len(steps))
		if err == nil {
			continue
		}

		m.logStageError(ctx, state.ID, step.ID(), err)

		if GetErrorType(err) == ErrorTypeCancellation {
			m.skipRemaining(state, steps[i+1:], i+1, len(steps), "operation cancelled")
			return err
		}

		m.skipDependentStages(state, step.ID())

		if !m.config.ContinueOnError {
			m.skipRemaining(state, steps[i+1:], i+1, len(steps), fmt.Sprintf("step %s failed", step.ID()))
			return err
		}

		m.logger.WarnContext(ctx, "step failed, continuing",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.String("error", err.Error()))
		if firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// executeStage executes a single step with timeout and retry handling
func (m *Manager) executeStage(ctx context.Context, state *OperationState, step Step, index, total int) error {
	stepState := state.GetStage(step.ID())
	if stepState == nil {
		return NewFatalError(fmt.Sprintf("state for step %s not found", step.ID()), nil)
	}

	if err := m.checkDependencies(state, step); err != nil {
		stepState.Skip(err.Error())
		m.emit(state.ID, stepState, index, total)
		return err
	}

	if err := step.Validate(state); err != nil {
		vErr := NewValidationError(step.ID(), err.Error())
		stepState.Fail(vErr)
		m.emit(state.ID, stepState, index, total)
		return vErr
	}

	timeout := m.config.GetStageTimeout(step.ID())
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stepCtx, span := m.tracer.TraceStageExecution(stepCtx, state.ID, step.ID())
	stepCtx = withStepReporter(stepCtx, func(progress float64, message string) {
		stepState.UpdateProgress(progress, message)
		m.tracer.RecordStageProgress(stepCtx, step.ID(), progress, message)
		m.emit(state.ID, stepState, index, total)
	})

	retryConfig := m.config.RetryConfig
	if retryConfig.MaxAttempts < 1 {
		retryConfig.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= retryConfig.MaxAttempts; attempt++ {
		stepState.Start()
		m.emit(state.ID, stepState, index, total)
		m.logStageStart(ctx, state.ID, step.ID(), attempt)

		start := time.Now()
		err := step.Execute(stepCtx, state)
		duration := time.Since(start)

		if err == nil {
			stepState.Complete()
			m.logStageComplete(ctx, state.ID, step.ID(), duration)
			m.tracer.RecordStageCompletion(stepCtx, span, step.ID(), duration, nil)
			m.emit(state.ID, stepState, index, total)
			return nil
		}

		lastErr = m.classify(ctx, stepCtx, step.ID(), timeout, err)

		if !IsRetryable(lastErr) || attempt >= retryConfig.MaxAttempts {
			break
		}

		delay := m.calculateRetryDelay(attempt, retryConfig)
		m.logger.WarnContext(ctx, "retrying step",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		select {
		case <-time.After(delay):
		case <-stepCtx.Done():
			lastErr = m.classify(ctx, stepCtx, step.ID(), timeout, stepCtx.Err())
			attempt = retryConfig.MaxAttempts
		}
	}

	stepState.Fail(lastErr)
	m.tracer.RecordStageCompletion(stepCtx, span, step.ID(), stepState.Duration(), lastErr)
	m.emit(state.ID, stepState, index, total)
	return lastErr
}

// classify turns a step error into the matching OperationError
func (m *Manager) classify(parent, stepCtx context.Context, stepID string, timeout time.Duration, err error) error {
	switch {
	case parent.Err() != nil:
		return NewCancellationError(stepID, parent.Err())
	case errors.Is(stepCtx.Err(), context.DeadlineExceeded):
		return NewTimeoutError(stepID, timeout.String())
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return WrapError(err, stepID, "")
	}
	return NewExecutionError(stepID, err, false)
}

// skipDependentStages marks every transitive dependant of failedStepID that
// is part of this run as skipped
func (m *Manager) skipDependentStages(state *OperationState, failedStepID string) {
	for _, step := range m.registry.GetDependents(failedStepID) {
		stepState := state.GetStage(step.ID())
		if stepState != nil && stepState.GetStatus() == StepStatusPending {
			stepState.Skip(fmt.Sprintf("dependency %s failed", failedStepID))
			m.skipDependentStages(state, step.ID())
		}
	}
}

// skipRemaining marks every still-pending step in steps as skipped
func (m *Manager) skipRemaining(state *OperationState, steps []Step, offset, total int, reason string) {
	for i, step := range steps {
		stepState := state.GetStage(step.ID())
		if stepState != nil && stepState.GetStatus() == StepStatusPending {
			stepState.Skip(reason)
			m.emit(state.ID, stepState, offset+i, total)
		}
	}
}

// checkDependencies verifies that dependencies selected for this run completed.
// Dependencies outside the run are assumed satisfied by earlier runs.
func (m *Manager) checkDependencies(state *OperationState, step Step) error {
	for _, dep := range step.GetDependencies() {
		depState := state.GetStage(dep)
		if depState == nil {
			continue
		}
		if status := depState.GetStatus(); status != StepStatusCompleted {
			return NewDependencyError(step.ID(), dep, fmt.Sprintf("dependency %s not completed (status: %s)", dep, status))
		}
	}
	return nil
}

// calculateRetryDelay calculates the delay before the next attempt
func (m *Manager) calculateRetryDelay(attempt int, config RetryConfig) time.Duration {
	delay := config.InitialDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * config.Multiplier)
	}
	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	return delay
}

// emit forwards a step snapshot to the progress callback
func (m *Manager) emit(operationID string, stepState *StepState, index, total int) {
	if m.progress == nil {
		return
	}
	snap := stepState.snapshot()
	m.progress(ProgressUpdate{
		OperationID: operationID,
		StepID:      snap.ID,
		StepName:    snap.Name,
		Index:       index,
		Total:       total,
		Status:      snap.Status,
		Progress:    snap.Progress,
		Message:     snap.Message,
	})
}

func (m *Manager) createResponse(state *OperationState) *OperationResponse {
	return NewOperationResponse(state)
}

// NewOperationResponse builds a response from a snapshot of state
func NewOperationResponse(state *OperationState) *OperationResponse {
	snap := state.Clone()
	resp := &OperationResponse{
		ID:       snap.ID,
		Status:   snap.Status,
		Duration: state.Duration(),
		Steps:    snap.Steps,
		Files:    state.WrittenFiles(),
	}

	if snap.Error != nil {
		resp.Error = snap.Error.Error()
	}

	return resp
}

// GetOperation retrieves a snapshot of a running operation
func (m *Manager) GetOperation(id string) (*OperationState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, exists := m.operations[id]
	if !exists {
		return nil, fmt.Errorf("operation %s: %w", id, ErrOperationNotFound)
	}

	return state.Clone(), nil
}

// ListOperations returns snapshots of all running operations
func (m *Manager) ListOperations() []*OperationState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	operations := make([]*OperationState, 0, len(m.operations))
	for _, state := range m.operations {
		operations = append(operations, state.Clone())
	}

	return operations
}

// CancelOperation cancels a running operation. The running step observes
// the cancellation through its context.
func (m *Manager) CancelOperation(id string) error {
	m.mu.RLock()
	cancel, exists := m.cancels[id]
	m.mu.RUnlock()

	if !exists {
		return fmt.Errorf("operation %s: %w", id, ErrOperationNotFound)
	}

	cancel()
	return nil
}

func (m *Manager) storeOperation(state *OperationState, cancel context.CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations[state.ID] = state
	m.cancels[state.ID] = cancel
}

func (m *Manager) removeOperation(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.operations, id)
	delete(m.cancels, id)
}

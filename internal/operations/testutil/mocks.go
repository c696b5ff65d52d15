package testutil

import (
	"context"
	"sync"

	"solarcli/internal/operations"
)

// MockStage is a configurable implementation of the Step interface
type MockStage struct {
	IDValue           string
	NameValue         string
	DependenciesValue []string

	ExecuteFunc  func(ctx context.Context, state *operations.OperationState) error
	ValidateFunc func(state *operations.OperationState) error

	mu            sync.Mutex
	executeCalls  int
	validateCalls int
}

// ID returns the step ID
func (m *MockStage) ID() string {
	return m.IDValue
}

// Name returns the step name
func (m *MockStage) Name() string {
	return m.NameValue
}

// GetDependencies returns the step dependencies
func (m *MockStage) GetDependencies() []string {
	if m.DependenciesValue == nil {
		return []string{}
	}
	return m.DependenciesValue
}

// Execute runs ExecuteFunc, succeeding when it is nil
func (m *MockStage) Execute(ctx context.Context, state *operations.OperationState) error {
	m.mu.Lock()
	m.executeCalls++
	m.mu.Unlock()

	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, state)
	}
	return nil
}

// Validate runs ValidateFunc, passing when it is nil
func (m *MockStage) Validate(state *operations.OperationState) error {
	m.mu.Lock()
	m.validateCalls++
	m.mu.Unlock()

	if m.ValidateFunc != nil {
		return m.ValidateFunc(state)
	}
	return nil
}

// ExecuteCalls returns the number of Execute calls
func (m *MockStage) ExecuteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.executeCalls
}

// ValidateCalls returns the number of Validate calls
func (m *MockStage) ValidateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validateCalls
}

// ProgressRecorder collects the updates passed to a ProgressFunc
type ProgressRecorder struct {
	mu      sync.Mutex
	updates []operations.ProgressUpdate
}

// Record is a ProgressFunc
func (r *ProgressRecorder) Record(u operations.ProgressUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

// Updates returns a copy of the recorded updates
func (r *ProgressRecorder) Updates() []operations.ProgressUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]operations.ProgressUpdate(nil), r.updates...)
}

// Statuses returns the recorded statuses of one step in order
func (r *ProgressRecorder) Statuses(stepID string) []operations.StepStatus {
	var out []operations.StepStatus
	for _, u := range r.Updates() {
		if u.StepID == stepID {
			out = append(out, u.Status)
		}
	}
	return out
}

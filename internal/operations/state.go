package operations

import (
	"fmt"
	"sync"
	"time"

	"solarcli/pkg/contracts/domain"
)

// OperationStatusValue represents the overall operation status enum
type OperationStatusValue string

const (
	OperationStatusPending   OperationStatusValue = "pending"
	OperationStatusRunning   OperationStatusValue = "running"
	OperationStatusCompleted OperationStatusValue = "completed"
	OperationStatusFailed    OperationStatusValue = "failed"
	OperationStatusCancelled OperationStatusValue = "cancelled"
)

// OperationState represents the complete state of a pipeline execution
type OperationState struct {
	mu sync.RWMutex

	ID        string               `json:"id"`
	Status    OperationStatusValue `json:"status"`
	StartTime time.Time            `json:"start_time"`
	EndTime   *time.Time           `json:"end_time,omitempty"`

	Steps map[string]*StepState `json:"steps"`

	// Context carries datasets and reports from one step to the next
	Context map[string]interface{} `json:"-"`

	// Config holds the request parameters
	Config map[string]interface{} `json:"config"`

	Error error `json:"-"`
}

// NewOperationState creates a new operation state
func NewOperationState(id string) *OperationState {
	return &OperationState{
		ID:        id,
		Status:    OperationStatusPending,
		StartTime: time.Now(),
		Steps:     make(map[string]*StepState),
		Context:   make(map[string]interface{}),
		Config:    make(map[string]interface{}),
	}
}

// Start marks the operation as running
func (p *OperationState) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Status = OperationStatusRunning
	p.StartTime = time.Now()
}

// Complete marks the operation as completed
func (p *OperationState) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusCompleted
}

// Fail marks the operation as failed
func (p *OperationState) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusFailed
	p.Error = err
}

// Cancel marks the operation as cancelled
func (p *OperationState) Cancel(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusCancelled
	p.Error = err
}

// GetStatus returns the current operation status
func (p *OperationState) GetStatus() OperationStatusValue {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Status
}

// GetStage returns the state of a specific step
func (p *OperationState) GetStage(stepID string) *StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Steps[stepID]
}

// SetStage updates the state of a specific step
func (p *OperationState) SetStage(stepID string, state *StepState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Steps[stepID] = state
}

// GetContext retrieves a value from the operation context
func (p *OperationState) GetContext(key string) (interface{}, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	val, ok := p.Context[key]
	return val, ok
}

// SetContext sets a value in the operation context
func (p *OperationState) SetContext(key string, value interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Context[key] = value
}

// GetConfig retrieves a configuration value
func (p *OperationState) GetConfig(key string) (interface{}, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	val, ok := p.Config[key]
	return val, ok
}

// SetConfig sets a configuration value
func (p *OperationState) SetConfig(key string, value interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Config[key] = value
}

// Datasets returns the datasets stored under key
func (p *OperationState) Datasets(key string) ([]*domain.Dataset, error) {
	v, ok := p.GetContext(key)
	if !ok {
		return nil, fmt.Errorf("%s not found in operation context", key)
	}
	ds, ok := v.([]*domain.Dataset)
	if !ok {
		return nil, fmt.Errorf("%s has unexpected type %T", key, v)
	}
	return ds, nil
}

// CleaningReports returns the cleaning reports produced by the clean step
func (p *OperationState) CleaningReports() []*domain.CleaningReport {
	v, _ := p.GetContext(ContextKeyCleaningReports)
	reports, _ := v.([]*domain.CleaningReport)
	return reports
}

// AnalysisReport returns the report produced by the analyze step
func (p *OperationState) AnalysisReport() (*domain.AnalysisReport, error) {
	v, ok := p.GetContext(ContextKeyAnalysisReport)
	if !ok {
		return nil, fmt.Errorf("%s not found in operation context", ContextKeyAnalysisReport)
	}
	report, ok := v.(*domain.AnalysisReport)
	if !ok || report == nil {
		return nil, fmt.Errorf("%s has unexpected type %T", ContextKeyAnalysisReport, v)
	}
	return report, nil
}

// AddWrittenFiles appends output paths to the list of files written so far
func (p *OperationState) AddWrittenFiles(paths ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	existing, _ := p.Context[ContextKeyWrittenFiles].([]string)
	p.Context[ContextKeyWrittenFiles] = append(existing, paths...)
}

// WrittenFiles returns every output path recorded by the steps
func (p *OperationState) WrittenFiles() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	files, _ := p.Context[ContextKeyWrittenFiles].([]string)
	return append([]string(nil), files...)
}

// Duration returns the duration of the operation execution
func (p *OperationState) Duration() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.EndTime != nil {
		return p.EndTime.Sub(p.StartTime)
	}
	return time.Since(p.StartTime)
}

// stepsWithStatus returns the IDs of steps in the given status
func (p *OperationState) stepsWithStatus(status StepStatus) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var ids []string
	for id, step := range p.Steps {
		if step.GetStatus() == status {
			ids = append(ids, id)
		}
	}
	return ids
}

// GetCompletedStages returns the IDs of all completed steps
func (p *OperationState) GetCompletedStages() []string {
	return p.stepsWithStatus(StepStatusCompleted)
}

// GetFailedStages returns the IDs of all failed steps
func (p *OperationState) GetFailedStages() []string {
	return p.stepsWithStatus(StepStatusFailed)
}

// IsComplete returns true if no step is pending or active
func (p *OperationState) IsComplete() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, step := range p.Steps {
		switch step.GetStatus() {
		case StepStatusPending, StepStatusActive:
			return false
		}
	}
	return true
}

// HasFailures returns true if any step has failed
func (p *OperationState) HasFailures() bool {
	return len(p.GetFailedStages()) > 0
}

// Clone creates a copy of the operation state. Context values are shared.
func (p *OperationState) Clone() *OperationState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	clone := &OperationState{
		ID:        p.ID,
		Status:    p.Status,
		StartTime: p.StartTime,
		Steps:     make(map[string]*StepState, len(p.Steps)),
		Context:   make(map[string]interface{}, len(p.Context)),
		Config:    make(map[string]interface{}, len(p.Config)),
		Error:     p.Error,
	}

	if p.EndTime != nil {
		endTime := *p.EndTime
		clone.EndTime = &endTime
	}

	for k, v := range p.Steps {
		clone.Steps[k] = v.snapshot()
	}
	for k, v := range p.Context {
		clone.Context[k] = v
	}
	for k, v := range p.Config {
		clone.Config[k] = v
	}

	return clone
}

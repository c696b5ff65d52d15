package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"solarcli/internal/operations"
)

// CreateTestConfig returns a config with short timeouts and two attempts
func CreateTestConfig() *operations.Config {
	return operations.NewConfigBuilder().
		WithRetryConfig(operations.RetryConfig{
			MaxAttempts:  2,
			InitialDelay: 5 * time.Millisecond,
			MaxDelay:     20 * time.Millisecond,
			Multiplier:   2.0,
		}).
		WithStageTimeout(operations.StepIDIngest, time.Second).
		WithStageTimeout(operations.StepIDClean, time.Second).
		WithStageTimeout(operations.StepIDAnalyze, time.Second).
		WithStageTimeout(operations.StepIDExport, time.Second).
		Build()
}

// CreateSuccessfulStage creates a step that always succeeds
func CreateSuccessfulStage(id, name string, deps ...string) *MockStage {
	return &MockStage{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
	}
}

// CreateFailingStage creates a step whose Execute always returns err
func CreateFailingStage(id, name string, err error, deps ...string) *MockStage {
	return &MockStage{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			return err
		},
	}
}

// CreateRetryableStage creates a step that fails with a retryable error
// failCount times before succeeding
func CreateRetryableStage(id, name string, failCount int, deps ...string) *MockStage {
	var mu sync.Mutex
	attempts := 0
	return &MockStage{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			mu.Lock()
			defer mu.Unlock()
			attempts++
			if attempts <= failCount {
				return operations.NewExecutionError(id, fmt.Errorf("attempt %d failed", attempts), true)
			}
			return nil
		},
	}
}

// CreateSlowStage creates a step that waits for duration or its context
func CreateSlowStage(id, name string, duration time.Duration, deps ...string) *MockStage {
	return &MockStage{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			select {
			case <-time.After(duration):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
}

// CreateValidationFailingStage creates a step whose Validate returns err
func CreateValidationFailingStage(id, name string, err error, deps ...string) *MockStage {
	return &MockStage{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ValidateFunc: func(state *operations.OperationState) error {
			return err
		},
	}
}

// CreateContextAwareStage creates a step that requires readKey (when set)
// and writes writeValue under writeKey
func CreateContextAwareStage(id, name, readKey, writeKey string, writeValue interface{}, deps ...string) *MockStage {
	return &MockStage{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			if readKey != "" {
				if _, ok := state.GetContext(readKey); !ok {
					return fmt.Errorf("required context key %s not found", readKey)
				}
			}
			if writeKey != "" {
				state.SetContext(writeKey, writeValue)
			}
			return nil
		},
	}
}

// CreateLinearPipeline returns ingest -> clean -> analyze -> export mocks
func CreateLinearPipeline() []*MockStage {
	return []*MockStage{
		CreateSuccessfulStage(operations.StepIDIngest, operations.StepNameIngest),
		CreateSuccessfulStage(operations.StepIDClean, operations.StepNameClean, operations.StepIDIngest),
		CreateSuccessfulStage(operations.StepIDAnalyze, operations.StepNameAnalyze, operations.StepIDClean),
		CreateSuccessfulStage(operations.StepIDExport, operations.StepNameExport, operations.StepIDAnalyze),
	}
}

package operations_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarcli/internal/config"
	"solarcli/internal/infrastructure"
	"solarcli/internal/operations"
	"solarcli/internal/operations/testutil"
)

func newTestManager(t *testing.T, config *operations.Config, steps ...*testutil.MockStage) (*operations.Manager, *testutil.ProgressRecorder) {
	t.Helper()

	if config == nil {
		config = testutil.CreateTestConfig()
	}
	logger := infrastructure.NewLogger("error", io.Discard)
	manager := operations.NewManager(nil, config, logger, nil)
	for _, s := range steps {
		require.NoError(t, manager.RegisterStage(s))
	}

	recorder := &testutil.ProgressRecorder{}
	manager.OnProgress(recorder.Record)
	return manager, recorder
}

func stepStatus(t *testing.T, resp *operations.OperationResponse, id string) operations.StepStatus {
	t.Helper()
	require.NotNil(t, resp)
	step, ok := resp.Steps[id]
	require.True(t, ok, "step %s missing from response", id)
	return step.Status
}

func TestManager_Defaults(t *testing.T) {
	manager := operations.NewManager(nil, nil, nil, nil)

	assert.NotNil(t, manager.GetRegistry())
	assert.NotNil(t, manager.GetConfig())

	custom := operations.NewConfigBuilder().WithContinueOnError(true).Build()
	manager.SetConfig(custom)
	assert.True(t, manager.GetConfig().ContinueOnError)

	manager.SetConfig(nil)
	assert.Same(t, custom, manager.GetConfig())
}

func TestManager_ExecuteFullPipeline(t *testing.T) {
	steps := testutil.CreateLinearPipeline()
	manager, recorder := newTestManager(t, nil, steps...)

	resp, err := manager.Execute(context.Background(), operations.OperationRequest{})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, operations.OperationStatusCompleted, resp.Status)
	assert.Empty(t, resp.Error)
	for _, id := range operations.StepIDs {
		assert.Equal(t, operations.StepStatusCompleted, stepStatus(t, resp, id), id)
	}
	for _, s := range steps {
		assert.Equal(t, 1, s.ExecuteCalls())
		assert.Equal(t, 1, s.ValidateCalls())
	}

	assert.Equal(t,
		[]operations.StepStatus{operations.StepStatusActive, operations.StepStatusCompleted},
		recorder.Statuses(operations.StepIDAnalyze))

	updates := recorder.Updates()
	require.NotEmpty(t, updates)
	last := updates[len(updates)-1]
	assert.Equal(t, operations.StepIDExport, last.StepID)
	assert.Equal(t, 3, last.Index)
	assert.Equal(t, 4, last.Total)
	assert.Equal(t, resp.ID, last.OperationID)
}

func TestManager_PassesContextBetweenSteps(t *testing.T) {
	producer := testutil.CreateContextAwareStage("produce", "Produce", "", "value", 42)
	consumer := testutil.CreateContextAwareStage("consume", "Consume", "value", "", nil, "produce")
	manager, _ := newTestManager(t, nil, producer, consumer)

	resp, err := manager.Execute(context.Background(), operations.OperationRequest{ID: "ctx"})
	require.NoError(t, err)
	assert.Equal(t, "ctx", resp.ID)
	assert.Equal(t, operations.StepStatusCompleted, stepStatus(t, resp, "consume"))
}

func TestManager_StopsOnFailure(t *testing.T) {
	steps := testutil.CreateLinearPipeline()
	steps[1] = testutil.CreateFailingStage(operations.StepIDClean, operations.StepNameClean,
		errors.New("bad data"), operations.StepIDIngest)
	manager, _ := newTestManager(t, nil, steps...)

	resp, err := manager.Execute(context.Background(), operations.OperationRequest{})
	require.Error(t, err)

	assert.Equal(t, operations.ErrorTypeExecution, operations.GetErrorType(err))
	assert.Contains(t, err.Error(), "bad data")
	assert.Equal(t, operations.OperationStatusFailed, resp.Status)
	assert.Contains(t, resp.Error, "bad data")

	assert.Equal(t, operations.StepStatusCompleted, stepStatus(t, resp, operations.StepIDIngest))
	assert.Equal(t, operations.StepStatusFailed, stepStatus(t, resp, operations.StepIDClean))
	assert.Equal(t, operations.StepStatusSkipped, stepStatus(t, resp, operations.StepIDAnalyze))
	assert.Equal(t, operations.StepStatusSkipped, stepStatus(t, resp, operations.StepIDExport))
	assert.Zero(t, steps[2].ExecuteCalls())
	assert.Zero(t, steps[3].ExecuteCalls())
}

func TestManager_ContinueOnError(t *testing.T) {
	failing := testutil.CreateFailingStage("a", "A", errors.New("a failed"))
	independent := testutil.CreateSuccessfulStage("b", "B")
	dependant := testutil.CreateSuccessfulStage("c", "C", "a")
	grandchild := testutil.CreateSuccessfulStage("d", "D", "c")

	config := testutil.CreateTestConfig()
	config.ContinueOnError = true
	manager, _ := newTestManager(t, config, failing, independent, dependant, grandchild)

	resp, err := manager.Execute(context.Background(), operations.OperationRequest{})
	require.Error(t, err)

	assert.Equal(t, operations.OperationStatusFailed, resp.Status)
	assert.Equal(t, operations.StepStatusFailed, stepStatus(t, resp, "a"))
	assert.Equal(t, operations.StepStatusCompleted, stepStatus(t, resp, "b"))
	assert.Equal(t, operations.StepStatusSkipped, stepStatus(t, resp, "c"))
	assert.Equal(t, operations.StepStatusSkipped, stepStatus(t, resp, "d"))
	assert.Equal(t, 1, independent.ExecuteCalls())
	assert.Zero(t, dependant.ExecuteCalls())
}

func TestManager_CompletionLogListsSteps(t *testing.T) {
	var buf bytes.Buffer
	cfg := testutil.CreateTestConfig()
	cfg.ContinueOnError = true
	manager := operations.NewManager(nil, cfg, infrastructure.NewLogger("info", &buf), nil)
	require.NoError(t, manager.RegisterStage(testutil.CreateFailingStage("a", "A", errors.New("a failed"))))
	require.NoError(t, manager.RegisterStage(testutil.CreateSuccessfulStage("b", "B")))

	_, err := manager.Execute(context.Background(), operations.OperationRequest{ID: "op-log"})
	require.Error(t, err)

	var entry map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var candidate map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &candidate))
		if candidate["msg"] == "operation complete" {
			entry = candidate
		}
	}
	require.NotNil(t, entry, "completion must be logged")
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "op-log", entry["operation_id"])
	assert.Equal(t, []interface{}{"b"}, entry["completed_steps"])
	assert.Equal(t, []interface{}{"a"}, entry["failed_steps"])
}

func TestConfigFromPipeline(t *testing.T) {
	defaults := operations.ConfigFromPipeline(config.PipelineConfig{})
	assert.False(t, defaults.ContinueOnError)
	assert.Equal(t, operations.DefaultIngestTimeout, defaults.GetStageTimeout(operations.StepIDIngest))

	cfg := operations.ConfigFromPipeline(config.PipelineConfig{
		StepTimeout:      2 * time.Minute,
		OperationTimeout: time.Hour,
		ContinueOnError:  true,
	})
	assert.True(t, cfg.ContinueOnError)
	assert.Equal(t, time.Hour, cfg.OperationTimeout)
	for _, id := range []string{operations.StepIDIngest, operations.StepIDClean, operations.StepIDAnalyze, operations.StepIDExport} {
		assert.Equal(t, 2*time.Minute, cfg.GetStageTimeout(id), id)
	}
}

func TestManager_ValidationFailure(t *testing.T) {
	invalid := testutil.CreateValidationFailingStage("a", "A", errors.New("raw files not found"))
	next := testutil.CreateSuccessfulStage("b", "B", "a")
	manager, _ := newTestManager(t, nil, invalid, next)

	resp, err := manager.Execute(context.Background(), operations.OperationRequest{})
	require.Error(t, err)

	assert.Equal(t, operations.ErrorTypeValidation, operations.GetErrorType(err))
	assert.Zero(t, invalid.ExecuteCalls())
	assert.Equal(t, operations.StepStatusFailed, stepStatus(t, resp, "a"))
	assert.Equal(t, operations.StepStatusSkipped, stepStatus(t, resp, "b"))
}

func TestManager_StepTimeout(t *testing.T) {
	slow := testutil.CreateSlowStage("slow", "Slow", time.Second)
	config := operations.NewConfigBuilder().
		WithStageTimeout("slow", 20*time.Millisecond).
		Build()
	manager, _ := newTestManager(t, config, slow)

	start := time.Now()
	resp, err := manager.Execute(context.Background(), operations.OperationRequest{})
	require.Error(t, err)

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, operations.ErrorTypeTimeout, operations.GetErrorType(err))
	assert.Equal(t, operations.OperationStatusFailed, resp.Status)
	assert.Equal(t, operations.StepStatusFailed, stepStatus(t, resp, "slow"))
}

func TestManager_RetriesRetryableErrors(t *testing.T) {
	tests := []struct {
		name        string
		failures    int
		wantErr     bool
		wantAttempt int
	}{
		{"succeeds on second attempt", 1, false, 2},
		{"gives up after max attempts", 5, true, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step := testutil.CreateRetryableStage("flaky", "Flaky", tt.failures)
			manager, _ := newTestManager(t, nil, step)

			resp, err := manager.Execute(context.Background(), operations.OperationRequest{})
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, operations.StepStatusFailed, stepStatus(t, resp, "flaky"))
			} else {
				require.NoError(t, err)
				assert.Equal(t, operations.StepStatusCompleted, stepStatus(t, resp, "flaky"))
			}
			assert.Equal(t, tt.wantAttempt, step.ExecuteCalls())
		})
	}
}

func TestManager_NonRetryableErrorRunsOnce(t *testing.T) {
	step := testutil.CreateFailingStage("once", "Once", errors.New("permanent"))
	manager, _ := newTestManager(t, nil, step)

	_, err := manager.Execute(context.Background(), operations.OperationRequest{})
	require.Error(t, err)
	assert.Equal(t, 1, step.ExecuteCalls())
}

func TestManager_CancelledContext(t *testing.T) {
	steps := testutil.CreateLinearPipeline()
	manager, _ := newTestManager(t, nil, steps...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := manager.Execute(ctx, operations.OperationRequest{})
	require.Error(t, err)

	assert.Equal(t, operations.ErrorTypeCancellation, operations.GetErrorType(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, operations.OperationStatusCancelled, resp.Status)
	for _, id := range operations.StepIDs {
		assert.Equal(t, operations.StepStatusSkipped, stepStatus(t, resp, id))
	}
	assert.Zero(t, steps[0].ExecuteCalls())
}

func TestManager_CancelOperation(t *testing.T) {
	started := make(chan struct{})
	blocking := &testutil.MockStage{
		IDValue:   "block",
		NameValue: "Block",
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		},
	}
	after := testutil.CreateSuccessfulStage("after", "After", "block")
	manager, _ := newTestManager(t, nil, blocking, after)

	type result struct {
		resp *operations.OperationResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := manager.Execute(context.Background(), operations.OperationRequest{ID: "op-cancel"})
		done <- result{resp, err}
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("step did not start")
	}

	running, err := manager.GetOperation("op-cancel")
	require.NoError(t, err)
	assert.Equal(t, operations.OperationStatusRunning, running.Status)
	assert.Len(t, manager.ListOperations(), 1)

	require.NoError(t, manager.CancelOperation("op-cancel"))

	select {
	case r := <-done:
		require.Error(t, r.err)
		assert.Equal(t, operations.ErrorTypeCancellation, operations.GetErrorType(r.err))
		assert.Equal(t, operations.OperationStatusCancelled, r.resp.Status)
		assert.Equal(t, operations.StepStatusSkipped, stepStatus(t, r.resp, "after"))
	case <-time.After(2 * time.Second):
		t.Fatal("operation did not stop after cancel")
	}

	_, err = manager.GetOperation("op-cancel")
	assert.ErrorIs(t, err, operations.ErrOperationNotFound)
	assert.ErrorIs(t, manager.CancelOperation("op-cancel"), operations.ErrOperationNotFound)
}

func TestManager_SingleStep(t *testing.T) {
	steps := testutil.CreateLinearPipeline()
	manager, _ := newTestManager(t, nil, steps...)

	resp, err := manager.Execute(context.Background(), operations.OperationRequest{
		Parameters: map[string]interface{}{operations.ParamStep: operations.StepIDAnalyze},
	})
	require.NoError(t, err)

	// analyze runs with export and starts from disk
	assert.Len(t, resp.Steps, 2)
	assert.Equal(t, operations.StepStatusCompleted, stepStatus(t, resp, operations.StepIDAnalyze))
	assert.Equal(t, operations.StepStatusCompleted, stepStatus(t, resp, operations.StepIDExport))
	assert.Zero(t, steps[0].ExecuteCalls())
	assert.Zero(t, steps[1].ExecuteCalls())
	assert.Equal(t, 1, steps[2].ExecuteCalls())
	assert.Equal(t, 1, steps[3].ExecuteCalls())

	resp, err = manager.Execute(context.Background(), operations.OperationRequest{
		Parameters: map[string]interface{}{operations.ParamStep: operations.StepIDClean},
	})
	require.NoError(t, err)
	assert.Len(t, resp.Steps, 2)
	assert.Equal(t, 1, steps[0].ExecuteCalls())
	assert.Equal(t, 1, steps[1].ExecuteCalls())

	_, err = manager.Execute(context.Background(), operations.OperationRequest{
		Parameters: map[string]interface{}{operations.ParamStep: "unknown"},
	})
	assert.ErrorIs(t, err, operations.ErrStepNotFound)
}

func TestManager_NoSteps(t *testing.T) {
	manager, _ := newTestManager(t, nil)

	resp, err := manager.Execute(context.Background(), operations.OperationRequest{})
	require.Error(t, err)
	assert.Equal(t, operations.ErrorTypeFatal, operations.GetErrorType(err))
	assert.Equal(t, operations.OperationStatusFailed, resp.Status)
}

func TestManager_StepProgressIsForwarded(t *testing.T) {
	step := &testutil.MockStage{
		IDValue:   "work",
		NameValue: "Work",
		ExecuteFunc: func(ctx context.Context, state *operations.OperationState) error {
			operations.ReportProgress(ctx, 50, "half done")
			return nil
		},
	}
	manager, recorder := newTestManager(t, nil, step)

	_, err := manager.Execute(context.Background(), operations.OperationRequest{})
	require.NoError(t, err)

	var found bool
	for _, u := range recorder.Updates() {
		if u.Status == operations.StepStatusActive && u.Progress == 50 {
			found = true
			assert.Equal(t, "half done", u.Message)
		}
	}
	assert.True(t, found, "progress update not forwarded")
}

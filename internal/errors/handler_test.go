package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarcli/internal/shared/testutil"
)

type summaryQuery struct {
	Metric string `validate:"required"`
	Period string `validate:"omitempty,oneof=hourly daily monthly"`
}

func validationErrors(t *testing.T) error {
	t.Helper()
	err := validator.New().Struct(summaryQuery{Period: "weekly"})
	require.Error(t, err)
	return err
}

func TestErrorHandler_ErrorToProblem(t *testing.T) {
	logger, _ := testutil.NewTestLogger(nil)
	h := NewErrorHandler(logger, false)
	r := httptest.NewRequest(http.MethodGet, "/api/summary", nil)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantExt    string
	}{
		{name: "deadline", err: context.DeadlineExceeded, wantStatus: http.StatusGatewayTimeout, wantType: TypeTimeout},
		{name: "wrapped cancel", err: fmt.Errorf("load: %w", context.Canceled), wantStatus: http.StatusGatewayTimeout, wantType: TypeTimeout},
		{name: "no data", err: ErrNoData, wantStatus: http.StatusNotFound, wantType: TypeDataNotFound, wantExt: "error_code"},
		{name: "unknown metric", err: BadQuery(CodeUnknownMetric, "metric", stderrors.New("unknown metric UV")), wantStatus: http.StatusBadRequest, wantType: TypeUnknownMetric, wantExt: "errors"},
		{name: "unknown country", err: BadQuery(CodeUnknownCountry, "country", stderrors.New("unknown country")), wantStatus: http.StatusBadRequest, wantType: TypeUnknownCountry, wantExt: "errors"},
		{name: "invalid period", err: BadQuery(CodeInvalidPeriod, "period", stderrors.New("bad period")), wantStatus: http.StatusBadRequest, wantType: TypeInvalidPeriod},
		{name: "operation running", err: ErrOperationRunning, wantStatus: http.StatusConflict, wantType: TypeOperationRunning},
		{name: "operation failed", err: ErrOperationExecution(stderrors.New("clean failed"), map[string]string{"id": "op-1"}), wantStatus: http.StatusInternalServerError, wantType: TypeOperationFailed, wantExt: "details"},
		{name: "validator errors", err: validationErrors(t), wantStatus: http.StatusBadRequest, wantType: TypeValidation, wantExt: "errors"},
		{name: "app parsing", err: NewParsingError("bad row", nil), wantStatus: http.StatusUnprocessableEntity, wantType: TypeDataCorrupted},
		{name: "app not found", err: NewNotFoundError("cleaned file", nil).WithContext("country", "togo"), wantStatus: http.StatusNotFound, wantType: TypeNotFound, wantExt: "context"},
		{name: "app storage", err: NewStorageError("disk full", nil), wantStatus: http.StatusInternalServerError, wantType: TypeInternal},
		{name: "plain error", err: stderrors.New("boom"), wantStatus: http.StatusInternalServerError, wantType: TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problem := h.ErrorToProblem(tt.err, r)
			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, "/api/summary", problem.Instance)
			if tt.wantExt != "" {
				assert.Contains(t, problem.Extensions, tt.wantExt)
			}
		})
	}
}

func TestErrorHandler_InternalDetailHidden(t *testing.T) {
	logger, _ := testutil.NewTestLogger(nil)
	h := NewErrorHandler(logger, false)
	r := httptest.NewRequest(http.MethodGet, "/api/tests", nil)

	problem := h.ErrorToProblem(NewAnalysisError("matrix singular: /secret/path", nil), r)
	assert.Equal(t, http.StatusInternalServerError, problem.Status)
	assert.NotContains(t, problem.Detail, "/secret/path")
}

func TestFieldErrors(t *testing.T) {
	var verrs validator.ValidationErrors
	require.True(t, stderrors.As(validationErrors(t), &verrs))

	fields := FieldErrors(verrs)
	require.Len(t, fields, 2)
	assert.Equal(t, "Metric", fields[0].Field)
	assert.Equal(t, "failed on the 'required' rule", fields[0].Message)
	assert.Equal(t, "Period", fields[1].Field)
	assert.Equal(t, "failed on the 'oneof=hourly daily monthly' rule", fields[1].Message)
}

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		stack      bool
		wantStatus int
		wantLevel  slog.Level
		wantStack  bool
	}{
		{name: "client error logs warn", err: ErrOperationNotFound, wantStatus: http.StatusNotFound, wantLevel: slog.LevelWarn},
		{name: "server error logs error", err: stderrors.New("boom"), wantStatus: http.StatusInternalServerError, wantLevel: slog.LevelError},
		{name: "stack only on server errors", err: stderrors.New("boom"), stack: true, wantStatus: http.StatusInternalServerError, wantLevel: slog.LevelError, wantStack: true},
		{name: "no stack on client errors", err: ErrNoData, stack: true, wantStatus: http.StatusNotFound, wantLevel: slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, capture := testutil.NewTestLogger(t)
			h := NewErrorHandler(logger, tt.stack)

			r := httptest.NewRequest(http.MethodGet, "/api/ranking", nil)
			r = r.WithContext(context.WithValue(r.Context(), middleware.RequestIDKey, "req-42"))
			w := httptest.NewRecorder()

			h.HandleError(w, r, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, float64(tt.wantStatus), body["status"])
			assert.Equal(t, "req-42", body["trace_id"])
			if tt.wantStack {
				assert.Contains(t, body, "stack")
			} else {
				assert.NotContains(t, body, "stack")
			}

			testutil.AssertLogContains(t, capture, tt.wantLevel, "request failed")
			testutil.AssertLogAttr(t, capture, "request_id", "req-42")
			testutil.AssertLogAttr(t, capture, "component", "error_handler")
		})
	}
}

func TestErrorHandler_HandleErrorNil(t *testing.T) {
	logger, capture := testutil.NewTestLogger(nil)
	h := NewErrorHandler(logger, false)
	w := httptest.NewRecorder()

	h.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Equal(t, 0, w.Body.Len())
	assert.Zero(t, capture.Count())
}

func TestErrorHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	logger, _ := testutil.NewTestLogger(nil)
	h := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	h.NotFound(w, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), TypeNotFound)

	w = httptest.NewRecorder()
	h.MethodNotAllowed(w, httptest.NewRequest(http.MethodDelete, "/api/summary", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Body.String(), "Method DELETE is not allowed")
}

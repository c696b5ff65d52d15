package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "solarcli/internal/errors"
	"solarcli/internal/infrastructure"
	mw "solarcli/internal/middleware"
	"solarcli/internal/operations"
	"solarcli/internal/services"
	"solarcli/pkg/contracts/domain"
)

func testLogger() *slog.Logger {
	return infrastructure.NewLogger("error", io.Discard)
}

func testDeps() (*mw.Validator, *apierrors.ErrorHandler) {
	return mw.NewValidator(testLogger()), apierrors.NewErrorHandler(testLogger(), false)
}

// do serves one request and decodes the JSON body
func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, target, reader)
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	var decoded map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded), w.Body.String())
	}
	return w, decoded
}

// MockAnalysisService is a mock implementation of AnalysisServiceInterface
type MockAnalysisService struct {
	mock.Mock
}

func (m *MockAnalysisService) Refresh(ctx context.Context) (*domain.AnalysisReport, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AnalysisReport), args.Error(1)
}

func (m *MockAnalysisService) Report(ctx context.Context) (*domain.AnalysisReport, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AnalysisReport), args.Error(1)
}

func (m *MockAnalysisService) Countries(ctx context.Context) ([]services.CountryInfo, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.CountryInfo), args.Error(1)
}

func (m *MockAnalysisService) Summary(ctx context.Context, metric string, countries []string) ([]domain.MetricSummary, error) {
	args := m.Called(metric, countries)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MetricSummary), args.Error(1)
}

func (m *MockAnalysisService) Ranking(ctx context.Context, metric string) (domain.Ranking, error) {
	args := m.Called(metric)
	return args.Get(0).(domain.Ranking), args.Error(1)
}

func (m *MockAnalysisService) Tests(ctx context.Context, metric string) (services.TestsResult, error) {
	args := m.Called(metric)
	return args.Get(0).(services.TestsResult), args.Error(1)
}

func (m *MockAnalysisService) Correlation(ctx context.Context) (domain.CorrelationMatrix, error) {
	args := m.Called()
	return args.Get(0).(domain.CorrelationMatrix), args.Error(1)
}

func (m *MockAnalysisService) Aggregate(ctx context.Context, period string, metrics, countries []string) ([]domain.AggregatePoint, error) {
	args := m.Called(period, metrics, countries)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AggregatePoint), args.Error(1)
}

func (m *MockAnalysisService) Diurnal(ctx context.Context, metric string, countries []string) ([]domain.HourlyProfile, error) {
	args := m.Called(metric, countries)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.HourlyProfile), args.Error(1)
}

func (m *MockAnalysisService) Distribution(ctx context.Context, metric string, bins int, countries []string) (domain.Histogram, error) {
	args := m.Called(metric, bins, countries)
	return args.Get(0).(domain.Histogram), args.Error(1)
}

func (m *MockAnalysisService) Recommendations(ctx context.Context) (*domain.Recommendations, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Recommendations), args.Error(1)
}

func (m *MockAnalysisService) LoadedAt() time.Time {
	args := m.Called()
	return args.Get(0).(time.Time)
}

// MockOperationService is a mock implementation of OperationServiceInterface
type MockOperationService struct {
	mock.Mock
}

func (m *MockOperationService) Run(ctx context.Context, req operations.OperationRequest) (*operations.OperationResponse, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*operations.OperationResponse), args.Error(1)
}

func (m *MockOperationService) Start(ctx context.Context, req operations.OperationRequest) (string, error) {
	args := m.Called(req)
	return args.String(0), args.Error(1)
}

func (m *MockOperationService) Status(ctx context.Context, id string) (*operations.OperationResponse, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*operations.OperationResponse), args.Error(1)
}

func (m *MockOperationService) List(ctx context.Context) []*operations.OperationResponse {
	args := m.Called()
	return args.Get(0).([]*operations.OperationResponse)
}

func (m *MockOperationService) Cancel(ctx context.Context, id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockOperationService) Steps() ([]services.StepInfo, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.StepInfo), args.Error(1)
}

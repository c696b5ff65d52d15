package http

import (
	"context"
	"time"

	"solarcli/internal/operations"
	"solarcli/internal/services"
	"solarcli/pkg/contracts/domain"
)

// AnalysisServiceInterface is the read side served by AnalysisHandler
type AnalysisServiceInterface interface {
	Refresh(ctx context.Context) (*domain.AnalysisReport, error)
	Report(ctx context.Context) (*domain.AnalysisReport, error)
	Countries(ctx context.Context) ([]services.CountryInfo, error)
	Summary(ctx context.Context, metric string, countries []string) ([]domain.MetricSummary, error)
	Ranking(ctx context.Context, metric string) (domain.Ranking, error)
	Tests(ctx context.Context, metric string) (services.TestsResult, error)
	Correlation(ctx context.Context) (domain.CorrelationMatrix, error)
	Aggregate(ctx context.Context, period string, metrics, countries []string) ([]domain.AggregatePoint, error)
	Diurnal(ctx context.Context, metric string, countries []string) ([]domain.HourlyProfile, error)
	Distribution(ctx context.Context, metric string, bins int, countries []string) (domain.Histogram, error)
	Recommendations(ctx context.Context) (*domain.Recommendations, error)
	LoadedAt() time.Time
}

// OperationServiceInterface runs and tracks pipeline operations
type OperationServiceInterface interface {
	Run(ctx context.Context, req operations.OperationRequest) (*operations.OperationResponse, error)
	Start(ctx context.Context, req operations.OperationRequest) (string, error)
	Status(ctx context.Context, id string) (*operations.OperationResponse, error)
	List(ctx context.Context) []*operations.OperationResponse
	Cancel(ctx context.Context, id string) error
	Steps() ([]services.StepInfo, error)
}

var (
	_ AnalysisServiceInterface  = (*services.AnalysisService)(nil)
	_ OperationServiceInterface = (*services.OperationService)(nil)
)

package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "solarcli/internal/errors"
	"solarcli/internal/infrastructure"
	mw "solarcli/internal/middleware"
	api "solarcli/pkg/contracts/api/v1"
)

// AnalysisHandler serves the comparative analysis of the cleaned datasets
type AnalysisHandler struct {
	service      AnalysisServiceInterface
	validator    *mw.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service AnalysisServiceInterface, validator *mw.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalysisHandler {
	return &AnalysisHandler{
		service:      service,
		validator:    validator,
		logger:       infrastructure.WithComponent(logger, "analysis_handler"),
		errorHandler: errorHandler,
	}
}

// Routes returns the analysis routes, mounted under /api
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/countries", h.GetCountries)
	r.Get("/report", h.GetReport)
	r.Get("/summary", h.GetSummary)
	r.Get("/ranking", h.GetRanking)
	r.Get("/tests", h.GetTests)
	r.Get("/correlation", h.GetCorrelation)
	r.Get("/aggregate", h.GetAggregate)
	r.Get("/diurnal", h.GetDiurnal)
	r.Get("/distribution", h.GetDistribution)
	r.Get("/recommendations", h.GetRecommendations)
	r.Post("/refresh", h.Refresh)

	return r
}

func (h *AnalysisHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.errorHandler.HandleError(w, r, mapServiceError(err))
}

// GetCountries handles GET /api/countries
func (h *AnalysisHandler) GetCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := h.service.Countries(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, api.NewListResponse(countries, len(countries)))
}

// GetReport handles GET /api/report
func (h *AnalysisHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Report(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, api.NewResponse(report))
}

// GetSummary handles GET /api/summary?metric=&country=
func (h *AnalysisHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	var q api.SummaryQuery
	if err := h.validator.DecodeQuery(r, &q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	summaries, err := h.service.Summary(r.Context(), q.Metric, optional(q.Country))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, api.NewListResponse(summaries, len(summaries)))
}

// GetRanking handles GET /api/ranking?metric=
func (h *AnalysisHandler) GetRanking(w http.ResponseWriter, r *http.Request) {
	var q api.MetricQuery
	if err := h.validator.DecodeQuery(r, &q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	ranking, err := h.service.Ranking(r.Context(), q.Metric)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, api.NewResponse(ranking))
}

// GetTests handles GET /api/tests?metric=
func (h *AnalysisHandler) GetTests(w http.ResponseWriter, r *http.Request) {
	var q api.MetricQuery
	if err := h.validator.DecodeQuery(r, &q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.service.Tests(r.Context(), q.Metric)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, api.NewResponse(result))
}

// GetCorrelation handles GET /api/correlation
func (h *AnalysisHandler) GetCorrelation(w http.ResponseWriter, r *http.Request) {
	matrix, err := h.service.Correlation(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, api.NewResponse(matrix))
}

// GetAggregate handles GET /api/aggregate?period=&metric=&country=
func (h *AnalysisHandler) GetAggregate(w http.ResponseWriter, r *http.Request) {
	var q api.AggregateQuery
	if err := h.validator.DecodeQuery(r, &q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	var metrics []string
	if q.Metric != "" {
		metrics = strings.Split(q.Metric, ",")
	}
	points, err := h.service.Aggregate(r.Context(), q.Period, metrics, optional(q.Country))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, api.NewListResponse(points, len(points)))
}

// GetDiurnal handles GET /api/diurnal?metric=&country=
func (h *AnalysisHandler) GetDiurnal(w http.ResponseWriter, r *http.Request) {
	var q api.DiurnalQuery
	if err := h.validator.DecodeQuery(r, &q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	profiles, err := h.service.Diurnal(r.Context(), q.Metric, optional(q.Country))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, api.NewListResponse(profiles, len(profiles)))
}

// GetDistribution handles GET /api/distribution?metric=&bins=&country=
func (h *AnalysisHandler) GetDistribution(w http.ResponseWriter, r *http.Request) {
	var q api.DistributionQuery
	if err := h.validator.DecodeQuery(r, &q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	hist, err := h.service.Distribution(r.Context(), q.Metric, q.Bins, optional(q.Country))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, api.NewResponse(hist))
}

// GetRecommendations handles GET /api/recommendations
func (h *AnalysisHandler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Recommendations(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, api.NewResponse(rec))
}

// Refresh handles POST /api/refresh by reloading the cleaned files
func (h *AnalysisHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Refresh(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "analysis refreshed",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Int("countries", len(report.Countries)),
	)
	render.JSON(w, r, api.NewResponse(api.RefreshResponse{
		Countries: report.Countries,
		LoadedAt:  h.service.LoadedAt(),
	}))
}

// optional turns an empty query value into no filter
func optional(v string) []string {
	if v == "" {
		return nil
	}
	return []string{v}
}

package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apierrors "solarcli/internal/errors"
	"solarcli/internal/infrastructure"
	mw "solarcli/internal/middleware"
	"solarcli/internal/operations"
	"solarcli/internal/services"
	api "solarcli/pkg/contracts/api/v1"
)

// OperationsHandler handles pipeline operation requests
type OperationsHandler struct {
	service      OperationServiceInterface
	validator    *mw.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewOperationsHandler creates a new operations handler
func NewOperationsHandler(service OperationServiceInterface, validator *mw.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *OperationsHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	return &OperationsHandler{
		service:      service,
		validator:    validator,
		logger:       infrastructure.WithComponent(logger, "operations_handler"),
		errorHandler: errorHandler,
	}
}

// Routes returns the operations routes, mounted under /api/operations
func (h *OperationsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.ListOperations)
	r.Post("/", h.StartOperation)
	r.Get("/steps", h.ListSteps)
	r.Get("/{id}", h.GetOperation)
	r.Post("/{id}/cancel", h.CancelOperation)
	r.Delete("/{id}", h.CancelOperation)

	return r
}

// StartOperation handles POST /api/operations. With "wait": true the run
// completes before the response; otherwise 202 points at the status URL.
func (h *OperationsHandler) StartOperation(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(infrastructure.ServiceName).Start(r.Context(), "operations_handler.start",
		trace.WithAttributes(attribute.String("request_id", middleware.GetReqID(r.Context()))),
	)
	defer span.End()
	r = r.WithContext(ctx)

	var req api.OperationStartRequest
	if err := h.validator.DecodeJSON(w, r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	opReq := toOperationRequest(req)
	span.SetAttributes(attribute.String("operation.step", req.Step), attribute.Bool("operation.wait", req.Wait))

	if req.Wait {
		resp, err := h.service.Run(ctx, opReq)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			if resp != nil && !errors.Is(err, services.ErrOperationRunning) {
				h.errorHandler.HandleError(w, r, apierrors.ErrOperationExecution(err, resp))
				return
			}
			h.errorHandler.HandleError(w, r, mapServiceError(err))
			return
		}
		render.JSON(w, r, api.NewResponse(resp))
		return
	}

	id, err := h.service.Start(ctx, opReq)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}
	span.SetAttributes(attribute.String("operation.id", id))

	h.logger.InfoContext(ctx, "operation accepted",
		slog.String("id", id),
		slog.String("step", req.Step),
	)
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, api.NewResponse(api.OperationAccepted{
		ID:        id,
		StatusURL: fmt.Sprintf("/api/operations/%s", id),
	}))
}

// GetOperation handles GET /api/operations/{id}
func (h *OperationsHandler) GetOperation(w http.ResponseWriter, r *http.Request) {
	req := api.OperationIDRequest{ID: chi.URLParam(r, "id")}
	if err := h.validator.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp, err := h.service.Status(r.Context(), req.ID)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}
	render.JSON(w, r, api.NewResponse(resp))
}

// ListOperations handles GET /api/operations
func (h *OperationsHandler) ListOperations(w http.ResponseWriter, r *http.Request) {
	list := h.service.List(r.Context())
	render.JSON(w, r, api.NewListResponse(list, len(list)))
}

// CancelOperation handles POST /api/operations/{id}/cancel and DELETE /api/operations/{id}
func (h *OperationsHandler) CancelOperation(w http.ResponseWriter, r *http.Request) {
	req := api.OperationIDRequest{ID: chi.URLParam(r, "id")}
	if err := h.validator.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if err := h.service.Cancel(r.Context(), req.ID); err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}
	render.JSON(w, r, api.NewResponse(map[string]string{
		"id":     req.ID,
		"status": string(operations.OperationStatusCancelled),
	}))
}

// ListSteps handles GET /api/operations/steps
func (h *OperationsHandler) ListSteps(w http.ResponseWriter, r *http.Request) {
	steps, err := h.service.Steps()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.NewListResponse(steps, len(steps)))
}

func toOperationRequest(req api.OperationStartRequest) operations.OperationRequest {
	params := make(map[string]interface{})
	if req.Step != "" {
		params[operations.ParamStep] = req.Step
	}
	if len(req.Countries) > 0 {
		params[operations.ParamCountries] = req.Countries
	}
	if req.Metric != "" {
		params[operations.ParamMetric] = req.Metric
	}
	if req.Workbook != nil {
		params[operations.ParamWorkbook] = *req.Workbook
	}

	mode := operations.ModeFull
	if req.Step != "" {
		mode = req.Step
	}
	return operations.OperationRequest{Mode: mode, Parameters: params}
}

package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "solarcli/internal/errors"
	"solarcli/internal/files"
	"solarcli/internal/infrastructure"
	mw "solarcli/internal/middleware"
	api "solarcli/pkg/contracts/api/v1"
)

// FilesHandler lists the raw, cleaned and report files
type FilesHandler struct {
	discovery    *files.Discovery
	validator    *mw.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewFilesHandler creates a new files handler
func NewFilesHandler(discovery *files.Discovery, validator *mw.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *FilesHandler {
	return &FilesHandler{
		discovery:    discovery,
		validator:    validator,
		logger:       infrastructure.WithComponent(logger, "files_handler"),
		errorHandler: errorHandler,
	}
}

// Routes returns the file routes, mounted under /api/files
func (h *FilesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListFiles)
	r.Get("/latest", h.LatestFile)
	return r
}

// ListFiles handles GET /api/files
func (h *FilesHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	inv, err := h.discovery.Inventory()
	if err != nil {
		h.logger.ErrorContext(r.Context(), "inventory failed", slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, apierrors.NewStorageError("failed to list data files", err))
		return
	}
	render.JSON(w, r, api.NewResponse(inv))
}

// LatestFile handles GET /api/files/latest?kind=raw|cleaned|report.
// The default kind is report.
func (h *FilesHandler) LatestFile(w http.ResponseWriter, r *http.Request) {
	var q api.LatestFileQuery
	if err := h.validator.DecodeQuery(r, &q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	kind := files.Kind(q.Kind)
	if kind == "" {
		kind = files.KindReport
	}

	inv, err := h.discovery.Inventory()
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewStorageError("failed to list data files", err))
		return
	}

	var candidates []files.FileInfo
	switch kind {
	case files.KindRaw:
		candidates = inv.Raw
	case files.KindCleaned:
		candidates = inv.Cleaned
	default:
		candidates = inv.Reports
	}

	latest, ok := files.GetLatestFile(candidates)
	if !ok {
		h.errorHandler.HandleError(w, r,
			apierrors.NewNotFoundError(string(kind)+" file", nil).WithContext("kind", string(kind)))
		return
	}
	render.JSON(w, r, api.NewResponse(latest))
}

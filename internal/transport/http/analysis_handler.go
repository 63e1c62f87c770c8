package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "platereader/internal/errors"
	"platereader/internal/grate"
	"platereader/internal/mic"
	pmiddleware "platereader/internal/middleware"
)

// AnalysisHandler serves the single-curve analyses with RFC 7807 errors
type AnalysisHandler struct {
	service      AnalysisServiceInterface
	validator    *pmiddleware.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service AnalysisServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalysisHandler {
	return &AnalysisHandler{
		service:      service,
		validator:    pmiddleware.NewValidator(),
		logger:       logger.With(slog.String("component", "analysis_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the analysis routes
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/mic", h.FitMIC)
	r.Post("/grate", h.GrowthRate)
	return r
}

// FitMIC handles POST /api/v1/mic
func (h *AnalysisHandler) FitMIC(w http.ResponseWriter, r *http.Request) {
	var req MICRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "fitting dose-response curve",
		slog.String("request_id", pmiddleware.GetRequestID(r.Context())),
		slog.Int("samples", len(req.Samples)),
	)

	result, err := h.service.FitCurve(r.Context(), mic.Curve(req.Samples), req.Options())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// GrowthRate handles POST /api/v1/grate
func (h *AnalysisHandler) GrowthRate(w http.ResponseWriter, r *http.Request) {
	var req GrateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "estimating growth rate",
		slog.String("request_id", pmiddleware.GetRequestID(r.Context())),
		slog.Int("samples", len(req.Samples)),
	)

	result, err := h.service.GrowthRate(r.Context(), grate.Curve(req.Samples), req.Options())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

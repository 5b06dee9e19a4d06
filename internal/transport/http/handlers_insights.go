package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pitchfund/internal/insights"
	id "pitchfund/pkg/domain"
	dErrors "pitchfund/pkg/domain-errors"
	"pitchfund/pkg/platform/httputil"
)

// InsightsService is the aggregation surface the endpoints use.
type InsightsService interface {
	FounderTimeline(ctx context.Context, founderID id.FounderID) (*insights.FounderTimeline, error)
	CompanyProgress(ctx context.Context, companyID id.CompanyID) (*insights.CompanyProgress, error)
	FounderInsights(ctx context.Context, founderID id.FounderID) (*insights.FounderInsights, error)
	AllFounderTimelines(ctx context.Context) ([]*insights.FounderTimeline, error)
	AllCompanyProgress(ctx context.Context) ([]*insights.CompanyProgress, error)
	AllFounderInsights(ctx context.Context) ([]*insights.FounderInsights, error)
}

// InsightsHandler serves the secure aggregation endpoints.
type InsightsHandler struct {
	service InsightsService
	logger  *slog.Logger
}

func NewInsightsHandler(service InsightsService, logger *slog.Logger) *InsightsHandler {
	return &InsightsHandler{service: service, logger: logger}
}

// Register mounts the insight endpoints. The collection routes are the
// portfolio-wide rollups; the {id} routes scope the same joins to one row.
func (h *InsightsHandler) Register(r chi.Router) {
	r.Get("/insights/timelines", h.HandleAllFounderTimelines)
	r.Get("/insights/founders", h.HandleAllFounderInsights)
	r.Get("/insights/companies", h.HandleAllCompanyProgress)
	r.Get("/insights/founders/{id}/timeline", h.HandleFounderTimeline)
	r.Get("/insights/founders/{id}", h.HandleFounderInsights)
	r.Get("/insights/companies/{id}/progress", h.HandleCompanyProgress)
}

func (h *InsightsHandler) HandleAllFounderTimelines(w http.ResponseWriter, r *http.Request) {
	timelines, err := h.service.AllFounderTimelines(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"timelines": timelines})
}

func (h *InsightsHandler) HandleAllFounderInsights(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.AllFounderInsights(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"founders": results})
}

func (h *InsightsHandler) HandleAllCompanyProgress(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.AllCompanyProgress(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"companies": results})
}

func (h *InsightsHandler) HandleFounderTimeline(w http.ResponseWriter, r *http.Request) {
	founderID, err := id.ParseFounderID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid founder id"))
		return
	}

	timeline, err := h.service.FounderTimeline(r.Context(), founderID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, timeline)
}

func (h *InsightsHandler) HandleFounderInsights(w http.ResponseWriter, r *http.Request) {
	founderID, err := id.ParseFounderID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid founder id"))
		return
	}

	result, err := h.service.FounderInsights(r.Context(), founderID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *InsightsHandler) HandleCompanyProgress(w http.ResponseWriter, r *http.Request) {
	companyID, err := id.ParseCompanyID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid company id"))
		return
	}

	progress, err := h.service.CompanyProgress(r.Context(), companyID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, progress)
}

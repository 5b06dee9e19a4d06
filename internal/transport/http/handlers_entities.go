package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	id "pitchfund/pkg/domain"
	dErrors "pitchfund/pkg/domain-errors"
	"pitchfund/pkg/platform/httputil"
	pstrings "pitchfund/pkg/platform/strings"
	"pitchfund/pkg/requestcontext"
)

// EntityGateway is the authorization gateway surface the entity endpoints use.
type EntityGateway interface {
	ReadEntity(ctx context.Context, kind id.EntityKind, rawID string, groups []id.FieldGroup) (map[string]any, error)
	WriteEntity(ctx context.Context, kind id.EntityKind, rawID string, patch map[string]any) (map[string]any, error)
	CreateCompany(ctx context.Context, name string, patch map[string]any) (map[string]any, error)
	CreateFounder(ctx context.Context, name, role string) (map[string]any, error)
	CreateUpdate(ctx context.Context, companyID id.CompanyID, founderID id.FounderID,
		periodStart, periodEnd time.Time, patch map[string]any) (map[string]any, error)
	CreateMetricPoint(ctx context.Context, companyID id.CompanyID, name string,
		periodEnd time.Time, value float64) (map[string]any, error)
	LinkFounder(ctx context.Context, companyID id.CompanyID, founderID id.FounderID, role string) error
	RecordInvestment(ctx context.Context, companyID id.CompanyID, investor string,
		amountUSD int64, firstRoundAt time.Time) error
}

// EntityHandler serves generic entity reads and writes plus the typed
// creation endpoints.
type EntityHandler struct {
	gateway EntityGateway
	logger  *slog.Logger
}

func NewEntityHandler(gateway EntityGateway, logger *slog.Logger) *EntityHandler {
	return &EntityHandler{gateway: gateway, logger: logger}
}

// Register mounts the entity endpoints.
func (h *EntityHandler) Register(r chi.Router) {
	r.Get("/entities/{kind}/{id}", h.HandleRead)
	r.Patch("/entities/{kind}/{id}", h.HandleWrite)

	r.Post("/companies", h.HandleCreateCompany)
	r.Post("/companies/{id}/founders", h.HandleLinkFounder)
	r.Post("/companies/{id}/investments", h.HandleRecordInvestment)
	r.Post("/founders", h.HandleCreateFounder)
	r.Post("/updates", h.HandleCreateUpdate)
	r.Post("/metric-points", h.HandleCreateMetricPoint)
}

// HandleRead handles GET /entities/{kind}/{id}. The optional groups query
// parameter narrows the response to specific field groups; groups the caller
// may not read are omitted silently.
func (h *EntityHandler) HandleRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	kind, err := id.ParseEntityKind(chi.URLParam(r, "kind"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var groups []id.FieldGroup
	if raw := r.URL.Query().Get("groups"); raw != "" {
		for _, part := range pstrings.DedupeAndTrim(strings.Split(raw, ",")) {
			group, err := id.ParseFieldGroup(part)
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			groups = append(groups, group)
		}
	}

	entity, err := h.gateway.ReadEntity(ctx, kind, chi.URLParam(r, "id"), groups)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entity)
}

// HandleWrite handles PATCH /entities/{kind}/{id}. The body is a partial
// field map; tag arrays are normalized and validated before they land.
func (h *EntityHandler) HandleWrite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	kind, err := id.ParseEntityKind(chi.URLParam(r, "kind"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	patch, ok := httputil.DecodeAndPrepare[map[string]any](w, r, h.logger)
	if !ok {
		return
	}

	entity, err := h.gateway.WriteEntity(ctx, kind, chi.URLParam(r, "id"), patch)
	if err != nil {
		h.logWriteFailure(ctx, kind, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entity)
}

// CreateCompanyRequest is the POST /companies body. Fields beyond the name
// ride in the same patch format PATCH accepts.
type CreateCompanyRequest struct {
	Name  string         `json:"name"`
	Patch map[string]any `json:"patch"`
}

func (h *EntityHandler) HandleCreateCompany(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[CreateCompanyRequest](w, r, h.logger)
	if !ok {
		return
	}

	entity, err := h.gateway.CreateCompany(ctx, req.Name, req.Patch)
	if err != nil {
		h.logWriteFailure(ctx, id.KindCompany, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, entity)
}

// CreateFounderRequest is the POST /founders body.
type CreateFounderRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

func (h *EntityHandler) HandleCreateFounder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[CreateFounderRequest](w, r, h.logger)
	if !ok {
		return
	}

	entity, err := h.gateway.CreateFounder(ctx, req.Name, req.Role)
	if err != nil {
		h.logWriteFailure(ctx, id.KindFounder, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, entity)
}

// CreateUpdateRequest is the POST /updates body.
type CreateUpdateRequest struct {
	CompanyID   string         `json:"company_id"`
	FounderID   string         `json:"founder_id"`
	PeriodStart time.Time      `json:"period_start"`
	PeriodEnd   time.Time      `json:"period_end"`
	Patch       map[string]any `json:"patch"`
}

func (h *EntityHandler) HandleCreateUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[CreateUpdateRequest](w, r, h.logger)
	if !ok {
		return
	}
	companyID, err := id.ParseCompanyID(req.CompanyID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid company id"))
		return
	}
	founderID, err := id.ParseFounderID(req.FounderID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid founder id"))
		return
	}

	entity, err := h.gateway.CreateUpdate(ctx, companyID, founderID, req.PeriodStart, req.PeriodEnd, req.Patch)
	if err != nil {
		h.logWriteFailure(ctx, id.KindUpdate, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, entity)
}

// CreateMetricPointRequest is the POST /metric-points body.
type CreateMetricPointRequest struct {
	CompanyID string    `json:"company_id"`
	Name      string    `json:"name"`
	PeriodEnd time.Time `json:"period_end"`
	Value     float64   `json:"value"`
}

func (h *EntityHandler) HandleCreateMetricPoint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[CreateMetricPointRequest](w, r, h.logger)
	if !ok {
		return
	}
	companyID, err := id.ParseCompanyID(req.CompanyID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid company id"))
		return
	}

	entity, err := h.gateway.CreateMetricPoint(ctx, companyID, req.Name, req.PeriodEnd, req.Value)
	if err != nil {
		h.logWriteFailure(ctx, id.KindMetricPoint, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, entity)
}

// LinkFounderRequest is the POST /companies/{id}/founders body.
type LinkFounderRequest struct {
	FounderID string `json:"founder_id"`
	Role      string `json:"role"`
}

func (h *EntityHandler) HandleLinkFounder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	companyID, err := id.ParseCompanyID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid company id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[LinkFounderRequest](w, r, h.logger)
	if !ok {
		return
	}
	founderID, err := id.ParseFounderID(req.FounderID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid founder id"))
		return
	}

	if err := h.gateway.LinkFounder(ctx, companyID, founderID, req.Role); err != nil {
		h.logWriteFailure(ctx, id.KindCompany, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{
		"company_id": companyID.String(),
		"founder_id": founderID.String(),
	})
}

// RecordInvestmentRequest is the POST /companies/{id}/investments body. The
// investor name is normalized into a co-investor vocabulary key.
type RecordInvestmentRequest struct {
	Investor     string    `json:"investor"`
	AmountUSD    int64     `json:"amount_usd"`
	FirstRoundAt time.Time `json:"first_round_at"`
}

func (h *EntityHandler) HandleRecordInvestment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	companyID, err := id.ParseCompanyID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid company id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[RecordInvestmentRequest](w, r, h.logger)
	if !ok {
		return
	}

	if err := h.gateway.RecordInvestment(ctx, companyID, req.Investor, req.AmountUSD, req.FirstRoundAt); err != nil {
		h.logWriteFailure(ctx, id.KindCompany, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{
		"company_id": companyID.String(),
	})
}

func (h *EntityHandler) logWriteFailure(ctx context.Context, kind id.EntityKind, err error) {
	h.logger.InfoContext(ctx, "entity write failed",
		"kind", kind.String(),
		"error", err.Error(),
		"request_id", requestcontext.RequestID(ctx),
	)
}

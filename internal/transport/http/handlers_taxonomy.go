package httptransport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pitchfund/internal/taxonomy"
	id "pitchfund/pkg/domain"
	dErrors "pitchfund/pkg/domain-errors"
	"pitchfund/pkg/platform/httputil"
	"pitchfund/pkg/requestcontext"
)

// TaxonomyService is the engine surface the taxonomy endpoints use.
type TaxonomyService interface {
	Validate(field id.TagField, values []string) error
	ProposeValue(ctx context.Context, field id.TagField, key string) error
	ApproveValue(ctx context.Context, field id.TagField, key string) error
	Rename(ctx context.Context, field id.TagField, oldKey, newKey string) error
	Retire(ctx context.Context, field id.TagField, key string) error
}

// VocabularyLister serves vocabulary listings, possibly through the cache.
type VocabularyLister interface {
	ListVocabulary(ctx context.Context, field id.TagField) ([]taxonomy.VocabularyEntry, error)
}

// TaxonomyHandler serves tag validation, vocabulary listing, and the
// admin-only migration endpoints.
type TaxonomyHandler struct {
	service TaxonomyService
	lister  VocabularyLister
	logger  *slog.Logger
}

func NewTaxonomyHandler(service TaxonomyService, lister VocabularyLister, logger *slog.Logger) *TaxonomyHandler {
	return &TaxonomyHandler{service: service, lister: lister, logger: logger}
}

// Register mounts the taxonomy endpoints.
func (h *TaxonomyHandler) Register(r chi.Router) {
	r.Post("/tags/validate", h.HandleValidate)
	r.Get("/vocabulary/{field}", h.HandleListVocabulary)

	r.Post("/vocabulary/{field}/propose", h.HandlePropose)
	r.Post("/vocabulary/{field}/approve", h.HandleApprove)
	r.Post("/vocabulary/{field}/rename", h.HandleRename)
	r.Post("/vocabulary/{field}/retire", h.HandleRetire)
}

// ValidateRequest is the POST /tags/validate body.
type ValidateRequest struct {
	Field  string   `json:"field"`
	Values []string `json:"values"`
}

// ValidateResponse reports whether a tag array would be accepted. Rejections
// are a 200 with ok=false; only malformed requests error.
type ValidateResponse struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
	Field  string `json:"field,omitempty"`
}

func (h *TaxonomyHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeAndPrepare[ValidateRequest](w, r, h.logger)
	if !ok {
		return
	}
	field, err := id.ParseTagField(req.Field)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Validate(field, req.Values); err != nil {
		var de *dErrors.Error
		if errors.As(err, &de) && de.Code == dErrors.CodeValidation {
			httputil.WriteJSON(w, http.StatusOK, ValidateResponse{
				OK:     false,
				Reason: de.Message,
				Field:  de.Field,
			})
			return
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ValidateResponse{OK: true})
}

// HandleListVocabulary handles GET /vocabulary/{field}: active values with
// derived labels and usage counts, most used first.
func (h *TaxonomyHandler) HandleListVocabulary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	field, err := id.ParseTagField(chi.URLParam(r, "field"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.lister.ListVocabulary(ctx, field)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"field":  field.String(),
		"values": entries,
	})
}

// MigrateValueRequest is the body for propose, approve, and retire.
type MigrateValueRequest struct {
	Value string `json:"value"`
}

// RenameRequest is the POST /vocabulary/{field}/rename body.
type RenameRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (h *TaxonomyHandler) HandlePropose(w http.ResponseWriter, r *http.Request) {
	h.migrate(w, r, "propose", func(ctx context.Context, field id.TagField, req MigrateValueRequest) error {
		return h.service.ProposeValue(ctx, field, req.Value)
	})
}

func (h *TaxonomyHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.migrate(w, r, "approve", func(ctx context.Context, field id.TagField, req MigrateValueRequest) error {
		return h.service.ApproveValue(ctx, field, req.Value)
	})
}

func (h *TaxonomyHandler) HandleRetire(w http.ResponseWriter, r *http.Request) {
	h.migrate(w, r, "retire", func(ctx context.Context, field id.TagField, req MigrateValueRequest) error {
		return h.service.Retire(ctx, field, req.Value)
	})
}

func (h *TaxonomyHandler) HandleRename(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := requireAdmin(ctx); err != nil {
		httputil.WriteError(w, err)
		return
	}

	field, err := id.ParseTagField(chi.URLParam(r, "field"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[RenameRequest](w, r, h.logger)
	if !ok {
		return
	}

	// The response echoes the canonical keys the engine actually migrated.
	from := taxonomy.Normalize(req.From)
	to := taxonomy.Normalize(req.To)
	if err := h.service.Rename(ctx, field, from, to); err != nil {
		h.logger.InfoContext(ctx, "vocabulary migration failed",
			"operation", "rename",
			"field", field.String(),
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"field": field.String(),
		"from":  from,
		"to":    to,
	})
}

func (h *TaxonomyHandler) migrate(w http.ResponseWriter, r *http.Request, operation string,
	fn func(ctx context.Context, field id.TagField, req MigrateValueRequest) error) {
	ctx := r.Context()
	if err := requireAdmin(ctx); err != nil {
		httputil.WriteError(w, err)
		return
	}

	field, err := id.ParseTagField(chi.URLParam(r, "field"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[MigrateValueRequest](w, r, h.logger)
	if !ok {
		return
	}
	req.Value = taxonomy.Normalize(req.Value)

	if err := fn(ctx, field, req); err != nil {
		h.logger.InfoContext(ctx, "vocabulary migration failed",
			"operation", operation,
			"field", field.String(),
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"field": field.String(),
		"value": req.Value,
	})
}

// requireAdmin gates migration endpoints. Vocabulary structure is an
// admin-only concern even though listings are public.
func requireAdmin(ctx context.Context) error {
	if requestcontext.Role(ctx) != id.RoleAdmin {
		return dErrors.New(dErrors.CodeAccessDenied, "access denied")
	}
	return nil
}

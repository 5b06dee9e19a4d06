package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pitchfund/internal/identity/models"
	id "pitchfund/pkg/domain"
	dErrors "pitchfund/pkg/domain-errors"
	"pitchfund/pkg/platform/httputil"
	"pitchfund/pkg/requestcontext"
)

// IdentityService is the identity lifecycle surface the endpoints use.
type IdentityService interface {
	Provision(ctx context.Context, role id.Role) (*models.Identity, string, error)
	ChangeRole(ctx context.Context, target id.IdentityID, newRole id.Role) (*models.Identity, error)
	Deactivate(ctx context.Context, target id.IdentityID) (*models.Identity, error)
	Get(ctx context.Context, target id.IdentityID) (*models.Identity, error)
}

// IdentityHandler serves identity provisioning and lifecycle endpoints.
type IdentityHandler struct {
	service IdentityService
	logger  *slog.Logger
}

func NewIdentityHandler(service IdentityService, logger *slog.Logger) *IdentityHandler {
	return &IdentityHandler{service: service, logger: logger}
}

// Register mounts the identity endpoints.
func (h *IdentityHandler) Register(r chi.Router) {
	r.Get("/whoami", h.HandleWhoAmI)
	r.Post("/identities", h.HandleProvision)
	r.Get("/identities/{id}", h.HandleGet)
	r.Post("/identities/{id}/role", h.HandleChangeRole)
	r.Post("/identities/{id}/deactivate", h.HandleDeactivate)
}

// WhoAmIResponse reports the role the caller's credential resolved to.
// identity_id is omitted for anonymous callers.
type WhoAmIResponse struct {
	Role       string `json:"role"`
	IdentityID string `json:"identity_id,omitempty"`
}

// HandleWhoAmI handles GET /whoami. Anonymous and unverifiable callers are a
// 200 with the public role, mirroring the fail-closed resolver.
func (h *IdentityHandler) HandleWhoAmI(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := WhoAmIResponse{Role: requestcontext.Role(ctx).String()}
	if identityID := requestcontext.IdentityID(ctx); !identityID.IsNil() {
		resp.IdentityID = identityID.String()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// ProvisionRequest is the POST /identities body.
type ProvisionRequest struct {
	Role string `json:"role"`
}

// ProvisionResponse carries the new identity and its first access token. The
// token appears only here; it is never readable again.
type ProvisionResponse struct {
	Identity *models.Identity `json:"identity"`
	Token    string           `json:"token"`
}

func (h *IdentityHandler) HandleProvision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeAndPrepare[ProvisionRequest](w, r, h.logger)
	if !ok {
		return
	}
	role, err := id.ParseRole(req.Role)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "unknown role"))
		return
	}

	identity, token, err := h.service.Provision(ctx, role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "identity provisioned",
		"identity_id", identity.ID.String(),
		"role", identity.Role.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusCreated, ProvisionResponse{Identity: identity, Token: token})
}

func (h *IdentityHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	target, err := id.ParseIdentityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid identity id"))
		return
	}

	identity, err := h.service.Get(ctx, target)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, identity)
}

// ChangeRoleRequest is the POST /identities/{id}/role body.
type ChangeRoleRequest struct {
	Role string `json:"role"`
}

func (h *IdentityHandler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	target, err := id.ParseIdentityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid identity id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[ChangeRoleRequest](w, r, h.logger)
	if !ok {
		return
	}
	role, err := id.ParseRole(req.Role)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "unknown role"))
		return
	}

	identity, err := h.service.ChangeRole(ctx, target, role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "identity role changed",
		"identity_id", identity.ID.String(),
		"role", identity.Role.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, identity)
}

func (h *IdentityHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	target, err := id.ParseIdentityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid identity id"))
		return
	}

	identity, err := h.service.Deactivate(ctx, target)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "identity deactivated",
		"identity_id", identity.ID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, identity)
}

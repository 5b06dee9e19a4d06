package httptransport

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pitchfund/internal/identity/models"
	id "pitchfund/pkg/domain"
	dErrors "pitchfund/pkg/domain-errors"
	"pitchfund/pkg/testutil"
)

type fakeIdentityService struct {
	identity *models.Identity
	token    string
	err      error
}

func (f *fakeIdentityService) Provision(context.Context, id.Role) (*models.Identity, string, error) {
	return f.identity, f.token, f.err
}

func (f *fakeIdentityService) ChangeRole(context.Context, id.IdentityID, id.Role) (*models.Identity, error) {
	return f.identity, f.err
}

func (f *fakeIdentityService) Deactivate(context.Context, id.IdentityID) (*models.Identity, error) {
	return f.identity, f.err
}

func (f *fakeIdentityService) Get(context.Context, id.IdentityID) (*models.Identity, error) {
	return f.identity, f.err
}

func newIdentityRouter(service IdentityService) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	NewIdentityHandler(service, logger).Register(r)
	return r
}

func TestHandleWhoAmI(t *testing.T) {
	router := newIdentityRouter(&fakeIdentityService{})

	t.Run("anonymous caller is public", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/whoami"))

		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[WhoAmIResponse](t, rr)
		assert.Equal(t, "public", resp.Role)
		assert.Empty(t, resp.IdentityID)
	})

	t.Run("resolved caller sees role and identity", func(t *testing.T) {
		identityID := id.IdentityID(uuid.New())
		req := testutil.AsIdentity(testutil.NewRequest(t, http.MethodGet, "/whoami"), id.RoleLP, identityID)
		rr := testutil.DoRequest(router, req)

		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[WhoAmIResponse](t, rr)
		assert.Equal(t, "lp", resp.Role)
		assert.Equal(t, identityID.String(), resp.IdentityID)
	})
}

func TestHandleProvision(t *testing.T) {
	t.Run("returns the identity and its only token", func(t *testing.T) {
		identityID := id.IdentityID(uuid.New())
		router := newIdentityRouter(&fakeIdentityService{
			identity: &models.Identity{ID: identityID, Role: id.RoleLP, Active: true},
			token:    "signed-token",
		})

		req := testutil.NewJSONRequest(t, http.MethodPost, "/identities", ProvisionRequest{Role: "lp"})
		rr := testutil.DoRequest(router, testutil.AsRole(req, id.RoleAdmin))

		testutil.AssertStatus(t, rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[ProvisionResponse](t, rr)
		require.NotNil(t, resp.Identity)
		assert.Equal(t, identityID, resp.Identity.ID)
		assert.Equal(t, "signed-token", resp.Token)
	})

	t.Run("unknown role is a 400", func(t *testing.T) {
		router := newIdentityRouter(&fakeIdentityService{})

		req := testutil.NewJSONRequest(t, http.MethodPost, "/identities", ProvisionRequest{Role: "owner"})
		rr := testutil.DoRequest(router, testutil.AsRole(req, id.RoleAdmin))

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		testutil.AssertErrorCode(t, rr, "invalid_input")
	})

	t.Run("service denial maps to 403", func(t *testing.T) {
		router := newIdentityRouter(&fakeIdentityService{
			err: dErrors.New(dErrors.CodeAccessDenied, "access denied"),
		})

		req := testutil.NewJSONRequest(t, http.MethodPost, "/identities", ProvisionRequest{Role: "lp"})
		rr := testutil.DoRequest(router, testutil.AsRole(req, id.RoleLP))

		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})
}

package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"pitchfund/internal/identity/service"
	"pitchfund/internal/identity/store"
	"pitchfund/internal/identity/token"
	id "pitchfund/pkg/domain"
	dErrors "pitchfund/pkg/domain-errors"
	"pitchfund/pkg/requestcontext"
)

type IdentityServiceSuite struct {
	suite.Suite

	ctx        context.Context
	adminCtx   context.Context
	service    *service.Service
	identities store.IdentityStore
	tokens     *token.Service
}

func TestIdentityServiceSuite(t *testing.T) {
	suite.Run(t, new(IdentityServiceSuite))
}

func (s *IdentityServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.adminCtx = requestcontext.WithRole(s.ctx, id.RoleAdmin)
	s.identities = store.NewInMemory()
	s.tokens = token.NewService("test-signing-key", "pitchfund", "pitchfund-api")
	s.service = service.New(s.identities, s.tokens, service.WithMinter(s.tokens))
}

func (s *IdentityServiceSuite) TestProvision() {
	s.Run("admin provisions an lp with a working token", func() {
		identity, signed, err := s.service.Provision(s.adminCtx, id.RoleLP)
		s.Require().NoError(err)
		s.Equal(id.RoleLP, identity.Role)
		s.True(identity.Active)

		role, resolvedID := s.service.ResolveRole(s.ctx, signed)
		s.Equal(id.RoleLP, role)
		s.Equal(identity.ID, resolvedID)
	})

	s.Run("non-admin denied", func() {
		_, _, err := s.service.Provision(requestcontext.WithRole(s.ctx, id.RoleLP), id.RoleLP)
		s.True(dErrors.HasCode(err, dErrors.CodeAccessDenied))
	})
}

func (s *IdentityServiceSuite) TestResolveRoleFailsClosed() {
	s.Run("empty token is public", func() {
		role, resolvedID := s.service.ResolveRole(s.ctx, "")
		s.Equal(id.RolePublic, role)
		s.True(resolvedID.IsNil())
	})

	s.Run("garbage token is public", func() {
		role, _ := s.service.ResolveRole(s.ctx, "not-a-token")
		s.Equal(id.RolePublic, role)
	})

	s.Run("valid token for unknown identity is public", func() {
		signed, err := s.tokens.Mint(id.IdentityID(uuid.New()), time.Hour)
		s.Require().NoError(err)

		role, resolvedID := s.service.ResolveRole(s.ctx, signed)
		s.Equal(id.RolePublic, role)
		s.True(resolvedID.IsNil())
	})

	s.Run("deactivated identity resolves to public but keeps its id", func() {
		identity, signed, err := s.service.Provision(s.adminCtx, id.RoleLP)
		s.Require().NoError(err)
		_, err = s.service.Deactivate(s.adminCtx, identity.ID)
		s.Require().NoError(err)

		role, resolvedID := s.service.ResolveRole(s.ctx, signed)
		s.Equal(id.RolePublic, role, "deactivation is an immediate privilege boundary")
		s.Equal(identity.ID, resolvedID, "self-scope reads still need the id")
	})
}

func (s *IdentityServiceSuite) TestChangeRole() {
	identity, signed, err := s.service.Provision(s.adminCtx, id.RoleLP)
	s.Require().NoError(err)

	s.Run("takes effect on the next resolution", func() {
		_, err := s.service.ChangeRole(s.adminCtx, identity.ID, id.RoleAdmin)
		s.Require().NoError(err)

		role, _ := s.service.ResolveRole(s.ctx, signed)
		s.Equal(id.RoleAdmin, role, "no token reissue needed")
	})

	s.Run("non-admin denied", func() {
		_, err := s.service.ChangeRole(requestcontext.WithRole(s.ctx, id.RoleLP), identity.ID, id.RoleAdmin)
		s.True(dErrors.HasCode(err, dErrors.CodeAccessDenied))
	})

	s.Run("unknown identity not found", func() {
		_, err := s.service.ChangeRole(s.adminCtx, id.IdentityID(uuid.New()), id.RoleLP)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("inactive identity conflicts", func() {
		_, err := s.service.Deactivate(s.adminCtx, identity.ID)
		s.Require().NoError(err)

		_, err = s.service.ChangeRole(s.adminCtx, identity.ID, id.RoleLP)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *IdentityServiceSuite) TestDeactivate() {
	identity, _, err := s.service.Provision(s.adminCtx, id.RoleLP)
	s.Require().NoError(err)

	s.Run("deactivates once", func() {
		updated, err := s.service.Deactivate(s.adminCtx, identity.ID)
		s.Require().NoError(err)
		s.False(updated.Active)
	})

	s.Run("second deactivation conflicts", func() {
		_, err := s.service.Deactivate(s.adminCtx, identity.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *IdentityServiceSuite) TestGet() {
	identity, _, err := s.service.Provision(s.adminCtx, id.RoleLP)
	s.Require().NoError(err)

	s.Run("admin reads any record", func() {
		got, err := s.service.Get(s.adminCtx, identity.ID)
		s.Require().NoError(err)
		s.Equal(identity.ID, got.ID)
	})

	s.Run("caller reads its own record", func() {
		ctx := requestcontext.WithIdentityID(requestcontext.WithRole(s.ctx, id.RoleLP), identity.ID)
		got, err := s.service.Get(ctx, identity.ID)
		s.Require().NoError(err)
		s.Equal(identity.ID, got.ID)
	})

	s.Run("anyone else gets not found", func() {
		ctx := requestcontext.WithIdentityID(requestcontext.WithRole(s.ctx, id.RoleLP), id.IdentityID(uuid.New()))
		_, err := s.service.Get(ctx, identity.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

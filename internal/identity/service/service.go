// Package service implements the identity resolver and the admin-only
// identity lifecycle operations.
//
// Resolution is fail-closed: every failure path (missing token, bad
// signature, expiry, unknown or inactive identity) resolves to the public
// role rather than an error, so downstream authorization uniformly applies
// the least-privileged path.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pitchfund/internal/identity/models"
	"pitchfund/internal/identity/store"
	id "pitchfund/pkg/domain"
	dErrors "pitchfund/pkg/domain-errors"
	"pitchfund/pkg/platform/sentinel"
	"pitchfund/pkg/requestcontext"
)

// DefaultTokenTTL is how long minted access tokens stay valid. Role changes
// and deactivations take effect immediately regardless, because the role is
// looked up per request.
const DefaultTokenTTL = 24 * time.Hour

// TokenValidator verifies a bearer token and returns the identity it names.
type TokenValidator interface {
	Validate(tokenString string) (id.IdentityID, error)
}

// TokenMinter issues bearer tokens at provisioning.
type TokenMinter interface {
	Mint(identityID id.IdentityID, expiresIn time.Duration) (string, error)
}

// Service resolves roles and manages the identity lifecycle.
type Service struct {
	identities store.IdentityStore
	tokens     TokenValidator
	minter     TokenMinter
	logger     *slog.Logger
}

// Option configures optional service collaborators.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMinter(minter TokenMinter) Option {
	return func(s *Service) { s.minter = minter }
}

func New(identities store.IdentityStore, tokens TokenValidator, opts ...Option) *Service {
	s := &Service{
		identities: identities,
		tokens:     tokens,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveRole resolves exactly one role for the caller. It never returns an
// error: anything short of a valid token naming an active identity is the
// public role. Satisfies middleware.RoleResolver.
func (s *Service) ResolveRole(ctx context.Context, bearerToken string) (id.Role, id.IdentityID) {
	if bearerToken == "" {
		return id.RolePublic, id.IdentityID{}
	}

	identityID, err := s.tokens.Validate(bearerToken)
	if err != nil {
		s.logger.DebugContext(ctx, "token rejected during role resolution", "error", err.Error())
		return id.RolePublic, id.IdentityID{}
	}

	identity, err := s.identities.FindByID(ctx, identityID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			// Store failure also degrades to public: resolution must not
			// widen access when infrastructure is unhealthy.
			s.logger.WarnContext(ctx, "identity lookup failed during role resolution", "error", err.Error())
		}
		return id.RolePublic, id.IdentityID{}
	}

	// An inactive identity keeps its record (never deleted) but loses all
	// privilege. The identity ID still flows so the self-scope read of the
	// caller's own record keeps working.
	return identity.EffectiveRole(), identity.ID
}

// Provision creates a new identity with the given role and mints its first
// access token. Admin-only.
func (s *Service) Provision(ctx context.Context, role id.Role) (*models.Identity, string, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, "", err
	}
	if s.minter == nil {
		return nil, "", dErrors.New(dErrors.CodeInternal, "token minter not configured")
	}

	identity, err := models.NewIdentity(id.IdentityID(uuid.New()), role, requestcontext.Now(ctx))
	if err != nil {
		return nil, "", err
	}
	if err := s.identities.Save(ctx, identity); err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to save identity")
	}

	token, err := s.minter.Mint(identity.ID, DefaultTokenTTL)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint token")
	}
	return identity, token, nil
}

// ChangeRole moves an identity to a new role. Admin-only; there is no
// self-service escalation path.
func (s *Service) ChangeRole(ctx context.Context, target id.IdentityID, newRole id.Role) (*models.Identity, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	identity, err := s.identities.Execute(ctx, target,
		func(i *models.Identity) error { return i.CanChangeRole(newRole) },
		func(i *models.Identity) { i.ApplyRoleChange(newRole, now) },
	)
	if err != nil {
		return nil, wrapIdentityErr(err)
	}
	return identity, nil
}

// Deactivate retires an identity. The record stays (identities are never
// deleted) but resolves to the public role from the next request on.
func (s *Service) Deactivate(ctx context.Context, target id.IdentityID) (*models.Identity, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	identity, err := s.identities.Execute(ctx, target,
		func(i *models.Identity) error { return i.CanDeactivate() },
		func(i *models.Identity) { i.ApplyDeactivation(now) },
	)
	if err != nil {
		return nil, wrapIdentityErr(err)
	}
	return identity, nil
}

// Get returns an identity record. Admins read any; every caller reads its own
// record (self-scope). Anyone else gets the uniform not-found.
func (s *Service) Get(ctx context.Context, target id.IdentityID) (*models.Identity, error) {
	caller := requestcontext.Role(ctx)
	self := requestcontext.IdentityID(ctx)
	if caller != id.RoleAdmin && self != target {
		return nil, dErrors.New(dErrors.CodeNotFound, "identity not found")
	}

	identity, err := s.identities.FindByID(ctx, target)
	if err != nil {
		return nil, wrapIdentityErr(err)
	}
	return identity, nil
}

func (s *Service) requireAdmin(ctx context.Context) error {
	if requestcontext.Role(ctx) != id.RoleAdmin {
		// Writes fail loudly (no enumeration risk: the actor is known).
		return dErrors.New(dErrors.CodeAccessDenied, "access denied")
	}
	return nil
}

func wrapIdentityErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "identity not found")
	case dErrors.HasCode(err, dErrors.CodeInvariantViolation):
		return dErrors.Wrap(err, dErrors.CodeConflict, "identity state does not allow this change")
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "identity operation failed")
	}
}

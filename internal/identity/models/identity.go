package models

import (
	"time"

	id "pitchfund/pkg/domain"
	dErrors "pitchfund/pkg/domain-errors"
)

// Identity is the record backing one authenticated principal.
//
// Invariants:
//   - Role is always one of the three supported tiers
//   - Identities are deactivated, never deleted
//   - CreatedAt is immutable after construction
//
// Role is the only authorization input the rest of the system sees; an
// inactive identity resolves to the public role regardless of its stored
// role, so deactivation is an immediate privilege boundary.
type Identity struct {
	ID        id.IdentityID `json:"id"`
	Role      id.Role       `json:"role"`
	Active    bool          `json:"active"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewIdentity constructs an active identity at provisioning time.
func NewIdentity(identityID id.IdentityID, role id.Role, now time.Time) (*Identity, error) {
	if identityID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "identity id cannot be nil")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "identity role must be a supported tier")
	}
	return &Identity{
		ID:        identityID,
		Role:      role,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// EffectiveRole is the role used for authorization: inactive identities
// degrade to public.
func (i *Identity) EffectiveRole() id.Role {
	if !i.Active {
		return id.RolePublic
	}
	return i.Role
}

// CanChangeRole checks whether the identity may take the new role.
func (i *Identity) CanChangeRole(newRole id.Role) error {
	if !newRole.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "role must be a supported tier")
	}
	if !i.Active {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot change role of inactive identity")
	}
	return nil
}

// ApplyRoleChange records the new role. Call CanChangeRole first.
func (i *Identity) ApplyRoleChange(newRole id.Role, now time.Time) {
	i.Role = newRole
	i.UpdatedAt = now
}

// CanDeactivate checks whether the identity can transition to inactive.
func (i *Identity) CanDeactivate() error {
	if !i.Active {
		return dErrors.New(dErrors.CodeInvariantViolation, "identity is already inactive")
	}
	return nil
}

// ApplyDeactivation transitions the identity to inactive. Call CanDeactivate
// first.
func (i *Identity) ApplyDeactivation(now time.Time) {
	i.Active = false
	i.UpdatedAt = now
}

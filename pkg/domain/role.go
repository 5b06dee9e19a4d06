package domain

import dErrors "pitchfund/pkg/domain-errors"

// Role is the audience tier of a caller. Every request resolves to exactly one
// role; unauthenticated or unverifiable callers are RolePublic.
//
// Invariant: the value must be one of the three supported tiers. There is no
// "no role" state; fail-closed resolution maps failures to RolePublic.
type Role string

const (
	RolePublic Role = "public"
	RoleLP     Role = "lp"
	RoleAdmin  Role = "admin"
)

// validRoles is the single source of truth for supported roles.
var validRoles = map[Role]bool{
	RolePublic: true,
	RoleLP:     true,
	RoleAdmin:  true,
}

// ParseRole constructs a Role from external input (stored identity rows,
// admin mutations). It is NOT the fail-closed resolution path; that lives in
// the identity resolver, which maps errors from here to RolePublic.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}
	return r, nil
}

// IsValid checks if the role is one of the supported tiers.
func (r Role) IsValid() bool {
	return validRoles[r]
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

package models

import (
	"time"

	id "pitchfund/pkg/domain"
	dErrors "pitchfund/pkg/domain-errors"
)

// Founder is a person behind one or more portfolio companies.
//
// Field groups:
//   - public: name, role
//   - restricted: email, linkedin
type Founder struct {
	ID id.FounderID `json:"id"`

	Name string `json:"name"`
	Role string `json:"role"`

	Email    string `json:"email"`
	LinkedIn string `json:"linkedin"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewFounder(founderID id.FounderID, name, role string, now time.Time) (*Founder, error) {
	if founderID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "founder id cannot be nil")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "founder name cannot be empty")
	}
	return &Founder{
		ID:        founderID,
		Name:      name,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// FieldGroups renders the founder into its sensitivity groups.
func (f *Founder) FieldGroups() map[id.FieldGroup]map[string]any {
	return map[id.FieldGroup]map[string]any{
		id.GroupPublic: {
			"id":   f.ID.String(),
			"name": f.Name,
			"role": f.Role,
		},
		id.GroupRestricted: {
			"email":    f.Email,
			"linkedin": f.LinkedIn,
		},
	}
}

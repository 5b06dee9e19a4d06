// Package domain holds shared value types: typed IDs and closed enumerations
// used across services. Construct enum values via the Parse helpers at trust
// boundaries; direct casting bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "pitchfund/pkg/domain-errors"
)

// Typed UUID wrappers keep entity references from being mixed up across
// stores and services.
type (
	IdentityID uuid.UUID
	CompanyID  uuid.UUID
	FounderID  uuid.UUID
	UpdateID   uuid.UUID
	MetricID   uuid.UUID
)

func (id IdentityID) String() string { return uuid.UUID(id).String() }
func (id CompanyID) String() string  { return uuid.UUID(id).String() }
func (id FounderID) String() string  { return uuid.UUID(id).String() }
func (id UpdateID) String() string   { return uuid.UUID(id).String() }
func (id MetricID) String() string   { return uuid.UUID(id).String() }

func (id IdentityID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id CompanyID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id FounderID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id UpdateID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id MetricID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

// Text marshaling renders IDs as canonical UUID strings in JSON; the defined
// types do not inherit uuid.UUID's methods.

func (id IdentityID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id CompanyID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id FounderID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id UpdateID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id MetricID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }

func (id *IdentityID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid identity id")
	}
	*id = IdentityID(u)
	return nil
}

func (id *CompanyID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid company id")
	}
	*id = CompanyID(u)
	return nil
}

func (id *FounderID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid founder id")
	}
	*id = FounderID(u)
	return nil
}

func (id *UpdateID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid update id")
	}
	*id = UpdateID(u)
	return nil
}

func (id *MetricID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid metric id")
	}
	*id = MetricID(u)
	return nil
}

// ParseIdentityID parses an external identity ID string.
func ParseIdentityID(s string) (IdentityID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return IdentityID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid identity id")
	}
	if u == uuid.Nil {
		return IdentityID{}, dErrors.New(dErrors.CodeInvalidInput, "identity id cannot be nil")
	}
	return IdentityID(u), nil
}

// ParseCompanyID parses an external company ID string.
func ParseCompanyID(s string) (CompanyID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return CompanyID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid company id")
	}
	if u == uuid.Nil {
		return CompanyID{}, dErrors.New(dErrors.CodeInvalidInput, "company id cannot be nil")
	}
	return CompanyID(u), nil
}

// ParseFounderID parses an external founder ID string.
func ParseFounderID(s string) (FounderID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return FounderID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid founder id")
	}
	if u == uuid.Nil {
		return FounderID{}, dErrors.New(dErrors.CodeInvalidInput, "founder id cannot be nil")
	}
	return FounderID(u), nil
}

// ParseMetricID parses an external metric point ID string.
func ParseMetricID(s string) (MetricID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return MetricID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid metric id")
	}
	if u == uuid.Nil {
		return MetricID{}, dErrors.New(dErrors.CodeInvalidInput, "metric id cannot be nil")
	}
	return MetricID(u), nil
}

// ParseUpdateID parses an external update ID string.
func ParseUpdateID(s string) (UpdateID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return UpdateID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid update id")
	}
	if u == uuid.Nil {
		return UpdateID{}, dErrors.New(dErrors.CodeInvalidInput, "update id cannot be nil")
	}
	return UpdateID(u), nil
}

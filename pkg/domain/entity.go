package domain

import dErrors "pitchfund/pkg/domain-errors"

// EntityKind identifies an entity type for authorization decisions.
type EntityKind string

const (
	KindCompany     EntityKind = "company"
	KindFounder     EntityKind = "founder"
	KindUpdate      EntityKind = "update"
	KindMetricPoint EntityKind = "metric_point"
	KindIdentity    EntityKind = "identity"
)

var validKinds = map[EntityKind]bool{
	KindCompany:     true,
	KindFounder:     true,
	KindUpdate:      true,
	KindMetricPoint: true,
	KindIdentity:    true,
}

// ParseEntityKind constructs an EntityKind from external input.
func ParseEntityKind(s string) (EntityKind, error) {
	k := EntityKind(s)
	if !validKinds[k] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown entity kind")
	}
	return k, nil
}

func (k EntityKind) String() string { return string(k) }

// FieldGroup names a bundle of entity attributes sharing one sensitivity
// level. Authorization is granted per (role, kind, group), never per field.
type FieldGroup string

const (
	GroupPublic     FieldGroup = "public"
	GroupRestricted FieldGroup = "restricted"
)

var validGroups = map[FieldGroup]bool{
	GroupPublic:     true,
	GroupRestricted: true,
}

// ParseFieldGroup constructs a FieldGroup from external input.
func ParseFieldGroup(s string) (FieldGroup, error) {
	g := FieldGroup(s)
	if !validGroups[g] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown field group")
	}
	return g, nil
}

func (g FieldGroup) String() string { return string(g) }

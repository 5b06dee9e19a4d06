// Package authz is the row authorization layer. Every entity read and write
// crosses the gateway in this package; storage and services below it never
// look at roles.
//
// Decisions are granted per (role, entity kind, field group). Reads a role
// cannot make at all come back as not-found so callers cannot probe for the
// existence of rows they may not see; writes fail loudly with access denied.
package authz

import id "pitchfund/pkg/domain"

// readGrants maps role and entity kind to the field groups that role may
// read. A missing kind means the role cannot see the kind at all.
var readGrants = map[id.Role]map[id.EntityKind][]id.FieldGroup{
	id.RolePublic: {
		id.KindCompany:     {id.GroupPublic},
		id.KindFounder:     {id.GroupPublic},
		id.KindUpdate:      {id.GroupPublic},
		id.KindMetricPoint: {id.GroupPublic},
	},
	id.RoleLP: {
		id.KindCompany:     {id.GroupPublic, id.GroupRestricted},
		id.KindFounder:     {id.GroupPublic, id.GroupRestricted},
		id.KindUpdate:      {id.GroupPublic, id.GroupRestricted},
		id.KindMetricPoint: {id.GroupPublic, id.GroupRestricted},
	},
	id.RoleAdmin: {
		id.KindCompany:     {id.GroupPublic, id.GroupRestricted},
		id.KindFounder:     {id.GroupPublic, id.GroupRestricted},
		id.KindUpdate:      {id.GroupPublic, id.GroupRestricted},
		id.KindMetricPoint: {id.GroupPublic, id.GroupRestricted},
		id.KindIdentity:    {id.GroupPublic, id.GroupRestricted},
	},
}

// ReadableGroups returns the field groups role may read on kind, nil when the
// role cannot see the kind at all. Self-scope on identity records is layered
// on by the gateway, not here.
func ReadableGroups(role id.Role, kind id.EntityKind) []id.FieldGroup {
	return readGrants[role][kind]
}

// CanRead reports whether role may read the given field group of kind.
func CanRead(role id.Role, kind id.EntityKind, group id.FieldGroup) bool {
	for _, g := range readGrants[role][kind] {
		if g == group {
			return true
		}
	}
	return false
}

// CanWrite reports whether role may mutate entities of kind. Writes are an
// admin-only capability across every kind.
func CanWrite(role id.Role, kind id.EntityKind) bool {
	_ = kind
	return role == id.RoleAdmin
}

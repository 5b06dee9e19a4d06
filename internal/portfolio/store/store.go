// Package store persists portfolio entities. Each backend (in-memory,
// postgres) implements every entity operation plus the taxonomy engine's
// Attachments view, so vocabulary migrations rewrite tag arrays through the
// same backend that owns them.
//
// Consumers declare the narrow interfaces they need (the authorization
// gateway, the insights service, the taxonomy engine); both backends satisfy
// all of them.
package store

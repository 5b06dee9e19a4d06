// Package taxonomy owns the controlled vocabularies behind every tagged
// column: normalization of free-text candidates into canonical keys,
// validation against per-field mode and cardinality rules, usage-ranked
// listing, and vocabulary migrations (add, rename/merge, retire).
//
// The vocabulary is held as immutable snapshots swapped atomically, so
// concurrent readers never observe a half-migrated vocabulary. Mutations
// serialize on the engine; the attachment rewrite of a rename runs in the
// same transaction as the vocabulary change.
package taxonomy

import (
	id "pitchfund/pkg/domain"
)

// Mode selects the validation regime for a field.
type Mode string

const (
	// ModeClosed fields accept only curated, pre-existing vocabulary members.
	ModeClosed Mode = "closed"
	// ModeOpen fields accept any grammatically valid key; unseen values
	// expand the vocabulary on first use.
	ModeOpen Mode = "open"
)

// ValueState is the lifecycle state of a vocabulary value.
//
// proposed → active → (renamed→active | retired); retired is reachable only
// when zero attachments reference the value.
type ValueState string

const (
	StateProposed ValueState = "proposed"
	StateActive   ValueState = "active"
	StateRetired  ValueState = "retired"
)

// FieldConfig parameterizes one governed field. MaxCardinality bounds UI
// rendering cost, not domain truth; it is configuration.
type FieldConfig struct {
	Mode           Mode
	MaxCardinality int
}

// Snapshot is an immutable view of the whole vocabulary. Readers get a
// snapshot pointer and can never observe later mutations through it.
type Snapshot struct {
	values map[id.TagField]map[string]ValueState
}

// NewSnapshot builds a snapshot from a state map. The map is copied so the
// caller cannot alias internal state.
func NewSnapshot(values map[id.TagField]map[string]ValueState) *Snapshot {
	copied := make(map[id.TagField]map[string]ValueState, len(values))
	for field, states := range values {
		inner := make(map[string]ValueState, len(states))
		for key, state := range states {
			inner[key] = state
		}
		copied[field] = inner
	}
	return &Snapshot{values: copied}
}

// Member reports whether key is an active member of the field's vocabulary.
// Proposed and retired values are not members: neither may be attached.
func (s *Snapshot) Member(field id.TagField, key string) bool {
	return s.values[field][key] == StateActive
}

// State returns the lifecycle state of a value, empty if unknown.
func (s *Snapshot) State(field id.TagField, key string) ValueState {
	return s.values[field][key]
}

// ActiveKeys returns the active members of a field's vocabulary in
// unspecified order.
func (s *Snapshot) ActiveKeys(field id.TagField) []string {
	states := s.values[field]
	keys := make([]string, 0, len(states))
	for key, state := range states {
		if state == StateActive {
			keys = append(keys, key)
		}
	}
	return keys
}

// withValue returns a copy of the snapshot with one value set.
func (s *Snapshot) withValue(field id.TagField, key string, state ValueState) *Snapshot {
	next := NewSnapshot(s.values)
	if next.values[field] == nil {
		next.values[field] = make(map[string]ValueState)
	}
	next.values[field][key] = state
	return next
}

// withoutValue returns a copy of the snapshot with one value removed.
func (s *Snapshot) withoutValue(field id.TagField, key string) *Snapshot {
	next := NewSnapshot(s.values)
	delete(next.values[field], key)
	return next
}

// VocabularyEntry is one row of a vocabulary listing.
type VocabularyEntry struct {
	Value      string `json:"value"`
	Label      string `json:"label"`
	UsageCount int    `json:"usage_count"`
}

package store

import (
	"context"
	"sync"

	"pitchfund/internal/taxonomy"
	id "pitchfund/pkg/domain"
)

// InMemory keeps the vocabulary in a mutex-guarded map.
type InMemory struct {
	mu     sync.RWMutex
	values map[id.TagField]map[string]taxonomy.ValueState
}

func NewInMemory() *InMemory {
	return &InMemory{values: make(map[id.TagField]map[string]taxonomy.ValueState)}
}

func (s *InMemory) Load(_ context.Context) (map[id.TagField]map[string]taxonomy.ValueState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[id.TagField]map[string]taxonomy.ValueState, len(s.values))
	for field, states := range s.values {
		inner := make(map[string]taxonomy.ValueState, len(states))
		for key, state := range states {
			inner[key] = state
		}
		out[field] = inner
	}
	return out, nil
}

func (s *InMemory) Upsert(_ context.Context, field id.TagField, key string, state taxonomy.ValueState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values[field] == nil {
		s.values[field] = make(map[string]taxonomy.ValueState)
	}
	s.values[field][key] = state
	return nil
}

func (s *InMemory) Delete(_ context.Context, field id.TagField, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values[field], key)
	return nil
}

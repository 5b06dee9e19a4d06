package store

import (
	"context"
	"sync"

	"pitchfund/internal/identity/models"
	id "pitchfund/pkg/domain"
	"pitchfund/pkg/platform/sentinel"
)

// InMemory keeps identities in a mutex-guarded map. Records are copied on the
// way in and out so callers can never mutate store state without going
// through Execute.
type InMemory struct {
	mu         sync.RWMutex
	identities map[id.IdentityID]models.Identity
}

func NewInMemory() *InMemory {
	return &InMemory{identities: make(map[id.IdentityID]models.Identity)}
}

func (s *InMemory) Save(_ context.Context, identity *models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[identity.ID] = *identity
	return nil
}

func (s *InMemory) FindByID(_ context.Context, identityID id.IdentityID) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if identity, ok := s.identities[identityID]; ok {
		cp := identity
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) Execute(_ context.Context, identityID id.IdentityID,
	validate func(*models.Identity) error,
	mutate func(*models.Identity)) (*models.Identity, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.identities[identityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(&identity); err != nil {
		return nil, err
	}
	mutate(&identity)
	s.identities[identityID] = identity
	cp := identity
	return &cp, nil
}

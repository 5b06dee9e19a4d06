package store

import (
	"context"

	"pitchfund/internal/identity/models"
	id "pitchfund/pkg/domain"
)

// IdentityStore is interface-driven so services stay testable against the
// in-memory implementation while production runs on postgres.
type IdentityStore interface {
	Save(ctx context.Context, identity *models.Identity) error
	FindByID(ctx context.Context, identityID id.IdentityID) (*models.Identity, error)

	// Execute atomically validates and mutates one identity while holding the
	// row lock (mutex or FOR UPDATE), so concurrent role changes serialize.
	Execute(ctx context.Context, identityID id.IdentityID,
		validate func(*models.Identity) error,
		mutate func(*models.Identity)) (*models.Identity, error)
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"pitchfund/internal/identity/models"
	id "pitchfund/pkg/domain"
	"pitchfund/pkg/platform/sentinel"
)

// Postgres persists identities. This store is pure I/O; lifecycle rules live
// in the model and service.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Save(ctx context.Context, identity *models.Identity) error {
	query := `
		INSERT INTO identities (id, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			role = EXCLUDED.role,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(identity.ID), identity.Role.String(), identity.Active,
		identity.CreatedAt, identity.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("save identity: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, identityID id.IdentityID) (*models.Identity, error) {
	query := `
		SELECT id, role, active, created_at, updated_at
		FROM identities
		WHERE id = $1
	`
	identity, err := scanIdentity(s.db.QueryRowContext(ctx, query, uuid.UUID(identityID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return identity, nil
}

// Execute locks the row with FOR UPDATE for the validate-then-mutate cycle so
// concurrent role changes on the same identity serialize.
func (s *Postgres) Execute(ctx context.Context, identityID id.IdentityID,
	validate func(*models.Identity) error,
	mutate func(*models.Identity)) (*models.Identity, error) {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin identity tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		SELECT id, role, active, created_at, updated_at
		FROM identities
		WHERE id = $1
		FOR UPDATE
	`
	identity, err := scanIdentity(tx.QueryRowContext(ctx, query, uuid.UUID(identityID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock identity: %w", err)
	}

	if err := validate(identity); err != nil {
		return nil, err
	}
	mutate(identity)

	_, err = tx.ExecContext(ctx, `
		UPDATE identities
		SET role = $2, active = $3, updated_at = $4
		WHERE id = $1
	`, uuid.UUID(identity.ID), identity.Role.String(), identity.Active, identity.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update identity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit identity tx: %w", err)
	}
	return identity, nil
}

func scanIdentity(row *sql.Row) (*models.Identity, error) {
	var (
		rawID   uuid.UUID
		rawRole string
		m       models.Identity
	)
	if err := row.Scan(&rawID, &rawRole, &m.Active, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.ID = id.IdentityID(rawID)
	role, err := id.ParseRole(rawRole)
	if err != nil {
		return nil, fmt.Errorf("stored role %q: %w", rawRole, err)
	}
	m.Role = role
	return &m, nil
}

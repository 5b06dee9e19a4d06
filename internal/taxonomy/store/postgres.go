package store

import (
	"context"
	"database/sql"
	"fmt"

	"pitchfund/internal/taxonomy"
	id "pitchfund/pkg/domain"
	"pitchfund/pkg/platform/tx"
)

// Postgres persists vocabulary values in the vocabulary_values table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// querier returns the context transaction when one is active (vocabulary
// migrations run the vocabulary change and the attachment rewrite in the
// same transaction) and the pool otherwise.
func (s *Postgres) querier(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) Load(ctx context.Context) (map[id.TagField]map[string]taxonomy.ValueState, error) {
	rows, err := s.querier(ctx).QueryContext(ctx, `
		SELECT field, key, state
		FROM vocabulary_values
	`)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}
	defer rows.Close()

	out := make(map[id.TagField]map[string]taxonomy.ValueState)
	for rows.Next() {
		var field, key, state string
		if err := rows.Scan(&field, &key, &state); err != nil {
			return nil, fmt.Errorf("scan vocabulary value: %w", err)
		}
		f := id.TagField(field)
		if out[f] == nil {
			out[f] = make(map[string]taxonomy.ValueState)
		}
		out[f][key] = taxonomy.ValueState(state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vocabulary values: %w", err)
	}
	return out, nil
}

func (s *Postgres) Upsert(ctx context.Context, field id.TagField, key string, state taxonomy.ValueState) error {
	_, err := s.querier(ctx).ExecContext(ctx, `
		INSERT INTO vocabulary_values (field, key, state)
		VALUES ($1, $2, $3)
		ON CONFLICT (field, key) DO UPDATE SET state = EXCLUDED.state
	`, field.String(), key, string(state))
	if err != nil {
		return fmt.Errorf("upsert vocabulary value: %w", err)
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, field id.TagField, key string) error {
	_, err := s.querier(ctx).ExecContext(ctx, `
		DELETE FROM vocabulary_values WHERE field = $1 AND key = $2
	`, field.String(), key)
	if err != nil {
		return fmt.Errorf("delete vocabulary value: %w", err)
	}
	return nil
}

// PostgresTx runs migration steps in one SERIALIZABLE transaction so
// concurrent reads observe either the pre- or post-migration vocabulary.
type PostgresTx struct {
	db *sql.DB
}

func NewPostgresTx(db *sql.DB) *PostgresTx {
	return &PostgresTx{db: db}
}

func (p *PostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	sqlTx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(tx.WithTx(ctx, sqlTx)); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit migration tx: %w", err)
	}
	return nil
}

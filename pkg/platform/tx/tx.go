// Package tx threads a *sql.Tx through the context so stores can join an
// ambient transaction without widening their method signatures. Vocabulary
// migrations rely on this to rewrite attachments inside the migration
// transaction.
package tx

import (
	"context"
	"database/sql"
)

type txKey struct{}

// WithTx returns a context carrying the transaction. A nil transaction
// leaves the context unchanged.
func WithTx(ctx context.Context, t *sql.Tx) context.Context {
	if t == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey{}, t)
}

// From returns the ambient transaction, if one is active.
func From(ctx context.Context) (*sql.Tx, bool) {
	t, ok := ctx.Value(txKey{}).(*sql.Tx)
	return t, ok
}

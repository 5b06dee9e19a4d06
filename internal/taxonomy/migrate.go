package taxonomy

import (
	"context"

	id "pitchfund/pkg/domain"
	dErrors "pitchfund/pkg/domain-errors"
)

// Vocabulary migrations. All of these serialize on the engine's mutation
// lock, run their store writes inside one transaction, and publish the new
// snapshot only after commit, so a concurrent reader sees either the pre- or
// the post-migration vocabulary, never a mix. Keys arrive as free text and
// are normalized before validation, like every other tag entry point.

// ProposeValue adds a candidate value to a field's vocabulary in the proposed
// state. Proposed values are not members yet: they cannot be attached and do
// not appear in listings until approved.
func (e *Engine) ProposeValue(ctx context.Context, field id.TagField, key string) error {
	key, err := e.checkMigrationInput(field, key)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.Current()
	if state := snap.State(field, key); state == StateActive || state == StateProposed {
		return dErrors.New(dErrors.CodeConflict, "value already in vocabulary")
	}

	if err := e.tx.RunInTx(ctx, func(txCtx context.Context) error {
		return e.store.Upsert(txCtx, field, key, StateProposed)
	}); err != nil {
		return wrapMigrationErr(err)
	}

	e.snapshot.Store(snap.withValue(field, key, StateProposed))
	e.countMigration(field, "propose")
	e.notify(ctx, field)
	return nil
}

// ApproveValue promotes a proposed value to active membership.
func (e *Engine) ApproveValue(ctx context.Context, field id.TagField, key string) error {
	key, err := e.checkMigrationInput(field, key)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.Current()
	switch snap.State(field, key) {
	case StateProposed:
		// The only legal transition into active.
	case StateActive:
		return dErrors.New(dErrors.CodeConflict, "value is already active")
	default:
		return dErrors.New(dErrors.CodeNotFound, "no proposed value to approve")
	}

	if err := e.tx.RunInTx(ctx, func(txCtx context.Context) error {
		return e.store.Upsert(txCtx, field, key, StateActive)
	}); err != nil {
		return wrapMigrationErr(err)
	}

	e.snapshot.Store(snap.withValue(field, key, StateActive))
	e.countMigration(field, "approve")
	e.notify(ctx, field)
	return nil
}

// Rename moves every attachment of oldKey to newKey and removes oldKey from
// the vocabulary, in one atomic pass:
//
//  1. newKey is upserted as active (a rename onto an existing active value is
//     a merge),
//  2. all attachments are rewritten old→new,
//  3. oldKey is removed, only now that nothing references it.
//
// The old value is never removed while attachments still reference it.
func (e *Engine) Rename(ctx context.Context, field id.TagField, oldKey, newKey string) error {
	oldKey, err := e.checkMigrationInput(field, oldKey)
	if err != nil {
		return err
	}
	newKey = Normalize(newKey)
	if !WellFormed(newKey) {
		return dErrors.NewField(dErrors.CodeValidation, field.String(),
			"value "+newKey+" is not a canonical key")
	}
	if oldKey == newKey {
		return dErrors.New(dErrors.CodeInvalidInput, "rename source and target are identical")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.Current()
	if snap.State(field, oldKey) == "" {
		return dErrors.New(dErrors.CodeNotFound, "value not in vocabulary")
	}

	var rewritten int
	err = e.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := e.store.Upsert(txCtx, field, newKey, StateActive); err != nil {
			return err
		}
		n, err := e.attachments.Rewrite(txCtx, field, oldKey, newKey)
		if err != nil {
			return err
		}
		rewritten = n

		remaining, err := e.attachments.Count(txCtx, field, oldKey)
		if err != nil {
			return err
		}
		if remaining != 0 {
			// Abort rather than strand attachments on a value about to
			// disappear from the vocabulary.
			return dErrors.Newf(dErrors.CodeConflict,
				"%d attachments still reference %s after rewrite", remaining, oldKey)
		}
		return e.store.Delete(txCtx, field, oldKey)
	})
	if err != nil {
		return wrapMigrationErr(err)
	}

	e.snapshot.Store(snap.withValue(field, newKey, StateActive).withoutValue(field, oldKey))
	e.countMigration(field, "rename")
	e.logger.InfoContext(ctx, "vocabulary value renamed",
		"field", field.String(), "old", oldKey, "new", newKey, "rewritten", rewritten)
	e.notify(ctx, field)
	return nil
}

// Retire removes a value from active membership. Only legal when zero
// attachments reference it; retire a used value by renaming its attachments
// away first.
func (e *Engine) Retire(ctx context.Context, field id.TagField, key string) error {
	key, err := e.checkMigrationInput(field, key)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.Current()
	switch snap.State(field, key) {
	case StateActive, StateProposed:
	case StateRetired:
		return dErrors.New(dErrors.CodeConflict, "value is already retired")
	default:
		return dErrors.New(dErrors.CodeNotFound, "value not in vocabulary")
	}

	if err := e.tx.RunInTx(ctx, func(txCtx context.Context) error {
		count, err := e.attachments.Count(txCtx, field, key)
		if err != nil {
			return err
		}
		if count != 0 {
			return dErrors.Newf(dErrors.CodeConflict,
				"cannot retire %s: %d attachments reference it", key, count)
		}
		return e.store.Upsert(txCtx, field, key, StateRetired)
	}); err != nil {
		return wrapMigrationErr(err)
	}

	e.snapshot.Store(snap.withValue(field, key, StateRetired))
	e.countMigration(field, "retire")
	e.notify(ctx, field)
	return nil
}

// checkMigrationInput normalizes an admin-supplied key and validates it
// against the canonical grammar. Migration inputs are free text like any
// other tag entry point.
func (e *Engine) checkMigrationInput(field id.TagField, key string) (string, error) {
	if _, ok := e.configs[field]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown tag field")
	}
	key = Normalize(key)
	if !WellFormed(key) {
		return "", dErrors.NewField(dErrors.CodeValidation, field.String(),
			"value "+key+" is not a canonical key")
	}
	return key, nil
}

func wrapMigrationErr(err error) error {
	if dErrors.CodeOf(err) != dErrors.CodeInternal {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "vocabulary migration failed")
}

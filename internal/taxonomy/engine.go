package taxonomy

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"pitchfund/internal/platform/metrics"
	id "pitchfund/pkg/domain"
	dErrors "pitchfund/pkg/domain-errors"
)

// VocabularyStore persists vocabulary values. Implementations are pure I/O;
// membership and migration rules live here.
type VocabularyStore interface {
	Load(ctx context.Context) (map[id.TagField]map[string]ValueState, error)
	Upsert(ctx context.Context, field id.TagField, key string, state ValueState) error
	Delete(ctx context.Context, field id.TagField, key string) error
}

// StoreTx runs a function inside one storage transaction so a migration's
// vocabulary change and attachment rewrite commit together.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Attachments is the engine's view of tag usage on entities. Implemented by
// the portfolio store; the engine never touches entity rows directly beyond
// this surface.
type Attachments interface {
	// Count returns how many entities currently carry key in field.
	Count(ctx context.Context, field id.TagField, key string) (int, error)
	// Rewrite replaces oldKey with newKey in every entity's field array,
	// deduplicating, and returns the number of entities touched.
	Rewrite(ctx context.Context, field id.TagField, oldKey, newKey string) (int, error)
	// UsageCounts returns per-key attachment counts for a field.
	UsageCounts(ctx context.Context, field id.TagField) (map[string]int, error)
}

// Engine is the taxonomy engine. Reads go against an immutable snapshot
// swapped atomically; mutations serialize on mu and publish a new snapshot
// only after the backing store committed.
type Engine struct {
	configs     map[id.TagField]FieldConfig
	store       VocabularyStore
	attachments Attachments
	tx          StoreTx
	logger      *slog.Logger
	metrics     *metrics.Metrics
	onChange    func(ctx context.Context, field id.TagField)

	mu       sync.Mutex
	snapshot atomic.Pointer[Snapshot]
}

// Option configures optional engine collaborators.
type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithTx(tx StoreTx) Option {
	return func(e *Engine) { e.tx = tx }
}

// WithChangeListener registers a hook invoked after every committed
// vocabulary change (cache invalidation).
func WithChangeListener(fn func(ctx context.Context, field id.TagField)) Option {
	return func(e *Engine) { e.onChange = fn }
}

type noopTx struct{}

func (noopTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// DefaultConfigs returns the stock field configuration: industry and
// business model closed, keywords and co-investors open.
func DefaultConfigs(industry, businessModel, keywords, coInvestors int) map[id.TagField]FieldConfig {
	return map[id.TagField]FieldConfig{
		id.TagFieldIndustry:      {Mode: ModeClosed, MaxCardinality: industry},
		id.TagFieldBusinessModel: {Mode: ModeClosed, MaxCardinality: businessModel},
		id.TagFieldKeyword:       {Mode: ModeOpen, MaxCardinality: keywords},
		id.TagFieldCoInvestor:    {Mode: ModeOpen, MaxCardinality: coInvestors},
	}
}

func NewEngine(store VocabularyStore, attachments Attachments, configs map[id.TagField]FieldConfig, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "vocabulary store is required")
	}
	if attachments == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "attachments view is required")
	}
	e := &Engine{
		configs:     configs,
		store:       store,
		attachments: attachments,
		tx:          noopTx{},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.snapshot.Store(NewSnapshot(nil))
	return e, nil
}

// LoadSnapshot hydrates the in-memory snapshot from the store. Called once at
// startup and safe to call again to re-sync.
func (e *Engine) LoadSnapshot(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	values, err := e.store.Load(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load vocabulary")
	}
	e.snapshot.Store(NewSnapshot(values))
	return nil
}

// Current returns the active vocabulary snapshot.
func (e *Engine) Current() *Snapshot {
	return e.snapshot.Load()
}

// Config returns the field configuration, zero when the field is unknown.
func (e *Engine) Config(field id.TagField) (FieldConfig, bool) {
	cfg, ok := e.configs[field]
	return cfg, ok
}

// Validate checks a proposed tag array against the field's vocabulary and
// array-level constraints. A nil or empty array is always valid. Errors carry
// the field name for boundary reporting.
func (e *Engine) Validate(field id.TagField, values []string) error {
	if len(values) == 0 {
		return nil
	}
	cfg, ok := e.configs[field]
	if !ok {
		return dErrors.NewField(dErrors.CodeValidation, field.String(), "field is not governed by the taxonomy")
	}
	if len(values) > cfg.MaxCardinality {
		e.countReject(field, "cardinality")
		return dErrors.NewField(dErrors.CodeValidation, field.String(),
			"too many values: max "+strconv.Itoa(cfg.MaxCardinality))
	}

	snap := e.Current()
	for _, v := range values {
		if !WellFormed(v) {
			e.countReject(field, "grammar")
			return dErrors.NewField(dErrors.CodeValidation, field.String(),
				"value "+v+" is not a canonical key")
		}
		if cfg.Mode == ModeClosed && !snap.Member(field, v) {
			e.countReject(field, "membership")
			return dErrors.NewField(dErrors.CodeValidation, field.String(),
				"value "+v+" is not in the vocabulary")
		}
	}
	return nil
}

// EnsureOpenValues records unseen values of an open field as active
// vocabulary members. Called after a validated write attaches them; closed
// fields are never expanded this way.
func (e *Engine) EnsureOpenValues(ctx context.Context, field id.TagField, values []string) error {
	cfg, ok := e.configs[field]
	if !ok || cfg.Mode != ModeOpen {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.Current()
	next := snap
	added := false
	for _, v := range values {
		if snap.State(field, v) == StateActive {
			continue
		}
		if err := e.store.Upsert(ctx, field, v, StateActive); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to expand vocabulary")
		}
		next = next.withValue(field, v, StateActive)
		added = true
	}
	if added {
		e.snapshot.Store(next)
		e.notify(ctx, field)
	}
	return nil
}

// ListVocabulary returns the active values of a field with derived labels and
// usage counts, ordered by usage count descending then value ascending.
func (e *Engine) ListVocabulary(ctx context.Context, field id.TagField) ([]VocabularyEntry, error) {
	if _, ok := e.configs[field]; !ok {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown tag field")
	}

	keys := e.Current().ActiveKeys(field)
	usage, err := e.attachments.UsageCounts(ctx, field)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count tag usage")
	}

	entries := make([]VocabularyEntry, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, VocabularyEntry{
			Value:      key,
			Label:      Label(key),
			UsageCount: usage[key],
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].UsageCount != entries[j].UsageCount {
			return entries[i].UsageCount > entries[j].UsageCount
		}
		return entries[i].Value < entries[j].Value
	})
	return entries, nil
}

func (e *Engine) countReject(field id.TagField, reason string) {
	if e.metrics != nil {
		e.metrics.TagValidationRejects.WithLabelValues(field.String(), reason).Inc()
	}
}

func (e *Engine) countMigration(field id.TagField, operation string) {
	if e.metrics != nil {
		e.metrics.VocabularyMigrations.WithLabelValues(field.String(), operation).Inc()
	}
}

func (e *Engine) notify(ctx context.Context, field id.TagField) {
	if e.onChange != nil {
		e.onChange(ctx, field)
	}
}

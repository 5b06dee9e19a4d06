// Package cache fronts vocabulary listings with redis. Listings are read on
// every form render but change only on writes and migrations, so they cache
// well; the engine invalidates per field on each committed change.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"pitchfund/internal/taxonomy"
	id "pitchfund/pkg/domain"
)

const keyPrefix = "vocab:"

// DefaultTTL caps staleness when an invalidation is lost (for example a
// migration committed while redis was unreachable).
const DefaultTTL = 5 * time.Minute

// Lister is the uncached vocabulary listing, implemented by the engine.
type Lister interface {
	ListVocabulary(ctx context.Context, field id.TagField) ([]taxonomy.VocabularyEntry, error)
}

// CachedLister serves vocabulary listings from redis, collapsing concurrent
// misses with singleflight. A nil redis client degrades to direct reads.
type CachedLister struct {
	client *redis.Client
	inner  Lister
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

func New(client *redis.Client, inner Lister, logger *slog.Logger) *CachedLister {
	return &CachedLister{
		client: client,
		inner:  inner,
		ttl:    DefaultTTL,
		logger: logger,
	}
}

func (c *CachedLister) ListVocabulary(ctx context.Context, field id.TagField) ([]taxonomy.VocabularyEntry, error) {
	if c.client == nil {
		return c.inner.ListVocabulary(ctx, field)
	}

	key := keyPrefix + field.String()
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var entries []taxonomy.VocabularyEntry
		if err := json.Unmarshal(raw, &entries); err == nil {
			return entries, nil
		}
		// Corrupt cache entry: fall through to a refresh.
	} else if !errors.Is(err, redis.Nil) {
		c.logger.WarnContext(ctx, "vocabulary cache read failed", "field", field.String(), "error", err.Error())
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		entries, err := c.inner.ListVocabulary(ctx, field)
		if err != nil {
			return nil, err
		}
		if encoded, err := json.Marshal(entries); err == nil {
			if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
				c.logger.WarnContext(ctx, "vocabulary cache write failed", "field", field.String(), "error", err.Error())
			}
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]taxonomy.VocabularyEntry), nil
}

// Invalidate drops the cached listing for a field. Wired as the engine's
// change listener.
func (c *CachedLister) Invalidate(ctx context.Context, field id.TagField) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, keyPrefix+field.String()).Err(); err != nil {
		// The TTL bounds staleness; nothing else to do here.
		c.logger.WarnContext(ctx, "vocabulary cache invalidation failed", "field", field.String(), "error", err.Error())
	}
}

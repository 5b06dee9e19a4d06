package store

import (
	"context"
	"slices"

	id "pitchfund/pkg/domain"
)

// Attachments view over the in-memory backend. Company tag arrays carry every
// governed field; update topics additionally carry keyword attachments, so
// the keyword field counts and rewrites span both.

func (s *InMemory) Count(_ context.Context, field id.TagField, key string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, c := range s.companies {
		if slices.Contains(c.Tags(field), key) {
			count++
		}
	}
	if field == id.TagFieldKeyword {
		for _, u := range s.updates {
			if slices.Contains(u.Topics, key) {
				count++
			}
		}
	}
	return count, nil
}

func (s *InMemory) Rewrite(_ context.Context, field id.TagField, oldKey, newKey string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	touched := 0
	for companyID, c := range s.companies {
		tags := c.Tags(field)
		if !slices.Contains(tags, oldKey) {
			continue
		}
		c.SetTags(field, replaceKey(tags, oldKey, newKey))
		s.companies[companyID] = c
		touched++
	}
	if field == id.TagFieldKeyword {
		for updateID, u := range s.updates {
			if !slices.Contains(u.Topics, oldKey) {
				continue
			}
			u.Topics = replaceKey(u.Topics, oldKey, newKey)
			s.updates[updateID] = u
			touched++
		}
	}
	return touched, nil
}

func (s *InMemory) UsageCounts(_ context.Context, field id.TagField) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, c := range s.companies {
		for _, key := range c.Tags(field) {
			counts[key]++
		}
	}
	if field == id.TagFieldKeyword {
		for _, u := range s.updates {
			for _, key := range u.Topics {
				counts[key]++
			}
		}
	}
	return counts, nil
}

// replaceKey swaps oldKey for newKey preserving order and deduplicating the
// result (a merge can land on a value the entity already carries).
func replaceKey(tags []string, oldKey, newKey string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		if t == oldKey {
			t = newKey
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

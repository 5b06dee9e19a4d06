package store

import (
	"context"
	"fmt"

	id "pitchfund/pkg/domain"
)

// Attachments view over the postgres backend. Tag columns are resolved
// through a fixed allowlist; field names never reach SQL as raw input.

var tagColumns = map[id.TagField]string{
	id.TagFieldIndustry:      "industries",
	id.TagFieldBusinessModel: "business_models",
	id.TagFieldKeyword:       "keywords",
	id.TagFieldCoInvestor:    "co_investors",
}

func tagColumn(field id.TagField) (string, error) {
	col, ok := tagColumns[field]
	if !ok {
		return "", fmt.Errorf("no tag column for field %q", field)
	}
	return col, nil
}

func (s *Postgres) Count(ctx context.Context, field id.TagField, key string) (int, error) {
	col, err := tagColumn(field)
	if err != nil {
		return 0, err
	}

	var count int
	err = s.querier(ctx).QueryRowContext(ctx,
		`SELECT count(*) FROM companies WHERE $1 = ANY(`+col+`)`, key,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count tag attachments: %w", err)
	}

	if field == id.TagFieldKeyword {
		var topicCount int
		err = s.querier(ctx).QueryRowContext(ctx,
			`SELECT count(*) FROM founder_updates WHERE $1 = ANY(topics)`, key,
		).Scan(&topicCount)
		if err != nil {
			return 0, fmt.Errorf("count topic attachments: %w", err)
		}
		count += topicCount
	}
	return count, nil
}

func (s *Postgres) Rewrite(ctx context.Context, field id.TagField, oldKey, newKey string) (int, error) {
	col, err := tagColumn(field)
	if err != nil {
		return 0, err
	}

	// array_replace, then dedupe keeping each value's first position. A merge
	// can land on a key the row already carries, and the row's tag order is
	// observable, so the rebuild must match the memory backend's
	// order-preserving replace.
	res, err := s.querier(ctx).ExecContext(ctx, `
		UPDATE companies
		SET `+col+` = (
			SELECT coalesce(array_agg(x ORDER BY pos), '{}')
			FROM (
				SELECT DISTINCT ON (x) x, ord AS pos
				FROM unnest(array_replace(`+col+`, $1, $2)) WITH ORDINALITY AS t(x, ord)
				ORDER BY x, ord
			) dedup
		)
		WHERE $1 = ANY(`+col+`)
	`, oldKey, newKey)
	if err != nil {
		return 0, fmt.Errorf("rewrite tag attachments: %w", err)
	}
	touched, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rewrite tag attachments: %w", err)
	}

	if field == id.TagFieldKeyword {
		res, err := s.querier(ctx).ExecContext(ctx, `
			UPDATE founder_updates
			SET topics = (
				SELECT coalesce(array_agg(x ORDER BY pos), '{}')
				FROM (
					SELECT DISTINCT ON (x) x, ord AS pos
					FROM unnest(array_replace(topics, $1, $2)) WITH ORDINALITY AS t(x, ord)
					ORDER BY x, ord
				) dedup
			)
			WHERE $1 = ANY(topics)
		`, oldKey, newKey)
		if err != nil {
			return 0, fmt.Errorf("rewrite topic attachments: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rewrite topic attachments: %w", err)
		}
		touched += n
	}
	return int(touched), nil
}

func (s *Postgres) UsageCounts(ctx context.Context, field id.TagField) (map[string]int, error) {
	col, err := tagColumn(field)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	rows, err := s.querier(ctx).QueryContext(ctx,
		`SELECT x, count(*) FROM companies, unnest(`+col+`) AS x GROUP BY x`)
	if err != nil {
		return nil, fmt.Errorf("count tag usage: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("scan tag usage: %w", err)
		}
		counts[key] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if field == id.TagFieldKeyword {
		rows, err := s.querier(ctx).QueryContext(ctx,
			`SELECT x, count(*) FROM founder_updates, unnest(topics) AS x GROUP BY x`)
		if err != nil {
			return nil, fmt.Errorf("count topic usage: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var key string
			var count int
			if err := rows.Scan(&key, &count); err != nil {
				return nil, fmt.Errorf("scan topic usage: %w", err)
			}
			counts[key] += count
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return counts, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"pitchfund/internal/portfolio/models"
	id "pitchfund/pkg/domain"
	"pitchfund/pkg/platform/sentinel"
	"pitchfund/pkg/platform/tx"
)

// Postgres persists portfolio entities. Pure I/O; field-group policy and tag
// validation live upstream in the gateway and taxonomy engine.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// querier returns the context transaction when one is active (vocabulary
// migrations rewrite attachments inside the migration transaction) and the
// pool otherwise.
func (s *Postgres) querier(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

// ---------------------------------------------------------------------------
// Companies
// ---------------------------------------------------------------------------

const companyColumns = `
	id, name, tagline, website,
	industries, business_models, keywords, co_investors,
	invested_usd, round_terms, created_at, updated_at, version
`

func (s *Postgres) SaveCompany(ctx context.Context, c *models.Company) error {
	_, err := s.querier(ctx).ExecContext(ctx, `
		INSERT INTO companies (`+companyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			tagline = EXCLUDED.tagline,
			website = EXCLUDED.website,
			industries = EXCLUDED.industries,
			business_models = EXCLUDED.business_models,
			keywords = EXCLUDED.keywords,
			co_investors = EXCLUDED.co_investors,
			invested_usd = EXCLUDED.invested_usd,
			round_terms = EXCLUDED.round_terms,
			updated_at = EXCLUDED.updated_at,
			version = EXCLUDED.version
	`,
		uuid.UUID(c.ID), c.Name, c.Tagline, c.Website,
		pq.Array(c.Industries), pq.Array(c.BusinessModels),
		pq.Array(c.Keywords), pq.Array(c.CoInvestors),
		c.InvestedUSD, c.RoundTerms, c.CreatedAt, c.UpdatedAt, c.Version,
	)
	if err != nil {
		return fmt.Errorf("save company: %w", err)
	}
	return nil
}

func (s *Postgres) FindCompanyByID(ctx context.Context, companyID id.CompanyID) (*models.Company, error) {
	row := s.querier(ctx).QueryRowContext(ctx, `
		SELECT `+companyColumns+` FROM companies WHERE id = $1
	`, uuid.UUID(companyID))
	c, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find company: %w", err)
	}
	return c, nil
}

func (s *Postgres) ListAllCompanies(ctx context.Context, limit int) ([]*models.Company, error) {
	rows, err := s.querier(ctx).QueryContext(ctx, `
		SELECT `+companyColumns+` FROM companies ORDER BY name LIMIT $1
	`, nullableLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var out []*models.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ExecuteCompany locks the row with FOR UPDATE for the validate-then-mutate
// cycle, so concurrent tag writes on the same company serialize and
// disjoint-field updates are never lost.
func (s *Postgres) ExecuteCompany(ctx context.Context, companyID id.CompanyID,
	validate func(*models.Company) error,
	mutate func(*models.Company)) (*models.Company, error) {

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin company tx: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	row := sqlTx.QueryRowContext(ctx, `
		SELECT `+companyColumns+` FROM companies WHERE id = $1 FOR UPDATE
	`, uuid.UUID(companyID))
	c, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock company: %w", err)
	}

	if err := validate(c); err != nil {
		return nil, err
	}
	mutate(c)
	c.Version++

	_, err = sqlTx.ExecContext(ctx, `
		UPDATE companies SET
			name = $2, tagline = $3, website = $4,
			industries = $5, business_models = $6, keywords = $7, co_investors = $8,
			invested_usd = $9, round_terms = $10, updated_at = $11, version = $12
		WHERE id = $1
	`,
		uuid.UUID(c.ID), c.Name, c.Tagline, c.Website,
		pq.Array(c.Industries), pq.Array(c.BusinessModels),
		pq.Array(c.Keywords), pq.Array(c.CoInvestors),
		c.InvestedUSD, c.RoundTerms, c.UpdatedAt, c.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("update company: %w", err)
	}

	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit company tx: %w", err)
	}
	return c, nil
}

func scanCompany(row interface{ Scan(dest ...any) error }) (*models.Company, error) {
	var (
		rawID uuid.UUID
		c     models.Company
	)
	err := row.Scan(
		&rawID, &c.Name, &c.Tagline, &c.Website,
		pq.Array(&c.Industries), pq.Array(&c.BusinessModels),
		pq.Array(&c.Keywords), pq.Array(&c.CoInvestors),
		&c.InvestedUSD, &c.RoundTerms, &c.CreatedAt, &c.UpdatedAt, &c.Version,
	)
	if err != nil {
		return nil, err
	}
	c.ID = id.CompanyID(rawID)
	return &c, nil
}

// ---------------------------------------------------------------------------
// Founders
// ---------------------------------------------------------------------------

func (s *Postgres) SaveFounder(ctx context.Context, f *models.Founder) error {
	_, err := s.querier(ctx).ExecContext(ctx, `
		INSERT INTO founders (id, name, role, email, linkedin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			role = EXCLUDED.role,
			email = EXCLUDED.email,
			linkedin = EXCLUDED.linkedin,
			updated_at = EXCLUDED.updated_at
	`, uuid.UUID(f.ID), f.Name, f.Role, f.Email, f.LinkedIn, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save founder: %w", err)
	}
	return nil
}

func (s *Postgres) FindFounderByID(ctx context.Context, founderID id.FounderID) (*models.Founder, error) {
	row := s.querier(ctx).QueryRowContext(ctx, `
		SELECT id, name, role, email, linkedin, created_at, updated_at
		FROM founders WHERE id = $1
	`, uuid.UUID(founderID))
	f, err := scanFounder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find founder: %w", err)
	}
	return f, nil
}

func (s *Postgres) ListAllFounders(ctx context.Context, limit int) ([]*models.Founder, error) {
	rows, err := s.querier(ctx).QueryContext(ctx, `
		SELECT id, name, role, email, linkedin, created_at, updated_at
		FROM founders ORDER BY name LIMIT $1
	`, nullableLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list founders: %w", err)
	}
	defer rows.Close()

	var out []*models.Founder
	for rows.Next() {
		f, err := scanFounder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan founder: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Postgres) ExecuteFounder(ctx context.Context, founderID id.FounderID,
	validate func(*models.Founder) error,
	mutate func(*models.Founder)) (*models.Founder, error) {

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin founder tx: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	row := sqlTx.QueryRowContext(ctx, `
		SELECT id, name, role, email, linkedin, created_at, updated_at
		FROM founders WHERE id = $1 FOR UPDATE
	`, uuid.UUID(founderID))
	f, err := scanFounder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock founder: %w", err)
	}

	if err := validate(f); err != nil {
		return nil, err
	}
	mutate(f)

	_, err = sqlTx.ExecContext(ctx, `
		UPDATE founders SET name = $2, role = $3, email = $4, linkedin = $5, updated_at = $6
		WHERE id = $1
	`, uuid.UUID(f.ID), f.Name, f.Role, f.Email, f.LinkedIn, f.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update founder: %w", err)
	}

	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit founder tx: %w", err)
	}
	return f, nil
}

func scanFounder(row interface{ Scan(dest ...any) error }) (*models.Founder, error) {
	var (
		rawID uuid.UUID
		f     models.Founder
	)
	if err := row.Scan(&rawID, &f.Name, &f.Role, &f.Email, &f.LinkedIn, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	f.ID = id.FounderID(rawID)
	return &f, nil
}

// ---------------------------------------------------------------------------
// Updates
// ---------------------------------------------------------------------------

func (s *Postgres) SaveUpdate(ctx context.Context, u *models.Update) error {
	_, err := s.querier(ctx).ExecContext(ctx, `
		INSERT INTO founder_updates
			(id, company_id, founder_id, period_start, period_end,
			 raw_text, summary, sentiment, topics, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			raw_text = EXCLUDED.raw_text,
			summary = EXCLUDED.summary,
			sentiment = EXCLUDED.sentiment,
			topics = EXCLUDED.topics,
			updated_at = EXCLUDED.updated_at
	`,
		uuid.UUID(u.ID), uuid.UUID(u.CompanyID), uuid.UUID(u.FounderID),
		u.PeriodStart, u.PeriodEnd, u.RawText, u.Summary, u.Sentiment,
		pq.Array(u.Topics), u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save update: %w", err)
	}
	return nil
}

func (s *Postgres) FindUpdateByID(ctx context.Context, updateID id.UpdateID) (*models.Update, error) {
	row := s.querier(ctx).QueryRowContext(ctx, `
		SELECT id, company_id, founder_id, period_start, period_end,
		       raw_text, summary, sentiment, topics, created_at, updated_at
		FROM founder_updates WHERE id = $1
	`, uuid.UUID(updateID))
	u, err := scanUpdate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find update: %w", err)
	}
	return u, nil
}

func (s *Postgres) ListAllUpdates(ctx context.Context, limit int) ([]*models.Update, error) {
	rows, err := s.querier(ctx).QueryContext(ctx, `
		SELECT id, company_id, founder_id, period_start, period_end,
		       raw_text, summary, sentiment, topics, created_at, updated_at
		FROM founder_updates
		ORDER BY founder_id, company_id, period_start
		LIMIT $1
	`, nullableLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list updates: %w", err)
	}
	defer rows.Close()

	var out []*models.Update
	for rows.Next() {
		u, err := scanUpdate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan update: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Postgres) ListUpdatesByFounder(ctx context.Context, founderID id.FounderID, limit int) ([]*models.Update, error) {
	rows, err := s.querier(ctx).QueryContext(ctx, `
		SELECT id, company_id, founder_id, period_start, period_end,
		       raw_text, summary, sentiment, topics, created_at, updated_at
		FROM founder_updates
		WHERE founder_id = $1
		ORDER BY company_id, period_start
		LIMIT $2
	`, uuid.UUID(founderID), nullableLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list updates by founder: %w", err)
	}
	defer rows.Close()

	var out []*models.Update
	for rows.Next() {
		u, err := scanUpdate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan update: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Postgres) ListUpdatesByCompany(ctx context.Context, companyID id.CompanyID, limit int) ([]*models.Update, error) {
	rows, err := s.querier(ctx).QueryContext(ctx, `
		SELECT id, company_id, founder_id, period_start, period_end,
		       raw_text, summary, sentiment, topics, created_at, updated_at
		FROM founder_updates
		WHERE company_id = $1
		ORDER BY period_start
		LIMIT $2
	`, uuid.UUID(companyID), nullableLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list updates by company: %w", err)
	}
	defer rows.Close()

	var out []*models.Update
	for rows.Next() {
		u, err := scanUpdate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan update: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Postgres) ExecuteUpdate(ctx context.Context, updateID id.UpdateID,
	validate func(*models.Update) error,
	mutate func(*models.Update)) (*models.Update, error) {

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update tx: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	row := sqlTx.QueryRowContext(ctx, `
		SELECT id, company_id, founder_id, period_start, period_end,
		       raw_text, summary, sentiment, topics, created_at, updated_at
		FROM founder_updates WHERE id = $1 FOR UPDATE
	`, uuid.UUID(updateID))
	u, err := scanUpdate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock update: %w", err)
	}

	if err := validate(u); err != nil {
		return nil, err
	}
	mutate(u)

	_, err = sqlTx.ExecContext(ctx, `
		UPDATE founder_updates SET
			raw_text = $2, summary = $3, sentiment = $4, topics = $5, updated_at = $6
		WHERE id = $1
	`, uuid.UUID(u.ID), u.RawText, u.Summary, u.Sentiment, pq.Array(u.Topics), u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update founder update: %w", err)
	}

	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update tx: %w", err)
	}
	return u, nil
}

func scanUpdate(row interface{ Scan(dest ...any) error }) (*models.Update, error) {
	var (
		rawID, rawCompany, rawFounder uuid.UUID
		u                             models.Update
	)
	err := row.Scan(
		&rawID, &rawCompany, &rawFounder, &u.PeriodStart, &u.PeriodEnd,
		&u.RawText, &u.Summary, &u.Sentiment, pq.Array(&u.Topics),
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.ID = id.UpdateID(rawID)
	u.CompanyID = id.CompanyID(rawCompany)
	u.FounderID = id.FounderID(rawFounder)
	return &u, nil
}

// ---------------------------------------------------------------------------
// Metric points
// ---------------------------------------------------------------------------

func (s *Postgres) SaveMetric(ctx context.Context, m *models.MetricPoint) error {
	_, err := s.querier(ctx).ExecContext(ctx, `
		INSERT INTO metric_points (id, company_id, name, period_end, value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET value = EXCLUDED.value
	`, uuid.UUID(m.ID), uuid.UUID(m.CompanyID), m.Name, m.PeriodEnd, m.Value, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("save metric point: %w", err)
	}
	return nil
}

func (s *Postgres) FindMetricByID(ctx context.Context, metricID id.MetricID) (*models.MetricPoint, error) {
	row := s.querier(ctx).QueryRowContext(ctx, `
		SELECT id, company_id, name, period_end, value, created_at
		FROM metric_points WHERE id = $1
	`, uuid.UUID(metricID))
	m, err := scanMetric(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find metric point: %w", err)
	}
	return m, nil
}

func (s *Postgres) ListMetricsByCompany(ctx context.Context, companyID id.CompanyID) ([]*models.MetricPoint, error) {
	rows, err := s.querier(ctx).QueryContext(ctx, `
		SELECT id, company_id, name, period_end, value, created_at
		FROM metric_points WHERE company_id = $1 ORDER BY period_end
	`, uuid.UUID(companyID))
	if err != nil {
		return nil, fmt.Errorf("list metric points: %w", err)
	}
	defer rows.Close()

	var out []*models.MetricPoint
	for rows.Next() {
		m, err := scanMetric(rows)
		if err != nil {
			return nil, fmt.Errorf("scan metric point: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMetric(row interface{ Scan(dest ...any) error }) (*models.MetricPoint, error) {
	var (
		rawID, rawCompany uuid.UUID
		m                 models.MetricPoint
	)
	if err := row.Scan(&rawID, &rawCompany, &m.Name, &m.PeriodEnd, &m.Value, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.ID = id.MetricID(rawID)
	m.CompanyID = id.CompanyID(rawCompany)
	return &m, nil
}

// ---------------------------------------------------------------------------
// Relationships
// ---------------------------------------------------------------------------

func (s *Postgres) SaveCompanyFounder(ctx context.Context, rel *models.CompanyFounder) error {
	_, err := s.querier(ctx).ExecContext(ctx, `
		INSERT INTO company_founders (company_id, founder_id, role, active, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (company_id, founder_id) DO UPDATE SET
			role = EXCLUDED.role,
			active = EXCLUDED.active,
			ended_at = EXCLUDED.ended_at
	`, uuid.UUID(rel.CompanyID), uuid.UUID(rel.FounderID), rel.Role, rel.Active, rel.StartedAt, rel.EndedAt)
	if err != nil {
		return fmt.Errorf("save company founder: %w", err)
	}
	return nil
}

func (s *Postgres) ListFoundersByCompany(ctx context.Context, companyID id.CompanyID) ([]*models.CompanyFounder, error) {
	return s.listCompanyFounders(ctx, `company_id = $1`, uuid.UUID(companyID))
}

func (s *Postgres) ListCompaniesByFounder(ctx context.Context, founderID id.FounderID) ([]*models.CompanyFounder, error) {
	return s.listCompanyFounders(ctx, `founder_id = $1`, uuid.UUID(founderID))
}

func (s *Postgres) listCompanyFounders(ctx context.Context, where string, arg any) ([]*models.CompanyFounder, error) {
	rows, err := s.querier(ctx).QueryContext(ctx, `
		SELECT company_id, founder_id, role, active, started_at, ended_at
		FROM company_founders WHERE `+where, arg)
	if err != nil {
		return nil, fmt.Errorf("list company founders: %w", err)
	}
	defer rows.Close()

	var out []*models.CompanyFounder
	for rows.Next() {
		var (
			rawCompany, rawFounder uuid.UUID
			rel                    models.CompanyFounder
		)
		if err := rows.Scan(&rawCompany, &rawFounder, &rel.Role, &rel.Active, &rel.StartedAt, &rel.EndedAt); err != nil {
			return nil, fmt.Errorf("scan company founder: %w", err)
		}
		rel.CompanyID = id.CompanyID(rawCompany)
		rel.FounderID = id.FounderID(rawFounder)
		out = append(out, &rel)
	}
	return out, rows.Err()
}

func (s *Postgres) SaveCompanyInvestor(ctx context.Context, rel *models.CompanyInvestor) error {
	_, err := s.querier(ctx).ExecContext(ctx, `
		INSERT INTO company_investors (company_id, investor_key, amount_usd, active, first_round_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (company_id, investor_key) DO UPDATE SET
			amount_usd = EXCLUDED.amount_usd,
			active = EXCLUDED.active
	`, uuid.UUID(rel.CompanyID), rel.InvestorKey, rel.AmountUSD, rel.Active, rel.FirstRoundAt)
	if err != nil {
		return fmt.Errorf("save company investor: %w", err)
	}
	return nil
}

func (s *Postgres) ListInvestorsByCompany(ctx context.Context, companyID id.CompanyID) ([]*models.CompanyInvestor, error) {
	rows, err := s.querier(ctx).QueryContext(ctx, `
		SELECT company_id, investor_key, amount_usd, active, first_round_at
		FROM company_investors WHERE company_id = $1
	`, uuid.UUID(companyID))
	if err != nil {
		return nil, fmt.Errorf("list company investors: %w", err)
	}
	defer rows.Close()

	var out []*models.CompanyInvestor
	for rows.Next() {
		var (
			rawCompany uuid.UUID
			rel        models.CompanyInvestor
		)
		if err := rows.Scan(&rawCompany, &rel.InvestorKey, &rel.AmountUSD, &rel.Active, &rel.FirstRoundAt); err != nil {
			return nil, fmt.Errorf("scan company investor: %w", err)
		}
		rel.CompanyID = id.CompanyID(rawCompany)
		out = append(out, &rel)
	}
	return out, rows.Err()
}

// nullableLimit turns limit <= 0 into NULL so LIMIT NULL means "no limit".
func nullableLimit(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

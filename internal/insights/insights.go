// Package insights computes the secure aggregations over founder updates.
// Every aggregation re-checks the caller's role before touching restricted
// rows, never exposes raw update text, and bounds its fan-out with the
// configured row cap so one founder or company cannot make a report scan the
// whole portfolio.
package insights

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"pitchfund/internal/platform/metrics"
	"pitchfund/internal/portfolio/models"
	id "pitchfund/pkg/domain"
	dErrors "pitchfund/pkg/domain-errors"
	"pitchfund/pkg/platform/sentinel"
	"pitchfund/pkg/requestcontext"
)

// DefaultRowCap bounds how many update rows one aggregation may touch.
const DefaultRowCap = 10000

// PortfolioReader is the storage surface aggregations read through. Both
// store backends satisfy it.
type PortfolioReader interface {
	FindCompanyByID(ctx context.Context, companyID id.CompanyID) (*models.Company, error)
	FindFounderByID(ctx context.Context, founderID id.FounderID) (*models.Founder, error)
	ListAllCompanies(ctx context.Context, limit int) ([]*models.Company, error)
	ListAllFounders(ctx context.Context, limit int) ([]*models.Founder, error)
	ListAllUpdates(ctx context.Context, limit int) ([]*models.Update, error)
	ListUpdatesByFounder(ctx context.Context, founderID id.FounderID, limit int) ([]*models.Update, error)
	ListUpdatesByCompany(ctx context.Context, companyID id.CompanyID, limit int) ([]*models.Update, error)
	ListFoundersByCompany(ctx context.Context, companyID id.CompanyID) ([]*models.CompanyFounder, error)
}

// TimelineEntry is one reporting period in a founder's sentiment timeline.
// Sentiment values are pointers because a zero reading is valid and must stay
// distinguishable from a missing one; the first period of each company has no
// previous sentiment and no delta.
type TimelineEntry struct {
	UpdateID    id.UpdateID  `json:"update_id"`
	CompanyID   id.CompanyID `json:"company_id"`
	PeriodStart time.Time    `json:"period_start"`
	PeriodEnd   time.Time    `json:"period_end"`
	Summary     string       `json:"summary"`

	Sentiment         *float64 `json:"sentiment"`
	PreviousSentiment *float64 `json:"previous_sentiment"`
	SentimentDelta    *float64 `json:"sentiment_delta"`
}

// FounderTimeline is the per-founder sentiment trajectory across companies.
type FounderTimeline struct {
	FounderID   id.FounderID    `json:"founder_id"`
	FounderName string          `json:"founder_name"`
	Entries     []TimelineEntry `json:"entries"`
}

// FounderRef names a founder attached to a company.
type FounderRef struct {
	FounderID id.FounderID `json:"founder_id"`
	Name      string       `json:"name"`
	Role      string       `json:"role"`
}

// CompanyProgress summarizes one company's reporting history.
type CompanyProgress struct {
	CompanyID   id.CompanyID `json:"company_id"`
	CompanyName string       `json:"company_name"`

	UpdateCount  int          `json:"update_count"`
	AvgSentiment *float64     `json:"avg_sentiment"`
	Founders     []FounderRef `json:"founders"`

	LatestSummary   string     `json:"latest_summary"`
	LatestPeriodEnd *time.Time `json:"latest_period_end"`
}

// TopicCount is one topic with its occurrence count across updates.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// FounderInsights summarizes one founder's reporting across the portfolio.
type FounderInsights struct {
	FounderID   id.FounderID `json:"founder_id"`
	FounderName string       `json:"founder_name"`

	UpdateCount  int            `json:"update_count"`
	AvgSentiment *float64       `json:"avg_sentiment"`
	CompanyIDs   []id.CompanyID `json:"company_ids"`
	TopTopics    []TopicCount   `json:"top_topics"`
}

// Service runs the aggregations.
type Service struct {
	store   PortfolioReader
	logger  *slog.Logger
	metrics *metrics.Metrics
	rowCap  int
}

// Option configures optional service collaborators.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithRowCap overrides the aggregation fan-out bound.
func WithRowCap(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.rowCap = n
		}
	}
}

func NewService(store PortfolioReader, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "portfolio reader is required")
	}
	s := &Service{
		store:  store,
		logger: slog.Default(),
		rowCap: DefaultRowCap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// FounderTimeline returns the founder's updates ordered by company and
// period, each carrying the previous period's sentiment and the delta. The
// first period per company has neither.
func (s *Service) FounderTimeline(ctx context.Context, founderID id.FounderID) (*FounderTimeline, error) {
	if err := s.requireAggregator(ctx, "founder_timeline"); err != nil {
		return nil, err
	}
	defer s.observe("founder_timeline", time.Now())

	founder, err := s.store.FindFounderByID(ctx, founderID)
	if err != nil {
		return nil, wrapReadErr(err)
	}
	updates, err := s.listFounderUpdates(ctx, founderID)
	if err != nil {
		return nil, err
	}

	return &FounderTimeline{
		FounderID:   founderID,
		FounderName: founder.Name,
		Entries:     timelineEntries(updates),
	}, nil
}

// AllFounderTimelines returns one timeline per founder across the whole
// portfolio, founders ordered by name. Founders that never reported appear
// with empty entries.
func (s *Service) AllFounderTimelines(ctx context.Context) ([]*FounderTimeline, error) {
	if err := s.requireAggregator(ctx, "all_founder_timelines"); err != nil {
		return nil, err
	}
	defer s.observe("all_founder_timelines", time.Now())

	founders, err := s.store.ListAllFounders(ctx, 0)
	if err != nil {
		return nil, wrapReadErr(err)
	}
	byFounder, err := s.allUpdatesByFounder(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*FounderTimeline, 0, len(founders))
	for _, founder := range founders {
		out = append(out, &FounderTimeline{
			FounderID:   founder.ID,
			FounderName: founder.Name,
			Entries:     timelineEntries(byFounder[founder.ID]),
		})
	}
	return out, nil
}

// timelineEntries builds delta-carrying entries from updates already ordered
// by company then period. The previous sentiment resets at each company
// boundary and skips periods without a reading.
func timelineEntries(updates []*models.Update) []TimelineEntry {
	entries := make([]TimelineEntry, 0, len(updates))
	var prevCompany id.CompanyID
	var prevSentiment *float64
	for _, u := range updates {
		if u.CompanyID != prevCompany {
			prevCompany = u.CompanyID
			prevSentiment = nil
		}
		entry := TimelineEntry{
			UpdateID:          u.ID,
			CompanyID:         u.CompanyID,
			PeriodStart:       u.PeriodStart,
			PeriodEnd:         u.PeriodEnd,
			Summary:           u.Summary,
			Sentiment:         u.Sentiment,
			PreviousSentiment: prevSentiment,
		}
		if u.Sentiment != nil && prevSentiment != nil {
			delta := *u.Sentiment - *prevSentiment
			entry.SentimentDelta = &delta
		}
		entries = append(entries, entry)
		if u.Sentiment != nil {
			prevSentiment = u.Sentiment
		}
	}
	return entries
}

// CompanyProgress returns the company's reporting summary: update count,
// average sentiment over periods that have one, attached founders, and the
// most recent summary.
func (s *Service) CompanyProgress(ctx context.Context, companyID id.CompanyID) (*CompanyProgress, error) {
	if err := s.requireAggregator(ctx, "company_progress"); err != nil {
		return nil, err
	}
	defer s.observe("company_progress", time.Now())

	company, err := s.store.FindCompanyByID(ctx, companyID)
	if err != nil {
		return nil, wrapReadErr(err)
	}
	updates, err := s.store.ListUpdatesByCompany(ctx, companyID, s.rowCap+1)
	if err != nil {
		return nil, wrapReadErr(err)
	}
	if len(updates) > s.rowCap {
		return nil, s.rowCapExceeded(ctx, "company_progress")
	}

	return s.companyProgressFrom(ctx, company, updates)
}

// AllCompanyProgress returns one progress summary per portfolio company,
// ordered by company name.
func (s *Service) AllCompanyProgress(ctx context.Context) ([]*CompanyProgress, error) {
	if err := s.requireAggregator(ctx, "all_company_progress"); err != nil {
		return nil, err
	}
	defer s.observe("all_company_progress", time.Now())

	companies, err := s.store.ListAllCompanies(ctx, 0)
	if err != nil {
		return nil, wrapReadErr(err)
	}
	updates, err := s.listAllUpdates(ctx)
	if err != nil {
		return nil, err
	}
	byCompany := make(map[id.CompanyID][]*models.Update)
	for _, u := range updates {
		byCompany[u.CompanyID] = append(byCompany[u.CompanyID], u)
	}

	out := make([]*CompanyProgress, 0, len(companies))
	for _, company := range companies {
		progress, err := s.companyProgressFrom(ctx, company, byCompany[company.ID])
		if err != nil {
			return nil, err
		}
		out = append(out, progress)
	}
	return out, nil
}

func (s *Service) companyProgressFrom(ctx context.Context, company *models.Company, updates []*models.Update) (*CompanyProgress, error) {
	progress := &CompanyProgress{
		CompanyID:    company.ID,
		CompanyName:  company.Name,
		UpdateCount:  len(updates),
		AvgSentiment: avgSentiment(updates),
	}
	for _, u := range updates {
		if progress.LatestPeriodEnd == nil || u.PeriodEnd.After(*progress.LatestPeriodEnd) {
			end := u.PeriodEnd
			progress.LatestPeriodEnd = &end
			progress.LatestSummary = u.Summary
		}
	}

	rels, err := s.store.ListFoundersByCompany(ctx, company.ID)
	if err != nil {
		return nil, wrapReadErr(err)
	}
	for _, rel := range rels {
		if !rel.Active {
			continue
		}
		founder, err := s.store.FindFounderByID(ctx, rel.FounderID)
		if err != nil {
			return nil, wrapReadErr(err)
		}
		progress.Founders = append(progress.Founders, FounderRef{
			FounderID: rel.FounderID,
			Name:      founder.Name,
			Role:      rel.Role,
		})
	}
	sort.Slice(progress.Founders, func(i, j int) bool {
		return progress.Founders[i].Name < progress.Founders[j].Name
	})

	return progress, nil
}

// FounderInsights returns the founder's cross-portfolio summary: average
// sentiment, the companies reported on, and the five most frequent topics.
// Topic ties break lexicographically.
func (s *Service) FounderInsights(ctx context.Context, founderID id.FounderID) (*FounderInsights, error) {
	if err := s.requireAggregator(ctx, "founder_insights"); err != nil {
		return nil, err
	}
	defer s.observe("founder_insights", time.Now())

	founder, err := s.store.FindFounderByID(ctx, founderID)
	if err != nil {
		return nil, wrapReadErr(err)
	}
	updates, err := s.listFounderUpdates(ctx, founderID)
	if err != nil {
		return nil, err
	}
	return founderInsightsFrom(founder, updates), nil
}

// AllFounderInsights returns one cross-portfolio summary per founder, ordered
// by founder name.
func (s *Service) AllFounderInsights(ctx context.Context) ([]*FounderInsights, error) {
	if err := s.requireAggregator(ctx, "all_founder_insights"); err != nil {
		return nil, err
	}
	defer s.observe("all_founder_insights", time.Now())

	founders, err := s.store.ListAllFounders(ctx, 0)
	if err != nil {
		return nil, wrapReadErr(err)
	}
	byFounder, err := s.allUpdatesByFounder(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*FounderInsights, 0, len(founders))
	for _, founder := range founders {
		out = append(out, founderInsightsFrom(founder, byFounder[founder.ID]))
	}
	return out, nil
}

func founderInsightsFrom(founder *models.Founder, updates []*models.Update) *FounderInsights {
	topicCounts := make(map[string]int)
	companySeen := make(map[id.CompanyID]bool)
	var companyIDs []id.CompanyID
	for _, u := range updates {
		if !companySeen[u.CompanyID] {
			companySeen[u.CompanyID] = true
			companyIDs = append(companyIDs, u.CompanyID)
		}
		for _, topic := range u.Topics {
			topicCounts[topic]++
		}
	}

	topics := make([]TopicCount, 0, len(topicCounts))
	for topic, count := range topicCounts {
		topics = append(topics, TopicCount{Topic: topic, Count: count})
	}
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Count != topics[j].Count {
			return topics[i].Count > topics[j].Count
		}
		return topics[i].Topic < topics[j].Topic
	})
	if len(topics) > 5 {
		topics = topics[:5]
	}

	return &FounderInsights{
		FounderID:    founder.ID,
		FounderName:  founder.Name,
		UpdateCount:  len(updates),
		AvgSentiment: avgSentiment(updates),
		CompanyIDs:   companyIDs,
		TopTopics:    topics,
	}
}

func (s *Service) listFounderUpdates(ctx context.Context, founderID id.FounderID) ([]*models.Update, error) {
	updates, err := s.store.ListUpdatesByFounder(ctx, founderID, s.rowCap+1)
	if err != nil {
		return nil, wrapReadErr(err)
	}
	if len(updates) > s.rowCap {
		return nil, s.rowCapExceeded(ctx, "founder")
	}
	return updates, nil
}

// listAllUpdates loads every update for a portfolio-wide rollup, subject to
// the same row cap as the per-ID scans.
func (s *Service) listAllUpdates(ctx context.Context) ([]*models.Update, error) {
	updates, err := s.store.ListAllUpdates(ctx, s.rowCap+1)
	if err != nil {
		return nil, wrapReadErr(err)
	}
	if len(updates) > s.rowCap {
		return nil, s.rowCapExceeded(ctx, "portfolio")
	}
	return updates, nil
}

// allUpdatesByFounder groups the portfolio's updates per founder, preserving
// the store's company-then-period order within each group.
func (s *Service) allUpdatesByFounder(ctx context.Context) (map[id.FounderID][]*models.Update, error) {
	updates, err := s.listAllUpdates(ctx)
	if err != nil {
		return nil, err
	}
	byFounder := make(map[id.FounderID][]*models.Update)
	for _, u := range updates {
		byFounder[u.FounderID] = append(byFounder[u.FounderID], u)
	}
	return byFounder, nil
}

// requireAggregator rejects callers below the LP tier before any restricted
// row is read.
func (s *Service) requireAggregator(ctx context.Context, aggregation string) error {
	role := requestcontext.Role(ctx)
	if role == id.RoleLP || role == id.RoleAdmin {
		return nil
	}
	if s.metrics != nil {
		s.metrics.AggregationsDenied.Inc()
	}
	s.logger.InfoContext(ctx, "aggregation denied",
		"aggregation", aggregation, "role", role.String())
	return dErrors.New(dErrors.CodeAccessDenied, "access denied")
}

func (s *Service) rowCapExceeded(ctx context.Context, scope string) error {
	s.logger.WarnContext(ctx, "aggregation row cap exceeded",
		"scope", scope, "cap", s.rowCap)
	return dErrors.New(dErrors.CodeValidation, "aggregation scope exceeds the row cap")
}

func (s *Service) observe(aggregation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.AggregationLatency.WithLabelValues(aggregation).Observe(time.Since(start).Seconds())
	}
}

// avgSentiment averages the updates that carry a sentiment reading, nil when
// none do. Zero readings count; absent ones do not.
func avgSentiment(updates []*models.Update) *float64 {
	var sum float64
	var n int
	for _, u := range updates {
		if u.Sentiment != nil {
			sum += *u.Sentiment
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

func wrapReadErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read portfolio data")
}

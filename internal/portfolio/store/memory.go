package store

import (
	"context"
	"slices"
	"sort"
	"sync"

	"pitchfund/internal/portfolio/models"
	id "pitchfund/pkg/domain"
	"pitchfund/pkg/platform/sentinel"
)

// InMemory keeps all portfolio entities in mutex-guarded maps. Records are
// copied in and out so store state can only change through Save/Execute.
type InMemory struct {
	mu        sync.RWMutex
	companies map[id.CompanyID]models.Company
	founders  map[id.FounderID]models.Founder
	updates   map[id.UpdateID]models.Update
	metrics   map[id.MetricID]models.MetricPoint

	companyFounders  []models.CompanyFounder
	companyInvestors []models.CompanyInvestor
}

func NewInMemory() *InMemory {
	return &InMemory{
		companies: make(map[id.CompanyID]models.Company),
		founders:  make(map[id.FounderID]models.Founder),
		updates:   make(map[id.UpdateID]models.Update),
		metrics:   make(map[id.MetricID]models.MetricPoint),
	}
}

// ---------------------------------------------------------------------------
// Companies
// ---------------------------------------------------------------------------

func (s *InMemory) SaveCompany(_ context.Context, company *models.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies[company.ID] = copyCompany(company)
	return nil
}

func (s *InMemory) FindCompanyByID(_ context.Context, companyID id.CompanyID) (*models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.companies[companyID]; ok {
		cp := copyCompany(&c)
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ListAllCompanies(_ context.Context, limit int) ([]*models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Company, 0, len(s.companies))
	for _, c := range s.companies {
		cp := copyCompany(&c)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemory) ExecuteCompany(_ context.Context, companyID id.CompanyID,
	validate func(*models.Company) error,
	mutate func(*models.Company)) (*models.Company, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.companies[companyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := copyCompany(&c)
	if err := validate(&working); err != nil {
		return nil, err
	}
	mutate(&working)
	working.Version = c.Version + 1
	s.companies[companyID] = copyCompany(&working)
	return &working, nil
}

// ---------------------------------------------------------------------------
// Founders
// ---------------------------------------------------------------------------

func (s *InMemory) SaveFounder(_ context.Context, founder *models.Founder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.founders[founder.ID] = *founder
	return nil
}

func (s *InMemory) FindFounderByID(_ context.Context, founderID id.FounderID) (*models.Founder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if f, ok := s.founders[founderID]; ok {
		cp := f
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ListAllFounders(_ context.Context, limit int) ([]*models.Founder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Founder, 0, len(s.founders))
	for _, f := range s.founders {
		cp := f
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemory) ExecuteFounder(_ context.Context, founderID id.FounderID,
	validate func(*models.Founder) error,
	mutate func(*models.Founder)) (*models.Founder, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.founders[founderID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := f
	if err := validate(&working); err != nil {
		return nil, err
	}
	mutate(&working)
	s.founders[founderID] = working
	cp := working
	return &cp, nil
}

// ---------------------------------------------------------------------------
// Updates
// ---------------------------------------------------------------------------

func (s *InMemory) SaveUpdate(_ context.Context, update *models.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates[update.ID] = copyUpdate(update)
	return nil
}

func (s *InMemory) FindUpdateByID(_ context.Context, updateID id.UpdateID) (*models.Update, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.updates[updateID]; ok {
		cp := copyUpdate(&u)
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ListAllUpdates(_ context.Context, limit int) ([]*models.Update, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Update, 0, len(s.updates))
	for _, u := range s.updates {
		cp := copyUpdate(&u)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FounderID != out[j].FounderID {
			return out[i].FounderID.String() < out[j].FounderID.String()
		}
		if out[i].CompanyID != out[j].CompanyID {
			return out[i].CompanyID.String() < out[j].CompanyID.String()
		}
		return out[i].PeriodStart.Before(out[j].PeriodStart)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemory) ListUpdatesByFounder(_ context.Context, founderID id.FounderID, limit int) ([]*models.Update, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Update
	for _, u := range s.updates {
		if u.FounderID != founderID {
			continue
		}
		cp := copyUpdate(&u)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CompanyID != out[j].CompanyID {
			return out[i].CompanyID.String() < out[j].CompanyID.String()
		}
		return out[i].PeriodStart.Before(out[j].PeriodStart)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemory) ListUpdatesByCompany(_ context.Context, companyID id.CompanyID, limit int) ([]*models.Update, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Update
	for _, u := range s.updates {
		if u.CompanyID != companyID {
			continue
		}
		cp := copyUpdate(&u)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodStart.Before(out[j].PeriodStart) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemory) ExecuteUpdate(_ context.Context, updateID id.UpdateID,
	validate func(*models.Update) error,
	mutate func(*models.Update)) (*models.Update, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.updates[updateID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := copyUpdate(&u)
	if err := validate(&working); err != nil {
		return nil, err
	}
	mutate(&working)
	s.updates[updateID] = copyUpdate(&working)
	return &working, nil
}

// ---------------------------------------------------------------------------
// Metric points
// ---------------------------------------------------------------------------

func (s *InMemory) SaveMetric(_ context.Context, point *models.MetricPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics[point.ID] = *point
	return nil
}

func (s *InMemory) FindMetricByID(_ context.Context, metricID id.MetricID) (*models.MetricPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.metrics[metricID]; ok {
		cp := m
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ListMetricsByCompany(_ context.Context, companyID id.CompanyID) ([]*models.MetricPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.MetricPoint
	for _, m := range s.metrics {
		if m.CompanyID == companyID {
			cp := m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodEnd.Before(out[j].PeriodEnd) })
	return out, nil
}

// ---------------------------------------------------------------------------
// Relationships
// ---------------------------------------------------------------------------

func (s *InMemory) SaveCompanyFounder(_ context.Context, rel *models.CompanyFounder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.companyFounders {
		if existing.CompanyID == rel.CompanyID && existing.FounderID == rel.FounderID {
			s.companyFounders[i] = *rel
			return nil
		}
	}
	s.companyFounders = append(s.companyFounders, *rel)
	return nil
}

func (s *InMemory) ListFoundersByCompany(_ context.Context, companyID id.CompanyID) ([]*models.CompanyFounder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.CompanyFounder
	for _, rel := range s.companyFounders {
		if rel.CompanyID == companyID {
			cp := rel
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemory) ListCompaniesByFounder(_ context.Context, founderID id.FounderID) ([]*models.CompanyFounder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.CompanyFounder
	for _, rel := range s.companyFounders {
		if rel.FounderID == founderID {
			cp := rel
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemory) SaveCompanyInvestor(_ context.Context, rel *models.CompanyInvestor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.companyInvestors {
		if existing.CompanyID == rel.CompanyID && existing.InvestorKey == rel.InvestorKey {
			s.companyInvestors[i] = *rel
			return nil
		}
	}
	s.companyInvestors = append(s.companyInvestors, *rel)
	return nil
}

func (s *InMemory) ListInvestorsByCompany(_ context.Context, companyID id.CompanyID) ([]*models.CompanyInvestor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.CompanyInvestor
	for _, rel := range s.companyInvestors {
		if rel.CompanyID == companyID {
			cp := rel
			out = append(out, &cp)
		}
	}
	return out, nil
}

func copyCompany(c *models.Company) models.Company {
	cp := *c
	cp.Industries = slices.Clone(c.Industries)
	cp.BusinessModels = slices.Clone(c.BusinessModels)
	cp.Keywords = slices.Clone(c.Keywords)
	cp.CoInvestors = slices.Clone(c.CoInvestors)
	return cp
}

func copyUpdate(u *models.Update) models.Update {
	cp := *u
	cp.Topics = slices.Clone(u.Topics)
	if u.Sentiment != nil {
		v := *u.Sentiment
		cp.Sentiment = &v
	}
	return cp
}

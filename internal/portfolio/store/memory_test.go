package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"pitchfund/internal/portfolio/models"
	id "pitchfund/pkg/domain"
	"pitchfund/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite

	ctx   context.Context
	store *InMemory
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemory()
}

func (s *MemoryStoreSuite) newCompany(name string, keywords ...string) *models.Company {
	company, err := models.NewCompany(id.CompanyID(uuid.New()), name, time.Now())
	s.Require().NoError(err)
	company.Keywords = keywords
	s.Require().NoError(s.store.SaveCompany(s.ctx, company))
	return company
}

func (s *MemoryStoreSuite) TestFindCopiesRecords() {
	company := s.newCompany("Acme", "ai")

	loaded, err := s.store.FindCompanyByID(s.ctx, company.ID)
	s.Require().NoError(err)
	loaded.Keywords[0] = "mutated"

	again, err := s.store.FindCompanyByID(s.ctx, company.ID)
	s.Require().NoError(err)
	s.Equal([]string{"ai"}, again.Keywords, "callers must not reach store state through returned slices")
}

func (s *MemoryStoreSuite) TestExecuteCompany() {
	company := s.newCompany("Acme")

	s.Run("bumps version on every mutation", func() {
		updated, err := s.store.ExecuteCompany(s.ctx, company.ID,
			func(*models.Company) error { return nil },
			func(c *models.Company) { c.Tagline = "changed" })
		s.Require().NoError(err)
		s.Equal(2, updated.Version)
	})

	s.Run("validation failure leaves the record untouched", func() {
		_, err := s.store.ExecuteCompany(s.ctx, company.ID,
			func(*models.Company) error { return sentinel.ErrInvalidState },
			func(c *models.Company) { c.Tagline = "should not land" })
		s.Require().Error(err)

		loaded, err := s.store.FindCompanyByID(s.ctx, company.ID)
		s.Require().NoError(err)
		s.Equal("changed", loaded.Tagline)
		s.Equal(2, loaded.Version)
	})

	s.Run("unknown company is not found", func() {
		_, err := s.store.ExecuteCompany(s.ctx, id.CompanyID(uuid.New()),
			func(*models.Company) error { return nil },
			func(*models.Company) {})
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestAttachments() {
	s.newCompany("Acme", "ai", "ml")
	s.newCompany("Beta", "ai")

	founderID := id.FounderID(uuid.New())
	companyID := id.CompanyID(uuid.New())
	update, err := models.NewUpdate(id.UpdateID(uuid.New()), companyID, founderID,
		time.Now().AddDate(0, -1, 0), time.Now(), time.Now())
	s.Require().NoError(err)
	update.Topics = []string{"ai", "hiring"}
	s.Require().NoError(s.store.SaveUpdate(s.ctx, update))

	s.Run("keyword counts span companies and update topics", func() {
		count, err := s.store.Count(s.ctx, id.TagFieldKeyword, "ai")
		s.Require().NoError(err)
		s.Equal(3, count)
	})

	s.Run("usage counts per key", func() {
		counts, err := s.store.UsageCounts(s.ctx, id.TagFieldKeyword)
		s.Require().NoError(err)
		s.Equal(3, counts["ai"])
		s.Equal(1, counts["ml"])
		s.Equal(1, counts["hiring"])
	})

	s.Run("rewrite replaces everywhere and deduplicates", func() {
		touched, err := s.store.Rewrite(s.ctx, id.TagFieldKeyword, "ai", "ml")
		s.Require().NoError(err)
		s.Equal(3, touched)

		count, err := s.store.Count(s.ctx, id.TagFieldKeyword, "ai")
		s.Require().NoError(err)
		s.Equal(0, count)

		counts, err := s.store.UsageCounts(s.ctx, id.TagFieldKeyword)
		s.Require().NoError(err)
		s.Equal(3, counts["ml"], "merge collapses duplicates per entity")

		reloaded, err := s.store.FindUpdateByID(s.ctx, update.ID)
		s.Require().NoError(err)
		s.Equal([]string{"ml", "hiring"}, reloaded.Topics)
	})
}

func (s *MemoryStoreSuite) TestListUpdatesByFounderOrdering() {
	founderID := id.FounderID(uuid.New())
	companyID := id.CompanyID(uuid.New())
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, monthsAgo := range []int{0, 2, 1} {
		start := base.AddDate(0, -monthsAgo-1, 0)
		end := base.AddDate(0, -monthsAgo, 0)
		update, err := models.NewUpdate(id.UpdateID(uuid.New()), companyID, founderID, start, end, end)
		s.Require().NoError(err)
		s.Require().NoError(s.store.SaveUpdate(s.ctx, update))
	}

	updates, err := s.store.ListUpdatesByFounder(s.ctx, founderID, 0)
	s.Require().NoError(err)
	s.Require().Len(updates, 3)
	s.True(updates[0].PeriodStart.Before(updates[1].PeriodStart))
	s.True(updates[1].PeriodStart.Before(updates[2].PeriodStart))

	s.Run("limit caps the result", func() {
		updates, err := s.store.ListUpdatesByFounder(s.ctx, founderID, 2)
		s.Require().NoError(err)
		s.Len(updates, 2)
	})
}

package insights_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"pitchfund/internal/insights"
	"pitchfund/internal/portfolio/models"
	portfoliostore "pitchfund/internal/portfolio/store"
	id "pitchfund/pkg/domain"
	dErrors "pitchfund/pkg/domain-errors"
	"pitchfund/pkg/requestcontext"
)

type InsightsSuite struct {
	suite.Suite

	ctx       context.Context
	service   *insights.Service
	portfolio *portfoliostore.InMemory

	company id.CompanyID
	founder id.FounderID
}

func TestInsightsSuite(t *testing.T) {
	suite.Run(t, new(InsightsSuite))
}

func (s *InsightsSuite) SetupTest() {
	s.ctx = context.Background()
	s.portfolio = portfoliostore.NewInMemory()

	service, err := insights.NewService(s.portfolio)
	s.Require().NoError(err)
	s.service = service

	s.company = id.CompanyID(uuid.New())
	s.founder = id.FounderID(uuid.New())

	company, err := models.NewCompany(s.company, "Acme Robotics", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.portfolio.SaveCompany(s.ctx, company))

	founder, err := models.NewFounder(s.founder, "Dana Vu", "CEO", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.portfolio.SaveFounder(s.ctx, founder))
}

func (s *InsightsSuite) asRole(role id.Role) context.Context {
	return requestcontext.WithRole(s.ctx, role)
}

func (s *InsightsSuite) addUpdate(monthsAgo int, sentiment *float64, topics ...string) *models.Update {
	return s.addUpdateFor(s.company, s.founder, monthsAgo, sentiment, topics...)
}

func (s *InsightsSuite) addUpdateFor(company id.CompanyID, founder id.FounderID,
	monthsAgo int, sentiment *float64, topics ...string) *models.Update {
	end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -monthsAgo, 0)
	start := end.AddDate(0, -1, 0)
	update, err := models.NewUpdate(id.UpdateID(uuid.New()), company, founder, start, end, end)
	s.Require().NoError(err)
	update.Sentiment = sentiment
	update.Topics = topics
	update.Summary = "period ending " + end.Format("2006-01")
	s.Require().NoError(s.portfolio.SaveUpdate(s.ctx, update))
	return update
}

func ptr(v float64) *float64 { return &v }

func (s *InsightsSuite) TestRoleGate() {
	for _, op := range []func(context.Context) error{
		func(ctx context.Context) error { _, err := s.service.FounderTimeline(ctx, s.founder); return err },
		func(ctx context.Context) error { _, err := s.service.CompanyProgress(ctx, s.company); return err },
		func(ctx context.Context) error { _, err := s.service.FounderInsights(ctx, s.founder); return err },
		func(ctx context.Context) error { _, err := s.service.AllFounderTimelines(ctx); return err },
		func(ctx context.Context) error { _, err := s.service.AllCompanyProgress(ctx); return err },
		func(ctx context.Context) error { _, err := s.service.AllFounderInsights(ctx); return err },
	} {
		err := op(s.asRole(id.RolePublic))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAccessDenied))

		s.NoError(op(s.asRole(id.RoleLP)))
		s.NoError(op(s.asRole(id.RoleAdmin)))
	}
}

func (s *InsightsSuite) TestFounderTimelineDeltas() {
	s.addUpdate(3, ptr(0.0))
	s.addUpdate(2, ptr(0.6))
	s.addUpdate(1, nil)
	s.addUpdate(0, ptr(0.2))

	timeline, err := s.service.FounderTimeline(s.asRole(id.RoleLP), s.founder)
	s.Require().NoError(err)
	s.Equal("Dana Vu", timeline.FounderName)
	s.Require().Len(timeline.Entries, 4)

	first := timeline.Entries[0]
	s.Require().NotNil(first.Sentiment)
	s.Equal(0.0, *first.Sentiment, "zero is a real reading, not absence")
	s.Nil(first.PreviousSentiment, "first period has no previous sentiment")
	s.Nil(first.SentimentDelta)

	second := timeline.Entries[1]
	s.Require().NotNil(second.PreviousSentiment)
	s.Equal(0.0, *second.PreviousSentiment)
	s.Require().NotNil(second.SentimentDelta)
	s.InDelta(0.6, *second.SentimentDelta, 1e-9)

	third := timeline.Entries[2]
	s.Nil(third.Sentiment)
	s.Require().NotNil(third.PreviousSentiment, "carries the last known reading")
	s.Nil(third.SentimentDelta, "no delta without a current reading")

	fourth := timeline.Entries[3]
	s.Require().NotNil(fourth.SentimentDelta)
	s.InDelta(-0.4, *fourth.SentimentDelta, 1e-9)
}

func (s *InsightsSuite) TestCompanyProgress() {
	s.addUpdate(2, ptr(0.4))
	s.addUpdate(1, ptr(0.8))
	s.addUpdate(0, nil)

	rel := &models.CompanyFounder{
		CompanyID: s.company,
		FounderID: s.founder,
		Role:      "CEO",
		Active:    true,
		StartedAt: time.Now(),
	}
	s.Require().NoError(s.portfolio.SaveCompanyFounder(s.ctx, rel))

	progress, err := s.service.CompanyProgress(s.asRole(id.RoleLP), s.company)
	s.Require().NoError(err)

	s.Equal("Acme Robotics", progress.CompanyName)
	s.Equal(3, progress.UpdateCount)
	s.Require().NotNil(progress.AvgSentiment)
	s.InDelta(0.6, *progress.AvgSentiment, 1e-9, "average skips absent readings")

	s.Require().Len(progress.Founders, 1)
	s.Equal("Dana Vu", progress.Founders[0].Name)
	s.Equal("CEO", progress.Founders[0].Role)

	s.Require().NotNil(progress.LatestPeriodEnd)
	s.Equal("period ending 2026-06", progress.LatestSummary)
}

func (s *InsightsSuite) TestCompanyProgressWithoutSentiment() {
	s.addUpdate(0, nil)

	progress, err := s.service.CompanyProgress(s.asRole(id.RoleLP), s.company)
	s.Require().NoError(err)
	s.Nil(progress.AvgSentiment, "no readings means no average, not zero")
}

func (s *InsightsSuite) TestFounderInsightsTopTopics() {
	s.addUpdate(5, ptr(0.5), "hiring", "churn_risk")
	s.addUpdate(4, ptr(0.5), "hiring", "fundraising")
	s.addUpdate(3, ptr(0.5), "hiring", "fundraising", "apples")
	s.addUpdate(2, ptr(0.5), "zebras", "apples")
	s.addUpdate(1, ptr(0.5), "zebras", "churn_risk")
	s.addUpdate(0, ptr(0.5), "runway")

	result, err := s.service.FounderInsights(s.asRole(id.RoleLP), s.founder)
	s.Require().NoError(err)

	s.Equal(6, result.UpdateCount)
	s.Require().Len(result.CompanyIDs, 1)
	s.Equal(s.company, result.CompanyIDs[0])

	s.Require().Len(result.TopTopics, 5, "top five only")
	s.Equal("hiring", result.TopTopics[0].Topic)
	s.Equal(3, result.TopTopics[0].Count)

	// Two-count topics tie; lexicographic order breaks the tie.
	s.Equal("apples", result.TopTopics[1].Topic)
	s.Equal("churn_risk", result.TopTopics[2].Topic)
	s.Equal("fundraising", result.TopTopics[3].Topic)
	s.Equal("zebras", result.TopTopics[4].Topic)
}

func (s *InsightsSuite) TestPortfolioRollups() {
	companyB := id.CompanyID(uuid.New())
	beta, err := models.NewCompany(companyB, "Beta Health", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.portfolio.SaveCompany(s.ctx, beta))

	founderB := id.FounderID(uuid.New())
	avery, err := models.NewFounder(founderB, "Avery Chen", "CTO", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.portfolio.SaveFounder(s.ctx, avery))

	founderC := id.FounderID(uuid.New())
	zoe, err := models.NewFounder(founderC, "Zoe Ruiz", "CEO", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.portfolio.SaveFounder(s.ctx, zoe))

	s.addUpdate(1, ptr(0.2), "hiring")
	s.addUpdate(0, ptr(0.4), "hiring")
	s.addUpdateFor(companyB, founderB, 0, ptr(0.8), "telehealth")

	s.Run("timelines cover every founder ordered by name", func() {
		timelines, err := s.service.AllFounderTimelines(s.asRole(id.RoleLP))
		s.Require().NoError(err)
		s.Require().Len(timelines, 3)

		s.Equal("Avery Chen", timelines[0].FounderName)
		s.Len(timelines[0].Entries, 1)

		s.Equal("Dana Vu", timelines[1].FounderName)
		s.Require().Len(timelines[1].Entries, 2)
		s.Require().NotNil(timelines[1].Entries[1].SentimentDelta)
		s.InDelta(0.2, *timelines[1].Entries[1].SentimentDelta, 1e-9)

		s.Equal("Zoe Ruiz", timelines[2].FounderName)
		s.Empty(timelines[2].Entries, "founders without updates still appear")
	})

	s.Run("progress covers every company ordered by name", func() {
		progress, err := s.service.AllCompanyProgress(s.asRole(id.RoleLP))
		s.Require().NoError(err)
		s.Require().Len(progress, 2)

		s.Equal("Acme Robotics", progress[0].CompanyName)
		s.Equal(2, progress[0].UpdateCount)
		s.Require().NotNil(progress[0].AvgSentiment)
		s.InDelta(0.3, *progress[0].AvgSentiment, 1e-9)

		s.Equal("Beta Health", progress[1].CompanyName)
		s.Equal(1, progress[1].UpdateCount)
	})

	s.Run("insights cover every founder", func() {
		results, err := s.service.AllFounderInsights(s.asRole(id.RoleLP))
		s.Require().NoError(err)
		s.Require().Len(results, 3)

		dana := results[1]
		s.Equal("Dana Vu", dana.FounderName)
		s.Equal(2, dana.UpdateCount)
		s.Equal([]id.CompanyID{s.company}, dana.CompanyIDs)
		s.Require().Len(dana.TopTopics, 1)
		s.Equal("hiring", dana.TopTopics[0].Topic)
		s.Equal(2, dana.TopTopics[0].Count)

		s.Equal("Zoe Ruiz", results[2].FounderName)
		s.Equal(0, results[2].UpdateCount)
		s.Nil(results[2].AvgSentiment)
	})
}

func (s *InsightsSuite) TestRowCap() {
	service, err := insights.NewService(s.portfolio, insights.WithRowCap(2))
	s.Require().NoError(err)

	s.addUpdate(2, ptr(0.1))
	s.addUpdate(1, ptr(0.2))
	s.addUpdate(0, ptr(0.3))

	_, err = service.FounderTimeline(s.asRole(id.RoleAdmin), s.founder)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = service.CompanyProgress(s.asRole(id.RoleAdmin), s.company)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = service.AllCompanyProgress(s.asRole(id.RoleAdmin))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation), "portfolio rollups honor the same cap")
}

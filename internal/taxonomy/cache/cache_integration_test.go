//go:build integration

package cache_test

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"pitchfund/internal/taxonomy"
	"pitchfund/internal/taxonomy/cache"
	id "pitchfund/pkg/domain"
	"pitchfund/pkg/testutil/containers"
)

type countingLister struct {
	calls   atomic.Int32
	entries []taxonomy.VocabularyEntry
}

func (l *countingLister) ListVocabulary(_ context.Context, _ id.TagField) ([]taxonomy.VocabularyEntry, error) {
	l.calls.Add(1)
	return l.entries, nil
}

type CachedListerSuite struct {
	suite.Suite
	redis  *containers.RedisContainer
	inner  *countingLister
	lister *cache.CachedLister
}

func TestCachedListerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CachedListerSuite))
}

func (s *CachedListerSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
}

func (s *CachedListerSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	s.inner = &countingLister{entries: []taxonomy.VocabularyEntry{
		{Value: "fintech", Label: "Fintech", UsageCount: 3},
	}}
	s.lister = cache.New(s.redis.Client, s.inner, slog.Default())
}

func (s *CachedListerSuite) TestServesFromCache() {
	ctx := context.Background()

	first, err := s.lister.ListVocabulary(ctx, id.TagFieldIndustry)
	s.Require().NoError(err)
	s.Equal(s.inner.entries, first)
	s.Equal(int32(1), s.inner.calls.Load())

	second, err := s.lister.ListVocabulary(ctx, id.TagFieldIndustry)
	s.Require().NoError(err)
	s.Equal(first, second)
	s.Equal(int32(1), s.inner.calls.Load(), "second read must not reach the engine")
}

func (s *CachedListerSuite) TestFieldsAreCachedIndependently() {
	ctx := context.Background()

	_, err := s.lister.ListVocabulary(ctx, id.TagFieldIndustry)
	s.Require().NoError(err)
	_, err = s.lister.ListVocabulary(ctx, id.TagFieldKeyword)
	s.Require().NoError(err)
	s.Equal(int32(2), s.inner.calls.Load())
}

func (s *CachedListerSuite) TestInvalidateForcesRefresh() {
	ctx := context.Background()

	_, err := s.lister.ListVocabulary(ctx, id.TagFieldIndustry)
	s.Require().NoError(err)

	s.lister.Invalidate(ctx, id.TagFieldIndustry)

	_, err = s.lister.ListVocabulary(ctx, id.TagFieldIndustry)
	s.Require().NoError(err)
	s.Equal(int32(2), s.inner.calls.Load(), "invalidation must drop the cached listing")
}

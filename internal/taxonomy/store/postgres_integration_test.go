//go:build integration

package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"pitchfund/internal/taxonomy"
	"pitchfund/internal/taxonomy/store"
	id "pitchfund/pkg/domain"
	"pitchfund/pkg/testutil/containers"
)

type VocabularyPostgresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
	tx       *store.PostgresTx
}

func TestVocabularyPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(VocabularyPostgresSuite))
}

func (s *VocabularyPostgresSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.tx = store.NewPostgresTx(s.postgres.DB)
}

func (s *VocabularyPostgresSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "vocabulary_values")
	s.Require().NoError(err)
}

func (s *VocabularyPostgresSuite) TestRoundTrip() {
	ctx := context.Background()

	s.Run("empty load", func() {
		values, err := s.store.Load(ctx)
		s.Require().NoError(err)
		s.Empty(values)
	})

	s.Run("upsert and load", func() {
		s.Require().NoError(s.store.Upsert(ctx, id.TagFieldIndustry, "fintech", taxonomy.StateProposed))
		s.Require().NoError(s.store.Upsert(ctx, id.TagFieldKeyword, "ai", taxonomy.StateActive))

		values, err := s.store.Load(ctx)
		s.Require().NoError(err)
		s.Equal(taxonomy.StateProposed, values[id.TagFieldIndustry]["fintech"])
		s.Equal(taxonomy.StateActive, values[id.TagFieldKeyword]["ai"])
	})

	s.Run("upsert overwrites state", func() {
		s.Require().NoError(s.store.Upsert(ctx, id.TagFieldIndustry, "fintech", taxonomy.StateActive))

		values, err := s.store.Load(ctx)
		s.Require().NoError(err)
		s.Equal(taxonomy.StateActive, values[id.TagFieldIndustry]["fintech"])
	})

	s.Run("delete removes the key", func() {
		s.Require().NoError(s.store.Delete(ctx, id.TagFieldIndustry, "fintech"))

		values, err := s.store.Load(ctx)
		s.Require().NoError(err)
		s.NotContains(values[id.TagFieldIndustry], "fintech")
	})
}

// TestTxRollback verifies that a failing migration step leaves no partial
// vocabulary change behind.
func (s *VocabularyPostgresSuite) TestTxRollback() {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Upsert(txCtx, id.TagFieldKeyword, "doomed", taxonomy.StateActive); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	values, err := s.store.Load(ctx)
	s.Require().NoError(err)
	s.NotContains(values[id.TagFieldKeyword], "doomed")
}

// TestTxSpansStores verifies that attachment rewrites issued inside a
// migration transaction see the transaction, not the pool.
func (s *VocabularyPostgresSuite) TestTxSpansStores() {
	ctx := context.Background()

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Upsert(txCtx, id.TagFieldCoInvestor, "sequoia", taxonomy.StateActive); err != nil {
			return err
		}

		// Inside the transaction the value is already visible.
		values, err := s.store.Load(txCtx)
		if err != nil {
			return err
		}
		s.Equal(taxonomy.StateActive, values[id.TagFieldCoInvestor]["sequoia"])

		// Outside it is not, until commit.
		outside, err := s.store.Load(ctx)
		if err != nil {
			return err
		}
		s.NotContains(outside[id.TagFieldCoInvestor], "sequoia")
		return nil
	})
	s.Require().NoError(err)

	values, err := s.store.Load(ctx)
	s.Require().NoError(err)
	s.Equal(taxonomy.StateActive, values[id.TagFieldCoInvestor]["sequoia"])
}

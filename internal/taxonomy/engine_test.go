package taxonomy_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"pitchfund/internal/portfolio/models"
	portfoliostore "pitchfund/internal/portfolio/store"
	"pitchfund/internal/taxonomy"
	taxonomystore "pitchfund/internal/taxonomy/store"
	id "pitchfund/pkg/domain"
	dErrors "pitchfund/pkg/domain-errors"
)

type EngineSuite struct {
	suite.Suite

	ctx       context.Context
	engine    *taxonomy.Engine
	portfolio *portfoliostore.InMemory
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.portfolio = portfoliostore.NewInMemory()

	engine, err := taxonomy.NewEngine(
		taxonomystore.NewInMemory(),
		s.portfolio,
		taxonomy.DefaultConfigs(10, 5, 20, 15),
	)
	s.Require().NoError(err)
	s.Require().NoError(engine.LoadSnapshot(s.ctx))
	s.engine = engine
}

func (s *EngineSuite) addCompanyWithKeywords(keywords ...string) *models.Company {
	company, err := models.NewCompany(id.CompanyID(uuid.New()), "Acme", time.Now())
	s.Require().NoError(err)
	company.Keywords = keywords
	s.Require().NoError(s.portfolio.SaveCompany(s.ctx, company))
	return company
}

func (s *EngineSuite) activate(field id.TagField, key string) {
	s.Require().NoError(s.engine.ProposeValue(s.ctx, field, key))
	s.Require().NoError(s.engine.ApproveValue(s.ctx, field, key))
}

func (s *EngineSuite) TestValidateClosedField() {
	s.activate(id.TagFieldIndustry, "fintech")

	s.Run("member passes", func() {
		s.NoError(s.engine.Validate(id.TagFieldIndustry, []string{"fintech"}))
	})

	s.Run("non-member rejected", func() {
		err := s.engine.Validate(id.TagFieldIndustry, []string{"crypto"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal("industry", dErrors.FieldOf(err))
	})

	s.Run("proposed value is not a member yet", func() {
		s.Require().NoError(s.engine.ProposeValue(s.ctx, id.TagFieldIndustry, "biotech"))
		err := s.engine.Validate(id.TagFieldIndustry, []string{"biotech"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("empty array always valid", func() {
		s.NoError(s.engine.Validate(id.TagFieldIndustry, nil))
	})
}

func (s *EngineSuite) TestValidateOpenField() {
	s.Run("unseen canonical value passes", func() {
		s.NoError(s.engine.Validate(id.TagFieldKeyword, []string{"ai_powered"}))
	})

	s.Run("malformed value rejected", func() {
		err := s.engine.Validate(id.TagFieldKeyword, []string{"Deep Learning"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal("keywords", dErrors.FieldOf(err))
	})

	s.Run("digit-leading value rejected", func() {
		err := s.engine.Validate(id.TagFieldKeyword, []string{"3d_printing"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *EngineSuite) TestValidateCardinality() {
	many := make([]string, 0, 21)
	for range 21 {
		many = append(many, "kw"+string(rune('a'+len(many))))
	}

	s.Run("at the cap passes", func() {
		s.NoError(s.engine.Validate(id.TagFieldKeyword, many[:20]))
	})

	s.Run("one over the cap rejected", func() {
		err := s.engine.Validate(id.TagFieldKeyword, many)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal("keywords", dErrors.FieldOf(err))
	})
}

func (s *EngineSuite) TestEnsureOpenValues() {
	s.Run("records unseen open values as active", func() {
		s.Require().NoError(s.engine.EnsureOpenValues(s.ctx, id.TagFieldKeyword, []string{"ai_powered"}))
		s.True(s.engine.Current().Member(id.TagFieldKeyword, "ai_powered"))
	})

	s.Run("never expands closed fields", func() {
		s.Require().NoError(s.engine.EnsureOpenValues(s.ctx, id.TagFieldIndustry, []string{"fintech"}))
		s.False(s.engine.Current().Member(id.TagFieldIndustry, "fintech"))
	})
}

func (s *EngineSuite) TestRenameRewritesAttachments() {
	s.Require().NoError(s.engine.EnsureOpenValues(s.ctx, id.TagFieldKeyword, []string{"ai_powered", "ml"}))
	company := s.addCompanyWithKeywords("ai_powered", "ml")

	s.Require().NoError(s.engine.Rename(s.ctx, id.TagFieldKeyword, "ai_powered", "ai"))

	reloaded, err := s.portfolio.FindCompanyByID(s.ctx, company.ID)
	s.Require().NoError(err)
	s.ElementsMatch([]string{"ai", "ml"}, reloaded.Keywords)

	snap := s.engine.Current()
	s.True(snap.Member(id.TagFieldKeyword, "ai"))
	s.False(snap.Member(id.TagFieldKeyword, "ai_powered"))
	s.Empty(snap.State(id.TagFieldKeyword, "ai_powered"))
}

func (s *EngineSuite) TestRenameNormalizesAdminInput() {
	s.Require().NoError(s.engine.EnsureOpenValues(s.ctx, id.TagFieldKeyword, []string{"ai_powered"}))
	company := s.addCompanyWithKeywords("ai_powered")

	// Admin-facing keys are free text; "AI" migrates attachments to "ai".
	s.Require().NoError(s.engine.Rename(s.ctx, id.TagFieldKeyword, "ai_powered", "AI"))

	reloaded, err := s.portfolio.FindCompanyByID(s.ctx, company.ID)
	s.Require().NoError(err)
	s.Equal([]string{"ai"}, reloaded.Keywords)

	snap := s.engine.Current()
	s.True(snap.Member(id.TagFieldKeyword, "ai"))
	s.False(snap.Member(id.TagFieldKeyword, "ai_powered"))
}

func (s *EngineSuite) TestRenameOntoExistingValueMerges() {
	s.Require().NoError(s.engine.EnsureOpenValues(s.ctx, id.TagFieldKeyword, []string{"ai", "ai_powered"}))
	company := s.addCompanyWithKeywords("ai", "ai_powered")

	s.Require().NoError(s.engine.Rename(s.ctx, id.TagFieldKeyword, "ai_powered", "ai"))

	reloaded, err := s.portfolio.FindCompanyByID(s.ctx, company.ID)
	s.Require().NoError(err)
	s.Equal([]string{"ai"}, reloaded.Keywords)
}

func (s *EngineSuite) TestRenameValidation() {
	s.Run("unknown source value", func() {
		err := s.engine.Rename(s.ctx, id.TagFieldKeyword, "ghost", "ai")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("target that normalizes to nothing", func() {
		s.Require().NoError(s.engine.EnsureOpenValues(s.ctx, id.TagFieldKeyword, []string{"ml"}))
		err := s.engine.Rename(s.ctx, id.TagFieldKeyword, "ml", "???")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("identical source and target", func() {
		err := s.engine.Rename(s.ctx, id.TagFieldKeyword, "ml", "ml")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *EngineSuite) TestRetire() {
	s.Require().NoError(s.engine.EnsureOpenValues(s.ctx, id.TagFieldKeyword, []string{"ml"}))

	s.Run("refused while attachments reference it", func() {
		company := s.addCompanyWithKeywords("ml")
		err := s.engine.Retire(s.ctx, id.TagFieldKeyword, "ml")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.True(s.engine.Current().Member(id.TagFieldKeyword, "ml"))

		company.Keywords = nil
		s.Require().NoError(s.portfolio.SaveCompany(s.ctx, company))
	})

	s.Run("allowed at zero attachments", func() {
		s.Require().NoError(s.engine.Retire(s.ctx, id.TagFieldKeyword, "ml"))
		s.False(s.engine.Current().Member(id.TagFieldKeyword, "ml"))

		err := s.engine.Validate(id.TagFieldKeyword, []string{"ml"})
		s.NoError(err, "open-field grammar still accepts a retired key for re-adoption")
	})
}

func (s *EngineSuite) TestProposeApproveLifecycle() {
	s.Run("propose then approve activates", func() {
		s.Require().NoError(s.engine.ProposeValue(s.ctx, id.TagFieldIndustry, "fintech"))
		s.Require().NoError(s.engine.ApproveValue(s.ctx, id.TagFieldIndustry, "fintech"))
		s.True(s.engine.Current().Member(id.TagFieldIndustry, "fintech"))
	})

	s.Run("duplicate propose conflicts", func() {
		err := s.engine.ProposeValue(s.ctx, id.TagFieldIndustry, "fintech")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("approve without proposal is not found", func() {
		err := s.engine.ApproveValue(s.ctx, id.TagFieldIndustry, "biotech")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *EngineSuite) TestListVocabularyOrdering() {
	s.Require().NoError(s.engine.EnsureOpenValues(s.ctx, id.TagFieldKeyword,
		[]string{"ai", "ml", "web3"}))
	s.addCompanyWithKeywords("ml")
	s.addCompanyWithKeywords("ml", "ai")
	s.addCompanyWithKeywords("ai")

	entries, err := s.engine.ListVocabulary(s.ctx, id.TagFieldKeyword)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)

	// Usage descending, then value ascending; ai and ml tie at 2.
	s.Equal("ai", entries[0].Value)
	s.Equal(2, entries[0].UsageCount)
	s.Equal("ml", entries[1].Value)
	s.Equal(2, entries[1].UsageCount)
	s.Equal("web3", entries[2].Value)
	s.Equal(0, entries[2].UsageCount)

	s.Equal("Ai", entries[0].Label)
}

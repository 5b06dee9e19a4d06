package models

import (
	"time"

	id "pitchfund/pkg/domain"
	dErrors "pitchfund/pkg/domain-errors"
)

// CompanyFounder links a founder to a company with a role. The link itself is
// public (both sides' public groups are public), so it carries no restricted
// group.
type CompanyFounder struct {
	CompanyID id.CompanyID `json:"company_id"`
	FounderID id.FounderID `json:"founder_id"`
	Role      string       `json:"role"`
	Active    bool         `json:"active"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   *time.Time   `json:"ended_at"`
}

func NewCompanyFounder(companyID id.CompanyID, founderID id.FounderID, role string, now time.Time) (*CompanyFounder, error) {
	if companyID.IsNil() || founderID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "relationship must reference a company and a founder")
	}
	return &CompanyFounder{
		CompanyID: companyID,
		FounderID: founderID,
		Role:      role,
		Active:    true,
		StartedAt: now,
	}, nil
}

// CompanyInvestor links a co-investor to a company. Investment terms are
// restricted on the company side, so the whole relationship inherits the
// stricter sensitivity: it renders only into the restricted group.
type CompanyInvestor struct {
	CompanyID    id.CompanyID `json:"company_id"`
	InvestorKey  string       `json:"investor_key"` // canonical co_investors vocabulary key
	AmountUSD    int64        `json:"amount_usd"`
	Active       bool         `json:"active"`
	FirstRoundAt time.Time    `json:"first_round_at"`
}

func NewCompanyInvestor(companyID id.CompanyID, investorKey string, amountUSD int64, now time.Time) (*CompanyInvestor, error) {
	if companyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "relationship must reference a company")
	}
	if investorKey == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "investor key cannot be empty")
	}
	if amountUSD < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "investment amount cannot be negative")
	}
	return &CompanyInvestor{
		CompanyID:    companyID,
		InvestorKey:  investorKey,
		AmountUSD:    amountUSD,
		Active:       true,
		FirstRoundAt: now,
	}, nil
}

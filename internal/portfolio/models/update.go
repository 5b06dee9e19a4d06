package models

import (
	"time"

	id "pitchfund/pkg/domain"
	dErrors "pitchfund/pkg/domain-errors"
)

// Update is one founder update for one reporting period.
//
// Field groups:
//   - public: who, which company, which period
//   - restricted: raw text, summary, sentiment, extracted topics
//
// Sentiment is a pointer because zero is a valid reading; absence and zero
// must stay distinguishable all the way to the aggregation layer.
type Update struct {
	ID        id.UpdateID  `json:"id"`
	CompanyID id.CompanyID `json:"company_id"`
	FounderID id.FounderID `json:"founder_id"`

	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`

	RawText   string   `json:"raw_text"`
	Summary   string   `json:"summary"`
	Sentiment *float64 `json:"sentiment"`
	Topics    []string `json:"topics"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewUpdate(updateID id.UpdateID, companyID id.CompanyID, founderID id.FounderID,
	periodStart, periodEnd time.Time, now time.Time) (*Update, error) {
	if updateID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "update id cannot be nil")
	}
	if companyID.IsNil() || founderID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "update must reference a company and a founder")
	}
	if periodEnd.Before(periodStart) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "update period cannot end before it starts")
	}
	return &Update{
		ID:          updateID,
		CompanyID:   companyID,
		FounderID:   founderID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// FieldGroups renders the update into its sensitivity groups.
func (u *Update) FieldGroups() map[id.FieldGroup]map[string]any {
	return map[id.FieldGroup]map[string]any{
		id.GroupPublic: {
			"id":           u.ID.String(),
			"company_id":   u.CompanyID.String(),
			"founder_id":   u.FounderID.String(),
			"period_start": u.PeriodStart,
			"period_end":   u.PeriodEnd,
		},
		id.GroupRestricted: {
			"raw_text":  u.RawText,
			"summary":   u.Summary,
			"sentiment": u.Sentiment,
			"topics":    u.Topics,
		},
	}
}

// Package models holds the portfolio entities. Every entity splits its
// attributes into a public and a restricted field group; the authorization
// gateway renders only the groups the caller's role may read.
package models

import (
	"time"

	id "pitchfund/pkg/domain"
	dErrors "pitchfund/pkg/domain-errors"
)

// Company is a portfolio company.
//
// Field groups:
//   - public: name, tagline, website, industries, business models, keywords
//   - restricted: co-investors, invested amount, round terms
//
// Tag arrays hold canonical vocabulary keys by value, never display labels
// and never references into the vocabulary tables, so a vocabulary edit can
// only change them through an explicit migration rewrite.
type Company struct {
	ID id.CompanyID `json:"id"`

	Name           string   `json:"name"`
	Tagline        string   `json:"tagline"`
	Website        string   `json:"website"`
	Industries     []string `json:"industries"`
	BusinessModels []string `json:"business_models"`
	Keywords       []string `json:"keywords"`

	CoInvestors []string `json:"co_investors"`
	InvestedUSD int64    `json:"invested_usd"`
	RoundTerms  string   `json:"round_terms"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// NewCompany constructs a company with the public basics; tags and financial
// terms arrive through patches.
func NewCompany(companyID id.CompanyID, name string, now time.Time) (*Company, error) {
	if companyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "company id cannot be nil")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "company name cannot be empty")
	}
	if len(name) > 200 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "company name must be 200 characters or less")
	}
	return &Company{
		ID:        companyID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}, nil
}

// Tags returns the tag array for a governed field.
func (c *Company) Tags(field id.TagField) []string {
	switch field {
	case id.TagFieldIndustry:
		return c.Industries
	case id.TagFieldBusinessModel:
		return c.BusinessModels
	case id.TagFieldKeyword:
		return c.Keywords
	case id.TagFieldCoInvestor:
		return c.CoInvestors
	default:
		return nil
	}
}

// SetTags replaces the tag array for a governed field.
func (c *Company) SetTags(field id.TagField, values []string) {
	switch field {
	case id.TagFieldIndustry:
		c.Industries = values
	case id.TagFieldBusinessModel:
		c.BusinessModels = values
	case id.TagFieldKeyword:
		c.Keywords = values
	case id.TagFieldCoInvestor:
		c.CoInvestors = values
	}
}

// FieldGroups renders the company into its sensitivity groups. The gateway
// picks which groups leave the process.
func (c *Company) FieldGroups() map[id.FieldGroup]map[string]any {
	return map[id.FieldGroup]map[string]any{
		id.GroupPublic: {
			"id":              c.ID.String(),
			"name":            c.Name,
			"tagline":         c.Tagline,
			"website":         c.Website,
			"industries":      c.Industries,
			"business_models": c.BusinessModels,
			"keywords":        c.Keywords,
		},
		id.GroupRestricted: {
			"co_investors": c.CoInvestors,
			"invested_usd": c.InvestedUSD,
			"round_terms":  c.RoundTerms,
		},
	}
}

package domain

import dErrors "pitchfund/pkg/domain-errors"

// TagField identifies a tagged column governed by the taxonomy engine.
type TagField string

const (
	TagFieldIndustry      TagField = "industry"
	TagFieldBusinessModel TagField = "business_model"
	TagFieldKeyword       TagField = "keywords"
	TagFieldCoInvestor    TagField = "co_investors"
)

var validTagFields = map[TagField]bool{
	TagFieldIndustry:      true,
	TagFieldBusinessModel: true,
	TagFieldKeyword:       true,
	TagFieldCoInvestor:    true,
}

// ParseTagField constructs a TagField from external input.
func ParseTagField(s string) (TagField, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "tag field cannot be empty")
	}
	f := TagField(s)
	if !f.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown tag field")
	}
	return f, nil
}

// IsValid checks if the tag field is one of the governed columns.
func (f TagField) IsValid() bool {
	return validTagFields[f]
}

// String returns the string representation of the tag field.
func (f TagField) String() string {
	return string(f)
}

// AllTagFields returns the governed tag fields in a stable order.
func AllTagFields() []TagField {
	return []TagField{TagFieldIndustry, TagFieldBusinessModel, TagFieldKeyword, TagFieldCoInvestor}
}

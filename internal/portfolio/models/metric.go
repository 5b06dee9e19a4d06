package models

import (
	"time"

	id "pitchfund/pkg/domain"
	dErrors "pitchfund/pkg/domain-errors"
)

// MetricPoint is one reported KPI value for one company and period.
//
// Field groups:
//   - public: company, metric name, period
//   - restricted: the value itself
type MetricPoint struct {
	ID        id.MetricID  `json:"id"`
	CompanyID id.CompanyID `json:"company_id"`

	Name      string    `json:"name"`
	PeriodEnd time.Time `json:"period_end"`

	Value float64 `json:"value"`

	CreatedAt time.Time `json:"created_at"`
}

func NewMetricPoint(metricID id.MetricID, companyID id.CompanyID, name string,
	periodEnd time.Time, value float64, now time.Time) (*MetricPoint, error) {
	if metricID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "metric id cannot be nil")
	}
	if companyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "metric must reference a company")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "metric name cannot be empty")
	}
	return &MetricPoint{
		ID:        metricID,
		CompanyID: companyID,
		Name:      name,
		PeriodEnd: periodEnd,
		Value:     value,
		CreatedAt: now,
	}, nil
}

// FieldGroups renders the metric point into its sensitivity groups.
func (m *MetricPoint) FieldGroups() map[id.FieldGroup]map[string]any {
	return map[id.FieldGroup]map[string]any{
		id.GroupPublic: {
			"id":         m.ID.String(),
			"company_id": m.CompanyID.String(),
			"name":       m.Name,
			"period_end": m.PeriodEnd,
		},
		id.GroupRestricted: {
			"value": m.Value,
		},
	}
}

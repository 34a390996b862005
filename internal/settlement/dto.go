package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fkhayef/nebenkosten/internal/calcerr"
	"github.com/fkhayef/nebenkosten/internal/period"
)

// RunRequest asks for the settlement of one property and period
type RunRequest struct {
	PropertyID  int64                `json:"property_id" validate:"required"`
	PeriodStart string               `json:"period_start" validate:"required"` // YYYY-MM-DD
	PeriodEnd   string               `json:"period_end" validate:"required"`   // YYYY-MM-DD, inclusive
	Prepayments map[int64]Prepayment `json:"prepayments,omitempty"`           // overrides by tenant ID
}

// Period parses and validates the requested period
func (r *RunRequest) Period() (period.Period, error) {
	if r.PropertyID <= 0 {
		return period.Period{}, calcerr.Invalid("property_id", "is required")
	}
	return period.Parse(r.PeriodStart, r.PeriodEnd)
}

// RunSummary is the list view of a stored run
type RunSummary struct {
	ID               uuid.UUID       `json:"id"`
	PropertyID       int64           `json:"property_id"`
	Period           period.Period   `json:"period"`
	RulesVersion     string          `json:"rules_version"`
	Tenants          int             `json:"tenants"`
	ApportionedTotal decimal.Decimal `json:"apportioned_total"`
	CreatedAt        string          `json:"created_at"`
}

// ToSummary converts a Run to its list view
func (r *Run) ToSummary() *RunSummary {
	return &RunSummary{
		ID:               r.ID,
		PropertyID:       r.PropertyID,
		Period:           r.Period,
		RulesVersion:     r.RulesVersion,
		Tenants:          len(r.Results),
		ApportionedTotal: r.ApportionedTotal,
		CreatedAt:        r.CreatedAt.Format(time.RFC3339),
	}
}

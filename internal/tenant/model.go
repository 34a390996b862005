package tenant

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tenant is an occupancy record: one party renting one unit for a span of time
type Tenant struct {
	ID                int64           `json:"id"`
	PropertyID        int64           `json:"property_id"`
	UnitID            int64           `json:"unit_id"`
	Name              string          `json:"name"`
	Email             string          `json:"email"`
	MoveIn            time.Time       `json:"move_in"`
	MoveOut           *time.Time      `json:"move_out,omitempty"` // nil while the tenancy is open
	MonthlyPrepayment decimal.Decimal `json:"monthly_prepayment"`
	Persons           *int            `json:"persons,omitempty"` // nil means the unit's occupants
	CreatedAt         time.Time       `json:"created_at"`
}

// Occupies reports whether the tenancy overlaps the inclusive date range
func (t *Tenant) Occupies(start, end time.Time) bool {
	if t.MoveIn.After(end) {
		return false
	}
	return t.MoveOut == nil || !t.MoveOut.Before(start)
}

// Readings are consumption meter values per cost category for one period
type Readings struct {
	TenantID    int64                      `json:"tenant_id"`
	PeriodStart time.Time                  `json:"period_start"`
	PeriodEnd   time.Time                  `json:"period_end"`
	Values      map[string]decimal.Decimal `json:"values"`
	UpdatedAt   time.Time                  `json:"updated_at"`
}

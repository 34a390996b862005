package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fkhayef/nebenkosten/internal/apportion"
	"github.com/fkhayef/nebenkosten/internal/costitem"
	"github.com/fkhayef/nebenkosten/internal/emissions"
	"github.com/fkhayef/nebenkosten/internal/period"
	"github.com/fkhayef/nebenkosten/internal/property"
	"github.com/fkhayef/nebenkosten/internal/tenant"
)

// Prepayment overrides the advance payments recorded on a tenant.
// Months == 0 derives the month count from the tenant's occupancy.
type Prepayment struct {
	MonthlyAmount decimal.Decimal `json:"monthly_amount"`
	Months        int             `json:"months"`
}

// Input is a consistent snapshot of everything one settlement run needs
type Input struct {
	Property    *property.Property                   // with Units populated
	Tenants     []*tenant.Tenant                     // tenants without overlap with Period are ignored
	Readings    map[int64]map[string]decimal.Decimal // tenant ID -> category -> consumption
	Prepayments map[int64]Prepayment                 // optional, by tenant ID
	Items       []*costitem.LineItem
	Emissions   *emissions.Data // nil when the building has no carbon-priced heating
	Period      period.Period
}

// LineAllocation is one tenant's share of one cost line
type LineAllocation struct {
	Category    string          `json:"category"`
	Name        string          `json:"name"`
	Citation    string          `json:"citation,omitempty"`
	Key         apportion.Key   `json:"key"`
	LineTotal   decimal.Decimal `json:"line_total"`
	Measure     decimal.Decimal `json:"measure"`
	MeasureBase decimal.Decimal `json:"measure_base"`
	Share       decimal.Decimal `json:"share"`
}

// Result is the settlement of one tenant. A positive Difference is owed by
// the tenant, a negative one is refunded.
type Result struct {
	TenantID         int64            `json:"tenant_id"`
	TenantName       string           `json:"tenant_name"`
	UnitLabel        string           `json:"unit_label"`
	Occupancy        period.Period    `json:"occupancy"`
	Lines            []LineAllocation `json:"lines"`
	TotalAllocated   decimal.Decimal  `json:"total_allocated"`
	MonthlyPrepay    decimal.Decimal  `json:"monthly_prepayment"`
	PrepaymentMonths int              `json:"prepayment_months"`
	Prepayments      decimal.Decimal  `json:"prepayments"`
	Difference       decimal.Decimal  `json:"difference"`
}

// Owes reports whether the tenant has to pay a balance
func (r *Result) Owes() bool {
	return r.Difference.IsPositive()
}

// Run is an immutable settlement of one property for one period
type Run struct {
	ID               uuid.UUID            `json:"id"`
	LandlordID       int64                `json:"landlord_id,omitempty"`
	PropertyID       int64                `json:"property_id"`
	PropertyName     string               `json:"property_name"`
	Period           period.Period        `json:"period"`
	RulesVersion     string               `json:"rules_version"`
	Results          []Result             `json:"results"`
	Emissions        *emissions.Split     `json:"emissions,omitempty"`
	Excluded         []*costitem.LineItem `json:"excluded,omitempty"`
	ApportionedTotal decimal.Decimal      `json:"apportioned_total"`
	CreatedAt        time.Time            `json:"created_at"`
}

// ResultFor returns the result of one tenant
func (r *Run) ResultFor(tenantID int64) (*Result, bool) {
	for i := range r.Results {
		if r.Results[i].TenantID == tenantID {
			return &r.Results[i], true
		}
	}
	return nil, false
}

// TotalAllocated sums the allocated cost over all tenants
func (r *Run) TotalAllocated() decimal.Decimal {
	sum := decimal.Zero
	for _, res := range r.Results {
		sum = sum.Add(res.TotalAllocated)
	}
	return sum
}

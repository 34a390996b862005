package apportion

import (
	"github.com/shopspring/decimal"

	"github.com/fkhayef/nebenkosten/internal/calcerr"
)

// divisionScale bounds the precision of the exact (unrounded) shares
const divisionScale = 10

// Share is one tenancy's portion of an item
type Share struct {
	TenantID int64           `json:"tenant_id"`
	Measure  decimal.Decimal `json:"measure"`
	Exact    decimal.Decimal `json:"exact"`
	Amount   decimal.Decimal `json:"amount"`
}

// Allocation is the result of distributing one item
type Allocation struct {
	Item   Item            `json:"item"`
	Base   decimal.Decimal `json:"base"`
	Shares []Share         `json:"shares"`
}

// ByTenant returns the rounded amount per tenant id
func (a *Allocation) ByTenant() map[int64]decimal.Decimal {
	out := make(map[int64]decimal.Decimal, len(a.Shares))
	for _, s := range a.Shares {
		out[s.TenantID] = s.Amount
	}
	return out
}

// Sum returns the sum of the rounded shares
func (a *Allocation) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, s := range a.Shares {
		sum = sum.Add(s.Amount)
	}
	return sum
}

// Engine distributes cost items across tenancies with proportional keys
type Engine struct {
	factory *Factory
}

// NewEngine creates an engine backed by the given strategy factory
func NewEngine(factory *Factory) *Engine {
	if factory == nil {
		factory = NewStrategyFactory()
	}
	return &Engine{factory: factory}
}

// Allocate computes each tenancy's share of item.
//
// share_i = total * measure_i / sum(measure). Shares are rounded to cents and
// the rounding residual goes to the largest share, so the shares always add
// up to the item total. The engine never falls back to another key.
func (e *Engine) Allocate(item Item, tenancies []Tenancy) (*Allocation, error) {
	strategy, err := e.factory.Create(item.Key)
	if err != nil {
		return nil, err
	}
	if item.Total.IsNegative() {
		return nil, calcerr.Invalid("total", "%q must not be negative, got %s", item.Name, item.Total.String())
	}
	if len(tenancies) == 0 {
		return nil, &calcerr.AllocationError{Item: item.Name, Key: string(item.Key), Reason: "no tenancies to allocate to"}
	}

	seen := make(map[int64]struct{}, len(tenancies))
	measures := make([]decimal.Decimal, len(tenancies))
	base := decimal.Zero
	for i, t := range tenancies {
		if _, dup := seen[t.TenantID]; dup {
			return nil, calcerr.Invalid(tenantField(t, "tenant_id"), "duplicate tenancy")
		}
		seen[t.TenantID] = struct{}{}

		m, err := strategy.Measure(item, t)
		if err != nil {
			return nil, err
		}
		if !t.Weight.IsZero() {
			if t.Weight.IsNegative() || t.Weight.GreaterThan(decimal.NewFromInt(1)) {
				return nil, calcerr.Invalid(tenantField(t, "weight"), "must be within (0, 1], got %s", t.Weight.String())
			}
			m = m.Mul(t.Weight)
		}
		measures[i] = m
		base = base.Add(m)
	}

	total := item.Total.Round(2)
	alloc := &Allocation{Item: item, Base: base, Shares: make([]Share, len(tenancies))}

	if total.IsZero() {
		for i, t := range tenancies {
			alloc.Shares[i] = Share{TenantID: t.TenantID, Measure: measures[i], Exact: decimal.Zero, Amount: decimal.Zero}
		}
		return alloc, nil
	}

	if base.IsZero() {
		return nil, &calcerr.AllocationError{
			Item:   item.Name,
			Key:    string(item.Key),
			Reason: "sum of all tenancy measures is zero",
		}
	}

	exact := make([]decimal.Decimal, len(tenancies))
	for i := range tenancies {
		exact[i] = total.Mul(measures[i]).DivRound(base, divisionScale)
	}
	amounts := DistributeResidual(total, exact)

	for i, t := range tenancies {
		alloc.Shares[i] = Share{TenantID: t.TenantID, Measure: measures[i], Exact: exact[i], Amount: amounts[i]}
	}
	return alloc, nil
}

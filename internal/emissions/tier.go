package emissions

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/nebenkosten/internal/calcerr"
	"github.com/fkhayef/nebenkosten/internal/rules"
)

var (
	ErrTierOrder     = errors.New("emissions: tier thresholds must be positive and strictly ascending")
	ErrTierOpenEnd   = errors.New("emissions: exactly the last tier must be unbounded")
	ErrTierPercent   = errors.New("emissions: tier percentages must lie in [0, 100] and sum to 100")
	ErrTierDirection = errors.New("emissions: tenant percentage must not rise with intensity")
)

// Tier is one band of the carbon-intensity axis.
// UpTo is the inclusive upper bound; nil marks the open-ended last tier.
type Tier struct {
	Number          int              `json:"number"`
	UpTo            *decimal.Decimal `json:"up_to"`
	TenantPercent   int              `json:"tenant_percent"`
	LandlordPercent int              `json:"landlord_percent"`
}

// Contains reports whether intensity falls into this tier given the
// previous tier's upper bound (nil for the first tier).
func (t Tier) Contains(lower *decimal.Decimal, intensity decimal.Decimal) bool {
	return t.containsRatio(lower, intensity, decimal.NewFromInt(1))
}

// containsRatio tests the intensity emitted/area against the bounds by
// cross-multiplying, so no quotient is ever rounded
func (t Tier) containsRatio(lower *decimal.Decimal, emitted, area decimal.Decimal) bool {
	if lower != nil && !emitted.GreaterThan(lower.Mul(area)) {
		return false
	}
	return t.UpTo == nil || emitted.LessThanOrEqual(t.UpTo.Mul(area))
}

// Table is the ordered, gapless tier table
type Table struct {
	tiers []Tier
}

// NewTable validates tier rules and builds a table.
// The rules must start at zero implicitly, ascend strictly, end unbounded,
// and never shift cost back toward the tenant as intensity rises.
func NewTable(rs []rules.TierRule) (*Table, error) {
	if len(rs) == 0 {
		return nil, rules.ErrNoTiers
	}
	tiers := make([]Tier, len(rs))
	var prev *decimal.Decimal
	for i, r := range rs {
		last := i == len(rs)-1
		if (r.UpTo == nil) != last {
			return nil, fmt.Errorf("%w (tier %d)", ErrTierOpenEnd, i+1)
		}
		if r.TenantPercent < 0 || r.LandlordPercent < 0 || r.TenantPercent+r.LandlordPercent != 100 {
			return nil, fmt.Errorf("%w (tier %d)", ErrTierPercent, i+1)
		}
		if i > 0 && r.TenantPercent > tiers[i-1].TenantPercent {
			return nil, fmt.Errorf("%w (tier %d)", ErrTierDirection, i+1)
		}

		tier := Tier{Number: i + 1, TenantPercent: r.TenantPercent, LandlordPercent: r.LandlordPercent}
		if r.UpTo != nil {
			upTo := decimal.NewFromFloat(*r.UpTo)
			if !upTo.IsPositive() || (prev != nil && !upTo.GreaterThan(*prev)) {
				return nil, fmt.Errorf("%w (tier %d)", ErrTierOrder, i+1)
			}
			tier.UpTo = &upTo
			prev = &upTo
		}
		tiers[i] = tier
	}
	return &Table{tiers: tiers}, nil
}

// Resolve returns the single tier containing intensity
func (t *Table) Resolve(intensity decimal.Decimal) (Tier, error) {
	return t.ResolveRatio(intensity, decimal.NewFromInt(1))
}

// ResolveRatio returns the tier containing the intensity emitted/area.
// emitted is in kg CO2 per year and area in m².
func (t *Table) ResolveRatio(emitted, area decimal.Decimal) (Tier, error) {
	if !area.IsPositive() {
		return Tier{}, calcerr.Invalid("heated_area", "must be positive, got %s", area.String())
	}
	if emitted.IsNegative() {
		return Tier{}, calcerr.Invalid("intensity", "must not be negative, got %s", emitted.Div(area).String())
	}
	var lower *decimal.Decimal
	for _, tier := range t.tiers {
		if tier.containsRatio(lower, emitted, area) {
			return tier, nil
		}
		lower = tier.UpTo
	}
	// unreachable for a validated table: the last tier is unbounded
	return t.tiers[len(t.tiers)-1], nil
}

// Tiers returns a copy of the table rows
func (t *Table) Tiers() []Tier {
	out := make([]Tier, len(t.tiers))
	copy(out, t.tiers)
	return out
}

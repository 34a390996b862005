package apportion

import (
	"github.com/shopspring/decimal"

	"github.com/fkhayef/nebenkosten/internal/calcerr"
)

// ConsumptionStrategy apportions by metered consumption.
// Readings are keyed by cost category, so every tenancy needs a reading
// for the item's category.
type ConsumptionStrategy struct{}

// Key returns the key identifier
func (s *ConsumptionStrategy) Key() Key {
	return KeyConsumption
}

// Measure returns the tenancy's reading for the item's category
func (s *ConsumptionStrategy) Measure(item Item, t Tenancy) (decimal.Decimal, error) {
	reading, ok := t.Readings[item.Category]
	if !ok {
		return decimal.Zero, calcerr.Invalid(
			tenantField(t, "readings["+item.Category+"]"),
			"no consumption reading recorded for %q", item.Name,
		)
	}
	if err := nonNegative(tenantField(t, "readings["+item.Category+"]"), reading); err != nil {
		return decimal.Zero, err
	}
	return reading, nil
}

// HasReadings reports whether every tenancy carries a reading for category.
// Callers use it to detect sub-metering before choosing the consumption key.
func HasReadings(category string, tenancies []Tenancy) bool {
	if len(tenancies) == 0 {
		return false
	}
	for _, t := range tenancies {
		if _, ok := t.Readings[category]; !ok {
			return false
		}
	}
	return true
}

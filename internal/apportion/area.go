package apportion

import "github.com/shopspring/decimal"

// AreaStrategy apportions by living area in m² (§556a (1) BGB default)
type AreaStrategy struct{}

// Key returns the key identifier
func (s *AreaStrategy) Key() Key {
	return KeyArea
}

// Measure returns the tenancy's floor area
func (s *AreaStrategy) Measure(_ Item, t Tenancy) (decimal.Decimal, error) {
	if err := nonNegative(tenantField(t, "area"), t.Area); err != nil {
		return decimal.Zero, err
	}
	return t.Area, nil
}

// UnitsStrategy apportions equally per occupied unit
type UnitsStrategy struct{}

// Key returns the key identifier
func (s *UnitsStrategy) Key() Key {
	return KeyUnits
}

// Measure returns the number of units the tenancy occupies
func (s *UnitsStrategy) Measure(_ Item, t Tenancy) (decimal.Decimal, error) {
	units := decimal.NewFromInt(int64(t.Units))
	if err := nonNegative(tenantField(t, "units"), units); err != nil {
		return decimal.Zero, err
	}
	return units, nil
}

// CoOwnershipStrategy apportions by co-ownership share in per mille (WEG)
type CoOwnershipStrategy struct{}

// Key returns the key identifier
func (s *CoOwnershipStrategy) Key() Key {
	return KeyCoOwnership
}

// Measure returns the unit's co-ownership share
func (s *CoOwnershipStrategy) Measure(_ Item, t Tenancy) (decimal.Decimal, error) {
	if err := nonNegative(tenantField(t, "co_ownership_mille"), t.CoOwnershipMille); err != nil {
		return decimal.Zero, err
	}
	return t.CoOwnershipMille, nil
}

package apportion

import "github.com/shopspring/decimal"

// PersonsStrategy apportions by the number of occupants
type PersonsStrategy struct{}

// Key returns the key identifier
func (s *PersonsStrategy) Key() Key {
	return KeyPersons
}

// Measure returns the tenancy's person count
func (s *PersonsStrategy) Measure(_ Item, t Tenancy) (decimal.Decimal, error) {
	persons := decimal.NewFromInt(int64(t.Persons))
	if err := nonNegative(tenantField(t, "persons"), persons); err != nil {
		return decimal.Zero, err
	}
	return persons, nil
}

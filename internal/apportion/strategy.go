package apportion

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/nebenkosten/internal/calcerr"
)

// Key identifies an apportionment key (Umlageschlüssel)
type Key string

const (
	KeyArea        Key = "area"
	KeyPersons     Key = "persons"
	KeyUnits       Key = "units"
	KeyConsumption Key = "consumption"
	KeyCoOwnership Key = "co_ownership"
)

// Keys lists every supported key in display order
var Keys = []Key{KeyArea, KeyPersons, KeyUnits, KeyConsumption, KeyCoOwnership}

// ParseKey validates a key received from storage or an API request
func ParseKey(s string) (Key, error) {
	k := Key(s)
	for _, known := range Keys {
		if k == known {
			return k, nil
		}
	}
	return "", calcerr.Invalid("key", "unsupported apportionment key %q", s)
}

// Tenancy is the view of one occupancy that the strategies measure
type Tenancy struct {
	TenantID         int64                      `json:"tenant_id"`
	Label            string                     `json:"label"`
	Area             decimal.Decimal            `json:"area"`
	Persons          int                        `json:"persons"`
	Units            int                        `json:"units"`
	CoOwnershipMille decimal.Decimal            `json:"co_ownership_mille"`
	Readings         map[string]decimal.Decimal `json:"readings,omitempty"`

	// Weight scales the measure for time-weighted allocation.
	// The zero value means the tenancy spans the whole period.
	Weight decimal.Decimal `json:"weight"`
}

// Item is the cost line item being distributed
type Item struct {
	Category string          `json:"category"`
	Name     string          `json:"name"`
	Total    decimal.Decimal `json:"total"`
	Key      Key             `json:"key"`
}

// Strategy extracts the measure a key uses for one tenancy
type Strategy interface {
	// Key returns the key this strategy implements
	Key() Key

	// Measure returns the tenancy's measure for the item
	Measure(item Item, t Tenancy) (decimal.Decimal, error)
}

// Factory resolves keys to strategies
type Factory struct {
	strategies map[Key]Strategy
}

// NewStrategyFactory creates a factory holding one strategy per key
func NewStrategyFactory() *Factory {
	f := &Factory{strategies: make(map[Key]Strategy, len(Keys))}
	for _, s := range []Strategy{
		&AreaStrategy{},
		&PersonsStrategy{},
		&UnitsStrategy{},
		&ConsumptionStrategy{},
		&CoOwnershipStrategy{},
	} {
		f.strategies[s.Key()] = s
	}
	return f
}

// Create returns the strategy for the key
func (f *Factory) Create(key Key) (Strategy, error) {
	s, ok := f.strategies[key]
	if !ok {
		return nil, calcerr.Invalid("key", "unsupported apportionment key %q", string(key))
	}
	return s, nil
}

func nonNegative(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return calcerr.Invalid(field, "must not be negative, got %s", v.String())
	}
	return nil
}

func tenantField(t Tenancy, name string) string {
	return fmt.Sprintf("tenancies[%d].%s", t.TenantID, name)
}

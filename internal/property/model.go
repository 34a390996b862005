package property

import (
	"time"

	"github.com/shopspring/decimal"
)

// Property represents a building under management
type Property struct {
	ID            int64           `json:"id"`
	LandlordID    int64           `json:"landlord_id"`
	Name          string          `json:"name"`
	Address       string          `json:"address"`
	TotalArea     decimal.Decimal `json:"total_area"` // m², heated floor area of the whole building
	FuelType      string          `json:"fuel_type"`  // heating fuel, see emissions.FuelType
	IsCondominium bool            `json:"is_condominium"`
	CreatedAt     time.Time       `json:"created_at"`

	// Populated by GetWithUnits
	Units []*Unit `json:"units,omitempty"`
}

// Unit is a rentable apartment or commercial unit inside a property
type Unit struct {
	ID               int64           `json:"id"`
	PropertyID       int64           `json:"property_id"`
	Label            string          `json:"label"` // e.g. "2. OG links"
	Area             decimal.Decimal `json:"area"`
	Occupants        int             `json:"occupants"`
	CoOwnershipMille decimal.Decimal `json:"co_ownership_mille"` // WEG only
	CreatedAt        time.Time       `json:"created_at"`
}

// UnitCount returns the number of units in the property
func (p *Property) UnitCount() int {
	return len(p.Units)
}

// UnitByID finds a unit of the property
func (p *Property) UnitByID(id int64) (*Unit, bool) {
	for _, u := range p.Units {
		if u.ID == id {
			return u, true
		}
	}
	return nil, false
}

// UnitArea returns the summed floor area of all units
func (p *Property) UnitArea() decimal.Decimal {
	sum := decimal.Zero
	for _, u := range p.Units {
		sum = sum.Add(u.Area)
	}
	return sum
}

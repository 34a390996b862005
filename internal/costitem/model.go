package costitem

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/nebenkosten/internal/apportion"
	"github.com/fkhayef/nebenkosten/internal/emissions"
)

// LineItem is one operating-cost position of a property for a period
type LineItem struct {
	ID            int64           `json:"id"`
	PropertyID    int64           `json:"property_id"`
	PeriodStart   time.Time       `json:"period_start"`
	PeriodEnd     time.Time       `json:"period_end"`
	Category      string          `json:"category"`
	Name          string          `json:"name"`
	Amount        decimal.Decimal `json:"amount"`
	Key           apportion.Key   `json:"key"`
	Apportionable bool            `json:"apportionable"`
	Citation      string          `json:"citation"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ToItem converts the line item into the apportionment engine's input
func (li *LineItem) ToItem() apportion.Item {
	return apportion.Item{
		Category: li.Category,
		Name:     li.Name,
		Total:    li.Amount,
		Key:      li.Key,
	}
}

// EmissionsRecord is the heating energy data of a property for a period
type EmissionsRecord struct {
	PropertyID    int64              `json:"property_id"`
	PeriodStart   time.Time          `json:"period_start"`
	PeriodEnd     time.Time          `json:"period_end"`
	FuelType      emissions.FuelType `json:"fuel_type"`
	Consumption   decimal.Decimal    `json:"consumption_kwh"`
	TotalFuelCost decimal.Decimal    `json:"total_fuel_cost"`
	HeatedArea    decimal.Decimal    `json:"heated_area"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// ToData converts the record into the emissions engine's input
func (e *EmissionsRecord) ToData() emissions.Data {
	return emissions.Data{
		FuelType:      e.FuelType,
		Consumption:   e.Consumption,
		TotalFuelCost: e.TotalFuelCost,
		HeatedArea:    e.HeatedArea,
	}
}

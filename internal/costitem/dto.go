package costitem

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/nebenkosten/internal/apportion"
	"github.com/fkhayef/nebenkosten/internal/calcerr"
	"github.com/fkhayef/nebenkosten/internal/emissions"
	"github.com/fkhayef/nebenkosten/internal/period"
)

// LineItemRequest represents the request body for creating or replacing a cost item.
// Key and Citation default to the catalog entry of the category.
type LineItemRequest struct {
	PropertyID  int64           `json:"property_id" validate:"required"`
	PeriodStart string          `json:"period_start" validate:"required" example:"2023-01-01"`
	PeriodEnd   string          `json:"period_end" validate:"required" example:"2023-12-31"`
	Category    string          `json:"category" validate:"required" example:"property_tax"`
	Name        string          `json:"name,omitempty" example:"Grundsteuer 2023"`
	Amount      decimal.Decimal `json:"amount" validate:"required,gte=0"`
	Key         string          `json:"key,omitempty" enums:"area,persons,units,consumption,co_ownership"`
	Citation    string          `json:"citation,omitempty"`
}

// ToModel validates the request and converts it into a LineItem
func (r *LineItemRequest) ToModel() (*LineItem, error) {
	if r.PropertyID <= 0 {
		return nil, calcerr.Invalid("property_id", "is required")
	}
	p, err := period.Parse(r.PeriodStart, r.PeriodEnd)
	if err != nil {
		return nil, err
	}
	category := strings.TrimSpace(r.Category)
	if category == "" {
		return nil, calcerr.Invalid("category", "is required")
	}
	if r.Amount.IsNegative() {
		return nil, calcerr.Invalid("amount", "must not be negative")
	}

	li := &LineItem{
		PropertyID:  r.PropertyID,
		PeriodStart: p.Start,
		PeriodEnd:   p.End,
		Category:    category,
		Name:        strings.TrimSpace(r.Name),
		Amount:      r.Amount,
		Citation:    r.Citation,
	}
	if r.Key != "" {
		key, err := apportion.ParseKey(r.Key)
		if err != nil {
			return nil, err
		}
		li.Key = key
	}
	return li, nil
}

// EmissionsRequest represents the request body for recording heating data
type EmissionsRequest struct {
	PropertyID    int64           `json:"property_id" validate:"required"`
	PeriodStart   string          `json:"period_start" example:"2023-01-01"`
	PeriodEnd     string          `json:"period_end" example:"2023-12-31"`
	FuelType      string          `json:"fuel_type" example:"gas"`
	Consumption   decimal.Decimal `json:"consumption_kwh"`
	TotalFuelCost decimal.Decimal `json:"total_fuel_cost"`
	HeatedArea    decimal.Decimal `json:"heated_area"`
}

// ToModel parses the period and converts the request into an EmissionsRecord.
// Value ranges are checked by the emissions engine.
func (r *EmissionsRequest) ToModel() (*EmissionsRecord, error) {
	if r.PropertyID <= 0 {
		return nil, calcerr.Invalid("property_id", "is required")
	}
	p, err := period.Parse(r.PeriodStart, r.PeriodEnd)
	if err != nil {
		return nil, err
	}
	return &EmissionsRecord{
		PropertyID:    r.PropertyID,
		PeriodStart:   p.Start,
		PeriodEnd:     p.End,
		FuelType:      emissions.FuelType(r.FuelType),
		Consumption:   r.Consumption,
		TotalFuelCost: r.TotalFuelCost,
		HeatedArea:    r.HeatedArea,
	}, nil
}

// LineItemResponse represents the response for a cost item
type LineItemResponse struct {
	ID            int64           `json:"id"`
	PropertyID    int64           `json:"property_id"`
	PeriodStart   string          `json:"period_start"`
	PeriodEnd     string          `json:"period_end"`
	Category      string          `json:"category"`
	Name          string          `json:"name"`
	Amount        decimal.Decimal `json:"amount"`
	Key           string          `json:"key"`
	Apportionable bool            `json:"apportionable"`
	Citation      string          `json:"citation,omitempty"`
	CreatedAt     string          `json:"created_at"`
}

// EmissionsResponse is the stored heating data together with the split it yields
type EmissionsResponse struct {
	Record *EmissionsRecord `json:"record"`
	Split  *emissions.Split `json:"split"`
}

// ToResponse converts a LineItem model to a LineItemResponse DTO
func (li *LineItem) ToResponse() *LineItemResponse {
	return &LineItemResponse{
		ID:            li.ID,
		PropertyID:    li.PropertyID,
		PeriodStart:   li.PeriodStart.Format(period.Layout),
		PeriodEnd:     li.PeriodEnd.Format(period.Layout),
		Category:      li.Category,
		Name:          li.Name,
		Amount:        li.Amount,
		Key:           string(li.Key),
		Apportionable: li.Apportionable,
		Citation:      li.Citation,
		CreatedAt:     li.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

package tenant

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/nebenkosten/internal/calcerr"
	"github.com/fkhayef/nebenkosten/internal/period"
)

// TenantRequest represents the request body for creating or replacing a tenant
type TenantRequest struct {
	PropertyID        int64           `json:"property_id" validate:"required"`
	UnitID            int64           `json:"unit_id" validate:"required"`
	Name              string          `json:"name" validate:"required,max=200"`
	Email             string          `json:"email" validate:"omitempty,email"`
	MoveIn            string          `json:"move_in" validate:"required" example:"2023-01-01"`
	MoveOut           string          `json:"move_out,omitempty" example:"2023-06-30"`
	MonthlyPrepayment decimal.Decimal `json:"monthly_prepayment"`
	Persons           *int            `json:"persons,omitempty"`
}

// ToModel validates the request and converts it into a Tenant
func (r *TenantRequest) ToModel() (*Tenant, error) {
	if r.PropertyID <= 0 {
		return nil, calcerr.Invalid("property_id", "is required")
	}
	if r.UnitID <= 0 {
		return nil, calcerr.Invalid("unit_id", "is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return nil, calcerr.Invalid("name", "is required")
	}
	if r.MonthlyPrepayment.IsNegative() {
		return nil, calcerr.Invalid("monthly_prepayment", "must not be negative")
	}
	if r.Persons != nil && *r.Persons < 0 {
		return nil, calcerr.Invalid("persons", "must not be negative")
	}

	moveIn, err := period.ParseDate("move_in", r.MoveIn)
	if err != nil {
		return nil, err
	}

	t := &Tenant{
		PropertyID:        r.PropertyID,
		UnitID:            r.UnitID,
		Name:              strings.TrimSpace(r.Name),
		Email:             r.Email,
		MoveIn:            moveIn,
		MonthlyPrepayment: r.MonthlyPrepayment,
		Persons:           r.Persons,
	}

	if r.MoveOut != "" {
		moveOut, err := period.ParseDate("move_out", r.MoveOut)
		if err != nil {
			return nil, err
		}
		if moveOut.Before(moveIn) {
			return nil, calcerr.Invalid("move_out", "must not be before move_in")
		}
		t.MoveOut = &moveOut
	}

	return t, nil
}

// ReadingsRequest represents the request body for recording meter readings
type ReadingsRequest struct {
	PeriodStart string                     `json:"period_start" example:"2023-01-01"`
	PeriodEnd   string                     `json:"period_end" example:"2023-12-31"`
	Values      map[string]decimal.Decimal `json:"values"`
}

// ToModel validates the request and converts it into Readings
func (r *ReadingsRequest) ToModel(tenantID int64) (*Readings, error) {
	p, err := period.Parse(r.PeriodStart, r.PeriodEnd)
	if err != nil {
		return nil, err
	}
	if len(r.Values) == 0 {
		return nil, calcerr.Invalid("values", "at least one reading is required")
	}
	for category, v := range r.Values {
		if v.IsNegative() {
			return nil, calcerr.Invalid("values."+category, "must not be negative")
		}
	}
	return &Readings{TenantID: tenantID, PeriodStart: p.Start, PeriodEnd: p.End, Values: r.Values}, nil
}

// TenantResponse represents the response for a single tenant
type TenantResponse struct {
	ID                int64           `json:"id"`
	PropertyID        int64           `json:"property_id"`
	UnitID            int64           `json:"unit_id"`
	Name              string          `json:"name"`
	Email             string          `json:"email,omitempty"`
	MoveIn            string          `json:"move_in"`
	MoveOut           string          `json:"move_out,omitempty"`
	MonthlyPrepayment decimal.Decimal `json:"monthly_prepayment"`
	Persons           *int            `json:"persons,omitempty"`
	CreatedAt         string          `json:"created_at"`
}

// ToResponse converts a Tenant model to a TenantResponse DTO
func (t *Tenant) ToResponse() *TenantResponse {
	resp := &TenantResponse{
		ID:                t.ID,
		PropertyID:        t.PropertyID,
		UnitID:            t.UnitID,
		Name:              t.Name,
		Email:             t.Email,
		MoveIn:            t.MoveIn.Format(period.Layout),
		MonthlyPrepayment: t.MonthlyPrepayment,
		Persons:           t.Persons,
		CreatedAt:         t.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if t.MoveOut != nil {
		resp.MoveOut = t.MoveOut.Format(period.Layout)
	}
	return resp
}

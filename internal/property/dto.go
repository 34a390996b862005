package property

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/nebenkosten/internal/calcerr"
)

// CreatePropertyRequest represents the request to create a property
type CreatePropertyRequest struct {
	Name          string          `json:"name" validate:"required,min=1,max=200"`
	Address       string          `json:"address" validate:"required"`
	TotalArea     decimal.Decimal `json:"total_area" validate:"required,gt=0"`
	FuelType      string          `json:"fuel_type" validate:"required"`
	IsCondominium bool            `json:"is_condominium"`
}

// UpdatePropertyRequest represents the request to update a property
type UpdatePropertyRequest struct {
	Name      *string          `json:"name,omitempty"`
	Address   *string          `json:"address,omitempty"`
	TotalArea *decimal.Decimal `json:"total_area,omitempty"`
	FuelType  *string          `json:"fuel_type,omitempty"`
}

// UnitRequest represents the request to add or replace a unit
type UnitRequest struct {
	Label            string          `json:"label" validate:"required"`
	Area             decimal.Decimal `json:"area" validate:"required,gt=0"`
	Occupants        int             `json:"occupants" validate:"gte=0"`
	CoOwnershipMille decimal.Decimal `json:"co_ownership_mille"`
}

// Validate checks the required fields of a create request
func (r *CreatePropertyRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return calcerr.Invalid("name", "is required")
	}
	if !r.TotalArea.IsPositive() {
		return calcerr.Invalid("total_area", "must be positive")
	}
	if r.FuelType == "" {
		return calcerr.Invalid("fuel_type", "is required")
	}
	return nil
}

// Validate checks the fields present in an update request
func (r *UpdatePropertyRequest) Validate() error {
	if r.TotalArea != nil && !r.TotalArea.IsPositive() {
		return calcerr.Invalid("total_area", "must be positive")
	}
	return nil
}

// Validate checks a unit request
func (r *UnitRequest) Validate() error {
	if strings.TrimSpace(r.Label) == "" {
		return calcerr.Invalid("label", "is required")
	}
	if !r.Area.IsPositive() {
		return calcerr.Invalid("area", "must be positive")
	}
	if r.Occupants < 0 {
		return calcerr.Invalid("occupants", "must not be negative")
	}
	if r.CoOwnershipMille.IsNegative() {
		return calcerr.Invalid("co_ownership_mille", "must not be negative")
	}
	return nil
}

// PropertyResponse represents the response for a property
type PropertyResponse struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Address       string          `json:"address"`
	TotalArea     decimal.Decimal `json:"total_area"`
	FuelType      string          `json:"fuel_type"`
	IsCondominium bool            `json:"is_condominium"`
	UnitCount     int             `json:"unit_count"`
	CreatedAt     string          `json:"created_at"`
	Units         []*UnitResponse `json:"units,omitempty"`
}

// UnitResponse represents a unit in a property response
type UnitResponse struct {
	ID               int64           `json:"id"`
	Label            string          `json:"label"`
	Area             decimal.Decimal `json:"area"`
	Occupants        int             `json:"occupants"`
	CoOwnershipMille decimal.Decimal `json:"co_ownership_mille"`
}

// ToResponse converts a Property model to a PropertyResponse DTO
func (p *Property) ToResponse() *PropertyResponse {
	resp := &PropertyResponse{
		ID:            p.ID,
		Name:          p.Name,
		Address:       p.Address,
		TotalArea:     p.TotalArea,
		FuelType:      p.FuelType,
		IsCondominium: p.IsCondominium,
		UnitCount:     p.UnitCount(),
		CreatedAt:     p.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if len(p.Units) > 0 {
		resp.Units = make([]*UnitResponse, len(p.Units))
		for i, u := range p.Units {
			resp.Units[i] = u.ToResponse()
		}
	}
	return resp
}

// ToResponse converts a Unit model to a UnitResponse DTO
func (u *Unit) ToResponse() *UnitResponse {
	return &UnitResponse{
		ID:               u.ID,
		Label:            u.Label,
		Area:             u.Area,
		Occupants:        u.Occupants,
		CoOwnershipMille: u.CoOwnershipMille,
	}
}

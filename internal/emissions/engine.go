// Package emissions implements the CO2 cost split between landlord and
// tenant (CO2KostAufG, Stufenmodell for residential buildings).
//
// The heating carbon intensity of a building is
//
//	intensity = consumption_kWh * fuelFactor / heatedArea   [kg CO2/m²/a]
//
// and selects one of the tiers of the split table. The tier's percentages
// are applied to the period's total fuel cost.
package emissions

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/nebenkosten/internal/calcerr"
	"github.com/fkhayef/nebenkosten/internal/rules"
)

// intensityScale is the precision of the reported intensity. Tiers are
// resolved on the exact value.
const intensityScale = 6

// FuelType identifies a heating energy carrier
type FuelType string

const (
	FuelGas          FuelType = "gas"
	FuelHeatingOil   FuelType = "heating_oil"
	FuelLiquefiedGas FuelType = "liquefied_gas"
	FuelDistrictHeat FuelType = "district_heat"
	FuelPellets      FuelType = "pellets"
	FuelHeatPump     FuelType = "heat_pump"
)

var hundred = decimal.NewFromInt(100)

// Data is a building's heating input for one period
type Data struct {
	FuelType      FuelType        `json:"fuel_type"`
	Consumption   decimal.Decimal `json:"consumption_kwh"`
	TotalFuelCost decimal.Decimal `json:"total_fuel_cost"`
	HeatedArea    decimal.Decimal `json:"heated_area"`
}

// Split is the outcome of applying the tier table to one building
type Split struct {
	FuelType        FuelType        `json:"fuel_type"`
	Factor          decimal.Decimal `json:"factor"`
	Intensity       decimal.Decimal `json:"intensity"`
	Tier            Tier            `json:"tier"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	TenantShare     decimal.Decimal `json:"tenant_share"`
	LandlordShare   decimal.Decimal `json:"landlord_share"`
	TenantPercent   int             `json:"tenant_percent"`
	LandlordPercent int             `json:"landlord_percent"`
}

// Engine resolves emission splits against one rule-set version
type Engine struct {
	version string
	factors map[FuelType]decimal.Decimal
	table   *Table
}

// NewEngine builds an engine from the fuel factors and tiers of rs
func NewEngine(rs *rules.RuleSet) (*Engine, error) {
	table, err := NewTable(rs.Tiers)
	if err != nil {
		return nil, err
	}
	factors := make(map[FuelType]decimal.Decimal, len(rs.FuelFactors))
	for name, f := range rs.FuelFactors {
		if f < 0 {
			return nil, fmt.Errorf("emissions: fuel factor for %s is negative", name)
		}
		factors[FuelType(name)] = decimal.NewFromFloat(f)
	}
	return &Engine{version: rs.Version, factors: factors, table: table}, nil
}

// Version returns the rule-set version in use
func (e *Engine) Version() string {
	return e.version
}

// Factor returns the kg CO2/kWh factor for fuel
func (e *Engine) Factor(fuel FuelType) (decimal.Decimal, error) {
	f, ok := e.factors[fuel]
	if !ok {
		return decimal.Zero, calcerr.Invalid("fuel_type", "unknown fuel type %q", string(fuel))
	}
	return f, nil
}

// FuelTypes lists the fuel types known to the rule set, sorted by name
func (e *Engine) FuelTypes() []FuelType {
	out := make([]FuelType, 0, len(e.factors))
	for f := range e.factors {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Tiers returns the tier table
func (e *Engine) Tiers() []Tier {
	return e.table.Tiers()
}

// Intensity computes kg CO2 per m² and year after validating data,
// rounded for display
func (e *Engine) Intensity(data Data) (decimal.Decimal, error) {
	emitted, err := e.emitted(data)
	if err != nil {
		return decimal.Zero, err
	}
	return emitted.DivRound(data.HeatedArea, intensityScale), nil
}

// emitted returns the building's annual kg CO2
func (e *Engine) emitted(data Data) (decimal.Decimal, error) {
	if err := validate(data); err != nil {
		return decimal.Zero, err
	}
	factor, err := e.Factor(data.FuelType)
	if err != nil {
		return decimal.Zero, err
	}
	return data.Consumption.Mul(factor), nil
}

// ComputeSplit resolves the building's tier and splits the total fuel cost.
// The tenant share is rounded to cents and the landlord share is the rest,
// so both always add up to the total.
func (e *Engine) ComputeSplit(data Data) (*Split, error) {
	emitted, err := e.emitted(data)
	if err != nil {
		return nil, err
	}
	tier, err := e.table.ResolveRatio(emitted, data.HeatedArea)
	if err != nil {
		return nil, err
	}
	intensity := emitted.DivRound(data.HeatedArea, intensityScale)
	factor, _ := e.Factor(data.FuelType)

	total := data.TotalFuelCost.Round(2)
	tenant := total.Mul(decimal.NewFromInt(int64(tier.TenantPercent))).Div(hundred).Round(2)

	return &Split{
		FuelType:        data.FuelType,
		Factor:          factor,
		Intensity:       intensity,
		Tier:            tier,
		TotalCost:       total,
		TenantShare:     tenant,
		LandlordShare:   total.Sub(tenant),
		TenantPercent:   tier.TenantPercent,
		LandlordPercent: tier.LandlordPercent,
	}, nil
}

func validate(data Data) error {
	if data.Consumption.IsNegative() {
		return calcerr.Invalid("consumption_kwh", "must not be negative, got %s", data.Consumption.String())
	}
	if data.TotalFuelCost.IsNegative() {
		return calcerr.Invalid("total_fuel_cost", "must not be negative, got %s", data.TotalFuelCost.String())
	}
	if !data.HeatedArea.IsPositive() {
		return calcerr.Invalid("heated_area", "must be positive, got %s", data.HeatedArea.String())
	}
	return nil
}

package settlement

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/nebenkosten/internal/apportion"
	"github.com/fkhayef/nebenkosten/internal/calcerr"
	"github.com/fkhayef/nebenkosten/internal/catalog"
	"github.com/fkhayef/nebenkosten/internal/costitem"
	"github.com/fkhayef/nebenkosten/internal/emissions"
	"github.com/fkhayef/nebenkosten/internal/period"
	"github.com/fkhayef/nebenkosten/internal/tenant"
)

// emissionsMeterCategory is the reading category measured when the
// tenant-borne carbon cost is distributed by consumption
const emissionsMeterCategory = "heating"

const (
	co2LineName     = "CO2-Kosten (Mieteranteil)"
	co2LineCitation = "§§ 5, 6 CO2KostAufG"
)

// Options tune a calculator
type Options struct {
	// ProrateByOccupancy weights every allocation measure by the share of
	// the period the tenant occupied the unit. Off by default: measures
	// are taken from the recorded unit data for the whole period and only
	// prepayments follow the occupancy.
	ProrateByOccupancy bool
}

// Calculator combines line-item allocations and the carbon cost split into
// per-tenant settlements. It holds no mutable state.
type Calculator struct {
	catalog     *catalog.Catalog
	apportioner *apportion.Engine
	emissions   *emissions.Engine
	opts        Options
}

// NewCalculator creates a calculator over the given engines
func NewCalculator(cat *catalog.Catalog, apportioner *apportion.Engine, em *emissions.Engine, opts Options) *Calculator {
	if apportioner == nil {
		apportioner = apportion.NewEngine(nil)
	}
	return &Calculator{catalog: cat, apportioner: apportioner, emissions: em, opts: opts}
}

// Options returns the calculator's options
func (c *Calculator) Options() Options {
	return c.opts
}

// tenancy pairs a tenant with the data derived for this run
type tenancy struct {
	tenant    *tenant.Tenant
	unitLabel string
	occupied  period.Period
	view      apportion.Tenancy
}

// Settle runs the settlement. Either every tenant gets a result or an
// error is returned; sub-engine errors are passed through unchanged.
// The returned run carries neither ID nor creation time.
func (c *Calculator) Settle(in Input) (*Run, error) {
	p, err := period.New(in.Period.Start, in.Period.End)
	if err != nil {
		return nil, err
	}
	if err := c.validateProperty(in); err != nil {
		return nil, err
	}

	tenancies, err := c.tenancies(in, p)
	if err != nil {
		return nil, err
	}
	if len(tenancies) == 0 {
		return nil, &calcerr.AllocationError{Item: in.Property.Name, Key: "-", Reason: "no tenancy overlaps the period " + p.String()}
	}
	views := make([]apportion.Tenancy, len(tenancies))
	for i, t := range tenancies {
		views[i] = t.view
	}

	run := &Run{
		PropertyID:   in.Property.ID,
		PropertyName: in.Property.Name,
		Period:       p,
		RulesVersion: c.catalog.Version(),
	}

	lines := make([][]LineAllocation, len(tenancies))
	apportioned := decimal.Zero

	// Step 1: line items
	for i, li := range in.Items {
		if li == nil {
			return nil, calcerr.Invalid(fmt.Sprintf("items[%d]", i), "missing cost item")
		}
		if li.PropertyID != 0 && li.PropertyID != in.Property.ID {
			return nil, calcerr.Invalid(fmt.Sprintf("items[%d].property_id", i), "item %q belongs to property %d", li.Name, li.PropertyID)
		}

		resolved, apportionable, err := c.resolve(li)
		if err != nil {
			return nil, err
		}
		if resolved.Amount.IsNegative() {
			return nil, calcerr.Invalid(fmt.Sprintf("items[%d].amount", i), "must not be negative, got %s", resolved.Amount.String())
		}
		if _, err := apportion.ParseKey(string(resolved.Key)); err != nil {
			return nil, calcerr.Invalid(fmt.Sprintf("items[%d].key", i), "unsupported apportionment key %q", string(resolved.Key))
		}
		if !apportionable {
			run.Excluded = append(run.Excluded, li)
			continue
		}

		alloc, err := c.apportioner.Allocate(resolved.ToItem(), views)
		if err != nil {
			return nil, err
		}
		appendLines(lines, alloc, resolved.Category, resolved.Name, resolved.Citation)
		apportioned = apportioned.Add(alloc.Sum())
	}

	// Step 2: tenant-borne carbon cost
	if in.Emissions != nil {
		if c.emissions == nil {
			return nil, calcerr.Invalid("emissions", "no emission rules configured")
		}
		split, err := c.emissions.ComputeSplit(*in.Emissions)
		if err != nil {
			return nil, err
		}
		run.Emissions = split

		key := apportion.KeyArea
		if apportion.HasReadings(emissionsMeterCategory, views) {
			key = apportion.KeyConsumption
		}
		alloc, err := c.apportioner.Allocate(apportion.Item{
			Category: emissionsMeterCategory,
			Name:     co2LineName,
			Total:    split.TenantShare,
			Key:      key,
		}, views)
		if err != nil {
			return nil, err
		}
		appendLines(lines, alloc, catalog.CO2Category, co2LineName, co2LineCitation)
		apportioned = apportioned.Add(alloc.Sum())
	}
	run.ApportionedTotal = apportioned

	// Steps 3 to 5: totals, prepayments, netting
	run.Results = make([]Result, len(tenancies))
	for i, t := range tenancies {
		res, err := c.result(in, t, lines[i])
		if err != nil {
			return nil, err
		}
		run.Results[i] = res
	}

	return run, nil
}

// validateProperty checks the data-entry invariants the engines rely on
func (c *Calculator) validateProperty(in Input) error {
	if in.Property == nil {
		return calcerr.Invalid("property", "is required")
	}
	if !in.Property.TotalArea.IsPositive() {
		return calcerr.Invalid("property.total_area", "must be positive")
	}
	if in.Property.UnitArea().GreaterThan(in.Property.TotalArea) {
		return calcerr.Invalid("property.units",
			"unit areas sum to %s m² but the property has %s m²",
			in.Property.UnitArea().String(), in.Property.TotalArea.String())
	}
	return nil
}

// tenancies selects the tenants overlapping p, ordered by tenant ID, and
// derives their measures from the recorded unit data
func (c *Calculator) tenancies(in Input, p period.Period) ([]tenancy, error) {
	sorted := make([]*tenant.Tenant, 0, len(in.Tenants))
	for i, t := range in.Tenants {
		if t == nil {
			return nil, calcerr.Invalid(fmt.Sprintf("tenants[%d]", i), "missing tenant")
		}
		sorted = append(sorted, t)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var out []tenancy
	for _, t := range sorted {
		field := func(name string) string { return fmt.Sprintf("tenants[%d].%s", t.ID, name) }

		if t.MoveOut != nil && t.MoveOut.Before(t.MoveIn) {
			return nil, calcerr.Invalid(field("move_out"), "must not be before move_in")
		}
		occupied, ok := occupancy(p, t)
		if !ok {
			continue
		}

		unit, ok := in.Property.UnitByID(t.UnitID)
		if !ok {
			return nil, calcerr.Invalid(field("unit_id"), "unit %d is not part of property %d", t.UnitID, in.Property.ID)
		}

		persons := unit.Occupants
		if t.Persons != nil {
			if *t.Persons < 0 {
				return nil, calcerr.Invalid(field("persons"), "must not be negative")
			}
			if *t.Persons > unit.Occupants {
				return nil, calcerr.Invalid(field("persons"), "%d exceeds the %d occupants of unit %s", *t.Persons, unit.Occupants, unit.Label)
			}
			persons = *t.Persons
		}

		view := apportion.Tenancy{
			TenantID:         t.ID,
			Label:            unit.Label,
			Area:             unit.Area,
			Persons:          persons,
			Units:            1,
			CoOwnershipMille: unit.CoOwnershipMille,
			Readings:         in.Readings[t.ID],
		}
		if c.opts.ProrateByOccupancy {
			view.Weight = occupancyWeight(p, occupied)
		}

		out = append(out, tenancy{tenant: t, unitLabel: unit.Label, occupied: occupied, view: view})
	}
	return out, nil
}

// resolve completes an item from the catalog without mutating it and
// reports whether it may be passed on to tenants
func (c *Calculator) resolve(li *costitem.LineItem) (*costitem.LineItem, bool, error) {
	if li.Category == catalog.CO2Category {
		return nil, false, calcerr.Invalid("category", "%q is derived from the emissions data and cannot be booked", li.Category)
	}

	out := *li
	cat, known := c.catalog.Lookup(li.Category)
	if !known {
		if out.Key == "" {
			if _, err := c.catalog.DefaultKey(li.Category); err != nil {
				return nil, false, err
			}
		}
		return &out, li.Apportionable, nil
	}

	if out.Key == "" {
		out.Key = cat.DefaultKey
	}
	if out.Citation == "" {
		out.Citation = cat.Citation
	}
	if out.Name == "" {
		out.Name = cat.Name
	}
	return &out, cat.Apportionable, nil
}

func appendLines(lines [][]LineAllocation, alloc *apportion.Allocation, category, name, citation string) {
	total := alloc.Item.Total.Round(2)
	for i, share := range alloc.Shares {
		lines[i] = append(lines[i], LineAllocation{
			Category:    category,
			Name:        name,
			Citation:    citation,
			Key:         alloc.Item.Key,
			LineTotal:   total,
			Measure:     share.Measure,
			MeasureBase: alloc.Base,
			Share:       share.Amount,
		})
	}
}

func (c *Calculator) result(in Input, t tenancy, lines []LineAllocation) (Result, error) {
	field := func(name string) string { return fmt.Sprintf("prepayments[%d].%s", t.tenant.ID, name) }

	monthly := t.tenant.MonthlyPrepayment
	override := 0
	if pp, ok := in.Prepayments[t.tenant.ID]; ok {
		monthly = pp.MonthlyAmount
		override = pp.Months
	}
	if monthly.IsNegative() {
		return Result{}, calcerr.Invalid(field("monthly_amount"), "must not be negative")
	}
	if override < 0 {
		return Result{}, calcerr.Invalid(field("months"), "must not be negative")
	}

	months := prepaymentMonths(override, occupiedMonths(t.occupied))
	prepaid := monthly.Mul(decimal.NewFromInt(int64(months))).Round(2)

	allocated := decimal.Zero
	for _, l := range lines {
		allocated = allocated.Add(l.Share)
	}
	if lines == nil {
		lines = []LineAllocation{}
	}

	return Result{
		TenantID:         t.tenant.ID,
		TenantName:       t.tenant.Name,
		UnitLabel:        t.unitLabel,
		Occupancy:        t.occupied,
		Lines:            lines,
		TotalAllocated:   allocated,
		MonthlyPrepay:    monthly,
		PrepaymentMonths: months,
		Prepayments:      prepaid,
		Difference:       allocated.Sub(prepaid),
	}, nil
}

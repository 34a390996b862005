package settlement

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/nebenkosten/internal/apportion"
	"github.com/fkhayef/nebenkosten/internal/calcerr"
	"github.com/fkhayef/nebenkosten/internal/catalog"
	"github.com/fkhayef/nebenkosten/internal/costitem"
	"github.com/fkhayef/nebenkosten/internal/emissions"
	"github.com/fkhayef/nebenkosten/internal/period"
	"github.com/fkhayef/nebenkosten/internal/property"
	"github.com/fkhayef/nebenkosten/internal/rules"
	"github.com/fkhayef/nebenkosten/internal/tenant"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(s string) time.Time {
	t, err := time.Parse(period.Layout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func intPtr(i int) *int { return &i }

func newCalculator(t *testing.T, opts Options) *Calculator {
	t.Helper()
	rs, err := rules.Default()
	require.NoError(t, err)
	cat, err := catalog.New(rs)
	require.NoError(t, err)
	em, err := emissions.NewEngine(rs)
	require.NoError(t, err)
	return NewCalculator(cat, apportion.NewEngine(nil), em, opts)
}

func year2023(t *testing.T) period.Period {
	t.Helper()
	p, err := period.New(date("2023-01-01"), date("2023-12-31"))
	require.NoError(t, err)
	return p
}

// building with 500 m² and three units, one tenant each
func threeUnitInput(t *testing.T) Input {
	t.Helper()
	prop := &property.Property{
		ID:        1,
		Name:      "Lindenstraße 4",
		TotalArea: d("500"),
		Units: []*property.Unit{
			{ID: 11, PropertyID: 1, Label: "EG", Area: d("80"), Occupants: 2},
			{ID: 12, PropertyID: 1, Label: "1. OG", Area: d("180"), Occupants: 3},
			{ID: 13, PropertyID: 1, Label: "2. OG", Area: d("240"), Occupants: 4},
		},
	}
	tenants := []*tenant.Tenant{
		{ID: 101, PropertyID: 1, UnitID: 11, Name: "Becker", MoveIn: date("2020-01-01"), MonthlyPrepayment: d("100")},
		{ID: 102, PropertyID: 1, UnitID: 12, Name: "Schulz", MoveIn: date("2019-05-01"), MonthlyPrepayment: d("150")},
		{ID: 103, PropertyID: 1, UnitID: 13, Name: "Wagner", MoveIn: date("2018-09-01"), MonthlyPrepayment: d("200")},
	}
	return Input{
		Property: prop,
		Tenants:  tenants,
		Items: []*costitem.LineItem{
			{PropertyID: 1, Category: "heating", Name: "Heizkosten", Amount: d("2000"), Key: apportion.KeyArea},
		},
		Period: year2023(t),
	}
}

func TestSettle_AreaSplit(t *testing.T) {
	c := newCalculator(t, Options{})

	run, err := c.Settle(threeUnitInput(t))
	require.NoError(t, err)
	require.Len(t, run.Results, 3)

	res, ok := run.ResultFor(101)
	require.True(t, ok)
	require.Len(t, res.Lines, 1)
	assert.Equal(t, "320", res.Lines[0].Share.String())
	assert.Equal(t, "500", res.Lines[0].MeasureBase.String())
	assert.Equal(t, "§ 2 Nr. 4 BetrKV, §§ 7, 8 HeizkostenV", res.Lines[0].Citation)
	assert.Equal(t, "320", res.TotalAllocated.String())
	assert.Equal(t, "2023.1", run.RulesVersion)
}

func TestSettle_Netting(t *testing.T) {
	c := newCalculator(t, Options{})
	in := Input{
		Property: &property.Property{
			ID: 2, Name: "Am Markt 1", TotalArea: d("200"),
			Units: []*property.Unit{
				{ID: 21, Label: "links", Area: d("100"), Occupants: 1},
				{ID: 22, Label: "rechts", Area: d("100"), Occupants: 1},
			},
		},
		Tenants: []*tenant.Tenant{
			{ID: 1, UnitID: 21, Name: "Fischer", MoveIn: date("2021-01-01"), MonthlyPrepayment: d("200")},
			{ID: 2, UnitID: 22, Name: "Weber", MoveIn: date("2021-01-01"), MonthlyPrepayment: d("150")},
		},
		Items: []*costitem.LineItem{
			{Category: "property_tax", Amount: d("1200")},
			{Category: "insurance", Amount: d("2500")},
		},
		Period: year2023(t),
	}

	run, err := c.Settle(in)
	require.NoError(t, err)

	res, ok := run.ResultFor(1)
	require.True(t, ok)
	assert.Equal(t, "1850", res.TotalAllocated.String())
	assert.Equal(t, 12, res.PrepaymentMonths)
	assert.Equal(t, "2400", res.Prepayments.String())
	assert.Equal(t, "-550", res.Difference.String())
	assert.False(t, res.Owes())

	other, _ := run.ResultFor(2)
	assert.Equal(t, "50", other.Difference.String())
	assert.True(t, other.Owes())
}

func TestSettle_AllPersonsZero(t *testing.T) {
	c := newCalculator(t, Options{})
	in := threeUnitInput(t)
	for _, tn := range in.Tenants {
		tn.Persons = intPtr(0)
	}
	in.Items = append(in.Items, &costitem.LineItem{Category: "street_cleaning_waste", Amount: d("600"), Key: apportion.KeyPersons})

	run, err := c.Settle(in)
	assert.Nil(t, run)
	require.ErrorIs(t, err, calcerr.ErrAllocation)

	var allocErr *calcerr.AllocationError
	require.ErrorAs(t, err, &allocErr)
	assert.Equal(t, string(apportion.KeyPersons), allocErr.Key)
}

func TestSettle_Idempotent(t *testing.T) {
	c := newCalculator(t, Options{})
	in := threeUnitInput(t)
	in.Items = append(in.Items,
		&costitem.LineItem{Category: "garden", Amount: d("333.33")},
		&costitem.LineItem{Category: "street_cleaning_waste", Amount: d("450")},
	)

	first, err := c.Settle(in)
	require.NoError(t, err)
	second, err := c.Settle(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSettle_ConservesItemTotals(t *testing.T) {
	c := newCalculator(t, Options{})
	in := threeUnitInput(t)
	in.Items = append(in.Items,
		&costitem.LineItem{Category: "garden", Amount: d("333.33")},
		&costitem.LineItem{Category: "street_cleaning_waste", Amount: d("100")},
		&costitem.LineItem{Category: "broadband", Amount: d("0.01")},
	)

	run, err := c.Settle(in)
	require.NoError(t, err)

	want := d("2000").Add(d("333.33")).Add(d("100")).Add(d("0.01"))
	assert.True(t, want.Equal(run.TotalAllocated()), "got %s", run.TotalAllocated())
	assert.True(t, want.Equal(run.ApportionedTotal))

	for _, res := range run.Results {
		sum := decimal.Zero
		for _, l := range res.Lines {
			sum = sum.Add(l.Share)
		}
		assert.True(t, sum.Equal(res.TotalAllocated))
		assert.True(t, res.Difference.Equal(res.TotalAllocated.Sub(res.Prepayments)))
	}
}

func TestSettle_ExcludesNonApportionable(t *testing.T) {
	c := newCalculator(t, Options{})
	in := threeUnitInput(t)
	in.Items = append(in.Items,
		&costitem.LineItem{Category: "administration", Name: "Hausverwaltung", Amount: d("900")},
		// the catalog flag wins over the stored one
		&costitem.LineItem{Category: "maintenance", Name: "Dachreparatur", Amount: d("4000"), Apportionable: true},
	)

	run, err := c.Settle(in)
	require.NoError(t, err)
	require.Len(t, run.Excluded, 2)
	assert.Equal(t, "Hausverwaltung", run.Excluded[0].Name)
	assert.Equal(t, "2000", run.TotalAllocated().String())
	for _, res := range run.Results {
		assert.Len(t, res.Lines, 1)
	}
}

func TestSettle_OtherCosts(t *testing.T) {
	c := newCalculator(t, Options{})

	in := threeUnitInput(t)
	in.Items = []*costitem.LineItem{{Category: "roof_terrace", Name: "Dachterrasse", Amount: d("300"), Key: apportion.KeyUnits, Apportionable: true}}
	run, err := c.Settle(in)
	require.NoError(t, err)
	for _, res := range run.Results {
		assert.Equal(t, "100", res.TotalAllocated.String())
	}

	in.Items = []*costitem.LineItem{{Category: "roof_terrace", Amount: d("300"), Apportionable: true}}
	_, err = c.Settle(in)
	assert.ErrorIs(t, err, calcerr.ErrInvalidInput)

	in.Items = []*costitem.LineItem{{Category: catalog.CO2Category, Amount: d("300"), Key: apportion.KeyArea}}
	_, err = c.Settle(in)
	assert.ErrorIs(t, err, calcerr.ErrInvalidInput)
}

func TestSettle_MidYearMoveIn(t *testing.T) {
	c := newCalculator(t, Options{})
	in := threeUnitInput(t)
	in.Tenants[0].MoveIn = date("2023-07-15")

	run, err := c.Settle(in)
	require.NoError(t, err)

	res, _ := run.ResultFor(101)
	assert.Equal(t, 6, res.PrepaymentMonths)
	assert.Equal(t, "600", res.Prepayments.String())
	assert.Equal(t, "2023-07-15", res.Occupancy.Start.Format(period.Layout))
	// measures are not prorated unless configured
	assert.Equal(t, "320", res.TotalAllocated.String())
}

func TestSettle_PrepaymentOverride(t *testing.T) {
	c := newCalculator(t, Options{})
	in := threeUnitInput(t)
	in.Tenants[0].MoveOut = timePtr(date("2023-03-31"))
	in.Prepayments = map[int64]Prepayment{
		101: {MonthlyAmount: d("110"), Months: 12},
		102: {MonthlyAmount: d("160"), Months: 10},
	}

	run, err := c.Settle(in)
	require.NoError(t, err)

	moved, _ := run.ResultFor(101)
	assert.Equal(t, 3, moved.PrepaymentMonths)
	assert.Equal(t, "330", moved.Prepayments.String())

	partial, _ := run.ResultFor(102)
	assert.Equal(t, 10, partial.PrepaymentMonths)
	assert.Equal(t, "1600", partial.Prepayments.String())

	in.Prepayments = map[int64]Prepayment{101: {MonthlyAmount: d("-1")}}
	_, err = c.Settle(in)
	assert.ErrorIs(t, err, calcerr.ErrInvalidInput)
}

func TestSettle_ProrateByOccupancy(t *testing.T) {
	c := newCalculator(t, Options{ProrateByOccupancy: true})
	in := threeUnitInput(t)
	in.Tenants[0].MoveOut = timePtr(date("2023-12-30"))
	in.Tenants[1].MoveIn = date("2023-07-01")

	run, err := c.Settle(in)
	require.NoError(t, err)

	partial, _ := run.ResultFor(102)
	full, _ := run.ResultFor(103)
	// 180 m² for half the year against 240 m² for the full year
	ratio := partial.TotalAllocated.Div(full.TotalAllocated)
	assert.True(t, ratio.GreaterThan(d("0.35")) && ratio.LessThan(d("0.40")), "ratio %s", ratio)
	assert.Equal(t, "2000", run.TotalAllocated().String())
}

func TestSettle_SkipsTenantsOutsidePeriod(t *testing.T) {
	c := newCalculator(t, Options{})
	in := threeUnitInput(t)
	in.Tenants = append(in.Tenants, &tenant.Tenant{
		ID: 99, UnitID: 11, Name: "Vormieter", MoveIn: date("2015-01-01"), MoveOut: timePtr(date("2019-12-31")),
	})

	run, err := c.Settle(in)
	require.NoError(t, err)
	assert.Len(t, run.Results, 3)
	_, ok := run.ResultFor(99)
	assert.False(t, ok)
}

func TestSettle_OrdersResultsByTenantID(t *testing.T) {
	c := newCalculator(t, Options{})
	in := threeUnitInput(t)
	in.Tenants[0], in.Tenants[2] = in.Tenants[2], in.Tenants[0]

	run, err := c.Settle(in)
	require.NoError(t, err)
	assert.Equal(t, int64(101), run.Results[0].TenantID)
	assert.Equal(t, int64(103), run.Results[2].TenantID)
}

func TestSettle_InvalidInput(t *testing.T) {
	c := newCalculator(t, Options{})

	tests := []struct {
		name   string
		mutate func(*Input)
	}{
		{"no property", func(in *Input) { in.Property = nil }},
		{"unit areas exceed total", func(in *Input) { in.Property.TotalArea = d("400") }},
		{"persons exceed occupants", func(in *Input) { in.Tenants[0].Persons = intPtr(3) }},
		{"unknown unit", func(in *Input) { in.Tenants[0].UnitID = 77 }},
		{"negative item", func(in *Input) { in.Items[0].Amount = d("-5") }},
		{"item of other property", func(in *Input) { in.Items[0].PropertyID = 9 }},
		{"period too long", func(in *Input) { in.Period = period.Period{Start: date("2023-01-01"), End: date("2024-01-01")} }},
		{"move out before move in", func(in *Input) { in.Tenants[0].MoveOut = timePtr(date("2019-01-01")) }},
		{"consumption key without readings", func(in *Input) { in.Items[0].Key = apportion.KeyConsumption }},
		{"negative excluded item", func(in *Input) {
			in.Items = append(in.Items, &costitem.LineItem{Category: "administration", Name: "Hausverwaltung", Amount: d("-900")})
		}},
		{"excluded item with unknown key", func(in *Input) {
			in.Items = append(in.Items, &costitem.LineItem{Category: "administration", Name: "Hausverwaltung", Amount: d("900"), Key: "per_door"})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := threeUnitInput(t)
			tt.mutate(&in)
			run, err := c.Settle(in)
			assert.Nil(t, run)
			assert.ErrorIs(t, err, calcerr.ErrInvalidInput)
		})
	}
}

func TestSettle_NoTenancies(t *testing.T) {
	c := newCalculator(t, Options{})
	in := threeUnitInput(t)
	in.Tenants = nil

	_, err := c.Settle(in)
	assert.ErrorIs(t, err, calcerr.ErrAllocation)
}

func TestSettle_Emissions(t *testing.T) {
	c := newCalculator(t, Options{})
	data := &emissions.Data{
		FuelType:      emissions.FuelGas,
		Consumption:   d("50000"),
		TotalFuelCost: d("10000"),
		HeatedArea:    d("480"),
	}

	t.Run("area without readings", func(t *testing.T) {
		in := threeUnitInput(t)
		in.Emissions = data

		run, err := c.Settle(in)
		require.NoError(t, err)
		require.NotNil(t, run.Emissions)
		assert.Equal(t, 80, run.Emissions.TenantPercent)
		assert.Equal(t, "8000", run.Emissions.TenantShare.String())

		res, _ := run.ResultFor(101)
		require.Len(t, res.Lines, 2)
		co2 := res.Lines[1]
		assert.Equal(t, catalog.CO2Category, co2.Category)
		assert.Equal(t, apportion.KeyArea, co2.Key)
		assert.Equal(t, "1280", co2.Share.String())
		assert.Equal(t, "10000", run.ApportionedTotal.String())
	})

	t.Run("consumption with heating readings", func(t *testing.T) {
		in := threeUnitInput(t)
		in.Emissions = data
		in.Readings = map[int64]map[string]decimal.Decimal{
			101: {"heating": d("1")},
			102: {"heating": d("1")},
			103: {"heating": d("2")},
		}

		run, err := c.Settle(in)
		require.NoError(t, err)
		res, _ := run.ResultFor(103)
		co2 := res.Lines[1]
		assert.Equal(t, apportion.KeyConsumption, co2.Key)
		assert.Equal(t, "4000", co2.Share.String())
	})

	t.Run("invalid heating data", func(t *testing.T) {
		in := threeUnitInput(t)
		bad := *data
		bad.HeatedArea = decimal.Zero
		in.Emissions = &bad

		run, err := c.Settle(in)
		assert.Nil(t, run)
		assert.ErrorIs(t, err, calcerr.ErrInvalidInput)
	})
}

func TestOccupancyHelpers(t *testing.T) {
	p := year2023(t)

	occ, ok := p.Overlap(date("2023-07-15"), nil)
	require.True(t, ok)
	assert.Equal(t, 6, occupiedMonths(occ))
	assert.True(t, occupancyWeight(p, p).IsZero())
	assert.Equal(t, "0.4657534247", occupancyWeight(p, occ).StringFixed(10))

	assert.Equal(t, 6, prepaymentMonths(0, 6))
	assert.Equal(t, 6, prepaymentMonths(12, 6))
	assert.Equal(t, 4, prepaymentMonths(4, 6))
}

func timePtr(t time.Time) *time.Time { return &t }

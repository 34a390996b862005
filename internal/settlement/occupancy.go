package settlement

import (
	"github.com/shopspring/decimal"

	"github.com/fkhayef/nebenkosten/internal/period"
	"github.com/fkhayef/nebenkosten/internal/tenant"
)

// maxPrepaymentMonths caps the months of advance payments credited per run
const maxPrepaymentMonths = 12

// weightScale is the precision of occupancy weights
const weightScale = 10

// occupancy returns the part of p during which t rented its unit
func occupancy(p period.Period, t *tenant.Tenant) (period.Period, bool) {
	return p.Overlap(t.MoveIn, t.MoveOut)
}

// occupiedMonths counts the calendar months touched by the occupancy,
// capped at twelve. A tenant moving in on the 15th is credited the full
// month of move-in.
func occupiedMonths(occupied period.Period) int {
	m := occupied.Months()
	if m > maxPrepaymentMonths {
		m = maxPrepaymentMonths
	}
	return m
}

// occupancyWeight is the occupied share of the period in days. The full
// period yields the zero value, which the apportionment engine reads as
// an unweighted tenancy.
func occupancyWeight(p, occupied period.Period) decimal.Decimal {
	if occupied.Days() >= p.Days() {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(occupied.Days())).
		DivRound(decimal.NewFromInt(int64(p.Days())), weightScale)
}

// prepaymentMonths resolves the months of advance payment to credit: an
// explicit override is honored up to the occupied months
func prepaymentMonths(override, occupied int) int {
	if override <= 0 || override > occupied {
		return occupied
	}
	return override
}

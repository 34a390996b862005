package apportion

import "github.com/shopspring/decimal"

// DistributeResidual rounds exact shares to cents and assigns the leftover
// cents to the largest exact share. Ties go to the earliest index, so the
// result depends only on the input order.
//
// The returned amounts always sum to total rounded to cents.
func DistributeResidual(total decimal.Decimal, exact []decimal.Decimal) []decimal.Decimal {
	rounded := make([]decimal.Decimal, len(exact))
	if len(exact) == 0 {
		return rounded
	}

	sum := decimal.Zero
	largest := 0
	for i, x := range exact {
		rounded[i] = x.Round(2)
		sum = sum.Add(rounded[i])
		if x.GreaterThan(exact[largest]) {
			largest = i
		}
	}

	residual := total.Round(2).Sub(sum)
	if !residual.IsZero() {
		rounded[largest] = rounded[largest].Add(residual)
	}
	return rounded
}

package models

import "math"

// DeriveGrossProfit computes the gross profit for a report. When either
// operand is absent the result is 0.00 for display purposes; the caller
// must not persist it. With both operands present the result is
// round2(total - parts), which may be negative when costs exceed the
// estimate.
func DeriveGrossProfit(totalCost, partsCost *float64) float64 {
	if totalCost == nil || partsCost == nil {
		return 0
	}
	return Round2(*totalCost - *partsCost)
}

// Round2 rounds a currency amount to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

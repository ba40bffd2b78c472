package pnl

import "github.com/shopspring/decimal"

// FallbackPricer derives a per-unit price for items that carry no explicit
// price, given the trade's normalized side total and the number of
// non-currency units on that side.
type FallbackPricer func(sideTotal decimal.Decimal, units int64) decimal.Decimal

// EvenSplit spreads the side total evenly across every unit on that side.
// It is a heuristic: a trade of one expensive and one cheap item prices both
// at the midpoint.
func EvenSplit(sideTotal decimal.Decimal, units int64) decimal.Decimal {
	if units <= 0 {
		return decimal.Zero
	}
	return sideTotal.Div(decimal.NewFromInt(units))
}

// ZeroPrice disables price inference; unpriced units are still counted
func ZeroPrice(decimal.Decimal, int64) decimal.Decimal {
	return decimal.Zero
}

// Package core provides the domain types shared by the storage, report and
// sync layers: aggregation keys, transaction rows and money formatting.
//
// This file contains the exact-decimal money arithmetic. Row amounts arrive
// from the query layer as float64, but every rendered total is computed as a
// decimal reduction over those values so that cent-level drift cannot appear
// in the output.
package core

import (
	"github.com/shopspring/decimal"
)

// Sum reduces row amounts to an exact decimal total.
//
// decimal.NewFromFloat recovers the shortest decimal representation of each
// float, so a column of 19.99 entries sums to 59.97 and never to the binary
// artifact 59.96999999999999.
func Sum(amounts []float64) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	return total
}

// SumTransactions totals the amounts of a detail row set.
func SumTransactions(rows []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(decimal.NewFromFloat(r.Amount))
	}
	return total
}

// FormatAmount renders a decimal amount with the currency glyph and exactly
// two fraction digits.
func FormatAmount(d decimal.Decimal) string {
	return "¥" + d.StringFixed(2)
}

// FormatFloatAmount renders a single stored amount for display.
func FormatFloatAmount(a float64) string {
	return FormatAmount(decimal.NewFromFloat(a))
}

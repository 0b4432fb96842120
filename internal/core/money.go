// Package core holds the domain types shared by the extractor, the trend
// reporter and the service layer.
//
// This file contains helpers for summing and formatting decimal amounts.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrencySymbol prefixes formatted amounts when none is configured.
const DefaultCurrencySymbol = "₹"

// FormatAmount renders an amount with two decimals and the given symbol.
// Negative amounts keep the sign in front of the symbol (e.g. "-₹12.50").
//
// Examples:
//	FormatAmount(decimal.RequireFromString("50"), "$")    -> "$50.00"
//	FormatAmount(decimal.RequireFromString("-1.005"), "") -> "-1.01"
func FormatAmount(d decimal.Decimal, symbol string) string {
	if d.IsNegative() {
		return "-" + symbol + d.Neg().StringFixed(2)
	}
	return symbol + d.StringFixed(2)
}

// SumMonthly returns the grand total of a monthly series.
func SumMonthly(series []MonthlyTotal) decimal.Decimal {
	total := decimal.Zero
	for _, mt := range series {
		total = total.Add(mt.Amount)
	}
	return total
}

// NormalizeSymbol trims the configured currency symbol, falling back to the default.
func NormalizeSymbol(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultCurrencySymbol
	}
	return s
}

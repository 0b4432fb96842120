package sheets

import (
	"context"

	"invoiceinsights/internal/core"
)

// Ports for outbound adapters.
type (
	// MonthlyTotalsWriter exports the monthly series of a stored report.
	MonthlyTotalsWriter interface {
		AppendMonthlyTotals(ctx context.Context, reportID int64, totals []core.MonthlyTotal) (ref string, err error)
	}
)

// Row is one exported line: report id, month as YYYY-MM and the amount.
func Row(reportID int64, t core.MonthlyTotal) []any {
	return []any{reportID, t.Month.String(), t.Amount.StringFixed(2)}
}

// Rows converts a monthly series into export rows in the given order.
func Rows(reportID int64, totals []core.MonthlyTotal) [][]any {
	out := make([][]any, 0, len(totals))
	for _, t := range totals {
		out = append(out, Row(reportID, t))
	}
	return out
}

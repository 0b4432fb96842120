// Package trend compares consecutive months of an expense series and
// renders the comparisons as short sentences.
package trend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"invoiceinsights/internal/core"
)

// ErrInsufficientData is returned when the series has fewer than two months,
// so there is nothing to compare.
var ErrInsufficientData = errors.New("not enough data to determine trends")

var hundred = decimal.NewFromInt(100)

// keywords in a user prompt that ask for trend information.
var trendKeywords = []string{"trend", "increase", "decrease", "change", "monthly"}

// Analyze returns one record per adjacent pair of months, oldest pair first.
// The series must already be in ascending month order.
func Analyze(series []core.MonthlyTotal) ([]core.TrendRecord, error) {
	if len(series) < 2 {
		return nil, ErrInsufficientData
	}
	records := make([]core.TrendRecord, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		records = append(records, compare(series[i-1], series[i]))
	}
	return records, nil
}

func compare(prev, cur core.MonthlyTotal) core.TrendRecord {
	delta := cur.Amount.Sub(prev.Amount)

	// A zero previous month has no meaningful percentage; report 0.
	percent := decimal.Zero
	if !prev.Amount.IsZero() {
		percent = delta.Div(prev.Amount).Mul(hundred)
	}

	dir := core.Unchanged
	switch delta.Sign() {
	case 1:
		dir = core.Increase
	case -1:
		dir = core.Decrease
	}

	return core.TrendRecord{
		Month:         cur.Month,
		PreviousMonth: prev.Month,
		Delta:         delta,
		PercentDelta:  percent,
		Direction:     dir,
	}
}

// Describe renders a record as a sentence, e.g.
// "2024-02: Increase of ₹50.00 (50.00%) compared to 2024-01".
// Magnitudes are printed without sign; the direction word carries it.
func Describe(r core.TrendRecord, currency string) string {
	switch r.Direction {
	case core.Increase:
		return fmt.Sprintf("%s: Increase of %s (%s%%) compared to %s",
			r.Month, core.FormatAmount(r.Delta, currency), r.PercentDelta.StringFixed(2), r.PreviousMonth)
	case core.Decrease:
		return fmt.Sprintf("%s: Decrease of %s (%s%%) compared to %s",
			r.Month, core.FormatAmount(r.Delta.Neg(), currency), r.PercentDelta.Neg().StringFixed(2), r.PreviousMonth)
	default:
		return fmt.Sprintf("%s: No change compared to %s", r.Month, r.PreviousMonth)
	}
}

// Report analyzes the series and describes every record. The sentences are
// index-aligned with the records.
func Report(series []core.MonthlyTotal, currency string) ([]core.TrendRecord, []string, error) {
	records, err := Analyze(series)
	if err != nil {
		return nil, nil, err
	}
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = Describe(r, currency)
	}
	return records, out, nil
}

// WantsTrend reports whether the prompt asks for trend information.
func WantsTrend(prompt string) bool {
	p := strings.ToLower(prompt)
	for _, kw := range trendKeywords {
		if strings.Contains(p, kw) {
			return true
		}
	}
	return false
}

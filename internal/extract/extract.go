// Package extract recovers a monthly expense series from free-form analysis
// text. Each line is split into column-like tokens; the first token that is a
// complete date and is immediately followed by a monetary token yields one
// entry. Lines that do not match contribute nothing.
package extract

import (
	"regexp"
	"slices"
	"strings"

	"invoiceinsights/internal/core"
)

var (
	// columnSep splits on runs of two or more whitespace characters,
	// Unicode space separators included, or a tab.
	columnSep = regexp.MustCompile(`[\s\p{Zs}]{2,}|\t`)
	lineSep   = regexp.MustCompile(`\r?\n|\r`)
)

// Extract scans text and returns per-month totals in ascending month order.
// It never fails: unparseable lines are skipped and an input without any
// date/amount pair yields an empty result.
func Extract(text string) []core.MonthlyTotal {
	return Aggregate(Entries(text))
}

// Entries returns the entries recovered from text, one per matching line,
// in line order.
func Entries(text string) []core.ExpenseEntry {
	var entries []core.ExpenseEntry
	for _, line := range lineSep.Split(text, -1) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if e, ok := scanLine(Tokenize(line)); ok {
			entries = append(entries, e)
		}
	}
	return entries
}

// Tokenize splits a trimmed line into column tokens.
func Tokenize(line string) []string {
	return columnSep.Split(line, -1)
}

// scanLine walks the tokens left to right looking for a date at i followed
// by an amount at i+1. The first such pair wins.
func scanLine(tokens []string) (core.ExpenseEntry, bool) {
	for i := 0; i < len(tokens); i++ {
		date, ok := parseDate(tokens[i])
		if !ok {
			continue
		}
		if i+1 >= len(tokens) {
			break
		}
		amount, ok := parseAmount(tokens[i+1])
		if !ok {
			continue
		}
		return core.ExpenseEntry{Date: date, Amount: amount}, true
	}
	return core.ExpenseEntry{}, false
}

// Aggregate groups entries by calendar month and sums their amounts.
// The result is kept sorted by month while it is built.
func Aggregate(entries []core.ExpenseEntry) []core.MonthlyTotal {
	if len(entries) == 0 {
		return nil
	}
	var out []core.MonthlyTotal
	for _, e := range entries {
		m := e.Date.YearMonth()
		i, found := slices.BinarySearchFunc(out, m, func(mt core.MonthlyTotal, target core.Month) int {
			return mt.Month.Compare(target)
		})
		if found {
			out[i].Amount = out[i].Amount.Add(e.Amount)
			continue
		}
		out = slices.Insert(out, i, core.MonthlyTotal{Month: m, Amount: e.Amount})
	}
	return out
}

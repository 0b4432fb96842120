package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"invoiceinsights/internal/core"
)

// dateLayouts lists the complete date shapes accepted in a token. Every
// layout carries a year, a month and a day, so partial strings such as
// "Jan 2024" never match. Slash and dash dates are tried month-first, so
// the day-first layouts only match when the first field exceeds 12.
var dateLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
	"2006-01-02 15:04:05",
	"2006-1-2 15:04",
	time.RFC3339,
	"1/2/2006",
	"1-2-2006",
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"January 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"2-Jan-2006",
	"Mon, Jan 2, 2006",
	"Monday, January 2, 2006",
}

var (
	numberRe  = regexp.MustCompile(`\d+(?:\.\d+)?`)
	ordinalRe = regexp.MustCompile(`(?i)(\d)(?:st|nd|rd|th)\b`)
)

// parseDate accepts the token only when the whole of it is a date in one
// of dateLayouts.
func parseDate(tok string) (core.Date, bool) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return core.Date{}, false
	}
	tok = ordinalRe.ReplaceAllString(tok, "$1")
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, tok)
		if err != nil {
			continue
		}
		return core.NewDate(t.Year(), int(t.Month()), t.Day()), true
	}
	return core.Date{}, false
}

// parseAmount strips "$" and thousands separators and reads the first
// numeric run in the token.
func parseAmount(tok string) (decimal.Decimal, bool) {
	s := strings.ReplaceAll(tok, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	m := numberRe.FindString(s)
	if m == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(m)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

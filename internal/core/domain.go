package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Increase  Direction = "increase"
	Decrease  Direction = "decrease"
	Unchanged Direction = "unchanged"
)

type (
	Direction string

	Date struct {
		time.Time
	}

	// Month identifies a calendar month. The zero value is not a valid month.
	Month struct {
		Year  int
		Month time.Month
	}

	// ExpenseEntry is one (date, amount) observation recovered from a line of text.
	ExpenseEntry struct {
		Date   Date
		Amount decimal.Decimal
	}

	// MonthlyTotal is the sum of all entry amounts falling in Month.
	MonthlyTotal struct {
		Month  Month
		Amount decimal.Decimal
	}

	// TrendRecord compares a month with the one before it.
	TrendRecord struct {
		Month         Month
		PreviousMonth Month
		Delta         decimal.Decimal
		PercentDelta  decimal.Decimal
		Direction     Direction
	}
)

var ErrInvalidMonth = errors.New("invalid month")

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// YearMonth truncates the date to its calendar month.
func (d Date) YearMonth() Month {
	return Month{Year: d.Time.Year(), Month: d.Time.Month()}
}

// NewMonth builds a Month from numeric year and month.
func NewMonth(year, month int) Month {
	return Month{Year: year, Month: time.Month(month)}
}

func (m Month) Validate() error {
	if m.Month < time.January || m.Month > time.December {
		return ErrInvalidMonth
	}
	return nil
}

// Before reports whether m is chronologically earlier than o.
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// Compare returns -1, 0 or +1 depending on whether m is before, equal to or after o.
func (m Month) Compare(o Month) int {
	switch {
	case m.Before(o):
		return -1
	case o.Before(m):
		return 1
	}
	return 0
}

// String returns the year-month label, e.g. "2024-01".
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

package core

import "time"

// Report is the outcome of one analysis run: the generated text and the
// monthly series and trend comparisons recovered from it.
type Report struct {
	ID                 int64
	FileName           string
	Prompt             string
	Language           string
	Analysis           string
	TranslatedAnalysis string
	Monthly            []MonthlyTotal
	Trends             []TrendRecord
	TrendSentences     []string
	// InsufficientData is set when fewer than two months were recovered.
	InsufficientData bool
	// ShowTrend mirrors whether the prompt asked for trend information.
	ShowTrend bool
	CreatedAt time.Time
}

// HasMonthly reports whether the monthly table is worth presenting:
// at least one month and a positive grand total.
func (r Report) HasMonthly() bool {
	return len(r.Monthly) > 0 && SumMonthly(r.Monthly).IsPositive()
}

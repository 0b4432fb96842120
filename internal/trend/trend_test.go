package trend

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"invoiceinsights/internal/core"
)

func mt(year, month int, amount string) core.MonthlyTotal {
	return core.MonthlyTotal{Month: core.NewMonth(year, month), Amount: decimal.RequireFromString(amount)}
}

func TestAnalyze_InsufficientData(t *testing.T) {
	cases := [][]core.MonthlyTotal{
		nil,
		{},
		{mt(2024, 1, "100")},
	}
	for i, series := range cases {
		got, err := Analyze(series)
		if !errors.Is(err, ErrInsufficientData) {
			t.Fatalf("case %d expected ErrInsufficientData, got %v", i, err)
		}
		if got != nil {
			t.Fatalf("case %d expected no records, got %v", i, got)
		}
	}
}

func TestAnalyze_TwoMonths(t *testing.T) {
	got, err := Analyze([]core.MonthlyTotal{mt(2024, 1, "100"), mt(2024, 2, "150")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	r := got[0]
	if r.Month != core.NewMonth(2024, 2) || r.PreviousMonth != core.NewMonth(2024, 1) {
		t.Fatalf("unexpected months: %+v", r)
	}
	if !r.Delta.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("delta: got %s", r.Delta)
	}
	if !r.PercentDelta.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("percent: got %s", r.PercentDelta)
	}
	if r.Direction != core.Increase {
		t.Fatalf("direction: got %s", r.Direction)
	}
}

func TestAnalyze_ZeroPreviousMonth(t *testing.T) {
	got, err := Analyze([]core.MonthlyTotal{mt(2024, 1, "0"), mt(2024, 2, "20")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got[0].Delta.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("delta: got %s", got[0].Delta)
	}
	if !got[0].PercentDelta.IsZero() {
		t.Fatalf("percent should be 0 when previous month is 0, got %s", got[0].PercentDelta)
	}
	if got[0].Direction != core.Increase {
		t.Fatalf("direction: got %s", got[0].Direction)
	}
}

func TestAnalyze_Directions(t *testing.T) {
	series := []core.MonthlyTotal{
		mt(2023, 11, "120"),
		mt(2023, 12, "100"),
		mt(2024, 1, "100"),
		mt(2024, 2, "125"),
	}
	got, err := Analyze(series)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []struct {
		dir     core.Direction
		delta   string
		percent string
	}{
		{core.Decrease, "-20", "-16.67"},
		{core.Unchanged, "0", "0.00"},
		{core.Increase, "25", "25.00"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].Direction != w.dir {
			t.Fatalf("record %d direction: got %s want %s", i, got[i].Direction, w.dir)
		}
		if !got[i].Delta.Equal(decimal.RequireFromString(w.delta)) {
			t.Fatalf("record %d delta: got %s want %s", i, got[i].Delta, w.delta)
		}
		if got[i].PercentDelta.StringFixed(2) != w.percent {
			t.Fatalf("record %d percent: got %s want %s", i, got[i].PercentDelta.StringFixed(2), w.percent)
		}
	}
	if got[0].Month != core.NewMonth(2023, 12) || got[2].Month != core.NewMonth(2024, 2) {
		t.Fatalf("records not in chronological order")
	}
}

func TestDescribe(t *testing.T) {
	cases := []struct {
		name   string
		prev   core.MonthlyTotal
		cur    core.MonthlyTotal
		expect string
	}{
		{
			name:   "increase",
			prev:   mt(2024, 1, "237.50"),
			cur:    mt(2024, 2, "250"),
			expect: "2024-02: Increase of ₹12.50 (5.26%) compared to 2024-01",
		},
		{
			name:   "decrease",
			prev:   mt(2024, 2, "120"),
			cur:    mt(2024, 3, "100"),
			expect: "2024-03: Decrease of ₹20.00 (16.67%) compared to 2024-02",
		},
		{
			name:   "no change",
			prev:   mt(2024, 3, "100"),
			cur:    mt(2024, 4, "100.00"),
			expect: "2024-04: No change compared to 2024-03",
		},
		{
			name:   "from zero",
			prev:   mt(2024, 4, "0"),
			cur:    mt(2024, 5, "20"),
			expect: "2024-05: Increase of ₹20.00 (0.00%) compared to 2024-04",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Describe(compare(tc.prev, tc.cur), "₹")
			if got != tc.expect {
				t.Errorf("Describe() = %q, want %q", got, tc.expect)
			}
		})
	}
}

func TestReport(t *testing.T) {
	records, lines, err := Report([]core.MonthlyTotal{mt(2024, 1, "100"), mt(2024, 2, "150")}, "$")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 1 || lines[0] != "2024-02: Increase of $50.00 (50.00%) compared to 2024-01" {
		t.Fatalf("unexpected report: %q", lines)
	}
	if len(records) != 1 || records[0].Direction != core.Increase || records[0].PreviousMonth != core.NewMonth(2024, 1) {
		t.Fatalf("unexpected records: %+v", records)
	}

	if _, _, err := Report([]core.MonthlyTotal{mt(2024, 1, "100")}, "$"); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestWantsTrend(t *testing.T) {
	cases := []struct {
		prompt string
		want   bool
	}{
		{"Show me the monthly breakdown", true},
		{"Did spending INCREASE?", true},
		{"Any decrease in utilities", true},
		{"What changed since last quarter", true},
		{"Analyze the trend", true},
		{"Summarize this invoice", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := WantsTrend(tc.prompt); got != tc.want {
			t.Fatalf("WantsTrend(%q) = %v, want %v", tc.prompt, got, tc.want)
		}
	}
}

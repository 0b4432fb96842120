package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"invoiceinsights/internal/core"
	"invoiceinsights/internal/pdftext"
	"invoiceinsights/internal/storage"
	"invoiceinsights/internal/translate"
)

type fakeAnalyzer struct {
	out    string
	err    error
	prompt string
	text   string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, prompt, text string) (string, error) {
	f.prompt, f.text = prompt, text
	return f.out, f.err
}

type fakeTranslator struct {
	err    error
	target string
}

func (f *fakeTranslator) Translate(_ context.Context, text, target string) (string, error) {
	f.target = target
	if f.err != nil {
		return "", f.err
	}
	return "[" + target + "] " + text, nil
}

type fakeStore struct {
	mu      sync.Mutex
	reports map[int64]*core.Report
	err     error
}

func newFakeStore() *fakeStore { return &fakeStore{reports: map[int64]*core.Report{}} }

func (f *fakeStore) SaveReport(_ context.Context, rep *core.Report) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	id := int64(len(f.reports) + 1)
	cp := *rep
	cp.ID = id
	cp.Trends, cp.TrendSentences = nil, nil
	f.reports[id] = &cp
	return id, nil
}

func (f *fakeStore) GetReport(_ context.Context, id int64) (*core.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rep, ok := f.reports[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *rep
	return &cp, nil
}

type fakePublisher struct {
	ids []int64
	err error
}

func (f *fakePublisher) PublishReportSync(_ context.Context, id int64) error {
	f.ids = append(f.ids, id)
	return f.err
}

var languages = map[string]string{"en": "English", "fr": "French", "hi": "Hindi"}

const analysisText = "Invoice summary\n2024-01-15  $100\n2024-01-20  $50\n2024-02-10  $150"

func newService(a *fakeAnalyzer, tr *fakeTranslator, st *fakeStore, pub *fakePublisher) *AnalysisService {
	var publisher Publisher
	if pub != nil {
		publisher = pub
	}
	var translator translate.Translator
	if tr != nil {
		translator = tr
	}
	return NewAnalysisService(a, translator, st, publisher, Options{
		Currency:        "₹",
		DefaultLanguage: "en",
		Languages:       languages,
	})
}

func TestAnalyze_FullPipeline(t *testing.T) {
	a := &fakeAnalyzer{out: analysisText}
	tr := &fakeTranslator{}
	st := newFakeStore()
	pub := &fakePublisher{}
	svc := newService(a, tr, st, pub)

	rep, err := svc.Analyze(context.Background(), AnalysisRequest{
		FileName: "jan.pdf",
		Text:     "raw invoice text",
		Prompt:   "  Show the monthly trend  ",
		Language: "FR",
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if a.prompt != "Show the monthly trend" || a.text != "raw invoice text" {
		t.Fatalf("analyzer got prompt=%q text=%q", a.prompt, a.text)
	}
	if rep.ID != 1 || rep.FileName != "jan.pdf" || rep.Language != "fr" {
		t.Fatalf("unexpected metadata: %+v", rep)
	}
	if rep.Analysis != analysisText || rep.TranslatedAnalysis != "[fr] "+analysisText {
		t.Fatalf("unexpected texts: %q / %q", rep.Analysis, rep.TranslatedAnalysis)
	}
	if len(rep.Monthly) != 2 || rep.Monthly[0].Amount.String() != "150" || rep.Monthly[1].Amount.String() != "150" {
		t.Fatalf("unexpected monthly totals: %+v", rep.Monthly)
	}
	if !rep.ShowTrend || rep.InsufficientData {
		t.Fatalf("unexpected flags: show=%v insufficient=%v", rep.ShowTrend, rep.InsufficientData)
	}
	want := "2024-02: No change compared to 2024-01"
	if len(rep.TrendSentences) != 1 || rep.TrendSentences[0] != want {
		t.Fatalf("TrendSentences = %v, want [%q]", rep.TrendSentences, want)
	}
	if len(pub.ids) != 1 || pub.ids[0] != rep.ID {
		t.Fatalf("expected publish of report %d, got %v", rep.ID, pub.ids)
	}
	if rep.CreatedAt.IsZero() {
		t.Fatal("CreatedAt not set")
	}
}

func TestAnalyze_DefaultLanguage(t *testing.T) {
	tr := &fakeTranslator{}
	svc := newService(&fakeAnalyzer{out: "2024-01-15  $100"}, tr, newFakeStore(), nil)

	rep, err := svc.Analyze(context.Background(), AnalysisRequest{Text: "x", Prompt: "summarize"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if rep.Language != "en" || tr.target != "en" {
		t.Fatalf("expected default language en, got report=%q translator=%q", rep.Language, tr.target)
	}
	if rep.ShowTrend || !rep.InsufficientData || len(rep.Trends) != 0 {
		t.Fatalf("unexpected trend state: %+v", rep)
	}
}

func TestAnalyze_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  AnalysisRequest
		want error
	}{
		{name: "blank prompt", req: AnalysisRequest{Text: "x", Prompt: "  "}, want: ErrEmptyPrompt},
		{name: "unsupported language", req: AnalysisRequest{Text: "x", Prompt: "p", Language: "xx"}, want: ErrUnsupportedLanguage},
		{name: "no invoice", req: AnalysisRequest{Prompt: "p"}, want: ErrNoInvoice},
		{name: "not a pdf", req: AnalysisRequest{Prompt: "p", PDF: []byte("hello")}, want: pdftext.ErrNotPDF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &fakeAnalyzer{out: "ok"}
			svc := newService(a, nil, newFakeStore(), nil)
			_, err := svc.Analyze(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if a.prompt != "" {
				t.Fatal("analyzer should not be called")
			}
		})
	}
}

func TestAnalyze_UsesPDFText(t *testing.T) {
	a := &fakeAnalyzer{out: "done"}
	svc := newService(a, nil, newFakeStore(), nil)
	svc.pdfText = func(b []byte) (string, error) { return "from pdf: " + string(b), nil }

	if _, err := svc.Analyze(context.Background(), AnalysisRequest{Prompt: "p", PDF: []byte("%PDF-1.4")}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.text != "from pdf: %PDF-1.4" {
		t.Fatalf("analyzer got %q", a.text)
	}
}

func TestAnalyze_UpstreamFailures(t *testing.T) {
	t.Run("analyzer", func(t *testing.T) {
		st := newFakeStore()
		svc := newService(&fakeAnalyzer{err: errors.New("quota")}, nil, st, nil)
		_, err := svc.Analyze(context.Background(), AnalysisRequest{Text: "x", Prompt: "p"})
		if !errors.Is(err, ErrUpstream) || !strings.Contains(err.Error(), "quota") {
			t.Fatalf("expected upstream error, got %v", err)
		}
		if len(st.reports) != 0 {
			t.Fatal("nothing should be stored")
		}
	})

	t.Run("translator", func(t *testing.T) {
		st := newFakeStore()
		tr := &fakeTranslator{err: errors.New("bad key")}
		svc := newService(&fakeAnalyzer{out: "text"}, tr, st, nil)
		_, err := svc.Analyze(context.Background(), AnalysisRequest{Text: "x", Prompt: "p", Language: "hi"})
		if !errors.Is(err, ErrUpstream) {
			t.Fatalf("expected upstream error, got %v", err)
		}
		if len(st.reports) != 0 {
			t.Fatal("nothing should be stored")
		}
	})
}

func TestAnalyze_StoreAndPublishFailures(t *testing.T) {
	st := newFakeStore()
	st.err = errors.New("disk full")
	svc := newService(&fakeAnalyzer{out: "text"}, nil, st, nil)
	if _, err := svc.Analyze(context.Background(), AnalysisRequest{Text: "x", Prompt: "p"}); err == nil {
		t.Fatal("expected store error")
	}

	pub := &fakePublisher{err: errors.New("broker down")}
	svc = newService(&fakeAnalyzer{out: "text"}, nil, newFakeStore(), pub)
	rep, err := svc.Analyze(context.Background(), AnalysisRequest{Text: "x", Prompt: "p"})
	if err != nil {
		t.Fatalf("publish failure must not fail the request: %v", err)
	}
	if rep.ID == 0 || len(pub.ids) != 1 {
		t.Fatalf("unexpected result: id=%d publishes=%v", rep.ID, pub.ids)
	}
}

func TestExtractText(t *testing.T) {
	svc := newService(&fakeAnalyzer{}, nil, newFakeStore(), nil)

	rep, err := svc.ExtractText("2024-01-15  $100\n2024-02-10  $150", "Show increase")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	want := "2024-02: Increase of ₹50.00 (50.00%) compared to 2024-01"
	if len(rep.TrendSentences) != 1 || rep.TrendSentences[0] != want {
		t.Fatalf("TrendSentences = %v, want [%q]", rep.TrendSentences, want)
	}
	if !rep.ShowTrend || !rep.HasMonthly() {
		t.Fatalf("unexpected flags: %+v", rep)
	}

	if _, err := svc.ExtractText("text", ""); !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}
}

func TestGetReportRecomputesTrends(t *testing.T) {
	st := newFakeStore()
	svc := newService(&fakeAnalyzer{out: "2024-01-15  $200\n2024-02-10  $150"}, nil, st, nil)

	rep, err := svc.Analyze(context.Background(), AnalysisRequest{Text: "x", Prompt: "decrease?"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	got, err := svc.GetReport(context.Background(), rep.ID)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	want := "2024-02: Decrease of ₹50.00 (25.00%) compared to 2024-01"
	if len(got.TrendSentences) != 1 || got.TrendSentences[0] != want {
		t.Fatalf("TrendSentences = %v, want [%q]", got.TrendSentences, want)
	}

	if _, err := svc.GetReport(context.Background(), 99); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"invoiceinsights/internal/core"
	"invoiceinsights/internal/extract"
	"invoiceinsights/internal/genai"
	"invoiceinsights/internal/pdftext"
	"invoiceinsights/internal/translate"
	"invoiceinsights/internal/trend"
)

var (
	// ErrEmptyPrompt is returned when the analysis prompt is blank.
	ErrEmptyPrompt = errors.New("prompt is required")
	// ErrUnsupportedLanguage is returned for output languages outside the
	// configured set.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrNoInvoice is returned when a request carries neither text nor a PDF.
	ErrNoInvoice = errors.New("invoice text or PDF is required")
	// ErrUpstream wraps failures of the analysis or translation services.
	ErrUpstream = errors.New("upstream service failed")
)

// ReportStore persists analysis reports.
type ReportStore interface {
	SaveReport(ctx context.Context, rep *core.Report) (int64, error)
	GetReport(ctx context.Context, id int64) (*core.Report, error)
}

// Publisher announces stored reports to the export worker.
type Publisher interface {
	PublishReportSync(ctx context.Context, id int64) error
}

// AnalysisRequest is one invoice analysis. Text takes precedence over PDF.
type AnalysisRequest struct {
	FileName string
	PDF      []byte
	Text     string
	Prompt   string
	Language string
}

// Options tune report rendering and language handling.
type Options struct {
	Currency        string
	DefaultLanguage string
	// Languages is the set of accepted output language codes; nil accepts any.
	Languages map[string]string
}

// AnalysisService runs the invoice analysis pipeline: text extraction,
// generative analysis, translation, monthly aggregation and trends.
type AnalysisService struct {
	analyzer   genai.Analyzer
	translator translate.Translator
	store      ReportStore
	publisher  Publisher
	opts       Options
	pdfText    func([]byte) (string, error)
	now        func() time.Time
}

// NewAnalysisService wires the pipeline. translator and publisher may be nil.
func NewAnalysisService(analyzer genai.Analyzer, translator translate.Translator, store ReportStore, publisher Publisher, opts Options) *AnalysisService {
	if translator == nil {
		translator = translate.Noop{}
	}
	opts.Currency = core.NormalizeSymbol(opts.Currency)
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = translate.SourceLanguage
	}
	return &AnalysisService{
		analyzer:   analyzer,
		translator: translator,
		store:      store,
		publisher:  publisher,
		opts:       opts,
		pdfText:    pdftext.Extract,
		now:        time.Now,
	}
}

// Analyze runs the full pipeline, stores the report and queues it for export.
func (s *AnalysisService) Analyze(ctx context.Context, req AnalysisRequest) (*core.Report, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}
	lang, err := s.language(req.Language)
	if err != nil {
		return nil, err
	}

	invoiceText, err := s.invoiceText(req)
	if err != nil {
		return nil, err
	}

	start := s.now()
	analysis, err := s.analyzer.Analyze(ctx, prompt, invoiceText)
	if err != nil {
		return nil, fmt.Errorf("analyze invoice: %w: %w", ErrUpstream, err)
	}
	slog.InfoContext(ctx, "Invoice analyzed",
		"component", "analysis",
		"text_length", len(invoiceText),
		"duration_ms", s.now().Sub(start).Milliseconds())

	var (
		translated string
		report     *core.Report
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := s.translator.Translate(gctx, analysis, lang)
		if err != nil {
			return fmt.Errorf("translate analysis: %w: %w", ErrUpstream, err)
		}
		translated = out
		return nil
	})
	g.Go(func() error {
		report = s.buildReport(analysis, prompt)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.FileName = req.FileName
	report.Language = lang
	report.TranslatedAnalysis = translated
	report.CreatedAt = s.now().UTC()

	id, err := s.store.SaveReport(ctx, report)
	if err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}
	report.ID = id

	if err := s.publishSync(ctx, report.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", report.ID, "error", err)
		// The report is stored; the worker backstop picks it up later.
	}

	return report, nil
}

// ExtractText runs only monthly aggregation and trends over supplied text.
func (s *AnalysisService) ExtractText(text, prompt string) (*core.Report, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}
	report := s.buildReport(text, prompt)
	report.Language = translate.SourceLanguage
	report.CreatedAt = s.now().UTC()
	return report, nil
}

// GetReport loads a stored report and recomputes its trend comparisons.
func (s *AnalysisService) GetReport(ctx context.Context, id int64) (*core.Report, error) {
	report, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get report %d: %w", id, err)
	}
	s.applyTrends(report)
	return report, nil
}

// Languages returns the accepted output languages.
func (s *AnalysisService) Languages() map[string]string {
	return s.opts.Languages
}

func (s *AnalysisService) buildReport(analysis, prompt string) *core.Report {
	report := &core.Report{
		Prompt:    prompt,
		Analysis:  analysis,
		Monthly:   extract.Extract(analysis),
		ShowTrend: trend.WantsTrend(prompt),
	}
	s.applyTrends(report)
	return report
}

func (s *AnalysisService) applyTrends(report *core.Report) {
	records, sentences, err := trend.Report(report.Monthly, s.opts.Currency)
	report.Trends = records
	report.TrendSentences = sentences
	report.InsufficientData = errors.Is(err, trend.ErrInsufficientData)
}

func (s *AnalysisService) language(requested string) (string, error) {
	lang := strings.ToLower(strings.TrimSpace(requested))
	if lang == "" {
		lang = s.opts.DefaultLanguage
	}
	if s.opts.Languages != nil {
		if _, ok := s.opts.Languages[lang]; !ok {
			return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, requested)
		}
	}
	return lang, nil
}

func (s *AnalysisService) invoiceText(req AnalysisRequest) (string, error) {
	if text := strings.TrimSpace(req.Text); text != "" {
		return text, nil
	}
	if len(req.PDF) == 0 {
		return "", ErrNoInvoice
	}
	text, err := s.pdfText(req.PDF)
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	return text, nil
}

func (s *AnalysisService) publishSync(ctx context.Context, id int64) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping sync message", "id", id)
		return nil
	}
	return s.publisher.PublishReportSync(ctx, id)
}

// Package backend builds the pluggable collaborators of the analysis service
// and the sync worker from application configuration.
package backend

import (
	"context"
	"fmt"

	"invoiceinsights/internal/amqp"
	"invoiceinsights/internal/config"
	"invoiceinsights/internal/genai"
	"invoiceinsights/internal/genai/gemini"
	"invoiceinsights/internal/log"
	"invoiceinsights/internal/services"
	"invoiceinsights/internal/sheets"
	gsheet "invoiceinsights/internal/sheets/google"
	"invoiceinsights/internal/sheets/memory"
	"invoiceinsights/internal/translate"
	gtranslate "invoiceinsights/internal/translate/google"
)

// AnalyzerType names a generative analysis backend.
type AnalyzerType string

const (
	GeminiAnalyzer AnalyzerType = "gemini"
	EchoAnalyzer   AnalyzerType = "echo"
)

// IsValid reports whether t names a known analyzer backend.
func (t AnalyzerType) IsValid() bool {
	return t == GeminiAnalyzer || t == EchoAnalyzer
}

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

func noCleanup() error { return nil }

// Factory creates backends based on configuration.
type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Factory{logger: logger.WithComponent(log.ComponentApp)}
}

// Analyzer returns the configured generative analysis backend.
func (f *Factory) Analyzer(ctx context.Context, cfg *config.Config) (genai.Analyzer, error) {
	switch AnalyzerType(cfg.AnalyzerBackend) {
	case EchoAnalyzer:
		f.logger.Info("Using echo analyzer backend")
		return genai.Echo{}, nil
	case GeminiAnalyzer:
		client, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("initialize Gemini client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported analyzer backend: %s", cfg.AnalyzerBackend)
	}
}

// Translator returns Google Translate when translation is active and a
// pass-through translator otherwise.
func (f *Factory) Translator(ctx context.Context, cfg *config.Config) (translate.Translator, error) {
	if !cfg.TranslationActive() {
		f.logger.Info("Translation disabled, analyses are returned in English")
		return translate.Noop{}, nil
	}
	client, err := gtranslate.New(ctx, cfg.TranslateAPIKey)
	if err != nil {
		return nil, fmt.Errorf("initialize translation client: %w", err)
	}
	return client, nil
}

// Publisher connects to the broker when AMQP_URL is set. Without a broker,
// or when the broker is unreachable, it returns a nil Publisher: reports are
// still stored and the worker backstop exports them.
func (f *Factory) Publisher(cfg *config.Config) (services.Publisher, CleanupFunc) {
	if cfg.AMQPURL == "" {
		f.logger.Info("AMQP disabled - no AMQP_URL provided")
		return nil, noCleanup
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without sync", log.FieldError, err)
		return nil, noCleanup
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	return client, client.Close
}

// SheetsWriter returns the Google Sheets exporter when a spreadsheet is
// configured and an in-memory sink otherwise.
func (f *Factory) SheetsWriter(ctx context.Context, cfg *config.Config) (sheets.MonthlyTotalsWriter, error) {
	if !cfg.SheetsEnabled() {
		f.logger.Info("Google Sheets disabled - exporting monthly totals to memory")
		return memory.New(), nil
	}
	client, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
	if err != nil {
		return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}

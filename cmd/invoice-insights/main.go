package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"invoiceinsights/internal/backend"
	"invoiceinsights/internal/cli"
	"invoiceinsights/internal/config"
	apphttp "invoiceinsights/internal/http"
	"invoiceinsights/internal/log"
	"invoiceinsights/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx := context.Background()
	factory := backend.NewFactory(logger)

	analyzer, err := factory.Analyzer(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize analyzer", log.FieldError, err)
		os.Exit(1)
	}
	translator, err := factory.Translator(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize translator", log.FieldError, err)
		os.Exit(1)
	}
	publisher, closePublisher := factory.Publisher(cfg)
	defer closePublisher()

	svc := services.NewAnalysisService(analyzer, translator, repo, publisher, services.Options{
		Currency:        cfg.CurrencySymbol,
		DefaultLanguage: cfg.DefaultLanguage,
		Languages:       config.Languages,
	})

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		MaxUploadBytes:  cfg.MaxUploadBytes,
		Currency:        cfg.CurrencySymbol,
		RateLimit:       cfg.RateLimitPerMinute,
		CacheSize:       cfg.ReportCacheSize,
		CacheTTL:        cfg.ReportCacheTTL,
		AnalysisTimeout: cfg.AnalysisTimeout,
		Logger:          logger,
		Ready:           repo.Ping,
	})

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting invoice insights server",
		"port", cfg.Port,
		"analyzer", cfg.AnalyzerBackend,
		"translation", cfg.TranslationActive())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-shutdownCtx.Done()
	<-done
	logger.Info("Server stopped gracefully")
}

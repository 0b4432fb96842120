package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port               string
	MaxUploadBytes     int64
	RateLimitPerMinute int
	AnalysisTimeout    time.Duration

	// Report cache
	ReportCacheSize int
	ReportCacheTTL  time.Duration

	// Logging
	LogLevel string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Generative analysis
	AnalyzerBackend string
	GeminiAPIKey    string
	GeminiModel     string

	// Translation
	TranslateAPIKey    string
	TranslationEnabled bool
	DefaultLanguage    string

	// Presentation
	CurrencySymbol string

	// Google Sheets export
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Worker
	SyncBatchSize int
	SyncInterval  time.Duration
}

// Languages lists the output languages offered to clients, keyed by code.
var Languages = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"hi": "Hindi",
	"ml": "Malayalam",
	"ta": "Tamil",
	"te": "Telugu",
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		MaxUploadBytes:     int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		AnalysisTimeout:    getEnvDuration("ANALYSIS_TIMEOUT", 2*time.Minute),

		ReportCacheSize: getEnvInt("REPORT_CACHE_SIZE", 100),
		ReportCacheTTL:  getEnvDuration("REPORT_CACHE_TTL", 5*time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/insights.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "invoice_insights"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_reports"),

		AnalyzerBackend: getEnv("ANALYZER_BACKEND", "gemini"),
		GeminiAPIKey:    getEnv("GOOGLE_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "models/gemini-1.5-pro-latest"),

		TranslateAPIKey:    getEnv("GOOGLE_CLOUD_API_KEY", ""),
		TranslationEnabled: getEnvBool("TRANSLATION_ENABLED", true),
		DefaultLanguage:    getEnv("DEFAULT_LANGUAGE", "en"),

		CurrencySymbol: getEnv("CURRENCY_SYMBOL", "₹"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Monthly Totals"),

		SyncBatchSize: getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:  getEnvDuration("SYNC_INTERVAL", 30*time.Second),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.MaxUploadBytes < 1<<10 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %d: must be at least 1024 bytes", c.MaxUploadBytes))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if c.AnalysisTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid analysis timeout %v: must be at least 1 second", c.AnalysisTimeout))
	}

	if c.ReportCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid report cache size %d: must be at least 1", c.ReportCacheSize))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	validBackends := []string{"gemini", "echo"}
	if !slices.Contains(validBackends, c.AnalyzerBackend) {
		errors = append(errors, fmt.Sprintf("invalid analyzer backend '%s': must be one of %v", c.AnalyzerBackend, validBackends))
	} else if c.AnalyzerBackend == "gemini" {
		if c.GeminiAPIKey == "" {
			errors = append(errors, "GOOGLE_API_KEY is required when using the gemini analyzer backend")
		}
		if !strings.HasPrefix(c.GeminiModel, "models/") {
			errors = append(errors, fmt.Sprintf("invalid Gemini model '%s': must start with 'models/'", c.GeminiModel))
		}
	}

	if _, ok := Languages[c.DefaultLanguage]; !ok {
		errors = append(errors, fmt.Sprintf("unsupported default language '%s'", c.DefaultLanguage))
	}

	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// TranslationActive reports whether analyses should be translated: the
// feature is enabled and an API key is configured.
func (c *Config) TranslationActive() bool {
	return c.TranslationEnabled && c.TranslateAPIKey != ""
}

// SheetsEnabled reports whether monthly totals should be exported to Google Sheets.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"invoiceinsights/internal/cache"
	"invoiceinsights/internal/core"
	"invoiceinsights/internal/log"
	"invoiceinsights/internal/services"
)

// ReportService is the application surface exposed over HTTP.
type ReportService interface {
	Analyze(ctx context.Context, req services.AnalysisRequest) (*core.Report, error)
	ExtractText(text, prompt string) (*core.Report, error)
	GetReport(ctx context.Context, id int64) (*core.Report, error)
	Languages() map[string]string
}

// Options configure the server. Zero values select defaults.
type Options struct {
	MaxUploadBytes int64
	Currency       string
	// RateLimit is the number of POST requests allowed per client per minute.
	RateLimit int
	CacheSize int
	CacheTTL  time.Duration
	// AnalysisTimeout bounds one POST /analyses pipeline run.
	AnalysisTimeout time.Duration
	Logger          *log.Logger
	// Ready reports whether dependencies are usable; nil means always ready.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	svc         ReportService
	logger      *log.Logger
	rateLimiter *rateLimiter
	metrics     *securityMetrics

	reports *cache.LRU[int64, *core.Report]
	janitor *cache.Janitor

	maxUpload       int64
	analysisTimeout time.Duration
	currency        string
	ready           func(ctx context.Context) error
	started         time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc ReportService, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 60
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 100
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.AnalysisTimeout <= 0 {
		opts.AnalysisTimeout = 2 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		svc:             svc,
		logger:          logger,
		rateLimiter:     newRateLimiter(opts.RateLimit),
		metrics:         &securityMetrics{},
		reports:         cache.NewLRU[int64, *core.Report](opts.CacheSize, opts.CacheTTL),
		janitor:         cache.NewJanitor(),
		maxUpload:       opts.MaxUploadBytes,
		analysisTimeout: opts.AnalysisTimeout,
		currency:        core.NormalizeSymbol(opts.Currency),
		ready:           opts.Ready,
		started:         time.Now(),
	}

	s.janitor.Register(s.reports)
	s.janitor.Start(10 * time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /analyses", s.handleCreateAnalysis)
	mux.HandleFunc("GET /analyses/{id}", s.handleGetReport)
	mux.HandleFunc("POST /extract", s.handleExtract)
	mux.HandleFunc("GET /languages", s.handleLanguages)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	var h http.Handler = mux
	h = s.withSecurityHeaders(h)
	h = log.RequestIDMiddleware(requestIDFromContext)(h)
	h = log.Middleware(logger)(h)
	h = withRequestID(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// Shutdown stops background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.janitor.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withSecurityHeaders adds security headers, per-client rate limiting of
// POST requests and request logging.
func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		clientIP := extractClientIP(r)
		access := log.NewStructuredLogger(log.FromContext(ctx))

		access.LogHTTPStart(ctx, r, clientIP)

		if detectSuspiciousRequest(r, s.metrics) {
			log.FromContext(ctx).WarnContext(ctx, "Suspicious request detected",
				log.FieldClientIP, clientIP,
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.Header.Get("User-Agent"))
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, s.metrics) {
			log.FromContext(ctx).WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			rw.Header().Set("Retry-After", "60")
			writeError(rw, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
		} else {
			next.ServeHTTP(rw, r)
		}

		access.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finanzas/internal/log"
	"finanzas/internal/middleware/ratelimit"
	"finanzas/internal/middleware/security"
	"finanzas/internal/middleware/trace"
	"finanzas/internal/services"
)

// Server is the ledger JSON API.
type Server struct {
	http.Server

	ledger  *services.LedgerService
	ready   func(context.Context) error
	now     func() time.Time
	timeout time.Duration
	logger  *log.Logger

	limiterConfig ratelimit.Config
	limiter       *ratelimit.Limiter
	detector      *security.Detector
	tracer        *trace.Middleware

	shutdownOnce sync.Once
}

type ServerOption func(*Server)

// WithReadiness sets the check behind /readyz, typically the store's Ping.
func WithReadiness(check func(context.Context) error) ServerOption {
	return func(s *Server) { s.ready = check }
}

// WithRateLimit overrides the write limiter settings.
func WithRateLimit(cfg ratelimit.Config) ServerOption {
	return func(s *Server) { s.limiterConfig = cfg }
}

// WithClock fixes "now" for parameter defaults.
func WithClock(now func() time.Time) ServerOption {
	return func(s *Server) { s.now = now }
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. Writes are rate limited per client; reads are not.
func NewServer(addr string, ledger *services.LedgerService, logger *log.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = log.Default(log.ComponentHTTP)
	}
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 16,
		},
		ledger:        ledger,
		now:           time.Now,
		timeout:       2 * time.Second,
		logger:        logger.WithComponent(log.ComponentHTTP),
		limiterConfig: ratelimit.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.detector = security.NewDetector(s.logger)
	s.limiter = ratelimit.NewLimiter(s.limiterConfig, s.logger)
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, s.logger)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/month", s.handleMonth)
	mux.HandleFunc("GET /api/month/total", s.handleMonthTotal)
	mux.HandleFunc("GET /api/day", s.handleDay)
	mux.HandleFunc("GET /api/calendar", s.handleCalendar)
	mux.HandleFunc("GET /api/period", s.handlePeriod)
	mux.HandleFunc("GET /api/records", s.handleListRecords)
	mux.HandleFunc("POST /api/records", s.handleCreateRecord)
	mux.HandleFunc("DELETE /api/records/{id}", s.handleDeleteRecord)
	mux.HandleFunc("POST /api/records/{id}/archive", s.handleArchiveRecord)
	mux.HandleFunc("POST /api/records/{id}/installments", s.handlePayInstallment)

	limit := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError().Write(w)
	}, http.MethodPost, http.MethodDelete)

	s.Handler = s.tracer.Middleware(headers.Middleware(s.detector.Middleware(limit(mux))))
	return s
}

// Shutdown stops the limiter cleanup and drains the HTTP server once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
		m := s.tracer.GetMetrics()
		s.logger.InfoContext(ctx, "HTTP server stopped",
			"total_requests", m.TotalRequests,
			"failed_requests", m.FailedRequests,
			"rate_limited", s.limiter.GetMetrics().TotalHits,
			"blocked", s.detector.GetMetrics().BlockedRequests)
	})
	return err
}

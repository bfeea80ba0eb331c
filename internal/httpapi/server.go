// Package httpapi exposes the Check Coordinator over the plain net/http
// surface described in spec.md section 6: POST /v1/check, GET /health,
// GET /circuit-breaker-status, GET /metrics. Grounded on the teacher's
// cmd/example-server/main.go (no router dependency — net/http.ServeMux is
// sufficient and nothing in the pack pulls in a router for this domain) and
// alibaba0010-rate-limiter/middleware/middleware.go's injectable-Config
// shape, generalized from a per-request middleware to a standalone server.
package httpapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/axiomwire/ratelimitd/pkg/breaker"
	"github.com/axiomwire/ratelimitd/pkg/correlation"
	"github.com/axiomwire/ratelimitd/pkg/ratelimit"
)

// StoreHealthFunc reports whether the backing store currently answers pings.
// Exposed as a function rather than a concrete store.Store so the server
// package stays decoupled from the storage layer.
type StoreHealthFunc func() bool

// Server wires a Checker and a Breaker into the HTTP surface spec.md
// section 6 describes.
type Server struct {
	checker       *ratelimit.Checker
	breaker       *breaker.Breaker
	storeHealthy  StoreHealthFunc
	metricsHandle http.Handler
	logger        *zap.Logger
	mux           *http.ServeMux
}

// Config collects the collaborators Server needs. MetricsHandler may be nil,
// in which case GET /metrics answers 404 (metrics disabled).
type Config struct {
	Checker        *ratelimit.Checker
	Breaker        *breaker.Breaker
	StoreHealthy   StoreHealthFunc
	MetricsHandler http.Handler
	Logger         *zap.Logger
}

// NewServer builds a Server and registers its routes on a fresh ServeMux.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.StoreHealthy == nil {
		cfg.StoreHealthy = func() bool { return true }
	}
	s := &Server{
		checker:       cfg.Checker,
		breaker:       cfg.Breaker,
		storeHealthy:  cfg.StoreHealthy,
		metricsHandle: cfg.MetricsHandler,
		logger:        cfg.Logger,
		mux:           http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /v1/check", s.withCorrelationID(s.handleCheck))
	s.mux.HandleFunc("GET /health", s.withCorrelationID(s.handleHealth))
	s.mux.HandleFunc("GET /circuit-breaker-status", s.withCorrelationID(s.handleBreakerStatus))
	s.mux.HandleFunc("GET /metrics", s.withCorrelationID(s.handleMetrics))
}

// ServeHTTP makes Server an http.Handler, so it can be passed directly to
// http.Server.Handler or to a test's httptest.NewServer.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// withCorrelationID echoes the request's X-Correlation-ID header, or mints
// one, and threads it through the request context so log lines issued while
// handling this request (the Checker's fail-mode warning, this package's
// internal-error log) carry it. The metrics.Recorder hooks take no
// correlation ID, so metrics are not tagged with it.
func (s *Server) withCorrelationID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := correlation.FromRequest(r)
		w.Header().Set(correlation.HeaderName, id)
		ctx := correlation.WithID(r.Context(), id)
		next(w, r.WithContext(ctx))
	}
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metricsHandle == nil {
		http.NotFound(w, r)
		return
	}
	s.metricsHandle.ServeHTTP(w, r)
}

// Addr-agnostic convenience used by cmd/ratelimitd; kept here rather than in
// main so tests can construct a *http.Server the same way production does.
func NewHTTPServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
}

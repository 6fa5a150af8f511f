// Package http serves the dashboard JSON API.
package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"oosc/internal/cache"
	"oosc/internal/entries"
	applog "oosc/internal/log"
	"oosc/internal/middleware/ratelimit"
	"oosc/internal/middleware/security"
	"oosc/internal/middleware/trace"
)

// Options tune the server. The zero value is usable.
type Options struct {
	// APIToken guards the mutating routes when set.
	APIToken string
	// CacheTTL is how long an entries snapshot is reused; 0 disables reuse.
	CacheTTL time.Duration
	// Ready is an extra readiness check, usually the backend's Ping.
	Ready     func(context.Context) error
	Logger    *applog.Logger
	RateLimit ratelimit.Config
}

type Server struct {
	http.Server
	store    entries.Store
	snapshot *cache.Snapshot
	caches   *cache.Manager
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	apiToken string
	ready    func(context.Context) error
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware around store.
func NewServer(addr string, store entries.Store, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.Config{Component: applog.ComponentHTTP})
	}
	rl := opts.RateLimit
	if rl.RequestsPerWindow == 0 {
		rl = ratelimit.DefaultConfig()
	}

	s := &Server{
		store:    store,
		snapshot: cache.NewSnapshot(store, opts.CacheTTL),
		caches:   cache.NewManager(),
		limiter:  ratelimit.NewLimiter(rl),
		detector: security.NewDetector(),
		apiToken: opts.APIToken,
		ready:    opts.Ready,
		started:  time.Now(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)
	s.caches.Register(s.snapshot.Cleaner())
	s.caches.StartCleanup(5 * time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/entries", s.handleListEntries)
	mux.HandleFunc("GET /api/entries/{id}", s.handleGetEntry)
	mux.Handle("POST /api/entries", s.requireToken(http.HandlerFunc(s.handleCreateEntry)))
	mux.Handle("PUT /api/entries/{id}", s.requireToken(http.HandlerFunc(s.handleUpdateEntry)))
	mux.Handle("DELETE /api/entries/{id}", s.requireToken(http.HandlerFunc(s.handleDeleteEntry)))
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/stats", s.handleStats)

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, handleRateLimited)(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)
	h = applog.Middleware(logger)(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// ListenAndServe is http.Server.ListenAndServe without the error returned
// after a clean Shutdown.
func (s *Server) ListenAndServe() error {
	if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func handleRateLimited(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "Too many requests, please try again later").Write(w)
}

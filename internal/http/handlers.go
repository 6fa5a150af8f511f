package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	applog "oosc/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks that entries can be listed and the backend answers
// its own ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	if _, err := s.snapshot.Entries(ctx); err != nil {
		checks["entries"] = "failed: " + err.Error()
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["entries"] = "ok"
	}

	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			checks["backend"] = "failed: " + err.Error()
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["backend"] = "ok"
		}
	}

	if httpStatus != http.StatusOK {
		applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", "checks", checks)
	}
	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	req := s.tracer.GetMetrics()
	rl := s.limiter.GetMetrics()
	sec := s.detector.GetMetrics()
	cs := s.snapshot.Stats()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, help, kind string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n", name, help, name, kind, name, value)
	}
	metric("oosc_uptime_seconds", "Seconds since the server started.", "gauge", int64(time.Since(s.started).Seconds()))
	metric("oosc_http_requests_total", "HTTP requests served.", "counter", req.TotalRequests)
	metric("oosc_http_client_errors_total", "HTTP responses with a 4xx status.", "counter", req.ClientErrors)
	metric("oosc_http_server_errors_total", "HTTP responses with a 5xx status.", "counter", req.ServerErrors)
	metric("oosc_http_response_time_avg_microseconds", "Mean response time.", "gauge", req.AverageResponseTime)
	metric("oosc_rate_limit_hits_total", "Requests rejected by the rate limiter.", "counter", rl.TotalHits)
	metric("oosc_rate_limit_clients", "Clients tracked by the rate limiter.", "gauge", rl.ClientCount)
	metric("oosc_suspicious_requests_total", "Requests matching a probe pattern.", "counter", sec.SuspiciousRequests)
	metric("oosc_snapshot_cache_hits_total", "Entries snapshot cache hits.", "counter", cs.Hits)
	metric("oosc_snapshot_cache_misses_total", "Entries snapshot cache misses.", "counter", cs.Misses)
	metric("oosc_snapshot_cache_evictions_total", "Entries snapshot cache evictions.", "counter", cs.Evictions)
}

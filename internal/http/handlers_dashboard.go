package http

import (
	"log/slog"
	"net/http"

	"oosc/internal/core"
	applog "oosc/internal/log"
)

// summary computes the headline totals from the current snapshot.
func (s *Server) summary(w http.ResponseWriter, r *http.Request) (core.Summary, bool) {
	ctx := r.Context()
	snapshot, err := s.snapshot.Entries(ctx)
	if err != nil {
		applog.LogError(ctx, "Failed to load entries for summary", err, applog.OpSummary, applog.ErrorTypeUpstream, nil)
		BadGatewayError("Failed to load entries").Write(w)
		return core.Summary{}, false
	}
	sum := core.Summarize(snapshot)
	applog.FromContext(ctx).LogFields(ctx, slog.LevelDebug, "Summary computed", applog.NewFields().
		WithComponent(applog.ComponentDashboard).
		WithOperation(applog.OpSummary).
		With(applog.FieldCount, countEntries(snapshot)))
	return sum, true
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, ok := s.summary(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sum, ok := s.summary(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sum.Cards())
}

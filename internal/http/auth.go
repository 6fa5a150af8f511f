package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	applog "oosc/internal/log"
)

// requireToken rejects requests without the configured bearer token. It is
// a no-op when no token is configured.
func (s *Server) requireToken(next http.Handler) http.Handler {
	if s.apiToken == "" {
		return next
	}
	want := []byte(s.apiToken)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") ||
			subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), want) != 1 {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Rejected unauthenticated write",
				applog.FieldErrorType, applog.ErrorTypeAuth,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			UnauthorizedError("Authentication required").Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

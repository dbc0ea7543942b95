package adapthttp

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"restoadmin/internal/domain"
	"restoadmin/internal/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs every request with its status and duration.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		metrics.APIRequests.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}

// requireSession rejects requests while no operator is signed in.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.session.Snapshot().SignedIn() {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"error": "not signed in",
				"kind":  domain.KindAuth,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

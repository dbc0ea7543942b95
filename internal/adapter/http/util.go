package adapthttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"restoadmin/internal/domain"

	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

// writeServiceError maps err onto the error taxonomy:
// validation 400, auth 401, transient 503, server 502, other client errors
// keep the collaborator's status.
func writeServiceError(w http.ResponseWriter, err error) {
	kind := domain.Classify(err)
	body := map[string]any{
		"error": domain.ErrorMessage(err, ""),
		"kind":  kind,
	}

	status := http.StatusBadRequest
	switch kind {
	case domain.KindValidation:
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) && vErr.Field != "" {
			body["field"] = vErr.Field
		}
	case domain.KindAuth:
		status = http.StatusUnauthorized
	case domain.KindTransient:
		status = http.StatusServiceUnavailable
	case domain.KindServer:
		status = http.StatusBadGateway
		body["status"] = domain.StatusOf(err)
	case domain.KindClient:
		if s := domain.StatusOf(err); s >= 400 {
			status = s
		}
	}
	writeJSON(w, status, body)
}

func parseJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func intQuery(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

func withNoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

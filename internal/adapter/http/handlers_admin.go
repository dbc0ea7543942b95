package adapthttp

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"restoadmin/internal/app"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.admin.ListUsers(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": users})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	u, err := s.admin.GetUser(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleUserAction(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var body struct {
		NewPassword string `json:"new_password"`
		Role        string `json:"role"`
	}
	if err := parseJSON(r, &body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	switch action := chi.URLParam(r, "action"); action {
	case app.ActionActivate:
		err = s.admin.Activate(r.Context(), id)
	case app.ActionDeactivate:
		err = s.admin.Deactivate(r.Context(), id)
	case app.ActionUnlock:
		err = s.admin.Unlock(r.Context(), id)
	case app.ActionResetPassword:
		err = s.admin.ResetPassword(r.Context(), id, body.NewPassword)
	case app.ActionChangeRole:
		err = s.admin.ChangeRole(r.Context(), id, body.Role)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown action %q", action))
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := s.admin.ListRoles(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": roles})
}

func (s *Server) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := s.admin.ListPermissions(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": perms})
}

func (s *Server) handleActivityLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.admin.ActivityLogs(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": logs})
}

func (s *Server) handleLoginHistory(w http.ResponseWriter, r *http.Request) {
	logs, err := s.admin.LoginHistory(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": logs})
}

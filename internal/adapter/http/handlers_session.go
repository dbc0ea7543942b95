package adapthttp

import (
	"net/http"

	"restoadmin/internal/domain"
)

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if err := parseJSON(r, &creds); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res := s.session.Login(r.Context(), creds)
	if !res.Success {
		writeJSON(w, http.StatusUnauthorized, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Logout(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"refreshed": s.session.Refresh(r.Context())})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg domain.Registration
	if err := parseJSON(r, &reg); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res := s.session.Register(r.Context(), reg)
	if !res.Success {
		writeJSON(w, http.StatusBadRequest, res)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleGoogleURL(w http.ResponseWriter, r *http.Request) {
	url, err := s.session.GoogleLoginURL(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"url": url})
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code string `json:"code"`
	}
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res := s.session.LoginWithGoogle(r.Context(), body.Code)
	if !res.Success {
		writeJSON(w, http.StatusUnauthorized, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRemembered(w http.ResponseWriter, r *http.Request) {
	username, err := s.session.RememberedUsername(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"username": username})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var patch domain.ProfilePatch
	if err := parseJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := s.session.SaveProfile(r.Context(), patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var change domain.PasswordChange
	if err := parseJSON(r, &change); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.session.ChangePassword(r.Context(), change); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

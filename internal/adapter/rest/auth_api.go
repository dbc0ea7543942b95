package rest

import (
	"context"
	"encoding/json"
	"net/http"

	"restoadmin/internal/domain"
)

// AuthAPI implements domain.AuthGateway against the auth service. Its client
// must not refresh on its own: the session manager owns that decision.
type AuthAPI struct {
	c *Client
}

var _ domain.AuthGateway = (*AuthAPI)(nil)

// NewAuthAPI creates an AuthAPI.
func NewAuthAPI(c *Client) *AuthAPI {
	return &AuthAPI{c: c}
}

// tokenFields accepts every token shape the auth service has used.
type tokenFields struct {
	Access       string `json:"access"`
	AccessToken  string `json:"access_token"`
	Refresh      string `json:"refresh"`
	RefreshToken string `json:"refresh_token"`
	Tokens       *struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	} `json:"tokens"`
}

func (f tokenFields) pair() domain.TokenPair {
	p := domain.TokenPair{
		Access:  firstNonEmpty(f.AccessToken, f.Access),
		Refresh: firstNonEmpty(f.RefreshToken, f.Refresh),
	}
	if f.Tokens != nil {
		p.Access = firstNonEmpty(p.Access, f.Tokens.Access)
		p.Refresh = firstNonEmpty(p.Refresh, f.Tokens.Refresh)
	}
	return p
}

func (a *AuthAPI) Login(ctx context.Context, creds domain.Credentials) (*domain.LoginResponse, error) {
	var out struct {
		tokenFields
		User *domain.UserProfile `json:"user"`
	}
	in := map[string]string{"username": creds.Username, "password": creds.Password}
	if err := a.c.Do(ctx, http.MethodPost, "/api/auth/login/", nil, in, &out); err != nil {
		return nil, err
	}
	return &domain.LoginResponse{Tokens: out.pair(), User: out.User}, nil
}

func (a *AuthAPI) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	var out tokenFields
	in := map[string]string{"refresh": refreshToken}
	if err := a.c.Do(ctx, http.MethodPost, "/api/auth/token/refresh/", nil, in, &out); err != nil {
		return domain.TokenPair{}, err
	}
	return out.pair(), nil
}

func (a *AuthAPI) Register(ctx context.Context, reg domain.Registration) error {
	in := struct {
		domain.Registration
		ConfirmPassword string `json:"confirm_password"`
	}{reg, reg.Password}
	return a.c.Do(ctx, http.MethodPost, "/api/auth/register/", nil, in, nil, WithFieldErrors())
}

func (a *AuthAPI) Profile(ctx context.Context, accessToken string) (*domain.UserProfile, error) {
	var raw json.RawMessage
	if err := a.c.Do(ctx, http.MethodGet, "/api/auth/profile/", nil, nil, &raw, WithBearer(accessToken)); err != nil {
		return nil, err
	}
	return decodeProfile(raw)
}

func (a *AuthAPI) UpdateProfile(ctx context.Context, accessToken string, patch domain.ProfilePatch) (*domain.UserProfile, error) {
	var raw json.RawMessage
	if err := a.c.Do(ctx, http.MethodPatch, "/api/auth/profile/", nil, patch, &raw, WithBearer(accessToken)); err != nil {
		return nil, err
	}
	return decodeProfile(raw)
}

func (a *AuthAPI) ChangePassword(ctx context.Context, accessToken string, change domain.PasswordChange) error {
	return a.c.Do(ctx, http.MethodPost, "/api/auth/change-password/", nil, change, nil, WithBearer(accessToken), WithFieldErrors())
}

func (a *AuthAPI) GoogleLoginURL(ctx context.Context) (string, error) {
	var out struct {
		URL     string `json:"url"`
		AuthURL string `json:"auth_url"`
	}
	if err := a.c.Do(ctx, http.MethodGet, "/api/auth/google/login/", nil, nil, &out); err != nil {
		return "", err
	}
	return firstNonEmpty(out.URL, out.AuthURL), nil
}

func (a *AuthAPI) GoogleCallback(ctx context.Context, code string) (*domain.GoogleLoginResponse, error) {
	var out struct {
		tokenFields
		Success   bool                `json:"success"`
		Message   string              `json:"message"`
		User      *domain.UserProfile `json:"user"`
		IsNewUser bool                `json:"is_new_user"`
	}
	in := map[string]string{"code": code}
	if err := a.c.Do(ctx, http.MethodPost, "/api/auth/google/callback/", nil, in, &out); err != nil {
		return nil, err
	}
	return &domain.GoogleLoginResponse{
		Success:   out.Success,
		Message:   out.Message,
		Tokens:    out.pair(),
		User:      out.User,
		IsNewUser: out.IsNewUser,
	}, nil
}

// decodeProfile accepts {"user": {...}} as well as a bare profile object.
func decodeProfile(raw json.RawMessage) (*domain.UserProfile, error) {
	var wrapped struct {
		User *domain.UserProfile `json:"user"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.User != nil {
		return wrapped.User, nil
	}
	var u domain.UserProfile
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"encoding/json"
)

// UserProfile represents the authenticated operator as returned by the auth service.
type UserProfile struct {
	ID          int64    `json:"id"`
	Username    string   `json:"username"`
	Email       string   `json:"email,omitempty"`
	FirstName   string   `json:"first_name,omitempty"`
	LastName    string   `json:"last_name,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	IsSuperuser *bool    `json:"is_superuser,omitempty"`
	IsStaff     *bool    `json:"is_staff,omitempty"`
	Avatar      string   `json:"avatar,omitempty"`
}

// HasPermission reports whether the profile carries the named permission.
// Superusers hold every permission.
func (u *UserProfile) HasPermission(name string) bool {
	if u == nil {
		return false
	}
	if u.IsSuperuser != nil && *u.IsSuperuser {
		return true
	}
	for _, p := range u.Permissions {
		if p == name {
			return true
		}
	}
	return false
}

// ProfilePatch is a partial profile update. Nil fields are left untouched.
type ProfilePatch struct {
	Username    *string   `json:"username,omitempty"`
	Email       *string   `json:"email,omitempty"`
	FirstName   *string   `json:"first_name,omitempty"`
	LastName    *string   `json:"last_name,omitempty"`
	Phone       *string   `json:"phone,omitempty"`
	Role        *string   `json:"role,omitempty"`
	Permissions *[]string `json:"permissions,omitempty"`
	IsSuperuser *bool     `json:"is_superuser,omitempty"`
	IsStaff     *bool     `json:"is_staff,omitempty"`
	Avatar      *string   `json:"avatar,omitempty"`
}

// Merge returns a copy of u with the non-nil fields of p applied.
// A nil receiver yields a profile built from the patch alone.
func (u *UserProfile) Merge(p ProfilePatch) *UserProfile {
	var out UserProfile
	if u != nil {
		out = *u
		out.Permissions = append([]string(nil), u.Permissions...)
	}
	if p.Username != nil {
		out.Username = *p.Username
	}
	if p.Email != nil {
		out.Email = *p.Email
	}
	if p.FirstName != nil {
		out.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		out.LastName = *p.LastName
	}
	if p.Phone != nil {
		out.Phone = *p.Phone
	}
	if p.Role != nil {
		out.Role = *p.Role
	}
	if p.Permissions != nil {
		out.Permissions = append([]string(nil), (*p.Permissions)...)
	}
	if p.IsSuperuser != nil {
		v := *p.IsSuperuser
		out.IsSuperuser = &v
	}
	if p.IsStaff != nil {
		v := *p.IsStaff
		out.IsStaff = &v
	}
	if p.Avatar != nil {
		out.Avatar = *p.Avatar
	}
	return &out
}

// TokenPair holds the access and refresh tokens issued by the auth service.
// Both are present or both are absent.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Complete reports whether both tokens are set.
func (p TokenPair) Complete() bool {
	return p.Access != "" && p.Refresh != ""
}

// Credentials are the sign-in form values.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember,omitempty"`
}

// Registration is the sign-up form.
type Registration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// LoginResponse is what the auth service returns on a successful sign-in.
type LoginResponse struct {
	Tokens TokenPair
	User   *UserProfile
}

// GoogleLoginResponse is the result of exchanging a Google authorization code.
type GoogleLoginResponse struct {
	Success   bool
	Message   string
	Tokens    TokenPair
	User      *UserProfile
	IsNewUser bool
}

// PasswordChange is the payload of the change-password endpoint.
type PasswordChange struct {
	OldPassword     string `json:"old_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// AuthGateway is the port for the auth service.
type AuthGateway interface {
	Login(ctx context.Context, creds Credentials) (*LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
	Register(ctx context.Context, reg Registration) error
	Profile(ctx context.Context, accessToken string) (*UserProfile, error)
	UpdateProfile(ctx context.Context, accessToken string, patch ProfilePatch) (*UserProfile, error)
	ChangePassword(ctx context.Context, accessToken string, change PasswordChange) error
	GoogleLoginURL(ctx context.Context) (string, error)
	GoogleCallback(ctx context.Context, code string) (*GoogleLoginResponse, error)
}

// CredentialKey names a value held by a CredentialStore.
type CredentialKey string

// Keys understood by every CredentialStore.
const (
	AccessTokenKey  CredentialKey = "access_token"
	RefreshTokenKey CredentialKey = "refresh_token"
	UsernameKey     CredentialKey = "remembered_username"
)

// CredentialStore defines the port for persisting tokens on the client.
// Get returns "" and no error for a missing key.
type CredentialStore interface {
	Get(ctx context.Context, key CredentialKey) (string, error)
	Set(ctx context.Context, key CredentialKey, value string) error
	Delete(ctx context.Context, keys ...CredentialKey) error
}

// StoredTokens reads both tokens from s.
func StoredTokens(ctx context.Context, s CredentialStore) (TokenPair, error) {
	access, err := s.Get(ctx, AccessTokenKey)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.Get(ctx, RefreshTokenKey)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// SaveTokens writes the non-empty halves of p to s.
func SaveTokens(ctx context.Context, s CredentialStore, p TokenPair) error {
	if p.Access != "" {
		if err := s.Set(ctx, AccessTokenKey, p.Access); err != nil {
			return err
		}
	}
	if p.Refresh != "" {
		if err := s.Set(ctx, RefreshTokenKey, p.Refresh); err != nil {
			return err
		}
	}
	return nil
}

// ClearTokens removes both tokens from s. The remembered username is kept.
func ClearTokens(ctx context.Context, s CredentialStore) error {
	return s.Delete(ctx, AccessTokenKey, RefreshTokenKey)
}

// SessionState is a node of the session lifecycle.
type SessionState string

// Session lifecycle states.
const (
	StateUnknown       SessionState = "unknown"
	StateChecking      SessionState = "checking"
	StateAuthenticated SessionState = "authenticated"
	StateRefreshing    SessionState = "refreshing"
	StateAnonymous     SessionState = "anonymous"
)

// Session is a point-in-time view of the client session.
type Session struct {
	User       *UserProfile `json:"user"`
	State      SessionState `json:"state"`
	Loading    bool         `json:"loading"`
	Error      string       `json:"error,omitempty"`
	IsChecking bool         `json:"isChecking"`
}

// Authenticated reports whether the session holds a user.
func (s Session) Authenticated() bool {
	return s.User != nil
}

// SignedIn reports whether the session holds a user obtained through the
// auth service, as opposed to one only patched in locally.
func (s Session) SignedIn() bool {
	return s.User != nil && (s.State == StateAuthenticated || s.State == StateRefreshing)
}

// MarshalJSON adds the derived isAuthenticated field.
func (s Session) MarshalJSON() ([]byte, error) {
	type alias Session
	return json.Marshal(struct {
		alias
		IsAuthenticated bool `json:"isAuthenticated"`
	}{alias(s), s.Authenticated()})
}

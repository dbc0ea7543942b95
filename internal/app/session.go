// Package app holds the application services and business logic.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"restoadmin/internal/domain"
	"restoadmin/internal/metrics"

	"golang.org/x/sync/singleflight"
)

var (
	// ErrNoAccessToken indicates that no access token is stored.
	ErrNoAccessToken = errors.New("no access token found")
	// ErrMissingTokens indicates a sign-in response without both tokens.
	ErrMissingTokens = errors.New("invalid response: missing tokens")
)

const (
	// DefaultRequestTimeout bounds profile and refresh calls.
	DefaultRequestTimeout = 10 * time.Second
	// DefaultLoginTimeout bounds login, register and Google sign-in calls.
	DefaultLoginTimeout = 15 * time.Second

	sessionExpiredMessage = "Session expired. Please login again."
)

// SessionOptions tunes a SessionManager. Zero values fall back to the defaults.
type SessionOptions struct {
	RequestTimeout time.Duration
	LoginTimeout   time.Duration
}

// LoginResult is the outcome of a sign-in. Login never returns a Go error;
// failures are reported through Success and Error.
type LoginResult struct {
	Success bool                `json:"success"`
	User    *domain.UserProfile `json:"user,omitempty"`
	Error   string              `json:"error,omitempty"`
	Warning string              `json:"warning,omitempty"`
}

// Result is a structured success/failure outcome.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// GoogleLoginResult is the outcome of a Google sign-in.
type GoogleLoginResult struct {
	Success   bool   `json:"success"`
	IsNewUser bool   `json:"isNewUser,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SessionManager owns the single authenticated identity of the client. It
// restores sessions from stored tokens, signs in and out, refreshes access
// tokens and guarantees at most one profile fetch in flight.
type SessionManager struct {
	auth  domain.AuthGateway
	creds domain.CredentialStore
	opts  SessionOptions

	profileGroup singleflight.Group
	refreshGroup singleflight.Group

	// tokenMu serialises writes to the credential store.
	tokenMu sync.Mutex

	mu       sync.Mutex
	user     *domain.UserProfile
	state    domain.SessionState
	loading  bool
	lastErr  string
	checking bool
	// gen changes on login and logout; results of operations started under an
	// older generation are dropped.
	gen uint64

	closed atomic.Bool
}

// NewSessionManager creates a session manager in the unknown state.
func NewSessionManager(auth domain.AuthGateway, creds domain.CredentialStore, opts SessionOptions) *SessionManager {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.LoginTimeout <= 0 {
		opts.LoginTimeout = DefaultLoginTimeout
	}
	return &SessionManager{
		auth:    auth,
		creds:   creds,
		opts:    opts,
		state:   domain.StateUnknown,
		loading: true,
	}
}

// Snapshot returns a copy of the current session.
func (s *SessionManager) Snapshot() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	var user *domain.UserProfile
	if s.user != nil {
		user = s.user.Merge(domain.ProfilePatch{})
	}
	return domain.Session{
		User:       user,
		State:      s.state,
		Loading:    s.loading,
		Error:      s.lastErr,
		IsChecking: s.checking,
	}
}

// Restore performs silent re-authentication from stored tokens. Without an
// access token the session settles anonymous without any network call.
func (s *SessionManager) Restore(ctx context.Context) error {
	gen := s.generation()

	token, err := s.creds.Get(ctx, domain.AccessTokenKey)
	if err != nil {
		s.apply(gen, func() {
			s.state = domain.StateAnonymous
			s.loading = false
			s.lastErr = "Could not read stored credentials"
		})
		return fmt.Errorf("read access token: %w", err)
	}
	if token == "" {
		log.Printf("session: no stored token, user not authenticated")
		s.apply(gen, func() {
			s.state = domain.StateAnonymous
			s.loading = false
		})
		return nil
	}

	_, err = s.CurrentUser(ctx)
	s.apply(s.generation(), func() {
		s.loading = false
		if domain.IsUnauthorized(err) {
			s.lastErr = sessionExpiredMessage
		}
	})
	return err
}

// CurrentUser fetches the profile for the stored access token. Concurrent
// callers share one in-flight fetch and its result.
func (s *SessionManager) CurrentUser(ctx context.Context) (*domain.UserProfile, error) {
	gen := s.generation()
	v, err, shared := s.profileGroup.Do("profile", func() (any, error) {
		return s.fetchCurrentUser(ctx, gen)
	})
	if shared {
		log.Printf("session: current user fetch already in progress, shared result")
	}
	if err != nil {
		return nil, err
	}
	return v.(*domain.UserProfile), nil
}

func (s *SessionManager) fetchCurrentUser(ctx context.Context, gen uint64) (*domain.UserProfile, error) {
	s.apply(gen, func() {
		s.checking = true
		if s.user == nil {
			s.state = domain.StateChecking
		}
	})
	defer s.apply(gen, func() { s.checking = false })

	token, err := s.creds.Get(ctx, domain.AccessTokenKey)
	if err == nil && token == "" {
		err = ErrNoAccessToken
	}
	if err != nil {
		s.settleAnonymous(gen, domain.ErrorMessage(err, "Authentication failed"))
		return nil, err
	}

	user, err := s.fetchProfile(ctx, token)
	if err == nil {
		metrics.ProfileFetches.WithLabelValues("success").Inc()
		s.settleAuthenticated(gen, user)
		return user, nil
	}

	if !domain.IsUnauthorized(err) {
		// Transient failure: the stored tokens may still be good.
		metrics.ProfileFetches.WithLabelValues("transient").Inc()
		log.Printf("session: fetch current user: %v", err)
		s.settleAnonymous(gen, domain.ErrorMessage(err, "Authentication failed"))
		return nil, err
	}

	metrics.ProfileFetches.WithLabelValues("unauthorized").Inc()
	s.apply(gen, func() { s.state = domain.StateRefreshing })
	if s.Refresh(ctx) && !s.closed.Load() {
		user, retryErr := s.retryProfile(ctx)
		if retryErr == nil {
			metrics.ProfileFetches.WithLabelValues("success").Inc()
			s.settleAuthenticated(gen, user)
			return user, nil
		}
		log.Printf("session: profile retry after refresh failed: %v", retryErr)
	}

	s.clearTokens(ctx, gen)
	s.settleAnonymous(gen, domain.ErrorMessage(err, "Authentication failed"))
	return nil, err
}

func (s *SessionManager) retryProfile(ctx context.Context) (*domain.UserProfile, error) {
	token, err := s.creds.Get(ctx, domain.AccessTokenKey)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrNoAccessToken
	}
	return s.fetchProfile(ctx, token)
}

func (s *SessionManager) fetchProfile(ctx context.Context, token string) (*domain.UserProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()
	return s.auth.Profile(ctx, token)
}

// Refresh exchanges the stored refresh token for a new access token.
// Without a refresh token it returns false and makes no call. An
// unauthorized answer clears both tokens; any other failure leaves them as
// they are. Concurrent callers share one exchange.
func (s *SessionManager) Refresh(ctx context.Context) bool {
	v, _, _ := s.refreshGroup.Do("refresh", func() (any, error) {
		return s.refresh(ctx), nil
	})
	return v.(bool)
}

func (s *SessionManager) refresh(ctx context.Context) bool {
	gen := s.generation()

	refreshToken, err := s.creds.Get(ctx, domain.RefreshTokenKey)
	if err != nil {
		log.Printf("session: read refresh token: %v", err)
		metrics.TokenRefreshes.WithLabelValues("transient").Inc()
		return false
	}
	if refreshToken == "" {
		log.Printf("session: %v", domain.ErrNoRefreshToken)
		metrics.TokenRefreshes.WithLabelValues("no_token").Inc()
		return false
	}

	rctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	pair, err := s.auth.Refresh(rctx, refreshToken)
	cancel()
	if err != nil {
		if domain.IsUnauthorized(err) {
			log.Printf("session: refresh token rejected, clearing credentials")
			metrics.TokenRefreshes.WithLabelValues("unauthorized").Inc()
			s.clearTokens(ctx, gen)
			return false
		}
		log.Printf("session: token refresh: %v", err)
		metrics.TokenRefreshes.WithLabelValues("transient").Inc()
		return false
	}
	if pair.Access == "" {
		log.Printf("session: token refresh returned no access token")
		metrics.TokenRefreshes.WithLabelValues("transient").Inc()
		return false
	}

	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()
	if s.generation() != gen {
		log.Printf("session: dropping refreshed token, session changed")
		return false
	}
	if err := domain.SaveTokens(ctx, s.creds, pair); err != nil {
		log.Printf("session: store refreshed token: %v", err)
		metrics.TokenRefreshes.WithLabelValues("transient").Inc()
		return false
	}
	metrics.TokenRefreshes.WithLabelValues("success").Inc()
	log.Printf("session: token refreshed")
	return true
}

// Login signs in with creds, stores the token pair and fetches the profile.
// A failed profile fetch does not fail the login; it is reported as Warning.
func (s *SessionManager) Login(ctx context.Context, creds domain.Credentials) LoginResult {
	s.setError("")
	log.Printf("session: login attempt for %q", creds.Username)

	lctx, cancel := context.WithTimeout(ctx, s.opts.LoginTimeout)
	resp, err := s.auth.Login(lctx, creds)
	cancel()
	if err == nil && !resp.Tokens.Complete() {
		err = ErrMissingTokens
	}
	if err != nil {
		msg := domain.ErrorMessage(err, "Login failed")
		log.Printf("session: login failed: %v", err)
		s.setError(msg)
		return LoginResult{Error: msg}
	}

	gen, err := s.startSession(ctx, resp.Tokens)
	if err != nil {
		log.Printf("session: store tokens: %v", err)
		s.setError("Could not store credentials")
		return LoginResult{Error: "Could not store credentials"}
	}
	s.rememberUsername(ctx, creds)

	result := LoginResult{Success: true}
	user, err := s.CurrentUser(ctx)
	if err == nil {
		result.User = user
		return result
	}

	log.Printf("session: could not fetch user after login: %v", err)
	result.Warning = domain.ErrorMessage(err, "Could not load profile")
	if resp.User != nil && !domain.IsUnauthorized(err) {
		s.settleAuthenticated(gen, resp.User)
		result.User = resp.User
	}
	return result
}

// Register creates an account. Username, email and password are required.
func (s *SessionManager) Register(ctx context.Context, reg domain.Registration) Result {
	s.setError("")
	if reg.Username == "" || reg.Password == "" || reg.Email == "" {
		msg := "Missing required fields"
		s.setError(msg)
		return Result{Error: msg}
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.LoginTimeout)
	defer cancel()
	if err := s.auth.Register(ctx, reg); err != nil {
		msg := domain.ErrorMessage(err, "Registration failed")
		log.Printf("session: register: %v", err)
		s.setError(msg)
		return Result{Error: msg}
	}
	log.Printf("session: registration successful for %q", reg.Username)
	return Result{Success: true}
}

// GoogleLoginURL returns the Google consent URL issued by the auth service.
func (s *SessionManager) GoogleLoginURL(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()
	return s.auth.GoogleLoginURL(ctx)
}

// LoginWithGoogle completes a Google sign-in with the authorization code.
func (s *SessionManager) LoginWithGoogle(ctx context.Context, code string) GoogleLoginResult {
	s.setError("")

	gctx, cancel := context.WithTimeout(ctx, s.opts.LoginTimeout)
	resp, err := s.auth.GoogleCallback(gctx, code)
	cancel()
	if err == nil && !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "Google login failed"
		}
		err = errors.New(msg)
	}
	if err == nil && !resp.Tokens.Complete() {
		err = ErrMissingTokens
	}
	if err != nil {
		msg := domain.ErrorMessage(err, "Google login failed")
		log.Printf("session: google login: %v", err)
		s.setError(msg)
		return GoogleLoginResult{Error: msg}
	}

	gen, err := s.startSession(ctx, resp.Tokens)
	if err != nil {
		log.Printf("session: store tokens: %v", err)
		s.setError("Could not store credentials")
		return GoogleLoginResult{Error: "Could not store credentials"}
	}
	if resp.User != nil {
		s.settleAuthenticated(gen, resp.User)
	}
	return GoogleLoginResult{Success: true, IsNewUser: resp.IsNewUser}
}

// Logout ends the session: tokens and user are cleared and any in-flight
// profile fetch is disowned.
func (s *SessionManager) Logout(ctx context.Context) error {
	log.Printf("session: logging out user")

	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()

	s.mu.Lock()
	s.gen++
	s.user = nil
	s.lastErr = ""
	s.checking = false
	s.loading = false
	s.state = domain.StateAnonymous
	s.mu.Unlock()

	s.profileGroup.Forget("profile")
	return domain.ClearTokens(ctx, s.creds)
}

// UpdateUser shallow-merges patch into the in-memory profile without a
// network call. It never changes the session state, so a profile built from
// a patch alone does not sign anyone in.
func (s *SessionManager) UpdateUser(patch domain.ProfilePatch) {
	if s.closed.Load() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = s.user.Merge(patch)
}

// SaveProfile sends patch to the auth service and adopts the returned profile.
func (s *SessionManager) SaveProfile(ctx context.Context, patch domain.ProfilePatch) (*domain.UserProfile, error) {
	var user *domain.UserProfile
	err := s.withAccessToken(ctx, func(ctx context.Context, token string) error {
		var err error
		user, err = s.auth.UpdateProfile(ctx, token, patch)
		return err
	})
	if err != nil {
		return nil, err
	}

	gen := s.generation()
	s.apply(gen, func() {
		s.user = user
		s.state = domain.StateAuthenticated
	})
	return user, nil
}

// ChangePassword changes the signed-in user's password.
func (s *SessionManager) ChangePassword(ctx context.Context, change domain.PasswordChange) error {
	if change.OldPassword == "" || change.NewPassword == "" {
		return &domain.ValidationError{Field: "new_password", Message: "Old and new password are required"}
	}
	if change.ConfirmPassword != "" && change.ConfirmPassword != change.NewPassword {
		return &domain.ValidationError{Field: "confirm_password", Message: "Passwords do not match"}
	}
	return s.withAccessToken(ctx, func(ctx context.Context, token string) error {
		return s.auth.ChangePassword(ctx, token, change)
	})
}

// RememberedUsername returns the username saved by a "remember me" sign-in.
func (s *SessionManager) RememberedUsername(ctx context.Context) (string, error) {
	return s.creds.Get(ctx, domain.UsernameKey)
}

// Close marks the session as torn down. Responses that arrive afterwards no
// longer change session state.
func (s *SessionManager) Close() {
	s.closed.Store(true)
}

// withAccessToken runs fn with the stored access token, refreshing and
// retrying once on an unauthorized answer.
func (s *SessionManager) withAccessToken(ctx context.Context, fn func(ctx context.Context, token string) error) error {
	call := func() error {
		token, err := s.creds.Get(ctx, domain.AccessTokenKey)
		if err != nil {
			return err
		}
		if token == "" {
			return ErrNoAccessToken
		}
		cctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
		return fn(cctx, token)
	}

	err := call()
	if !domain.IsUnauthorized(err) || !s.Refresh(ctx) {
		return err
	}
	return call()
}

func (s *SessionManager) startSession(ctx context.Context, tokens domain.TokenPair) (uint64, error) {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	s.profileGroup.Forget("profile")
	return gen, domain.SaveTokens(ctx, s.creds, tokens)
}

func (s *SessionManager) rememberUsername(ctx context.Context, creds domain.Credentials) {
	var err error
	if creds.Remember {
		err = s.creds.Set(ctx, domain.UsernameKey, creds.Username)
	} else {
		err = s.creds.Delete(ctx, domain.UsernameKey)
	}
	if err != nil {
		log.Printf("session: remember username: %v", err)
	}
}

func (s *SessionManager) clearTokens(ctx context.Context, gen uint64) {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()
	if s.generation() != gen {
		return
	}
	if err := domain.ClearTokens(ctx, s.creds); err != nil {
		log.Printf("session: clear tokens: %v", err)
	}
}

func (s *SessionManager) settleAuthenticated(gen uint64, user *domain.UserProfile) {
	s.apply(gen, func() {
		s.user = user
		s.state = domain.StateAuthenticated
		s.lastErr = ""
	})
}

func (s *SessionManager) settleAnonymous(gen uint64, msg string) {
	s.apply(gen, func() {
		s.user = nil
		s.state = domain.StateAnonymous
		s.lastErr = msg
	})
}

func (s *SessionManager) setError(msg string) {
	s.apply(s.generation(), func() { s.lastErr = msg })
}

func (s *SessionManager) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// apply runs fn under the state lock unless the manager is closed or the
// session generation moved on since gen was read.
func (s *SessionManager) apply(gen uint64, fn func()) bool {
	if s.closed.Load() {
		log.Printf("session: closed, skipping state update")
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	fn()
	return true
}

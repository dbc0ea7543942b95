package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"restoadmin/internal/domain"
)

type mockAuthGateway struct {
	loginFn          func(ctx context.Context, creds domain.Credentials) (*domain.LoginResponse, error)
	refreshFn        func(ctx context.Context, refreshToken string) (domain.TokenPair, error)
	registerFn       func(ctx context.Context, reg domain.Registration) error
	profileFn        func(ctx context.Context, accessToken string) (*domain.UserProfile, error)
	updateProfileFn  func(ctx context.Context, accessToken string, patch domain.ProfilePatch) (*domain.UserProfile, error)
	changePasswordFn func(ctx context.Context, accessToken string, change domain.PasswordChange) error
	googleURLFn      func(ctx context.Context) (string, error)
	googleCallbackFn func(ctx context.Context, code string) (*domain.GoogleLoginResponse, error)

	loginCalls   atomic.Int32
	refreshCalls atomic.Int32
	profileCalls atomic.Int32
}

func (m *mockAuthGateway) Login(ctx context.Context, creds domain.Credentials) (*domain.LoginResponse, error) {
	m.loginCalls.Add(1)
	if m.loginFn != nil {
		return m.loginFn(ctx, creds)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthGateway) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	m.refreshCalls.Add(1)
	if m.refreshFn != nil {
		return m.refreshFn(ctx, refreshToken)
	}
	return domain.TokenPair{}, errors.New("not implemented")
}

func (m *mockAuthGateway) Register(ctx context.Context, reg domain.Registration) error {
	if m.registerFn != nil {
		return m.registerFn(ctx, reg)
	}
	return nil
}

func (m *mockAuthGateway) Profile(ctx context.Context, accessToken string) (*domain.UserProfile, error) {
	m.profileCalls.Add(1)
	if m.profileFn != nil {
		return m.profileFn(ctx, accessToken)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthGateway) UpdateProfile(ctx context.Context, accessToken string, patch domain.ProfilePatch) (*domain.UserProfile, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, accessToken, patch)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthGateway) ChangePassword(ctx context.Context, accessToken string, change domain.PasswordChange) error {
	if m.changePasswordFn != nil {
		return m.changePasswordFn(ctx, accessToken, change)
	}
	return nil
}

func (m *mockAuthGateway) GoogleLoginURL(ctx context.Context) (string, error) {
	if m.googleURLFn != nil {
		return m.googleURLFn(ctx)
	}
	return "", errors.New("not implemented")
}

func (m *mockAuthGateway) GoogleCallback(ctx context.Context, code string) (*domain.GoogleLoginResponse, error) {
	if m.googleCallbackFn != nil {
		return m.googleCallbackFn(ctx, code)
	}
	return nil, errors.New("not implemented")
}

type mockCredentialStore struct {
	mu     sync.Mutex
	values map[domain.CredentialKey]string
	getErr error
}

func newMockCredentialStore(access, refresh string) *mockCredentialStore {
	s := &mockCredentialStore{values: map[domain.CredentialKey]string{}}
	if access != "" {
		s.values[domain.AccessTokenKey] = access
	}
	if refresh != "" {
		s.values[domain.RefreshTokenKey] = refresh
	}
	return s
}

func (s *mockCredentialStore) Get(_ context.Context, key domain.CredentialKey) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", s.getErr
	}
	return s.values[key], nil
}

func (s *mockCredentialStore) Set(_ context.Context, key domain.CredentialKey, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *mockCredentialStore) Delete(_ context.Context, keys ...domain.CredentialKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

func (s *mockCredentialStore) value(key domain.CredentialKey) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}

func unauthorized() error {
	return &domain.APIError{Status: http.StatusUnauthorized, Message: "Token is invalid or expired"}
}

func profileFor(token string) func(context.Context, string) (*domain.UserProfile, error) {
	return func(_ context.Context, accessToken string) (*domain.UserProfile, error) {
		if accessToken != token {
			return nil, unauthorized()
		}
		return &domain.UserProfile{ID: 1, Username: "admin", Role: "admin"}, nil
	}
}

func TestRestore_NoTokens(t *testing.T) {
	gw := &mockAuthGateway{}
	sm := NewSessionManager(gw, newMockCredentialStore("", ""), SessionOptions{})

	if err := sm.Restore(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := sm.Snapshot()
	if snap.State != domain.StateAnonymous || snap.User != nil || snap.Loading {
		t.Errorf("expected settled anonymous session, got %+v", snap)
	}
	if n := gw.profileCalls.Load() + gw.refreshCalls.Load(); n != 0 {
		t.Errorf("expected no network calls, got %d", n)
	}
}

func TestRestore_ValidToken(t *testing.T) {
	gw := &mockAuthGateway{profileFn: profileFor("A")}
	sm := NewSessionManager(gw, newMockCredentialStore("A", "R"), SessionOptions{})

	if err := sm.Restore(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := sm.Snapshot()
	if !snap.Authenticated() || snap.State != domain.StateAuthenticated {
		t.Fatalf("expected authenticated session, got %+v", snap)
	}
	if snap.User.Username != "admin" {
		t.Errorf("expected username admin, got %q", snap.User.Username)
	}
	if snap.Loading || snap.IsChecking {
		t.Errorf("expected loading and checking to be false, got %+v", snap)
	}
}

func TestRestore_ExpiredSession(t *testing.T) {
	gw := &mockAuthGateway{
		profileFn: profileFor("never"),
		refreshFn: func(_ context.Context, _ string) (domain.TokenPair, error) {
			return domain.TokenPair{}, unauthorized()
		},
	}
	creds := newMockCredentialStore("A", "R")
	sm := NewSessionManager(gw, creds, SessionOptions{})

	if err := sm.Restore(context.Background()); !domain.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
	snap := sm.Snapshot()
	if snap.State != domain.StateAnonymous || snap.User != nil {
		t.Errorf("expected anonymous session, got %+v", snap)
	}
	if snap.Error != "Session expired. Please login again." {
		t.Errorf("unexpected error message %q", snap.Error)
	}
	if creds.value(domain.AccessTokenKey) != "" || creds.value(domain.RefreshTokenKey) != "" {
		t.Error("expected tokens to be cleared")
	}
}

func TestCurrentUser_RefreshAndRetry(t *testing.T) {
	gw := &mockAuthGateway{
		profileFn: profileFor("A2"),
		refreshFn: func(_ context.Context, refreshToken string) (domain.TokenPair, error) {
			if refreshToken != "R" {
				t.Errorf("expected refresh token R, got %q", refreshToken)
			}
			return domain.TokenPair{Access: "A2"}, nil
		},
	}
	creds := newMockCredentialStore("A1", "R")
	sm := NewSessionManager(gw, creds, SessionOptions{})

	user, err := sm.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil || user.ID != 1 {
		t.Fatalf("expected user 1, got %+v", user)
	}
	if n := gw.profileCalls.Load(); n != 2 {
		t.Errorf("expected 2 profile calls, got %d", n)
	}
	if n := gw.refreshCalls.Load(); n != 1 {
		t.Errorf("expected 1 refresh call, got %d", n)
	}
	if got := creds.value(domain.AccessTokenKey); got != "A2" {
		t.Errorf("expected stored access token A2, got %q", got)
	}
	if got := creds.value(domain.RefreshTokenKey); got != "R" {
		t.Errorf("expected refresh token to be kept, got %q", got)
	}
	if sm.Snapshot().State != domain.StateAuthenticated {
		t.Errorf("expected authenticated, got %s", sm.Snapshot().State)
	}
}

func TestCurrentUser_RetryStillUnauthorized(t *testing.T) {
	gw := &mockAuthGateway{
		profileFn: profileFor("never"),
		refreshFn: func(_ context.Context, _ string) (domain.TokenPair, error) {
			return domain.TokenPair{Access: "A2"}, nil
		},
	}
	creds := newMockCredentialStore("A1", "R")
	sm := NewSessionManager(gw, creds, SessionOptions{})

	if _, err := sm.CurrentUser(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if n := gw.profileCalls.Load(); n != 2 {
		t.Errorf("expected 2 profile calls, got %d", n)
	}
	if n := gw.refreshCalls.Load(); n != 1 {
		t.Errorf("expected 1 refresh call, got %d", n)
	}
	if creds.value(domain.AccessTokenKey) != "" {
		t.Error("expected tokens to be cleared")
	}
}

func TestCurrentUser_LoneAccessToken(t *testing.T) {
	gw := &mockAuthGateway{profileFn: profileFor("never")}
	creds := newMockCredentialStore("A", "")
	sm := NewSessionManager(gw, creds, SessionOptions{})

	if _, err := sm.CurrentUser(context.Background()); !domain.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
	if n := gw.refreshCalls.Load(); n != 0 {
		t.Errorf("expected no refresh call, got %d", n)
	}
	if creds.value(domain.AccessTokenKey) != "" {
		t.Error("expected access token to be cleared")
	}
	if sm.Snapshot().State != domain.StateAnonymous {
		t.Errorf("expected anonymous, got %s", sm.Snapshot().State)
	}
}

func TestCurrentUser_TransientKeepsTokens(t *testing.T) {
	gw := &mockAuthGateway{
		profileFn: func(_ context.Context, _ string) (*domain.UserProfile, error) {
			return nil, &domain.TransportError{Op: "profile", Err: errors.New("connection refused")}
		},
	}
	creds := newMockCredentialStore("A", "R")
	sm := NewSessionManager(gw, creds, SessionOptions{})

	if _, err := sm.CurrentUser(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if creds.value(domain.AccessTokenKey) != "A" || creds.value(domain.RefreshTokenKey) != "R" {
		t.Error("expected tokens to be kept after a transient failure")
	}
	if n := gw.refreshCalls.Load(); n != 0 {
		t.Errorf("expected no refresh call, got %d", n)
	}
	snap := sm.Snapshot()
	if snap.State != domain.StateAnonymous {
		t.Errorf("expected anonymous, got %s", snap.State)
	}
	if snap.Error != domain.UnreachableMessage {
		t.Errorf("unexpected error message %q", snap.Error)
	}
}

func TestCurrentUser_Timeout(t *testing.T) {
	gw := &mockAuthGateway{
		profileFn: func(ctx context.Context, _ string) (*domain.UserProfile, error) {
			<-ctx.Done()
			return nil, &domain.TransportError{Op: "profile", Err: ctx.Err()}
		},
	}
	creds := newMockCredentialStore("A", "R")
	sm := NewSessionManager(gw, creds, SessionOptions{RequestTimeout: 20 * time.Millisecond})

	_, err := sm.CurrentUser(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if domain.Classify(err) != domain.KindTransient {
		t.Errorf("expected transient kind, got %s", domain.Classify(err))
	}
	if creds.value(domain.AccessTokenKey) != "A" {
		t.Error("expected tokens to be kept after a timeout")
	}
}

func TestCurrentUser_ConcurrentCallersShareFetch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	gw := &mockAuthGateway{
		profileFn: func(_ context.Context, _ string) (*domain.UserProfile, error) {
			once.Do(func() { close(started) })
			<-release
			return &domain.UserProfile{ID: 7, Username: "cashier"}, nil
		},
	}
	sm := NewSessionManager(gw, newMockCredentialStore("A", "R"), SessionOptions{})

	const callers = 3
	users := make([]*domain.UserProfile, callers)
	var wg sync.WaitGroup
	call := func(i int) {
		defer wg.Done()
		u, err := sm.CurrentUser(context.Background())
		if err != nil {
			t.Errorf("caller %d: unexpected error: %v", i, err)
		}
		users[i] = u
	}

	wg.Add(1)
	go call(0)
	<-started
	for i := 1; i < callers; i++ {
		wg.Add(1)
		go call(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := gw.profileCalls.Load(); n != 1 {
		t.Errorf("expected 1 profile call, got %d", n)
	}
	for i, u := range users {
		if u == nil || u.ID != 7 {
			t.Errorf("caller %d: expected shared user 7, got %+v", i, u)
		}
	}
}

func TestRefresh(t *testing.T) {
	tests := []struct {
		name        string
		refresh     string
		refreshFn   func(context.Context, string) (domain.TokenPair, error)
		wantOK      bool
		wantCalls   int32
		wantAccess  string
		wantRefresh string
	}{
		{
			name:        "no refresh token",
			wantOK:      false,
			wantCalls:   0,
			wantAccess:  "A",
			wantRefresh: "",
		},
		{
			name:    "rotated",
			refresh: "R",
			refreshFn: func(_ context.Context, _ string) (domain.TokenPair, error) {
				return domain.TokenPair{Access: "A2", Refresh: "R2"}, nil
			},
			wantOK:      true,
			wantCalls:   1,
			wantAccess:  "A2",
			wantRefresh: "R2",
		},
		{
			name:    "access only",
			refresh: "R",
			refreshFn: func(_ context.Context, _ string) (domain.TokenPair, error) {
				return domain.TokenPair{Access: "A2"}, nil
			},
			wantOK:      true,
			wantCalls:   1,
			wantAccess:  "A2",
			wantRefresh: "R",
		},
		{
			name:    "rejected",
			refresh: "R",
			refreshFn: func(_ context.Context, _ string) (domain.TokenPair, error) {
				return domain.TokenPair{}, unauthorized()
			},
			wantOK:      false,
			wantCalls:   1,
			wantAccess:  "",
			wantRefresh: "",
		},
		{
			name:    "server error",
			refresh: "R",
			refreshFn: func(_ context.Context, _ string) (domain.TokenPair, error) {
				return domain.TokenPair{}, &domain.APIError{Status: http.StatusBadGateway}
			},
			wantOK:      false,
			wantCalls:   1,
			wantAccess:  "A",
			wantRefresh: "R",
		},
		{
			name:    "no access token in response",
			refresh: "R",
			refreshFn: func(_ context.Context, _ string) (domain.TokenPair, error) {
				return domain.TokenPair{}, nil
			},
			wantOK:      false,
			wantCalls:   1,
			wantAccess:  "A",
			wantRefresh: "R",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gw := &mockAuthGateway{refreshFn: tc.refreshFn}
			creds := newMockCredentialStore("A", tc.refresh)
			sm := NewSessionManager(gw, creds, SessionOptions{})

			if got := sm.Refresh(context.Background()); got != tc.wantOK {
				t.Errorf("Refresh() = %v, want %v", got, tc.wantOK)
			}
			if n := gw.refreshCalls.Load(); n != tc.wantCalls {
				t.Errorf("expected %d refresh calls, got %d", tc.wantCalls, n)
			}
			if got := creds.value(domain.AccessTokenKey); got != tc.wantAccess {
				t.Errorf("access token = %q, want %q", got, tc.wantAccess)
			}
			if got := creds.value(domain.RefreshTokenKey); got != tc.wantRefresh {
				t.Errorf("refresh token = %q, want %q", got, tc.wantRefresh)
			}
		})
	}
}

func TestRefresh_ConcurrentCallersShareExchange(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	gw := &mockAuthGateway{
		refreshFn: func(_ context.Context, _ string) (domain.TokenPair, error) {
			once.Do(func() { close(started) })
			<-release
			return domain.TokenPair{Access: "A2"}, nil
		},
	}
	sm := NewSessionManager(gw, newMockCredentialStore("A", "R"), SessionOptions{})

	results := make(chan bool, 2)
	go func() { results <- sm.Refresh(context.Background()) }()
	<-started
	go func() { results <- sm.Refresh(context.Background()) }()
	time.Sleep(50 * time.Millisecond)
	close(release)

	for i := 0; i < 2; i++ {
		if !<-results {
			t.Error("expected refresh to succeed")
		}
	}
	if n := gw.refreshCalls.Load(); n != 1 {
		t.Errorf("expected 1 refresh call, got %d", n)
	}
}

func TestLogin_Success(t *testing.T) {
	gw := &mockAuthGateway{
		loginFn: func(_ context.Context, creds domain.Credentials) (*domain.LoginResponse, error) {
			if creds.Username != "admin" || creds.Password != "secret" {
				t.Errorf("unexpected credentials %+v", creds)
			}
			return &domain.LoginResponse{Tokens: domain.TokenPair{Access: "A", Refresh: "R"}}, nil
		},
		profileFn: profileFor("A"),
	}
	creds := newMockCredentialStore("", "")
	sm := NewSessionManager(gw, creds, SessionOptions{})

	res := sm.Login(context.Background(), domain.Credentials{Username: "admin", Password: "secret", Remember: true})
	if !res.Success || res.Error != "" || res.Warning != "" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.User == nil || res.User.Username != "admin" {
		t.Errorf("expected user admin, got %+v", res.User)
	}
	if creds.value(domain.AccessTokenKey) != "A" || creds.value(domain.RefreshTokenKey) != "R" {
		t.Error("expected both tokens to be stored")
	}
	if got, _ := sm.RememberedUsername(context.Background()); got != "admin" {
		t.Errorf("expected remembered username admin, got %q", got)
	}
	if !sm.Snapshot().Authenticated() {
		t.Error("expected authenticated session")
	}
}

func TestLogin_ForgetsUsername(t *testing.T) {
	gw := &mockAuthGateway{
		loginFn: func(_ context.Context, _ domain.Credentials) (*domain.LoginResponse, error) {
			return &domain.LoginResponse{Tokens: domain.TokenPair{Access: "A", Refresh: "R"}}, nil
		},
		profileFn: profileFor("A"),
	}
	creds := newMockCredentialStore("", "")
	creds.values[domain.UsernameKey] = "someone"
	sm := NewSessionManager(gw, creds, SessionOptions{})

	sm.Login(context.Background(), domain.Credentials{Username: "admin", Password: "secret"})
	if got := creds.value(domain.UsernameKey); got != "" {
		t.Errorf("expected remembered username to be removed, got %q", got)
	}
}

func TestLogin_Failure(t *testing.T) {
	tests := []struct {
		name    string
		loginFn func(context.Context, domain.Credentials) (*domain.LoginResponse, error)
		wantMsg string
	}{
		{
			name: "api message",
			loginFn: func(_ context.Context, _ domain.Credentials) (*domain.LoginResponse, error) {
				return nil, &domain.APIError{Status: http.StatusUnauthorized, Message: "Invalid credentials"}
			},
			wantMsg: "Invalid credentials",
		},
		{
			name: "api without message",
			loginFn: func(_ context.Context, _ domain.Credentials) (*domain.LoginResponse, error) {
				return nil, &domain.APIError{Status: http.StatusInternalServerError}
			},
			wantMsg: "Login failed",
		},
		{
			name: "unreachable",
			loginFn: func(_ context.Context, _ domain.Credentials) (*domain.LoginResponse, error) {
				return nil, &domain.TransportError{Op: "login", Err: errors.New("dial tcp: refused")}
			},
			wantMsg: domain.UnreachableMessage,
		},
		{
			name: "missing refresh token",
			loginFn: func(_ context.Context, _ domain.Credentials) (*domain.LoginResponse, error) {
				return &domain.LoginResponse{Tokens: domain.TokenPair{Access: "A"}}, nil
			},
			wantMsg: ErrMissingTokens.Error(),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gw := &mockAuthGateway{loginFn: tc.loginFn}
			creds := newMockCredentialStore("", "")
			sm := NewSessionManager(gw, creds, SessionOptions{})

			res := sm.Login(context.Background(), domain.Credentials{Username: "admin", Password: "bad"})
			if res.Success {
				t.Fatal("expected failure")
			}
			if res.Error != tc.wantMsg {
				t.Errorf("error = %q, want %q", res.Error, tc.wantMsg)
			}
			if sm.Snapshot().Error != tc.wantMsg {
				t.Errorf("session error = %q, want %q", sm.Snapshot().Error, tc.wantMsg)
			}
			if creds.value(domain.AccessTokenKey) != "" {
				t.Error("expected no token to be stored")
			}
			if n := gw.profileCalls.Load(); n != 0 {
				t.Errorf("expected no profile call, got %d", n)
			}
		})
	}
}

func TestLogin_ProfileFailureIsWarning(t *testing.T) {
	embedded := &domain.UserProfile{ID: 3, Username: "manager"}
	gw := &mockAuthGateway{
		loginFn: func(_ context.Context, _ domain.Credentials) (*domain.LoginResponse, error) {
			return &domain.LoginResponse{Tokens: domain.TokenPair{Access: "A", Refresh: "R"}, User: embedded}, nil
		},
		profileFn: func(_ context.Context, _ string) (*domain.UserProfile, error) {
			return nil, &domain.TransportError{Op: "profile", Err: errors.New("timeout")}
		},
	}
	creds := newMockCredentialStore("", "")
	sm := NewSessionManager(gw, creds, SessionOptions{})

	res := sm.Login(context.Background(), domain.Credentials{Username: "manager", Password: "pw"})
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Warning != domain.UnreachableMessage {
		t.Errorf("unexpected warning %q", res.Warning)
	}
	if res.User == nil || res.User.ID != 3 {
		t.Errorf("expected embedded user, got %+v", res.User)
	}
	if creds.value(domain.AccessTokenKey) != "A" {
		t.Error("expected tokens to be kept")
	}
	if !sm.Snapshot().Authenticated() {
		t.Error("expected authenticated session from embedded user")
	}
}

func TestLogout_DisownsInFlightFetch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	gw := &mockAuthGateway{
		profileFn: func(_ context.Context, _ string) (*domain.UserProfile, error) {
			close(started)
			<-release
			return &domain.UserProfile{ID: 1, Username: "admin"}, nil
		},
	}
	creds := newMockCredentialStore("A", "R")
	creds.values[domain.UsernameKey] = "admin"
	sm := NewSessionManager(gw, creds, SessionOptions{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = sm.CurrentUser(context.Background())
	}()
	<-started
	if err := sm.Logout(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(release)
	<-done

	snap := sm.Snapshot()
	if snap.User != nil || snap.State != domain.StateAnonymous {
		t.Errorf("expected late response to be dropped, got %+v", snap)
	}
	if creds.value(domain.AccessTokenKey) != "" || creds.value(domain.RefreshTokenKey) != "" {
		t.Error("expected tokens to be cleared")
	}
	if creds.value(domain.UsernameKey) != "admin" {
		t.Error("expected remembered username to survive logout")
	}
}

func TestUpdateUser_Merge(t *testing.T) {
	gw := &mockAuthGateway{profileFn: profileFor("A")}
	sm := NewSessionManager(gw, newMockCredentialStore("A", "R"), SessionOptions{})
	if err := sm.Restore(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	email := "admin@example.com"
	sm.UpdateUser(domain.ProfilePatch{Email: &email})

	u := sm.Snapshot().User
	if u.Email != email {
		t.Errorf("expected email %q, got %q", email, u.Email)
	}
	if u.Username != "admin" || u.Role != "admin" {
		t.Errorf("expected other fields to be kept, got %+v", u)
	}
	if n := gw.profileCalls.Load(); n != 1 {
		t.Errorf("expected no extra network call, got %d profile calls", n)
	}
}

func TestUpdateUser_NilUser(t *testing.T) {
	sm := NewSessionManager(&mockAuthGateway{}, newMockCredentialStore("", ""), SessionOptions{})
	name := "guest"
	sm.UpdateUser(domain.ProfilePatch{Username: &name})

	snap := sm.Snapshot()
	if snap.User == nil || snap.User.Username != "guest" {
		t.Errorf("expected profile built from patch, got %+v", snap.User)
	}
	if snap.State == domain.StateAuthenticated || snap.SignedIn() {
		t.Errorf("expected a patched-in profile not to sign in, got %+v", snap)
	}
}

func TestClose_SuppressesStateUpdates(t *testing.T) {
	gw := &mockAuthGateway{profileFn: profileFor("A")}
	sm := NewSessionManager(gw, newMockCredentialStore("A", "R"), SessionOptions{})
	sm.Close()

	user, err := sm.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil {
		t.Fatal("expected the fetched user to be returned")
	}
	if snap := sm.Snapshot(); snap.User != nil || snap.State != domain.StateUnknown {
		t.Errorf("expected untouched session after close, got %+v", snap)
	}
}

func TestRegister(t *testing.T) {
	t.Run("missing fields", func(t *testing.T) {
		sm := NewSessionManager(&mockAuthGateway{}, newMockCredentialStore("", ""), SessionOptions{})
		res := sm.Register(context.Background(), domain.Registration{Username: "u", Password: "p"})
		if res.Success || res.Error != "Missing required fields" {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("field errors", func(t *testing.T) {
		gw := &mockAuthGateway{
			registerFn: func(_ context.Context, _ domain.Registration) error {
				return &domain.APIError{Status: http.StatusBadRequest, Message: "A user with that username already exists."}
			},
		}
		sm := NewSessionManager(gw, newMockCredentialStore("", ""), SessionOptions{})
		res := sm.Register(context.Background(), domain.Registration{Username: "u", Email: "e@x.io", Password: "p"})
		if res.Success || res.Error != "A user with that username already exists." {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("success", func(t *testing.T) {
		sm := NewSessionManager(&mockAuthGateway{}, newMockCredentialStore("", ""), SessionOptions{})
		res := sm.Register(context.Background(), domain.Registration{Username: "u", Email: "e@x.io", Password: "p"})
		if !res.Success {
			t.Errorf("unexpected result %+v", res)
		}
	})
}

func TestLoginWithGoogle(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		gw := &mockAuthGateway{
			googleCallbackFn: func(_ context.Context, code string) (*domain.GoogleLoginResponse, error) {
				if code != "code-1" {
					t.Errorf("unexpected code %q", code)
				}
				return &domain.GoogleLoginResponse{
					Success:   true,
					Tokens:    domain.TokenPair{Access: "GA", Refresh: "GR"},
					User:      &domain.UserProfile{ID: 9, Username: "gina"},
					IsNewUser: true,
				}, nil
			},
		}
		creds := newMockCredentialStore("", "")
		sm := NewSessionManager(gw, creds, SessionOptions{})

		res := sm.LoginWithGoogle(context.Background(), "code-1")
		if !res.Success || !res.IsNewUser {
			t.Fatalf("unexpected result %+v", res)
		}
		if creds.value(domain.AccessTokenKey) != "GA" {
			t.Error("expected access token to be stored")
		}
		if u := sm.Snapshot().User; u == nil || u.ID != 9 {
			t.Errorf("expected user 9, got %+v", u)
		}
		if n := gw.profileCalls.Load(); n != 0 {
			t.Errorf("expected no profile call, got %d", n)
		}
	})

	t.Run("rejected", func(t *testing.T) {
		gw := &mockAuthGateway{
			googleCallbackFn: func(_ context.Context, _ string) (*domain.GoogleLoginResponse, error) {
				return &domain.GoogleLoginResponse{Success: false, Message: "Account disabled"}, nil
			},
		}
		sm := NewSessionManager(gw, newMockCredentialStore("", ""), SessionOptions{})
		res := sm.LoginWithGoogle(context.Background(), "code-1")
		if res.Success || res.Error != "Account disabled" {
			t.Errorf("unexpected result %+v", res)
		}
	})
}

func TestSaveProfile_RefreshesOnce(t *testing.T) {
	var updates atomic.Int32
	gw := &mockAuthGateway{
		refreshFn: func(_ context.Context, _ string) (domain.TokenPair, error) {
			return domain.TokenPair{Access: "A2"}, nil
		},
		updateProfileFn: func(_ context.Context, token string, patch domain.ProfilePatch) (*domain.UserProfile, error) {
			updates.Add(1)
			if token != "A2" {
				return nil, unauthorized()
			}
			return (&domain.UserProfile{ID: 1, Username: "admin"}).Merge(patch), nil
		},
	}
	sm := NewSessionManager(gw, newMockCredentialStore("A1", "R"), SessionOptions{})

	phone := "0900000000"
	user, err := sm.SaveProfile(context.Background(), domain.ProfilePatch{Phone: &phone})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Phone != phone {
		t.Errorf("expected phone %q, got %q", phone, user.Phone)
	}
	if n := updates.Load(); n != 2 {
		t.Errorf("expected 2 update calls, got %d", n)
	}
	if n := gw.refreshCalls.Load(); n != 1 {
		t.Errorf("expected 1 refresh call, got %d", n)
	}
}

func TestChangePassword_Validation(t *testing.T) {
	called := false
	gw := &mockAuthGateway{
		changePasswordFn: func(_ context.Context, _ string, _ domain.PasswordChange) error {
			called = true
			return nil
		},
	}
	sm := NewSessionManager(gw, newMockCredentialStore("A", "R"), SessionOptions{})

	err := sm.ChangePassword(context.Background(), domain.PasswordChange{OldPassword: "a", NewPassword: "b", ConfirmPassword: "c"})
	if domain.Classify(err) != domain.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if called {
		t.Error("expected no call to the auth service")
	}

	if err := sm.ChangePassword(context.Background(), domain.PasswordChange{OldPassword: "a", NewPassword: "b", ConfirmPassword: "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected a call to the auth service")
	}
}

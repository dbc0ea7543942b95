package domain_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"restoadmin/internal/domain"
)

func TestExtractMessage(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		flatten bool
		want    string
	}{
		{"nested detail wins", `{"body":{"detail":"nested"},"detail":"top","message":"msg"}`, false, "nested"},
		{"top-level detail", `{"detail":"top","message":"msg"}`, false, "top"},
		{"message", `{"message":"msg"}`, false, "msg"},
		{"errors object", `{"errors":{"phone":["invalid phone"],"name":["required"]}}`, false, "required, invalid phone"},
		{"field errors ignored", `{"username":["taken"]}`, false, ""},
		{"field errors flattened", `{"username":["taken"],"email":["bad email"]}`, true, "bad email, taken"},
		{"not json", `<html>502</html>`, false, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := domain.ExtractMessage([]byte(tc.body), tc.flatten); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.ErrorKind
	}{
		{"validation", &domain.ValidationError{Field: "phone", Message: "required"}, domain.KindValidation},
		{"unauthorized", &domain.APIError{Status: 401}, domain.KindAuth},
		{"forbidden", fmt.Errorf("wrapped: %w", &domain.APIError{Status: 403}), domain.KindAuth},
		{"server", &domain.APIError{Status: 503}, domain.KindServer},
		{"client", &domain.APIError{Status: 404}, domain.KindClient},
		{"transport", &domain.TransportError{Op: "GET /x", Err: context.DeadlineExceeded}, domain.KindTransient},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := domain.Classify(tc.err); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTransportErrorUnwrap(t *testing.T) {
	err := &domain.TransportError{Op: "POST /login", Err: context.DeadlineExceeded}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("expected TransportError to unwrap to its cause")
	}
	if domain.IsUnauthorized(err) {
		t.Fatal("transport error must not count as unauthorized")
	}
}

func TestProfileMerge(t *testing.T) {
	staff := true
	u := &domain.UserProfile{ID: 1, Username: "an", Role: "manager", Permissions: []string{"billing.view"}, IsStaff: &staff}

	email := "an@example.com"
	merged := u.Merge(domain.ProfilePatch{Email: &email})
	if merged.Email != email || merged.Username != "an" || merged.Role != "manager" {
		t.Fatalf("unexpected merge result: %+v", merged)
	}
	if u.Email != "" {
		t.Fatal("merge must not modify the receiver")
	}

	var nilProfile *domain.UserProfile
	name := "binh"
	if got := nilProfile.Merge(domain.ProfilePatch{Username: &name}); got.Username != "binh" {
		t.Fatalf("expected profile from patch, got %+v", got)
	}
}

func TestHasPermission(t *testing.T) {
	super := true
	tests := []struct {
		name string
		user *domain.UserProfile
		want bool
	}{
		{"nil user", nil, false},
		{"granted", &domain.UserProfile{Permissions: []string{"menu.edit"}}, true},
		{"missing", &domain.UserProfile{Permissions: []string{"menu.view"}}, false},
		{"superuser", &domain.UserProfile{IsSuperuser: &super}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.user.HasPermission("menu.edit"); got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		fallback string
		want     string
	}{
		{"api message", &domain.APIError{Status: 400, Message: "Invalid credentials"}, "Login failed", "Invalid credentials"},
		{"api without message", &domain.APIError{Status: 401}, "Authentication failed", "Authentication failed"},
		{"api without message or fallback", &domain.APIError{Status: 500}, "", "Server error: 500"},
		{"transport", &domain.TransportError{Op: "GET /", Err: errors.New("dial tcp: refused")}, "x", domain.UnreachableMessage},
		{"plain", errors.New("boom"), "x", "boom"},
		{"nil", nil, "x", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := domain.ErrorMessage(tc.err, tc.fallback); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

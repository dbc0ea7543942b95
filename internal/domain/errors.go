package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrNoRefreshToken indicates that no refresh token is stored.
var ErrNoRefreshToken = errors.New("no refresh token")

// UnreachableMessage is shown when a request got no response at all.
const UnreachableMessage = "Cannot reach the server. Please check your network connection."

// ErrorKind classifies failures for presentation.
type ErrorKind string

// Error kinds.
const (
	KindValidation ErrorKind = "validation"
	KindAuth       ErrorKind = "auth"
	KindTransient  ErrorKind = "transient"
	KindServer     ErrorKind = "server"
	KindClient     ErrorKind = "client"
)

// ValidationError is a missing or malformed form field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// APIError is a non-2xx response from a collaborator service.
type APIError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.Status)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// TransportError means the request never produced a response (network failure, timeout).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 from a collaborator.
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// Classify maps err onto the error taxonomy.
func Classify(err error) ErrorKind {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return KindValidation
	}
	var tErr *TransportError
	if errors.As(err, &tErr) {
		return KindTransient
	}
	switch status := StatusOf(err); {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status >= 500:
		return KindServer
	case status >= 400:
		return KindClient
	}
	return KindTransient
}

// ErrorMessage returns the human-readable message for err. API errors without
// a message yield fallback, or "Server error: <status>" when fallback is empty.
func ErrorMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		if fallback == "" {
			return fmt.Sprintf("Server error: %d", apiErr.Status)
		}
		return fallback
	}
	var tErr *TransportError
	if errors.As(err, &tErr) {
		return UnreachableMessage
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr.Message
	}
	if err.Error() != "" {
		return err.Error()
	}
	return fallback
}

// ExtractMessage pulls a message out of an error response body. Priority:
// body.detail, detail, message, then the flattened "errors" object. When
// flattenFields is set, the remaining top-level field errors are joined as a
// last resort (the register form reports per-field messages that way).
// It returns "" when nothing usable is found.
func ExtractMessage(body []byte, flattenFields bool) string {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return ""
	}
	if nested, ok := m["body"].(map[string]any); ok {
		if s := stringValue(nested["detail"]); s != "" {
			return s
		}
	}
	if s := stringValue(m["detail"]); s != "" {
		return s
	}
	if s := stringValue(m["message"]); s != "" {
		return s
	}
	if errs, ok := m["errors"].(map[string]any); ok {
		if s := flatten(errs); s != "" {
			return s
		}
	}
	if flattenFields {
		return flatten(m)
	}
	return ""
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			if s, ok := p.(string); ok && s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

func flatten(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		if s := stringValue(m[k]); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"restoadmin/internal/domain"
)

// UsersAPI implements domain.UserRepository against the auth service's
// administration endpoints.
type UsersAPI struct {
	c *Client
}

var _ domain.UserRepository = (*UsersAPI)(nil)

// NewUsersAPI creates a UsersAPI.
func NewUsersAPI(c *Client) *UsersAPI {
	return &UsersAPI{c: c}
}

func (a *UsersAPI) ListUsers(ctx context.Context, search string) ([]domain.ManagedUser, error) {
	var q url.Values
	if search != "" {
		q = url.Values{"search": {search}}
	}
	var raw json.RawMessage
	if err := a.c.Do(ctx, http.MethodGet, "/api/auth/users/", q, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[domain.ManagedUser](raw)
}

func (a *UsersAPI) GetUser(ctx context.Context, id int64) (*domain.ManagedUser, error) {
	var out domain.ManagedUser
	if err := a.c.Do(ctx, http.MethodGet, fmt.Sprintf("/api/auth/users/%d/", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *UsersAPI) CreateUser(ctx context.Context, in domain.UserInput) (*domain.ManagedUser, error) {
	var out domain.ManagedUser
	if err := a.c.Do(ctx, http.MethodPost, "/api/auth/users/", nil, in, &out, WithFieldErrors()); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *UsersAPI) UpdateUser(ctx context.Context, id int64, in domain.UserInput) (*domain.ManagedUser, error) {
	var out domain.ManagedUser
	if err := a.c.Do(ctx, http.MethodPatch, fmt.Sprintf("/api/auth/users/%d/", id), nil, in, &out, WithFieldErrors()); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *UsersAPI) DeleteUser(ctx context.Context, id int64) error {
	return a.c.Do(ctx, http.MethodDelete, fmt.Sprintf("/api/auth/users/%d/", id), nil, nil, nil)
}

// UserAction posts to /api/auth/users/{id}/{action}/, e.g. activate or change_role.
func (a *UsersAPI) UserAction(ctx context.Context, id int64, action string, payload any) error {
	if payload == nil {
		payload = struct{}{}
	}
	path := fmt.Sprintf("/api/auth/users/%d/%s/", id, url.PathEscape(action))
	return a.c.Do(ctx, http.MethodPost, path, nil, payload, nil)
}

func (a *UsersAPI) ListRoles(ctx context.Context) ([]domain.Role, error) {
	var raw json.RawMessage
	if err := a.c.Do(ctx, http.MethodGet, "/api/auth/roles/", nil, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[domain.Role](raw)
}

func (a *UsersAPI) CreateRole(ctx context.Context, r domain.Role) (*domain.Role, error) {
	var out domain.Role
	if err := a.c.Do(ctx, http.MethodPost, "/api/auth/roles/", nil, r, &out, WithFieldErrors()); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *UsersAPI) UpdateRole(ctx context.Context, id int64, r domain.Role) (*domain.Role, error) {
	var out domain.Role
	if err := a.c.Do(ctx, http.MethodPut, fmt.Sprintf("/api/auth/roles/%d/", id), nil, r, &out, WithFieldErrors()); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *UsersAPI) DeleteRole(ctx context.Context, id int64) error {
	return a.c.Do(ctx, http.MethodDelete, fmt.Sprintf("/api/auth/roles/%d/", id), nil, nil, nil)
}

func (a *UsersAPI) ListPermissions(ctx context.Context) ([]domain.Permission, error) {
	var raw json.RawMessage
	if err := a.c.Do(ctx, http.MethodGet, "/api/auth/permissions/", nil, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[domain.Permission](raw)
}

func (a *UsersAPI) ActivityLogs(ctx context.Context) ([]domain.ActivityLog, error) {
	var raw json.RawMessage
	if err := a.c.Do(ctx, http.MethodGet, "/api/auth/activity-logs/", nil, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[domain.ActivityLog](raw)
}

func (a *UsersAPI) LoginHistory(ctx context.Context) ([]domain.ActivityLog, error) {
	var raw json.RawMessage
	if err := a.c.Do(ctx, http.MethodGet, "/api/auth/login-history/", nil, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[domain.ActivityLog](raw)
}

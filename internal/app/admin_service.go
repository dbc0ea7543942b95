package app

import (
	"context"
	"strings"

	"restoadmin/internal/domain"
)

// User actions understood by the user administration endpoints.
const (
	ActionActivate      = "activate"
	ActionDeactivate    = "deactivate"
	ActionUnlock        = "unlock"
	ActionResetPassword = "reset_password"
	ActionChangeRole    = "change_role"
)

// AdminService covers user, role and audit administration.
type AdminService struct {
	repo domain.UserRepository
}

// NewAdminService creates an AdminService backed by the given repository.
func NewAdminService(repo domain.UserRepository) *AdminService {
	return &AdminService{repo: repo}
}

func (s *AdminService) ListUsers(ctx context.Context, search string) ([]domain.ManagedUser, error) {
	return s.repo.ListUsers(ctx, strings.TrimSpace(search))
}

func (s *AdminService) GetUser(ctx context.Context, id int64) (*domain.ManagedUser, error) {
	return s.repo.GetUser(ctx, id)
}

// CreateUser requires username, email and password.
func (s *AdminService) CreateUser(ctx context.Context, in domain.UserInput) (*domain.ManagedUser, error) {
	switch {
	case strings.TrimSpace(in.Username) == "":
		return nil, &domain.ValidationError{Field: "username", Message: "Username is required"}
	case strings.TrimSpace(in.Email) == "":
		return nil, &domain.ValidationError{Field: "email", Message: "Email is required"}
	case in.Password == "":
		return nil, &domain.ValidationError{Field: "password", Message: "Password is required"}
	}
	return s.repo.CreateUser(ctx, in)
}

// UpdateUser never sends a password; use ResetPassword for that.
func (s *AdminService) UpdateUser(ctx context.Context, id int64, in domain.UserInput) (*domain.ManagedUser, error) {
	in.Password = ""
	return s.repo.UpdateUser(ctx, id, in)
}

func (s *AdminService) DeleteUser(ctx context.Context, id int64) error {
	return s.repo.DeleteUser(ctx, id)
}

func (s *AdminService) Activate(ctx context.Context, id int64) error {
	return s.repo.UserAction(ctx, id, ActionActivate, nil)
}

func (s *AdminService) Deactivate(ctx context.Context, id int64) error {
	return s.repo.UserAction(ctx, id, ActionDeactivate, nil)
}

func (s *AdminService) Unlock(ctx context.Context, id int64) error {
	return s.repo.UserAction(ctx, id, ActionUnlock, nil)
}

func (s *AdminService) ResetPassword(ctx context.Context, id int64, newPassword string) error {
	if newPassword == "" {
		return &domain.ValidationError{Field: "new_password", Message: "New password is required"}
	}
	return s.repo.UserAction(ctx, id, ActionResetPassword, map[string]string{"new_password": newPassword})
}

func (s *AdminService) ChangeRole(ctx context.Context, id int64, role string) error {
	if role == "" {
		return &domain.ValidationError{Field: "role", Message: "Role is required"}
	}
	return s.repo.UserAction(ctx, id, ActionChangeRole, map[string]string{"role": role})
}

func (s *AdminService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	return s.repo.ListRoles(ctx)
}

func (s *AdminService) CreateRole(ctx context.Context, r domain.Role) (*domain.Role, error) {
	if strings.TrimSpace(r.Name) == "" {
		return nil, &domain.ValidationError{Field: "name", Message: "Role name is required"}
	}
	return s.repo.CreateRole(ctx, r)
}

func (s *AdminService) UpdateRole(ctx context.Context, id int64, r domain.Role) (*domain.Role, error) {
	return s.repo.UpdateRole(ctx, id, r)
}

func (s *AdminService) DeleteRole(ctx context.Context, id int64) error {
	return s.repo.DeleteRole(ctx, id)
}

func (s *AdminService) ListPermissions(ctx context.Context) ([]domain.Permission, error) {
	return s.repo.ListPermissions(ctx)
}

func (s *AdminService) ActivityLogs(ctx context.Context) ([]domain.ActivityLog, error) {
	return s.repo.ActivityLogs(ctx)
}

func (s *AdminService) LoginHistory(ctx context.Context) ([]domain.ActivityLog, error) {
	return s.repo.LoginHistory(ctx)
}

package domain

import (
	"context"
	"time"
)

// ManagedUser is a user account as seen by the user-management screen.
type ManagedUser struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name,omitempty"`
	LastName    string     `json:"last_name,omitempty"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	IsLocked    bool       `json:"is_locked"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
	DateJoined  *time.Time `json:"date_joined,omitempty"`
	CustomRoles []int64    `json:"custom_roles,omitempty"`
}

// UserInput creates or updates a managed user. Password is only sent on create.
type UserInput struct {
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	Password  string `json:"password,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role,omitempty"`
}

// Role is a named permission set.
type Role struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions"`
}

// Permission is a grantable capability.
type Permission struct {
	ID       int64  `json:"id"`
	Codename string `json:"codename"`
	Name     string `json:"name"`
	Module   string `json:"module,omitempty"`
}

// ActivityLog is an audit entry.
type ActivityLog struct {
	ID        int64      `json:"id"`
	User      string     `json:"user"`
	Action    string     `json:"action"`
	Detail    string     `json:"description,omitempty"`
	IPAddress string     `json:"ip_address,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// UserRepository is the port for the user/role administration endpoints.
type UserRepository interface {
	ListUsers(ctx context.Context, search string) ([]ManagedUser, error)
	GetUser(ctx context.Context, id int64) (*ManagedUser, error)
	CreateUser(ctx context.Context, in UserInput) (*ManagedUser, error)
	UpdateUser(ctx context.Context, id int64, in UserInput) (*ManagedUser, error)
	DeleteUser(ctx context.Context, id int64) error
	UserAction(ctx context.Context, id int64, action string, payload any) error

	ListRoles(ctx context.Context) ([]Role, error)
	CreateRole(ctx context.Context, r Role) (*Role, error)
	UpdateRole(ctx context.Context, id int64, r Role) (*Role, error)
	DeleteRole(ctx context.Context, id int64) error
	ListPermissions(ctx context.Context) ([]Permission, error)

	ActivityLogs(ctx context.Context) ([]ActivityLog, error)
	LoginHistory(ctx context.Context) ([]ActivityLog, error)
}

package auth

import "time"

// User is owned by the identity subsystem; the core reads it and updates
// only the last-login timestamp.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	IsActive     bool       `json:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Summary is the response shape for a user; enumerated once so the field
// set cannot drift between endpoints.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		IsActive:  u.IsActive,
		LastLogin: u.LastLogin,
	}
}

type UserSummary struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	IsActive  bool       `json:"is_active"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// Role is soft-deactivated, never hard-deleted while referenced.
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Permission is static reference data keyed by codename.
type Permission struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Codename    string    `json:"codename"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserRole pairs a user with a role; the (user, role) pair is unique.
type UserRole struct {
	UserID     string    `json:"user_id"`
	RoleID     string    `json:"role_id"`
	AssignedBy string    `json:"assigned_by,omitempty"`
	AssignedAt time.Time `json:"assigned_at"`
}

// RolePermission pairs a role with a permission; (role, permission) is unique.
type RolePermission struct {
	RoleID       string    `json:"role_id"`
	PermissionID string    `json:"permission_id"`
	AssignedAt   time.Time `json:"assigned_at"`
}

// Menu is a navigation entry; ParentID forms a tree that must stay acyclic.
type Menu struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Component string    `json:"component"`
	ParentID  string    `json:"parent_id,omitempty"`
	Icon      string    `json:"icon,omitempty"`
	SortOrder int       `json:"sort_order"`
	IsActive  bool      `json:"is_active"`
	RoleIDs   []string  `json:"role_ids,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Session is the result of a successful login or auto-login registration.
type Session struct {
	AccessToken      string      `json:"token"`
	RefreshToken     string      `json:"refresh"`
	AccessExpiresAt  time.Time   `json:"access_expires_at"`
	RefreshExpiresAt time.Time   `json:"refresh_expires_at"`
	User             UserSummary `json:"user"`
}

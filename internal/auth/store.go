package auth

import (
	"context"
	"time"
)

// UserStore describes the slice of the credential store the core depends on.
// User lifecycle is owned by the identity subsystem; the core reads records,
// creates them on registration and stamps last-login.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	RecordLogin(ctx context.Context, userID string, at time.Time) error
}

// RBACStore persists roles, permissions and their assignment edges.
type RBACStore interface {
	CreateRole(ctx context.Context, role *Role) error
	GetRole(ctx context.Context, roleID string) (*Role, error)
	ListActiveRoles(ctx context.Context) ([]*Role, error)
	DeactivateRole(ctx context.Context, roleID string) error

	AssignRole(ctx context.Context, assignment UserRole) (UserRole, error)
	RemoveAssignment(ctx context.Context, userID, roleID string) error

	// RolesForUser returns only active roles; rows pointing at deactivated
	// roles stay in place but are excluded from every resolution query.
	RolesForUser(ctx context.Context, userID string) ([]*Role, error)
	PermissionsForUser(ctx context.Context, userID string) ([]string, error)

	EnsurePermissions(ctx context.Context, perms []Permission) error
	SetRolePermissions(ctx context.Context, roleID string, codenames []string) error
}

// MenuStore persists navigation entries and their role associations.
type MenuStore interface {
	CreateMenu(ctx context.Context, menu *Menu) error
	FindMenu(ctx context.Context, id string) (*Menu, error)
	// ListMenus returns every menu with RoleIDs populated; visibility and
	// tree reachability are computed by the service.
	ListMenus(ctx context.Context) ([]*Menu, error)
	UpdateMenu(ctx context.Context, menu *Menu) error
	SetMenuRoles(ctx context.Context, menuID string, roleIDs []string) error
}

// RevocationLedger is the durable set of blacklisted refresh-token IDs.
// Revoke is idempotent; entries for already-expired tokens are harmless and
// may be garbage-collected opportunistically.
type RevocationLedger interface {
	Revoke(ctx context.Context, tokenID, userID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

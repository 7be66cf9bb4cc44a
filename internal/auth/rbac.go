package auth

import (
	"context"
	"fmt"
	"strings"
)

// RBACService resolves roles and permissions for authenticated identities and
// exposes the administrative mutations. Resolution is recomputed per call;
// there is no cache, so deactivating a role takes effect on the next request.
type RBACService struct {
	store RBACStore
}

// NewRBACService constructs the service.
func NewRBACService(store RBACStore) (*RBACService, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: rbac store is required", ErrInvalidInput)
	}
	return &RBACService{store: store}, nil
}

// RolesFor returns the user's active roles. Assignments pointing at
// deactivated roles are silently excluded, never deleted.
func (s *RBACService) RolesFor(ctx context.Context, userID string) ([]*Role, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	return s.store.RolesForUser(ctx, userID)
}

// PermissionsFor returns the deduplicated permission codenames granted
// transitively through the user's active roles.
func (s *RBACService) PermissionsFor(ctx context.Context, userID string) ([]string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	return s.store.PermissionsForUser(ctx, userID)
}

// HasPermission reports whether the user holds the permission codename.
func (s *RBACService) HasPermission(ctx context.Context, userID, codename string) (bool, error) {
	perms, err := s.PermissionsFor(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p == codename {
			return true, nil
		}
	}
	return false, nil
}

// ListRoles returns every active role.
func (s *RBACService) ListRoles(ctx context.Context) ([]*Role, error) {
	return s.store.ListActiveRoles(ctx)
}

// CreateRole creates an active role with a unique name.
func (s *RBACService) CreateRole(ctx context.Context, name, description string) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: role name is required", ErrInvalidInput)
	}
	role := &Role{
		Name:        name,
		Description: strings.TrimSpace(description),
		IsActive:    true,
	}
	if err := s.store.CreateRole(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// DeactivateRole soft-deletes a role. Its assignment rows stay in place and
// every resolution query excludes it from then on.
func (s *RBACService) DeactivateRole(ctx context.Context, roleID string) error {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return fmt.Errorf("%w: role_id is required", ErrInvalidInput)
	}
	return s.store.DeactivateRole(ctx, roleID)
}

// AssignRole gives a user a role on behalf of assignedBy. Fails with
// ErrRoleNotFound when the role is missing or inactive, and with
// ErrDuplicateAssignment when the (user, role) pair already exists.
func (s *RBACService) AssignRole(ctx context.Context, userID, roleID, assignedBy string) (UserRole, error) {
	userID = strings.TrimSpace(userID)
	roleID = strings.TrimSpace(roleID)
	if userID == "" || roleID == "" {
		return UserRole{}, fmt.Errorf("%w: user_id and role_id are required", ErrInvalidInput)
	}
	role, err := s.store.GetRole(ctx, roleID)
	if err != nil {
		return UserRole{}, err
	}
	if !role.IsActive {
		return UserRole{}, ErrRoleNotFound
	}
	return s.store.AssignRole(ctx, UserRole{
		UserID:     userID,
		RoleID:     roleID,
		AssignedBy: strings.TrimSpace(assignedBy),
	})
}

// RemoveAssignment revokes a role from a user without touching the role.
func (s *RBACService) RemoveAssignment(ctx context.Context, userID, roleID string) error {
	userID = strings.TrimSpace(userID)
	roleID = strings.TrimSpace(roleID)
	if userID == "" || roleID == "" {
		return fmt.Errorf("%w: user_id and role_id are required", ErrInvalidInput)
	}
	return s.store.RemoveAssignment(ctx, userID, roleID)
}

// EnsurePermissions inserts missing catalog entries; existing codenames are
// left untouched.
func (s *RBACService) EnsurePermissions(ctx context.Context, perms []Permission) error {
	return s.store.EnsurePermissions(ctx, perms)
}

// SetRolePermissions replaces the role's permission set.
func (s *RBACService) SetRolePermissions(ctx context.Context, roleID string, codenames []string) error {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return fmt.Errorf("%w: role_id is required", ErrInvalidInput)
	}
	return s.store.SetRolePermissions(ctx, roleID, dedupeStrings(codenames))
}

func dedupeStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := set[v]; ok {
			continue
		}
		set[v] = struct{}{}
		result = append(result, v)
	}
	return result
}

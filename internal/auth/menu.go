package auth

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// MenuService manages the navigation tree and resolves the entries visible to
// a user. Parent references are validated with a bounded ancestor walk over an
// in-memory arena of nodes, so a cycle can never be stored.
type MenuService struct {
	store MenuStore
	rbac  *RBACService
}

// NewMenuService constructs the service.
func NewMenuService(store MenuStore, rbac *RBACService) (*MenuService, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: menu store is required", ErrInvalidInput)
	}
	if rbac == nil {
		return nil, fmt.Errorf("%w: rbac service is required", ErrInvalidInput)
	}
	return &MenuService{store: store, rbac: rbac}, nil
}

// MenusFor returns the active menus whose role set intersects the user's
// active roles, ordered by (sort_order, name). Entries under an inactive
// ancestor are suppressed: an orphaned child is unreachable in the UI tree,
// so it is not reported either.
func (s *MenuService) MenusFor(ctx context.Context, userID string) ([]*Menu, error) {
	roles, err := s.rbac.RolesFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return nil, nil
	}
	roleSet := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		roleSet[r.ID] = struct{}{}
	}

	all, err := s.store.ListMenus(ctx)
	if err != nil {
		return nil, err
	}
	arena := make(map[string]*Menu, len(all))
	for _, m := range all {
		arena[m.ID] = m
	}

	var visible []*Menu
	for _, m := range all {
		if !m.IsActive || !reachable(arena, m) {
			continue
		}
		if !intersects(m.RoleIDs, roleSet) {
			continue
		}
		visible = append(visible, m)
	}
	sort.SliceStable(visible, func(i, j int) bool {
		if visible[i].SortOrder != visible[j].SortOrder {
			return visible[i].SortOrder < visible[j].SortOrder
		}
		return visible[i].Name < visible[j].Name
	})
	return visible, nil
}

// CreateMenu validates the parent reference and stores the entry.
func (s *MenuService) CreateMenu(ctx context.Context, menu *Menu) error {
	if err := validateMenuFields(menu); err != nil {
		return err
	}
	if menu.ParentID != "" {
		if _, err := s.store.FindMenu(ctx, menu.ParentID); err != nil {
			return err
		}
	}
	menu.IsActive = true
	return s.store.CreateMenu(ctx, menu)
}

// UpdateMenu applies field changes. A reparent is rejected with ErrMenuCycle
// when the new parent chain would pass through the menu itself.
func (s *MenuService) UpdateMenu(ctx context.Context, menu *Menu) error {
	if strings.TrimSpace(menu.ID) == "" {
		return fmt.Errorf("%w: menu id is required", ErrInvalidInput)
	}
	if err := validateMenuFields(menu); err != nil {
		return err
	}
	if menu.ParentID != "" {
		all, err := s.store.ListMenus(ctx)
		if err != nil {
			return err
		}
		arena := make(map[string]*Menu, len(all))
		for _, m := range all {
			arena[m.ID] = m
		}
		if _, ok := arena[menu.ParentID]; !ok {
			return ErrNotFound
		}
		if err := checkAcyclic(arena, menu.ID, menu.ParentID); err != nil {
			return err
		}
	}
	return s.store.UpdateMenu(ctx, menu)
}

// SetMenuRoles replaces the role associations of a menu entry.
func (s *MenuService) SetMenuRoles(ctx context.Context, menuID string, roleIDs []string) error {
	menuID = strings.TrimSpace(menuID)
	if menuID == "" {
		return fmt.Errorf("%w: menu id is required", ErrInvalidInput)
	}
	if _, err := s.store.FindMenu(ctx, menuID); err != nil {
		return err
	}
	return s.store.SetMenuRoles(ctx, menuID, dedupeStrings(roleIDs))
}

func validateMenuFields(menu *Menu) error {
	if menu == nil {
		return fmt.Errorf("%w: menu is required", ErrInvalidInput)
	}
	if strings.TrimSpace(menu.Name) == "" {
		return fmt.Errorf("%w: menu name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(menu.Path) == "" {
		return fmt.Errorf("%w: menu path is required", ErrInvalidInput)
	}
	if menu.ParentID == menu.ID && menu.ID != "" {
		return ErrMenuCycle
	}
	return nil
}

// checkAcyclic walks ancestors from newParent; the walk is bounded by the
// arena size so a pre-existing corrupt chain cannot loop forever.
func checkAcyclic(arena map[string]*Menu, menuID, newParent string) error {
	current := newParent
	for steps := 0; steps <= len(arena); steps++ {
		if current == "" {
			return nil
		}
		if current == menuID {
			return ErrMenuCycle
		}
		node, ok := arena[current]
		if !ok {
			return nil
		}
		current = node.ParentID
	}
	return ErrMenuCycle
}

// reachable reports whether every ancestor of m exists and is active.
func reachable(arena map[string]*Menu, m *Menu) bool {
	current := m.ParentID
	for steps := 0; steps <= len(arena); steps++ {
		if current == "" {
			return true
		}
		parent, ok := arena[current]
		if !ok || !parent.IsActive {
			return false
		}
		current = parent.ParentID
	}
	return false
}

func intersects(roleIDs []string, roleSet map[string]struct{}) bool {
	for _, id := range roleIDs {
		if _, ok := roleSet[id]; ok {
			return true
		}
	}
	return false
}

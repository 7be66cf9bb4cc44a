package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"authcore.org/internal/audit"
	"authcore.org/internal/auth"
)

type menuRequest struct {
	Name      string `json:"name" validate:"required,max=128"`
	Path      string `json:"path" validate:"required,max=256"`
	Component string `json:"component"`
	ParentID  string `json:"parent_id"`
	Icon      string `json:"icon"`
	SortOrder int    `json:"sort_order"`
	IsActive  *bool  `json:"is_active"`
}

type menuRolesRequest struct {
	RoleIDs []string `json:"role_ids" validate:"required"`
}

func (a *API) handleMenuList(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityOr401(w, r)
	if !ok {
		return
	}
	menus, err := a.menus.MenusFor(r.Context(), ident.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if menus == nil {
		menus = []*auth.Menu{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"menus":  menus,
	})
}

func (a *API) handleMenuCreate(w http.ResponseWriter, r *http.Request) {
	var req menuRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, "menu name and path are required")
		return
	}

	menu := &auth.Menu{
		Name:      req.Name,
		Path:      req.Path,
		Component: req.Component,
		ParentID:  req.ParentID,
		Icon:      req.Icon,
		SortOrder: req.SortOrder,
	}
	if err := a.menus.CreateMenu(r.Context(), menu); err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "menu.create", map[string]any{
		"menu_id": menu.ID,
		"name":    menu.Name,
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"status": "success",
		"menu":   menu,
	})
}

func (a *API) handleMenuUpdate(w http.ResponseWriter, r *http.Request) {
	menuID := chi.URLParam(r, "menuID")
	var req menuRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, "menu name and path are required")
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	menu := &auth.Menu{
		ID:        menuID,
		Name:      req.Name,
		Path:      req.Path,
		Component: req.Component,
		ParentID:  req.ParentID,
		Icon:      req.Icon,
		SortOrder: req.SortOrder,
		IsActive:  active,
	}
	if err := a.menus.UpdateMenu(r.Context(), menu); err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "menu.update", map[string]any{
		"menu_id": menuID,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"menu":   menu,
	})
}

func (a *API) handleMenuRoles(w http.ResponseWriter, r *http.Request) {
	menuID := chi.URLParam(r, "menuID")
	var req menuRolesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, "role_ids are required")
		return
	}

	if err := a.menus.SetMenuRoles(r.Context(), menuID, req.RoleIDs); err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "menu.roles.update", map[string]any{
		"menu_id": menuID,
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "success"})
}

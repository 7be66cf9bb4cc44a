package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"authcore.org/internal/audit"
)

type createRoleRequest struct {
	Name        string `json:"name" validate:"required,max=128"`
	Description string `json:"description"`
}

type assignRoleRequest struct {
	UserID string `json:"user_id" validate:"required"`
	RoleID string `json:"role_id" validate:"required"`
}

func (a *API) handleRoleList(w http.ResponseWriter, r *http.Request) {
	roles, err := a.rbac.ListRoles(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"roles":  roles,
	})
}

func (a *API) handleRoleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, "role name is required")
		return
	}

	role, err := a.rbac.CreateRole(r.Context(), req.Name, req.Description)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "rbac.role.create", map[string]any{
		"role_id": role.ID,
		"name":    role.Name,
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"status": "success",
		"role":   role,
	})
}

func (a *API) handleUserRoles(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityOr401(w, r)
	if !ok {
		return
	}
	roles, err := a.rbac.RolesFor(r.Context(), ident.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"roles":  roles,
	})
}

func (a *API) handleRoleAssign(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityOr401(w, r)
	if !ok {
		return
	}
	var req assignRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, "user_id and role_id are required")
		return
	}

	assignment, err := a.rbac.AssignRole(r.Context(), req.UserID, req.RoleID, ident.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "rbac.role.assign", map[string]any{
		"target_user_id": assignment.UserID,
		"role_id":        assignment.RoleID,
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"status":     "success",
		"assignment": assignment,
	})
}

func (a *API) handleRoleUnassign(w http.ResponseWriter, r *http.Request) {
	var req assignRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, "user_id and role_id are required")
		return
	}

	if err := a.rbac.RemoveAssignment(r.Context(), req.UserID, req.RoleID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "rbac.role.unassign", map[string]any{
		"target_user_id": req.UserID,
		"role_id":        req.RoleID,
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "success"})
}

func (a *API) handleRoleDeactivate(w http.ResponseWriter, r *http.Request) {
	roleID := chi.URLParam(r, "roleID")
	if err := a.rbac.DeactivateRole(r.Context(), roleID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "rbac.role.deactivate", map[string]any{
		"role_id": roleID,
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "success"})
}

func (a *API) handleUserPermissions(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityOr401(w, r)
	if !ok {
		return
	}
	perms, err := a.rbac.PermissionsFor(r.Context(), ident.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if perms == nil {
		perms = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "success",
		"permissions": perms,
	})
}

package httpapi

import (
	"net/http"

	"authcore.org/internal/audit"
)

type createUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (a *API) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityOr401(w, r)
	if !ok {
		return
	}
	summary, err := a.sessions.UserInfo(r.Context(), ident.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"user":   summary,
	})
}

func (a *API) handleUserList(w http.ResponseWriter, r *http.Request) {
	users, err := a.sessions.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"users":  users,
	})
}

func (a *API) handleUserCreate(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, "username, valid email and a password of at least 8 characters are required")
		return
	}

	summary, err := a.sessions.CreateUser(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user.create", map[string]any{
		"created_user_id": summary.ID,
		"username":        summary.Username,
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"status": "success",
		"user":   summary,
	})
}

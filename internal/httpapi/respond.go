package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"authcore.org/internal/auth"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, message string) {
	body := map[string]any{
		"status":  "error",
		"message": message,
	}
	if rid := requestIDFrom(r); rid != "" {
		body["request_id"] = rid
	}
	writeJSON(w, code, body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// writeServiceError maps the auth sentinel errors onto the HTTP status
// contract. Handlers special-case anything that deviates before falling
// through to here.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrTokenRevoked):
		writeError(w, r, http.StatusUnauthorized, "token has been revoked")
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, r, http.StatusBadRequest, "invalid token")
	case errors.Is(err, auth.ErrDuplicateUsername):
		writeError(w, r, http.StatusBadRequest, "username already exists")
	case errors.Is(err, auth.ErrDuplicateRole):
		writeError(w, r, http.StatusBadRequest, "role already exists")
	case errors.Is(err, auth.ErrDuplicateAssignment):
		writeError(w, r, http.StatusConflict, "role already assigned to user")
	case errors.Is(err, auth.ErrRoleNotFound):
		writeError(w, r, http.StatusNotFound, "role not found")
	case errors.Is(err, auth.ErrMenuCycle):
		writeError(w, r, http.StatusBadRequest, "menu hierarchy would contain a cycle")
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "resource not found")
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

package auth

import "errors"

var (
	// ErrInvalidCredentials covers unknown username, wrong password and
	// disabled accounts alike; callers must not distinguish them.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrInvalidToken covers malformed tokens, signature failures and expiry.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrTokenRevoked indicates a refresh token found in the revocation ledger.
	ErrTokenRevoked = errors.New("auth: token revoked")

	ErrDuplicateUsername   = errors.New("auth: username already exists")
	ErrDuplicateRole       = errors.New("auth: role already exists")
	ErrDuplicateAssignment = errors.New("auth: role already assigned")
	ErrRoleNotFound        = errors.New("auth: role not found or inactive")
	ErrMenuCycle           = errors.New("auth: menu parent cycle")

	ErrNotFound     = errors.New("auth: not found")
	ErrInvalidInput = errors.New("auth: invalid input")
)

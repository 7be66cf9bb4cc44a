package auth

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// SessionService orchestrates login, logout, token refresh and registration.
type SessionService struct {
	users     UserStore
	ledger    RevocationLedger
	codec     *Codec
	autoLogin bool
	now       func() time.Time
}

// SessionOption configures SessionService behavior.
type SessionOption func(*SessionService)

// WithRegisterAutoLogin makes Register mint a token pair like Login does.
// Off by default: registration then requires a separate login.
func WithRegisterAutoLogin(enabled bool) SessionOption {
	return func(s *SessionService) { s.autoLogin = enabled }
}

// WithSessionClock overrides the time source (useful for tests).
func WithSessionClock(fn func() time.Time) SessionOption {
	return func(s *SessionService) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewSessionService constructs the service.
func NewSessionService(users UserStore, ledger RevocationLedger, codec *Codec, opts ...SessionOption) (*SessionService, error) {
	if users == nil {
		return nil, fmt.Errorf("%w: user store is required", ErrInvalidInput)
	}
	if ledger == nil {
		return nil, fmt.Errorf("%w: revocation ledger is required", ErrInvalidInput)
	}
	if codec == nil {
		return nil, fmt.Errorf("%w: token codec is required", ErrInvalidInput)
	}
	s := &SessionService{users: users, ledger: ledger, codec: codec, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RegisterAutoLogin reports whether registration mints a session.
func (s *SessionService) RegisterAutoLogin() bool { return s.autoLogin }

// Login verifies credentials and mints a fresh access/refresh pair. Unknown
// username, wrong password and inactive account all return the same
// ErrInvalidCredentials so the response cannot reveal which part failed.
func (s *SessionService) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return Session{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return Session{}, ErrInvalidCredentials
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	session, err := s.mintSession(user)
	if err != nil {
		return Session{}, err
	}
	loginAt := s.now().UTC()
	if err := s.users.RecordLogin(ctx, user.ID, loginAt); err != nil {
		return Session{}, err
	}
	session.User.LastLogin = &loginAt
	return session, nil
}

// Logout records the refresh token's ID in the revocation ledger. Revocation
// is idempotent: logging out twice with the same token succeeds both times.
// A malformed token yields ErrInvalidToken, but callers treat that as
// non-fatal and still clear client session state.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.codec.Parse(refreshToken)
	if err != nil {
		return ErrInvalidToken
	}
	if claims.Kind() != TokenKindRefresh {
		return ErrInvalidToken
	}
	return s.ledger.Revoke(ctx, claims.ID, claims.Subject, claims.ExpiresAt.Time)
}

// Refresh validates a refresh token, consults the revocation ledger and
// mints a new access token for the same subject. The refresh token itself
// is not rotated.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	claims, err := s.codec.Parse(refreshToken)
	if err != nil {
		return "", time.Time{}, ErrInvalidToken
	}
	if claims.Kind() != TokenKindRefresh {
		return "", time.Time{}, ErrInvalidToken
	}
	revoked, err := s.ledger.IsRevoked(ctx, claims.ID)
	if err != nil {
		return "", time.Time{}, err
	}
	if revoked {
		return "", time.Time{}, ErrTokenRevoked
	}
	return s.codec.Issue(claims.Subject, TokenKindAccess)
}

// Register creates a user record. When auto-login is enabled the returned
// session is non-nil and identical in shape to a Login result.
func (s *SessionService) Register(ctx context.Context, username, email, password string) (UserSummary, *Session, error) {
	return s.register(ctx, username, email, password, s.autoLogin)
}

// CreateUser is the administrator path; it shares Register's uniqueness rule
// but never mints a session.
func (s *SessionService) CreateUser(ctx context.Context, username, email, password string) (UserSummary, error) {
	summary, _, err := s.register(ctx, username, email, password, false)
	return summary, err
}

func (s *SessionService) register(ctx context.Context, username, email, password string, withSession bool) (UserSummary, *Session, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" {
		return UserSummary{}, nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if email == "" || !strings.Contains(email, "@") {
		return UserSummary{}, nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if password == "" {
		return UserSummary{}, nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return UserSummary{}, nil, err
	}
	user := &User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return UserSummary{}, nil, err
	}

	if !withSession {
		return user.Summary(), nil, nil
	}
	session, err := s.mintSession(user)
	if err != nil {
		return UserSummary{}, nil, err
	}
	return user.Summary(), &session, nil
}

// UserInfo returns the summary for an authenticated identity.
func (s *SessionService) UserInfo(ctx context.Context, userID string) (UserSummary, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return UserSummary{}, err
	}
	return user.Summary(), nil
}

// ListUsers returns summaries for every user record.
func (s *SessionService) ListUsers(ctx context.Context) ([]UserSummary, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]UserSummary, 0, len(users))
	for _, u := range users {
		summaries = append(summaries, u.Summary())
	}
	return summaries, nil
}

func (s *SessionService) mintSession(user *User) (Session, error) {
	access, accessExp, err := s.codec.Issue(user.ID, TokenKindAccess)
	if err != nil {
		return Session{}, err
	}
	refresh, refreshExp, err := s.codec.Issue(user.ID, TokenKindRefresh)
	if err != nil {
		return Session{}, err
	}
	return Session{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		User:             user.Summary(),
	}, nil
}

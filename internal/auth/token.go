package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultIssuer = "authcore"

const (
	defaultAccessTTL  = time.Hour
	defaultRefreshTTL = 24 * time.Hour
)

// TokenKind distinguishes access tokens from refresh tokens.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Claims are the JWT claims carried by both token kinds. The ID (jti) of a
// refresh token doubles as its revocation key.
type Claims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Kind returns the token kind embedded in the claims.
func (c *Claims) Kind() TokenKind { return TokenKind(c.TokenType) }

// Codec creates and parses signed, expiring tokens. It is a pure function of
// its secret and the clock; it has no side effects and keeps no state.
type Codec struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithIssuer overrides the issuer claim.
func WithIssuer(issuer string) CodecOption {
	return func(c *Codec) {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			c.issuer = issuer
		}
	}
}

// WithAccessTTL configures the access token lifetime.
func WithAccessTTL(ttl time.Duration) CodecOption {
	return func(c *Codec) {
		if ttl > 0 {
			c.accessTTL = ttl
		}
	}
}

// WithRefreshTTL configures the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) CodecOption {
	return func(c *Codec) {
		if ttl > 0 {
			c.refreshTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) CodecOption {
	return func(c *Codec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCodec constructs a Codec signing with HS256.
func NewCodec(secret string, opts ...CodecOption) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: token secret is required")
	}
	c := &Codec{
		secret:     []byte(secret),
		issuer:     defaultIssuer,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the configured lifetime for the given kind.
func (c *Codec) TTL(kind TokenKind) time.Duration {
	if kind == TokenKindRefresh {
		return c.refreshTTL
	}
	return c.accessTTL
}

func (c *Codec) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// Issue signs a token of the given kind for the subject. The jti is a fresh
// random identifier.
func (c *Codec) Issue(subject string, kind TokenKind) (string, time.Time, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", time.Time{}, errors.New("auth: subject is required")
	}
	if kind != TokenKindAccess && kind != TokenKindRefresh {
		return "", time.Time{}, errors.New("auth: unknown token kind")
	}

	now := c.clock().UTC()
	expiresAt := now.Add(c.TTL(kind))
	claims := Claims{
		TokenType: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse verifies the signature, issuer and expiry of a token. Every failure
// collapses into ErrInvalidToken so callers cannot leak verification detail.
func (c *Codec) Parse(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	},
		jwt.WithTimeFunc(c.clock),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != string(TokenKindAccess) && claims.TokenType != string(TokenKindRefresh) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

package httpapi

import (
	"net/http"
	"strings"

	"authcore.org/internal/auth"
	"authcore.org/internal/obs"
)

const (
	authHeader        = "Authorization"
	bearer            = "Bearer "
	accessCookieName  = "access_token"
	refreshCookieName = "refresh_token"
)

// publicPrefixes bypass authentication; matched in order, case-sensitive.
var publicPrefixes = []string{
	"/api/auth/login/",
	"/api/auth/register/",
	"/api/auth/token/refresh/",
	"/api/auth/logout/",
	"/static/",
	"/admin/",
	"/healthz",
	"/readyz",
	"/metrics",
}

// withAuth resolves the caller's identity from the access-token cookie or
// the Authorization header, in that order. The two failure modes answer
// with distinct messages: a client that sent nothing learns only that a
// token is required, a client whose token failed learns only that it was
// rejected.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		raw := extractToken(r)
		if raw == "" {
			obs.CountTokenRejection("missing")
			writeError(w, r, http.StatusUnauthorized, "unauthorized: token not found")
			return
		}

		claims, err := a.codec.Parse(raw)
		if err != nil || claims.Kind() != auth.TokenKindAccess {
			obs.CountTokenRejection("invalid")
			writeError(w, r, http.StatusUnauthorized, "unauthorized: invalid token")
			return
		}

		ctx := auth.ContextWithIdentity(r.Context(), auth.Identity{UserID: claims.Subject})
		ctx = auth.ContextWithToken(ctx, raw)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request) string {
	if c, err := r.Cookie(accessCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	header := strings.TrimSpace(r.Header.Get(authHeader))
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return ""
	}
	return strings.TrimSpace(header[len(bearer):])
}

func isPublicPath(path string) bool {
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// identityOr401 is the downstream guard; the middleware normally guarantees
// presence, but handlers stay safe if routed around it.
func identityOr401(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	ident, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthorized: token not found")
		return auth.Identity{}, false
	}
	return ident, true
}

package httpapi

import (
	"errors"
	"net/http"
	"time"

	"authcore.org/internal/audit"
	"authcore.org/internal/auth"
	"authcore.org/internal/obs"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// refreshRequest serves both the refresh and logout endpoints; the token may
// arrive in the body when the client does not hold the cookie.
type refreshRequest struct {
	Refresh string `json:"refresh"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, "username and password are required")
		return
	}

	session, err := a.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		obs.CountAuthAttempt("login", "failure")
		writeServiceError(w, r, err)
		return
	}
	obs.CountAuthAttempt("login", "success")
	_ = audit.LogEvent(r.Context(), "session.login", map[string]any{
		"user_id":  session.User.ID,
		"username": session.User.Username,
	})

	a.setSessionCookies(w, session)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"user":    session.User,
		"token":   session.AccessToken,
		"refresh": session.RefreshToken,
	})
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, "username, valid email and a password of at least 8 characters are required")
		return
	}

	summary, session, err := a.sessions.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		obs.CountAuthAttempt("register", "failure")
		writeServiceError(w, r, err)
		return
	}
	obs.CountAuthAttempt("register", "success")
	_ = audit.LogEvent(r.Context(), "session.register", map[string]any{
		"user_id":  summary.ID,
		"username": summary.Username,
	})

	body := map[string]any{
		"status": "success",
		"user":   summary,
	}
	if session != nil {
		a.setSessionCookies(w, *session)
		body["token"] = session.AccessToken
		body["refresh"] = session.RefreshToken
	}
	writeJSON(w, http.StatusCreated, body)
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	refresh := a.refreshTokenFrom(w, r)
	if refresh == "" {
		writeError(w, r, http.StatusBadRequest, "refresh token is required")
		return
	}

	access, expiresAt, err := a.sessions.Refresh(r.Context(), refresh)
	if err != nil {
		obs.CountAuthAttempt("refresh", "failure")
		switch {
		case errors.Is(err, auth.ErrTokenRevoked):
			writeError(w, r, http.StatusUnauthorized, "token has been revoked")
		case errors.Is(err, auth.ErrInvalidToken):
			writeError(w, r, http.StatusBadRequest, "invalid refresh token")
		default:
			writeServiceError(w, r, err)
		}
		return
	}
	obs.CountAuthAttempt("refresh", "success")

	a.setCookie(w, accessCookieName, access, int(time.Until(expiresAt).Seconds()))
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"token":  access,
	})
}

// handleLogout revokes the refresh token and clears both cookies. The
// cookies are cleared even when the token fails to parse so a client can
// always terminate its local session.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	refresh := a.refreshTokenFrom(w, r)
	a.clearSessionCookies(w)
	if refresh == "" {
		writeError(w, r, http.StatusBadRequest, "refresh token is required")
		return
	}

	if err := a.sessions.Logout(r.Context(), refresh); err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, r, http.StatusBadRequest, "invalid refresh token")
			return
		}
		writeServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "session.logout", nil)
	w.WriteHeader(http.StatusResetContent)
}

// refreshTokenFrom prefers the cookie, then the request body. The body is
// optional: an empty or absent body is not itself an error.
func (a *API) refreshTokenFrom(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(refreshCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return ""
	}
	return req.Refresh
}

func (a *API) setSessionCookies(w http.ResponseWriter, s auth.Session) {
	a.setCookie(w, accessCookieName, s.AccessToken, int(a.codec.TTL(auth.TokenKindAccess).Seconds()))
	a.setCookie(w, refreshCookieName, s.RefreshToken, int(a.codec.TTL(auth.TokenKindRefresh).Seconds()))
}

func (a *API) clearSessionCookies(w http.ResponseWriter) {
	a.setCookie(w, accessCookieName, "", -1)
	a.setCookie(w, refreshCookieName, "", -1)
}

func (a *API) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   a.cfg.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   a.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"authcore.org/internal/auth"
	"authcore.org/internal/obs"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// ReadyProbe — readiness check backed by a database ping.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config carries the HTTP-layer knobs; everything else lives in the services.
type Config struct {
	Version         string
	CookieDomain    string
	CookieSecure    bool
	LoginRatePerMin int
	LoginRateBurst  int
	CORSOrigins     []string
}

// API — HTTP layer.
type API struct {
	router   chi.Router
	sessions *auth.SessionService
	rbac     *auth.RBACService
	menus    *auth.MenuService
	codec    *auth.Codec
	probe    ReadyProbe
	validate *validator.Validate
	cfg      Config
}

func New(probe ReadyProbe, sessions *auth.SessionService, rbac *auth.RBACService, menus *auth.MenuService, codec *auth.Codec, cfg Config) *API {
	if cfg.LoginRatePerMin <= 0 {
		cfg.LoginRatePerMin = 30
	}
	if cfg.LoginRateBurst <= 0 {
		cfg.LoginRateBurst = 10
	}
	a := &API{
		sessions: sessions,
		rbac:     rbac,
		menus:    menus,
		codec:    codec,
		probe:    probe,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		cfg:      cfg,
	}

	r := chi.NewRouter()

	// health/ready/info
	r.Get("/healthz", a.handleHealthz)
	r.Get("/readyz", a.handleReady)

	// Prometheus metrics
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	// session endpoints; throttled per client IP
	throttle := func(h http.HandlerFunc) http.Handler {
		return RateLimit(h, cfg.LoginRateBurst, cfg.LoginRatePerMin)
	}
	r.Method(http.MethodPost, "/api/auth/login/", throttle(a.handleLogin))
	r.Method(http.MethodPost, "/api/auth/register/", throttle(a.handleRegister))
	r.Method(http.MethodPost, "/api/auth/token/refresh/", throttle(a.handleRefresh))
	r.Post("/api/auth/logout/", a.handleLogout)

	// authenticated surface
	r.Get("/api/users/info/", a.handleUserInfo)
	r.Get("/api/users/list/", a.handleUserList)
	r.Post("/api/users/create/", a.handleUserCreate)

	r.Get("/api/roles/", a.handleRoleList)
	r.Post("/api/roles/create/", a.handleRoleCreate)
	r.Get("/api/roles/user/", a.handleUserRoles)
	r.Post("/api/roles/assign/", a.handleRoleAssign)
	r.Delete("/api/roles/assign/", a.handleRoleUnassign)
	r.Post("/api/roles/{roleID}/deactivate/", a.handleRoleDeactivate)

	r.Get("/api/permissions/user/", a.handleUserPermissions)

	r.Get("/api/menus/", a.handleMenuList)
	r.Post("/api/menus/create/", a.handleMenuCreate)
	r.Put("/api/menus/{menuID}/", a.handleMenuUpdate)
	r.Put("/api/menus/{menuID}/roles/", a.handleMenuRoles)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})

	a.router = r
	return a
}

// Handler assembles the middleware chain around the router. Order matters:
// request id first so every later layer can log it, authentication last so
// rejections are already logged and counted.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.router
	h = a.withAuth(h)
	h = CSRFOrigin(h, a.cfg.CORSOrigins)
	h = MaxBodyBytes(h, maxBodyBytes)
	h = CORS(h, a.cfg.CORSOrigins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "authcore-api",
		"version": a.cfg.Version,
	})
}

func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.probe.Check(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

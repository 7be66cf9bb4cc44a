package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"authcore.org/internal/auth"
	"authcore.org/internal/config"
	"authcore.org/internal/httpapi"
	"authcore.org/internal/obs"
	"authcore.org/internal/store/pg"
	"authcore.org/internal/store/redisledger"
)

// Set via -ldflags at build time.
var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.PostgresDSN == "" {
		log.Fatal("AUTHCORE_PG_DSN is required")
	}
	store, err := pg.Open(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := store.Ping(ctx); err != nil {
		cancel()
		log.Fatalf("ping db: %v", err)
	}
	if err := store.EnsurePermissions(ctx, auth.BuiltinPermissions); err != nil {
		cancel()
		log.Fatalf("ensure permissions: %v", err)
	}
	if n, err := store.PurgeExpired(ctx, time.Now()); err == nil && n > 0 {
		log.Printf("purged %d expired revocation entries", n)
	}
	cancel()

	var ledger auth.RevocationLedger = store
	if cfg.LedgerBackend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			pingCancel()
			log.Fatalf("ping redis: %v", err)
		}
		pingCancel()
		defer client.Close()
		ledger = redisledger.New(client)
	}

	codec, err := auth.NewCodec(cfg.JWTSecret,
		auth.WithIssuer(cfg.JWTIssuer),
		auth.WithAccessTTL(cfg.AccessTTL),
		auth.WithRefreshTTL(cfg.RefreshTTL),
	)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	sessions, err := auth.NewSessionService(store, ledger, codec,
		auth.WithRegisterAutoLogin(cfg.RegisterAutoLogin))
	if err != nil {
		log.Fatalf("session service: %v", err)
	}
	rbac, err := auth.NewRBACService(store)
	if err != nil {
		log.Fatalf("rbac service: %v", err)
	}
	menus, err := auth.NewMenuService(store, rbac)
	if err != nil {
		log.Fatalf("menu service: %v", err)
	}

	api := httpapi.New(httpapi.ReadyProbe{DB: store.DB()}, sessions, rbac, menus, codec, httpapi.Config{
		Version:         version,
		CookieDomain:    cfg.CookieDomain,
		CookieSecure:    cfg.CookieSecure,
		LoginRatePerMin: cfg.LoginRatePerMin,
		LoginRateBurst:  cfg.LoginRateBurst,
		CORSOrigins:     cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting authcore-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Println("Stopped")
}

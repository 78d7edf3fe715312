package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/seoportal/sessionbind/internal/config"
	httpserver "github.com/seoportal/sessionbind/internal/http"
	"github.com/seoportal/sessionbind/internal/http/middleware"
	"github.com/seoportal/sessionbind/pkg/binding"
	"github.com/seoportal/sessionbind/pkg/domain"
	"github.com/seoportal/sessionbind/pkg/identity"
	"github.com/seoportal/sessionbind/pkg/kv"
	"github.com/seoportal/sessionbind/pkg/store"
	"github.com/seoportal/sessionbind/portal"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Document store
	var docs store.Store
	var creds identity.CredentialStore
	switch cfg.StoreDriver {
	case "postgres":
		db, err := sql.Open("postgres", cfg.DSN())
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		logger.Info("connected to database")
		docs = store.NewPostgresStore(db, cfg.DSN(), logger)
		creds = identity.NewSQLCredentialStore(db)
	default:
		memDocs := store.NewMemoryStore()
		memCreds := identity.NewMemoryCredentialStore()
		if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
			id, err := memCreds.Register(cfg.AdminEmail, cfg.AdminPassword)
			if err != nil {
				logger.Error("failed to seed admin credential", "error", err)
				os.Exit(1)
			}
			profile := &domain.Profile{IdentityID: id, Role: domain.RoleAdmin}
			if err := memDocs.PutProfile(context.Background(), profile); err != nil {
				logger.Error("failed to seed admin profile", "error", err)
				os.Exit(1)
			}
			logger.Info("seeded admin account", "email", cfg.AdminEmail)
		}
		docs = memDocs
		creds = memCreds
	}

	// Selection slot
	var slot kv.Store
	if cfg.KVDriver == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		logger.Info("connected to redis")
		slot = kv.NewRedisStore(client)
	} else {
		slot = kv.NewMemoryStore()
	}

	// Wire the portal core
	p, err := portal.New(portal.Config{
		Store:       docs,
		KV:          slot,
		Credentials: creds,
		Logger:      logger,
		Gate: binding.GateConfig{
			SignInPath:        cfg.SignInPath,
			DefaultLanding:    cfg.DefaultLanding,
			TenantManagerPath: cfg.TenantManagerPath,
		},
	})
	if err != nil {
		logger.Error("failed to initialize portal", "error", err)
		os.Exit(1)
	}
	defer p.Close()

	tokens := identity.NewTokenService(identity.TokenConfig{
		Secret:         []byte(cfg.JWTSecret),
		Issuer:         cfg.JWTIssuer,
		AccessTokenTTL: cfg.AccessTokenTTL,
	})

	// Create router
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:          logger,
		Portal:          p,
		Store:           docs,
		Tokens:          tokens,
		LoginRateLimit:  cfg.LoginRateLimit,
		LoginRateWindow: cfg.LoginRateWindow,
		SecurityHeaders: middleware.DefaultSecurityHeaders(),
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

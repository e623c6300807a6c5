package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/excavator/rental-api/internal/api"
	"github.com/excavator/rental-api/internal/api/handler"
	"github.com/excavator/rental-api/internal/core/service"
	"github.com/excavator/rental-api/internal/infrastructure/config"
	mongodb "github.com/excavator/rental-api/internal/infrastructure/db/mongo"
	redisdb "github.com/excavator/rental-api/internal/infrastructure/db/redis"
	"github.com/excavator/rental-api/internal/infrastructure/metrics"
	"github.com/excavator/rental-api/internal/infrastructure/queue"
	"github.com/excavator/rental-api/internal/infrastructure/security"
	"github.com/excavator/rental-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "rental-api",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.Timeout,
	})
	if err != nil {
		return fmt.Errorf("initialize mongo: %w", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		return fmt.Errorf("initialize redis: %w", err)
	}
	defer rdb.Close()

	users := mongodb.NewUserRepository(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("user indexes: %w", err)
	}
	auditLog := mongodb.NewAuditRepository(db)
	if err := auditLog.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("audit indexes: %w", err)
	}

	identities := redisdb.NewIdentityCache(rdb, users, cfg.Redis.IdentityCacheTTL, log)

	hasher, err := security.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	issuer, err := security.NewJWTIssuer(security.JWTConfig{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
	})
	if err != nil {
		return err
	}

	// Sign-in and rotation write the refresh digest through the cache so a
	// stale identity entry is dropped.
	authService := service.NewAuthService(identities, hasher, issuer, log).WithMetrics(metrics.AuthRecorder{})

	dispatcher := queue.NewDispatcher(cfg.Audit.Workers, auditLog, log)
	dispatcher.Start(context.Background())

	e := api.NewRouter(api.Dependencies{
		Log:         log,
		Auth:        authService,
		Tokens:      issuer,
		Identities:  identities,
		Credentials: users,
		AuditLog:    auditLog,
		Audit:       dispatcher,
		Cookie: handler.CookieOptions{
			Name:   cfg.Cookie.Name,
			Path:   cfg.Cookie.Path,
			Secure: cfg.Cookie.Secure,
		},
		Checks: map[string]handler.DependencyCheck{
			"mongodb": func(ctx context.Context) error { return mongodb.Ping(ctx, db) },
			"redis":   func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
	})

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("received interruption signal, shutting down")
	case err := <-serverErr:
		if err != nil {
			dispatcher.Close()
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("audit queue not fully drained")
	}
	log.Info().Msg("shutdown complete")
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/99minutos/accounts/internal/api"
	"github.com/99minutos/accounts/internal/api/handler"
	"github.com/99minutos/accounts/internal/core/ports"
	"github.com/99minutos/accounts/internal/core/service"
	mongostore "github.com/99minutos/accounts/internal/infrastructure/db/mongo"
	"github.com/99minutos/accounts/internal/infrastructure/db/postgres"
	redisstore "github.com/99minutos/accounts/internal/infrastructure/db/redis"
	"github.com/99minutos/accounts/internal/infrastructure/hasher"
	"github.com/99minutos/accounts/internal/pkg/config"
	"github.com/99minutos/accounts/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func newServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Starts the accounts HTTP server",
		Long: `Starts the accounts HTTP server. Usage:

	accounts server
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

// accountStore is the configured AccountRepository with its readiness check
// and cleanup.
type accountStore struct {
	repo  ports.AccountRepository
	ping  handler.Pinger
	close func()
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: "accounts",
	})

	store, err := openAccountStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.close()

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	passwordHasher, err := hasher.New(hasher.Config{
		Algorithm:      cfg.Hash.Algorithm,
		BcryptCost:     cfg.Hash.BcryptCost,
		Argon2Time:     cfg.Hash.Argon2Time,
		Argon2MemoryKB: cfg.Hash.Argon2MemoryKB,
		Argon2Threads:  cfg.Hash.Argon2Threads,
	})
	if err != nil {
		return err
	}

	registration := service.NewRegistrationService(store.repo, passwordHasher, log)
	auth := service.NewAuthService(
		store.repo,
		passwordHasher,
		redisstore.NewSessionStore(rdb),
		redisstore.NewAttemptStore(rdb),
		service.AuthConfig{
			Secret:     cfg.SessionSecret(),
			SessionTTL: cfg.Session.TTL,
			AttemptTTL: cfg.Session.LoginTTL,
		},
		log,
	)

	e := api.NewRouter(api.Dependencies{
		Registration: registration,
		Auth:         auth,
		Health: map[string]handler.Pinger{
			cfg.StoreDriver: store.ping,
			"redis":         handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		},
		Cookies: handler.CookieConfig{
			Secure:     cfg.Session.CookieSecure,
			SessionTTL: cfg.Session.TTL,
			StateTTL:   cfg.Session.LoginTTL,
		},
		Log: log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("accounts server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func openAccountStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*accountStore, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		repo := mongostore.NewAccountRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return &accountStore{
			repo: repo,
			ping: handler.PingFunc(func(ctx context.Context) error { return client.Ping(ctx, nil) }),
			close: func() {
				_ = client.Disconnect(context.Background())
			},
		}, nil

	default:
		if cfg.MigrateOnBoot {
			if err := migrateUp(cfg.Postgres.URL); err != nil {
				return nil, err
			}
			log.Info().Msg("migrations applied")
		}
		pool, err := postgres.Connect(ctx, postgres.Config{URL: cfg.Postgres.URL})
		if err != nil {
			return nil, err
		}
		return &accountStore{
			repo:  postgres.NewAccountRepository(pool),
			ping:  pool,
			close: pool.Close,
		}, nil
	}
}

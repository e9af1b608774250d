// Command api serves the 724 Parça Bul storefront: per-session cart stores
// and the order ledger behind an HTTP adapter.
//
// @title                       724 Parça Bul Storefront API
// @version                     1.0
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/724parcabul/storefront/internal/api"
	"github.com/724parcabul/storefront/internal/api/handler"
	"github.com/724parcabul/storefront/internal/api/metrics"
	"github.com/724parcabul/storefront/internal/core/ports"
	"github.com/724parcabul/storefront/internal/core/service"
	"github.com/724parcabul/storefront/internal/core/store"
	mongodb "github.com/724parcabul/storefront/internal/infrastructure/db/mongo"
	redisdb "github.com/724parcabul/storefront/internal/infrastructure/db/redis"
	"github.com/724parcabul/storefront/internal/infrastructure/memory"
	"github.com/724parcabul/storefront/internal/infrastructure/queue"
	"github.com/724parcabul/storefront/internal/pkg/config"
	"github.com/724parcabul/storefront/pkg/logger"
)

func main() {
	cfg := config.MustLoad()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "storefront",
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("storefront stopped")
	}
	log.Info().Msg("storefront stopped")
}

// backends are the adapters selected by configuration.
type backends struct {
	snapshots ports.SnapshotRepository
	orders    ports.OrderRepository
	users     ports.AuthRepository
	guard     service.IdempotencyGuard
	checks    map[string]handler.DependencyCheck
	close     func(context.Context)
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("env", cfg.Env).
		Bool("in_memory", cfg.InMemory).
		Msg("starting storefront")

	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.close(context.Background())

	// --- Session stores ---
	writer := queue.NewSnapshotWriter(cfg.Store.WriterWorkers, b.snapshots, metrics.WriterHooks(), log)
	writer.Start(ctx)

	registry := store.NewRegistry(b.snapshots, writer, store.RegistryConfig{
		KeyPrefix: cfg.Store.KeyPrefix,
		Options: []store.Option{
			store.WithLogger(logger.Component("store")),
			store.WithObserver(metrics.StoreObserver()),
		},
	}, log)
	go registry.RunSweeper(ctx, cfg.Store.SweepInterval, cfg.Store.IdleEvict)

	// --- Services ---
	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		jwtSecret = "dev-secret"
		log.Warn().Msg("JWT_SECRET not set, using development secret")
	}
	authService := service.NewAuthService(b.users, jwtSecret, cfg.TokenTTL)
	orderService := service.NewOrderService(b.orders, b.guard, service.CheckoutConfig{
		FreeShippingThreshold: cfg.Checkout.FreeShippingThreshold,
		ShippingFee:           cfg.Checkout.ShippingFee,
	}, log)

	e := api.NewRouter(api.Dependencies{
		Registry:     registry,
		AuthService:  authService,
		OrderService: orderService,
		Checks:       b.checks,
		Logger:       log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			writer.Stop()
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}

	// Flush pending snapshots. Handlers outliving a timed-out shutdown have
	// their later snapshots discarded.
	writer.Stop()
	log.Info().Int("sessions", registry.Len()).Msg("snapshot writer drained")
	return nil
}

func openBackends(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*backends, error) {
	if cfg.InMemory {
		log.Warn().Msg("running with in-memory adapters, nothing survives a restart")
		return &backends{
			snapshots: memory.NewSnapshotRepository(),
			orders:    memory.NewOrderRepository(),
			users:     memory.NewUserRepository(),
			checks:    map[string]handler.DependencyCheck{},
			close:     func(context.Context) {},
		}, nil
	}

	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "storefront",
	})
	if err != nil {
		return nil, err
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	orders := mongodb.NewOrderRepository(db)
	users := mongodb.NewAuthRepository(db)
	if err := orders.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to ensure order indexes")
	}
	if err := users.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to ensure user indexes")
	}

	return &backends{
		snapshots: redisdb.NewSnapshotRepository(rdb, cfg.Store.SnapshotTTL),
		orders:    orders,
		users:     users,
		guard:     redisdb.NewIdempotencyGuard(rdb, cfg.Checkout.IdempotencyTTL),
		checks: map[string]handler.DependencyCheck{
			"mongodb": func(ctx context.Context) error { return client.Ping(ctx, nil) },
			"redis":   func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		close: func(ctx context.Context) {
			if err := rdb.Close(); err != nil {
				log.Warn().Err(err).Msg("redis close")
			}
			if err := client.Disconnect(ctx); err != nil {
				log.Warn().Err(err).Msg("mongo disconnect")
			}
		},
	}, nil
}

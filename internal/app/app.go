package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/courtside/internal/backend"
	"github.com/kirinyoku/courtside/internal/config"
	"github.com/kirinyoku/courtside/internal/postgres"
	"github.com/kirinyoku/courtside/internal/redis"
	postgresrepo "github.com/kirinyoku/courtside/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/courtside/internal/repository/redis"
	"github.com/kirinyoku/courtside/internal/service"
	"github.com/kirinyoku/courtside/internal/service/availability"
	httpgin "github.com/kirinyoku/courtside/internal/transport/http/gin"
)

const idempotencyTTL = 2 * time.Hour

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	rdb        *goredis.Client
	pool       *pgxpool.Pool
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	client, err := backend.New(backend.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
		RPS:     cfg.Backend.RPS,
		Burst:   cfg.Backend.Burst,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize backend client: %w", err)
	}

	rdb, err := redis.New(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	var (
		pool  *pgxpool.Pool
		store *postgresrepo.Store
	)
	if cfg.Postgres.Enabled() {
		pool, err = postgres.New(ctx, postgres.Config{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			Name:     cfg.Postgres.Name,
			SSLMode:  cfg.Postgres.SSLMode,
		})
		if err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to initialize postgres: %w", err)
		}

		store = postgresrepo.NewStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to prepare action journal: %w", err)
		}
	} else {
		logger.Info("POSTGRES_DB not set, action journal disabled")
	}

	cache := redisrepo.New(rdb)
	pubsub := redisrepo.NewSchedulePubSub(rdb)
	limiter := redisrepo.NewSlidingWindowLimiter(rdb, "toggle", cfg.Dispatch.RateLimit, cfg.Dispatch.RateWindow)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, idempotencyTTL)

	services := service.NewServices(client, store, cache, pubsub, limiter, logger, service.Config{
		Availability: availability.Config{
			FieldsTTL: cfg.Cache.FieldsTTL,
			PricesTTL: cfg.Cache.PricesTTL,
		},
	})

	router := httpgin.NewRouter(services, idempotencyStore, logger, httpgin.RouterConfig{
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	return &App{
		cfg:    cfg,
		logger: logger,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		rdb:  rdb,
		pool: pool,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer a.close()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

func (a *App) close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}

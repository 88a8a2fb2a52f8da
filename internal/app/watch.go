package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirinyoku/courtside/internal/backend"
	"github.com/kirinyoku/courtside/internal/config"
	"github.com/kirinyoku/courtside/internal/redis"
	redisrepo "github.com/kirinyoku/courtside/internal/repository/redis"
	"github.com/kirinyoku/courtside/internal/service/availability"
	"github.com/kirinyoku/courtside/internal/service/dispatch"
	"github.com/kirinyoku/courtside/internal/view"
)

// RunWatcher polls the schedule of cfg.Watch.Date for the session in
// cfg.Watch.Token and writes newly open slots to out. Redis is optional
// here: without it the watcher polls and keeps its seen set in memory.
func RunWatcher(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	const op = "app.RunWatcher"

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sess, err := backend.NewSession(cfg.Watch.Token)
	if err != nil {
		return fmt.Errorf("%s: BOOKING_TOKEN: %w", op, err)
	}
	if sess.Expired(time.Now()) {
		return fmt.Errorf("%s: %w", op, backend.ErrSessionExpired)
	}

	client, err := backend.New(backend.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
		RPS:     cfg.Backend.RPS,
		Burst:   cfg.Backend.Burst,
	}, logger)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var (
		cache *redisrepo.Cache
		sub   view.Subscriber
	)
	rdb, err := redis.New(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		logger.Warn("redis unavailable, watching without cache or change notifications", slog.String("error", err.Error()))
	} else {
		defer rdb.Close()
		cache = redisrepo.New(rdb)
		sub = redisrepo.NewSchedulePubSub(rdb)
	}

	avail := availability.New(client, cache, logger, availability.Config{
		FieldsTTL: cfg.Cache.FieldsTTL,
		PricesTTL: cfg.Cache.PricesTTL,
	})
	board := view.NewBoard(avail, dispatch.New(client, dispatch.Deps{Logger: logger}), sess, view.NewLogNotifier(logger), logger)

	if cfg.Watch.Date != "" {
		if err := board.SelectDate(ctx, cfg.Watch.Date); err != nil {
			return fmt.Errorf("%s: WATCH_DATE: %w", op, err)
		}
	}

	logger.Info("watching schedule",
		slog.String("date", board.Selection().Date),
		slog.String("subject", sess.Subject),
		slog.Duration("interval", cfg.Watch.Interval),
	)

	return view.NewWatcher(board, cache, cfg.Watch.Interval, out, logger).Run(ctx, sub)
}

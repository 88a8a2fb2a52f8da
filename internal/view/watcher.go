package view

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/courtside/internal/domain"
	redisrepo "github.com/kirinyoku/courtside/internal/repository/redis"
)

const seenTTL = 48 * time.Hour

// Watcher polls a Board and prints slots that became open since the last
// check. The first check prints everything open, unless a previous run left
// its seen set in redis.
type Watcher struct {
	board    *Board
	cache    *redisrepo.Cache
	interval time.Duration
	out      io.Writer
	logger   *slog.Logger

	mu     sync.Mutex
	seen   map[string]bool
	primed bool
}

func NewWatcher(board *Board, cache *redisrepo.Cache, interval time.Duration, out io.Writer, logger *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		board:    board,
		cache:    cache,
		interval: interval,
		out:      out,
		logger:   logger,
	}
}

// Check reloads the board and returns the slots that opened since the
// previous check. A failed reload leaves the seen set untouched.
func (w *Watcher) Check(ctx context.Context) ([]domain.AnnotatedSlot, error) {
	const op = "view.Watcher.Check"

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.board.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sel := w.board.Selection()
	key := redisrepo.KeyWatchSeen(w.board.sess.Subject, sel.Date)

	if !w.primed && w.cache != nil {
		ids, ok, err := redisrepo.GetJSON[[]string](ctx, w.cache, key)
		if err != nil {
			w.logger.Warn("failed to load seen slots", slog.String("error", err.Error()))
		}
		if ok {
			w.seen = make(map[string]bool, len(ids))
			for _, id := range ids {
				w.seen[id] = true
			}
			w.primed = true
		}
	}

	var (
		open  []domain.AnnotatedSlot
		fresh []domain.AnnotatedSlot
		ids   []string
		seen  = make(map[string]bool)
	)
	for _, s := range w.board.Slots() {
		if s.Reserved {
			continue
		}
		id := slotID(s)
		open = append(open, s)
		ids = append(ids, id)
		seen[id] = true
		if w.primed && !w.seen[id] {
			fresh = append(fresh, s)
		}
	}

	if !w.primed {
		w.print("Open slots", open)
		fresh = open
	} else {
		w.print("Newly open slots", fresh)
	}
	w.seen = seen
	w.primed = true

	if w.cache != nil {
		if ids == nil {
			ids = []string{}
		}
		if err := redisrepo.SetJSON(ctx, w.cache, key, ids, seenTTL); err != nil {
			w.logger.Warn("failed to store seen slots", slog.String("error", err.Error()))
		}
	}

	return fresh, nil
}

// Run checks every interval and whenever a schedule change is announced on
// sub, until ctx is done. sub may be nil.
func (w *Watcher) Run(ctx context.Context, sub Subscriber) error {
	if _, err := w.Check(ctx); err != nil {
		w.logger.Warn("check failed", slog.String("error", err.Error()))
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		t := time.NewTicker(w.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
				if _, err := w.Check(ctx); err != nil && ctx.Err() == nil {
					w.logger.Warn("check failed", slog.String("error", err.Error()))
				}
			}
		}
	})

	if sub != nil {
		g.Go(func() error {
			err := sub.Subscribe(ctx, func(ctx context.Context, msg redisrepo.ScheduleChanged) {
				if msg.Date != w.board.Selection().Date {
					return
				}
				if _, err := w.Check(ctx); err != nil && ctx.Err() == nil {
					w.logger.Warn("check failed", slog.String("error", err.Error()))
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				// polling keeps going without change notifications
				w.logger.Warn("schedule subscription ended", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	return g.Wait()
}

func (w *Watcher) print(header string, slots []domain.AnnotatedSlot) {
	if w.out == nil || len(slots) == 0 {
		return
	}

	fmt.Fprintf(w.out, "%s:\n", header)
	for _, s := range slots {
		mark := ""
		if s.Waitlisted {
			mark = " (waitlisted)"
		}
		fmt.Fprintf(w.out, "  %s %s-%s  %-12s %8.2f%s\n", s.Date, s.StartTime, s.EndTime, s.FieldName, s.PriceValue, mark)
	}
}

func slotID(s domain.AnnotatedSlot) string {
	return fmt.Sprintf("%s|%d|%d", s.Date, s.FieldID, s.PriceID)
}

package activity

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirinyoku/courtside/internal/domain"
	postgresrepo "github.com/kirinyoku/courtside/internal/repository/postgres"
	"github.com/kirinyoku/courtside/internal/uow"
)

var ErrDisabled = errors.New("action journal is disabled")

type Config struct {
	DefaultLimit int
	MaxLimit     int
}

// Service is the action journal: every toggle the dispatcher sends to the
// backend, with its outcome. A Service without a store is disabled; Record
// still runs its hooks so callers need not care.
type Service struct {
	store *postgresrepo.Store
	uow   *uow.UoW
	cfg   Config
}

func New(store *postgresrepo.Store, cfg Config) *Service {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 50
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 200
	}

	s := &Service{store: store, cfg: cfg}
	if store != nil {
		s.uow = uow.NewUoW(store)
	}
	return s
}

func (s *Service) Enabled() bool {
	return s != nil && s.store != nil
}

// Record journals a and then runs after.
func (s *Service) Record(ctx context.Context, a domain.Action, after ...uow.AfterCommit) error {
	const op = "service.activity.Record"

	if !s.Enabled() {
		uow.RunHooks(ctx, after...)
		return nil
	}

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, register func(uow.AfterCommit)) error {
		if err := s.store.Journal().With(tx).Record(ctx, a); err != nil {
			return err
		}
		for _, h := range after {
			register(h)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// List returns the newest journaled actions of subject, optionally for one date.
//
// Returns:
//   - error: activity.ErrDisabled when no store is configured.
func (s *Service) List(ctx context.Context, subject, date string, limit int) ([]domain.Action, error) {
	const op = "service.activity.List"

	if !s.Enabled() {
		return nil, fmt.Errorf("%s: %w", op, ErrDisabled)
	}

	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}

	actions, err := s.store.Journal().ListBySubject(ctx, subject, date, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if actions == nil {
		actions = []domain.Action{}
	}
	return actions, nil
}

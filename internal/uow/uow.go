package uow

import (
	"context"

	"github.com/jackc/pgx/v5"

	postgres "github.com/kirinyoku/courtside/internal/repository/postgres"
)

// AfterCommit runs once the surrounding transaction committed.
type AfterCommit func(ctx context.Context)

type UoW struct {
	store *postgres.Store
}

func NewUoW(store *postgres.Store) *UoW {
	return &UoW{store: store}
}

// Do runs fn in a transaction and, after a successful commit, every hook fn
// registered. Hooks see ctx without its cancellation.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx postgres.DB, after func(AfterCommit)) error,
) error {
	return u.DoWithOpts(ctx, nil, fn)
}

func (u *UoW) DoWithOpts(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx postgres.DB, after func(AfterCommit)) error,
) error {
	var hooks []AfterCommit

	err := u.store.RunTx(ctx, opts, func(ctx context.Context, tx postgres.DB) error {
		return fn(ctx, tx, func(h AfterCommit) {
			hooks = append(hooks, h)
		})
	})
	if err != nil {
		return err
	}

	RunHooks(ctx, hooks...)
	return nil
}

// RunHooks runs hooks outside any transaction, with the same detached
// context Do uses.
func RunHooks(ctx context.Context, hooks ...AfterCommit) {
	detached := context.WithoutCancel(ctx)
	for _, h := range hooks {
		h(detached)
	}
}

package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/courtside/internal/domain"
)

type JournalRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *JournalRepo) With(db DB) *JournalRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *JournalRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Record appends one dispatched toggle.
//
// Returns:
//   - error: repository.ErrConflict if an action with the same id exists.
func (r *JournalRepo) Record(ctx context.Context, a domain.Action) error {
	const op = "postgres.JournalRepo.Record"

	id, err := uuid.Parse(a.ID)
	if err != nil {
		return fmt.Errorf("%s: invalid id: %w", op, err)
	}

	_, err = r.handle().Exec(ctx,
		`INSERT INTO action_journal
		   (id, subject, kind, field_id, price_id, slot_date, initial_time, end_time, outcome, message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, a.Subject, string(a.Kind), a.FieldID, a.PriceID, a.Date,
		a.InitialTime, a.EndTime, string(a.Outcome), a.Message, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, translateDBErr(err))
	}
	return nil
}

// ListBySubject returns the newest actions of subject, optionally limited to
// one slot date.
func (r *JournalRepo) ListBySubject(ctx context.Context, subject, date string, limit int) ([]domain.Action, error) {
	const op = "postgres.JournalRepo.ListBySubject"

	rows, err := r.handle().Query(ctx,
		`SELECT id::text, subject, kind, field_id, price_id, slot_date,
		        initial_time, end_time, outcome, message, created_at
		   FROM action_journal
		  WHERE subject = $1 AND ($2 = '' OR slot_date = $2)
		  ORDER BY created_at DESC
		  LIMIT $3`,
		subject, date, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	actions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Action, error) {
		var (
			a       domain.Action
			kind    string
			outcome string
		)
		err := row.Scan(&a.ID, &a.Subject, &kind, &a.FieldID, &a.PriceID, &a.Date,
			&a.InitialTime, &a.EndTime, &outcome, &a.Message, &a.CreatedAt)
		a.Kind = domain.ActionKind(kind)
		a.Outcome = domain.ActionOutcome(outcome)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}
	return actions, nil
}

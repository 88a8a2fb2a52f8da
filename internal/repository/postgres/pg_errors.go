package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kirinyoku/courtside/internal/repository"
)

// translateDBErr maps unique violations to repository.ErrConflict.
func translateDBErr(err error) error {
	if err == nil {
		return nil
	}

	var pge *pgconn.PgError
	if errors.As(err, &pge) && pge.Code == "23505" {
		return repository.ErrConflict
	}

	return err
}

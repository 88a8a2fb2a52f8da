package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/courtside/internal/domain"
	"github.com/kirinyoku/courtside/internal/repository"
)

// newTestStore connects to the database named by COURTSIDE_TEST_POSTGRES_DSN
// and skips the test when it is unset.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("COURTSIDE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("COURTSIDE_TEST_POSTGRES_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := NewStore(pool)
	require.NoError(t, store.EnsureSchema(ctx))
	return store
}

func action(subject, date, initial string, at time.Time) domain.Action {
	return domain.Action{
		ID:          uuid.NewString(),
		Subject:     subject,
		Kind:        domain.ActionReservation,
		FieldID:     1,
		PriceID:     2,
		Date:        date,
		InitialTime: initial,
		EndTime:     "10:30",
		Outcome:     domain.OutcomeCreated,
		CreatedAt:   at,
	}
}

func TestJournalRecordAndList(t *testing.T) {
	store := newTestStore(t)
	repo := store.Journal()
	ctx := context.Background()

	subject := "journal-test-" + uuid.NewString()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	first := action(subject, "2024-06-03", "09:00", base)
	second := action(subject, "2024-06-04", "09:00", base.Add(time.Minute))
	third := action(subject, "2024-06-03", "18:00", base.Add(2*time.Minute))
	for _, a := range []domain.Action{first, second, third} {
		require.NoError(t, repo.Record(ctx, a))
	}
	require.NoError(t, repo.Record(ctx, action("someone-else-"+uuid.NewString(), "2024-06-03", "09:00", base)))

	all, err := repo.ListBySubject(ctx, subject, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, third.ID, all[0].ID)
	assert.Equal(t, second.ID, all[1].ID)
	assert.Equal(t, first.ID, all[2].ID)
	assert.Equal(t, domain.ActionReservation, all[0].Kind)
	assert.Equal(t, domain.OutcomeCreated, all[0].Outcome)
	assert.True(t, third.CreatedAt.Equal(all[0].CreatedAt))

	byDate, err := repo.ListBySubject(ctx, subject, "2024-06-03", 10)
	require.NoError(t, err)
	require.Len(t, byDate, 2)
	for _, a := range byDate {
		assert.Equal(t, "2024-06-03", a.Date)
	}

	limited, err := repo.ListBySubject(ctx, subject, "", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, third.ID, limited[0].ID)

	none, err := repo.ListBySubject(ctx, subject, "2024-06-05", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestJournalRecordDuplicateIsConflict(t *testing.T) {
	store := newTestStore(t)
	repo := store.Journal()
	ctx := context.Background()

	a := action("journal-test-"+uuid.NewString(), "2024-06-03", "09:00", time.Now().UTC())
	require.NoError(t, repo.Record(ctx, a))
	assert.ErrorIs(t, repo.Record(ctx, a), repository.ErrConflict)
}

func TestJournalRecordRejectsMalformedID(t *testing.T) {
	repo := (&Store{}).Journal()
	a := action("u1", "2024-06-03", "09:00", time.Now())
	a.ID = "not-a-uuid"
	assert.Error(t, repo.Record(context.Background(), a))
}

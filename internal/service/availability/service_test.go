package availability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/courtside/internal/backend"
	"github.com/kirinyoku/courtside/internal/domain"
	redisrepo "github.com/kirinyoku/courtside/internal/repository/redis"
	"github.com/kirinyoku/courtside/internal/schedule"
)

type fakeBackend struct {
	mu           sync.Mutex
	fields       []domain.Field
	prices       []domain.PriceDefinition
	reservations []domain.Reservation
	waitlist     []domain.WaitlistEntry

	fieldsErr, pricesErr, reservationsErr, waitlistErr error

	fieldCalls int
	lastQuery  backend.ReservationQuery
}

func (f *fakeBackend) Fields(ctx context.Context, sess backend.Session) ([]domain.Field, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fieldCalls++
	return f.fields, f.fieldsErr
}

func (f *fakeBackend) ActivePrices(ctx context.Context, sess backend.Session, date string) ([]domain.PriceDefinition, error) {
	return f.prices, f.pricesErr
}

func (f *fakeBackend) Reservations(ctx context.Context, sess backend.Session, q backend.ReservationQuery) ([]domain.Reservation, error) {
	f.mu.Lock()
	f.lastQuery = q
	f.mu.Unlock()
	return f.reservations, f.reservationsErr
}

func (f *fakeBackend) Waitlist(ctx context.Context, sess backend.Session) ([]domain.WaitlistEntry, error) {
	return f.waitlist, f.waitlistErr
}

var sess = backend.Session{Token: "t", Subject: "u1"}

func scenarioBackend() *fakeBackend {
	return &fakeBackend{
		fields: []domain.Field{{ID: 1, Name: "Court A", Available: true}},
		prices: []domain.PriceDefinition{{ID: 1, Type: "SEMANA_09h00_10h30", Value: 10, IsActive: true}},
	}
}

func TestViewScenarioOpenSlot(t *testing.T) {
	svc := New(scenarioBackend(), nil, nil, Config{})

	v, err := svc.View(context.Background(), sess, domain.Selection{Date: "2024-06-03"})
	require.NoError(t, err)
	require.Empty(t, v.Warnings)
	require.Len(t, v.Slots, 1)
	assert.False(t, v.Slots[0].Reserved)
	assert.False(t, v.Slots[0].Waitlisted)
	assert.Equal(t, "09:00", v.Slots[0].StartTime)
	assert.Equal(t, "10:30", v.Slots[0].EndTime)
}

func TestViewScenarioReservedSlot(t *testing.T) {
	b := scenarioBackend()
	b.reservations = []domain.Reservation{{FieldID: 1, Date: "2024-06-03", InitialTime: "09:00", Cancelled: false}}
	svc := New(b, nil, nil, Config{})

	v, err := svc.View(context.Background(), sess, domain.Selection{Date: "2024-06-03"})
	require.NoError(t, err)
	require.Len(t, v.Slots, 1)
	assert.True(t, v.Slots[0].Reserved)
}

func TestViewPassesQueryToReservations(t *testing.T) {
	b := scenarioBackend()
	svc := New(b, nil, nil, Config{})

	_, err := svc.View(context.Background(), sess, domain.Selection{
		Date:       "2024-06-03",
		OrderTime:  domain.SortDesc,
		OrderPrice: domain.SortAsc,
		FieldID:    1,
	})
	require.NoError(t, err)
	assert.Equal(t, backend.ReservationQuery{
		Date:       "2024-06-03",
		OrderTime:  domain.SortDesc,
		OrderPrice: domain.SortAsc,
		FieldID:    1,
	}, b.lastQuery)
}

func TestViewTreatsFailedSourcesAsEmpty(t *testing.T) {
	b := scenarioBackend()
	b.pricesErr = backend.ErrNetwork
	b.waitlist = []domain.WaitlistEntry{{InterestedTime: "2024-06-03 09:00:00"}}
	svc := New(b, nil, nil, Config{})

	v, err := svc.View(context.Background(), sess, domain.Selection{Date: "2024-06-03"})
	require.NoError(t, err)
	assert.Empty(t, v.Slots)
	require.Len(t, v.Warnings, 1)

	var se *SourceError
	require.ErrorAs(t, v.Warnings[0], &se)
	assert.Equal(t, SourcePrices, se.Source)
	assert.ErrorIs(t, v.Warnings[0], backend.ErrNetwork)
	assert.ErrorIs(t, v.Warnings[0], ErrSourceFailed)
}

func TestViewFailsOnUnusableSession(t *testing.T) {
	b := scenarioBackend()
	b.fieldsErr = &backend.APIError{Status: 401, Message: "Not authenticated"}
	svc := New(b, nil, nil, Config{})

	_, err := svc.View(context.Background(), sess, domain.Selection{Date: "2024-06-03"})
	require.ErrorIs(t, err, backend.ErrUnauthorized)
}

func TestViewRejectsMalformedDate(t *testing.T) {
	b := scenarioBackend()
	svc := New(b, nil, nil, Config{})

	_, err := svc.View(context.Background(), sess, domain.Selection{Date: "03/06/2024"})
	require.ErrorIs(t, err, schedule.ErrValidation)
	assert.Zero(t, b.fieldCalls)
}

func TestViewFiltersAndSorts(t *testing.T) {
	b := &fakeBackend{
		fields: []domain.Field{
			{ID: 1, Name: "Court A", Available: true},
			{ID: 2, Name: "Court B", Available: true},
		},
		prices: []domain.PriceDefinition{
			{ID: 1, Type: "SEMANA_18h00_19h30", Value: 20, IsActive: true},
			{ID: 2, Type: "SEMANA_09h00_10h30", Value: 10, IsActive: true},
		},
	}
	svc := New(b, nil, nil, Config{})

	v, err := svc.View(context.Background(), sess, domain.Selection{
		Date:      "2024-06-03",
		Field:     "Court B",
		Time:      domain.All,
		OrderTime: domain.SortAsc,
	})
	require.NoError(t, err)
	require.Len(t, v.Slots, 2)
	assert.Equal(t, "09:00", v.Slots[0].StartTime)
	assert.Equal(t, "18:00", v.Slots[1].StartTime)
	for _, s := range v.Slots {
		assert.Equal(t, "Court B", s.FieldName)
	}
}

func TestComposeLogsUndecodablePrices(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	slots := Compose(logger, Snapshot{
		Fields: []domain.Field{{ID: 1, Name: "Court A", Available: true}},
		Prices: []domain.PriceDefinition{
			{ID: 7, Type: "SEMANA_9-10", IsActive: true},
			{ID: 8, Type: "SEMANA_10h00_11h00", IsActive: true},
		},
	}, domain.Selection{Date: "2024-06-03"})

	require.Len(t, slots, 1)
	assert.Contains(t, buf.String(), "skipping price definition")
	assert.Contains(t, buf.String(), "price_id=7")
}

func TestFieldsAndPricesAreCached(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	b := scenarioBackend()
	svc := New(b, redisrepo.New(rdb), nil, Config{FieldsTTL: time.Minute})

	for i := 0; i < 3; i++ {
		_, err := svc.View(context.Background(), sess, domain.Selection{Date: "2024-06-03"})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, b.fieldCalls)
	assert.True(t, mr.Exists(redisrepo.KeyActivePrices("2024-06-03")))
}

func TestOptions(t *testing.T) {
	svc := New(scenarioBackend(), nil, nil, Config{DateWindow: 3})
	svc.now = func() time.Time { return time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC) }

	opts, err := svc.Options(context.Background(), sess, "2024-06-03")
	require.NoError(t, err)
	assert.Len(t, opts.Dates, 3)
	assert.Equal(t, "2024-06-03", opts.Dates[0].Value)
	assert.Equal(t, []domain.Option{{Label: domain.All, Value: domain.All}, {Label: "09:00 - 10:30", Value: "09:00"}}, opts.Times)
	assert.Equal(t, []domain.Option{{Label: domain.All, Value: domain.All}, {Label: "Court A", Value: "Court A"}}, opts.Fields)
}

func TestOptionsPropagatesSourceErrors(t *testing.T) {
	b := scenarioBackend()
	b.fieldsErr = errors.New("boom")
	_, err := New(b, nil, nil, Config{}).Options(context.Background(), sess, "2024-06-03")
	assert.ErrorIs(t, err, ErrSourceFailed)
}

type tokenCheckingBackend struct {
	*fakeBackend
	valid string
}

func (t *tokenCheckingBackend) check(sess backend.Session) error {
	if sess.Token != t.valid {
		return &backend.APIError{Status: 401, Message: "Not authenticated"}
	}
	return nil
}

func (t *tokenCheckingBackend) Fields(ctx context.Context, sess backend.Session) ([]domain.Field, error) {
	if err := t.check(sess); err != nil {
		return nil, err
	}
	return t.fakeBackend.Fields(ctx, sess)
}

func (t *tokenCheckingBackend) ActivePrices(ctx context.Context, sess backend.Session, date string) ([]domain.PriceDefinition, error) {
	if err := t.check(sess); err != nil {
		return nil, err
	}
	return t.fakeBackend.ActivePrices(ctx, sess, date)
}

func (t *tokenCheckingBackend) Waitlist(ctx context.Context, sess backend.Session) ([]domain.WaitlistEntry, error) {
	if err := t.check(sess); err != nil {
		return nil, err
	}
	return t.fakeBackend.Waitlist(ctx, sess)
}

func TestOptionsRejectsSessionDespiteWarmCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	b := &tokenCheckingBackend{fakeBackend: scenarioBackend(), valid: "good"}
	svc := New(b, redisrepo.New(rdb), nil, Config{FieldsTTL: time.Minute})

	_, err := svc.Options(context.Background(), backend.Session{Token: "good", Subject: "u1"}, "2024-06-03")
	require.NoError(t, err)
	require.True(t, mr.Exists(redisrepo.KeyActivePrices("2024-06-03")))

	opts, err := svc.Options(context.Background(), backend.Session{Token: "forged", Subject: "u1"}, "2024-06-03")
	require.ErrorIs(t, err, backend.ErrUnauthorized)
	assert.Nil(t, opts)
}

func TestOptionsIgnoresNonSessionWaitlistFailure(t *testing.T) {
	b := scenarioBackend()
	b.waitlistErr = backend.ErrNetwork
	opts, err := New(b, nil, nil, Config{}).Options(context.Background(), sess, "2024-06-03")
	require.NoError(t, err)
	assert.Len(t, opts.Fields, 2)
}

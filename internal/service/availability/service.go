package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/courtside/internal/backend"
	"github.com/kirinyoku/courtside/internal/domain"
	redisrepo "github.com/kirinyoku/courtside/internal/repository/redis"
	"github.com/kirinyoku/courtside/internal/schedule"
)

// Backend is the read side of the booking API.
type Backend interface {
	Fields(ctx context.Context, sess backend.Session) ([]domain.Field, error)
	ActivePrices(ctx context.Context, sess backend.Session, date string) ([]domain.PriceDefinition, error)
	Reservations(ctx context.Context, sess backend.Session, q backend.ReservationQuery) ([]domain.Reservation, error)
	Waitlist(ctx context.Context, sess backend.Session) ([]domain.WaitlistEntry, error)
}

type Config struct {
	FieldsTTL  time.Duration
	PricesTTL  time.Duration
	DateWindow int
}

type Service struct {
	backend Backend
	cache   *redisrepo.Cache
	logger  *slog.Logger
	cfg     Config
	now     func() time.Time
}

func New(b Backend, cache *redisrepo.Cache, logger *slog.Logger, cfg Config) *Service {
	if cfg.FieldsTTL <= 0 {
		cfg.FieldsTTL = 60 * time.Second
	}

	if cfg.PricesTTL <= 0 {
		cfg.PricesTTL = 60 * time.Second
	}

	if cfg.DateWindow <= 0 {
		cfg.DateWindow = 7
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		backend: b,
		cache:   cache,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Snapshot holds the four inputs of the scheduling view. Nil slices mean
// "not loaded" and are treated as empty.
type Snapshot struct {
	Fields       []domain.Field
	Prices       []domain.PriceDefinition
	Reservations []domain.Reservation
	Waitlist     []domain.WaitlistEntry
}

// View is the rendered scheduling grid for one selection.
type View struct {
	Date     string
	Slots    []domain.AnnotatedSlot
	Warnings []error
}

type Options struct {
	Dates  []domain.Option `json:"dates"`
	Times  []domain.Option `json:"times"`
	Fields []domain.Option `json:"fields"`
}

// Compose runs build, annotate, filter and sort over snap. Price definitions
// that cannot be decoded are logged and left out.
func Compose(logger *slog.Logger, snap Snapshot, sel domain.Selection) []domain.AnnotatedSlot {
	slots, skipped := schedule.BuildSlots(snap.Fields, snap.Prices, sel.Date)
	for _, err := range skipped {
		attrs := []any{slog.String("date", sel.Date), slog.String("error", err.Error())}
		var de *schedule.DecodeError
		if errors.As(err, &de) {
			attrs = append(attrs, slog.Int64("price_id", de.PriceID), slog.String("price_type", de.PriceType))
		}
		logger.Warn("skipping price definition", attrs...)
	}

	annotated := schedule.Annotate(slots, snap.Reservations, snap.Waitlist, sel.Date)
	return schedule.Apply(annotated, sel)
}

// View fetches the four sources concurrently and composes the grid.
//
// Parameters:
//   - ctx: request-scoped context.
//   - sess: session of the user the view is for.
//   - sel: date, filters and orders.
//
// Returns:
//   - *View: the grid; per-source failures are listed in Warnings.
//   - error: schedule.ErrValidation for a malformed date.
//   - error: backend.ErrUnauthorized / ErrSessionExpired / ErrNoSession when the session is not usable.
func (s *Service) View(ctx context.Context, sess backend.Session, sel domain.Selection) (*View, error) {
	const op = "service.availability.View"

	date, err := schedule.ParseDate(sel.Date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sel.Date = date

	snap, warnings := s.Fetch(ctx, sess, sel)
	for _, w := range warnings {
		if isSessionErr(w) {
			return nil, fmt.Errorf("%s: %w", op, w)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &View{
		Date:     date,
		Slots:    Compose(s.logger, snap, sel),
		Warnings: warnings,
	}, nil
}

// Fetch loads the four sources independently. A failed source is left nil
// and reported; the others are unaffected.
func (s *Service) Fetch(ctx context.Context, sess backend.Session, sel domain.Selection) (Snapshot, []error) {
	var (
		snap Snapshot
		errs [4]error
		g    errgroup.Group
	)

	g.Go(func() error {
		snap.Fields, errs[0] = s.FetchFields(ctx, sess)
		return nil
	})
	g.Go(func() error {
		snap.Prices, errs[1] = s.FetchPrices(ctx, sess, sel.Date)
		return nil
	})
	g.Go(func() error {
		snap.Reservations, errs[2] = s.FetchReservations(ctx, sess, sel)
		return nil
	})
	g.Go(func() error {
		snap.Waitlist, errs[3] = s.FetchWaitlist(ctx, sess)
		return nil
	})
	_ = g.Wait()

	var warnings []error
	for _, err := range errs {
		if err != nil {
			warnings = append(warnings, err)
		}
	}
	return snap, warnings
}

func (s *Service) FetchFields(ctx context.Context, sess backend.Session) ([]domain.Field, error) {
	load := func(ctx context.Context) ([]domain.Field, error) {
		return s.backend.Fields(ctx, sess)
	}

	var (
		fields []domain.Field
		err    error
	)
	if s.cache != nil {
		fields, err = redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyFields(), s.cfg.FieldsTTL, load)
	} else {
		fields, err = load(ctx)
	}
	if err != nil {
		return nil, &SourceError{Source: SourceFields, Err: err}
	}
	return fields, nil
}

func (s *Service) FetchPrices(ctx context.Context, sess backend.Session, date string) ([]domain.PriceDefinition, error) {
	load := func(ctx context.Context) ([]domain.PriceDefinition, error) {
		return s.backend.ActivePrices(ctx, sess, date)
	}

	var (
		prices []domain.PriceDefinition
		err    error
	)
	if s.cache != nil {
		prices, err = redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyActivePrices(date), s.cfg.PricesTTL, load)
	} else {
		prices, err = load(ctx)
	}
	if err != nil {
		return nil, &SourceError{Source: SourcePrices, Err: err}
	}
	return prices, nil
}

// FetchReservations always goes to the backend; reservations are the state
// conflicts are resolved against.
func (s *Service) FetchReservations(ctx context.Context, sess backend.Session, sel domain.Selection) ([]domain.Reservation, error) {
	res, err := s.backend.Reservations(ctx, sess, backend.ReservationQuery{
		Date:       sel.Date,
		OrderPrice: sel.OrderPrice,
		OrderTime:  sel.OrderTime,
		FieldID:    sel.FieldID,
		PriceID:    sel.PriceID,
	})
	if err != nil {
		return nil, &SourceError{Source: SourceReservations, Err: err}
	}
	return res, nil
}

func (s *Service) FetchWaitlist(ctx context.Context, sess backend.Session) ([]domain.WaitlistEntry, error) {
	w, err := s.backend.Waitlist(ctx, sess)
	if err != nil {
		return nil, &SourceError{Source: SourceWaitlist, Err: err}
	}
	return w, nil
}

// Options builds the date, time and field dropdowns for date. Fields and
// prices may come from the shared cache, so the session is checked against
// the backend with an uncached waitlist fetch; only a session failure from
// that fetch fails the call.
func (s *Service) Options(ctx context.Context, sess backend.Session, date string) (*Options, error) {
	const op = "service.availability.Options"

	date, err := schedule.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var (
		fields []domain.Field
		prices []domain.PriceDefinition
		g      errgroup.Group
	)
	g.Go(func() error {
		var err error
		fields, err = s.FetchFields(ctx, sess)
		return err
	})
	g.Go(func() error {
		var err error
		prices, err = s.FetchPrices(ctx, sess, date)
		return err
	})
	g.Go(func() error {
		if _, err := s.FetchWaitlist(ctx, sess); isSessionErr(err) {
			return err
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Options{
		Dates:  schedule.DateOptions(s.now(), s.cfg.DateWindow),
		Times:  schedule.TimeOptions(prices),
		Fields: schedule.FieldOptions(fields),
	}, nil
}

func isSessionErr(err error) bool {
	return errors.Is(err, backend.ErrUnauthorized) ||
		errors.Is(err, backend.ErrSessionExpired) ||
		errors.Is(err, backend.ErrNoSession)
}

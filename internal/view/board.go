package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/courtside/internal/backend"
	"github.com/kirinyoku/courtside/internal/domain"
	redisrepo "github.com/kirinyoku/courtside/internal/repository/redis"
	"github.com/kirinyoku/courtside/internal/schedule"
	"github.com/kirinyoku/courtside/internal/service/availability"
	"github.com/kirinyoku/courtside/internal/service/dispatch"
)

type Source interface {
	FetchFields(ctx context.Context, sess backend.Session) ([]domain.Field, error)
	FetchPrices(ctx context.Context, sess backend.Session, date string) ([]domain.PriceDefinition, error)
	FetchReservations(ctx context.Context, sess backend.Session, sel domain.Selection) ([]domain.Reservation, error)
	FetchWaitlist(ctx context.Context, sess backend.Session) ([]domain.WaitlistEntry, error)
}

type Dispatcher interface {
	Reserve(ctx context.Context, sess backend.Session, slot domain.AnnotatedSlot, date string) (domain.Action, error)
	Waitlist(ctx context.Context, sess backend.Session, slot domain.AnnotatedSlot, date string) (domain.Action, error)
}

type Subscriber interface {
	Subscribe(ctx context.Context, handler func(ctx context.Context, msg redisrepo.ScheduleChanged)) error
}

type family int

const (
	familyFields family = iota
	familyPrices
	familyReservations
	familyWaitlist
	familyCount
)

// Board is the stateful scheduling view of one session: one snapshot per
// data source, refreshed independently. Each source has its own request
// sequence; a response that is not from the latest request of its family is
// dropped, and starting a newer request cancels the older one.
//
// A failed request keeps the last good data of its family while that data
// still belongs to the selected date; prices and reservations of another
// date are replaced by nothing.
type Board struct {
	src      Source
	disp     Dispatcher
	sess     backend.Session
	notifier Notifier
	logger   *slog.Logger

	mu     sync.Mutex
	sel    domain.Selection
	snap   availability.Snapshot
	seq    [familyCount]uint64
	cancel [familyCount]context.CancelFunc
	// scope of the data held per family; valid only where loaded is set.
	scope  [familyCount]string
	loaded [familyCount]bool
}

func NewBoard(src Source, disp Dispatcher, sess backend.Session, notifier Notifier, logger *slog.Logger) *Board {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}

	return &Board{
		src:      src,
		disp:     disp,
		sess:     sess,
		notifier: notifier,
		logger:   logger,
		sel: domain.Selection{
			Date:  time.Now().Format(schedule.DateLayout),
			Field: domain.All,
			Time:  domain.All,
		},
	}
}

// Start loads every source for the current selection.
func (b *Board) Start(ctx context.Context) error {
	return b.Refresh(ctx)
}

// Refresh reloads every source. The grid is rebuilt from whatever arrives;
// failed sources are notified and keep their last good data, or are empty
// when there is none for the selected date.
func (b *Board) Refresh(ctx context.Context) error {
	return b.reload(ctx, familyFields, familyPrices, familyReservations, familyWaitlist)
}

// SelectDate switches the board to date. Reservations of the previous date
// are cleared before the new ones are requested.
func (b *Board) SelectDate(ctx context.Context, date string) error {
	const op = "view.Board.SelectDate"

	date, err := schedule.ParseDate(date)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	b.mu.Lock()
	b.sel.Date = date
	b.snap.Reservations = nil
	b.mu.Unlock()

	return b.reload(ctx, familyPrices, familyReservations)
}

// SetFilter narrows the grid to one field name and one start time; empty
// values mean All. Only reservations are reloaded.
func (b *Board) SetFilter(ctx context.Context, field, clock string) error {
	const op = "view.Board.SetFilter"

	if field == "" {
		field = domain.All
	}
	if clock == "" || clock == domain.All {
		clock = domain.All
	} else {
		c, err := schedule.NormalizeClock(clock)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		clock = c
	}

	b.mu.Lock()
	b.sel.Field = field
	b.sel.Time = clock
	b.mu.Unlock()

	return b.reload(ctx, familyReservations)
}

// SetOrder changes the time and price ordering. Only reservations are reloaded.
func (b *Board) SetOrder(ctx context.Context, byTime, byPrice domain.SortOrder) error {
	b.mu.Lock()
	b.sel.OrderTime = byTime
	b.sel.OrderPrice = byPrice
	b.mu.Unlock()

	return b.reload(ctx, familyReservations)
}

func (b *Board) Selection() domain.Selection {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sel
}

func (b *Board) Snapshot() availability.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snap
}

// Slots is the annotated, filtered and ordered grid for the current state.
func (b *Board) Slots() []domain.AnnotatedSlot {
	b.mu.Lock()
	snap, sel := b.snap, b.sel
	b.mu.Unlock()

	return availability.Compose(b.logger, snap, sel)
}

// ToggleReservation books the visible slot key. On success the whole board
// is reloaded; nothing is patched locally.
func (b *Board) ToggleReservation(ctx context.Context, key domain.SlotKey) (domain.Action, error) {
	return b.toggle(ctx, key, domain.ActionReservation)
}

// ToggleWaitlist joins the waitlist for the visible slot key.
func (b *Board) ToggleWaitlist(ctx context.Context, key domain.SlotKey) (domain.Action, error) {
	return b.toggle(ctx, key, domain.ActionWaitlist)
}

func (b *Board) toggle(ctx context.Context, key domain.SlotKey, kind domain.ActionKind) (domain.Action, error) {
	const op = "view.Board.toggle"

	slot, ok := b.find(key)
	if !ok {
		err := fmt.Errorf("%s: %w", op, dispatch.ErrSlotNotFound)
		b.notifier.Failure(dispatch.UserMessage(err))
		return domain.Action{}, err
	}
	date := b.Selection().Date

	var (
		action domain.Action
		err    error
	)
	if kind == domain.ActionReservation {
		action, err = b.disp.Reserve(ctx, b.sess, slot, date)
	} else {
		action, err = b.disp.Waitlist(ctx, b.sess, slot, date)
	}
	if err != nil {
		b.notifier.Failure(dispatch.UserMessage(err))
		return action, fmt.Errorf("%s: %w", op, err)
	}

	if kind == domain.ActionReservation {
		b.notifier.Success("Reservation created")
	} else {
		b.notifier.Success("Added to the waitlist")
	}

	// the refresh outcome is notified on its own
	_ = b.Refresh(ctx)
	return action, nil
}

func (b *Board) find(key domain.SlotKey) (domain.AnnotatedSlot, bool) {
	for _, s := range b.Slots() {
		if s.Key() == key {
			return s, true
		}
	}
	return domain.AnnotatedSlot{}, false
}

// Watch reloads the board whenever a schedule change is announced for the
// selected date. It blocks until ctx is done or the subscription ends.
func (b *Board) Watch(ctx context.Context, sub Subscriber) error {
	return sub.Subscribe(ctx, func(ctx context.Context, msg redisrepo.ScheduleChanged) {
		if msg.Date != b.Selection().Date {
			return
		}
		b.logger.Debug("schedule changed, reloading", slog.String("date", msg.Date), slog.String("by", msg.Subject))
		_ = b.Refresh(ctx)
	})
}

// reload fetches the given families concurrently. Each one lands in the
// snapshot as soon as it arrives; there is no join before rendering.
func (b *Board) reload(ctx context.Context, families ...family) error {
	errs := make([]error, len(families))

	var g errgroup.Group
	for i, fam := range families {
		g.Go(func() error {
			errs[i] = b.load(ctx, fam)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

func (b *Board) load(ctx context.Context, fam family) error {
	b.mu.Lock()
	b.seq[fam]++
	seq := b.seq[fam]
	if b.cancel[fam] != nil {
		b.cancel[fam]()
	}
	ctx, cancel := context.WithCancel(ctx)
	b.cancel[fam] = cancel
	sel := b.sel
	b.mu.Unlock()
	defer cancel()

	var (
		apply func(*availability.Snapshot)
		err   error
	)
	switch fam {
	case familyFields:
		var v []domain.Field
		v, err = b.src.FetchFields(ctx, b.sess)
		apply = func(s *availability.Snapshot) { s.Fields = v }
	case familyPrices:
		var v []domain.PriceDefinition
		v, err = b.src.FetchPrices(ctx, b.sess, sel.Date)
		apply = func(s *availability.Snapshot) { s.Prices = v }
	case familyReservations:
		var v []domain.Reservation
		v, err = b.src.FetchReservations(ctx, b.sess, sel)
		apply = func(s *availability.Snapshot) { s.Reservations = v }
	case familyWaitlist:
		var v []domain.WaitlistEntry
		v, err = b.src.FetchWaitlist(ctx, b.sess)
		apply = func(s *availability.Snapshot) { s.Waitlist = v }
	}

	b.mu.Lock()
	if b.seq[fam] != seq {
		b.mu.Unlock()
		return nil
	}
	b.cancel[fam] = nil
	scope := familyScope(fam, sel)
	switch {
	case err == nil:
		apply(&b.snap)
		b.scope[fam], b.loaded[fam] = scope, true
	case b.loaded[fam] && b.scope[fam] == scope:
		// keep the last good data
	default:
		apply(&b.snap)
		b.loaded[fam] = false
	}
	b.mu.Unlock()

	if err != nil {
		if !backend.IsCanceled(err) {
			b.notifier.Failure(backend.UserMessage(err))
		}
		return err
	}
	return nil
}

// familyScope is what the data of fam depends on: the date for prices and
// reservations, nothing for the rest.
func familyScope(fam family, sel domain.Selection) string {
	if fam == familyPrices || fam == familyReservations {
		return sel.Date
	}
	return ""
}

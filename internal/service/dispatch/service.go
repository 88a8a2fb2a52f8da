package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirinyoku/courtside/internal/backend"
	"github.com/kirinyoku/courtside/internal/domain"
	redisrepo "github.com/kirinyoku/courtside/internal/repository/redis"
	"github.com/kirinyoku/courtside/internal/schedule"
	"github.com/kirinyoku/courtside/internal/service/availability"
	"github.com/kirinyoku/courtside/internal/uow"
)

// Backend is the write side of the booking API.
type Backend interface {
	CreateReservation(ctx context.Context, sess backend.Session, req backend.CreateReservationRequest) error
	CreateWaitlistEntry(ctx context.Context, sess backend.Session, req backend.CreateWaitlistRequest) error
}

type Viewer interface {
	View(ctx context.Context, sess backend.Session, sel domain.Selection) (*availability.View, error)
}

type Journal interface {
	Record(ctx context.Context, a domain.Action, after ...uow.AfterCommit) error
}

// Deps are the optional collaborators; any of them may be nil.
type Deps struct {
	Viewer  Viewer
	Journal Journal
	Cache   *redisrepo.Cache
	PubSub  *redisrepo.SchedulePubSub
	Limiter *redisrepo.SlidingWindowLimiter
	Logger  *slog.Logger
}

// Service turns a toggle on a slot into exactly one create request. It never
// patches local state: on success it invalidates cached snapshots and
// announces the change so every view rebuilds from the backend.
type Service struct {
	backend Backend
	viewer  Viewer
	journal Journal
	cache   *redisrepo.Cache
	pubsub  *redisrepo.SchedulePubSub
	limiter *redisrepo.SlidingWindowLimiter
	logger  *slog.Logger
	now     func() time.Time
}

func New(b Backend, deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		backend: b,
		viewer:  deps.Viewer,
		journal: deps.Journal,
		cache:   deps.Cache,
		pubsub:  deps.PubSub,
		limiter: deps.Limiter,
		logger:  logger,
		now:     time.Now,
	}
}

// Reserve books slot on date.
//
// Returns:
//   - domain.Action: the dispatched request as journaled.
//   - error: dispatch.ErrSlotReserved if slot is already reserved; nothing is sent.
//   - error: schedule.ErrValidation for a malformed date or time; nothing is sent.
//   - error: dispatch.ErrReservationConflict if the backend reports the slot booked.
//   - error: dispatch.ErrRateLimited if the session toggled too often.
func (s *Service) Reserve(ctx context.Context, sess backend.Session, slot domain.AnnotatedSlot, date string) (domain.Action, error) {
	const op = "service.dispatch.Reserve"

	if slot.Reserved {
		return domain.Action{}, fmt.Errorf("%s: %w", op, ErrSlotReserved)
	}

	date, err := schedule.ParseDate(date)
	if err != nil {
		return domain.Action{}, fmt.Errorf("%s: %w", op, err)
	}
	initial, err := schedule.Timestamp(date, slot.StartTime)
	if err != nil {
		return domain.Action{}, fmt.Errorf("%s: %w", op, err)
	}
	end, err := schedule.Timestamp(date, slot.EndTime)
	if err != nil {
		return domain.Action{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.allow(ctx, sess); err != nil {
		return domain.Action{}, fmt.Errorf("%s: %w", op, err)
	}

	action := s.newAction(sess, domain.ActionReservation, slot, date, initial, end)

	err = s.backend.CreateReservation(ctx, sess, backend.CreateReservationRequest{
		FieldID:     slot.FieldID,
		PriceID:     slot.PriceID,
		InitialTime: initial,
		EndTime:     end,
	})
	if err != nil {
		if errors.Is(err, backend.ErrConflict) {
			err = fmt.Errorf("%w: %w", ErrReservationConflict, err)
		}
		s.finish(ctx, &action, err)
		return action, fmt.Errorf("%s: %w", op, err)
	}

	s.finish(ctx, &action, nil)
	return action, nil
}

// Waitlist registers interest in slot on date, with notifications on.
//
// Returns:
//   - domain.Action: the dispatched request as journaled.
//   - error: dispatch.ErrSlotWaitlisted if slot is already waitlisted; nothing is sent.
//   - error: schedule.ErrValidation for a malformed date or time; nothing is sent.
//   - error: dispatch.ErrWaitlistConflict if the backend already has the entry;
//     the backend's text is kept in the chain as *backend.APIError.
//   - error: dispatch.ErrRateLimited if the session toggled too often.
func (s *Service) Waitlist(ctx context.Context, sess backend.Session, slot domain.AnnotatedSlot, date string) (domain.Action, error) {
	const op = "service.dispatch.Waitlist"

	if slot.Waitlisted {
		return domain.Action{}, fmt.Errorf("%s: %w", op, ErrSlotWaitlisted)
	}

	date, err := schedule.ParseDate(date)
	if err != nil {
		return domain.Action{}, fmt.Errorf("%s: %w", op, err)
	}
	interested, err := schedule.Timestamp(date, slot.StartTime)
	if err != nil {
		return domain.Action{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.allow(ctx, sess); err != nil {
		return domain.Action{}, fmt.Errorf("%s: %w", op, err)
	}

	action := s.newAction(sess, domain.ActionWaitlist, slot, date, interested, "")

	err = s.backend.CreateWaitlistEntry(ctx, sess, backend.CreateWaitlistRequest{
		Silence:        false,
		InterestedTime: interested,
	})
	if err != nil {
		if errors.Is(err, backend.ErrConflict) {
			err = fmt.Errorf("%w: %w", ErrWaitlistConflict, err)
		}
		s.finish(ctx, &action, err)
		return action, fmt.Errorf("%s: %w", op, err)
	}

	s.finish(ctx, &action, nil)
	return action, nil
}

// ToggleByKey resolves the slot (fieldID, priceID) on date from a fresh view and
// dispatches kind on it, so a slot that became reserved meanwhile is refused
// without contacting the create endpoint.
func (s *Service) ToggleByKey(
	ctx context.Context,
	sess backend.Session,
	kind domain.ActionKind,
	date string,
	key domain.SlotKey,
) (domain.Action, error) {
	const op = "service.dispatch.ToggleByKey"

	if kind != domain.ActionReservation && kind != domain.ActionWaitlist {
		return domain.Action{}, fmt.Errorf("%s: %w: %q", op, ErrUnknownAction, kind)
	}
	if s.viewer == nil {
		return domain.Action{}, fmt.Errorf("%s: no viewer configured", op)
	}

	view, err := s.viewer.View(ctx, sess, domain.Selection{Date: date})
	if err != nil {
		return domain.Action{}, fmt.Errorf("%s: %w", op, err)
	}

	for _, slot := range view.Slots {
		if slot.Key() != key {
			continue
		}
		if kind == domain.ActionReservation {
			return s.Reserve(ctx, sess, slot, view.Date)
		}
		return s.Waitlist(ctx, sess, slot, view.Date)
	}

	return domain.Action{}, fmt.Errorf("%s: %w: field %d price %d on %s", op, ErrSlotNotFound, key.FieldID, key.PriceID, date)
}

func (s *Service) allow(ctx context.Context, sess backend.Session) error {
	if s.limiter == nil || sess.Subject == "" {
		return nil
	}

	d, err := s.limiter.Allow(ctx, sess.Subject)
	if err != nil {
		// fail open
		s.logger.Warn("toggle rate limiter unavailable", slog.String("error", err.Error()))
		return nil
	}
	if !d.Allowed {
		return &RateLimitedError{RetryAfter: d.RetryAfter}
	}
	return nil
}

func (s *Service) newAction(
	sess backend.Session,
	kind domain.ActionKind,
	slot domain.AnnotatedSlot,
	date, initial, end string,
) domain.Action {
	return domain.Action{
		ID:          uuid.NewString(),
		Subject:     sess.Subject,
		Kind:        kind,
		FieldID:     slot.FieldID,
		PriceID:     slot.PriceID,
		Date:        date,
		InitialTime: initial,
		EndTime:     end,
		CreatedAt:   s.now().UTC(),
	}
}

// finish stamps the outcome on a, journals it and, on success, invalidates
// the date's snapshots and publishes the change.
func (s *Service) finish(ctx context.Context, a *domain.Action, err error) {
	var hooks []uow.AfterCommit

	switch {
	case err == nil:
		a.Outcome = domain.OutcomeCreated
		hooks = append(hooks, s.invalidate(a.Date, a.Subject))
	case errors.Is(err, ErrReservationConflict), errors.Is(err, ErrWaitlistConflict):
		a.Outcome = domain.OutcomeConflict
		a.Message = UserMessage(err)
	default:
		a.Outcome = domain.OutcomeFailed
		a.Message = UserMessage(err)
	}

	s.logger.Info("toggle dispatched",
		slog.String("kind", string(a.Kind)),
		slog.String("subject", a.Subject),
		slog.Int64("field_id", a.FieldID),
		slog.Int64("price_id", a.PriceID),
		slog.String("initial_time", a.InitialTime),
		slog.String("outcome", string(a.Outcome)),
	)

	if s.journal == nil {
		uow.RunHooks(ctx, hooks...)
		return
	}

	if jerr := s.journal.Record(ctx, *a, hooks...); jerr != nil {
		s.logger.Error("failed to journal toggle", slog.String("action_id", a.ID), slog.String("error", jerr.Error()))
		uow.RunHooks(ctx, hooks...)
	}
}

func (s *Service) invalidate(date, subject string) uow.AfterCommit {
	return func(ctx context.Context) {
		if s.cache != nil {
			if err := s.cache.InvalidateDate(ctx, date); err != nil {
				s.logger.Warn("failed to invalidate snapshots", slog.String("date", date), slog.String("error", err.Error()))
			}
		}
		if s.pubsub != nil {
			if err := s.pubsub.PublishScheduleChanged(ctx, date, subject); err != nil {
				s.logger.Warn("failed to publish schedule change", slog.String("date", date), slog.String("error", err.Error()))
			}
		}
	}
}

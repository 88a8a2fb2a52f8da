package schedule

import (
	"github.com/kirinyoku/courtside/internal/domain"
)

type reservationKey struct {
	fieldID int64
	date    string
	clock   string
}

type waitlistKey struct {
	date  string
	clock string
}

// Annotate overlays reservations and the current user's waitlist on slots.
// A slot is reserved when a non-cancelled reservation shares its field, date
// and start time; it is waitlisted when a waitlist entry's interested time
// splits into the slot's date and start time. Entries whose dates or times
// cannot be parsed match nothing. Slots without a date take date.
func Annotate(
	slots []domain.Slot,
	reservations []domain.Reservation,
	waitlist []domain.WaitlistEntry,
	date string,
) []domain.AnnotatedSlot {
	reserved := make(map[reservationKey]struct{}, len(reservations))
	for _, r := range reservations {
		if r.Cancelled {
			continue
		}
		d, err := NormalizeDate(r.Date)
		if err != nil {
			continue
		}
		c, err := reservationClock(r.InitialTime)
		if err != nil {
			continue
		}
		reserved[reservationKey{fieldID: r.FieldID, date: d, clock: c}] = struct{}{}
	}

	waiting := make(map[waitlistKey]struct{}, len(waitlist))
	for _, w := range waitlist {
		d, c, err := SplitTimestamp(w.InterestedTime)
		if err != nil {
			continue
		}
		waiting[waitlistKey{date: d, clock: c}] = struct{}{}
	}

	out := make([]domain.AnnotatedSlot, len(slots))
	for i, s := range slots {
		d := s.Date
		if d == "" {
			d = date
		}
		_, isReserved := reserved[reservationKey{fieldID: s.FieldID, date: d, clock: s.StartTime}]
		_, isWaitlisted := waiting[waitlistKey{date: d, clock: s.StartTime}]
		out[i] = domain.AnnotatedSlot{Slot: s, Reserved: isReserved, Waitlisted: isWaitlisted}
	}

	return out
}

// reservationClock accepts either a bare time or a full timestamp.
func reservationClock(v string) (string, error) {
	if c, err := NormalizeClock(v); err == nil {
		return c, nil
	}
	_, c, err := SplitTimestamp(v)
	return c, err
}

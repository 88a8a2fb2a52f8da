package dispatch

import (
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/courtside/internal/backend"
)

var (
	ErrReservationConflict = errors.New("slot already booked")
	ErrWaitlistConflict    = errors.New("already on the waitlist for this slot")
	ErrSlotReserved        = errors.New("slot is reserved")
	ErrSlotWaitlisted      = errors.New("slot is already waitlisted")
	ErrSlotNotFound        = errors.New("slot not found")
	ErrRateLimited         = errors.New("rate limited")
	ErrUnknownAction       = errors.New("unknown action")
)

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}

func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }

// UserMessage is the single notification shown for a failed toggle. Backend
// rejections keep the server's own text.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrSlotReserved):
		return "This slot is already reserved"
	case errors.Is(err, ErrSlotWaitlisted):
		return "You are already on the waitlist for this slot"
	case errors.Is(err, ErrSlotNotFound):
		return "This slot is no longer offered"
	case errors.Is(err, ErrRateLimited):
		return "Too many requests, please wait a moment"
	}
	return backend.UserMessage(err)
}

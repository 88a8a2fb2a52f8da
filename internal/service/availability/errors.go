package availability

import (
	"errors"
	"fmt"
)

var ErrSourceFailed = errors.New("source fetch failed")

type Source string

const (
	SourceFields       Source = "fields"
	SourcePrices       Source = "prices"
	SourceReservations Source = "reservations"
	SourceWaitlist     Source = "waitlist"
)

// SourceError is a failed fetch of one of the four view inputs. The view is
// still built with that input treated as empty.
type SourceError struct {
	Source Source
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() []error { return []error{ErrSourceFailed, e.Err} }

package domain

import "time"

// All is the selection value that disables a field or time filter.
const All = "All"

type DayKind string

const (
	Weekday DayKind = "weekday"
	Weekend DayKind = "weekend"
)

type SortOrder string

const (
	SortNone SortOrder = ""
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

type Field struct {
	ID        int64  `json:"field_id"`
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

type PriceDefinition struct {
	ID        int64   `json:"price_id"`
	Type      string  `json:"price_type"`
	Value     float64 `json:"price_value"`
	IsActive  bool    `json:"is_active"`
	StartTime string  `json:"start_time"`
}

// Slot is one bookable (field, price range) pair on a date. Times are HH:MM.
type Slot struct {
	FieldID    int64   `json:"field_id"`
	FieldName  string  `json:"field_name"`
	PriceID    int64   `json:"price_id"`
	PriceValue float64 `json:"price_value"`
	StartTime  string  `json:"start_time"`
	EndTime    string  `json:"end_time"`
	Date       string  `json:"date"`
}

type SlotKey struct {
	FieldID int64
	PriceID int64
}

func (s Slot) Key() SlotKey {
	return SlotKey{FieldID: s.FieldID, PriceID: s.PriceID}
}

type AnnotatedSlot struct {
	Slot
	Reserved   bool `json:"reserved"`
	Waitlisted bool `json:"waitlisted"`
}

type Reservation struct {
	ID          int64  `json:"reservation_id"`
	FieldID     int64  `json:"field_id"`
	Date        string `json:"date"`
	InitialTime string `json:"initial_time"`
	EndTime     string `json:"end_time"`
	Client      string `json:"client,omitempty"`
	Cancelled   bool   `json:"cancelled"`
}

type WaitlistEntry struct {
	ID             int64  `json:"waitlist_id"`
	InterestedTime string `json:"interested_time"`
	Silence        bool   `json:"silence"`
}

// Selection is what the user picked on the scheduling view.
type Selection struct {
	Date       string
	Field      string
	Time       string
	OrderTime  SortOrder
	OrderPrice SortOrder
	// FieldID and PriceID narrow the server-side reservations query; zero means unset.
	FieldID int64
	PriceID int64
}

// Option is one entry of a selection dropdown.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type ActionKind string

const (
	ActionReservation ActionKind = "reservation"
	ActionWaitlist    ActionKind = "waitlist"
)

type ActionOutcome string

const (
	OutcomeCreated  ActionOutcome = "created"
	OutcomeConflict ActionOutcome = "conflict"
	OutcomeFailed   ActionOutcome = "failed"
)

// Action is a journaled toggle dispatched to the booking backend.
type Action struct {
	ID          string        `json:"id"`
	Subject     string        `json:"subject"`
	Kind        ActionKind    `json:"kind"`
	FieldID     int64         `json:"field_id"`
	PriceID     int64         `json:"price_id"`
	Date        string        `json:"date"`
	InitialTime string        `json:"initial_time"`
	EndTime     string        `json:"end_time,omitempty"`
	Outcome     ActionOutcome `json:"outcome"`
	Message     string        `json:"message,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

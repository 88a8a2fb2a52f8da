package schedule

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPriceType = errors.New("invalid price type")
	ErrValidation       = errors.New("validation failed")
)

// DecodeError reports a price_type that does not follow the
// {SEMANA|FIM_SEMANA}_{HHhMM}_{HHhMM} grammar.
type DecodeError struct {
	PriceID   int64
	PriceType string
	Reason    string
}

func (e *DecodeError) Error() string {
	if e.PriceID != 0 {
		return fmt.Sprintf("price %d: cannot decode price type %q: %s", e.PriceID, e.PriceType, e.Reason)
	}
	return fmt.Sprintf("cannot decode price type %q: %s", e.PriceType, e.Reason)
}

func (e *DecodeError) Unwrap() error { return ErrInvalidPriceType }

// ValidationError reports a malformed date or time that must not reach the backend.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kirinyoku/courtside/internal/schedule"
)

var (
	ErrNetwork        = errors.New("network error")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrConflict       = errors.New("conflict")
	ErrSessionExpired = errors.New("session expired")
	ErrNoSession      = errors.New("no session token")
)

// APIError is a non-2xx answer from the booking backend. Message is the
// server's own text.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend responded %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusConflict:
		return ErrConflict
	default:
		return nil
	}
}

type errorBody struct {
	Error    string `json:"error"`
	Response struct {
		Data struct {
			Error string `json:"error"`
		} `json:"data"`
	} `json:"response"`
}

// decodeAPIError extracts the message from {error} or {response:{data:{error}}}
// bodies and falls back to the raw text or the status text.
func decodeAPIError(status int, body []byte) *APIError {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if eb.Error != "" {
			return &APIError{Status: status, Message: eb.Error}
		}
		if eb.Response.Data.Error != "" {
			return &APIError{Status: status, Message: eb.Response.Data.Error}
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" || strings.HasPrefix(msg, "{") || strings.HasPrefix(msg, "<") {
		msg = http.StatusText(status)
	}
	return &APIError{Status: status, Message: msg}
}

// UserMessage collapses err into the single line shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}

	var ve *schedule.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}

	switch {
	case errors.Is(err, ErrSessionExpired), errors.Is(err, ErrNoSession):
		return "Your session has expired, please sign in again"
	case errors.Is(err, ErrNetwork):
		return "Could not reach the booking service, please try again"
	}

	return "Something went wrong, please try again"
}

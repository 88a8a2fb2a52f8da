package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
)

var timestampLayouts = []string{
	TimestampLayout,
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC3339,
	time.RFC3339Nano,
}

// ParseDate checks that s is a calendar date in YYYY-MM-DD form.
func ParseDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", &ValidationError{Field: "date", Value: s, Reason: "expected YYYY-MM-DD"}
	}
	return s, nil
}

// NormalizeClock turns "9:00", "09:00:00", "09h00", "9H" and friends into "HH:MM".
func NormalizeClock(s string) (string, error) {
	raw := strings.TrimSpace(s)
	v := strings.NewReplacer("h", ":", "H", ":").Replace(raw)

	parts := strings.Split(v, ":")
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || sec != 0 || len(parts[2]) != 2 {
			return "", &ValidationError{Field: "time", Value: raw, Reason: "seconds must be 00"}
		}
		parts = parts[:2]
	}
	if len(parts) != 2 || parts[0] == "" || len(parts[0]) > 2 {
		return "", &ValidationError{Field: "time", Value: raw, Reason: "expected HH:MM"}
	}
	if parts[1] == "" {
		parts[1] = "00"
	}
	if len(parts[1]) != 2 {
		return "", &ValidationError{Field: "time", Value: raw, Reason: "minutes must have two digits"}
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", &ValidationError{Field: "time", Value: raw, Reason: "hour is not a number"}
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", &ValidationError{Field: "time", Value: raw, Reason: "minute is not a number"}
	}
	if hour < 0 || minute < 0 || minute > 59 || hour > 24 || (hour == 24 && minute != 0) {
		return "", &ValidationError{Field: "time", Value: raw, Reason: "out of range"}
	}

	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

// NormalizeDate accepts a bare date or any timestamp the backend emits and
// returns its YYYY-MM-DD part.
func NormalizeDate(s string) (string, error) {
	if d, err := ParseDate(s); err == nil {
		return d, nil
	}
	d, _, err := SplitTimestamp(s)
	if err != nil {
		return "", &ValidationError{Field: "date", Value: s, Reason: "expected YYYY-MM-DD"}
	}
	return d, nil
}

// SplitTimestamp splits a date+time value into YYYY-MM-DD and HH:MM.
// Zoned timestamps keep their own wall clock; no conversion happens.
func SplitTimestamp(s string) (date, clock string, err error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		t, perr := time.Parse(layout, s)
		if perr != nil {
			continue
		}
		if t.Second() != 0 || t.Nanosecond() != 0 {
			break
		}
		return t.Format(DateLayout), t.Format("15:04"), nil
	}
	return "", "", &ValidationError{Field: "timestamp", Value: s, Reason: "expected YYYY-MM-DD HH:MM:SS"}
}

// Timestamp builds the backend's "YYYY-MM-DD HH:MM:00" encoding.
func Timestamp(date, clock string) (string, error) {
	d, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	c, err := NormalizeClock(clock)
	if err != nil {
		return "", err
	}
	return d + " " + c + ":00", nil
}

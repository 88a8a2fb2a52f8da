package schedule

import (
	"regexp"
	"strings"

	"github.com/kirinyoku/courtside/internal/domain"
)

const (
	tokenWeekday = "SEMANA"
	tokenWeekend = "FIM_SEMANA"
)

var priceTypeRe = regexp.MustCompile(`^(FIM_SEMANA|SEMANA|WEEKEND|WEEKDAY)_(\d{1,2}[hH](?:\d{2})?)_(\d{1,2}[hH](?:\d{2})?)$`)

// PriceRange is the decoded form of a price_type string.
type PriceRange struct {
	Kind  domain.DayKind
	Start string
	End   string
}

// DecodePriceType parses price types such as "SEMANA_09h00_10h30" or
// "FIM_SEMANA_19h30_21h". Start and End come back as HH:MM.
func DecodePriceType(s string) (PriceRange, error) {
	m := priceTypeRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return PriceRange{}, &DecodeError{PriceType: s, Reason: "expected {SEMANA|FIM_SEMANA}_HHhMM_HHhMM"}
	}

	kind := domain.Weekday
	if m[1] == tokenWeekend || m[1] == "WEEKEND" {
		kind = domain.Weekend
	}

	start, err := NormalizeClock(m[2])
	if err != nil {
		return PriceRange{}, &DecodeError{PriceType: s, Reason: "bad start time"}
	}
	end, err := NormalizeClock(m[3])
	if err != nil {
		return PriceRange{}, &DecodeError{PriceType: s, Reason: "bad end time"}
	}
	if end <= start {
		return PriceRange{}, &DecodeError{PriceType: s, Reason: "end time must be after start time"}
	}

	return PriceRange{Kind: kind, Start: start, End: end}, nil
}

// EncodePriceType renders r in the canonical SEMANA_HHhMM_HHhMM form.
func EncodePriceType(r PriceRange) string {
	token := tokenWeekday
	if r.Kind == domain.Weekend {
		token = tokenWeekend
	}
	return token + "_" + strings.Replace(r.Start, ":", "h", 1) + "_" + strings.Replace(r.End, ":", "h", 1)
}

// ValidatePriceType reports whether an admin-entered price type is decodable.
func ValidatePriceType(s string) error {
	_, err := DecodePriceType(s)
	return err
}

package schedule

import (
	"time"

	"github.com/kirinyoku/courtside/internal/domain"
)

// DateOptions lists days consecutive dates starting at from.
func DateOptions(from time.Time, days int) []domain.Option {
	out := make([]domain.Option, 0, days)
	for i := 0; i < days; i++ {
		d := from.AddDate(0, 0, i)
		out = append(out, domain.Option{Label: d.Format("Mon Jan 02 2006"), Value: d.Format(DateLayout)})
	}
	return out
}

// TimeOptions lists distinct start times of the active prices, led by "All".
func TimeOptions(prices []domain.PriceDefinition) []domain.Option {
	out := []domain.Option{{Label: domain.All, Value: domain.All}}
	seen := make(map[string]struct{}, len(prices))
	for _, p := range prices {
		if !p.IsActive {
			continue
		}
		rng, err := DecodePriceType(p.Type)
		if err != nil {
			continue
		}
		if _, ok := seen[rng.Start]; ok {
			continue
		}
		seen[rng.Start] = struct{}{}
		out = append(out, domain.Option{Label: rng.Start + " - " + rng.End, Value: rng.Start})
	}
	return out
}

// FieldOptions lists bookable fields, led by "All". The value is the field
// name, which is what the field filter matches.
func FieldOptions(fields []domain.Field) []domain.Option {
	out := []domain.Option{{Label: domain.All, Value: domain.All}}
	for _, f := range fields {
		if !f.Available {
			continue
		}
		out = append(out, domain.Option{Label: f.Name, Value: f.Name})
	}
	return out
}

package schedule

import (
	"github.com/kirinyoku/courtside/internal/domain"
)

// BuildSlots crosses every available field with every active, decodable
// price definition for date. Output order is field order, then price order.
// Price definitions that fail to decode are skipped and reported as
// *DecodeError values so the caller can log them.
func BuildSlots(fields []domain.Field, prices []domain.PriceDefinition, date string) ([]domain.Slot, []error) {
	type decoded struct {
		price domain.PriceDefinition
		rng   PriceRange
	}

	var skipped []error
	ranges := make([]decoded, 0, len(prices))
	for _, p := range prices {
		if !p.IsActive {
			continue
		}
		rng, err := DecodePriceType(p.Type)
		if err != nil {
			if de, ok := err.(*DecodeError); ok {
				de.PriceID = p.ID
			}
			skipped = append(skipped, err)
			continue
		}
		ranges = append(ranges, decoded{price: p, rng: rng})
	}

	slots := make([]domain.Slot, 0, len(fields)*len(ranges))
	for _, f := range fields {
		if !f.Available {
			continue
		}
		for _, d := range ranges {
			slots = append(slots, domain.Slot{
				FieldID:    f.ID,
				FieldName:  f.Name,
				PriceID:    d.price.ID,
				PriceValue: d.price.Value,
				StartTime:  d.rng.Start,
				EndTime:    d.rng.End,
				Date:       date,
			})
		}
	}

	return slots, skipped
}

package schedule

import (
	"cmp"
	"slices"

	"github.com/kirinyoku/courtside/internal/domain"
)

func matchesAll(v string) bool {
	return v == "" || v == domain.All
}

// FilterSlots keeps slots whose field name equals field and whose start time
// equals clock. "All" (or empty) disables the respective filter.
func FilterSlots(slots []domain.AnnotatedSlot, field, clock string) []domain.AnnotatedSlot {
	if !matchesAll(clock) {
		if c, err := NormalizeClock(clock); err == nil {
			clock = c
		}
	}

	out := make([]domain.AnnotatedSlot, 0, len(slots))
	for _, s := range slots {
		if !matchesAll(field) && s.FieldName != field {
			continue
		}
		if !matchesAll(clock) && s.StartTime != clock {
			continue
		}
		out = append(out, s)
	}
	return out
}

// SortSlots orders slots by start time first and price second. Each key is
// independently ascending, descending, or ignored; ties keep input order.
func SortSlots(slots []domain.AnnotatedSlot, byTime, byPrice domain.SortOrder) []domain.AnnotatedSlot {
	out := slices.Clone(slots)
	if byTime == domain.SortNone && byPrice == domain.SortNone {
		return out
	}

	slices.SortStableFunc(out, func(a, b domain.AnnotatedSlot) int {
		if c := directed(cmp.Compare(a.StartTime, b.StartTime), byTime); c != 0 {
			return c
		}
		return directed(cmp.Compare(a.PriceValue, b.PriceValue), byPrice)
	})
	return out
}

func directed(c int, order domain.SortOrder) int {
	switch order {
	case domain.SortAsc:
		return c
	case domain.SortDesc:
		return -c
	default:
		return 0
	}
}

// Apply runs the filter and sort stages for a selection.
func Apply(slots []domain.AnnotatedSlot, sel domain.Selection) []domain.AnnotatedSlot {
	return SortSlots(FilterSlots(slots, sel.Field, sel.Time), sel.OrderTime, sel.OrderPrice)
}

// ParseSortOrder maps query values to a SortOrder; anything unknown is SortNone.
func ParseSortOrder(v string) domain.SortOrder {
	switch v {
	case "asc", "ASC", "ascending":
		return domain.SortAsc
	case "desc", "DESC", "descending":
		return domain.SortDesc
	default:
		return domain.SortNone
	}
}

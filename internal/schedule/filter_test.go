package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/courtside/internal/domain"
)

func annotatedFixture() []domain.AnnotatedSlot {
	mk := func(fieldID, priceID int64, field, start string, price float64) domain.AnnotatedSlot {
		return domain.AnnotatedSlot{Slot: domain.Slot{
			FieldID: fieldID, FieldName: field, PriceID: priceID,
			StartTime: start, PriceValue: price, Date: "2024-06-03",
		}}
	}
	return []domain.AnnotatedSlot{
		mk(1, 1, "Court A", "10:00", 20),
		mk(1, 2, "Court A", "09:00", 15),
		mk(2, 1, "Court B", "10:00", 20),
		mk(2, 2, "Court B", "09:00", 15),
		mk(2, 3, "Court B", "09:00", 25),
	}
}

func TestFilterSlotsByField(t *testing.T) {
	slots := annotatedFixture()

	got := FilterSlots(slots, "Court B", domain.All)
	require.Len(t, got, 3)
	for _, s := range got {
		assert.Equal(t, "Court B", s.FieldName)
	}

	assert.Equal(t, slots, FilterSlots(slots, domain.All, domain.All))
	assert.Equal(t, slots, FilterSlots(slots, "", ""))
	assert.Empty(t, FilterSlots(slots, "Court Z", domain.All))
}

func TestFilterSlotsByTime(t *testing.T) {
	slots := annotatedFixture()

	got := FilterSlots(slots, domain.All, "09:00")
	require.Len(t, got, 3)
	for _, s := range got {
		assert.Equal(t, "09:00", s.StartTime)
	}

	assert.Len(t, FilterSlots(slots, domain.All, "9h"), 3)
	assert.Len(t, FilterSlots(slots, "Court A", "09:00"), 1)
}

func TestSortSlotsTimePrimaryPriceSecondary(t *testing.T) {
	got := SortSlots(annotatedFixture(), domain.SortAsc, domain.SortDesc)

	var keys [][2]any
	for _, s := range got {
		keys = append(keys, [2]any{s.StartTime, s.PriceValue})
	}
	assert.Equal(t, [][2]any{
		{"09:00", 25.0},
		{"09:00", 15.0},
		{"09:00", 15.0},
		{"10:00", 20.0},
		{"10:00", 20.0},
	}, keys)

	// equal keys keep build order
	assert.Equal(t, int64(1), got[1].FieldID)
	assert.Equal(t, int64(2), got[2].FieldID)
}

func TestSortSlotsPriceOnlyAndNone(t *testing.T) {
	slots := annotatedFixture()

	got := SortSlots(slots, domain.SortNone, domain.SortAsc)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].PriceValue, got[i].PriceValue)
	}

	assert.Equal(t, slots, SortSlots(slots, domain.SortNone, domain.SortNone))

	desc := SortSlots(slots, domain.SortDesc, domain.SortNone)
	assert.Equal(t, "10:00", desc[0].StartTime)
	assert.Equal(t, "09:00", desc[len(desc)-1].StartTime)
}

func TestSortSlotsDoesNotMutateInput(t *testing.T) {
	slots := annotatedFixture()
	before := append([]domain.AnnotatedSlot(nil), slots...)
	_ = SortSlots(slots, domain.SortAsc, domain.SortAsc)
	assert.Equal(t, before, slots)
}

func TestApply(t *testing.T) {
	got := Apply(annotatedFixture(), domain.Selection{
		Field:      "Court B",
		Time:       domain.All,
		OrderTime:  domain.SortDesc,
		OrderPrice: domain.SortAsc,
	})
	require.Len(t, got, 3)
	assert.Equal(t, "10:00", got[0].StartTime)
	assert.Equal(t, 15.0, got[1].PriceValue)
	assert.Equal(t, 25.0, got[2].PriceValue)
}

func TestParseSortOrder(t *testing.T) {
	assert.Equal(t, domain.SortAsc, ParseSortOrder("asc"))
	assert.Equal(t, domain.SortDesc, ParseSortOrder("DESC"))
	assert.Equal(t, domain.SortNone, ParseSortOrder(""))
	assert.Equal(t, domain.SortNone, ParseSortOrder("sideways"))
}

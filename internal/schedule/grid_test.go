package schedule

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/courtside/internal/domain"
)

func TestBuildSlotsSingle(t *testing.T) {
	fields := []domain.Field{{ID: 1, Name: "Court A", Available: true}}
	prices := []domain.PriceDefinition{{ID: 1, Type: "SEMANA_09h00_10h30", Value: 10, IsActive: true}}

	slots, skipped := BuildSlots(fields, prices, "2024-06-03")
	require.Empty(t, skipped)
	require.Len(t, slots, 1)
	assert.Equal(t, domain.Slot{
		FieldID:    1,
		FieldName:  "Court A",
		PriceID:    1,
		PriceValue: 10,
		StartTime:  "09:00",
		EndTime:    "10:30",
		Date:       "2024-06-03",
	}, slots[0])
}

func TestBuildSlotsCrossProduct(t *testing.T) {
	var fields []domain.Field
	for i := 1; i <= 4; i++ {
		fields = append(fields, domain.Field{ID: int64(i), Name: fmt.Sprintf("Court %d", i), Available: true})
	}
	prices := []domain.PriceDefinition{
		{ID: 10, Type: "SEMANA_09h00_10h30", Value: 10, IsActive: true},
		{ID: 11, Type: "SEMANA_10h30_12h00", Value: 12, IsActive: true},
		{ID: 12, Type: "SEMANA_18h_19h30", Value: 20, IsActive: true},
	}

	slots, skipped := BuildSlots(fields, prices, "2024-06-03")
	require.Empty(t, skipped)
	require.Len(t, slots, len(fields)*len(prices))

	seen := make(map[domain.SlotKey]struct{})
	for _, s := range slots {
		_, dup := seen[s.Key()]
		assert.False(t, dup, "duplicate slot %+v", s.Key())
		seen[s.Key()] = struct{}{}
	}

	// field-major, price-minor ordering
	assert.Equal(t, int64(1), slots[0].FieldID)
	assert.Equal(t, int64(10), slots[0].PriceID)
	assert.Equal(t, int64(1), slots[2].FieldID)
	assert.Equal(t, int64(12), slots[2].PriceID)
	assert.Equal(t, int64(2), slots[3].FieldID)

	again, _ := BuildSlots(fields, prices, "2024-06-03")
	assert.Equal(t, slots, again)
}

func TestBuildSlotsSkipsUnavailableInactiveAndUndecodable(t *testing.T) {
	fields := []domain.Field{
		{ID: 1, Name: "Court A", Available: true},
		{ID: 2, Name: "Court B", Available: false},
	}
	prices := []domain.PriceDefinition{
		{ID: 1, Type: "SEMANA_09h00_10h30", Value: 10, IsActive: true},
		{ID: 2, Type: "SEMANA_10h30_12h00", Value: 10, IsActive: false},
		{ID: 3, Type: "garbage", Value: 10, IsActive: true},
	}

	slots, skipped := BuildSlots(fields, prices, "2024-06-03")
	require.Len(t, slots, 1)
	assert.Equal(t, int64(1), slots[0].PriceID)

	require.Len(t, skipped, 1)
	var de *DecodeError
	require.ErrorAs(t, skipped[0], &de)
	assert.Equal(t, int64(3), de.PriceID)
	assert.Equal(t, "garbage", de.PriceType)
}

func TestBuildSlotsEmptyInputs(t *testing.T) {
	slots, skipped := BuildSlots(nil, nil, "2024-06-03")
	assert.Empty(t, slots)
	assert.Empty(t, skipped)

	slots, _ = BuildSlots([]domain.Field{{ID: 1, Name: "A", Available: true}}, nil, "2024-06-03")
	assert.Empty(t, slots)

	slots, _ = BuildSlots(nil, []domain.PriceDefinition{{ID: 1, Type: "SEMANA_09h00_10h30", IsActive: true}}, "2024-06-03")
	assert.Empty(t, slots)
}

func TestBuildSlotsDecodedTimesRoundTrip(t *testing.T) {
	prices := []domain.PriceDefinition{{ID: 1, Type: "SEMANA_09h00_10h30", IsActive: true}}
	slots, _ := BuildSlots([]domain.Field{{ID: 1, Name: "A", Available: true}}, prices, "2024-06-03")
	require.Len(t, slots, 1)

	encoded := EncodePriceType(PriceRange{Kind: domain.Weekday, Start: slots[0].StartTime, End: slots[0].EndTime})
	assert.Equal(t, prices[0].Type, encoded)
}

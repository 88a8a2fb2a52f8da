package schedule

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/courtside/internal/domain"
)

func TestDecodePriceType(t *testing.T) {
	tests := []struct {
		in   string
		want PriceRange
	}{
		{"SEMANA_09h00_10h30", PriceRange{Kind: domain.Weekday, Start: "09:00", End: "10:30"}},
		{"FIM_SEMANA_19h30_21h", PriceRange{Kind: domain.Weekend, Start: "19:30", End: "21:00"}},
		{"SEMANA_15h_16h30", PriceRange{Kind: domain.Weekday, Start: "15:00", End: "16:30"}},
		{"SEMANA_9H00_10H00", PriceRange{Kind: domain.Weekday, Start: "09:00", End: "10:00"}},
		{"WEEKEND_22h00_24h00", PriceRange{Kind: domain.Weekend, Start: "22:00", End: "24:00"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := DecodePriceType(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodePriceTypeRejects(t *testing.T) {
	for _, in := range []string{
		"",
		"SEMANA",
		"SEMANA_09h00",
		"HOLIDAY_09h00_10h00",
		"SEMANA_25h00_26h00",
		"SEMANA_09h75_10h00",
		"SEMANA_10h00_09h00",
		"SEMANA_10h00_10h00",
		"SEMANA_09:00_10:00",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := DecodePriceType(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPriceType))

			var de *DecodeError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, in, de.PriceType)
		})
	}
}

func TestPriceTypeRoundTrip(t *testing.T) {
	for _, in := range []string{"SEMANA_09h00_10h30", "FIM_SEMANA_19h30_21h00", "SEMANA_00h00_24h00"} {
		rng, err := DecodePriceType(in)
		require.NoError(t, err)
		assert.Equal(t, in, EncodePriceType(rng))
	}
}

func TestEncodePriceTypeCanonicalizes(t *testing.T) {
	rng, err := DecodePriceType("FIM_SEMANA_9h_10h30")
	require.NoError(t, err)
	assert.Equal(t, "FIM_SEMANA_09h00_10h30", EncodePriceType(rng))
}

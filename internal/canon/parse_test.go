package canon

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want *float64
	}{
		{"thousands separators and suffix", "3 500 000 Kč", ptr(3500000)},
		{"blank", "", nil},
		{"negotiable phrase", "Cena dohodou", nil},
		{"plain digits", "1250000", ptr(1250000)},
		{"whitespace padded", "  990 000 Kč  ", ptr(990000)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParsePrice(tc.raw)
			if tc.want == nil {
				require.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			require.Equal(t, *tc.want, *got)
		})
	}
}

func TestParseArea(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want *int
	}{
		{"simple", "161 m²", intPtr(161)},
		{"built-up then land", "161 m² / 750 m²", intPtr(161)},
		{"no digits", "neuvedeno", nil},
		{"empty", "", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseArea(tc.raw)
			if tc.want == nil {
				require.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			require.Equal(t, *tc.want, *got)
		})
	}
}

func ptr(v float64) *float64 { return &v }
func intPtr(v int) *int      { return &v }

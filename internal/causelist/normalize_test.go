package causelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLine(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"numbering and spaced slashes", "1. 38 / 122 / 21 KOFI MENSAH vs. AMA SERWAA", "38/122/21 KOFI MENSAH VRS AMA SERWAA"},
		{"pipes", "KOFI | MENSAH   vs AMA", "KOFI MENSAH VRS AMA"},
		{"initial is not a separator", "KOFI V. ADDO vs AMA", "KOFI V. ADDO VRS AMA"},
		{"numbering glued to suit", "1.38/122/21 KOFI VRS AMA", "38/122/21 KOFI VRS AMA"},
		{"paren numbering glued to suit", "(12)E12/123/2023 A VRS B", "E12/123/2023 A VRS B"},
		{"decimal is not numbering", "1.5 ACRES OF LAND", "1.5 ACRES OF LAND"},
		{"paren numbering", "12) A os B", "A VRS B"},
		{"bracketed numbering", "(3) A yrs B", "A VRS B"},
		{"versus", "A Versus B", "A VRS B"},
		{"lowercase vrs", "A vrs B", "A VRS B"},
		{"words containing os", "AMOS VRS. ROSS", "AMOS VRS ROSS"},
		{"ex parte", "THE REPUBLIC VRS HIGH COURT EX PARTE KOFI", "THE REPUBLIC VRS HIGH COURT EX-PARTE KOFI"},
		{"exparte joined", "exparte KOFI", "EX-PARTE KOFI"},
		{"blank", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeLine(tt.in))
		})
	}
}

func TestNormalizeLineIdempotent(t *testing.T) {
	for _, in := range []string{
		"1. 38 / 122 / 21 KOFI MENSAH vs. AMA SERWAA F / H",
		"THE REPUBLIC vs. KOFI EX PARTE AMA",
		"2.J1/7/2020 THE REPUBLIC VRS YAW",
	} {
		once := NormalizeLine(in)
		assert.Equal(t, once, NormalizeLine(once))
	}
}

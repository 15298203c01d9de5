package output

import (
	"testing"
)

func TestRoundFloat(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  float64
	}{
		{name: "round up", input: 0.1234567, want: 0.123457},
		{name: "round down", input: 0.1234564, want: 0.123456},
		{name: "no rounding needed", input: 3.2, want: 3.2},
		{name: "zero", input: 0, want: 0},
		{name: "negative", input: -0.123456789, want: -0.123457},
		{name: "complexity sum", input: 0.1 + 0.2, want: 0.3},
		{name: "very small", input: 0.000001234567, want: 0.000001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RoundFloat(tt.input); got != tt.want {
				t.Errorf("RoundFloat(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{0.1, "0.1"},
		{4, "4"},
		{0, "0"},
		{-0.123, "-0.123"},
		{100.000000, "100"},
		{0.123456789, "0.123457"},
		{1.0 / 3.0, "0.333333"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatFloat(tt.input); got != tt.want {
				t.Errorf("FormatFloat(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

package exporter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected string
	}{
		{
			name:     "zero value",
			input:    0.0,
			expected: "0.0000",
		},
		{
			name:     "positive estimate",
			input:    12.3456789,
			expected: "12.3457",
		},
		{
			name:     "negative estimate",
			input:    -4.5,
			expected: "-4.5000",
		},
		{
			name:     "small standard error",
			input:    0.00123,
			expected: "0.0012",
		},
		{
			name:     "missing value renders as NA",
			input:    math.NaN(),
			expected: "NA",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatFloat(tt.input)
			assert.Equal(t, tt.expected, result, "formatFloat(%f) = %s, want %s", tt.input, result, tt.expected)
		})
	}
}

func TestFormatFloat2(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected string
	}{
		{
			name:     "mean with trailing zero",
			input:    13.4,
			expected: "13.40",
		},
		{
			name:     "rounding up",
			input:    2.567,
			expected: "2.57",
		},
		{
			name:     "missing value renders as NA",
			input:    math.NaN(),
			expected: "NA",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatFloat2(tt.input))
		})
	}
}

func TestFormatPValue(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected string
	}{
		{
			name:     "ordinary p-value",
			input:    0.0431,
			expected: "0.0431",
		},
		{
			name:     "borderline p-value keeps four places",
			input:    0.05,
			expected: "0.0500",
		},
		{
			name:     "tiny p-value switches to scientific notation",
			input:    3.2e-7,
			expected: "3.200e-07",
		},
		{
			name:     "exact zero stays fixed point",
			input:    0.0,
			expected: "0.0000",
		},
		{
			name:     "missing value renders as NA",
			input:    math.NaN(),
			expected: "NA",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatPValue(tt.input))
		})
	}
}

func TestFormatInt(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected string
	}{
		{
			name:     "zero value",
			input:    0,
			expected: "0",
		},
		{
			name:     "typical cell count",
			input:    14,
			expected: "14",
		},
		{
			name:     "negative value",
			input:    -3,
			expected: "-3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatInt(tt.input))
		})
	}
}

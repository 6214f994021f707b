package exporter

import (
	"fmt"
	"math"
	"strconv"
)

// formatFloat formats a float64 value for CSV output with 4 decimal places.
// Missing values render as "NA" so the tables round-trip through R and Excel.
func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return "NA"
	}
	return fmt.Sprintf("%.4f", f)
}

// formatFloat2 formats a float64 with 2 decimal places for descriptive tables
func formatFloat2(f float64) string {
	if math.IsNaN(f) {
		return "NA"
	}
	return fmt.Sprintf("%.2f", f)
}

// formatPValue formats a p-value, switching to scientific notation below 0.0001
func formatPValue(p float64) string {
	if math.IsNaN(p) {
		return "NA"
	}
	if p > 0 && p < 0.0001 {
		return strconv.FormatFloat(p, 'e', 3, 64)
	}
	return fmt.Sprintf("%.4f", p)
}

// formatInt formats an int value for CSV output
func formatInt(i int) string {
	return strconv.Itoa(i)
}

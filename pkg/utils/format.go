package utils

import (
	"fmt"
	"math"
)

// FormatBP formats a basis-point value with one decimal, e.g., "-12.5".
func FormatBP(v float64) string {
	if math.IsNaN(v) {
		return "–"
	}
	return fmt.Sprintf("%.1f", v)
}

// FormatPct formats a yield in percent with two decimals, e.g., "4.12%".
func FormatPct(v float64) string {
	if math.IsNaN(v) {
		return "–"
	}
	return fmt.Sprintf("%.2f%%", v)
}

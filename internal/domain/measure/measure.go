// Package measure converts body measurements between canonical storage units
// and display units. Height is stored in centimeters, weight in kilograms;
// every display unit is derived from the canonical value, never the reverse.
package measure

import (
	"fmt"
	"math"
)

// NotSet is rendered wherever a measurement has no value.
const NotSet = "Not set"

const (
	cmPerFoot = 30.48
	lbPerKg   = 2.20462
	kgPerLb   = 0.453592
)

// HeightUnit is a display unit for height
type HeightUnit string

// WeightUnit is a display unit for weight
type WeightUnit string

const (
	HeightCm HeightUnit = "cm"
	HeightFt HeightUnit = "ft"

	WeightKg WeightUnit = "kg"
	WeightLb WeightUnit = "lb"
)

// HeightToDisplay converts a canonical height in centimeters to the display unit
func HeightToDisplay(cm float64, unit HeightUnit) float64 {
	if unit == HeightFt {
		return cm / cmPerFoot
	}
	return cm
}

// HeightToCanonical converts a display-unit height back to centimeters
func HeightToCanonical(value float64, unit HeightUnit) float64 {
	if unit == HeightFt {
		return value * cmPerFoot
	}
	return value
}

// WeightToDisplay converts a canonical weight in kilograms to the display unit
func WeightToDisplay(kg float64, unit WeightUnit) float64 {
	if unit == WeightLb {
		return kg * lbPerKg
	}
	return kg
}

// WeightToCanonical converts a display-unit weight back to kilograms
func WeightToCanonical(value float64, unit WeightUnit) float64 {
	if unit == WeightLb {
		return value * kgPerLb
	}
	return value
}

// FormatHeight renders a canonical height in the given display unit.
// Centimeters get one decimal digit, feet two.
func FormatHeight(cm *float64, unit HeightUnit) string {
	if cm == nil || !isFinite(*cm) {
		return NotSet
	}
	if unit == HeightFt {
		return fmt.Sprintf("%s ft", formatFixed(HeightToDisplay(*cm, unit), 2))
	}
	return fmt.Sprintf("%s cm", formatFixed(*cm, 1))
}

// FormatWeight renders a canonical weight in the given display unit
func FormatWeight(kg *float64, unit WeightUnit) string {
	if kg == nil || !isFinite(*kg) {
		return NotSet
	}
	return fmt.Sprintf("%s %s", formatFixed(WeightToDisplay(*kg, unit), 1), unit)
}

// FormatA1c renders a hemoglobin A1c percentage with one decimal digit
func FormatA1c(percent *float64) string {
	if percent == nil || !isFinite(*percent) {
		return NotSet
	}
	return fmt.Sprintf("%s%%", formatFixed(*percent, 1))
}

// formatFixed rounds half-up on the decimal representation, unlike
// fmt's %.Nf which rounds half-to-even.
func formatFixed(value float64, digits int) string {
	shift := math.Pow(10, float64(digits))
	rounded := math.Floor(value*shift+0.5) / shift
	return fmt.Sprintf("%.*f", digits, rounded)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Package forecast models the glucose prediction series returned by the
// backend and the chart geometry derived from it.
package forecast

import (
	"fmt"
	"math"
)

// Chart bounds in mg/dL. The rendered Y-axis never leaves this window.
const (
	DomainFloor   = 60
	DomainCeiling = 250
	domainStep    = 5
)

// Point is one prediction sample
type Point struct {
	Minute  float64 `json:"minute"`
	Glucose float64 `json:"glucose"`
}

// Series is an ordered glucose prediction
type Series []Point

// Request carries the inputs for a forecast. Height and weight are required;
// the remaining fields are omitted from the outgoing request when absent.
type Request struct {
	HeightCm           float64  `json:"height_cm"`
	WeightKg           float64  `json:"weight_kg"`
	Age                *int     `json:"age,omitempty"`
	Gender             *string  `json:"gender,omitempty"`
	BaselineAvgGlucose *float64 `json:"baseline_avg_glucose,omitempty"`
	MealBucket         *string  `json:"meal_bucket,omitempty"`
}

// BuildSeries pairs the parallel minute/glucose arrays the backend returns.
// When a baseline glucose is known and the series does not already start at
// minute 0, a synthetic baseline point is prepended.
func BuildSeries(minutes, glucose []float64, baseline *float64) (Series, error) {
	if len(minutes) != len(glucose) {
		return nil, fmt.Errorf("forecast arrays length mismatch: %d minutes, %d glucose", len(minutes), len(glucose))
	}

	series := make(Series, 0, len(minutes)+1)
	if baseline != nil && (len(minutes) == 0 || minutes[0] != 0) {
		series = append(series, Point{Minute: 0, Glucose: *baseline})
	}
	for i := range minutes {
		series = append(series, Point{Minute: minutes[i], Glucose: glucose[i]})
	}
	return series, nil
}

// AxisDomain computes the padded Y-axis range for a series. Padding is at
// least 5 mg/dL (or 10% of the data range if larger), bounds are rounded
// outward to multiples of 5, and the result is clamped to [60, 250].
func AxisDomain(series Series) (low, high float64) {
	if len(series) == 0 {
		return DomainFloor, DomainCeiling
	}

	min, max := series[0].Glucose, series[0].Glucose
	for _, p := range series[1:] {
		min = math.Min(min, p.Glucose)
		max = math.Max(max, p.Glucose)
	}

	pad := math.Max(domainStep, (max-min)*0.1)
	low = math.Floor((min-pad)/domainStep) * domainStep
	high = math.Ceil((max+pad)/domainStep) * domainStep

	low = math.Max(low, DomainFloor)
	high = math.Min(high, DomainCeiling)
	return low, high
}

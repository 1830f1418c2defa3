// Package profile holds the signed-in user's health metrics for the duration
// of a session and validates profile form submissions.
package profile

import (
	"sync"

	"github.com/glucomeal/web/internal/domain/measure"
)

// Metrics is the user's health record. Numeric fields are pointers so that
// "not set" is distinguishable from zero. Height and weight are canonical
// (centimeters and kilograms); the unit fields only drive display.
type Metrics struct {
	Age               *int
	HeightCm          *float64
	WeightKg          *float64
	Gender            *string
	HeightUnit        measure.HeightUnit
	WeightUnit        measure.WeightUnit
	A1c               *float64
	UnderlyingDisease *string
}

// Partial is a merge-update of Metrics: nil fields leave the stored value
// untouched.
type Partial struct {
	Age               *int
	HeightCm          *float64
	WeightKg          *float64
	Gender            *string
	HeightUnit        *measure.HeightUnit
	WeightUnit        *measure.WeightUnit
	A1c               *float64
	UnderlyingDisease *string
}

// Store is the shared in-memory metrics record. It performs no validation;
// form handlers validate before calling Update. Overlapping updates are
// last-write-wins.
type Store struct {
	mu sync.RWMutex
	m  Metrics
}

// NewStore creates an empty store with default display units
func NewStore() *Store {
	return &Store{
		m: Metrics{
			HeightUnit: measure.HeightCm,
			WeightUnit: measure.WeightKg,
		},
	}
}

// Reset returns the record to its empty state with default display units
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = Metrics{
		HeightUnit: measure.HeightCm,
		WeightUnit: measure.WeightKg,
	}
}

// Metrics returns a snapshot of the current record
func (s *Store) Metrics() Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m
}

// Update merges the supplied fields into the record atomically
func (s *Store) Update(p Partial) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Age != nil {
		s.m.Age = p.Age
	}
	if p.HeightCm != nil {
		s.m.HeightCm = p.HeightCm
	}
	if p.WeightKg != nil {
		s.m.WeightKg = p.WeightKg
	}
	if p.Gender != nil {
		s.m.Gender = p.Gender
	}
	if p.HeightUnit != nil {
		s.m.HeightUnit = *p.HeightUnit
	}
	if p.WeightUnit != nil {
		s.m.WeightUnit = *p.WeightUnit
	}
	if p.A1c != nil {
		s.m.A1c = p.A1c
	}
	if p.UnderlyingDisease != nil {
		s.m.UnderlyingDisease = p.UnderlyingDisease
	}
}

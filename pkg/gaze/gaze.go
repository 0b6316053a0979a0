// Package gaze turns iris and eye centroids into a normalized, calibrated gaze vector.
package gaze

import "math"

// Epsilon keeps the eye-width denominator away from zero when both eye references
// coincide (profile view, occlusion).
const Epsilon = 1e-6

// Sample is a normalized gaze offset. Up and right are positive.
type Sample struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Valid bool    `json:"valid"`
}

// Norm returns the length of the sample vector.
func (s Sample) Norm() float64 { return math.Hypot(s.X, s.Y) }

// Range is a symmetric clamp bound.
type Range float64

const (
	// DefaultRange bounds raw normalized gaze.
	DefaultRange Range = 1.0

	// ExtendedRange bounds gaze after the calibration offset is removed.
	ExtendedRange Range = 1.2
)

// Clamp limits v to [-r, r]. NaN maps to 0.
func (r Range) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-float64(r), math.Min(float64(r), v))
}

// ClampSample clamps both components of s.
func (r Range) ClampSample(s Sample) Sample {
	return Sample{X: r.Clamp(s.X), Y: r.Clamp(s.Y), Valid: s.Valid}
}

// Package blink detects debounced blink events from the eye aspect ratio.
package blink

import (
	"math"

	"github.com/teslashibe/go-gaze/pkg/landmark"
)

const (
	// DefaultThreshold is the average EAR below which the eyes count as closed.
	DefaultThreshold = 0.18

	// DefaultCooldownFrames is the refractory period, about 0.6s at 30fps.
	DefaultCooldownFrames = 18

	epsilon = 1e-6
)

// EAR computes the eye aspect ratio of a six-point contour ordered
// corner, top1, top2, corner, bottom2, bottom1. It returns NaN when the
// contour is degenerate.
func EAR(p [6]landmark.Point) float64 {
	horizontal := p[0].Dist(p[3])
	if horizontal < epsilon {
		return math.NaN()
	}
	vertical := p[1].Dist(p[5]) + p[2].Dist(p[4])
	return vertical / (2*horizontal + epsilon)
}

// Detector holds the blink state of one session.
type Detector struct {
	Threshold      float64
	CooldownFrames int

	earLeft, earRight float64
	cooldown          int
	count             uint64
}

// NewDetector creates a detector with the given threshold and cooldown.
func NewDetector(threshold float64, cooldownFrames int) *Detector {
	return &Detector{Threshold: threshold, CooldownFrames: cooldownFrames}
}

// Update ingests one frame of eye contours and reports whether a blink fired.
// The cooldown counts down every frame whatever the EAR.
func (d *Detector) Update(left, right [6]landmark.Point) bool {
	d.earLeft = EAR(left)
	d.earRight = EAR(right)
	return d.step((d.earLeft + d.earRight) / 2)
}

// UpdateEAR ingests a precomputed average EAR.
func (d *Detector) UpdateEAR(avg float64) bool {
	d.earLeft, d.earRight = avg, avg
	return d.step(avg)
}

// Idle advances the cooldown for a frame with no usable eyes.
func (d *Detector) Idle() {
	if d.cooldown > 0 {
		d.cooldown--
	}
}

func (d *Detector) step(avg float64) bool {
	ready := d.cooldown == 0
	d.Idle()

	if !ready || math.IsNaN(avg) || math.IsInf(avg, 0) {
		return false
	}
	if avg >= d.Threshold {
		return false
	}

	d.count++
	d.cooldown = d.CooldownFrames
	return true
}

// Count returns the number of blinks so far. It never decreases.
func (d *Detector) Count() uint64 { return d.count }

// CooldownRemaining returns the frames left before another blink can register.
func (d *Detector) CooldownRemaining() int { return d.cooldown }

// EARs returns the last left and right eye aspect ratios.
func (d *Detector) EARs() (left, right float64) { return d.earLeft, d.earRight }

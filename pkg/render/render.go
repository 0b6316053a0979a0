// Package render packages the per-frame engine state into an immutable descriptor
// for an external renderer, plus a short status readout.
package render

import (
	"fmt"
	"math"

	"github.com/teslashibe/go-gaze/pkg/reactive"
)

const (
	// Margin keeps the ball inside the frame edges, in pixels.
	Margin = 40.0

	// BallRadiusRatio is the base ball radius as a fraction of min(width, height).
	BallRadiusRatio = 0.08
)

// Point is a pixel position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ToPixels maps a gaze vector (up positive) to frame pixels. The frame center is the
// origin and ±1 reaches Margin pixels from the edges.
func ToPixels(gx, gy float64, width, height int) Point {
	hw, hh := float64(width)/2, float64(height)/2
	return Point{
		X: hw + (hw-Margin)*gx,
		Y: hh - (hh-Margin)*gy,
	}
}

// BallRadius returns the base ball radius for a frame size.
func BallRadius(width, height int) float64 {
	return math.Min(float64(width), float64(height)) * BallRadiusRatio
}

// Descriptor is one frame's worth of drawing parameters. Slices are copies owned by the
// descriptor.
type Descriptor struct {
	Seq uint64 `json:"seq"`

	Cursor Point   `json:"cursor"`
	Gaze   Point   `json:"gaze"`
	Depth  float64 `json:"depth"`

	BallRadius       float64      `json:"ball_radius"`
	PulseScale       float64      `json:"pulse_scale"`
	RadiusMultiplier float64      `json:"radius_multiplier"`
	Blur             float64      `json:"blur"`
	Color            reactive.RGB `json:"color"`

	Direction  reactive.Direction  `json:"direction"`
	Trail      []reactive.Particle `json:"trail"`
	Shockwaves []reactive.Wave     `json:"shockwaves"`

	Tracking   bool   `json:"tracking"`
	BlinkCount uint64 `json:"blink_count"`

	Width  int `json:"width"`
	Height int `json:"height"`
}

// Radius returns the final drawn radius: base × depth multiplier × pulse.
func (d Descriptor) Radius() float64 {
	return d.BallRadius * d.RadiusMultiplier * d.PulseScale
}

// Clone returns a deep copy.
func (d Descriptor) Clone() Descriptor {
	out := d
	out.Trail = append([]reactive.Particle(nil), d.Trail...)
	out.Shockwaves = append([]reactive.Wave(nil), d.Shockwaves...)
	return out
}

// Calibration status strings.
const (
	Calibrated    = "Calibrated"
	Calibrating   = "Calibrating..."
	NotCalibrated = "Not calibrated"
)

// Status is the textual and numeric readout shown next to the ball.
type Status struct {
	Tracking          bool    `json:"tracking"`
	BlinkCount        uint64  `json:"blink_count"`
	GazeX             float64 `json:"gaze_x"`
	GazeY             float64 `json:"gaze_y"`
	Calibration       string  `json:"calibration"`
	CalibrationFailed bool    `json:"calibration_failed"`
	Degraded          bool    `json:"degraded"`
}

// String formats the readout with fixed two-decimal signed gaze.
func (s Status) String() string {
	tracking := "tracking"
	if !s.Tracking {
		tracking = "no face"
	}
	calib := s.Calibration
	if s.CalibrationFailed {
		calib += " (last attempt failed)"
	}
	return fmt.Sprintf("Gaze: %+.2f,%+.2f | %s | blinks=%d | %s",
		s.GazeX, s.GazeY, calib, s.BlinkCount, tracking)
}

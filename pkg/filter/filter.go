// Package filter provides the exponential-moving-average cursor used to turn the noisy
// per-frame gaze vector into a stable position.
package filter

import (
	"fmt"
	"math"
)

// Vec3 is a cursor target: x and y in gaze units, z in [0,1] depth.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Cursor is a single-pole low-pass filter applied independently to x, y and z.
// Each update moves the state 1/Window of the way toward the target.
type Cursor struct {
	X, Y, Z float64

	window int
	target Vec3
	primed bool // a valid target has been seen
}

// NewCursor creates a cursor at the origin. window must be >= 1.
func NewCursor(window int) (*Cursor, error) {
	c := &Cursor{}
	if err := c.SetWindow(window); err != nil {
		return nil, err
	}
	return c, nil
}

// SetWindow changes the smoothing window without touching the state.
func (c *Cursor) SetWindow(window int) error {
	if window < 1 {
		return fmt.Errorf("filter: smoothing window must be >= 1, got %d", window)
	}
	c.window = window
	return nil
}

// Window returns the smoothing window in frames.
func (c *Cursor) Window() int { return c.window }

// Factor returns the per-frame smoothing factor 1/Window, in (0,1].
func (c *Cursor) Factor() float64 { return 1 / float64(c.window) }

// Update advances the filter one frame. When valid is false the filter keeps moving
// toward the last valid target instead of snapping anywhere new.
func (c *Cursor) Update(target Vec3, valid bool) Vec3 {
	if valid && finite(target) {
		c.target = target
		c.primed = true
	}
	if c.primed {
		a := c.Factor()
		c.X += a * (c.target.X - c.X)
		c.Y += a * (c.target.Y - c.Y)
		c.Z += a * (c.target.Z - c.Z)
	}
	return c.Position()
}

// Position returns the current state.
func (c *Cursor) Position() Vec3 { return Vec3{X: c.X, Y: c.Y, Z: c.Z} }

// Target returns the last valid target.
func (c *Cursor) Target() Vec3 { return c.target }

// Reset puts the cursor back at the origin and forgets the target.
func (c *Cursor) Reset() {
	c.X, c.Y, c.Z = 0, 0, 0
	c.target = Vec3{}
	c.primed = false
}

// Depth maps gaze distance from center to a pop depth in [0,1]: max(0, 1 - k*norm).
func Depth(x, y, k float64) float64 {
	return math.Max(0, 1-k*math.Hypot(x, y))
}

// SettlingFrames returns how many frames a step input takes to settle within eps:
// window * ln(1/eps).
func SettlingFrames(window int, eps float64) float64 {
	return float64(window) * math.Log(1/eps)
}

func finite(v Vec3) bool {
	for _, f := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

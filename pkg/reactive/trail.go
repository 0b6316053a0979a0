package reactive

import "math"

// Trail tuning.
const (
	DefaultTrailLength    = 20
	DefaultSpeedThreshold = 1.5 // px per frame

	TrailAlpha      = 0.85
	TrailAlphaDecay = 0.80
	TrailSizeDecay  = 0.94
	TrailMinAlpha   = 0.03
)

// Particle is one trail dot.
type Particle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
	Alpha  float64 `json:"alpha"`
	Color  RGB     `json:"color"`
}

// Trail is a bounded, oldest-first list of fading particles left behind a fast cursor.
type Trail struct {
	MaxLength      int
	SpeedThreshold float64

	particles []Particle
	lastX     float64
	lastY     float64
	hasLast   bool
}

// NewTrail creates an empty trail.
func NewTrail(maxLength int, speedThreshold float64) *Trail {
	return &Trail{MaxLength: maxLength, SpeedThreshold: speedThreshold}
}

// Step decays the existing particles, drops the faded ones and, when the cursor moved
// faster than the threshold since the previous frame, appends a particle at (x, y).
// It returns the instantaneous speed.
func (t *Trail) Step(x, y, radius float64, c RGB) float64 {
	speed := 0.0
	if t.hasLast {
		speed = math.Hypot(x-t.lastX, y-t.lastY)
	}
	t.lastX, t.lastY, t.hasLast = x, y, true

	kept := t.particles[:0]
	for _, p := range t.particles {
		p.Alpha *= TrailAlphaDecay
		p.Radius *= TrailSizeDecay
		if p.Alpha >= TrailMinAlpha {
			kept = append(kept, p)
		}
	}
	t.particles = kept

	if speed > t.SpeedThreshold && t.MaxLength > 0 {
		t.particles = append(t.particles, Particle{X: x, Y: y, Radius: radius, Alpha: TrailAlpha, Color: c})
	}
	t.truncate()
	return speed
}

// SetMaxLength changes the bound, dropping the oldest particles if needed.
func (t *Trail) SetMaxLength(n int) {
	t.MaxLength = n
	t.truncate()
}

func (t *Trail) truncate() {
	limit := t.MaxLength
	if limit < 0 {
		limit = 0
	}
	if over := len(t.particles) - limit; over > 0 {
		t.particles = append(t.particles[:0], t.particles[over:]...)
	}
}

// Len returns the number of live particles.
func (t *Trail) Len() int { return len(t.particles) }

// Snapshot returns a copy of the particles, oldest first.
func (t *Trail) Snapshot() []Particle {
	out := make([]Particle, len(t.particles))
	copy(out, t.particles)
	return out
}

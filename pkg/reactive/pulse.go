package reactive

import "math"

// Spring constants for the blink pulse.
const (
	SpringStiffness = 0.28
	SpringDamping   = 0.72
	MinScale        = 0.5
	DefaultBoost    = 0.6
)

// Pulse is a damped spring pulling the ball scale toward 1. Blinks kick it upward.
type Pulse struct {
	Scale    float64
	Velocity float64
}

// NewPulse returns a pulse at rest.
func NewPulse() Pulse { return Pulse{Scale: 1} }

// Kick injects velocity.
func (p *Pulse) Kick(boost float64) { p.Velocity += boost }

// Step advances the spring one frame. Scale never drops below MinScale.
func (p *Pulse) Step() {
	p.Scale += p.Velocity
	p.Velocity += (1 - p.Scale) * SpringStiffness
	p.Velocity *= SpringDamping
	p.Scale = math.Max(p.Scale, MinScale)
}

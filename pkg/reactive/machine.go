package reactive

// Params configures a Machine.
type Params struct {
	Palette           Palette
	LerpRate          float64
	BlinkBoost        float64
	SpeedThreshold    float64
	TrailMaxLength    int
	ShockwavesEnabled bool
	ShockwaveScale    float64
	PopStrength       float64
	BlurBase          float64
}

// DefaultParams returns the stock reactive tuning.
func DefaultParams() Params {
	return Params{
		Palette:           DefaultPalette(),
		LerpRate:          DefaultLerpRate,
		BlinkBoost:        DefaultBoost,
		SpeedThreshold:    DefaultSpeedThreshold,
		TrailMaxLength:    DefaultTrailLength,
		ShockwavesEnabled: true,
		ShockwaveScale:    DefaultShockwaveScale,
		PopStrength:       35,
		BlurBase:          12,
	}
}

// Input is one frame of signals for the machine.
type Input struct {
	// Screen-oriented smoothed gaze (x right, y down) used for direction.
	DirX, DirY float64

	// Cursor position and base ball radius in pixels.
	X, Y       float64
	BallRadius float64

	// Smoothed depth in [0,1].
	Z float64

	Blink bool
}

// State is what the machine exposes after a step.
type State struct {
	Direction        Direction
	Color            RGB
	PulseScale       float64
	RadiusMultiplier float64
	Blur             float64
	Speed            float64
	Trail            []Particle
	Shockwaves       []Wave
}

// Machine owns the reactive animation state of one session.
type Machine struct {
	params     Params
	direction  *DirectionState
	pulse      Pulse
	trail      *Trail
	shockwaves *Shockwaves
}

// NewMachine creates a machine at rest.
func NewMachine(p Params) *Machine {
	return &Machine{
		params:     p,
		direction:  NewDirectionState(p.Palette, p.LerpRate),
		pulse:      NewPulse(),
		trail:      NewTrail(p.TrailMaxLength, p.SpeedThreshold),
		shockwaves: NewShockwaves(p.ShockwavesEnabled, p.ShockwaveScale),
	}
}

// SetParams applies new tuning without resetting any animation state.
func (m *Machine) SetParams(p Params) {
	m.params = p
	m.direction.LerpRate = p.LerpRate
	m.direction.SetPalette(p.Palette)
	m.trail.SpeedThreshold = p.SpeedThreshold
	m.trail.SetMaxLength(p.TrailMaxLength)
	m.shockwaves.Enabled = p.ShockwavesEnabled
	m.shockwaves.Scale = p.ShockwaveScale
}

// Step advances every animation one frame.
func (m *Machine) Step(in Input) State {
	m.direction.Update(in.DirX, in.DirY)
	color := m.direction.Color()

	if in.Blink {
		m.pulse.Kick(m.params.BlinkBoost)
	}
	m.pulse.Step()

	mult := RadiusMultiplier(in.Z, m.params.PopStrength)
	radius := in.BallRadius * mult * m.pulse.Scale

	speed := m.trail.Step(in.X, in.Y, radius, color)

	m.shockwaves.Step()
	if in.Blink {
		m.shockwaves.Spawn(in.X, in.Y, in.BallRadius, color)
	}

	return State{
		Direction:        m.direction.Current(),
		Color:            color,
		PulseScale:       m.pulse.Scale,
		RadiusMultiplier: mult,
		Blur:             BlurStrength(in.Z, m.params.BlurBase),
		Speed:            speed,
		Trail:            m.trail.Snapshot(),
		Shockwaves:       m.shockwaves.Snapshot(),
	}
}

// Snapshot reports the current state at depth z without advancing anything.
func (m *Machine) Snapshot(z float64) State {
	return State{
		Direction:        m.direction.Current(),
		Color:            m.direction.Color(),
		PulseScale:       m.pulse.Scale,
		RadiusMultiplier: RadiusMultiplier(z, m.params.PopStrength),
		Blur:             BlurStrength(z, m.params.BlurBase),
		Trail:            m.trail.Snapshot(),
		Shockwaves:       m.shockwaves.Snapshot(),
	}
}

// Pulse returns the spring state.
func (m *Machine) Pulse() Pulse { return m.pulse }

// Direction returns the direction state.
func (m *Machine) Direction() *DirectionState { return m.direction }

package reactive

// Shockwave tuning.
const (
	DefaultShockwaveScale = 3.5
	ShockwaveAlpha        = 0.9
	ShockwaveGrowth       = 0.12
	ShockwaveFade         = 0.84
	ShockwaveMinAlpha     = 0.01
)

// Wave is an expanding ring spawned by a blink.
type Wave struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Radius    float64 `json:"radius"`
	MaxRadius float64 `json:"max_radius"`
	Alpha     float64 `json:"alpha"`
	Color     RGB     `json:"color"`
}

// Shockwaves is the set of live waves. Order carries no meaning.
type Shockwaves struct {
	Enabled bool
	Scale   float64 // max radius as a multiple of the ball radius

	waves []Wave
}

// NewShockwaves creates an empty set.
func NewShockwaves(enabled bool, scale float64) *Shockwaves {
	return &Shockwaves{Enabled: enabled, Scale: scale}
}

// Spawn adds a wave at (x, y) if enabled.
func (s *Shockwaves) Spawn(x, y, ballRadius float64, c RGB) {
	if !s.Enabled {
		return
	}
	s.waves = append(s.waves, Wave{
		X:         x,
		Y:         y,
		MaxRadius: s.Scale * ballRadius,
		Alpha:     ShockwaveAlpha,
		Color:     c,
	})
}

// Step relaxes every wave toward its max radius, fades it and removes the spent ones.
func (s *Shockwaves) Step() {
	kept := s.waves[:0]
	for _, w := range s.waves {
		w.Radius += (w.MaxRadius - w.Radius) * ShockwaveGrowth
		w.Alpha *= ShockwaveFade
		if w.Alpha >= ShockwaveMinAlpha {
			kept = append(kept, w)
		}
	}
	s.waves = kept
}

// Len returns the number of live waves.
func (s *Shockwaves) Len() int { return len(s.waves) }

// Snapshot returns a copy of the live waves.
func (s *Shockwaves) Snapshot() []Wave {
	out := make([]Wave, len(s.waves))
	copy(out, s.waves)
	return out
}

package reactive

import colorful "github.com/lucasb-eyer/go-colorful"

// DefaultLerpRate moves the current color ~92% of the way to its target in 30 frames.
const DefaultLerpRate = 0.08

// RGB is an 8-bit color.
type RGB struct {
	R uint8 `json:"r" yaml:"r"`
	G uint8 `json:"g" yaml:"g"`
	B uint8 `json:"b" yaml:"b"`
}

func (c RGB) color() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

func fromColor(c colorful.Color) RGB {
	r, g, b := c.Clamped().RGB255()
	return RGB{R: r, G: g, B: b}
}

// Hex returns the color as #rrggbb.
func (c RGB) Hex() string { return c.color().Hex() }

// Palette maps directions to colors. Center uses Base.
type Palette struct {
	Base  RGB `json:"base" yaml:"base"`
	Left  RGB `json:"left" yaml:"left"`
	Right RGB `json:"right" yaml:"right"`
	Up    RGB `json:"up" yaml:"up"`
	Down  RGB `json:"down" yaml:"down"`
}

// DefaultPalette returns the stock ball and direction colors.
func DefaultPalette() Palette {
	return Palette{
		Base:  RGB{R: 40, G: 140, B: 255},
		Left:  RGB{R: 255, G: 92, B: 92},
		Right: RGB{R: 92, G: 255, B: 140},
		Up:    RGB{R: 255, G: 210, B: 80},
		Down:  RGB{R: 170, G: 110, B: 255},
	}
}

// For returns the color of a direction.
func (p Palette) For(d Direction) RGB {
	switch d {
	case Left:
		return p.Left
	case Right:
		return p.Right
	case Up:
		return p.Up
	case Down:
		return p.Down
	default:
		return p.Base
	}
}

// DirectionState tracks the classified direction and eases the ball color toward the
// direction's color. The target only changes on a direction transition.
type DirectionState struct {
	LerpRate float64

	palette Palette
	current Direction
	target  colorful.Color
	color   colorful.Color
}

// NewDirectionState starts centered with the palette's base color.
func NewDirectionState(p Palette, rate float64) *DirectionState {
	base := p.Base.color()
	return &DirectionState{LerpRate: rate, palette: p, target: base, color: base}
}

// SetPalette swaps colors. The target follows the new palette for the current direction.
func (s *DirectionState) SetPalette(p Palette) {
	s.palette = p
	s.target = p.For(s.current).color()
}

// Update classifies (x, y), retargets on a change and advances the color one frame.
// It reports whether the direction changed.
func (s *DirectionState) Update(x, y float64) bool {
	d := Classify(x, y)
	changed := d != s.current
	if changed {
		s.current = d
		s.target = s.palette.For(d).color()
	}
	s.color = s.color.BlendRgb(s.target, s.LerpRate)
	return changed
}

// Current returns the classified direction.
func (s *DirectionState) Current() Direction { return s.current }

// Color returns the current interpolated color.
func (s *DirectionState) Color() RGB { return fromColor(s.color) }

// TargetColor returns the color being eased toward.
func (s *DirectionState) TargetColor() RGB { return fromColor(s.target) }

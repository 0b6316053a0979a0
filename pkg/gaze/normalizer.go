package gaze

import (
	"fmt"

	"github.com/teslashibe/go-gaze/pkg/landmark"
)

// Mode selects the reference the iris is measured against.
type Mode string

const (
	// ModeEye measures the iris against the eye references, in eye-width units.
	ModeEye Mode = "eye"

	// ModeFrame measures the iris against the frame center, in half-frame units.
	ModeFrame Mode = "frame"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeEye, ModeFrame:
		return Mode(s), nil
	case "":
		return ModeEye, nil
	}
	return "", fmt.Errorf("gaze: unknown mode %q", s)
}

// Input is what the normalizer reads for one frame.
type Input struct {
	Centroids     landmark.Centroids
	Width, Height int
	OK            bool // false when the centroids are not usable this frame
}

// Normalizer maps centroids to a clamped gaze sample. It keeps only the previous sample,
// which it re-emits as invalid when the input is missing.
type Normalizer struct {
	Mode    Mode
	Gain    float64
	Amplify float64 // extra multiplier for ModeFrame
	Range   Range

	last Sample
}

// NewNormalizer creates a normalizer with clamp range DefaultRange.
func NewNormalizer(mode Mode, gain, amplify float64) *Normalizer {
	return &Normalizer{Mode: mode, Gain: gain, Amplify: amplify, Range: DefaultRange}
}

// Normalize computes the gaze sample for one frame.
func (n *Normalizer) Normalize(in Input) Sample {
	if !in.OK {
		return n.invalid()
	}

	c := in.Centroids
	iris := c.LeftIris.Mid(c.RightIris)

	var ox, oy, gain float64
	switch n.Mode {
	case ModeFrame:
		if in.Width <= 0 || in.Height <= 0 {
			return n.invalid()
		}
		halfW, halfH := float64(in.Width)/2, float64(in.Height)/2
		ox = (iris.X - halfW) / halfW
		oy = (iris.Y - halfH) / halfH
		gain = n.Gain * n.Amplify
	default:
		center := c.LeftEye.Mid(c.RightEye)
		width := c.LeftEye.Dist(c.RightEye) + Epsilon
		ox = (iris.X - center.X) / width
		oy = (iris.Y - center.Y) / width
		gain = n.Gain
	}

	p := landmark.Point{X: ox, Y: oy}
	if !p.Finite() {
		return n.invalid()
	}

	// Image y grows downward; gaze up is positive.
	s := Sample{
		X:     n.Range.Clamp(ox * gain),
		Y:     n.Range.Clamp(-oy * gain),
		Valid: true,
	}
	n.last = s
	return s
}

// Last returns the most recent valid sample.
func (n *Normalizer) Last() Sample { return n.last }

func (n *Normalizer) invalid() Sample {
	s := n.last
	s.Valid = false
	return s
}

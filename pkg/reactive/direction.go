// Package reactive owns the animation state driven by the cursor and blink signals:
// direction color, pulse spring, velocity trail and blink shockwaves.
package reactive

import (
	"fmt"
	"math"
)

// Direction is a coarse gaze direction.
type Direction int

const (
	Center Direction = iota
	Left
	Right
	Up
	Down
)

// DeadZone is the per-axis magnitude under which gaze counts as centered.
const DeadZone = 0.25

var directionNames = [...]string{"center", "left", "right", "up", "down"}

func (d Direction) String() string {
	if d < Center || d > Down {
		return "unknown"
	}
	return directionNames[d]
}

// MarshalText encodes the direction by name.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a direction name.
func (d *Direction) UnmarshalText(text []byte) error {
	for i, name := range directionNames {
		if name == string(text) {
			*d = Direction(i)
			return nil
		}
	}
	return fmt.Errorf("reactive: unknown direction %q", text)
}

// Classify maps a screen-oriented vector (x right, y down, both in [-1,1]) to a direction.
// Equal magnitudes outside the dead zone fall to the vertical branch.
func Classify(x, y float64) Direction {
	ax, ay := math.Abs(x), math.Abs(y)
	if ax < DeadZone && ay < DeadZone {
		return Center
	}
	if ax > ay {
		if x < 0 {
			return Left
		}
		return Right
	}
	if y < 0 {
		return Up
	}
	return Down
}

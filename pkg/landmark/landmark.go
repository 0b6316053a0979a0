// Package landmark holds the per-frame face landmark set delivered by an external
// face-mesh detector and reduces named regions of it to centroids.
package landmark

import (
	"errors"
	"math"
)

// MaxIndex is the highest landmark index emitted by a refined face mesh.
const MaxIndex = 477

// ErrMissingRegion is returned when a region's indices are absent from a frame.
var ErrMissingRegion = errors.New("landmark: region indices missing from frame")

// Point is a 2D point. In a Frame it is normalized to [0,1]; centroids are in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Mid returns the midpoint of p and q.
func (p Point) Mid(q Point) Point { return Point{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2} }

// Finite reports whether both components are finite numbers.
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Frame is one detector result: landmark index to normalized point, plus frame size.
// Frames are read-only once produced.
type Frame struct {
	Points map[int]Point
	Width  int
	Height int
}

// NewFrame creates an empty frame of the given pixel size.
func NewFrame(width, height int) Frame {
	return Frame{Points: make(map[int]Point, MaxIndex+1), Width: width, Height: height}
}

// Sized reports whether the frame carries a positive pixel size.
func (f Frame) Sized() bool { return f.Width > 0 && f.Height > 0 }

// Pixel returns landmark i scaled to pixel space. An unsized frame has no pixel space.
func (f Frame) Pixel(i int) (Point, bool) {
	if !f.Sized() {
		return Point{}, false
	}
	p, ok := f.Points[i]
	if !ok || !p.Finite() {
		return Point{}, false
	}
	return Point{X: p.X * float64(f.Width), Y: p.Y * float64(f.Height)}, true
}

// Pixels returns the listed landmarks in pixel space, or false if any is missing.
func (f Frame) Pixels(indices []int) ([]Point, bool) {
	out := make([]Point, 0, len(indices))
	for _, i := range indices {
		p, ok := f.Pixel(i)
		if !ok {
			return nil, false
		}
		out = append(out, p)
	}
	return out, true
}

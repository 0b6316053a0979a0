package landmark

import "gonum.org/v1/gonum/stat"

// Centroid returns the mean of the listed landmarks in pixel space.
// It returns false if the list is empty or any index is absent.
func Centroid(f Frame, indices []int) (Point, bool) {
	if len(indices) == 0 {
		return Point{}, false
	}
	pts, ok := f.Pixels(indices)
	if !ok {
		return Point{}, false
	}
	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = p.X, p.Y
	}
	return Point{X: stat.Mean(xs, nil), Y: stat.Mean(ys, nil)}, true
}

// Centroids are the per-region centroids of one frame, in pixels.
type Centroids struct {
	LeftIris  Point
	RightIris Point
	LeftEye   Point
	RightEye  Point
}

// Result is the output of Preprocessor.Process.
type Result struct {
	Centroids

	// OK is false until every region has been seen at least once.
	OK bool

	// Degraded is set when at least one region was substituted with its last known centroid.
	Degraded bool
}

// Preprocessor extracts region centroids and remembers the last good value of each.
type Preprocessor struct {
	regions Regions
	last    [4]Point
	seen    [4]bool
}

// NewPreprocessor creates a preprocessor for the given regions.
func NewPreprocessor(regions Regions) *Preprocessor {
	return &Preprocessor{regions: regions}
}

// SetRegions replaces the index sets. Remembered centroids are kept.
func (p *Preprocessor) SetRegions(regions Regions) {
	p.regions = regions
}

// Process reduces a frame to region centroids. Missing regions fall back to the last
// known centroid and mark the result degraded.
func (p *Preprocessor) Process(f Frame) Result {
	sets := [4][]int{p.regions.LeftIris, p.regions.RightIris, p.regions.LeftEye, p.regions.RightEye}
	var out [4]Point
	res := Result{OK: true}

	for i, idx := range sets {
		c, ok := Centroid(f, idx)
		switch {
		case ok:
			p.last[i], p.seen[i] = c, true
			out[i] = c
		case p.seen[i]:
			out[i] = p.last[i]
			res.Degraded = true
		default:
			res.OK = false
			res.Degraded = true
		}
	}

	res.Centroids = Centroids{LeftIris: out[0], RightIris: out[1], LeftEye: out[2], RightEye: out[3]}
	return res
}

// EyeContours returns the six-point EAR contours of both eyes in pixels.
func (p *Preprocessor) EyeContours(f Frame) (left, right [6]Point, err error) {
	l, ok := f.Pixels(p.regions.LeftEyeEAR[:])
	if !ok {
		return left, right, ErrMissingRegion
	}
	r, ok := f.Pixels(p.regions.RightEyeEAR[:])
	if !ok {
		return left, right, ErrMissingRegion
	}
	copy(left[:], l)
	copy(right[:], r)
	return left, right, nil
}

package gaze

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// DefaultWindow is how long a calibration collects samples.
const DefaultWindow = 2 * time.Second

// Outcome reports what a Feed call did.
type Outcome int

const (
	// OutcomeIdle means no calibration window is open.
	OutcomeIdle Outcome = iota
	// OutcomeCollecting means the window is still open.
	OutcomeCollecting
	// OutcomeCompleted means the window closed and a new baseline was stored.
	OutcomeCompleted
	// OutcomeFailed means the window closed without a single valid sample.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCollecting:
		return "collecting"
	case OutcomeCompleted:
		return "completed"
	case OutcomeFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Calibrator removes a per-session baseline bias from gaze samples.
// The baseline only changes while a window is open.
type Calibrator struct {
	Window time.Duration
	Range  Range

	offset     Sample
	calibrated bool

	collecting bool
	start      time.Time
	xs, ys     []float64
	prior      bool // calibrated flag before the current attempt
}

// NewCalibrator creates a calibrator with the given window and ExtendedRange.
func NewCalibrator(window time.Duration) *Calibrator {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Calibrator{Window: window, Range: ExtendedRange}
}

// Start opens a new window at now. Calling it while collecting restarts the window.
func (c *Calibrator) Start(now time.Time) {
	if !c.collecting {
		c.prior = c.calibrated
	}
	c.collecting = true
	c.calibrated = false
	c.start = now
	c.xs = c.xs[:0]
	c.ys = c.ys[:0]
}

// Feed buffers a valid sample while the window is open and closes the window once it
// has elapsed. An empty window restores the pre-attempt state.
func (c *Calibrator) Feed(s Sample, now time.Time) Outcome {
	if !c.collecting {
		return OutcomeIdle
	}

	if now.Sub(c.start) < c.Window {
		if s.Valid {
			c.xs = append(c.xs, s.X)
			c.ys = append(c.ys, s.Y)
		}
		return OutcomeCollecting
	}

	c.collecting = false
	if len(c.xs) == 0 {
		c.calibrated = c.prior
		return OutcomeFailed
	}
	c.offset = Sample{X: stat.Mean(c.xs, nil), Y: stat.Mean(c.ys, nil), Valid: true}
	c.calibrated = true
	return OutcomeCompleted
}

// Apply subtracts the baseline when calibrated and clamps to the extended range.
func (c *Calibrator) Apply(s Sample) Sample {
	if !c.calibrated {
		return s
	}
	return c.Range.ClampSample(Sample{X: s.X - c.offset.X, Y: s.Y - c.offset.Y, Valid: s.Valid})
}

// Collecting reports whether a window is open.
func (c *Calibrator) Collecting() bool { return c.collecting }

// Calibrated reports whether a baseline is in effect.
func (c *Calibrator) Calibrated() bool { return c.calibrated }

// Offset returns the stored baseline.
func (c *Calibrator) Offset() Sample { return c.offset }

// Samples returns how many samples the open window holds.
func (c *Calibrator) Samples() int { return len(c.xs) }

// Package engine runs the per-frame gaze pipeline: landmarks to gaze, calibration,
// smoothing, blink detection and the reactive animation state, ending in a render
// descriptor.
//
// An Engine is the explicit context object of one stream. It is not safe for
// concurrent use: one goroutine owns it and calls Tick once per frame. Only
// RequestCalibration may be called from other goroutines.
package engine

import (
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-gaze/pkg/blink"
	"github.com/teslashibe/go-gaze/pkg/filter"
	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/landmark"
	"github.com/teslashibe/go-gaze/pkg/reactive"
	"github.com/teslashibe/go-gaze/pkg/render"
)

// Input is one tick's worth of detector output.
type Input struct {
	Frame        landmark.Frame
	FaceDetected bool
	Now          time.Time
}

// Result is everything a tick produces.
type Result struct {
	Descriptor  render.Descriptor
	Status      render.Status
	Blink       bool
	Calibration gaze.Outcome
	Direction   reactive.Direction
}

// Engine holds the mutable per-stream state.
type Engine struct {
	cfg Config

	pre     *landmark.Preprocessor
	norm    *gaze.Normalizer
	calib   *gaze.Calibrator
	cursor  *filter.Cursor
	blinks  *blink.Detector
	machine *reactive.Machine

	calibrate   atomic.Bool
	calibWindow atomic.Int64 // requested window in ns, 0 = configured

	seq         uint64
	width       int
	height      int
	calibFailed bool
	lastGaze    gaze.Sample
}

// New creates an engine. The configuration must validate.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	cfg = cfg.Clone()

	cursor, err := filter.NewCursor(cfg.SmoothingWindow)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:     cfg,
		pre:     landmark.NewPreprocessor(cfg.Regions),
		norm:    gaze.NewNormalizer(cfg.GazeMode(), cfg.Gain, cfg.Amplify),
		calib:   gaze.NewCalibrator(cfg.CalibrationWindow()),
		cursor:  cursor,
		blinks:  blink.NewDetector(cfg.BlinkThreshold, cfg.BlinkCooldownFrames),
		machine: reactive.NewMachine(cfg.ReactiveParams()),
	}, nil
}

// Config returns the configuration in effect.
func (e *Engine) Config() Config { return e.cfg.Clone() }

// Apply swaps in a new configuration without resetting any state. An invalid
// configuration is rejected and the previous one stays in effect.
func (e *Engine) Apply(cfg Config) error {
	if err := cfg.Check(); err != nil {
		return err
	}
	cfg = cfg.Clone()

	if err := e.cursor.SetWindow(cfg.SmoothingWindow); err != nil {
		return err
	}
	e.pre.SetRegions(cfg.Regions)
	e.norm.Mode, e.norm.Gain, e.norm.Amplify = cfg.GazeMode(), cfg.Gain, cfg.Amplify
	if !e.calib.Collecting() {
		e.calib.Window = cfg.CalibrationWindow()
	}
	e.blinks.Threshold, e.blinks.CooldownFrames = cfg.BlinkThreshold, cfg.BlinkCooldownFrames
	e.machine.SetParams(cfg.ReactiveParams())
	e.cfg = cfg
	return nil
}

// RequestCalibration asks for a calibration window to open on the next tick.
// Safe to call from any goroutine.
func (e *Engine) RequestCalibration() {
	e.RequestCalibrationFor(0)
}

// RequestCalibrationFor is RequestCalibration with a one-off window length.
// A non-positive window uses the configured one.
func (e *Engine) RequestCalibrationFor(window time.Duration) {
	if window < 0 {
		window = 0
	}
	e.calibWindow.Store(int64(window))
	e.calibrate.Store(true)
}

// Tick runs the whole pipeline for one frame. It never fails: missing faces,
// missing landmarks and degenerate geometry all produce a degraded result.
func (e *Engine) Tick(in Input) Result {
	e.seq++
	if in.Now.IsZero() {
		in.Now = time.Now()
	}
	if e.calibrate.Swap(false) {
		e.calib.Window = e.cfg.CalibrationWindow()
		if w := time.Duration(e.calibWindow.Swap(0)); w > 0 {
			e.calib.Window = w
		}
		e.calib.Start(in.Now)
		e.calibFailed = false
	}
	// Normalized landmarks are meaningless without the frame they were measured in.
	sized := in.Frame.Sized()
	if sized {
		e.width, e.height = in.Frame.Width, in.Frame.Height
	}
	usable := in.FaceDetected && sized

	// 1-2: landmarks to a raw gaze sample.
	var pre landmark.Result
	if usable {
		pre = e.pre.Process(in.Frame)
	}
	sample := e.norm.Normalize(gaze.Input{
		Centroids: pre.Centroids,
		Width:     e.width,
		Height:    e.height,
		OK:        usable && pre.OK,
	})
	tracking := usable && sample.Valid

	// 3: calibration window and baseline removal.
	outcome := e.calib.Feed(sample, in.Now)
	switch outcome {
	case gaze.OutcomeCompleted:
		e.calibFailed = false
	case gaze.OutcomeFailed:
		e.calibFailed = true
	}
	calibrated := e.calib.Apply(sample)
	if calibrated.Valid {
		e.lastGaze = calibrated
	}

	// 4: smoothing. Invalid frames keep easing toward the last valid target.
	z := filter.Depth(calibrated.X, calibrated.Y, e.cfg.DepthFalloff)
	pos := e.cursor.Update(filter.Vec3{X: calibrated.X, Y: calibrated.Y, Z: z}, calibrated.Valid)

	// 5: blinks, only from a frame that actually has eyes.
	fired := false
	if tracking {
		if left, right, err := e.pre.EyeContours(in.Frame); err == nil {
			fired = e.blinks.Update(left, right)
		} else {
			e.blinks.Idle()
		}
	} else {
		e.blinks.Idle()
	}

	// 6: reactive state. Direction uses screen orientation (y down). Until a sized
	// frame has been seen there is no pixel space, so the animation holds still and
	// the pixel fields stay zero.
	var (
		px   render.Point
		ball float64
		st   reactive.State
	)
	if e.width > 0 && e.height > 0 {
		px = render.ToPixels(pos.X, pos.Y, e.width, e.height)
		ball = render.BallRadius(e.width, e.height)
		st = e.machine.Step(reactive.Input{
			DirX:       pos.X,
			DirY:       -pos.Y,
			X:          px.X,
			Y:          px.Y,
			BallRadius: ball,
			Z:          pos.Z,
			Blink:      fired,
		})
	} else {
		st = e.machine.Snapshot(pos.Z)
	}

	// 7: descriptor.
	desc := render.Descriptor{
		Seq:              e.seq,
		Cursor:           px,
		Gaze:             render.Point{X: pos.X, Y: pos.Y},
		Depth:            pos.Z,
		BallRadius:       ball,
		PulseScale:       st.PulseScale,
		RadiusMultiplier: st.RadiusMultiplier,
		Blur:             st.Blur,
		Color:            st.Color,
		Direction:        st.Direction,
		Trail:            st.Trail,
		Shockwaves:       st.Shockwaves,
		Tracking:         tracking,
		BlinkCount:       e.blinks.Count(),
		Width:            e.width,
		Height:           e.height,
	}

	return Result{
		Descriptor:  desc,
		Status:      e.status(tracking, !tracking || pre.Degraded),
		Blink:       fired,
		Calibration: outcome,
		Direction:   st.Direction,
	}
}

func (e *Engine) status(tracking, degraded bool) render.Status {
	calib := render.NotCalibrated
	switch {
	case e.calib.Collecting():
		calib = render.Calibrating
	case e.calib.Calibrated():
		calib = render.Calibrated
	}
	return render.Status{
		Tracking:          tracking,
		BlinkCount:        e.blinks.Count(),
		GazeX:             e.lastGaze.X,
		GazeY:             e.lastGaze.Y,
		Calibration:       calib,
		CalibrationFailed: e.calibFailed,
		Degraded:          degraded,
	}
}

// Calibrator exposes the calibration state for inspection.
func (e *Engine) Calibrator() *gaze.Calibrator { return e.calib }

// Cursor exposes the smoothing filter for inspection.
func (e *Engine) Cursor() *filter.Cursor { return e.cursor }

// Ticks returns how many ticks have run.
func (e *Engine) Ticks() uint64 { return e.seq }

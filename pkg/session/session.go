// Package session hosts one engine per landmark stream. A Session owns its
// engine on a single goroutine (Run) and accepts detections from any goroutine
// through a latest-wins Handoff.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/engine"
	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/landmark"
	"github.com/teslashibe/go-gaze/pkg/metrics"
)

// Options configures a new session.
type Options struct {
	ID       string // empty assigns a random UUID
	Manager  *engine.Manager
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	OnResult func(engine.Result) // called on the Run goroutine after every tick
}

// Session is one stream: a handoff feeding an engine.
type Session struct {
	ID      string
	Created time.Time

	handoff  *Handoff
	engine   *engine.Engine
	manager  *engine.Manager
	metrics  *metrics.Metrics
	logger   *slog.Logger
	onResult func(engine.Result)

	version     uint64
	ticks       atomic.Uint64
	lastDropped uint64

	mu      sync.RWMutex
	last    engine.Result
	hasLast bool

	done     chan struct{}
	doneOnce sync.Once
}

// New creates a session from the manager's current configuration.
func New(opts Options) (*Session, error) {
	if opts.Manager == nil {
		return nil, errors.New("session: manager is required")
	}
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.L()
	}

	version := opts.Manager.Version()
	eng, err := engine.New(opts.Manager.Get())
	if err != nil {
		return nil, err
	}

	return &Session{
		ID:       id,
		Created:  time.Now(),
		handoff:  NewHandoff(),
		engine:   eng,
		manager:  opts.Manager,
		metrics:  opts.Metrics,
		logger:   logger.With("session", id),
		onResult: opts.OnResult,
		version:  version,
		done:     make(chan struct{}),
	}, nil
}

// Submit hands an unsequenced detector result to the tick loop. It skips the
// handoff's ordering check, so it mixes freely with sequenced Offers. Never blocks.
func (s *Session) Submit(f landmark.Frame, faceDetected bool) bool {
	return s.Offer(landmark.Detection{
		Frame:        f,
		FaceDetected: faceDetected,
		At:           time.Now(),
	})
}

// Offer hands a complete detection to the tick loop. Never blocks.
func (s *Session) Offer(d landmark.Detection) bool {
	if d.At.IsZero() {
		d.At = time.Now()
	}
	return s.handoff.Offer(d)
}

// Calibrate opens a calibration window on the next tick. A non-positive window
// uses the configured one.
func (s *Session) Calibrate(window time.Duration) {
	s.engine.RequestCalibrationFor(window)
	s.logger.Info("calibration requested", "window", window)
}

// Run ticks the engine once per detection until ctx is done or the session is
// closed. It returns nil on either. No OnResult call happens after Done is closed.
func (s *Session) Run(ctx context.Context) error {
	s.logger.Info("session started")
	defer s.doneOnce.Do(func() { close(s.done) })
	defer s.logger.Info("session stopped", "ticks", s.ticks.Load(), "dropped", s.handoff.Dropped())

	for {
		det, err := s.handoff.Next(ctx)
		if err != nil {
			if errors.Is(err, ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.tick(det)
	}
}

func (s *Session) tick(det landmark.Detection) {
	s.syncConfig()

	start := time.Now()
	res := s.engine.Tick(engine.Input{
		Frame:        det.Frame,
		FaceDetected: det.FaceDetected,
		Now:          det.At,
	})
	s.ticks.Add(1)

	calibration := ""
	switch res.Calibration {
	case gaze.OutcomeCompleted:
		calibration = res.Calibration.String()
		s.logger.Info("calibration completed", "offset", s.engine.Calibrator().Offset())
	case gaze.OutcomeFailed:
		calibration = res.Calibration.String()
		s.logger.Warn("calibration failed: no face during window")
	}
	s.metrics.ObserveTick(metrics.TickResult{
		Duration:    time.Since(start),
		Tracking:    res.Status.Tracking,
		Degraded:    res.Status.Degraded,
		FaceFound:   det.FaceDetected,
		Blink:       res.Blink,
		Calibration: calibration,
	})
	dropped := s.handoff.Dropped()
	s.metrics.AddDropped(int(dropped - s.lastDropped))
	s.lastDropped = dropped

	s.mu.Lock()
	s.last, s.hasLast = res, true
	s.mu.Unlock()

	if s.onResult != nil {
		s.onResult(res)
	}
}

// syncConfig re-reads the shared configuration when its version moved.
func (s *Session) syncConfig() {
	v := s.manager.Version()
	if v == s.version {
		return
	}
	s.version = v
	if err := s.engine.Apply(s.manager.Get()); err != nil {
		s.logger.Warn("config rejected, keeping previous", "error", err)
		return
	}
	s.logger.Debug("config applied", "version", v)
}

// Last returns the most recent tick result, if any.
func (s *Session) Last() (engine.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasLast {
		return engine.Result{}, false
	}
	res := s.last
	res.Descriptor = res.Descriptor.Clone()
	return res, true
}

// Close stops Run after any pending detection is consumed. It does not wait;
// use Done or Wait for that.
func (s *Session) Close() error {
	return s.handoff.Close()
}

// Done is closed when Run has returned.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until Run has returned or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Info is a point-in-time summary of a session.
type Info struct {
	ID       string    `json:"id"`
	Created  time.Time `json:"created"`
	Ticks    uint64    `json:"ticks"`
	Offered  uint64    `json:"offered"`
	Dropped  uint64    `json:"dropped"`
	Tracking bool      `json:"tracking"`
	Status   string    `json:"status,omitempty"`
}

// Info summarizes the session.
func (s *Session) Info() Info {
	info := Info{
		ID:      s.ID,
		Created: s.Created,
		Ticks:   s.ticks.Load(),
		Offered: s.handoff.Offered(),
		Dropped: s.handoff.Dropped(),
	}
	if res, ok := s.Last(); ok {
		info.Tracking = res.Status.Tracking
		info.Status = res.Status.String()
	}
	return info
}

package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-gaze/pkg/landmark"
)

// ErrClosed is returned by Next once the handoff is closed and drained.
var ErrClosed = errors.New("session: handoff closed")

// Handoff is a single-slot, latest-wins mailbox between an asynchronous landmark
// producer and the tick loop. Offer never blocks; an unconsumed detection is
// replaced by a newer one and counted as dropped. It implements landmark.Provider.
type Handoff struct {
	mu      sync.Mutex
	slot    landmark.Detection
	full    bool
	lastSeq uint64

	ready chan struct{}
	done  chan struct{}
	once  sync.Once

	offered atomic.Uint64
	dropped atomic.Uint64
}

var _ landmark.Provider = (*Handoff)(nil)

// NewHandoff creates an empty handoff.
func NewHandoff() *Handoff {
	return &Handoff{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Offer stores d as the newest detection. A detection whose sequence number is not
// newer than one already offered is discarded. Returns false if d was discarded or
// the handoff is closed.
func (h *Handoff) Offer(d landmark.Detection) bool {
	select {
	case <-h.done:
		return false
	default:
	}

	h.mu.Lock()
	if d.Seq != 0 && d.Seq <= h.lastSeq {
		h.mu.Unlock()
		h.dropped.Add(1)
		return false
	}
	if d.Seq != 0 {
		h.lastSeq = d.Seq
	}
	if h.full {
		h.dropped.Add(1)
	}
	h.slot, h.full = d, true
	h.mu.Unlock()

	h.offered.Add(1)
	select {
	case h.ready <- struct{}{}:
	default:
	}
	return true
}

// Take returns the newest detection without blocking.
func (h *Handoff) Take() (landmark.Detection, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.full {
		return landmark.Detection{}, false
	}
	d := h.slot
	h.slot, h.full = landmark.Detection{}, false
	return d, true
}

// Next blocks until a detection is available, ctx is done, or the handoff is closed.
func (h *Handoff) Next(ctx context.Context) (landmark.Detection, error) {
	for {
		if d, ok := h.Take(); ok {
			return d, nil
		}
		select {
		case <-ctx.Done():
			return landmark.Detection{}, ctx.Err()
		case <-h.done:
			if d, ok := h.Take(); ok {
				return d, nil
			}
			return landmark.Detection{}, ErrClosed
		case <-h.ready:
		}
	}
}

// Close stops the handoff. Further offers are rejected. Safe to call more than once.
func (h *Handoff) Close() error {
	h.once.Do(func() { close(h.done) })
	return nil
}

// Offered returns how many detections were accepted.
func (h *Handoff) Offered() uint64 { return h.offered.Load() }

// Dropped returns how many detections were overwritten or arrived out of order.
func (h *Handoff) Dropped() uint64 { return h.dropped.Load() }

package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/teslashibe/go-gaze/pkg/metrics"
)

var (
	// ErrNotFound is returned when no session has the requested ID.
	ErrNotFound = errors.New("session: not found")

	// ErrExists is returned when opening a session under an ID already in use.
	ErrExists = errors.New("session: already exists")
)

// Registry tracks the running sessions of a server.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	metrics  *metrics.Metrics
	wg       sync.WaitGroup
}

// NewRegistry creates an empty registry. m may be nil.
func NewRegistry(m *metrics.Metrics) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		metrics:  m,
	}
}

// Open creates a session, registers it and starts its Run loop. The session is
// removed when the loop ends, either through Close or ctx.
func (r *Registry) Open(ctx context.Context, opts Options) (*Session, error) {
	if opts.Metrics == nil {
		opts.Metrics = r.metrics
	}
	s, err := New(opts)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if _, ok := r.sessions[s.ID]; ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrExists, s.ID)
	}
	r.sessions[s.ID] = s
	r.mu.Unlock()
	if r.metrics != nil {
		r.metrics.Sessions.Inc()
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := s.Run(ctx); err != nil {
			s.logger.Error("session loop failed", "error", err)
		}
		r.remove(s.ID)
	}()
	return s, nil
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok && r.metrics != nil {
		r.metrics.Sessions.Dec()
	}
}

// Get returns the session with the given ID.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Close stops the session with the given ID.
func (r *Registry) Close(id string) error {
	s, err := r.Get(id)
	if err != nil {
		return err
	}
	return s.Close()
}

// List returns a summary of every session, oldest first.
func (r *Registry) List() []Info {
	r.mu.RLock()
	out := make([]Info, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.Info())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Created.Equal(out[j].Created) {
			return out[i].ID < out[j].ID
		}
		return out[i].Created.Before(out[j].Created)
	})
	return out
}

// Stats aggregates counters over all sessions.
type Stats struct {
	Sessions int    `json:"sessions"`
	Tracking int    `json:"tracking"`
	Ticks    uint64 `json:"ticks"`
	Offered  uint64 `json:"offered"`
	Dropped  uint64 `json:"dropped"`
}

// Stats returns aggregated counters.
func (r *Registry) Stats() Stats {
	var st Stats
	for _, info := range r.List() {
		st.Sessions++
		if info.Tracking {
			st.Tracking++
		}
		st.Ticks += info.Ticks
		st.Offered += info.Offered
		st.Dropped += info.Dropped
	}
	return st
}

// Len returns the number of sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Shutdown closes every session and waits for their loops to end.
func (r *Registry) Shutdown() {
	r.mu.RLock()
	for _, s := range r.sessions {
		s.Close()
	}
	r.mu.RUnlock()
	r.wg.Wait()
}

package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/engine"
	"github.com/teslashibe/go-gaze/pkg/landmark"
	"github.com/teslashibe/go-gaze/pkg/metrics"
)

func detection(seq uint64) landmark.Detection {
	return landmark.Detection{Frame: landmark.NewFrame(640, 480), Seq: seq, At: time.Unix(int64(seq), 0)}
}

func TestHandoff_LatestWins(t *testing.T) {
	h := NewHandoff()
	for seq := uint64(1); seq <= 5; seq++ {
		if !h.Offer(detection(seq)) {
			t.Fatalf("offer %d rejected", seq)
		}
	}

	d, ok := h.Take()
	if !ok || d.Seq != 5 {
		t.Fatalf("Take() = %d, %v; want newest (5)", d.Seq, ok)
	}
	if _, ok := h.Take(); ok {
		t.Error("slot should be empty after Take")
	}
	if h.Dropped() != 4 || h.Offered() != 5 {
		t.Errorf("dropped = %d, offered = %d", h.Dropped(), h.Offered())
	}
}

func TestHandoff_RejectsStale(t *testing.T) {
	h := NewHandoff()
	h.Offer(detection(10))
	if h.Offer(detection(9)) {
		t.Error("older detection should be discarded")
	}
	if h.Offer(detection(10)) {
		t.Error("duplicate sequence should be discarded")
	}
	d, _ := h.Take()
	if d.Seq != 10 {
		t.Errorf("Seq = %d, want 10", d.Seq)
	}
}

func TestHandoff_NextBlocksUntilOffer(t *testing.T) {
	h := NewHandoff()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got := make(chan uint64, 1)
	go func() {
		d, err := h.Next(ctx)
		if err != nil {
			got <- 0
			return
		}
		got <- d.Seq
	}()

	time.Sleep(20 * time.Millisecond)
	h.Offer(detection(3))

	select {
	case seq := <-got:
		if seq != 3 {
			t.Errorf("Next returned %d, want 3", seq)
		}
	case <-time.After(time.Second):
		t.Fatal("Next did not wake up")
	}
}

func TestHandoff_NextHonorsContext(t *testing.T) {
	h := NewHandoff()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestHandoff_Close(t *testing.T) {
	h := NewHandoff()
	h.Offer(detection(1))
	h.Close()
	h.Close()

	if h.Offer(detection(2)) {
		t.Error("offer after close should be rejected")
	}
	// A pending detection is still delivered.
	if d, err := h.Next(context.Background()); err != nil || d.Seq != 1 {
		t.Errorf("Next = %d, %v", d.Seq, err)
	}
	if _, err := h.Next(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}

func TestHandoff_ConcurrentOffers(t *testing.T) {
	h := NewHandoff()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				h.Offer(landmark.Detection{})
			}
		}()
	}
	wg.Wait()
	if _, ok := h.Take(); !ok {
		t.Fatal("expected one detection in the slot")
	}
	if h.Offered() != 800 || h.Dropped() != 799 {
		t.Errorf("offered = %d, dropped = %d", h.Offered(), h.Dropped())
	}
}

func newManager(t *testing.T) *engine.Manager {
	t.Helper()
	m, err := engine.NewManager(engine.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestSession_RunTicksAndReportsResults(t *testing.T) {
	mgr := newManager(t)
	met := metrics.New()
	results := make(chan engine.Result, 16)

	s, err := New(Options{
		Manager:  mgr,
		Metrics:  met,
		Logger:   log.Discard(),
		OnResult: func(r engine.Result) { results <- r },
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.ID == "" {
		t.Error("expected a generated ID")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	s.Submit(landmark.NewFrame(640, 480), false)
	select {
	case res := <-results:
		if res.Status.Tracking {
			t.Error("no face should not be tracking")
		}
		if res.Descriptor.Width != 640 {
			t.Errorf("width = %d", res.Descriptor.Width)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no result")
	}

	if _, ok := s.Last(); !ok {
		t.Error("Last should hold the result")
	}
	if got := testutil.ToFloat64(met.Ticks); got != 1 {
		t.Errorf("ticks metric = %v", got)
	}

	s.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestSession_PicksUpConfigChanges(t *testing.T) {
	mgr := newManager(t)
	results := make(chan engine.Result, 16)
	s, err := New(Options{Manager: mgr, Logger: log.Discard(), OnResult: func(r engine.Result) { results <- r }})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	cfg := mgr.Get()
	cfg.SmoothingWindow = 9
	if err := mgr.Set(cfg); err != nil {
		t.Fatal(err)
	}

	s.Submit(landmark.NewFrame(640, 480), false)
	select {
	case <-results:
	case <-time.After(2 * time.Second):
		t.Fatal("no result")
	}
	if w := s.engine.Cursor().Window(); w != 9 {
		t.Errorf("window = %d, want 9", w)
	}
}

func TestNew_RequiresManager(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("expected error without manager")
	}
}

func TestRegistry(t *testing.T) {
	met := metrics.New()
	r := NewRegistry(met)
	mgr := newManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := r.Open(ctx, Options{ID: "a", Manager: mgr, Logger: log.Discard()})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Open(ctx, Options{ID: "a", Manager: mgr, Logger: log.Discard()}); !errors.Is(err, ErrExists) {
		t.Errorf("duplicate open: err = %v, want ErrExists", err)
	}
	if _, err := r.Open(ctx, Options{ID: "b", Manager: mgr, Logger: log.Discard()}); err != nil {
		t.Fatal(err)
	}

	if got, err := r.Get("a"); err != nil || got != a {
		t.Errorf("Get(a) = %v, %v", got, err)
	}
	if _, err := r.Get("zzz"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if st := r.Stats(); st.Sessions != 2 {
		t.Errorf("stats = %+v", st)
	}
	if got := testutil.ToFloat64(met.Sessions); got != 2 {
		t.Errorf("sessions gauge = %v", got)
	}

	if err := r.Close("a"); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for r.Len() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if r.Len() != 1 {
		t.Fatalf("len = %d after close, want 1", r.Len())
	}
	if err := r.Close("a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second close: err = %v", err)
	}

	r.Shutdown()
	if r.Len() != 0 {
		t.Errorf("len = %d after shutdown", r.Len())
	}
	if got := testutil.ToFloat64(met.Sessions); got != 0 {
		t.Errorf("sessions gauge = %v after shutdown", got)
	}
}

func TestSession_SubmitMixesWithSequencedOffers(t *testing.T) {
	s, err := New(Options{Manager: newManager(t), Logger: log.Discard()})
	if err != nil {
		t.Fatal(err)
	}

	// Sequenced first, then unsequenced.
	if !s.Offer(detection(100)) {
		t.Fatal("sequenced offer rejected")
	}
	if _, ok := s.handoff.Take(); !ok {
		t.Fatal("expected a pending detection")
	}
	if !s.Submit(landmark.NewFrame(640, 480), true) {
		t.Error("unsequenced submit after seq 100 was rejected")
	}
	s.handoff.Take()

	// Unsequenced first, then low sequence numbers from a fresh producer.
	s2, err := New(Options{Manager: newManager(t), Logger: log.Discard()})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		s2.Submit(landmark.NewFrame(640, 480), true)
		s2.handoff.Take()
	}
	if !s2.Offer(detection(1)) {
		t.Error("seq 1 after unsequenced submits was rejected")
	}
	if d := s2.handoff.Dropped(); d != 0 {
		t.Errorf("dropped = %d, want 0", d)
	}
}

func TestSession_DoneAfterRunReturns(t *testing.T) {
	var calls atomic.Int64
	s, err := New(Options{
		Manager:  newManager(t),
		Logger:   log.Discard(),
		OnResult: func(engine.Result) { calls.Add(1) },
	})
	if err != nil {
		t.Fatal(err)
	}
	select {
	case <-s.Done():
		t.Fatal("Done closed before Run started")
	default:
	}

	go s.Run(context.Background())
	for i := 0; i < 10; i++ {
		s.Submit(landmark.NewFrame(640, 480), false)
	}
	s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait() = %v", err)
	}
	after := calls.Load()
	if s.Submit(landmark.NewFrame(640, 480), false) {
		t.Error("submit after close should be rejected")
	}
	time.Sleep(20 * time.Millisecond)
	if got := calls.Load(); got != after {
		t.Errorf("OnResult ran %d more times after Done", got-after)
	}
}

func TestSession_WaitHonorsContext(t *testing.T) {
	s, err := New(Options{Manager: newManager(t), Logger: log.Discard()})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() = %v, want deadline exceeded", err)
	}
}

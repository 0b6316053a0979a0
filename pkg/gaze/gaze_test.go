package gaze

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/teslashibe/go-gaze/pkg/landmark"
)

// centered places both irises exactly at the midpoint of the eye references.
func centered(eyeWidth float64) Input {
	left := landmark.Point{X: 300, Y: 200}
	right := landmark.Point{X: 300 + eyeWidth, Y: 200}
	mid := left.Mid(right)
	return Input{
		Centroids: landmark.Centroids{LeftEye: left, RightEye: right, LeftIris: mid, RightIris: mid},
		Width:     640,
		Height:    480,
		OK:        true,
	}
}

func TestNormalizer_ClampProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		in := centered(rng.Float64()*100 + 0.5)
		in.Centroids.LeftIris.X += (rng.Float64() - 0.5) * 400
		in.Centroids.RightIris.Y += (rng.Float64() - 0.5) * 400
		mode := ModeEye
		if i%2 == 1 {
			mode = ModeFrame
		}
		n := NewNormalizer(mode, rng.Float64()*10, 1+rng.Float64()*3)

		s := n.Normalize(in)
		if math.Abs(s.X) > float64(DefaultRange) || math.Abs(s.Y) > float64(DefaultRange) {
			t.Fatalf("sample %+v outside range (mode=%s gain=%v)", s, mode, n.Gain)
		}
	}
}

func TestNormalizer_EyeMode(t *testing.T) {
	const eyeWidth = 60.0

	tests := []struct {
		name   string
		shift  landmark.Point
		wantX  float64
		wantY  float64
		margin float64
	}{
		{name: "iris at eye center", wantX: 0, wantY: 0, margin: 1e-9},
		{name: "half eye width right", shift: landmark.Point{X: 0.5 * eyeWidth}, wantX: 1.0, wantY: 0, margin: 1e-9},
		{name: "small shift right", shift: landmark.Point{X: 0.1 * eyeWidth}, wantX: 0.3, wantY: 0, margin: 1e-6},
		{name: "iris up is positive y", shift: landmark.Point{Y: -0.1 * eyeWidth}, wantX: 0, wantY: 0.3, margin: 1e-6},
		{name: "iris far down clamps", shift: landmark.Point{Y: 2 * eyeWidth}, wantX: 0, wantY: -1.0, margin: 1e-9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := centered(eyeWidth)
			in.Centroids.LeftIris = landmark.Point{X: in.Centroids.LeftIris.X + tt.shift.X, Y: in.Centroids.LeftIris.Y + tt.shift.Y}
			in.Centroids.RightIris = landmark.Point{X: in.Centroids.RightIris.X + tt.shift.X, Y: in.Centroids.RightIris.Y + tt.shift.Y}

			n := NewNormalizer(ModeEye, 3, 1)
			s := n.Normalize(in)
			if !s.Valid {
				t.Fatal("expected valid sample")
			}
			if math.Abs(s.X-tt.wantX) > tt.margin || math.Abs(s.Y-tt.wantY) > tt.margin {
				t.Errorf("got (%v, %v), want (%v, %v)", s.X, s.Y, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestNormalizer_CoincidentEyes(t *testing.T) {
	in := centered(0)
	n := NewNormalizer(ModeEye, 3, 1)
	s := n.Normalize(in)
	if math.IsNaN(s.X) || math.IsNaN(s.Y) {
		t.Fatalf("NaN leaked: %+v", s)
	}
	if s.X != 0 || s.Y != 0 {
		t.Errorf("coincident eyes with centered iris should give zero gaze, got %+v", s)
	}
}

func TestNormalizer_FrameMode(t *testing.T) {
	in := centered(60)
	in.Centroids.LeftIris = landmark.Point{X: 480, Y: 240}
	in.Centroids.RightIris = landmark.Point{X: 480, Y: 240}

	n := NewNormalizer(ModeFrame, 1, 2)
	s := n.Normalize(in)
	// (480-320)/320 = 0.5, times gain*amplify = 1.0
	if math.Abs(s.X-1.0) > 1e-9 || math.Abs(s.Y) > 1e-9 {
		t.Errorf("got %+v, want (1, 0)", s)
	}
}

func TestNormalizer_MissingInputRepeatsLast(t *testing.T) {
	n := NewNormalizer(ModeEye, 3, 1)
	in := centered(60)
	in.Centroids.LeftIris.X += 6
	in.Centroids.RightIris.X += 6
	first := n.Normalize(in)

	s := n.Normalize(Input{})
	if s.Valid {
		t.Error("missing input must produce an invalid sample")
	}
	if s.X != first.X || s.Y != first.Y {
		t.Errorf("got %+v, want last %+v", s, first)
	}
}

func TestParseMode(t *testing.T) {
	for _, tt := range []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"eye", ModeEye, false},
		{"frame", ModeFrame, false},
		{"", ModeEye, false},
		{"screen", "", true},
	} {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseMode(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestCalibrator_OffsetIsMean(t *testing.T) {
	c := NewCalibrator(2 * time.Second)
	t0 := time.Unix(1000, 0)
	c.Start(t0)

	samples := []Sample{
		{X: 0.2, Y: -0.1, Valid: true},
		{X: 0.4, Y: 0.1, Valid: true},
		{X: 0.3, Y: 0.3, Valid: true},
	}
	for i, s := range samples {
		if got := c.Feed(s, t0.Add(time.Duration(i)*100*time.Millisecond)); got != OutcomeCollecting {
			t.Fatalf("Feed #%d = %v, want collecting", i, got)
		}
	}
	// Invalid samples are not buffered.
	c.Feed(Sample{X: 9, Y: 9}, t0.Add(500*time.Millisecond))

	if got := c.Feed(Sample{}, t0.Add(2*time.Second)); got != OutcomeCompleted {
		t.Fatalf("closing Feed = %v, want completed", got)
	}
	if !c.Calibrated() || c.Collecting() {
		t.Fatal("expected calibrated and idle")
	}

	off := c.Offset()
	if math.Abs(off.X-0.3) > 1e-12 || math.Abs(off.Y-0.1) > 1e-12 {
		t.Errorf("offset = %+v, want (0.3, 0.1)", off)
	}
}

func TestCalibrator_ApplyYieldsZeroForBaseline(t *testing.T) {
	c := NewCalibrator(time.Second)
	t0 := time.Unix(0, 0)
	s := Sample{X: 0.42, Y: -0.17, Valid: true}

	c.Start(t0)
	for i := 0; i < 10; i++ {
		c.Feed(s, t0.Add(time.Duration(i)*50*time.Millisecond))
	}
	c.Feed(s, t0.Add(time.Second))

	got := c.Apply(s)
	if math.Abs(got.X) > 1e-12 || math.Abs(got.Y) > 1e-12 {
		t.Errorf("Apply(baseline) = %+v, want (0, 0)", got)
	}

	got = c.Apply(Sample{X: -1, Y: 1, Valid: true})
	if got.X != -float64(ExtendedRange) || math.Abs(got.Y-1.17) > 1e-12 {
		t.Errorf("Apply should clamp to the extended range, got %+v", got)
	}
}

func TestCalibrator_EmptyWindowKeepsBaseline(t *testing.T) {
	c := NewCalibrator(time.Second)
	t0 := time.Unix(0, 0)
	base := Sample{X: 0.1, Y: 0.2, Valid: true}

	c.Start(t0)
	c.Feed(base, t0)
	c.Feed(base, t0.Add(time.Second))
	before, wasCalibrated := c.Offset(), c.Calibrated()

	t1 := t0.Add(10 * time.Second)
	c.Start(t1)
	if c.Calibrated() {
		t.Error("calibrated flag should clear while collecting")
	}
	if got := c.Feed(Sample{}, t1.Add(time.Second)); got != OutcomeFailed {
		t.Fatalf("outcome = %v, want failed", got)
	}
	if c.Calibrated() != wasCalibrated || c.Offset() != before {
		t.Errorf("failed attempt changed state: calibrated=%v offset=%+v", c.Calibrated(), c.Offset())
	}
}

func TestCalibrator_EmptyWindowWhenNeverCalibrated(t *testing.T) {
	c := NewCalibrator(time.Second)
	t0 := time.Unix(0, 0)
	c.Start(t0)
	if got := c.Feed(Sample{}, t0.Add(2*time.Second)); got != OutcomeFailed {
		t.Fatalf("outcome = %v, want failed", got)
	}
	if c.Calibrated() || c.Offset() != (Sample{}) {
		t.Error("failed first attempt must leave the zero baseline")
	}
	s := Sample{X: 0.5, Y: 0.5, Valid: true}
	if c.Apply(s) != s {
		t.Error("uncalibrated Apply must pass samples through")
	}
}

func TestCalibrator_RestartWhileCollecting(t *testing.T) {
	c := NewCalibrator(time.Second)
	t0 := time.Unix(0, 0)
	c.Start(t0)
	c.Feed(Sample{X: 1, Y: 1, Valid: true}, t0.Add(100*time.Millisecond))

	t1 := t0.Add(900 * time.Millisecond)
	c.Start(t1)
	if c.Samples() != 0 {
		t.Fatal("restart must clear the buffer")
	}
	// Old window would have closed here; the restarted one is still open.
	if got := c.Feed(Sample{X: 0.2, Y: 0.2, Valid: true}, t0.Add(1500*time.Millisecond)); got != OutcomeCollecting {
		t.Fatalf("outcome = %v, want collecting", got)
	}
	c.Feed(Sample{}, t1.Add(time.Second))
	if off := c.Offset(); math.Abs(off.X-0.2) > 1e-12 {
		t.Errorf("offset = %+v, want only the restarted window's samples", off)
	}
}

func TestCalibrator_IdleFeed(t *testing.T) {
	c := NewCalibrator(0)
	if c.Window != DefaultWindow {
		t.Errorf("Window = %v, want default", c.Window)
	}
	if got := c.Feed(Sample{X: 1, Valid: true}, time.Now()); got != OutcomeIdle {
		t.Errorf("outcome = %v, want idle", got)
	}
}

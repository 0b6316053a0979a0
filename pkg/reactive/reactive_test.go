package reactive

import (
	"math"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		x, y float64
		want Direction
	}{
		{"origin", 0, 0, Center},
		{"inside dead zone", 0.24, -0.24, Center},
		{"one axis at edge", 0.25, 0, Right},
		{"left", -0.6, 0.2, Left},
		{"right", 0.6, -0.5, Right},
		{"up", 0.1, -0.7, Up},
		{"down", -0.3, 0.9, Down},
		{"tie positive", 0.3, 0.3, Down},
		{"tie negative", -0.3, -0.3, Up},
		{"tie mixed", 0.3, -0.3, Up},
		{"tie at full range", -1, 1, Down},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.x, tt.y); got != tt.want {
				t.Errorf("Classify(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestClassify_TieIsStable(t *testing.T) {
	for i := 0; i < 100; i++ {
		if d := Classify(0.3, 0.3); d != Up && d != Down {
			t.Fatalf("tie classified as %v", d)
		}
		if Classify(0.3, 0.3) != Classify(0.3, 0.3) {
			t.Fatal("tie classification not repeatable")
		}
	}
}

func TestDirection_String(t *testing.T) {
	if Left.String() != "left" || Direction(99).String() != "unknown" {
		t.Error("unexpected direction names")
	}
	b, _ := Up.MarshalText()
	if string(b) != "up" {
		t.Errorf("MarshalText = %s", b)
	}
	var d Direction
	if err := d.UnmarshalText([]byte("down")); err != nil || d != Down {
		t.Errorf("UnmarshalText = %v, %v", d, err)
	}
	if err := d.UnmarshalText([]byte("sideways")); err == nil {
		t.Error("expected error for unknown name")
	}
}

func TestDirectionState_ColorEasesToTarget(t *testing.T) {
	p := DefaultPalette()
	s := NewDirectionState(p, DefaultLerpRate)

	if !s.Update(-0.8, 0) {
		t.Fatal("expected a direction change")
	}
	if s.TargetColor() != p.Left {
		t.Fatalf("target = %+v, want %+v", s.TargetColor(), p.Left)
	}
	for i := 1; i < 30; i++ {
		if s.Update(-0.8, 0) {
			t.Fatal("direction should not change while holding left")
		}
	}

	// After 30 frames at rate 0.08 the remaining distance is 0.92^30 (about 8%).
	got := s.Color()
	wantR := float64(p.Base.R) + (float64(p.Left.R)-float64(p.Base.R))*(1-math.Pow(1-DefaultLerpRate, 30))
	if math.Abs(float64(got.R)-wantR) > 1 {
		t.Errorf("R = %d, want about %.1f", got.R, wantR)
	}
}

func TestDirectionState_CenterUsesBase(t *testing.T) {
	p := DefaultPalette()
	s := NewDirectionState(p, 1)
	s.Update(0, -0.9)
	if s.Color() != p.Up {
		t.Fatalf("rate 1 should snap to up color, got %+v", s.Color())
	}
	s.Update(0, 0)
	if s.Current() != Center || s.Color() != p.Base {
		t.Errorf("center should return to base color, got %v %+v", s.Current(), s.Color())
	}

	p.Base = RGB{R: 1, G: 2, B: 3}
	s.SetPalette(p)
	if s.TargetColor() != p.Base {
		t.Errorf("palette change should retarget center, got %+v", s.TargetColor())
	}
}

func TestPulse_KickAndSettle(t *testing.T) {
	p := NewPulse()
	p.Kick(DefaultBoost)

	peak := 1.0
	for i := 0; i < 200; i++ {
		p.Step()
		peak = math.Max(peak, p.Scale)
		if p.Scale < MinScale {
			t.Fatalf("scale %v below floor", p.Scale)
		}
	}
	if peak <= 1.3 {
		t.Errorf("kick should raise the scale noticeably, peak %v", peak)
	}
	if math.Abs(p.Scale-1) > 1e-3 || math.Abs(p.Velocity) > 1e-3 {
		t.Errorf("spring did not settle: %+v", p)
	}
}

func TestPulse_Floor(t *testing.T) {
	p := Pulse{Scale: 1, Velocity: -5}
	p.Step()
	if p.Scale != MinScale {
		t.Errorf("scale = %v, want floor %v", p.Scale, MinScale)
	}
}

func TestPulse_FirstStep(t *testing.T) {
	p := NewPulse()
	p.Kick(0.6)
	p.Step()
	// scale = 1.6; v = (0.6 + (1-1.6)*0.28) * 0.72
	if math.Abs(p.Scale-1.6) > 1e-12 || math.Abs(p.Velocity-(0.6-0.168)*0.72) > 1e-12 {
		t.Errorf("unexpected first step %+v", p)
	}
}

func TestTrail_Bound(t *testing.T) {
	tr := NewTrail(DefaultTrailLength, DefaultSpeedThreshold)
	for i := 0; i < 1000; i++ {
		tr.Step(float64(i%2)*50, float64(i), 10, RGB{})
		if tr.Len() > DefaultTrailLength {
			t.Fatalf("tick %d: trail length %d exceeds %d", i, tr.Len(), DefaultTrailLength)
		}
	}
}

func TestTrail_SmallBoundKeepsNewest(t *testing.T) {
	tr := NewTrail(3, 1)
	for i := 0; i < 10; i++ {
		tr.Step(float64(i)*10, 0, 5, RGB{})
	}
	snap := tr.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("len = %d, want 3", len(snap))
	}
	if snap[2].X != 90 || snap[0].X != 70 {
		t.Errorf("expected the newest particles oldest-first, got %+v", snap)
	}
}

func TestTrail_SlowCursorLeavesNothing(t *testing.T) {
	tr := NewTrail(20, DefaultSpeedThreshold)
	for i := 0; i < 50; i++ {
		tr.Step(100+float64(i), 100, 10, RGB{})
	}
	if tr.Len() != 0 {
		t.Errorf("1px/frame is under the threshold, got %d particles", tr.Len())
	}
}

func TestTrail_DecayAndDrop(t *testing.T) {
	tr := NewTrail(20, 1)
	tr.Step(0, 0, 10, RGB{})
	tr.Step(10, 0, 10, RGB{})
	if tr.Len() != 1 {
		t.Fatalf("len = %d, want 1", tr.Len())
	}

	tr.Step(10, 0, 10, RGB{})
	p := tr.Snapshot()[0]
	if math.Abs(p.Alpha-TrailAlpha*TrailAlphaDecay) > 1e-12 || math.Abs(p.Radius-10*TrailSizeDecay) > 1e-12 {
		t.Errorf("unexpected decay %+v", p)
	}

	for i := 0; i < 20; i++ {
		tr.Step(10, 0, 10, RGB{})
	}
	if tr.Len() != 0 {
		t.Errorf("faded particles should be dropped, %d left", tr.Len())
	}
}

func TestTrail_SnapshotIsCopy(t *testing.T) {
	tr := NewTrail(5, 1)
	tr.Step(0, 0, 1, RGB{})
	tr.Step(10, 0, 1, RGB{})
	snap := tr.Snapshot()
	snap[0].X = -1
	if tr.Snapshot()[0].X == -1 {
		t.Error("snapshot aliases trail storage")
	}
}

func TestShockwaves_Lifecycle(t *testing.T) {
	s := NewShockwaves(true, DefaultShockwaveScale)
	s.Spawn(50, 60, 20, RGB{R: 1})
	w := s.Snapshot()[0]
	if w.Radius != 0 || w.MaxRadius != 70 || w.Alpha != ShockwaveAlpha {
		t.Fatalf("unexpected spawn %+v", w)
	}

	s.Step()
	w = s.Snapshot()[0]
	if math.Abs(w.Radius-70*ShockwaveGrowth) > 1e-12 || math.Abs(w.Alpha-ShockwaveAlpha*ShockwaveFade) > 1e-12 {
		t.Errorf("unexpected step %+v", w)
	}

	for i := 0; i < 40; i++ {
		s.Step()
	}
	if s.Len() != 0 {
		t.Errorf("wave should be removed once faded, %d left", s.Len())
	}
}

func TestShockwaves_Disabled(t *testing.T) {
	s := NewShockwaves(false, DefaultShockwaveScale)
	s.Spawn(0, 0, 10, RGB{})
	if s.Len() != 0 {
		t.Error("disabled set should not spawn")
	}
}

func TestDepthOutputs(t *testing.T) {
	if got := RadiusMultiplier(0.5, 40); math.Abs(got-1.2) > 1e-12 {
		t.Errorf("RadiusMultiplier = %v", got)
	}
	if got := BlurStrength(1, 10); math.Abs(got-10) > 1e-12 {
		t.Errorf("BlurStrength(1) = %v", got)
	}
	if got := BlurStrength(0, 10); math.Abs(got-2) > 1e-12 {
		t.Errorf("BlurStrength(0) = %v", got)
	}
}

func TestMachine_BlinkDrivesPulseAndShockwave(t *testing.T) {
	m := NewMachine(DefaultParams())

	st := m.Step(Input{X: 100, Y: 100, BallRadius: 20, Z: 1, Blink: true})
	if st.PulseScale <= 1 {
		t.Errorf("blink should raise pulse scale, got %v", st.PulseScale)
	}
	if len(st.Shockwaves) != 1 {
		t.Fatalf("expected one shockwave, got %d", len(st.Shockwaves))
	}
	if st.Shockwaves[0].Radius != 0 {
		t.Error("new shockwave should start at radius 0")
	}
	if math.Abs(st.RadiusMultiplier-1.35) > 1e-12 {
		t.Errorf("RadiusMultiplier = %v", st.RadiusMultiplier)
	}

	st = m.Step(Input{X: 100, Y: 100, BallRadius: 20, Z: 1})
	if len(st.Shockwaves) != 1 || st.Shockwaves[0].Radius == 0 {
		t.Error("shockwave should grow on the following frame")
	}
}

func TestMachine_SetParamsKeepsState(t *testing.T) {
	m := NewMachine(DefaultParams())
	m.Step(Input{X: 0, Y: 0, BallRadius: 10})
	m.Step(Input{X: 50, Y: 0, BallRadius: 10, Blink: true})

	p := DefaultParams()
	p.TrailMaxLength = 0
	m.SetParams(p)

	st := m.Step(Input{X: 100, Y: 0, BallRadius: 10})
	if len(st.Trail) != 0 {
		t.Errorf("zero trail bound should empty the trail, got %d", len(st.Trail))
	}
	if len(st.Shockwaves) != 1 {
		t.Error("param change must not clear shockwaves")
	}
	if m.Pulse().Scale == 1 {
		t.Error("param change must not reset the pulse")
	}
}

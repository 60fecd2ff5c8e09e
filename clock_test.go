package timing

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestNewClockDefaults tests the initial state of a fresh clock.
func TestNewClockDefaults(t *testing.T) {
	c := New()
	if c.State() != StateStopped {
		t.Errorf("State = %v, want stopped", c.State())
	}
	if c.Now() != 0 {
		t.Errorf("Now = %g, want 0", c.Now())
	}
	if c.Frame() != 0 {
		t.Errorf("Frame = %d, want 0", c.Frame())
	}
	if got := c.TargetFrameRate(); got != DefaultTargetFrameRate {
		t.Errorf("TargetFrameRate = %g, want %g", got, DefaultTargetFrameRate)
	}
}

// TestStartIdempotent tests that a second Start is a no-op.
func TestStartIdempotent(t *testing.T) {
	c := New(WithTargetFrameRate(100))
	ctx := context.Background()
	c.Start(ctx)
	defer c.Stop()

	time.Sleep(50 * time.Millisecond)
	frameBefore := c.Frame()
	c.Start(ctx) // must not reset anything or spawn a second loop
	if c.State() != StateRunning {
		t.Errorf("State = %v, want running", c.State())
	}
	if c.Frame() < frameBefore {
		t.Errorf("Frame went backwards: %d -> %d", frameBefore, c.Frame())
	}
}

// TestResumeWithoutPause tests that Resume outside Paused is a no-op.
func TestResumeWithoutPause(t *testing.T) {
	c := New()
	c.Resume()
	if c.State() != StateStopped {
		t.Errorf("State = %v, want stopped", c.State())
	}
	c.Start(context.Background())
	defer c.Stop()
	c.Resume()
	if c.State() != StateRunning {
		t.Errorf("State = %v, want running", c.State())
	}
}

// TestSetTargetFrameRateRejectsNonPositive tests the configuration error
// path and that the clock is unchanged.
func TestSetTargetFrameRateRejectsNonPositive(t *testing.T) {
	c := New(WithTargetFrameRate(60))
	for _, hz := range []float64{0, -1, -60} {
		err := c.SetTargetFrameRate(hz)
		if err == nil {
			t.Errorf("SetTargetFrameRate(%g) accepted", hz)
			continue
		}
		var cerr *ConfigurationError
		if !errors.As(err, &cerr) {
			t.Errorf("SetTargetFrameRate(%g) error %T, want *ConfigurationError", hz, err)
		}
	}
	if got := c.TargetFrameRate(); got != 60 {
		t.Errorf("TargetFrameRate changed to %g after rejected calls", got)
	}
}

// TestMonotonicWhileRunning tests that master time never decreases.
func TestMonotonicWhileRunning(t *testing.T) {
	c := New(WithTargetFrameRate(200))
	c.Start(context.Background())
	defer c.Stop()

	prev := c.Now()
	for i := 0; i < 100; i++ {
		now := c.Now()
		if now < prev {
			t.Fatalf("Now decreased: %g -> %g", prev, now)
		}
		prev = now
		time.Sleep(time.Millisecond)
	}
}

// TestFrameRateScenario tests that a 60 Hz clock ticks ~60 times in one
// second of wall clock.
func TestFrameRateScenario(t *testing.T) {
	c := New(WithTargetFrameRate(60))
	c.Start(context.Background())
	defer c.Stop()

	time.Sleep(time.Second)
	frames := c.Frame()
	if frames < 45 || frames > 75 {
		t.Errorf("Frame after 1s at 60Hz = %d, want ~60", frames)
	}
}

// TestPauseFreezesTimeAndFrames tests that master time and the frame
// counter hold still while paused.
func TestPauseFreezesTimeAndFrames(t *testing.T) {
	c := New(WithTargetFrameRate(100))
	c.Start(context.Background())
	defer c.Stop()

	time.Sleep(50 * time.Millisecond)
	c.Pause()
	if c.State() != StatePaused {
		t.Fatalf("State = %v, want paused", c.State())
	}
	// Let an in-flight tick, if any, finish before sampling.
	time.Sleep(20 * time.Millisecond)
	tPause := c.Now()
	fPause := c.Frame()
	time.Sleep(100 * time.Millisecond)
	if c.Now() != tPause {
		t.Errorf("Now advanced while paused: %g -> %g", tPause, c.Now())
	}
	if c.Frame() != fPause {
		t.Errorf("Frame advanced while paused: %d -> %d", fPause, c.Frame())
	}
}

// TestResumeExcludesPausedSpan tests that the paused wall-clock span is
// excluded from master time and tracked by PausedDuration.
func TestResumeExcludesPausedSpan(t *testing.T) {
	c := New(WithTargetFrameRate(100))
	c.Start(context.Background())
	defer c.Stop()

	time.Sleep(50 * time.Millisecond)
	c.Pause()
	tPause := c.Now()
	time.Sleep(120 * time.Millisecond)
	c.Resume()

	// Immediately after resume, master time continues from the pause
	// point, not from pause point + paused span.
	if jump := c.Now() - tPause; jump > 0.05 {
		t.Errorf("master time jumped %gs across a pause", jump)
	}
	if pd := c.PausedDuration(); pd < 100*time.Millisecond {
		t.Errorf("PausedDuration = %v, want >= 100ms", pd)
	}
}

// TestStopRetainsTimeByDefault tests the documented stop policy: time and
// frames persist across Stop/Start.
func TestStopRetainsTimeByDefault(t *testing.T) {
	c := New(WithTargetFrameRate(100))
	c.Start(context.Background())
	time.Sleep(60 * time.Millisecond)
	c.Stop()

	tStop := c.Now()
	fStop := c.Frame()
	if tStop <= 0 || fStop == 0 {
		t.Fatalf("expected progress before stop, got t=%g f=%d", tStop, fStop)
	}
	time.Sleep(30 * time.Millisecond)
	if c.Now() != tStop {
		t.Errorf("Now advanced while stopped: %g -> %g", tStop, c.Now())
	}

	c.Start(context.Background())
	defer c.Stop()
	if c.Now() < tStop {
		t.Errorf("Now = %g after restart, want >= %g", c.Now(), tStop)
	}
	if c.Frame() < fStop {
		t.Errorf("Frame = %d after restart, want >= %d", c.Frame(), fStop)
	}
}

// TestResetOnStopPolicy tests the opt-in reset policy.
func TestResetOnStopPolicy(t *testing.T) {
	c := New(WithTargetFrameRate(100), WithResetOnStop())
	c.Start(context.Background())
	time.Sleep(60 * time.Millisecond)
	c.Stop()
	if c.Frame() == 0 {
		t.Fatal("expected ticks before stop")
	}
	// Old values stay readable until the next Start performs the reset.
	if c.Now() <= 0 {
		t.Errorf("Now = %g between Stop and Start, want retained value", c.Now())
	}

	c.Start(context.Background())
	defer c.Stop()
	// Shortly after the restart both counters must have restarted near
	// zero.
	if c.Now() > 0.05 {
		t.Errorf("Now = %g after reset restart, want ~0", c.Now())
	}
}

// TestCompensatedTimeNeverExceedsMaster tests that non-predictive
// strategies never place compensated time ahead of master time under
// live sampling.
func TestCompensatedTimeNeverExceedsMaster(t *testing.T) {
	c := New(WithTargetFrameRate(200),
		WithStrategy(SubsystemAudio, Adaptive{Decay: 0.2}),
		WithStrategy(SubsystemInput, Immediate{}),
	)
	audio := c.Subsystem(SubsystemAudio)
	c.Start(context.Background())
	defer c.Stop()

	for i := 0; i < 20; i++ {
		audio.Measure(func() { time.Sleep(time.Millisecond) })
		for _, s := range []Subsystem{SubsystemAudio, SubsystemInput, SubsystemRendering} {
			if comp, master := c.CompensatedTime(s), c.Now(); comp > master {
				t.Fatalf("compensated %g > master %g for %s", comp, master, s)
			}
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// TestImmediateCompensatedEqualsMaster tests that an Immediate subsystem
// reads master time exactly (modulo read skew).
func TestImmediateCompensatedEqualsMaster(t *testing.T) {
	c := New(WithStrategy(SubsystemInput, Immediate{}))
	input := c.Subsystem(SubsystemInput)
	input.Measure(func() { time.Sleep(2 * time.Millisecond) })
	c.Start(context.Background())
	defer c.Stop()
	time.Sleep(50 * time.Millisecond)

	master := c.Now()
	comp := input.Time()
	if diff := master - comp; diff < -0.001 || diff > 0.01 {
		t.Errorf("immediate compensation shifted time by %gs", diff)
	}
}

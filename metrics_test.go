package timing

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

// TestMetricsInvariants tests the aggregate invariants after a run of
// live ticks: max ≥ mean, variance ≥ 0, frames and time accounted.
func TestMetricsInvariants(t *testing.T) {
	c := New(WithTargetFrameRate(100))
	c.Start(context.Background())
	time.Sleep(200 * time.Millisecond)
	c.Stop()

	m := c.Metrics()
	if m.TotalFrames == 0 {
		t.Fatal("no frames recorded")
	}
	if m.MaxFrameTime < m.AverageFrameTime {
		t.Errorf("MaxFrameTime %g < AverageFrameTime %g", m.MaxFrameTime, m.AverageFrameTime)
	}
	if m.FrameTimeVariance < 0 {
		t.Errorf("FrameTimeVariance = %g, want >= 0", m.FrameTimeVariance)
	}
	if m.TotalTime <= 0 {
		t.Errorf("TotalTime = %g, want > 0", m.TotalTime)
	}
	if m.AverageFrameTime <= 0 {
		t.Errorf("AverageFrameTime = %g, want > 0", m.AverageFrameTime)
	}
}

// TestMetricsSnapshotIsDetached tests that the returned snapshot is a
// value copy, not a live view.
func TestMetricsSnapshotIsDetached(t *testing.T) {
	c := New(WithTargetFrameRate(100))
	c.Start(context.Background())
	defer c.Stop()

	time.Sleep(60 * time.Millisecond)
	first := c.Metrics()
	frames := first.TotalFrames
	time.Sleep(60 * time.Millisecond)
	if first.TotalFrames != frames {
		t.Error("snapshot mutated after later ticks")
	}
	if c.Metrics().TotalFrames <= frames {
		t.Error("later snapshot shows no additional frames")
	}
}

// TestAggregatorDriftNudge tests the drift servo directly: sustained
// drift beyond the threshold produces a bounded interval adjustment in
// the converging direction, and convergence clears it.
func TestAggregatorDriftNudge(t *testing.T) {
	logger := slog.Default()
	a := newAggregator(0.050, 10*time.Millisecond, 0.02, logger)
	a.markStart(0)

	const target = 0.010
	// Ticks report 10ms deltas while master time races ahead twice as
	// fast: totalTime falls behind, drift grows.
	master := 0.0
	for i := 0; i < 6; i++ {
		master += 0.020
		a.observe(0.010, master)
	}
	// Drift is now past the threshold; let the observation window elapse
	// before the next tick so the servo engages.
	time.Sleep(15 * time.Millisecond)
	master += 0.020
	a.observe(0.010, master)

	adjusted := a.adjustInterval(target)
	if adjusted >= target {
		t.Errorf("adjusted interval %g, want < target %g (behind master)", adjusted, target)
	}
	if adjusted < target*(1-0.02)-1e-12 {
		t.Errorf("adjusted interval %g exceeds the ±2%% bound", adjusted)
	}

	// Converge: one observation with matching totals clears the nudge.
	a.observe(master-a.snapshot(0).TotalTime, master)
	if got := a.adjustInterval(target); got != target {
		t.Errorf("interval after convergence = %g, want %g", got, target)
	}
}

// TestAggregatorAheadNudgesSlower tests the opposite correction
// direction.
func TestAggregatorAheadNudgesSlower(t *testing.T) {
	a := newAggregator(0.050, time.Millisecond, 0.02, slog.Default())
	a.markStart(0)

	const target = 0.010
	master := 0.0
	// totalTime races ahead of master time.
	for i := 0; i < 5; i++ {
		master += 0.010
		a.observe(0.030, master)
	}
	time.Sleep(5 * time.Millisecond)
	master += 0.010
	a.observe(0.030, master)

	if adjusted := a.adjustInterval(target); adjusted <= target {
		t.Errorf("adjusted interval %g, want > target %g (ahead of master)", adjusted, target)
	}
}

// TestDriftSmallInSteadyState tests that an undisturbed run keeps drift
// well under the default threshold.
func TestDriftSmallInSteadyState(t *testing.T) {
	c := New(WithTargetFrameRate(100))
	c.Start(context.Background())
	time.Sleep(300 * time.Millisecond)
	c.Stop()

	if m := c.Metrics(); m.TimingDrift > 0.050 {
		t.Errorf("TimingDrift = %gs in steady state", m.TimingDrift)
	}
}

package timing

import (
	"log/slog"
	"sync"
	"time"

	"github.com/halcyon-engine/timing/internal/ring"
)

// LatencyTracker measures per-subsystem processing latency and converts the
// sample history into a compensation estimate using the subsystem's
// selected Strategy.
//
// Sample submission and strategy changes are safe from any goroutine.
// Histories are never cleared, only capacity-evicted; they survive clock
// Stop/Start cycles.
type LatencyTracker struct {
	mu         sync.Mutex
	rings      map[Subsystem]*ring.Buffer[LatencySample]
	strategies map[Subsystem]Strategy

	capacity int
	now      func() float64 // master time source
	interval func() float64 // current target tick interval
	logger   *slog.Logger
}

// LatencyStats is a snapshot of one subsystem's sample history.
type LatencyStats struct {
	Count int
	Last  float64
	Mean  float64
	Min   float64
	Max   float64
}

func newLatencyTracker(capacity int, now, interval func() float64, logger *slog.Logger) *LatencyTracker {
	return &LatencyTracker{
		rings:      make(map[Subsystem]*ring.Buffer[LatencySample]),
		strategies: make(map[Subsystem]Strategy),
		capacity:   capacity,
		now:        now,
		interval:   interval,
		logger:     logger,
	}
}

// Measure times op and records a latency sample for the subsystem. It may
// be called from any goroutine; op runs synchronously outside the
// tracker's lock.
//
// The work is timed on the wall clock and the sample is anchored at the
// current master time, so the measured latency stays truthful even while
// the clock is paused or stopped and master time is frozen.
func (t *LatencyTracker) Measure(s Subsystem, op func()) {
	expected := t.now()
	start := time.Now()
	op()
	elapsed := time.Since(start).Seconds()
	t.Record(LatencySample{Subsystem: s, Expected: expected, Measured: expected + elapsed})
}

// Record appends an already-timed sample to the subsystem's history,
// evicting the oldest sample when the ring is full.
func (t *LatencyTracker) Record(sample LatencySample) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ringLocked(sample.Subsystem).Push(sample)
}

// CurrentLatency applies the subsystem's strategy to its history and
// returns the estimated latency in seconds. Subsystems without an explicit
// strategy default to Reactive.
func (t *LatencyTracker) CurrentLatency(s Subsystem) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.estimateLocked(s)
}

// SetStrategy selects the compensation strategy for a subsystem. Safe at
// runtime; the new strategy is used from the next estimate on.
func (t *LatencyTracker) SetStrategy(s Subsystem, strategy Strategy) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.strategies[s] = strategy
	t.logger.Debug("timing: compensation strategy changed",
		"subsystem", string(s), "strategy", strategy.Name())
}

// Strategy returns the subsystem's active strategy (Reactive if none was
// set).
func (t *LatencyTracker) Strategy(s Subsystem) Strategy {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.strategies[s]; ok {
		return st
	}
	return Reactive{}
}

// Calibrate seeds every known subsystem's history with a short burst of
// self-timed no-op measurements, so strategies that need history do not
// report a cold-start compensation of exactly 0. Subsystems become known
// by having a strategy set or a sample recorded; the four built-in tags
// are always included.
func (t *LatencyTracker) Calibrate(burst int) {
	if burst <= 0 {
		burst = DefaultCalibrationBurst
	}
	for _, s := range t.subsystems() {
		for i := 0; i < burst; i++ {
			t.Measure(s, func() {})
		}
	}
	t.logger.Info("timing: calibration complete", "burst", burst)
}

// Stats returns a snapshot of the subsystem's history. Mirrors the
// estimate path but reports raw sample latencies, uncompensated.
func (t *LatencyTracker) Stats(s Subsystem) LatencyStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.rings[s]
	if !ok || r.Len() == 0 {
		return LatencyStats{}
	}
	var st LatencyStats
	st.Count = r.Len()
	for i := 0; i < r.Len(); i++ {
		lat := r.At(i).Latency()
		if i == 0 || lat < st.Min {
			st.Min = lat
		}
		if lat > st.Max {
			st.Max = lat
		}
		st.Mean += lat
	}
	st.Mean /= float64(st.Count)
	last, _ := r.Last()
	st.Last = last.Latency()
	return st
}

// snapshot builds one consistent compensation table covering every known
// subsystem. The dispatcher calls it once per tick; writes that land after
// the snapshot is taken become visible at the next tick.
func (t *LatencyTracker) snapshot() map[Subsystem]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	comp := make(map[Subsystem]float64, len(t.rings)+len(t.strategies))
	for s := range t.rings {
		comp[s] = t.estimateLocked(s)
	}
	for s := range t.strategies {
		if _, ok := comp[s]; !ok {
			comp[s] = t.estimateLocked(s)
		}
	}
	return comp
}

func (t *LatencyTracker) estimateLocked(s Subsystem) float64 {
	strategy, ok := t.strategies[s]
	if !ok {
		strategy = Reactive{}
	}
	var history []LatencySample
	if r, ok := t.rings[s]; ok {
		history = r.Snapshot()
	}
	return strategy.Estimate(history, t.interval())
}

func (t *LatencyTracker) ringLocked(s Subsystem) *ring.Buffer[LatencySample] {
	r, ok := t.rings[s]
	if !ok {
		r = ring.New[LatencySample](t.capacity)
		t.rings[s] = r
	}
	return r
}

func (t *LatencyTracker) subsystems() []Subsystem {
	t.mu.Lock()
	defer t.mu.Unlock()
	seen := map[Subsystem]bool{
		SubsystemRendering: true,
		SubsystemAudio:     true,
		SubsystemInput:     true,
		SubsystemPhysics:   true,
	}
	out := []Subsystem{SubsystemRendering, SubsystemAudio, SubsystemInput, SubsystemPhysics}
	for s := range t.rings {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for s := range t.strategies {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

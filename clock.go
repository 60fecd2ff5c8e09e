package timing

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Clock is the canonical monotonic time source shared by every subsystem.
// It owns the latency tracker, the tick dispatcher and the metrics
// aggregator, which share its lifetime.
//
// Construct exactly one Clock per engine and hand it (or per-subsystem
// views from Subsystem) to collaborators; there is no package-level
// instance.
type Clock struct {
	mu    sync.Mutex
	state atomic.Int32
	// ref is the published time reference; Now reads it without locking.
	ref   atomic.Pointer[timeRef]
	frame atomic.Uint64
	// intervalBits holds the target tick interval (seconds) as float bits.
	intervalBits atomic.Uint64
	// snap is the per-tick compensation snapshot, published by the
	// dispatcher at each tick boundary.
	snap atomic.Pointer[compSnapshot]

	pausedAccum time.Duration
	pausedAt    time.Time
	resetOnStop bool

	calibrationBurst int

	tracker    *LatencyTracker
	dispatcher *dispatcher
	metrics    *aggregator
	logger     *slog.Logger
}

// timeRef is an immutable time base. While running, master time is
// base + wall time since startedAt; otherwise it is frozen at base.
type timeRef struct {
	base      float64
	startedAt time.Time
	running   bool
}

// compSnapshot is the immutable per-tick compensation table.
type compSnapshot struct {
	comp map[Subsystem]float64
}

// New creates a stopped Clock at master time 0, frame 0.
func New(opts ...Option) *Clock {
	c := &Clock{logger: slog.Default()}
	c.ref.Store(&timeRef{})
	c.snap.Store(&compSnapshot{comp: map[Subsystem]float64{}})
	c.setInterval(1 / DefaultTargetFrameRate)

	cfg := options{
		sampleCapacity:   DefaultSampleCapacity,
		calibrationBurst: DefaultCalibrationBurst,
		driftThreshold:   DefaultDriftThreshold.Seconds(),
		driftWindow:      DefaultDriftWindow,
		nudgeBound:       DefaultNudgeBound,
	}
	for _, opt := range opts {
		opt(c, &cfg)
	}
	c.calibrationBurst = cfg.calibrationBurst

	c.tracker = newLatencyTracker(cfg.sampleCapacity, c.Now, c.targetInterval, c.logger)
	c.metrics = newAggregator(cfg.driftThreshold, cfg.driftWindow, cfg.nudgeBound, c.logger)
	c.dispatcher = newDispatcher(c)
	for s, strategy := range cfg.strategies {
		c.tracker.SetStrategy(s, strategy)
	}
	return c
}

// State returns the current lifecycle state.
func (c *Clock) State() ClockState {
	return ClockState(c.state.Load())
}

// Now returns the master time in seconds since the clock was constructed
// (or since the last Start under the reset-on-stop policy). Monotonic and
// non-negative; frozen while paused or stopped. Lock-free, safe from any
// goroutine.
func (c *Clock) Now() float64 {
	ref := c.ref.Load()
	if !ref.running {
		return ref.base
	}
	return ref.base + time.Since(ref.startedAt).Seconds()
}

// Frame returns the number of ticks dispatched so far. It increases by
// exactly one per tick while running and is frozen otherwise.
func (c *Clock) Frame() uint64 {
	return c.frame.Load()
}

// SetTargetFrameRate sets the desired tick rate in Hz. The dispatcher
// picks up the new interval at the next tick. Rates ≤ 0 (or non-finite)
// are rejected with a *ConfigurationError and leave the clock unchanged.
func (c *Clock) SetTargetFrameRate(hz float64) error {
	if hz <= 0 || math.IsInf(hz, 0) || math.IsNaN(hz) {
		return errConfig("target frame rate", hz, "must be a positive, finite Hz value")
	}
	c.setInterval(1 / hz)
	return nil
}

// TargetFrameRate returns the configured tick rate in Hz.
func (c *Clock) TargetFrameRate() float64 {
	return 1 / c.targetInterval()
}

// Start transitions Stopped→Running and launches the tick loop. Calling
// Start while already running (or paused) is an intentional no-op, not an
// error. The supplied context bounds the tick loop: cancelling it stops
// the clock.
func (c *Clock) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() != StateStopped {
		c.logger.Debug("timing: redundant start ignored", "state", c.State().String())
		return
	}
	base := c.Now()
	if c.resetOnStop {
		base = 0
		c.frame.Store(0)
		c.metrics.reset()
	}
	c.pausedAccum = 0
	c.ref.Store(&timeRef{base: base, startedAt: time.Now(), running: true})
	c.state.Store(int32(StateRunning))
	c.metrics.markStart(base)
	c.dispatcher.start(ctx, base)
	c.logger.Info("timing: clock started",
		"rate_hz", c.TargetFrameRate(), "base_s", base, "frame", c.Frame())
}

// Stop transitions to Stopped and halts the tick loop. The pending tick is
// cancelled; an in-flight dispatch is allowed to finish before Stop
// returns. Master time and the frame counter are retained for the next
// Start unless the clock was built with WithResetOnStop. Stopping a
// stopped clock is a no-op.
func (c *Clock) Stop() {
	c.mu.Lock()
	if c.State() == StateStopped {
		c.mu.Unlock()
		return
	}
	frozen := c.Now()
	if c.State() == StatePaused {
		c.pausedAccum += time.Since(c.pausedAt)
	}
	c.ref.Store(&timeRef{base: frozen})
	c.state.Store(int32(StateStopped))
	c.mu.Unlock()

	// Join outside the lock so an in-flight tick can finish.
	c.dispatcher.stop()
	c.logger.Info("timing: clock stopped", "master_s", frozen, "frame", c.Frame())
}

// Pause freezes master time and suspends callback dispatch. No-op unless
// running.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() != StateRunning {
		c.logger.Debug("timing: pause ignored", "state", c.State().String())
		return
	}
	frozen := c.Now()
	c.pausedAt = time.Now()
	c.ref.Store(&timeRef{base: frozen})
	c.state.Store(int32(StatePaused))
	c.logger.Info("timing: clock paused", "master_s", frozen)
}

// Resume continues a paused clock. The wall-clock span spent paused is
// excluded from master time, and the first post-resume tick reports one
// target interval of delta rather than the paused span; ticks missed while
// paused are not replayed. Resume on a clock that is not paused is a
// no-op.
func (c *Clock) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() != StatePaused {
		c.logger.Debug("timing: resume ignored", "state", c.State().String())
		return
	}
	paused := time.Since(c.pausedAt)
	c.pausedAccum += paused
	ref := c.ref.Load()
	c.ref.Store(&timeRef{base: ref.base, startedAt: time.Now(), running: true})
	c.state.Store(int32(StateRunning))
	c.dispatcher.noteResume(ref.base)
	c.logger.Info("timing: clock resumed", "paused_s", paused.Seconds())
}

// PausedDuration returns the total wall-clock time this clock has spent
// paused since the last Start.
func (c *Clock) PausedDuration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.pausedAccum
	if c.State() == StatePaused {
		d += time.Since(c.pausedAt)
	}
	return d
}

// CompensatedTime returns master time minus the subsystem's compensation
// as of the last tick boundary. Lock-free snapshot read; safe from any
// subsystem thread. For subsystems with no samples or an Immediate
// strategy this equals Now.
func (c *Clock) CompensatedTime(s Subsystem) float64 {
	return c.Now() - c.snap.Load().comp[s]
}

// Subsystem returns a read-mostly view scoped to one subsystem.
func (c *Clock) Subsystem(s Subsystem) *SubsystemClock {
	return &SubsystemClock{clock: c, subsystem: s}
}

// Tracker exposes the latency tracker for sample submission and strategy
// control.
func (c *Clock) Tracker() *LatencyTracker {
	return c.tracker
}

// SetStrategy selects the compensation strategy for a subsystem.
func (c *Clock) SetStrategy(s Subsystem, strategy Strategy) {
	c.tracker.SetStrategy(s, strategy)
}

// Calibrate seeds every known subsystem's sample history with a burst of
// self-timed no-ops. Call before Start so history-hungry strategies do not
// begin from an empty window.
func (c *Clock) Calibrate() {
	c.tracker.Calibrate(c.calibrationBurst)
}

// Metrics returns an immutable snapshot of the aggregated tick statistics.
func (c *Clock) Metrics() PerformanceMetrics {
	return c.metrics.snapshot(c.frame.Load())
}

// AddTimingCallback registers a subsystem-scoped callback invoked once per
// tick with that subsystem's compensated time and the tick delta.
// Registries are append-only and survive Stop/Start cycles.
func (c *Clock) AddTimingCallback(s Subsystem, cb TimingCallback) CallbackID {
	return c.dispatcher.addCallback(s, false, cb)
}

// AddGlobalTimingCallback registers a callback invoked once per tick with
// the master time and the tick delta, after all subsystem-scoped callbacks
// for that tick have run.
func (c *Clock) AddGlobalTimingCallback(cb TimingCallback) CallbackID {
	return c.dispatcher.addCallback("", true, cb)
}

func (c *Clock) targetInterval() float64 {
	return math.Float64frombits(c.intervalBits.Load())
}

func (c *Clock) setInterval(seconds float64) {
	c.intervalBits.Store(math.Float64bits(seconds))
}

// publishSnapshot installs the tick's compensation table for lock-free
// reads by CompensatedTime.
func (c *Clock) publishSnapshot(comp map[Subsystem]float64) {
	c.snap.Store(&compSnapshot{comp: comp})
}

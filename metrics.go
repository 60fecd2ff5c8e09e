package timing

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/halcyon-engine/timing/internal/stats"
)

// PerformanceMetrics is an immutable snapshot of aggregated tick
// statistics. All durations are in seconds.
type PerformanceMetrics struct {
	TotalFrames       uint64
	TotalTime         float64
	AverageFrameTime  float64
	FrameTimeVariance float64
	MaxFrameTime      float64
	// TimingDrift is the absolute divergence between master time elapsed
	// since Start and the sum of dispatched tick deltas.
	TimingDrift float64
}

// aggregator folds one observation per tick into running statistics and
// runs the drift correction servo: sustained drift beyond the threshold
// logs a synchronization warning and nudges the effective tick interval by
// a bounded fraction until drift converges, rather than snapping master
// time.
type aggregator struct {
	mu        sync.Mutex
	frameTime stats.Welford
	totalTime float64
	// Drift is measured per run segment: master time and dispatched time
	// accumulated since the last Start.
	startBase float64
	baseTotal float64
	drift     float64

	threshold  float64 // seconds of drift tolerated
	window     time.Duration
	nudgeBound float64

	nudge      float64 // current fractional interval adjustment
	driftSince time.Time
	warned     bool

	logger *slog.Logger
}

func newAggregator(threshold float64, window time.Duration, nudgeBound float64, logger *slog.Logger) *aggregator {
	return &aggregator{
		threshold:  threshold,
		window:     window,
		nudgeBound: nudgeBound,
		logger:     logger,
	}
}

// markStart records the master time base at Start, the origin for drift
// measurement.
func (a *aggregator) markStart(base float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.startBase = base
	a.baseTotal = a.totalTime
	a.driftSince = time.Time{}
	a.warned = false
	a.nudge = 0
}

// reset clears accumulated statistics (reset-on-stop policy only).
func (a *aggregator) reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frameTime = stats.Welford{}
	a.totalTime = 0
	a.baseTotal = 0
	a.drift = 0
	a.nudge = 0
	a.driftSince = time.Time{}
	a.warned = false
}

// observe folds one tick into the statistics. Called exactly once per
// tick, after dispatch, from the tick goroutine.
func (a *aggregator) observe(delta, masterNow float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalTime += delta
	a.frameTime.Add(delta)

	elapsed := masterNow - a.startBase
	dispatched := a.totalTime - a.baseTotal
	a.drift = math.Abs(elapsed - dispatched)

	if a.drift <= a.threshold {
		// Converged: relax any correction and re-arm the warning.
		a.driftSince = time.Time{}
		if a.warned {
			a.logger.Info("timing: drift converged", "drift_s", a.drift)
			a.warned = false
		}
		a.nudge = 0
		return
	}

	if a.driftSince.IsZero() {
		a.driftSince = time.Now()
		return
	}
	if time.Since(a.driftSince) < a.window {
		return
	}
	if !a.warned {
		// SynchronizationWarning: logged, not fatal.
		a.logger.Warn("timing: synchronization drift exceeds threshold",
			"drift_s", a.drift, "threshold_s", a.threshold,
			"window", a.window.String())
		a.warned = true
	}
	// Behind the master clock: tick faster. Ahead: tick slower. Bounded
	// so consumers never see a discontinuity.
	if dispatched < elapsed {
		a.nudge = -a.nudgeBound
	} else {
		a.nudge = a.nudgeBound
	}
}

// adjustInterval applies the current drift nudge to the target interval.
func (a *aggregator) adjustInterval(target float64) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return target * (1 + a.nudge)
}

// snapshot returns the immutable metrics view. totalFrames is supplied by
// the clock's frame counter so the two stay in lockstep.
func (a *aggregator) snapshot(totalFrames uint64) PerformanceMetrics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return PerformanceMetrics{
		TotalFrames:       totalFrames,
		TotalTime:         a.totalTime,
		AverageFrameTime:  a.frameTime.Mean(),
		FrameTimeVariance: a.frameTime.Variance(),
		MaxFrameTime:      a.frameTime.Max(),
		TimingDrift:       a.drift,
	}
}

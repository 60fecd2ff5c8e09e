package timing

import (
	"log/slog"
	"time"
)

// Option applies configuration to a Clock via the functional options
// pattern.
type Option func(*Clock, *options)

type options struct {
	sampleCapacity   int
	calibrationBurst int
	driftThreshold   float64 // seconds
	driftWindow      time.Duration
	nudgeBound       float64
	strategies       map[Subsystem]Strategy
}

// WithTargetFrameRate sets the initial tick rate in Hz. Non-positive
// values are ignored in favor of the default; use SetTargetFrameRate for
// validated runtime changes.
func WithTargetFrameRate(hz float64) Option {
	return func(c *Clock, _ *options) {
		if hz > 0 {
			c.setInterval(1 / hz)
		}
	}
}

// WithLogger configures the Clock with a structured logger. Defaults to
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Clock, _ *options) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSampleCapacity sets the per-subsystem latency ring capacity.
func WithSampleCapacity(n int) Option {
	return func(_ *Clock, o *options) {
		if n > 0 {
			o.sampleCapacity = n
		}
	}
}

// WithCalibrationBurst sets how many no-op measurements Calibrate records
// per subsystem.
func WithCalibrationBurst(n int) Option {
	return func(_ *Clock, o *options) {
		if n > 0 {
			o.calibrationBurst = n
		}
	}
}

// WithDriftThreshold configures the drift correction servo: drift beyond
// threshold sustained for window triggers a synchronization warning and a
// bounded interval nudge.
func WithDriftThreshold(threshold time.Duration, window time.Duration) Option {
	return func(_ *Clock, o *options) {
		if threshold > 0 {
			o.driftThreshold = threshold.Seconds()
		}
		if window > 0 {
			o.driftWindow = window
		}
	}
}

// WithNudgeBound caps the fractional tick-interval adjustment applied per
// tick while correcting drift (default 0.02, i.e. ±2%).
func WithNudgeBound(fraction float64) Option {
	return func(_ *Clock, o *options) {
		if fraction > 0 && fraction < 1 {
			o.nudgeBound = fraction
		}
	}
}

// WithStrategy preselects a subsystem's compensation strategy.
func WithStrategy(s Subsystem, strategy Strategy) Option {
	return func(_ *Clock, o *options) {
		if o.strategies == nil {
			o.strategies = make(map[Subsystem]Strategy)
		}
		o.strategies[s] = strategy
	}
}

// WithResetOnStop makes the next Start after a Stop begin from zero:
// accumulated master time, the frame counter and metrics are discarded at
// that point. Between Stop and Start the old values remain readable. The
// default is to retain them across Stop/Start cycles. Callback registries
// and sample histories persist under either policy.
func WithResetOnStop() Option {
	return func(c *Clock, _ *options) {
		c.resetOnStop = true
	}
}

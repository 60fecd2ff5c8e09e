package timing

import "github.com/halcyon-engine/timing/internal/stats"

// Strategy turns a subsystem's latency sample history into a compensation
// estimate. Implementations are pure functions of the history: they hold
// configuration, never accumulated state, so they can be swapped at
// runtime without a warm-up transient.
//
// Estimate receives the history oldest first and the current target tick
// interval, and returns the estimated latency in seconds. A positive
// estimate moves the subsystem's compensated time into the past; only
// Predictive may return a bounded negative estimate.
type Strategy interface {
	Estimate(history []LatencySample, tickInterval float64) float64
	Name() string
}

// Immediate compensates nothing: the estimate is always 0. Used where
// perceptual instantaneity beats smoothing, typically input handling.
type Immediate struct{}

func (Immediate) Estimate([]LatencySample, float64) float64 { return 0 }
func (Immediate) Name() string                              { return "immediate" }

// Reactive returns the most recent sample's latency, unsmoothed.
type Reactive struct{}

func (Reactive) Estimate(history []LatencySample, _ float64) float64 {
	if len(history) == 0 {
		return 0
	}
	lat := history[len(history)-1].Latency()
	if lat < 0 {
		return 0
	}
	return lat
}

func (Reactive) Name() string { return "reactive" }

// Predictive fits a least-squares line over the trailing Window samples
// and projects it one tick forward, anticipating latency instead of
// reacting to it. The projection may run ahead of master time, but never
// by more than one tick interval.
type Predictive struct {
	// Window is the number of trailing samples used for the fit.
	// Non-positive means the whole history.
	Window int
}

func (p Predictive) Estimate(history []LatencySample, tickInterval float64) float64 {
	if len(history) == 0 {
		return 0
	}
	if p.Window > 0 && len(history) > p.Window {
		history = history[len(history)-p.Window:]
	}
	xs := make([]float64, len(history))
	ys := make([]float64, len(history))
	for i, s := range history {
		xs[i] = s.Expected
		ys[i] = s.Latency()
	}
	_, predicted := stats.Slope(xs, ys, history[len(history)-1].Expected+tickInterval)
	// Bound the forward projection to one tick of lead.
	if predicted < -tickInterval {
		predicted = -tickInterval
	}
	return predicted
}

func (p Predictive) Name() string { return "predictive" }

// Adaptive smooths the history with an exponentially weighted moving
// average, trading responsiveness for stability. Decay in (0, 1]; larger
// values weight recent samples more heavily.
type Adaptive struct {
	Decay float64
}

func (a Adaptive) Estimate(history []LatencySample, _ float64) float64 {
	if len(history) == 0 {
		return 0
	}
	decay := a.Decay
	if decay <= 0 || decay > 1 {
		decay = 0.1
	}
	ys := make([]float64, len(history))
	for i, s := range history {
		ys[i] = s.Latency()
	}
	avg := stats.EWMA(ys, decay)
	if avg < 0 {
		return 0
	}
	return avg
}

func (a Adaptive) Name() string { return "adaptive" }

// Package stats provides the small numeric kernels used by the timing
// package: a single-pass mean/variance accumulator, an exponentially
// weighted moving average, and a least-squares slope fit.
package stats

// Welford accumulates mean and variance in a single numerically stable
// pass. The zero value is ready to use.
type Welford struct {
	n    uint64
	mean float64
	m2   float64
	max  float64
}

// Add folds one observation into the accumulator.
func (w *Welford) Add(x float64) {
	w.n++
	delta := x - w.mean
	w.mean += delta / float64(w.n)
	w.m2 += delta * (x - w.mean)
	if x > w.max {
		w.max = x
	}
}

// Count returns the number of observations.
func (w *Welford) Count() uint64 { return w.n }

// Mean returns the running mean, or 0 before any observation.
func (w *Welford) Mean() float64 { return w.mean }

// Variance returns the running population variance, or 0 before the
// second observation.
func (w *Welford) Variance() float64 {
	if w.n < 2 {
		return 0
	}
	return w.m2 / float64(w.n)
}

// Max returns the largest observation seen, or 0 before any.
func (w *Welford) Max() float64 { return w.max }

// EWMA computes an exponentially weighted moving average over a slice of
// values, oldest first: each step folds the next value in as
// avg = avg + decay*(value - avg). decay must be in (0, 1]; a decay of 1
// degenerates to the most recent value.
func EWMA(values []float64, decay float64) float64 {
	if len(values) == 0 {
		return 0
	}
	avg := values[0]
	for _, v := range values[1:] {
		avg += decay * (v - avg)
	}
	return avg
}

// Slope fits y = a + b*x by least squares and returns the slope b along
// with the predicted y at the given x. Returns (0, mean y) when the fit is
// degenerate (fewer than two points or zero x spread).
func Slope(xs, ys []float64, atX float64) (slope, predicted float64) {
	n := float64(len(xs))
	if len(xs) != len(ys) || len(xs) == 0 {
		return 0, 0
	}
	var sumX, sumY, sumXY, sumX2 float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumX2 += xs[i] * xs[i]
	}
	meanY := sumY / n
	if len(xs) < 2 {
		return 0, meanY
	}
	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0, meanY
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept := meanY - slope*(sumX/n)
	return slope, intercept + slope*atX
}

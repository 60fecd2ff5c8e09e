package timing

// SubsystemClock is a read-mostly view of the master clock scoped to one
// subsystem. Hand one to each collaborator so it can read compensated time
// and submit latency samples without seeing the rest of the clock API.
//
// All methods are safe from the subsystem's own execution context (an
// audio callback, a render thread): time reads are lock-free snapshot
// reads and never mutate clock state.
type SubsystemClock struct {
	clock     *Clock
	subsystem Subsystem
}

// ID returns the subsystem this view is scoped to.
func (v *SubsystemClock) ID() Subsystem { return v.subsystem }

// Time returns master time minus this subsystem's current compensation.
// Always ≤ the master time, except under a Predictive strategy, whose
// lead is bounded to one tick interval.
func (v *SubsystemClock) Time() float64 {
	return v.clock.CompensatedTime(v.subsystem)
}

// Master returns the uncompensated master time.
func (v *SubsystemClock) Master() float64 {
	return v.clock.Now()
}

// Measure times op and feeds the resulting latency sample to the tracker,
// keeping this subsystem's compensation current.
func (v *SubsystemClock) Measure(op func()) {
	v.clock.tracker.Measure(v.subsystem, op)
}

// SetStrategy selects this subsystem's compensation strategy.
func (v *SubsystemClock) SetStrategy(s Strategy) {
	v.clock.tracker.SetStrategy(v.subsystem, s)
}

// Stats returns a snapshot of this subsystem's sample history.
func (v *SubsystemClock) Stats() LatencyStats {
	return v.clock.tracker.Stats(v.subsystem)
}

// OnTick registers a per-tick callback scoped to this subsystem.
func (v *SubsystemClock) OnTick(cb TimingCallback) CallbackID {
	return v.clock.AddTimingCallback(v.subsystem, cb)
}

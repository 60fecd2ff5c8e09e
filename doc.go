// Package timing provides a unified master clock with per-subsystem latency
// compensation for soft-realtime engines.
//
// A single Clock drives a fixed-rate tick loop on its own goroutine.
// Independent subsystems (rendering, audio, input, physics) each observe a
// different, compensated view of "now": the master time minus that
// subsystem's currently estimated processing latency. Subsystems feed the
// estimator by wrapping their own work in Measure, and choose how samples
// are turned into an estimate by selecting a compensation Strategy.
//
// # Example Usage
//
//	clock := timing.New(timing.WithTargetFrameRate(60))
//	audio := clock.Subsystem(timing.SubsystemAudio)
//
//	clock.AddTimingCallback(timing.SubsystemRendering, func(now, dt float64) {
//		camera.Update(now, dt)
//	})
//
//	clock.Start(ctx)
//	defer clock.Stop()
//
//	// On the audio thread:
//	audio.Measure(func() { fillBuffer() })
//	t := audio.Time() // master time minus current audio latency
//
// # Tick Semantics
//
// Callbacks run once per tick, subsystem-scoped callbacks first (in
// registration order), then global callbacks. All callbacks within one tick
// observe a single consistent snapshot of master time and of every
// subsystem's compensation; sample submissions and strategy changes made
// mid-tick become visible at the next tick boundary.
//
// A panicking callback never aborts the tick: the panic is recovered,
// logged with the callback's identity, and dispatch continues with the
// next callback.
//
// # Lifecycle
//
// The clock is a three-state machine: Stopped, Running, Paused. Redundant
// Start and Resume calls are no-ops. Pausing freezes master time and the
// frame counter; wall-clock time spent paused is excluded from the first
// post-resume delta, so consumers never see a time jump. Ticks missed
// while paused are not replayed.
//
// # Concurrency
//
// One goroutine owns tick sequencing. Registration, strategy changes and
// sample submission are safe from any goroutine and are guarded by narrow
// mutexes. Compensated-time reads go through an atomically published
// per-tick snapshot and never block, so they are safe from latency-critical
// threads such as audio callbacks.
package timing

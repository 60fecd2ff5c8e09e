package timing

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// dispatcher drives the tick loop on a dedicated goroutine, independent of
// any subsystem's own thread, so no callback can stall global timing.
//
// Per tick it computes the delta, snapshots every subsystem's compensation,
// invokes subsystem-scoped callbacks in registration order, then global
// callbacks in registration order, and finally folds the tick into the
// metrics aggregator. A panicking callback is recovered and logged, never
// aborting the tick.
type dispatcher struct {
	clock *Clock

	mu      sync.Mutex
	scoped  []registration // subsystem-scoped, append-only
	global  []registration // global, append-only
	cancel  context.CancelFunc
	stopped chan struct{}

	lastTick float64
	resumed  atomic.Bool
}

type registration struct {
	id        CallbackID
	subsystem Subsystem
	fn        TimingCallback
}

func newDispatcher(c *Clock) *dispatcher {
	return &dispatcher{clock: c}
}

// addCallback appends a callback to the scoped or global registry.
// Registration is independent of run state and may happen from any
// goroutine; new callbacks are picked up at the next tick.
func (d *dispatcher) addCallback(s Subsystem, global bool, cb TimingCallback) CallbackID {
	id := uuid.New()
	d.mu.Lock()
	defer d.mu.Unlock()
	reg := registration{id: id, subsystem: s, fn: cb}
	if global {
		d.global = append(d.global, reg)
	} else {
		d.scoped = append(d.scoped, reg)
	}
	return id
}

// start launches the tick loop. Any previous loop is joined first, so a
// quick Stop/Start cycle never runs two loops at once.
func (d *dispatcher) start(ctx context.Context, base float64) {
	d.mu.Lock()
	prev := d.stopped
	d.mu.Unlock()
	if prev != nil {
		<-prev
	}

	loopCtx, cancel := context.WithCancel(ctx)
	stopped := make(chan struct{})
	d.mu.Lock()
	d.cancel = cancel
	d.stopped = stopped
	d.lastTick = base
	d.resumed.Store(false)
	d.mu.Unlock()

	go d.loop(loopCtx, stopped)
}

// stop cancels the pending tick and waits for the loop to exit. An
// in-flight dispatch finishes; no new tick is scheduled afterward.
func (d *dispatcher) stop() {
	d.mu.Lock()
	cancel, stopped := d.cancel, d.stopped
	d.cancel, d.stopped = nil, nil
	d.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-stopped
}

// noteResume marks that the next tick must use one target interval of
// delta instead of the span since the pre-pause tick.
func (d *dispatcher) noteResume(masterAtResume float64) {
	d.mu.Lock()
	d.lastTick = masterAtResume
	d.mu.Unlock()
	d.resumed.Store(true)
}

// loop sleeps until the next tick deadline, dispatches, and reschedules.
// The interval is re-read every iteration so SetTargetFrameRate and the
// aggregator's drift nudge take effect on the next tick.
func (d *dispatcher) loop(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)

	timer := time.NewTimer(d.effectiveInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			// Covers both Stop and cancellation of the caller's
			// context; Stop is idempotent, so converge on it either
			// way (async: Stop joins this goroutine).
			go d.clock.Stop()
			return
		case <-timer.C:
			if d.clock.State() == StateRunning {
				d.tick()
			}
			timer.Reset(d.effectiveInterval())
		}
	}
}

func (d *dispatcher) effectiveInterval() time.Duration {
	seconds := d.clock.metrics.adjustInterval(d.clock.targetInterval())
	return time.Duration(seconds * float64(time.Second))
}

// tick runs one dispatch cycle with a snapshot-consistent view of master
// time and all compensations.
func (d *dispatcher) tick() {
	now := d.clock.Now()
	target := d.clock.targetInterval()

	d.mu.Lock()
	delta := now - d.lastTick
	if d.resumed.Swap(false) {
		// Ticks missed while paused are not replayed.
		delta = target
	}
	d.lastTick = now
	scoped := d.scoped
	global := d.global
	d.mu.Unlock()

	d.clock.frame.Add(1)

	comp := d.clock.tracker.snapshot()
	d.clock.publishSnapshot(comp)

	for _, reg := range scoped {
		d.invoke(reg, now-comp[reg.subsystem], delta)
	}
	for _, reg := range global {
		d.invoke(reg, now, delta)
	}

	d.clock.metrics.observe(delta, now)
}

// invoke runs one callback with failure isolation: a panic is recovered
// and logged with the offending callback's identity, and dispatch
// continues.
func (d *dispatcher) invoke(reg registration, now, delta float64) {
	defer func() {
		if r := recover(); r != nil {
			scope := "global"
			if reg.subsystem != "" {
				scope = string(reg.subsystem)
			}
			d.clock.logger.Error("timing: callback panicked",
				"subsystem", scope, "callback", reg.id.String(), "panic", r)
		}
	}()
	reg.fn(now, delta)
}

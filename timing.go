package timing

import (
	"time"

	"github.com/google/uuid"
)

// Subsystem identifies an independent consumer of compensated time.
// The set is open: any non-empty string is a valid subsystem tag and is
// used as a map key throughout the package.
type Subsystem string

// Built-in subsystem tags.
const (
	SubsystemRendering Subsystem = "rendering"
	SubsystemAudio     Subsystem = "audio"
	SubsystemInput     Subsystem = "input"
	SubsystemPhysics   Subsystem = "physics"
)

// ClockState is the lifecycle state of a Clock.
type ClockState int32

const (
	StateStopped ClockState = iota
	StateRunning
	StatePaused
)

func (s ClockState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// LatencySample is one timed unit of subsystem work.
type LatencySample struct {
	Subsystem Subsystem
	// Expected is the master time (seconds) at which the work began.
	Expected float64
	// Measured is the master time (seconds) at which the work completed.
	Measured float64
}

// Latency returns the sample's measured processing latency in seconds.
func (s LatencySample) Latency() float64 {
	return s.Measured - s.Expected
}

// TimingCallback receives the current time view and the tick delta, both in
// seconds. Subsystem-scoped callbacks receive that subsystem's compensated
// time; global callbacks receive the master time.
type TimingCallback func(now, delta float64)

// CallbackID identifies a registered callback, for log correlation when a
// callback panics.
type CallbackID = uuid.UUID

// DefaultTargetFrameRate is the tick rate used when none is configured.
const DefaultTargetFrameRate = 60.0

// DefaultSampleCapacity is the per-subsystem latency ring size.
const DefaultSampleCapacity = 64

// DefaultCalibrationBurst is the number of no-op measurements Calibrate
// records per subsystem.
const DefaultCalibrationBurst = 8

// Drift correction defaults. Drift beyond the threshold, observed for at
// least the window, nudges the effective tick interval by at most the
// bounded fraction per tick.
const (
	DefaultDriftThreshold = 50 * time.Millisecond
	DefaultDriftWindow    = 2 * time.Second
	DefaultNudgeBound     = 0.02
)

package timing

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the yaml-loadable configuration for a Clock. Zero fields fall
// back to package defaults, so a partial file is valid.
type Config struct {
	// TargetFrameRate is the tick rate in Hz.
	TargetFrameRate float64 `yaml:"target_frame_rate"`
	// SampleCapacity is the per-subsystem latency ring size.
	SampleCapacity int `yaml:"sample_capacity"`
	// CalibrationBurst is the number of no-op measurements per subsystem
	// recorded by Calibrate.
	CalibrationBurst int `yaml:"calibration_burst"`

	Drift DriftConfig `yaml:"drift"`

	// Subsystems maps a subsystem tag to its compensation strategy.
	Subsystems map[string]SubsystemConfig `yaml:"subsystems"`
}

// DriftConfig tunes the drift correction servo. Threshold and Window are
// duration strings ("50ms", "2s").
type DriftConfig struct {
	Threshold  string  `yaml:"threshold"`
	Window     string  `yaml:"window"`
	NudgeBound float64 `yaml:"nudge_bound"`
}

// SubsystemConfig selects one subsystem's strategy. Window applies to
// predictive, Decay to adaptive.
type SubsystemConfig struct {
	Strategy string  `yaml:"strategy"`
	Window   int     `yaml:"window"`
	Decay    float64 `yaml:"decay"`
}

// LoadConfig reads and validates a yaml config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("timing: read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("timing: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration without applying it.
func (c *Config) Validate() error {
	if c.TargetFrameRate < 0 {
		return errConfig("target_frame_rate", c.TargetFrameRate, "must be positive")
	}
	if c.SampleCapacity < 0 {
		return errConfig("sample_capacity", c.SampleCapacity, "must be positive")
	}
	if c.CalibrationBurst < 0 {
		return errConfig("calibration_burst", c.CalibrationBurst, "must be positive")
	}
	if c.Drift.NudgeBound < 0 || c.Drift.NudgeBound >= 1 {
		return errConfig("drift.nudge_bound", c.Drift.NudgeBound, "must be a fraction in [0, 1)")
	}
	if _, err := parseDuration(c.Drift.Threshold); err != nil {
		return errConfig("drift.threshold", c.Drift.Threshold, err.Error())
	}
	if _, err := parseDuration(c.Drift.Window); err != nil {
		return errConfig("drift.window", c.Drift.Window, err.Error())
	}
	for tag, sub := range c.Subsystems {
		if _, err := sub.strategy(); err != nil {
			return errConfig("subsystems."+tag+".strategy", sub.Strategy, err.Error())
		}
	}
	return nil
}

// Options converts the configuration into functional options for New.
func (c *Config) Options() ([]Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	var opts []Option
	if c.TargetFrameRate > 0 {
		opts = append(opts, WithTargetFrameRate(c.TargetFrameRate))
	}
	if c.SampleCapacity > 0 {
		opts = append(opts, WithSampleCapacity(c.SampleCapacity))
	}
	if c.CalibrationBurst > 0 {
		opts = append(opts, WithCalibrationBurst(c.CalibrationBurst))
	}
	threshold, _ := parseDuration(c.Drift.Threshold)
	window, _ := parseDuration(c.Drift.Window)
	if threshold > 0 || window > 0 {
		opts = append(opts, WithDriftThreshold(threshold, window))
	}
	if c.Drift.NudgeBound > 0 {
		opts = append(opts, WithNudgeBound(c.Drift.NudgeBound))
	}
	for tag, sub := range c.Subsystems {
		strategy, err := sub.strategy()
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithStrategy(Subsystem(tag), strategy))
	}
	return opts, nil
}

func (s SubsystemConfig) strategy() (Strategy, error) {
	switch s.Strategy {
	case "immediate":
		return Immediate{}, nil
	case "reactive", "":
		return Reactive{}, nil
	case "predictive":
		return Predictive{Window: s.Window}, nil
	case "adaptive":
		return Adaptive{Decay: s.Decay}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", s.Strategy)
	}
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

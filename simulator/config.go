// Package simulator is the simulation driver: it owns one trial's Bus and
// ECUs exclusively, advances ticks until Bus-Off or timeout, and emits the
// trial/step records.
package simulator

import (
	"fmt"

	"busoff-sim/bus"
	"busoff-sim/ecu"
)

// Config is the full configuration table for one trial or sweep.
type Config struct {
	BusSpeedKbps int     // one of 250, 500, 1000
	FrameBits    int     // 0 selects bus.DefaultFrameBits

	VictimMode        ecu.VictimMode
	VictimPeriodSlots int
	VictimJitterSlots int

	VictimID   int
	AttackerID int
	NormalIDs  []int

	AttackerEnabled bool

	AnalysisMinMatches  int
	AnalysisWindowTicks int // 0 means unbounded

	TrialTimeoutMs float64

	Detailed bool

	RNGSeed int64
	Trials  int

	// Logger traces every resolved frame slot when set; nil means silent.
	Logger ecu.Logger

	// ReplayMirror, when set, receives every resolved arbitration
	// identifier for hardware cross-validation; nil disables mirroring.
	ReplayMirror bus.FrameSink
}

// ConfigError reports a configuration problem detected before any trial
// starts: reported at construction, before any trial is started.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}

var validBusSpeeds = map[int]bool{250: true, 500: true, 1000: true}

// Validate checks cfg for internal consistency. It does not mutate cfg.
func (cfg Config) Validate() error {
	if !validBusSpeeds[cfg.BusSpeedKbps] {
		return &ConfigError{Reason: fmt.Sprintf("bus_speed_kbps must be one of 250, 500, 1000, got %d", cfg.BusSpeedKbps)}
	}
	if cfg.VictimPeriodSlots <= 0 {
		return &ConfigError{Reason: fmt.Sprintf("victim_period_slots must be positive, got %d", cfg.VictimPeriodSlots)}
	}
	if cfg.VictimJitterSlots < 0 {
		return &ConfigError{Reason: "victim_jitter_slots must not be negative"}
	}
	if cfg.AttackerEnabled && cfg.VictimID == cfg.AttackerID {
		return &ConfigError{Reason: "victim and attacker cannot share a conflicting identifier"}
	}
	for _, id := range cfg.NormalIDs {
		if cfg.AttackerEnabled && id == cfg.AttackerID {
			return &ConfigError{Reason: fmt.Sprintf("normal id %d conflicts with attacker id", id)}
		}
	}
	if cfg.TrialTimeoutMs <= 0 {
		return &ConfigError{Reason: "trial_timeout_ms must be positive"}
	}
	if cfg.Trials < 0 {
		return &ConfigError{Reason: "trials must not be negative"}
	}
	return nil
}

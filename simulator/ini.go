package simulator

import (
	"fmt"

	"gopkg.in/ini.v1"

	"busoff-sim/ecu"
)

// LoadConfigFile reads a scenario definition from an ini file, the way
// samsamfire-gocanopen loads object-dictionary descriptions: one section
// per logical unit, plain key/value pairs, defaults applied for anything
// absent. Section layout:
//
//	[bus]
//	speed_kbps = 500
//	frame_bits = 111
//
//	[victim]
//	id = 1
//	mode = periodic        ; periodic | preceded | nonperiodic
//	period_slots = 10
//	jitter_slots = 0
//
//	[attacker]
//	enabled = true
//	id = 99
//	analysis_min_matches = 3
//	analysis_window_ticks = 0
//
//	[normal]
//	ids = 5,6,7
//
//	[run]
//	trial_timeout_ms = 5000
//	detailed = false
//	rng_seed = 1
//	trials = 1
func LoadConfigFile(path string) (Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return Config{}, fmt.Errorf("simulator: loading config file %s: %w", path, err)
	}

	cfg := Config{
		FrameBits:          0,
		VictimMode:         ecu.VictimPeriodic,
		AnalysisMinMatches: 3,
		TrialTimeoutMs:     5000,
		Trials:             1,
	}

	busSec := f.Section("bus")
	cfg.BusSpeedKbps = busSec.Key("speed_kbps").MustInt(500)
	cfg.FrameBits = busSec.Key("frame_bits").MustInt(0)

	victimSec := f.Section("victim")
	cfg.VictimID = victimSec.Key("id").MustInt(1)
	cfg.VictimPeriodSlots = victimSec.Key("period_slots").MustInt(10)
	cfg.VictimJitterSlots = victimSec.Key("jitter_slots").MustInt(0)
	cfg.VictimMode = parseVictimMode(victimSec.Key("mode").MustString("periodic"))

	attackerSec := f.Section("attacker")
	cfg.AttackerEnabled = attackerSec.Key("enabled").MustBool(false)
	cfg.AttackerID = attackerSec.Key("id").MustInt(99)
	cfg.AnalysisMinMatches = attackerSec.Key("analysis_min_matches").MustInt(3)
	cfg.AnalysisWindowTicks = attackerSec.Key("analysis_window_ticks").MustInt(0)

	normalSec := f.Section("normal")
	cfg.NormalIDs = normalSec.Key("ids").Ints(",")

	runSec := f.Section("run")
	cfg.TrialTimeoutMs = runSec.Key("trial_timeout_ms").MustFloat64(5000)
	cfg.Detailed = runSec.Key("detailed").MustBool(false)
	cfg.RNGSeed = runSec.Key("rng_seed").MustInt64(1)
	cfg.Trials = runSec.Key("trials").MustInt(1)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseVictimMode(s string) ecu.VictimMode {
	switch s {
	case "preceded":
		return ecu.VictimPreceded
	case "nonperiodic":
		return ecu.VictimNonPeriodic
	default:
		return ecu.VictimPeriodic
	}
}

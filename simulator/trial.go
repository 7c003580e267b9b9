package simulator

import (
	"errors"
	"fmt"
	"math/rand"
	"runtime"

	"busoff-sim/bus"
	"busoff-sim/ecu"
)

// ErrPeriodLockFailed is recorded (not returned) when the attacker cannot
// learn a stable period within its observation window: the trial still
// completes with victim_bus_off=0.
var ErrPeriodLockFailed = errors.New("simulator: attacker failed to lock victim period")

// ErrTrialTimeout is recorded (not returned) when the simulated-time
// budget elapses before the victim reaches Bus-Off.
var ErrTrialTimeout = errors.New("simulator: trial timed out")

// TrialRecord is the per-trial summary emitted by a completed trial.
type TrialRecord struct {
	BusSpeedKbps          int      `json:"bus_speed_kbps"`
	StepMs                float64  `json:"step_ms"`
	TimeToErrorPassiveMs  *float64 `json:"time_to_error_passive_ms"`
	TimeToBusOffMs        *float64 `json:"time_to_bus_off_ms"`
	VictimFinalTEC        int      `json:"victim_final_tec"`
	AttackerFinalTEC      int      `json:"attacker_final_tec"`
	VictimBusOff          int      `json:"victim_bus_off"`
	Trial                 int      `json:"trial"`
	TerminationNote       string   `json:"termination_note,omitempty"`
}

// StepRecord is the per-step detailed-mode record.
type StepRecord struct {
	TimeMs        float64 `json:"time_ms"`
	VictimTEC     int     `json:"victim_tec"`
	AttackerTEC   int     `json:"attacker_tec"`
	VictimState   string  `json:"victim_state"`
	AttackerState string  `json:"attacker_state"`
	Phase         string  `json:"phase"`
}

// Run executes one trial: construct Bus + ECUs per cfg, seed the RNG,
// advance ticks until Bus-Off, period-lock failure or trial_timeout_ms, and
// return the trial
// summary plus (if cfg.Detailed) the per-tick step log. Run owns its Bus
// and ECUs exclusively for the call's duration; trials share no mutable
// state.
func Run(cfg Config, trialIndex int) (trial TrialRecord, steps []StepRecord, err error) {
	if verr := cfg.Validate(); verr != nil {
		return TrialRecord{}, nil, verr
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal invariant violation: %v", r)
		}
	}()

	rng := rand.New(rand.NewSource(cfg.RNGSeed + int64(trialIndex)))
	b := bus.New(cfg.BusSpeedKbps, cfg.FrameBits)
	if cfg.Logger != nil {
		b.SetLogger(cfg.Logger)
	}
	if cfg.ReplayMirror != nil {
		b.Mirror = cfg.ReplayMirror
	}

	var ecus []*ecu.ECU

	victim := ecu.NewECU(ecu.Config{
		ID:                victimID(cfg),
		Role:              ecu.RoleVictim,
		VictimMode:        cfg.VictimMode,
		VictimPeriodSlots: cfg.VictimPeriodSlots,
		VictimJitterSlots: cfg.VictimJitterSlots,
		RNG:               rng,
	})
	ecus = append(ecus, victim)

	var attackerSched *ecu.AttackerScheduler
	var attacker *ecu.ECU
	if cfg.AttackerEnabled {
		attackerSched = ecu.NewAttackerScheduler(ecu.AttackerConfig{
			SelfID:            cfg.AttackerID,
			TargetID:          victimID(cfg),
			AnalysisMinMatch:  cfg.AnalysisMinMatches,
			ObservationWindow: cfg.AnalysisWindowTicks,
		})
		attacker = ecu.New(cfg.AttackerID, ecu.RoleAttacker, attackerSched)
		ecus = append(ecus, attacker)
	}

	for _, id := range cfg.NormalIDs {
		ecus = append(ecus, ecu.New(id, ecu.RoleNormal, ecu.NewNormalScheduler(uint32(id))))
	}

	stepMs := b.StepMs()
	maxTicks := int(cfg.TrialTimeoutMs/stepMs) + 1

	var timeToErrorPassiveMs, timeToBusOffMs *float64
	reachedBusOff := false
	terminationNote := ""

	for tick := 0; tick < maxTicks; tick++ {
		b.Tick(ecus, tick)

		if timeToErrorPassiveMs == nil && victim.State() != ecu.ErrorActive {
			t := b.TimeMs()
			timeToErrorPassiveMs = &t
		}

		if victim.State() == ecu.BusOff {
			t := b.TimeMs()
			timeToBusOffMs = &t
			reachedBusOff = true
			break
		}

		if attackerSched != nil && attackerSched.PeriodLockFailed() {
			terminationNote = ErrPeriodLockFailed.Error()
			break
		}

		if cfg.Detailed {
			steps = append(steps, buildStepRecord(b.TimeMs(), victim, attacker, attackerSched))
		}
	}

	if !reachedBusOff && terminationNote == "" {
		terminationNote = ErrTrialTimeout.Error()
	}

	attackerFinalTEC := 0
	if attacker != nil {
		attackerFinalTEC = attacker.TEC()
	}

	busOffFlag := 0
	if reachedBusOff {
		busOffFlag = 1
	}

	trial = TrialRecord{
		BusSpeedKbps:         cfg.BusSpeedKbps,
		StepMs:               stepMs,
		TimeToErrorPassiveMs: timeToErrorPassiveMs,
		TimeToBusOffMs:       timeToBusOffMs,
		VictimFinalTEC:       victim.TEC(),
		AttackerFinalTEC:     attackerFinalTEC,
		VictimBusOff:         busOffFlag,
		Trial:                trialIndex + 1,
		TerminationNote:      terminationNote,
	}

	return trial, steps, nil
}

func victimID(cfg Config) int {
	if cfg.VictimID != 0 {
		return cfg.VictimID
	}
	return 1
}

func buildStepRecord(timeMs float64, victim, attacker *ecu.ECU, attackerSched *ecu.AttackerScheduler) StepRecord {
	rec := StepRecord{
		TimeMs:      timeMs,
		VictimTEC:   victim.TEC(),
		VictimState: victim.State().String(),
	}
	if attacker != nil {
		rec.AttackerTEC = attacker.TEC()
		rec.AttackerState = attacker.State().String()
	}
	if attackerSched != nil {
		rec.Phase = attackerSched.Phase().String()
	} else {
		rec.Phase = ecu.PhaseNormal.String()
	}
	return rec
}

// Sweep runs cfg.Trials independent trials concurrently, each owning its
// own Bus/ECUs and an RNG derived from cfg.RNGSeed and its trial index, so
// a sweep is itself deterministic given its seed. This is the
// driver's natural multi-trial entry point, not the batch-orchestration
// tooling (parameter grids, persistence, resumability).
func Sweep(cfg Config) ([]TrialRecord, [][]StepRecord) {
	n := cfg.Trials
	if n <= 0 {
		n = 1
	}

	records := make([]TrialRecord, n)
	stepLogs := make([][]StepRecord, n)
	errs := make([]error, n)

	sem := make(chan struct{}, maxConcurrentTrials())
	done := make(chan int, n)

	for i := 0; i < n; i++ {
		i := i
		sem <- struct{}{}
		go func() {
			defer func() { <-sem; done <- i }()
			rec, steps, err := Run(cfg, i)
			if err != nil {
				rec.Trial = i + 1
				rec.TerminationNote = err.Error()
			}
			records[i] = rec
			stepLogs[i] = steps
			errs[i] = err
		}()
	}
	for i := 0; i < n; i++ {
		<-done
	}

	return records, stepLogs
}

// maxConcurrentTrials bounds how many trials run at once, following the
// teacher's convention of sizing worker pools off the host rather than an
// unbounded goroutine-per-item fan-out.
func maxConcurrentTrials() int {
	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}
	return n
}

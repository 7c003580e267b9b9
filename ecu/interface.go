package ecu

// Snapshot is the read-only view of one ECU's state that the bus hands to
// every scheduler's Observe call. It lets the attacker's scheduler watch
// the victim's TEC/state without the ECU types depending on each other.
type Snapshot struct {
	ID    int
	Role  Role
	TEC   int
	State FaultState
}

// Observation describes the outcome of one resolved tick, broadcast by the
// bus to every ECU's scheduler after arbitration and TEC updates have been
// applied for that tick.
type Observation struct {
	Tick        int
	TimestampMs float64

	// Transmitters lists every ECU that declared intent this tick, keyed
	// by ECU ID.
	Transmitters map[int]Frame

	// WinnerID is the ECU ID that won arbitration cleanly, or -1 if the
	// tick was idle or the lowest identifier was sent by more than one ECU.
	WinnerID int

	// CollidedIDs lists the ECU IDs that collided on the same identifier
	// this tick (empty on a clean win or an idle tick).
	CollidedIDs []int

	// States is a snapshot of every participating ECU's TEC/state after
	// this tick's outcomes were applied.
	States map[int]Snapshot
}

// Scheduler is the per-role transmission policy. Decide is called once per
// tick for every ECU that CanTransmit; Observe is called once per tick for
// every ECU regardless of whether it transmitted, so schedulers can track
// bus activity (the attacker's analysis phase depends on this).
type Scheduler interface {
	// Decide reports whether the owning ECU wants to transmit this tick
	// and, if so, which frame identifier and phase tag to use.
	Decide(tick int, timestampMs float64) (wantsToTransmit bool, frameID uint32, phase Phase)

	// Observe is called with the outcome of every tick, after the bus has
	// applied that tick's TEC mutations.
	Observe(obs Observation)
}

// NewECU builds an ECU and its role-specific scheduler from a Config.
func NewECU(cfg Config) *ECU {
	var scheduler Scheduler
	switch cfg.Role {
	case RoleNormal:
		scheduler = NewNormalScheduler(uint32(cfg.ID))
	case RoleVictim:
		scheduler = NewVictimScheduler(VictimConfig{
			FrameID:     uint32(cfg.ID),
			Mode:        cfg.VictimMode,
			PeriodSlots: cfg.VictimPeriodSlots,
			JitterSlots: cfg.VictimJitterSlots,
			RNG:         cfg.RNG,
		})
	case RoleAttacker:
		scheduler = NewAttackerScheduler(AttackerConfig{
			SelfID:            cfg.ID,
			TargetID:          cfg.TargetID,
			AnalysisMinMatch:  cfg.AnalysisMinMatches,
			ObservationWindow: cfg.AnalysisWindowTicks,
		})
	}
	return New(cfg.ID, cfg.Role, scheduler)
}

// Config is the construction-time configuration for one ECU. Fields not
// relevant to a given Role are ignored by NewECU.
type Config struct {
	ID   int
	Role Role

	// Victim-only.
	VictimMode        VictimMode
	VictimPeriodSlots int
	VictimJitterSlots int
	RNG               RNG

	// Attacker-only.
	TargetID            int
	AnalysisMinMatches  int
	AnalysisWindowTicks int
}

// RNG is the minimal randomness surface schedulers need. Simulator code
// injects a seeded *rand.Rand so trials stay bit-for-bit reproducible.
type RNG interface {
	Intn(n int) int
}

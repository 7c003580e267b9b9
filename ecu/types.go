package ecu

// Role identifies what part an ECU plays in a trial. Behaviour differs by
// role, but the role is a field on ECU rather than a distinct Go type: all
// three variants share the same TEC/fault-confinement machinery and only
// their transmission scheduling differs.
type Role int

const (
	RoleNormal Role = iota
	RoleVictim
	RoleAttacker
)

func (r Role) String() string {
	switch r {
	case RoleNormal:
		return "normal"
	case RoleVictim:
		return "victim"
	case RoleAttacker:
		return "attacker"
	default:
		return "unknown"
	}
}

// FaultState is the fault-confinement state gated by the TEC thresholds
// 128 and 256.
type FaultState int

const (
	ErrorActive FaultState = iota
	ErrorPassive
	BusOff
)

func (s FaultState) String() string {
	switch s {
	case ErrorActive:
		return "EA"
	case ErrorPassive:
		return "EP"
	case BusOff:
		return "BO"
	default:
		return "unknown"
	}
}

// Phase tags a Frame (and, for the attacker, its own scheduler state) with
// where in the attack timeline it was produced.
type Phase int

const (
	PhaseNormal Phase = iota
	PhaseAnalysis
	PhaseAttackPhase1
	PhaseAttackPhase2
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseNormal:
		return "normal"
	case PhaseAnalysis:
		return "analysis"
	case PhaseAttackPhase1:
		return "attack_phase1"
	case PhaseAttackPhase2:
		return "attack_phase2"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Frame is ephemeral: created when an ECU decides to transmit, consumed by
// the bus during arbitration for exactly one tick, never retained.
type Frame struct {
	ID          uint32
	Origin      int
	TimestampMs float64
	Phase       Phase
}

// TEC thresholds and penalties.
const (
	TECErrorPassiveThreshold = 128
	TECBusOffThreshold       = 256

	// TECIncrementDelta is the penalty applied to both participants of a
	// same-ID collision.
	TECIncrementDelta = 8
)

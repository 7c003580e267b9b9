package ecu

// AttackerConfig configures an AttackerScheduler.
type AttackerConfig struct {
	// SelfID is the attacker's own ECU identity, needed to recognise
	// itself in an Observation's collision list.
	SelfID int

	// TargetID is the victim's frame identifier. The attacker is
	// configured with which ECU to target; what it has to learn is the
	// target's transmission period, not its identity.
	TargetID int

	// AnalysisMinMatch is the number of consecutive matching
	// inter-arrival intervals required to lock a period.
	AnalysisMinMatch int

	// ObservationWindow bounds the analysis phase in ticks; exceeding it
	// without a lock is a period-lock failure. Zero means unbounded.
	ObservationWindow int
}

// AttackerScheduler implements the two-phase bus-off attack as an explicit
// tagged enumeration over Phase, with transitions driven
// only by what it observes on the bus:
//
//   Analysis   -- period locked --> Phase1
//   Phase1     -- victim TEC >= 128 (Error-Passive) --> Phase2
//   Analysis   -- observation window exhausted --> Terminated (failure)
//   Phase2     -- victim reaches Bus-Off --> Terminated (success, driver ends trial)
//
// In Phase1 the attacker transmits the target's identifier only on the
// tick it predicts the victim will transmit, producing an aligned
// collision. In Phase2 it transmits that identifier on every tick
// unconditionally: this reproduces the sawtooth dynamic directly,
// since ticks that coincide with the victim's period collide (+8/+8) and
// every other tick is a clean win for the attacker (-1), with no separate
// retransmission bookkeeping required.
type AttackerScheduler struct {
	cfg AttackerConfig

	phase Phase

	lastSeenTick       int
	lastInterval       int
	consecutiveMatches int
	estimatedPeriod    int
	nextPredictedTick  int
	lastAttemptTick    int
	ticksObserved      int
}

// NewAttackerScheduler builds a scheduler starting in the Analysis phase.
func NewAttackerScheduler(cfg AttackerConfig) *AttackerScheduler {
	if cfg.AnalysisMinMatch <= 0 {
		cfg.AnalysisMinMatch = 3
	}
	return &AttackerScheduler{
		cfg:             cfg,
		phase:           PhaseAnalysis,
		lastSeenTick:    -1,
		lastAttemptTick: -1,
	}
}

// Phase reports the attacker's current position in its state machine.
func (s *AttackerScheduler) Phase() Phase { return s.phase }

// PeriodLockFailed is true once the analysis window has been exhausted
// without locking a period.
func (s *AttackerScheduler) PeriodLockFailed() bool {
	return s.phase == PhaseTerminated && s.estimatedPeriod == 0
}

func (s *AttackerScheduler) Decide(tick int, timestampMs float64) (bool, uint32, Phase) {
	switch s.phase {
	case PhaseAnalysis, PhaseTerminated:
		return false, 0, s.phase

	case PhaseAttackPhase1:
		if tick != s.nextPredictedTick {
			return false, 0, PhaseAttackPhase1
		}
		s.lastAttemptTick = tick
		return true, uint32(s.cfg.TargetID), PhaseAttackPhase1

	case PhaseAttackPhase2:
		s.lastAttemptTick = tick
		return true, uint32(s.cfg.TargetID), PhaseAttackPhase2

	default:
		return false, 0, s.phase
	}
}

func (s *AttackerScheduler) Observe(obs Observation) {
	switch s.phase {
	case PhaseAnalysis:
		s.observeAnalysis(obs)
	case PhaseAttackPhase1:
		s.observePhase1(obs)
	case PhaseAttackPhase2:
		s.observePhase2(obs)
	}
}

func (s *AttackerScheduler) observeAnalysis(obs Observation) {
	s.ticksObserved++

	if obs.WinnerID == s.cfg.TargetID && len(obs.CollidedIDs) == 0 {
		if s.lastSeenTick >= 0 {
			interval := obs.Tick - s.lastSeenTick
			if interval > 0 && interval == s.lastInterval {
				s.consecutiveMatches++
			} else {
				s.consecutiveMatches = 1
			}
			s.lastInterval = interval

			if s.consecutiveMatches >= s.cfg.AnalysisMinMatch {
				s.estimatedPeriod = interval
				s.phase = PhaseAttackPhase1
				s.nextPredictedTick = obs.Tick + s.estimatedPeriod
				return
			}
		}
		s.lastSeenTick = obs.Tick
	}

	if s.cfg.ObservationWindow > 0 && s.ticksObserved >= s.cfg.ObservationWindow {
		s.phase = PhaseTerminated
	}
}

func (s *AttackerScheduler) observePhase1(obs Observation) {
	if obs.Tick != s.lastAttemptTick {
		return
	}

	if containsInt(obs.CollidedIDs, s.cfg.SelfID) && containsInt(obs.CollidedIDs, s.cfg.TargetID) {
		// Predicted tick correctly aligned with the victim: a collision
		// happened. Check whether it pushed the victim to Error-Passive.
		if snap, ok := obs.States[s.cfg.TargetID]; ok && snap.State == ErrorPassive {
			s.phase = PhaseAttackPhase2
			return
		}
		s.nextPredictedTick = obs.Tick + s.estimatedPeriod
		return
	}

	// Mispredicted tick: the victim didn't show up when expected. Period
	// drift is handled by re-learning rather than by nudging the
	// estimate.
	s.phase = PhaseAnalysis
	s.lastSeenTick = -1
	s.lastInterval = 0
	s.consecutiveMatches = 0
	s.estimatedPeriod = 0
	s.ticksObserved = 0
}

func (s *AttackerScheduler) observePhase2(obs Observation) {
	if snap, ok := obs.States[s.cfg.TargetID]; ok && snap.State == BusOff {
		s.phase = PhaseTerminated
	}
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

package ecu

import "testing"

func TestTECIncrement_CrossesErrorPassiveThreshold(t *testing.T) {
	e := New(1, RoleNormal, NewNormalScheduler(1))
	for i := 0; i < 16; i++ {
		e.TECIncrement(TECIncrementDelta)
	}
	if e.TEC() != 128 {
		t.Fatalf("TEC = %d, want 128", e.TEC())
	}
	if e.State() != ErrorPassive {
		t.Fatalf("state = %v, want ErrorPassive", e.State())
	}
}

func TestTECIncrement_CrossesBusOffThresholdAndFreezes(t *testing.T) {
	e := New(1, RoleNormal, NewNormalScheduler(1))
	for i := 0; i < 40; i++ {
		e.TECIncrement(TECIncrementDelta)
	}
	if e.TEC() != TECBusOffThreshold {
		t.Fatalf("TEC = %d, want %d (frozen)", e.TEC(), TECBusOffThreshold)
	}
	if e.State() != BusOff {
		t.Fatalf("state = %v, want BusOff", e.State())
	}

	// Further increments and decrements must be no-ops once Bus-Off.
	e.TECIncrement(TECIncrementDelta)
	e.TECDecrement()
	if e.TEC() != TECBusOffThreshold {
		t.Fatalf("TEC changed after Bus-Off: %d", e.TEC())
	}
	if e.State() != BusOff {
		t.Fatalf("state changed after Bus-Off: %v", e.State())
	}
}

func TestTECDecrement_FloorsAtZero(t *testing.T) {
	e := New(1, RoleNormal, NewNormalScheduler(1))
	e.TECDecrement()
	if e.TEC() != 0 {
		t.Fatalf("TEC = %d, want 0", e.TEC())
	}
	if e.State() != ErrorActive {
		t.Fatalf("state = %v, want ErrorActive", e.State())
	}
}

func TestTECDecrement_ReturnsFromErrorPassiveToErrorActive(t *testing.T) {
	e := New(1, RoleNormal, NewNormalScheduler(1))
	e.TECIncrement(128)
	if e.State() != ErrorPassive {
		t.Fatalf("state = %v, want ErrorPassive", e.State())
	}
	for i := 0; i < 8; i++ {
		e.TECDecrement()
	}
	if e.TEC() != 120 {
		t.Fatalf("TEC = %d, want 120", e.TEC())
	}
	if e.State() != ErrorActive {
		t.Fatalf("state = %v, want ErrorActive", e.State())
	}
}

func TestCanTransmit_FalseOnlyAfterBusOff(t *testing.T) {
	e := New(1, RoleNormal, NewNormalScheduler(1))
	if !e.CanTransmit() {
		t.Fatal("fresh ECU must be able to transmit")
	}
	e.TECIncrement(TECBusOffThreshold)
	if e.CanTransmit() {
		t.Fatal("Bus-Off ECU must not be able to transmit")
	}
}

func TestVictimScheduler_PeriodicCadence(t *testing.T) {
	s := NewVictimScheduler(VictimConfig{FrameID: 7, Mode: VictimPeriodic, PeriodSlots: 5})
	var fireTicks []int
	for tick := 0; tick < 21; tick++ {
		if wants, id, _ := s.Decide(tick, 0); wants {
			fireTicks = append(fireTicks, tick)
			if id != 7 {
				t.Errorf("tick %d: frame id = %d, want 7", tick, id)
			}
		}
	}
	want := []int{0, 5, 10, 15, 20}
	if len(fireTicks) != len(want) {
		t.Fatalf("fireTicks = %v, want %v", fireTicks, want)
	}
	for i, tick := range fireTicks {
		if tick != want[i] {
			t.Errorf("fireTicks[%d] = %d, want %d", i, tick, want[i])
		}
	}
}

func TestVictimScheduler_PrecededModeInterleavesAuxFrame(t *testing.T) {
	s := NewVictimScheduler(VictimConfig{FrameID: 7, Mode: VictimPreceded, PeriodSlots: 10})
	sawAux := false
	for tick := 0; tick < 45; tick++ {
		if wants, id, _ := s.Decide(tick, 0); wants && id == 7+auxIDOffset {
			sawAux = true
		}
	}
	if !sawAux {
		t.Fatal("preceded-mode victim never emitted an auxiliary frame")
	}
}

type fixedRNG struct{ n int }

func (f fixedRNG) Intn(n int) int { return f.n % n }

func TestVictimScheduler_NonPeriodicAppliesBoundedJitter(t *testing.T) {
	s := NewVictimScheduler(VictimConfig{
		FrameID: 7, Mode: VictimNonPeriodic, PeriodSlots: 10, JitterSlots: 2, RNG: fixedRNG{n: 0},
	})
	_, _, _ = s.Decide(0, 0)
	if s.nextTick < 8 || s.nextTick > 12 {
		t.Fatalf("nextTick = %d, want within [8,12]", s.nextTick)
	}
}

func TestAttackerScheduler_LocksPeriodAfterConsecutiveMatches(t *testing.T) {
	s := NewAttackerScheduler(AttackerConfig{SelfID: 99, TargetID: 1, AnalysisMinMatch: 2})
	if s.Phase() != PhaseAnalysis {
		t.Fatalf("initial phase = %v, want Analysis", s.Phase())
	}

	s.Observe(Observation{Tick: 0, WinnerID: 1})
	if s.Phase() != PhaseAnalysis {
		t.Fatalf("phase after first sighting = %v, want Analysis", s.Phase())
	}
	s.Observe(Observation{Tick: 10, WinnerID: 1})
	if s.Phase() != PhaseAnalysis {
		t.Fatalf("phase after one matching interval = %v, want Analysis", s.Phase())
	}
	s.Observe(Observation{Tick: 20, WinnerID: 1})
	if s.Phase() != PhaseAttackPhase1 {
		t.Fatalf("phase after two matching intervals = %v, want Phase1", s.Phase())
	}
	if s.nextPredictedTick != 30 {
		t.Fatalf("nextPredictedTick = %d, want 30", s.nextPredictedTick)
	}
}

func TestAttackerScheduler_Phase1MispredictionResetsToAnalysis(t *testing.T) {
	s := NewAttackerScheduler(AttackerConfig{SelfID: 99, TargetID: 1, AnalysisMinMatch: 2})
	s.Observe(Observation{Tick: 0, WinnerID: 1})
	s.Observe(Observation{Tick: 10, WinnerID: 1})
	s.Observe(Observation{Tick: 20, WinnerID: 1})
	if s.Phase() != PhaseAttackPhase1 {
		t.Fatalf("setup failed: phase = %v", s.Phase())
	}

	// Predicted tick arrives but the attacker's own attempt never
	// registered a collision with the target: misprediction.
	_, _, _ = s.Decide(30, 0)
	s.Observe(Observation{Tick: 30, WinnerID: -1, CollidedIDs: []int{}})

	if s.Phase() != PhaseAnalysis {
		t.Fatalf("phase after misprediction = %v, want Analysis", s.Phase())
	}
}

func TestAttackerScheduler_Phase1CollisionAdvancesToPhase2OnErrorPassive(t *testing.T) {
	s := NewAttackerScheduler(AttackerConfig{SelfID: 99, TargetID: 1, AnalysisMinMatch: 2})
	s.Observe(Observation{Tick: 0, WinnerID: 1})
	s.Observe(Observation{Tick: 10, WinnerID: 1})
	s.Observe(Observation{Tick: 20, WinnerID: 1})

	_, _, _ = s.Decide(30, 0)
	s.Observe(Observation{
		Tick:        30,
		WinnerID:    -1,
		CollidedIDs: []int{1, 99},
		States:      map[int]Snapshot{1: {ID: 1, State: ErrorPassive}},
	})

	if s.Phase() != PhaseAttackPhase2 {
		t.Fatalf("phase after aligned collision pushing target to ErrorPassive = %v, want Phase2", s.Phase())
	}
}

func TestAttackerScheduler_Phase2TerminatesOnTargetBusOff(t *testing.T) {
	s := NewAttackerScheduler(AttackerConfig{SelfID: 99, TargetID: 1, AnalysisMinMatch: 2})
	s.phase = PhaseAttackPhase2

	wants, id, _ := s.Decide(5, 0)
	if !wants || id != 1 {
		t.Fatalf("Decide in Phase2 = (%v, %d), want (true, 1)", wants, id)
	}

	s.Observe(Observation{Tick: 5, States: map[int]Snapshot{1: {ID: 1, State: BusOff}}})
	if s.Phase() != PhaseTerminated {
		t.Fatalf("phase after target Bus-Off = %v, want Terminated", s.Phase())
	}
}

func TestAttackerScheduler_ObservationWindowExhaustionFailsPeriodLock(t *testing.T) {
	s := NewAttackerScheduler(AttackerConfig{SelfID: 99, TargetID: 1, AnalysisMinMatch: 100, ObservationWindow: 3})
	s.Observe(Observation{Tick: 0, WinnerID: -1})
	s.Observe(Observation{Tick: 1, WinnerID: -1})
	s.Observe(Observation{Tick: 2, WinnerID: -1})

	if !s.PeriodLockFailed() {
		t.Fatal("expected PeriodLockFailed after observation window exhausted")
	}
}

package bus

import (
	"testing"

	"busoff-sim/ecu"
)

func TestStepMs_DefaultFrameBits(t *testing.T) {
	b := New(500, 0)
	got := b.StepMs()
	want := float64(DefaultFrameBits) / 500.0
	if got != want {
		t.Errorf("StepMs() = %v, want %v", got, want)
	}
}

// S1 — baseline, no attack: a lone periodic victim never accrues TEC.
func TestScenario_BaselineNoAttack(t *testing.T) {
	b := New(500, 0)
	victim := ecu.New(1, ecu.RoleVictim, ecu.NewVictimScheduler(ecu.VictimConfig{
		FrameID:     1,
		Mode:        ecu.VictimPeriodic,
		PeriodSlots: 10,
	}))
	ecus := []*ecu.ECU{victim}

	for tick := 0; tick < 500; tick++ {
		b.Tick(ecus, tick)
	}

	if victim.TEC() != 0 {
		t.Errorf("victim TEC = %d, want 0", victim.TEC())
	}
	if victim.State() != ecu.ErrorActive {
		t.Errorf("victim state = %v, want ErrorActive", victim.State())
	}
}

// S6 — TEC floor: a victim transmitting successfully for many ticks must
// never go negative.
func TestScenario_TECFloor(t *testing.T) {
	b := New(500, 0)
	victim := ecu.New(1, ecu.RoleVictim, ecu.NewVictimScheduler(ecu.VictimConfig{
		FrameID:     1,
		Mode:        ecu.VictimPeriodic,
		PeriodSlots: 1,
	}))
	ecus := []*ecu.ECU{victim}

	for tick := 0; tick < 1000; tick++ {
		b.Tick(ecus, tick)
		if victim.TEC() < 0 {
			t.Fatalf("tick %d: victim TEC went negative: %d", tick, victim.TEC())
		}
	}
	if victim.TEC() != 0 {
		t.Errorf("victim TEC = %d, want 0", victim.TEC())
	}
}

// Same-ID collision between two normal ECUs is handled like an
// attacker/victim collision: both increment by 8.
func TestTick_NormalNormalCollisionIsTreatedLikeACollision(t *testing.T) {
	b := New(500, 0)
	a := ecu.New(1, ecu.RoleNormal, ecu.NewNormalScheduler(5))
	c := ecu.New(2, ecu.RoleNormal, ecu.NewNormalScheduler(5))
	ecus := []*ecu.ECU{a, c}

	result := b.Tick(ecus, 0)

	if result.WinnerID != -1 {
		t.Errorf("WinnerID = %d, want -1 (collision)", result.WinnerID)
	}
	if len(result.CollidedIDs) != 2 {
		t.Fatalf("CollidedIDs = %v, want 2 entries", result.CollidedIDs)
	}
	if a.TEC() != ecu.TECIncrementDelta || c.TEC() != ecu.TECIncrementDelta {
		t.Errorf("TECs = %d, %d, want both %d", a.TEC(), c.TEC(), ecu.TECIncrementDelta)
	}
}

// Clean arbitration: lower identifier wins and decrements; the loser is
// not penalised.
func TestTick_CleanWinLowerIDWinsNoPenaltyForLoser(t *testing.T) {
	b := New(500, 0)
	low := ecu.New(1, ecu.RoleNormal, ecu.NewNormalScheduler(1))
	high := ecu.New(2, ecu.RoleNormal, ecu.NewNormalScheduler(2))
	ecus := []*ecu.ECU{low, high}

	// Give both ECUs a starting TEC so the decrement is observable.
	low.TECIncrement(4)
	high.TECIncrement(4)

	result := b.Tick(ecus, 0)

	if result.WinnerID != 1 {
		t.Fatalf("WinnerID = %d, want 1", result.WinnerID)
	}
	if low.TEC() != 3 {
		t.Errorf("winner TEC = %d, want 3 (decremented)", low.TEC())
	}
	if high.TEC() != 4 {
		t.Errorf("loser TEC = %d, want 4 (unchanged)", high.TEC())
	}
}

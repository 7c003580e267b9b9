package ecu

import (
	"sync"
)

// ECU holds the TEC and fault-confinement state shared by every role, plus
// the role-specific Scheduler that decides, tick by tick, whether it wants
// to transmit. The bus is the sole authority that mutates TEC: ECU exposes
// TECIncrement/TECDecrement for the bus to call, but never calls them on
// itself in response to its own observations.
type ECU struct {
	mu sync.RWMutex

	ID        int
	Role      Role
	Scheduler Scheduler

	tec   int
	state FaultState
}

// New builds an ECU with a zeroed TEC (Error-Active) and the given
// scheduler driving its transmission intent.
func New(id int, role Role, scheduler Scheduler) *ECU {
	return &ECU{
		ID:        id,
		Role:      role,
		Scheduler: scheduler,
		state:     ErrorActive,
	}
}

// CanTransmit is true iff the ECU has not reached Bus-Off.
func (e *ECU) CanTransmit() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state != BusOff
}

// TEC returns the current Transmit Error Counter.
func (e *ECU) TEC() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tec
}

// State returns the current fault-confinement state.
func (e *ECU) State() FaultState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// TECIncrement adds delta to the TEC (typically +8 on a collision), then
// re-evaluates fault-confinement state. Once Bus-Off, the TEC is frozen:
// further increments are no-ops.
func (e *ECU) TECIncrement(delta int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == BusOff {
		return
	}

	e.tec += delta
	e.evaluateStateLocked()
}

// TECDecrement subtracts 1 from the TEC on a successful transmission,
// floored at 0, then re-evaluates fault-confinement state.
func (e *ECU) TECDecrement() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == BusOff {
		return
	}

	if e.tec > 0 {
		e.tec--
	}
	e.evaluateStateLocked()
}

// evaluateStateLocked applies the fault-confinement threshold rule. Callers
// must hold e.mu.
func (e *ECU) evaluateStateLocked() {
	switch {
	case e.tec >= TECBusOffThreshold:
		e.tec = TECBusOffThreshold
		e.state = BusOff
	case e.tec >= TECErrorPassiveThreshold:
		e.state = ErrorPassive
	default:
		e.state = ErrorActive
	}

	if e.tec < 0 {
		panic("ecu: invariant violation: negative TEC")
	}
}

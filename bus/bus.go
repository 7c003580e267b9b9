// Package bus implements the per-tick arbitration and collision/error
// resolution engine for a CAN bus: the sole authority that mutates an
// ECU's Transmit Error Counter.
package bus

import (
	"sort"

	"busoff-sim/ecu"
)

// DefaultFrameBits is the bits-per-frame constant used to derive a frame
// slot's duration when the caller doesn't override it. The exact bit count
// of one slot depends on identifier length, payload size, and stuff bits,
// none of which this simulator models in full; 111 is a representative
// value (an 11-bit identifier plus a short data payload and framing
// overhead) and is not claimed to be canonical.
const DefaultFrameBits = 111

// FrameSink mirrors a resolved arbitration identifier somewhere outside the
// simulator, e.g. onto a real CAN interface for hardware cross-validation.
type FrameSink interface {
	Publish(id uint32) error
}

// Bus models one CAN segment: its configured speed, its simulated clock,
// and the ECUs contending for it.
type Bus struct {
	BusSpeedKbps int
	FrameBits    int
	Logger       ecu.Logger
	Mirror       FrameSink

	currentTimeMs float64
}

// New builds a Bus at the given speed. frameBits of 0 selects
// DefaultFrameBits. The bus logs nothing until SetLogger is called.
func New(busSpeedKbps, frameBits int) *Bus {
	if frameBits <= 0 {
		frameBits = DefaultFrameBits
	}
	return &Bus{BusSpeedKbps: busSpeedKbps, FrameBits: frameBits, Logger: ecu.NopLogger{}}
}

// SetLogger attaches a logger used to trace every resolved frame slot.
func (b *Bus) SetLogger(logger ecu.Logger) {
	b.Logger = logger
}

// StepMs is the duration of one frame slot in milliseconds, derived per
// frame_bits / bus_speed_kbps (a bus speed in kbps is
// numerically bits-per-millisecond).
func (b *Bus) StepMs() float64 {
	return float64(b.FrameBits) / float64(b.BusSpeedKbps)
}

// TimeMs is the bus's current simulated time.
func (b *Bus) TimeMs() float64 { return b.currentTimeMs }

// TickResult is what one resolved tick produced, returned to the driver
// for building step/trial records and asserting invariants in tests.
type TickResult struct {
	Tick        int
	TimestampMs float64
	StepMs      float64

	// Transmitters is every ECU ID that declared intent this tick.
	Transmitters map[int]ecu.Frame

	// WinnerID is the ECU that won arbitration cleanly, or -1 if the tick
	// was idle or the lowest identifier was sent by more than one ECU.
	WinnerID int

	// CollidedIDs lists the ECU IDs tied on the lowest identifier this
	// tick (len >= 2), empty otherwise.
	CollidedIDs []int
}

// Tick runs the five-step arbitration contract for one frame slot:
// collect intent, arbitrate by identifier, resolve collisions/error
// flags, apply TEC outcomes, advance the clock.
func (b *Bus) Tick(ecus []*ecu.ECU, tick int) TickResult {
	timestampMs := b.currentTimeMs
	stepMs := b.StepMs()

	transmitters := make(map[int]ecu.Frame)
	for _, e := range ecus {
		if !e.CanTransmit() {
			continue
		}
		wants, frameID, phase := e.Scheduler.Decide(tick, timestampMs)
		if !wants {
			continue
		}
		frame := ecu.Frame{
			ID:          frameID,
			Origin:      e.ID,
			TimestampMs: timestampMs,
			Phase:       phase,
		}
		transmitters[e.ID] = frame
		b.Logger.DebugFrame("tx", tick, frame)
	}

	result := TickResult{
		Tick:         tick,
		TimestampMs:  timestampMs,
		StepMs:       stepMs,
		Transmitters: transmitters,
		WinnerID:     -1,
	}

	if len(transmitters) > 0 {
		minID, tiedIDs := arbitrate(transmitters)

		if len(tiedIDs) == 1 {
			winnerID := tiedIDs[0]
			result.WinnerID = winnerID
			byID(ecus, winnerID).TECDecrement()
		} else {
			result.CollidedIDs = tiedIDs
			for _, id := range tiedIDs {
				byID(ecus, id).TECIncrement(ecu.TECIncrementDelta)
			}
		}

		if b.Mirror != nil {
			if err := b.Mirror.Publish(minID); err != nil {
				b.Logger.Warn("mirroring frame 0x%x: %v", minID, err)
			}
		}
	}

	b.currentTimeMs += stepMs

	obs := ecu.Observation{
		Tick:         tick,
		TimestampMs:  timestampMs,
		Transmitters: transmitters,
		WinnerID:     result.WinnerID,
		CollidedIDs:  result.CollidedIDs,
		States:       snapshot(ecus),
	}
	for _, e := range ecus {
		e.Scheduler.Observe(obs)
	}

	return result
}

// arbitrate returns the lowest frame identifier contending this tick and
// the ECU IDs that used it (CAN arbitration: lower identifier wins;
// ties on that identifier are a collision).
func arbitrate(transmitters map[int]ecu.Frame) (uint32, []int) {
	minID := ^uint32(0)
	for _, f := range transmitters {
		if f.ID < minID {
			minID = f.ID
		}
	}

	var tied []int
	for ecuID, f := range transmitters {
		if f.ID == minID {
			tied = append(tied, ecuID)
		}
	}
	sort.Ints(tied)

	return minID, tied
}

func byID(ecus []*ecu.ECU, id int) *ecu.ECU {
	for _, e := range ecus {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func snapshot(ecus []*ecu.ECU) map[int]ecu.Snapshot {
	out := make(map[int]ecu.Snapshot, len(ecus))
	for _, e := range ecus {
		out[e.ID] = ecu.Snapshot{
			ID:    e.ID,
			Role:  e.Role,
			TEC:   e.TEC(),
			State: e.State(),
		}
	}
	return out
}

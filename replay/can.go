// Package replay optionally mirrors a trial's resolved frames onto a real
// SocketCAN interface, so the arbitration outcomes a trial computed can be
// observed with ordinary CAN tooling (candump, a scope on a physical bus).
// It never feeds real bus activity back into a trial: arbitration is
// decided entirely by the simulator, then replayed one-way.
package replay

import (
	"fmt"

	"github.com/brutella/can"
)

// Sink mirrors resolved frames onto a CAN bus.
type Sink struct {
	bus *can.Bus
}

// NewSink opens a SocketCAN interface (e.g. "can0", "vcan0") and returns a
// Sink bound to it. Callers should call Close when done. The sink only
// writes frames; it never reads anything back from the interface.
func NewSink(iface string) (*Sink, error) {
	bus, err := can.NewBusForInterfaceWithName(iface)
	if err != nil {
		return nil, fmt.Errorf("replay: opening interface %s: %w", iface, err)
	}
	return &Sink{bus: bus}, nil
}

// Publish sends one resolved frame. id is the arbitration identifier that
// won (or every colliding identifier, if the caller wants to replay a
// collision tick); payload is left empty since the simulator models
// arbitration only, not frame contents.
func (s *Sink) Publish(id uint32) error {
	frame := can.Frame{
		ID:     id,
		Length: 0,
	}
	return s.bus.Publish(frame)
}

// Close disconnects the underlying bus.
func (s *Sink) Close() error {
	return s.bus.Disconnect()
}

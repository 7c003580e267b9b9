package ecu

// NormalScheduler represents ordinary bus traffic: an ECU that always has
// something to say and transmits its fixed identifier every tick. It never
// reacts to the bus (Observe is a no-op) — it is the constant background
// load the attack is staged against, and also the vehicle for the "two
// normal ECUs share an identifier" edge case when two are configured with
// the same frame ID.
type NormalScheduler struct {
	frameID uint32
}

// NewNormalScheduler returns a scheduler that always transmits frameID.
func NewNormalScheduler(frameID uint32) *NormalScheduler {
	return &NormalScheduler{frameID: frameID}
}

func (s *NormalScheduler) Decide(tick int, timestampMs float64) (bool, uint32, Phase) {
	return true, s.frameID, PhaseNormal
}

func (s *NormalScheduler) Observe(obs Observation) {}

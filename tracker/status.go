package tracker

import (
	"time"

	"i4.energy/across/gpstracker/clock"
	"i4.energy/across/gpstracker/gps"
	"i4.energy/across/gpstracker/upload"
)

// Status is a point-in-time view of the machine.
type Status struct {
	State       State           `json:"state"`
	InState     time.Duration   `json:"in_state_ns"`
	Fix         *gps.Fix        `json:"fix,omitempty"`
	LastOutcome *upload.Outcome `json:"last_outcome,omitempty"`
	Cycles      int             `json:"cycles"`
}

// Snapshot returns the current status. It is safe to call concurrently
// with Run.
func (m *Machine) Snapshot() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Status{
		State:   m.state,
		InState: clock.Since(m.clock, m.entered),
		Cycles:  m.cycles,
	}
	if m.hasFix {
		fix := m.fix
		s.Fix = &fix
	}
	if m.outcome != nil {
		o := *m.outcome
		s.LastOutcome = &o
	}
	return s
}

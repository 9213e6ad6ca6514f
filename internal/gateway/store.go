package gateway

import (
	"dam-testbed/internal/process"
	"dam-testbed/internal/supervisory"
)

// NewSupervisoryStore registers the dam nodes and opens pump, gate and
// water_level to client writes.
func NewSupervisoryStore(initial process.State) (*supervisory.Store, error) {
	s := supervisory.NewDamStore(initial.PumpOn, initial.GateOpen, initial.Level)
	for _, name := range []string{supervisory.NodePump, supervisory.NodeGate, supervisory.NodeLevel} {
		if err := s.SetWritable(name, true); err != nil {
			return nil, err
		}
	}
	return s, nil
}

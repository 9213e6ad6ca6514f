// Dam process data model shared by the simulator and the gateway.
package process

// Register-width bounds of the water level.
const (
	MinLevel = 0
	MaxLevel = 65535
)

// State is the physical state of the dam: two actuators and the water level.
type State struct {
	PumpOn   bool   `json:"pump"`
	GateOpen bool   `json:"gate"`
	Level    uint16 `json:"water_level"`
}

// Snapshot holds the actuator values the gateway last wrote to every view.
// It is used for change detection only, never as the process' source of truth.
type Snapshot struct {
	LastPump bool `json:"last_pump"`
	LastGate bool `json:"last_gate"`
}

// Params configures the simulated dynamics of one deployment.
type Params struct {
	InitialLevel   uint16 `yaml:"initial_level" json:"initial_level"`
	InitialPump    bool   `yaml:"initial_pump" json:"initial_pump"`
	InitialGate    bool   `yaml:"initial_gate" json:"initial_gate"`
	PumpDelta      int    `yaml:"pump_delta" json:"pump_delta"`
	GateDelta      int    `yaml:"gate_delta" json:"gate_delta"`
	LowThreshold   int    `yaml:"low_threshold" json:"low_threshold"`
	HighThreshold  int    `yaml:"high_threshold" json:"high_threshold"`
	AlertThreshold int    `yaml:"alert_threshold,omitempty" json:"alert_threshold"` // 0 disables alerts
}

// Initial returns the state the simulator starts from.
func (p Params) Initial() State {
	return State{PumpOn: p.InitialPump, GateOpen: p.InitialGate, Level: p.InitialLevel}
}

// Saturate clamps v into the register range.
func Saturate(v int) uint16 {
	if v < MinLevel {
		return MinLevel
	}
	if v > MaxLevel {
		return MaxLevel
	}
	return uint16(v)
}

// OnOff formats a pump value the way status lines show it.
func OnOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// OpenClosed formats a gate value the way status lines show it.
func OpenClosed(v bool) string {
	if v {
		return "open"
	}
	return "closed"
}

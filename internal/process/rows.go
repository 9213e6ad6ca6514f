package process

import "time"

// Row sources.
const (
	SourcePLC     = "plc"
	SourceGateway = "gateway"
)

// StatusRow is emitted once per loop tick to the output writers.
type StatusRow struct {
	InstanceID string    `json:"instance_id"`
	Source     string    `json:"source"`
	Pump       bool      `json:"pump"`
	Gate       bool      `json:"gate"`
	Level      uint16    `json:"water_level"`
	PumpFrom   string    `json:"pump_from,omitempty"` // winning view, gateway rows only
	GateFrom   string    `json:"gate_from,omitempty"`
	Timestamp  time.Time `json:"ts"`
}

// AlertRow reports the water level crossing the alert threshold.
type AlertRow struct {
	InstanceID string    `json:"instance_id"`
	Message    string    `json:"message"`
	Level      uint16    `json:"water_level"`
	Threshold  int       `json:"threshold"`
	Timestamp  time.Time `json:"ts"`
}

// FloodingMessage is the alert text raised by the simulator.
const FloodingMessage = "[ALERT] dam is flooding"

// NewStatusRow builds a row from a process state.
func NewStatusRow(instanceID, source string, st State, ts time.Time) StatusRow {
	return StatusRow{
		InstanceID: instanceID,
		Source:     source,
		Pump:       st.PumpOn,
		Gate:       st.GateOpen,
		Level:      st.Level,
		Timestamp:  ts,
	}
}

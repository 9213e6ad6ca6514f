package scenario

import (
	"sort"
	"time"

	"dam-testbed/internal/process"
)

// BuiltIn returns the predefined dam deployments keyed by name.
func BuiltIn() map[string]Scenario {
	return map[string]Scenario{
		"dam-cm": {
			Name:        "dam-cm",
			Description: "Dam measured in centimetres. The pump fills slowly and the gate drains fast.",
			Process: process.Params{
				InitialLevel:   1500,
				InitialPump:    true,
				InitialGate:    false,
				PumpDelta:      10,
				GateDelta:      25,
				LowThreshold:   1700,
				HighThreshold:  2100,
				AlertThreshold: 2250,
			},
			SimTick:     500 * time.Millisecond,
			GatewayTick: 300 * time.Millisecond,
			InjectTick:  300 * time.Millisecond,
		},
		"dam-units": {
			Name:        "dam-units",
			Description: "Dam measured in raw sensor units with a wide band and a flooding alarm.",
			Process: process.Params{
				InitialLevel:   5000,
				InitialPump:    true,
				InitialGate:    false,
				PumpDelta:      100,
				GateDelta:      250,
				LowThreshold:   1000,
				HighThreshold:  10000,
				AlertThreshold: 15000,
			},
			SimTick:     500 * time.Millisecond,
			GatewayTick: 300 * time.Millisecond,
			InjectTick:  300 * time.Millisecond,
		},
	}
}

// Names lists the built-in presets in sorted order.
func Names() []string {
	var names []string
	for n := range BuiltIn() {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

package sim

import "dam-testbed/internal/process"

// Step advances the dam by one tick. The level moves first from the current
// actuators, then hysteresis control flips the actuators for the next tick,
// then the level is clamped to the register range. alert reports a level
// above a non-zero alert threshold.
func Step(st process.State, p process.Params) (next process.State, alert bool) {
	level := int(st.Level)
	if st.PumpOn {
		level += p.PumpDelta
	}
	if st.GateOpen {
		level -= p.GateDelta
	}

	next = st
	switch {
	case level > p.HighThreshold:
		next.PumpOn = false
		next.GateOpen = true
	case level < p.LowThreshold:
		next.PumpOn = true
		next.GateOpen = false
	}

	next.Level = process.Saturate(level)
	alert = p.AlertThreshold > 0 && int(next.Level) > p.AlertThreshold
	return next, alert
}

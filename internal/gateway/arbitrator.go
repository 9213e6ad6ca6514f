// Package gateway reconciles the dam actuators across the field device, the
// supervisory store and the gateway's own Modbus table.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dogmatiq/linger"

	"dam-testbed/internal/field"
	"dam-testbed/internal/logging"
	"dam-testbed/internal/loop"
	"dam-testbed/internal/output"
	"dam-testbed/internal/process"
	"dam-testbed/internal/supervisory"
)

// DefaultIOTimeout bounds each collaborator call when no timeout is configured.
const DefaultIOTimeout = 10 * time.Second

// Supervisory is the part of the HMI variable store the arbitrator uses.
type Supervisory interface {
	ReadBool(ctx context.Context, name string) (bool, error)
	WriteBool(ctx context.Context, name string, v bool) error
	WriteUInt16(ctx context.Context, name string, v uint16) error
}

type actuator struct {
	name string
	coil uint16
	node string
}

var (
	pump = actuator{name: "pump", coil: field.CoilPump, node: supervisory.NodePump}
	gate = actuator{name: "gate", coil: field.CoilGate, node: supervisory.NodeGate}
)

// Decision is the outcome of arbitrating one actuator.
type Decision struct {
	Value   bool
	Source  Source
	Changed bool // value differs from the previous snapshot
}

// Report summarizes one arbitrator tick.
type Report struct {
	Pump  Decision
	Gate  Decision
	Level uint16
}

// Config holds the optional settings of an Arbitrator.
type Config struct {
	InstanceID string
	Period     time.Duration
	IOTimeout  time.Duration
	Rules      []Rule
	Writer     output.StatusWriter
}

// Arbitrator owns the resolved snapshot and runs the synchronization tick.
type Arbitrator struct {
	field      field.Device
	super      Supervisory
	table      field.Device
	rules      []Rule
	writer     output.StatusWriter
	instanceID string
	period     time.Duration
	ioTimeout  time.Duration
	now        func() time.Time

	mu   sync.Mutex
	snap process.Snapshot
}

// New creates an Arbitrator over the field device, the supervisory store and
// the gateway table. The snapshot starts zeroed.
func New(dev field.Device, super Supervisory, table field.Device, cfg Config) *Arbitrator {
	rules := cfg.Rules
	if len(rules) == 0 {
		rules = DefaultRules
	}
	w := cfg.Writer
	if w == nil {
		w = output.Discard
	}
	return &Arbitrator{
		field:      dev,
		super:      super,
		table:      table,
		rules:      rules,
		writer:     w,
		instanceID: cfg.InstanceID,
		period:     cfg.Period,
		ioTimeout:  cfg.IOTimeout,
		now:        time.Now,
	}
}

// Snapshot returns the values last written to every view.
func (a *Arbitrator) Snapshot() process.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snap
}

// Run ticks the arbitrator until ctx is done or a tick fails.
func (a *Arbitrator) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)
	log.Info("starting arbitrator", "tick_interval", a.period, "io_timeout", a.ioTimeout)
	err := loop.Run(ctx, a.period, func(ctx context.Context) error {
		_, err := a.Tick(ctx)
		return err
	})
	log.Info("stopping arbitrator", "err", err)
	return err
}

// Tick reconciles pump then gate and republishes the level. Any collaborator
// error aborts the tick; actuators already reconciled keep their updated
// snapshot so the next tick resumes safely.
func (a *Arbitrator) Tick(ctx context.Context) (Report, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var rep Report
	var err error
	if rep.Pump, err = a.reconcile(ctx, pump, &a.snap.LastPump); err != nil {
		return rep, err
	}
	if rep.Gate, err = a.reconcile(ctx, gate, &a.snap.LastGate); err != nil {
		return rep, err
	}
	if rep.Level, err = a.republishLevel(ctx); err != nil {
		return rep, err
	}

	row := process.StatusRow{
		InstanceID: a.instanceID,
		Source:     process.SourceGateway,
		Pump:       rep.Pump.Value,
		Gate:       rep.Gate.Value,
		Level:      rep.Level,
		PumpFrom:   string(rep.Pump.Source),
		GateFrom:   string(rep.Gate.Source),
		Timestamp:  a.now(),
	}
	if werr := a.writer.WriteStatus(row); werr != nil {
		logging.FromContext(ctx).Error("status write failed", "err", werr)
	}
	return rep, nil
}

func (a *Arbitrator) reconcile(ctx context.Context, act actuator, last *bool) (Decision, error) {
	var o Observation
	err := a.bounded(ctx, func(ctx context.Context) (err error) {
		o.Field, err = field.ReadBit(ctx, a.field, act.coil)
		return err
	})
	if err != nil {
		return Decision{}, fmt.Errorf("read field %s: %w", act.name, err)
	}
	err = a.bounded(ctx, func(ctx context.Context) (err error) {
		o.Supervisory, err = a.super.ReadBool(ctx, act.node)
		return err
	})
	if err != nil {
		return Decision{}, fmt.Errorf("read supervisory %s: %w", act.name, err)
	}
	err = a.bounded(ctx, func(ctx context.Context) (err error) {
		o.Gateway, err = field.ReadBit(ctx, a.table, act.coil)
		return err
	})
	if err != nil {
		return Decision{}, fmt.Errorf("read gateway %s: %w", act.name, err)
	}

	v, src := Resolve(a.rules, o, *last)
	d := Decision{Value: v, Source: src, Changed: v != *last}

	if err := a.bounded(ctx, func(ctx context.Context) error {
		return a.field.WriteBit(ctx, act.coil, v)
	}); err != nil {
		return d, fmt.Errorf("write field %s: %w", act.name, err)
	}
	if err := a.bounded(ctx, func(ctx context.Context) error {
		return a.super.WriteBool(ctx, act.node, v)
	}); err != nil {
		return d, fmt.Errorf("write supervisory %s: %w", act.name, err)
	}
	if err := a.bounded(ctx, func(ctx context.Context) error {
		return a.table.WriteBit(ctx, act.coil, v)
	}); err != nil {
		return d, fmt.Errorf("write gateway %s: %w", act.name, err)
	}
	*last = v

	if src != SourceField {
		logging.FromContext(ctx).Info(
			fmt.Sprintf("%s client changed %s to %s", src, act.name, label(act, v)),
			"actuator", act.name, "source", string(src), "value", v,
		)
	}
	return d, nil
}

func (a *Arbitrator) republishLevel(ctx context.Context) (uint16, error) {
	var lvl uint16
	err := a.bounded(ctx, func(ctx context.Context) (err error) {
		lvl, err = field.ReadRegister(ctx, a.field, field.InputLevel)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("read field level: %w", err)
	}
	if err := a.bounded(ctx, func(ctx context.Context) error {
		return a.super.WriteUInt16(ctx, supervisory.NodeLevel, lvl)
	}); err != nil {
		return lvl, fmt.Errorf("write supervisory level: %w", err)
	}
	if err := a.bounded(ctx, func(ctx context.Context) error {
		return a.table.WriteRegisters(ctx, field.InputLevel, []uint16{lvl})
	}); err != nil {
		return lvl, fmt.Errorf("write gateway level: %w", err)
	}
	return lvl, nil
}

// bounded runs one collaborator call under the I/O timeout. An expired
// timeout is reported as field.ErrTimeout.
func (a *Arbitrator) bounded(ctx context.Context, fn func(context.Context) error) error {
	cctx, cancel := linger.ContextWithTimeout(ctx, a.ioTimeout, DefaultIOTimeout)
	defer cancel()
	err := fn(cctx)
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, field.ErrTimeout) {
		return fmt.Errorf("%w: %w", field.ErrTimeout, err)
	}
	return err
}

func label(act actuator, v bool) string {
	if act == gate {
		return process.OpenClosed(v)
	}
	return process.OnOff(v)
}

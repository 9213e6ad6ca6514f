// Package field exposes the field device (the dam PLC) as an addressable
// coil/register table, locally or over Modbus TCP.
package field

import (
	"context"
	"errors"
)

// Dam addressing convention shared by the PLC and the gateway table.
const (
	CoilPump   uint16 = 0
	CoilGate   uint16 = 1
	InputLevel uint16 = 0

	// TableSize is the number of addresses in each register space.
	TableSize uint16 = 100
)

var (
	// ErrConnectionLost reports an unreachable collaborator. It is transient.
	ErrConnectionLost = errors.New("connection lost")
	// ErrInvalidAddress reports an access outside the table bounds. It is a
	// programming error and never retried.
	ErrInvalidAddress = errors.New("invalid address")
	// ErrTimeout reports a collaborator that did not answer in time. It is
	// transient and never means "value unchanged".
	ErrTimeout = errors.New("timeout")
)

// IsTransient reports whether err is worth retrying at the process boundary.
func IsTransient(err error) bool {
	return errors.Is(err, ErrConnectionLost) || errors.Is(err, ErrTimeout)
}

// Device is the read/write surface of a field-device table. Registers are the
// input registers holding measurements.
type Device interface {
	ReadBits(ctx context.Context, addr, count uint16) ([]bool, error)
	ReadRegisters(ctx context.Context, addr, count uint16) ([]uint16, error)
	WriteBit(ctx context.Context, addr uint16, v bool) error
	WriteRegisters(ctx context.Context, addr uint16, values []uint16) error
}

// ReadBit reads a single coil.
func ReadBit(ctx context.Context, d Device, addr uint16) (bool, error) {
	bits, err := d.ReadBits(ctx, addr, 1)
	if err != nil {
		return false, err
	}
	return bits[0], nil
}

// ReadRegister reads a single input register.
func ReadRegister(ctx context.Context, d Device, addr uint16) (uint16, error) {
	regs, err := d.ReadRegisters(ctx, addr, 1)
	if err != nil {
		return 0, err
	}
	return regs[0], nil
}

package field

import (
	"context"
	"fmt"
	"sync"
)

// Table is an in-memory field-device table with fixed-size coil, discrete
// input, input register and holding register spaces.
//
// Any number of writers may share a Table. Each single address is read and
// written atomically, but there is no atomicity across addresses: a
// ReadBits(0, 2) racing a writer may observe a torn pair.
type Table struct {
	mu       sync.RWMutex
	coils    []bool
	discrete []bool
	inputs   []uint16
	holding  []uint16
}

// NewTable allocates a table with size addresses per space.
func NewTable(size uint16) *Table {
	return &Table{
		coils:    make([]bool, size),
		discrete: make([]bool, size),
		inputs:   make([]uint16, size),
		holding:  make([]uint16, size),
	}
}

func checkRange(space string, size int, addr, count uint16) error {
	if count == 0 || int(addr)+int(count) > size {
		return fmt.Errorf("%s %d+%d outside [0,%d): %w", space, addr, count, size, ErrInvalidAddress)
	}
	return nil
}

// ReadBits reads count coils starting at addr, one address at a time.
func (t *Table) ReadBits(ctx context.Context, addr, count uint16) ([]bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.readBools("coils", t.coils, addr, count)
}

// WriteBit sets a single coil.
func (t *Table) WriteBit(ctx context.Context, addr uint16, v bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.writeBools("coils", t.coils, addr, []bool{v})
}

// ReadRegisters reads count input registers starting at addr.
func (t *Table) ReadRegisters(ctx context.Context, addr, count uint16) ([]uint16, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.readWords("input registers", t.inputs, addr, count)
}

// WriteRegisters writes input registers starting at addr.
func (t *Table) WriteRegisters(ctx context.Context, addr uint16, values []uint16) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.writeWords("input registers", t.inputs, addr, values)
}

// ReadDiscrete reads count discrete inputs starting at addr.
func (t *Table) ReadDiscrete(addr, count uint16) ([]bool, error) {
	return t.readBools("discrete inputs", t.discrete, addr, count)
}

// ReadHolding reads count holding registers starting at addr.
func (t *Table) ReadHolding(addr, count uint16) ([]uint16, error) {
	return t.readWords("holding registers", t.holding, addr, count)
}

// WriteHolding writes holding registers starting at addr.
func (t *Table) WriteHolding(addr uint16, values []uint16) error {
	return t.writeWords("holding registers", t.holding, addr, values)
}

func (t *Table) readBools(space string, bits []bool, addr, count uint16) ([]bool, error) {
	if err := checkRange(space, len(bits), addr, count); err != nil {
		return nil, err
	}
	out := make([]bool, count)
	for i := range out {
		t.mu.RLock()
		out[i] = bits[int(addr)+i]
		t.mu.RUnlock()
	}
	return out, nil
}

func (t *Table) writeBools(space string, bits []bool, addr uint16, values []bool) error {
	if err := checkRange(space, len(bits), addr, uint16(len(values))); err != nil {
		return err
	}
	for i, v := range values {
		t.mu.Lock()
		bits[int(addr)+i] = v
		t.mu.Unlock()
	}
	return nil
}

func (t *Table) readWords(space string, words []uint16, addr, count uint16) ([]uint16, error) {
	if err := checkRange(space, len(words), addr, count); err != nil {
		return nil, err
	}
	out := make([]uint16, count)
	for i := range out {
		t.mu.RLock()
		out[i] = words[int(addr)+i]
		t.mu.RUnlock()
	}
	return out, nil
}

func (t *Table) writeWords(space string, words []uint16, addr uint16, values []uint16) error {
	if err := checkRange(space, len(words), addr, uint16(len(values))); err != nil {
		return err
	}
	for i, v := range values {
		t.mu.Lock()
		words[int(addr)+i] = v
		t.mu.Unlock()
	}
	return nil
}

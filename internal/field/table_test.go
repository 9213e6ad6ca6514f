package field

import (
	"context"
	"errors"
	"testing"
)

func TestTableCoils(t *testing.T) {
	ctx := context.Background()
	tbl := NewTable(TableSize)
	if err := tbl.WriteBit(ctx, CoilPump, true); err != nil {
		t.Fatalf("write pump: %v", err)
	}
	bits, err := tbl.ReadBits(ctx, CoilPump, 2)
	if err != nil {
		t.Fatalf("read coils: %v", err)
	}
	if !bits[0] || bits[1] {
		t.Fatalf("unexpected coils %v", bits)
	}
	gate, err := ReadBit(ctx, tbl, CoilGate)
	if err != nil || gate {
		t.Fatalf("ReadBit gate = %v, %v", gate, err)
	}
}

func TestTableRegisters(t *testing.T) {
	ctx := context.Background()
	tbl := NewTable(TableSize)
	if err := tbl.WriteRegisters(ctx, InputLevel, []uint16{1500}); err != nil {
		t.Fatalf("write level: %v", err)
	}
	lvl, err := ReadRegister(ctx, tbl, InputLevel)
	if err != nil || lvl != 1500 {
		t.Fatalf("ReadRegister = %d, %v", lvl, err)
	}
	if err := tbl.WriteHolding(3, []uint16{9}); err != nil {
		t.Fatalf("write holding: %v", err)
	}
	hr, err := tbl.ReadHolding(3, 1)
	if err != nil || hr[0] != 9 {
		t.Fatalf("ReadHolding = %v, %v", hr, err)
	}
}

func TestTableInvalidAddress(t *testing.T) {
	ctx := context.Background()
	tbl := NewTable(2)
	cases := []struct {
		name string
		fn   func() error
	}{
		{"read past end", func() error { _, err := tbl.ReadBits(ctx, 1, 2); return err }},
		{"zero count", func() error { _, err := tbl.ReadRegisters(ctx, 0, 0); return err }},
		{"write past end", func() error { return tbl.WriteBit(ctx, 2, true) }},
		{"registers past end", func() error { return tbl.WriteRegisters(ctx, 1, []uint16{1, 2}) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.fn()
			if !errors.Is(err, ErrInvalidAddress) {
				t.Fatalf("expected ErrInvalidAddress, got %v", err)
			}
			if IsTransient(err) {
				t.Fatalf("invalid address must not be transient")
			}
		})
	}
}

func TestTableCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tbl := NewTable(TableSize)
	if _, err := tbl.ReadBits(ctx, 0, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		in   error
		want error
	}{
		{context.DeadlineExceeded, ErrTimeout},
		{errors.New("broken pipe"), ErrConnectionLost},
	}
	for _, c := range cases {
		err := classify("op", c.in)
		if !errors.Is(err, c.want) {
			t.Errorf("classify(%v) = %v, want %v", c.in, err, c.want)
		}
		if !IsTransient(err) {
			t.Errorf("classify(%v) should be transient", c.in)
		}
	}
	if classify("op", nil) != nil {
		t.Fatalf("nil error must stay nil")
	}
}

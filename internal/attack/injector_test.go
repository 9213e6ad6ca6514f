package attack

import (
	"context"
	"errors"
	"testing"
	"time"

	"dam-testbed/internal/field"
	"dam-testbed/internal/process"
	"dam-testbed/internal/sim"
)

var damCM = process.Params{
	InitialLevel:  1500,
	InitialPump:   true,
	PumpDelta:     10,
	GateDelta:     25,
	LowThreshold:  1700,
	HighThreshold: 2100,
}

func TestInjectorTick(t *testing.T) {
	ctx := context.Background()
	tbl := field.NewTable(field.TableSize)
	if err := tbl.WriteBit(ctx, field.CoilPump, true); err != nil {
		t.Fatal(err)
	}
	inj := NewInjector(tbl, false, true, time.Second)
	if err := inj.Tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	bits, err := tbl.ReadBits(ctx, field.CoilPump, 2)
	if err != nil {
		t.Fatal(err)
	}
	if bits[0] || !bits[1] {
		t.Fatalf("coils = %v, want [false true]", bits)
	}
}

func TestInjectorTickError(t *testing.T) {
	inj := NewInjector(field.NewTable(1), true, true, time.Second)
	if err := inj.Tick(context.Background()); !errors.Is(err, field.ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress writing gate on a 1-coil table, got %v", err)
	}
}

func TestInjectorHoldsLevelDown(t *testing.T) {
	ctx := context.Background()
	tbl := field.NewTable(field.TableSize)
	s := sim.NewSimulator("plc", damCM, tbl, nil, nil, time.Second)
	if err := s.Init(ctx); err != nil {
		t.Fatal(err)
	}
	inj := NewInjector(tbl, false, false, time.Second)

	for i := 0; i < 1000; i++ {
		if err := inj.Tick(ctx); err != nil {
			t.Fatalf("inject %d: %v", i, err)
		}
		st, err := s.Tick(ctx)
		if err != nil {
			t.Fatalf("sim %d: %v", i, err)
		}
		if int(st.Level) >= damCM.LowThreshold {
			t.Fatalf("level %d reached low threshold under attack", st.Level)
		}
	}

	// attack stops; the controller recovers into the band
	var st process.State
	for i := 0; i < 100; i++ {
		var err error
		if st, err = s.Tick(ctx); err != nil {
			t.Fatalf("recover %d: %v", i, err)
		}
	}
	if int(st.Level) < damCM.LowThreshold-damCM.GateDelta {
		t.Fatalf("level %d did not recover", st.Level)
	}
}

func TestInjectorRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	inj := NewInjector(field.NewTable(field.TableSize), true, false, time.Millisecond)
	if err := inj.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
}

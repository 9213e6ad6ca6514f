package scenario

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"dam-testbed/internal/process"
)

func TestBuiltInPresets(t *testing.T) {
	for _, n := range []string{"dam-cm", "dam-units"} {
		s, err := Lookup(n)
		if err != nil {
			t.Fatalf("lookup %s: %v", n, err)
		}
		if s.Description == "" {
			t.Fatalf("preset %s missing description", n)
		}
		if err := s.Validate(); err != nil {
			t.Fatalf("preset %s invalid: %v", n, err)
		}
	}
	if diff := cmp.Diff([]string{"dam-cm", "dam-units"}, Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestDamCMValues(t *testing.T) {
	s, _ := Lookup("dam-cm")
	want := process.Params{
		InitialLevel: 1500, InitialPump: true,
		PumpDelta: 10, GateDelta: 25,
		LowThreshold: 1700, HighThreshold: 2100, AlertThreshold: 2250,
	}
	if diff := cmp.Diff(want, s.Process); diff != "" {
		t.Fatalf("dam-cm mismatch (-want +got):\n%s", diff)
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, err := Lookup("reservoir"); !errors.Is(err, ErrUnknown) {
		t.Fatalf("expected ErrUnknown, got %v", err)
	}
}

func TestLoadOverridesBase(t *testing.T) {
	s, err := Load("testdata/fast.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Name != "dam-cm-fast" || s.SimTick != 100*time.Millisecond {
		t.Fatalf("unexpected scenario %+v", s)
	}
	if s.Process.LowThreshold != 1600 || s.Process.HighThreshold != 2200 {
		t.Fatalf("thresholds not overridden: %+v", s.Process)
	}
	if s.Process.PumpDelta != 10 || s.GatewayTick != 300*time.Millisecond {
		t.Fatalf("base values lost: %+v", s)
	}
}

func TestLoadRejectsInvertedThresholds(t *testing.T) {
	if _, err := Load("testdata/inverted.yaml"); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestValidateParams(t *testing.T) {
	base := process.Params{PumpDelta: 1, GateDelta: 1, LowThreshold: 10, HighThreshold: 20}
	cases := []struct {
		name string
		mod  func(*process.Params)
		ok   bool
	}{
		{"valid", func(*process.Params) {}, true},
		{"alert above high", func(p *process.Params) { p.AlertThreshold = 30 }, true},
		{"alert at high", func(p *process.Params) { p.AlertThreshold = 20 }, false},
		{"equal thresholds", func(p *process.Params) { p.LowThreshold = 20 }, false},
		{"negative delta", func(p *process.Params) { p.GateDelta = -1 }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := base
			tc.mod(&p)
			if err := ValidateParams(p); (err == nil) != tc.ok {
				t.Fatalf("ValidateParams(%+v) = %v", p, err)
			}
		})
	}
}

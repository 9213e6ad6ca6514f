// Package scenario describes dam deployments: process dynamics plus the
// periods of the simulator, gateway and injector loops.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"dam-testbed/internal/process"
)

// ErrUnknown reports a scenario name with no built-in preset.
var ErrUnknown = errors.New("unknown scenario")

// Scenario is one deployment preset.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Base        string         `yaml:"base,omitempty"` // built-in preset this one overrides
	Process     process.Params `yaml:"process"`
	SimTick     time.Duration  `yaml:"sim_tick"`
	GatewayTick time.Duration  `yaml:"gateway_tick"`
	InjectTick  time.Duration  `yaml:"inject_tick"`
}

// Lookup returns a built-in preset by name.
func Lookup(name string) (Scenario, error) {
	s, ok := BuiltIn()[name]
	if !ok {
		return Scenario{}, fmt.Errorf("%q: %w", name, ErrUnknown)
	}
	return s, nil
}

// Load reads a YAML scenario definition from disk. When the file names a
// base preset, fields absent from the file keep the preset's values.
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var head struct {
		Base string `yaml:"base"`
	}
	if err := yaml.Unmarshal(b, &head); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	var s Scenario
	if head.Base != "" {
		if s, err = Lookup(head.Base); err != nil {
			return nil, err
		}
	}
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the dynamics and loop periods.
func (s Scenario) Validate() error {
	if err := ValidateParams(s.Process); err != nil {
		return fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	for name, d := range map[string]time.Duration{
		"sim_tick":     s.SimTick,
		"gateway_tick": s.GatewayTick,
		"inject_tick":  s.InjectTick,
	} {
		if d <= 0 {
			return fmt.Errorf("scenario %s: %s must be positive, got %s", s.Name, name, d)
		}
	}
	return nil
}

// ValidateParams checks deltas and the ordering low < high < alert.
func ValidateParams(p process.Params) error {
	switch {
	case p.PumpDelta < 0 || p.GateDelta < 0:
		return fmt.Errorf("deltas must not be negative (pump %d, gate %d)", p.PumpDelta, p.GateDelta)
	case p.LowThreshold >= p.HighThreshold:
		return fmt.Errorf("low threshold %d must be below high threshold %d", p.LowThreshold, p.HighThreshold)
	case p.AlertThreshold != 0 && p.AlertThreshold <= p.HighThreshold:
		return fmt.Errorf("alert threshold %d must be above high threshold %d", p.AlertThreshold, p.HighThreshold)
	case p.HighThreshold > process.MaxLevel || p.LowThreshold < process.MinLevel:
		return fmt.Errorf("thresholds must lie within [%d, %d]", process.MinLevel, process.MaxLevel)
	}
	return nil
}

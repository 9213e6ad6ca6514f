// YAML config loader with CUE validation integration
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"dam-testbed/internal/process"
	"dam-testbed/internal/scenario"
)

// DefaultScenario is used when the config names none.
const DefaultScenario = "dam-cm"

// PLC configures the field device process.
type PLC struct {
	Listen     string        `yaml:"listen"`
	UnitID     uint8         `yaml:"unit_id"`
	Tick       time.Duration `yaml:"tick,omitempty"`
	MaxClients uint          `yaml:"max_clients,omitempty"`
}

// Gateway configures the supervisory client.
type Gateway struct {
	PLCAddress string            `yaml:"plc_address"`
	UnitID     uint8             `yaml:"unit_id"`
	Listen     string            `yaml:"listen"`
	AdminAddr  string            `yaml:"admin_addr"`
	Tick       time.Duration     `yaml:"tick,omitempty"`
	IOTimeout  time.Duration     `yaml:"io_timeout,omitempty"`
	MaxRetries int               `yaml:"max_retries"`
	Security   bool              `yaml:"security"`
	Users      map[string]string `yaml:"users,omitempty"`
}

// Attacker configures the adversarial writer.
type Attacker struct {
	Target     string        `yaml:"target"`
	UnitID     uint8         `yaml:"unit_id"`
	Tick       time.Duration `yaml:"tick,omitempty"`
	MaxRetries int           `yaml:"max_retries"`
	Pump       bool          `yaml:"pump"`
	Gate       bool          `yaml:"gate"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the root configuration shared by every subcommand.
type Config struct {
	Scenario string          `yaml:"scenario"`
	Process  *process.Params `yaml:"process,omitempty"` // replaces the scenario dynamics
	Output   string          `yaml:"output"`
	PLC      PLC             `yaml:"plc"`
	Gateway  Gateway         `yaml:"gateway"`
	Attacker Attacker        `yaml:"attacker"`
	Log      Log             `yaml:"log"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Scenario: DefaultScenario,
		Output:   "auto",
		PLC: PLC{
			Listen:     "0.0.0.0:502",
			MaxClients: 10,
		},
		Gateway: Gateway{
			PLCAddress: "localhost:502",
			Listen:     "0.0.0.0:5020",
			AdminAddr:  ":8080",
			IOTimeout:  10 * time.Second,
			MaxRetries: 3,
			Users:      map[string]string{"fuxa": "fuxa"},
		},
		Attacker: Attacker{
			Target:     "localhost:502",
			MaxRetries: 3,
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// Load reads the YAML config at path on top of Default, validates it with the
// embedded CUE schema, applies environment overrides and checks the result.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := ValidateWithCue(path, data); err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides the config from PLC_ADDRESS, TICK_INTERVAL and
// GATEWAY_SECURITY.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PLC_ADDRESS"); ok && v != "" {
		c.Gateway.PLCAddress = v
		c.Attacker.Target = v
	}
	if v, ok := lookup("TICK_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TICK_INTERVAL: %w", err)
		}
		c.PLC.Tick = d
	}
	if v, ok := lookup("GATEWAY_SECURITY"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid GATEWAY_SECURITY: %w", err)
		}
		c.Gateway.Security = b
	}
	return nil
}

// Resolve returns the selected scenario with the config overrides applied.
func (c *Config) Resolve() (scenario.Scenario, error) {
	name := c.Scenario
	if name == "" {
		name = DefaultScenario
	}
	s, err := scenario.Lookup(name)
	if err != nil {
		loaded, lerr := scenario.Load(name)
		if errors.Is(lerr, fs.ErrNotExist) {
			return scenario.Scenario{}, fmt.Errorf("scenario %s: %w", name, err)
		}
		if lerr != nil {
			return scenario.Scenario{}, fmt.Errorf("scenario %s: %w", name, lerr)
		}
		s = *loaded
	}
	if c.Process != nil {
		s.Process = *c.Process
	}
	if c.PLC.Tick > 0 {
		s.SimTick = c.PLC.Tick
	}
	if c.Gateway.Tick > 0 {
		s.GatewayTick = c.Gateway.Tick
	}
	if c.Attacker.Tick > 0 {
		s.InjectTick = c.Attacker.Tick
	}
	return s, s.Validate()
}

// Validate checks a config built in code or loaded from disk.
func (c *Config) Validate() error {
	switch c.Output {
	case "", "auto", "text", "json", "tui", "none":
	default:
		return fmt.Errorf("unknown output %q", c.Output)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.Gateway.MaxRetries < 0 || c.Attacker.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	if c.Gateway.Security && len(c.Gateway.Users) == 0 {
		return fmt.Errorf("gateway security requires at least one user")
	}
	if _, err := c.Resolve(); err != nil {
		return err
	}
	return nil
}

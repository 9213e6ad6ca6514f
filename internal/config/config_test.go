package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dam-testbed/internal/scenario"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dam.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoadConfig_Valid(t *testing.T) {
	path := writeConfig(t, `
scenario: dam-units
output: json
plc:
  listen: 127.0.0.1:1502
  tick: 250ms
gateway:
  plc_address: 127.0.0.1:1502
  io_timeout: 2s
  security: true
  users:
    operator: secret
attacker:
  pump: true
log:
  level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Scenario != "dam-units" || cfg.Output != "json" || cfg.PLC.Listen != "127.0.0.1:1502" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Gateway.IOTimeout != 2*time.Second || !cfg.Gateway.Security || cfg.Gateway.Users["operator"] != "secret" {
		t.Errorf("unexpected gateway config: %+v", cfg.Gateway)
	}
	// unspecified fields keep their defaults
	if cfg.Gateway.AdminAddr != ":8080" || cfg.Gateway.MaxRetries != 3 {
		t.Errorf("defaults lost: %+v", cfg.Gateway)
	}
	if !cfg.Attacker.Pump || cfg.Attacker.MaxRetries != 3 {
		t.Errorf("unexpected attacker config: %+v", cfg.Attacker)
	}
	s, err := cfg.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if s.SimTick != 250*time.Millisecond || s.Process.InitialLevel != 5000 {
		t.Errorf("unexpected scenario: %+v", s)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s, err := cfg.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if s.Name != DefaultScenario || s.SimTick != 500*time.Millisecond {
		t.Fatalf("unexpected default scenario %+v", s)
	}
}

func TestLoadRejectsSchemaViolations(t *testing.T) {
	cases := map[string]string{
		"unknown field":    "plc:\n  port: 502\n",
		"bad output":       "output: xml\n",
		"inverted band":    "process:\n  pump_delta: 1\n  gate_delta: 1\n  low_threshold: 10\n  high_threshold: 5\n",
		"alert below high": "process:\n  pump_delta: 1\n  gate_delta: 1\n  low_threshold: 1\n  high_threshold: 5\n  alert_threshold: 4\n",
		"bad duration":     "gateway:\n  tick: soon\n",
		"bad address":      "gateway:\n  plc_address: plc\n",
		"negative retries": "gateway:\n  max_retries: -1\n",
		"attacker retries": "attacker:\n  max_retries: -2\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatalf("expected error for %q", body)
			}
		})
	}
}

func TestProcessOverride(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
process:
  initial_level: 100
  pump_delta: 5
  gate_delta: 5
  low_threshold: 50
  high_threshold: 150
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s, err := cfg.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if s.Process.InitialLevel != 100 || s.Process.HighThreshold != 150 || s.Process.AlertThreshold != 0 {
		t.Fatalf("process not overridden: %+v", s.Process)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PLC_ADDRESS":      "10.0.0.5:502",
		"TICK_INTERVAL":    "1s",
		"GATEWAY_SECURITY": "true",
	}
	cfg := Default()
	if err := cfg.ApplyEnv(func(k string) (string, bool) { v, ok := env[k]; return v, ok }); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Gateway.PLCAddress != "10.0.0.5:502" || cfg.Attacker.Target != "10.0.0.5:502" {
		t.Errorf("address not applied: %+v", cfg)
	}
	if cfg.PLC.Tick != time.Second || !cfg.Gateway.Security {
		t.Errorf("env not applied: %+v", cfg)
	}

	env["TICK_INTERVAL"] = "fast"
	if err := Default().ApplyEnv(func(k string) (string, bool) { v, ok := env[k]; return v, ok }); err == nil || !strings.Contains(err.Error(), "TICK_INTERVAL") {
		t.Fatalf("expected TICK_INTERVAL error, got %v", err)
	}
}

func TestValidateInCode(t *testing.T) {
	cfg := Default()
	cfg.Scenario = "reservoir"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected unknown scenario error")
	}
	cfg = Default()
	cfg.Gateway.Security = true
	cfg.Gateway.Users = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected missing users error")
	}
}

func TestAttackerRetriesIndependent(t *testing.T) {
	cfg, err := Load(writeConfig(t, "gateway:\n  max_retries: 1\nattacker:\n  max_retries: 7\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gateway.MaxRetries != 1 || cfg.Attacker.MaxRetries != 7 {
		t.Fatalf("retries gateway=%d attacker=%d", cfg.Gateway.MaxRetries, cfg.Attacker.MaxRetries)
	}
}

func TestResolveReportsScenarioFileErrors(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"bad yaml":      "name: broken\nprocess: [\n",
		"inverted band": "name: inverted\nprocess:\n  pump_delta: 10\n  gate_delta: 25\n  low_threshold: 2100\n  high_threshold: 1700\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(name, " ", "-")+".yaml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			cfg := Default()
			cfg.Scenario = path
			_, err := cfg.Resolve()
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, scenario.ErrUnknown) {
				t.Fatalf("file error reported as unknown scenario: %v", err)
			}
		})
	}

	cfg := Default()
	cfg.Scenario = "reservoir"
	if _, err := cfg.Resolve(); !errors.Is(err, scenario.ErrUnknown) {
		t.Fatalf("expected ErrUnknown, got %v", err)
	}
}

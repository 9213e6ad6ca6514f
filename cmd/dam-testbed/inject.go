package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dam-testbed/internal/attack"
	"dam-testbed/internal/field"
	"dam-testbed/internal/process"
)

var (
	injTarget string
	injPump   bool
	injGate   bool
	injTick   time.Duration
)

var injectCmd = &cobra.Command{
	Use:   "inject",
	Short: "Force the pump and gate coils on the PLC, bypassing the gateway",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		flags := cmd.Flags()
		if flags.Changed("target") {
			cfg.Attacker.Target = injTarget
		}
		if flags.Changed("pump") {
			cfg.Attacker.Pump = injPump
		}
		if flags.Changed("gate") {
			cfg.Attacker.Gate = injGate
		}
		if flags.Changed("tick") {
			cfg.Attacker.Tick = injTick
		}
		sc, err := cfg.Resolve()
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		client, err := field.NewClient(cfg.Attacker.Target, cfg.Attacker.UnitID, field.DefaultTimeout)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := client.Close(); err == nil {
				err = cerr
			}
		}()

		fmt.Fprintf(cmd.OutOrStdout(), "forcing pump: %s, gate: %s on %s\n",
			process.OnOff(cfg.Attacker.Pump), process.OpenClosed(cfg.Attacker.Gate), cfg.Attacker.Target)

		inj := attack.NewInjector(client, cfg.Attacker.Pump, cfg.Attacker.Gate, sc.InjectTick)
		return runTasks(ctx, supervised("injector", client, cfg.Attacker.MaxRetries, inj.Run))
	},
}

func init() {
	f := injectCmd.Flags()
	f.StringVar(&injTarget, "target", "localhost:502", "PLC Modbus TCP address")
	f.BoolVar(&injPump, "pump", false, "Pump value to force (on when set)")
	f.BoolVar(&injGate, "gate", false, "Gate value to force (open when set)")
	f.DurationVar(&injTick, "tick", 0, "Injection interval (defaults to the scenario's)")
}

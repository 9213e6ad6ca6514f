package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"dam-testbed/internal/admin"
	"dam-testbed/internal/attack"
	"dam-testbed/internal/field"
	"dam-testbed/internal/gateway"
	"dam-testbed/internal/process"
	"dam-testbed/internal/sim"
)

var (
	tbAttack     bool
	tbAttackPump bool
	tbAttackGate bool
	tbServe      bool
	tbAdmin      string
)

var testbedCmd = &cobra.Command{
	Use:   "testbed",
	Short: "Run PLC, gateway and optionally the attacker in one process over in-memory tables",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		flags := cmd.Flags()
		if flags.Changed("attack-pump") {
			cfg.Attacker.Pump = tbAttackPump
		}
		if flags.Changed("attack-gate") {
			cfg.Attacker.Gate = tbAttackGate
		}
		if flags.Changed("admin") {
			cfg.Gateway.AdminAddr = tbAdmin
		}
		sc, err := cfg.Resolve()
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		sw, aw, cleanup, err := openWriters(cfg.Output, "Testbed "+sc.Name, sc.Process)
		if err != nil {
			return err
		}
		closers := []io.Closer{closerFunc(cleanup)}
		defer func() {
			if cerr := closeAll(closers...); err == nil {
				err = cerr
			}
		}()

		id := instanceID()
		plcTable := field.NewTable(field.TableSize)
		gwTable := field.NewTable(field.TableSize)
		store, err := gateway.NewSupervisoryStore(process.State{})
		if err != nil {
			return err
		}
		adm := admin.NewServer(store, admin.Options{Security: cfg.Gateway.Security, Users: cfg.Gateway.Users})

		simulator := sim.NewSimulator(id, sc.Process, plcTable, sw, aw, sc.SimTick)
		if err := simulator.Init(ctx); err != nil {
			return err
		}
		arb := gateway.New(plcTable, store, gwTable, gateway.Config{
			InstanceID: id,
			Period:     sc.GatewayTick,
			IOTimeout:  cfg.Gateway.IOTimeout,
			Writer:     adm,
		})

		if tbServe {
			for _, s := range []struct {
				addr string
				tbl  *field.Table
			}{{cfg.PLC.Listen, plcTable}, {cfg.Gateway.Listen, gwTable}} {
				srv, err := field.NewServer(s.addr, s.tbl, cfg.PLC.MaxClients)
				if err != nil {
					return err
				}
				if err := srv.Start(); err != nil {
					return err
				}
				closers = append(closers, srv)
				logger.Info("serving table", "addr", s.addr)
			}
		}

		tasks := []task{
			{name: "simulator", run: simulator.Run},
			{name: "arbitrator", run: arb.Run},
		}
		if cfg.Gateway.AdminAddr != "" {
			tasks = append(tasks, task{name: "admin", run: func(ctx context.Context) error {
				return adm.Start(ctx, cfg.Gateway.AdminAddr)
			}})
		}
		if tbAttack {
			inj := attack.NewInjector(plcTable, cfg.Attacker.Pump, cfg.Attacker.Gate, sc.InjectTick)
			tasks = append(tasks, task{name: "injector", run: inj.Run})
		}
		return runTasks(ctx, tasks...)
	},
}

func init() {
	f := testbedCmd.Flags()
	f.BoolVar(&tbAttack, "attack", false, "Run the attacker against the in-memory PLC table")
	f.BoolVar(&tbAttackPump, "attack-pump", false, "Pump value the attacker forces")
	f.BoolVar(&tbAttackGate, "attack-gate", false, "Gate value the attacker forces")
	f.BoolVar(&tbServe, "serve", false, "Also serve the PLC and gateway tables over Modbus TCP")
	f.StringVar(&tbAdmin, "admin", ":8080", "Supervisory HTTP listen address (empty disables)")
}

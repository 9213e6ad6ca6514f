package main

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"dam-testbed/internal/admin"
	"dam-testbed/internal/field"
	"dam-testbed/internal/gateway"
	"dam-testbed/internal/output"
	"dam-testbed/internal/process"
)

var (
	gwPLC      string
	gwListen   string
	gwAdmin    string
	gwTick     time.Duration
	gwSecurity bool
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the supervisory gateway between the PLC, HMI clients and SCADA clients",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		flags := cmd.Flags()
		if flags.Changed("plc") {
			cfg.Gateway.PLCAddress = gwPLC
		}
		if flags.Changed("listen") {
			cfg.Gateway.Listen = gwListen
		}
		if flags.Changed("admin") {
			cfg.Gateway.AdminAddr = gwAdmin
		}
		if flags.Changed("tick") {
			cfg.Gateway.Tick = gwTick
		}
		if flags.Changed("security") {
			cfg.Gateway.Security = gwSecurity
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		sc, err := cfg.Resolve()
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		sw, _, cleanup, err := openWriters(cfg.Output, "Gateway "+sc.Name, sc.Process)
		if err != nil {
			return err
		}
		closers := []io.Closer{closerFunc(cleanup)}
		defer func() {
			if cerr := closeAll(closers...); err == nil {
				err = cerr
			}
		}()

		client, err := field.NewClient(cfg.Gateway.PLCAddress, cfg.Gateway.UnitID, cfg.Gateway.IOTimeout)
		if err != nil {
			return err
		}
		closers = append(closers, client)

		gwTable := field.NewTable(field.TableSize)
		gwSrv, err := field.NewServer(cfg.Gateway.Listen, gwTable, 0)
		if err != nil {
			return err
		}
		if err := gwSrv.Start(); err != nil {
			return err
		}
		closers = append(closers, gwSrv)

		store, err := gateway.NewSupervisoryStore(process.State{})
		if err != nil {
			return err
		}
		adm := admin.NewServer(store, admin.Options{Security: cfg.Gateway.Security, Users: cfg.Gateway.Users})
		arb := gateway.New(client, store, gwTable, gateway.Config{
			InstanceID: instanceID(),
			Period:     sc.GatewayTick,
			IOTimeout:  cfg.Gateway.IOTimeout,
			Writer:     output.NewMultiWriter([]output.StatusWriter{sw, adm}, nil),
		})
		logger.Info("gateway started",
			"plc", cfg.Gateway.PLCAddress,
			"modbus_listen", cfg.Gateway.Listen,
			"admin_addr", cfg.Gateway.AdminAddr,
			"security", cfg.Gateway.Security)

		return runTasks(ctx,
			task{name: "admin", run: func(ctx context.Context) error { return adm.Start(ctx, cfg.Gateway.AdminAddr) }},
			supervised("arbitrator", client, cfg.Gateway.MaxRetries, arb.Run),
		)
	},
}

func init() {
	f := gatewayCmd.Flags()
	f.StringVar(&gwPLC, "plc", "localhost:502", "PLC Modbus TCP address")
	f.StringVar(&gwListen, "listen", "0.0.0.0:5020", "Gateway Modbus TCP listen address for SCADA clients")
	f.StringVar(&gwAdmin, "admin", ":8080", "Supervisory HTTP listen address for HMI clients")
	f.DurationVar(&gwTick, "tick", 0, "Arbitrator tick interval (defaults to the scenario's)")
	f.BoolVar(&gwSecurity, "security", false, "Require HTTP basic auth on the supervisory surface")
}

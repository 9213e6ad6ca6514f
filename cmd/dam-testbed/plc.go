package main

import (
	"io"
	"time"

	"github.com/spf13/cobra"

	"dam-testbed/internal/field"
	"dam-testbed/internal/sim"
)

var (
	plcListen string
	plcTick   time.Duration
)

var plcCmd = &cobra.Command{
	Use:   "plc",
	Short: "Run the dam PLC: process simulator plus Modbus TCP server",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		if cmd.Flags().Changed("listen") {
			cfg.PLC.Listen = plcListen
		}
		if cmd.Flags().Changed("tick") {
			cfg.PLC.Tick = plcTick
		}
		sc, err := cfg.Resolve()
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		sw, aw, cleanup, err := openWriters(cfg.Output, "PLC "+sc.Name, sc.Process)
		if err != nil {
			return err
		}
		closers := []io.Closer{closerFunc(cleanup)}
		defer func() {
			if cerr := closeAll(closers...); err == nil {
				err = cerr
			}
		}()

		tbl := field.NewTable(field.TableSize)
		simulator := sim.NewSimulator(instanceID(), sc.Process, tbl, sw, aw, sc.SimTick)
		if err := simulator.Init(ctx); err != nil {
			return err
		}

		srv, err := field.NewServer(cfg.PLC.Listen, tbl, cfg.PLC.MaxClients)
		if err != nil {
			return err
		}
		if err := srv.Start(); err != nil {
			return err
		}
		closers = append(closers, srv)
		logger.Info("plc listening", "addr", cfg.PLC.Listen, "scenario", sc.Name)

		return runTasks(ctx, task{name: "simulator", run: simulator.Run})
	},
}

func init() {
	plcCmd.Flags().StringVar(&plcListen, "listen", "0.0.0.0:502", "Modbus TCP listen address")
	plcCmd.Flags().DurationVar(&plcTick, "tick", 0, "Simulator tick interval (defaults to the scenario's)")
}

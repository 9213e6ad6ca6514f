package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"dam-testbed/internal/config"
	"dam-testbed/internal/logging"
)

var (
	configPath   string
	scenarioName string
	logLevel     string
	logFormat    string
	outputMode   string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dam-testbed",
	Short: "Dam ICS testbed",
	Long: "dam-testbed simulates a dam PLC, a supervisory gateway that reconciles\n" +
		"HMI and SCADA commands with the field device, and an attacker writing\n" +
		"straight to the PLC.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("scenario") {
			cfg.Scenario = scenarioName
		}
		if flags.Changed("log-level") {
			cfg.Log.Level = logLevel
		}
		if flags.Changed("log-format") {
			cfg.Log.Format = logFormat
		}
		if flags.Changed("output") {
			cfg.Output = outputMode
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		cfg.Output = resolveMode(cfg.Output, term.IsTerminal(int(os.Stdout.Fd())))

		var out io.Writer = os.Stderr
		if cfg.Output == "tui" {
			out = io.Discard
		}
		logger, err = logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: out})
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "dam-testbed.yaml", "Path to configuration YAML (defaults apply if missing)")
	pf.StringVar(&scenarioName, "scenario", config.DefaultScenario, "Built-in scenario name or path to a scenario YAML")
	pf.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
	pf.StringVar(&outputMode, "output", "auto", "Status output (auto, text, json, tui, none)")

	rootCmd.AddCommand(plcCmd)
	rootCmd.AddCommand(gatewayCmd)
	rootCmd.AddCommand(injectCmd)
	rootCmd.AddCommand(testbedCmd)
	rootCmd.AddCommand(scenariosCmd)
}

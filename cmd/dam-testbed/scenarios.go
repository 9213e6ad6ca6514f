package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"dam-testbed/internal/scenario"
)

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List the built-in dam scenarios",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), scenarioTable())
		return nil
	},
}

func scenarioTable() string {
	t := table.New().Headers("NAME", "LEVEL", "PUMP", "GATE", "LOW", "HIGH", "ALERT", "SIM", "GATEWAY", "DESCRIPTION")
	presets := scenario.BuiltIn()
	for _, name := range scenario.Names() {
		s := presets[name]
		p := s.Process
		alert := "-"
		if p.AlertThreshold > 0 {
			alert = fmt.Sprint(p.AlertThreshold)
		}
		t.Row(
			s.Name,
			fmt.Sprint(p.InitialLevel),
			fmt.Sprintf("+%d", p.PumpDelta),
			fmt.Sprintf("-%d", p.GateDelta),
			fmt.Sprint(p.LowThreshold),
			fmt.Sprint(p.HighThreshold),
			alert,
			s.SimTick.String(),
			s.GatewayTick.String(),
			s.Description,
		)
	}
	return t.String()
}

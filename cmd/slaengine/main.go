package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/slaengine/internal/cli"
	"github.com/example/slaengine/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "slaengine",
		Short:   "SLA compliance tracking and escalation for work items",
		Version: version.String(),
		Long: `slaengine tracks turnaround-time SLAs on work items. Workflow events start
and stop the SLA clock, sweeps recompute compliance, and breached items are
escalated to role holders at most once per level.`,
		SilenceUsage: true,
	}
	cli.Bootstrap(rootCmd)

	// Setup
	rootCmd.AddCommand(cli.InitCmd())

	// Engine
	rootCmd.AddCommand(cli.EventCmd())
	rootCmd.AddCommand(cli.SweepCmd())
	rootCmd.AddCommand(cli.ServeCmd())

	// Entities
	rootCmd.AddCommand(cli.ItemCmd())
	rootCmd.AddCommand(cli.PolicyCmd())
	rootCmd.AddCommand(cli.EscalationCmd())
	rootCmd.AddCommand(cli.UserCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/slaengine/internal/wire"
)

// SweepCmd returns the sweep command
func SweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one compliance sweep",
		Long: `Recompute every open SLA, most overdue first, and send any escalation
that has become due. Safe to run while 'serve' is running.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.ItemAdapter().Sweep(NewContext())
		},
	}
}

// EventCmd returns the event command
func EventCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "event [work-item-id] [event]",
		Short: "Apply a workflow event to a work item",
		Long: `Apply a workflow transition to a work item. A start event starts the SLA
clock, a stop event closes it, and any other event refreshes progress.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.ItemAdapter().Event(NewContext(), args[0], args[1])
		},
	}
}

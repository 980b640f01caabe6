package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/slaengine/internal/ports/primary"
	"github.com/example/slaengine/internal/wire"
)

// EscalationCmd returns the escalation command
func EscalationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "escalation",
		Short: "Inspect the escalation ledger",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List escalations",
		RunE: func(cmd *cobra.Command, args []string) error {
			item, _ := cmd.Flags().GetString("item")
			status, _ := cmd.Flags().GetString("status")
			return wire.EscalationAdapter().List(NewContext(), primary.EscalationFilters{
				WorkItemID: item,
				Status:     status,
			})
		},
	}
	list.Flags().String("item", "", "filter by work item")
	list.Flags().String("status", "", "filter by status (pending, sent)")

	cmd.AddCommand(list)
	return cmd
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/slaengine/internal/ports/primary"
	"github.com/example/slaengine/internal/wire"
)

// ItemCmd returns the item command
func ItemCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Manage work items",
	}
	cmd.AddCommand(itemAddCmd())
	cmd.AddCommand(itemShowCmd())
	cmd.AddCommand(itemListCmd())
	return cmd
}

func itemAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [work-item-id]",
		Short: "Register a work item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, _ := cmd.Flags().GetString("state")
			serviceType, _ := cmd.Flags().GetString("service-type")
			workshop, _ := cmd.Flags().GetString("workshop")
			policy, _ := cmd.Flags().GetString("policy")

			return wire.ItemAdapter().Add(NewContext(), primary.CreateItemRequest{
				ID:           args[0],
				CurrentState: state,
				ServiceType:  serviceType,
				Workshop:     workshop,
				PolicyID:     policy,
			})
		},
	}
	cmd.Flags().String("state", "New", "current workflow state")
	cmd.Flags().String("service-type", "", "service type used for rule matching")
	cmd.Flags().String("workshop", "", "workshop used for rule matching")
	cmd.Flags().String("policy", "", "explicit policy ID (default policy when empty)")
	return cmd
}

func itemShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [work-item-id]",
		Short: "Show a work item's SLA",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.ItemAdapter().Show(NewContext(), args[0])
			return err
		},
	}
}

func itemListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List work items",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")
			breached, _ := cmd.Flags().GetBool("breached")
			open, _ := cmd.Flags().GetBool("open")
			limit, _ := cmd.Flags().GetInt("limit")

			return wire.ItemAdapter().List(NewContext(), primary.ItemFilters{
				Status:       status,
				BreachedOnly: breached,
				OpenOnly:     open,
				Limit:        limit,
			})
		},
	}
	cmd.Flags().String("status", "", "filter by status (green, yellow, red)")
	cmd.Flags().Bool("breached", false, "only breached items")
	cmd.Flags().Bool("open", false, "only items with a running clock")
	cmd.Flags().Int("limit", 0, "maximum number of items")
	return cmd
}

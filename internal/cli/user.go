package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/slaengine/internal/wire"
)

// UserCmd returns the user command
func UserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage escalation recipients",
	}

	add := &cobra.Command{
		Use:   "add [user-id] [email]",
		Short: "Register a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := NewContext()
			roles, _ := cmd.Flags().GetStringSlice("role")
			svc := wire.UserService()
			if err := svc.AddUser(ctx, args[0], args[1]); err != nil {
				return err
			}
			for _, role := range roles {
				if err := svc.GrantRole(ctx, args[0], role); err != nil {
					return err
				}
			}
			fmt.Printf("✓ Added user %s <%s>\n", args[0], args[1])
			return nil
		},
	}
	add.Flags().StringSlice("role", nil, "role to grant (repeatable)")

	grant := &cobra.Command{
		Use:   "grant [user-id] [role]",
		Short: "Grant a role to a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := wire.UserService().GrantRole(NewContext(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("✓ Granted %s to %s\n", args[1], args[0])
			return nil
		},
	}

	cmd.AddCommand(add, grant, userToggleCmd("enable", true), userToggleCmd("disable", false))
	cmd.AddCommand(&cobra.Command{
		Use:   "recipients [role]",
		Short: "Show who escalations for a role would reach",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			emails, err := wire.UserService().RecipientsForRole(NewContext(), args[0])
			if err != nil {
				return err
			}
			if len(emails) == 0 {
				fmt.Printf("No enabled users hold role %s\n", args[0])
				return nil
			}
			fmt.Println(strings.Join(emails, "\n"))
			return nil
		},
	})
	return cmd
}

func userToggleCmd(verb string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " [user-id]",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := wire.UserService().SetUserEnabled(NewContext(), args[0], enabled); err != nil {
				return err
			}
			fmt.Printf("✓ User %s %sd\n", args[0], verb)
			return nil
		},
	}
}

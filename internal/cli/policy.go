package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/slaengine/internal/adapters/policyfile"
	"github.com/example/slaengine/internal/core/sla"
	"github.com/example/slaengine/internal/wire"
)

// PolicyCmd returns the policy command
func PolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Manage SLA policies",
		Long:  "Load, inspect and remove SLA policies. Policy files are YAML.",
	}
	cmd.AddCommand(policyLoadCmd())
	cmd.AddCommand(policyValidateCmd())
	cmd.AddCommand(policyListCmd())
	cmd.AddCommand(policyShowCmd())
	cmd.AddCommand(policyExportCmd())
	cmd.AddCommand(policyDeleteCmd())
	return cmd
}

func policyLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load [file]",
		Short: "Import policies from a YAML file",
		Long: `Import every policy in the file, replacing stored policies with the same ID.
Nothing is stored if any policy is invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policies, err := policyfile.Load(args[0])
			if err != nil {
				return err
			}
			if err := wire.PolicyService().ImportPolicies(NewContext(), policies); err != nil {
				return err
			}
			fmt.Printf("✓ Imported %d policies from %s\n", len(policies), args[0])
			return nil
		},
	}
}

func policyValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a policy file without importing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policies, err := policyfile.Load(args[0])
			if err != nil {
				return err
			}
			for _, p := range policies {
				fmt.Printf("✓ %s: %d rules%s\n", p.ID, len(p.Rules), defaultMarker(p))
			}
			return nil
		},
	}
}

func policyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List policies",
		RunE: func(cmd *cobra.Command, args []string) error {
			policies, err := wire.PolicyService().ListPolicies(NewContext())
			if err != nil {
				return fmt.Errorf("failed to list policies: %w", err)
			}
			if len(policies) == 0 {
				fmt.Println("No policies found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tENABLED\tDEFAULT\tWARN\tCRITICAL\tGRACE\tRULES")
			fmt.Fprintln(w, "--\t-------\t-------\t----\t--------\t-----\t-----")
			for _, p := range policies {
				fmt.Fprintf(w, "%s\t%t\t%t\t%d%%\t%d%%\t%dm\t%d\n",
					p.ID, p.Enabled, p.IsDefault, p.WarnThresholdPct, p.CriticalThresholdPct,
					p.BreachGraceMinutes, len(p.Rules))
			}
			w.Flush()
			return nil
		},
	}
}

func policyShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [policy-id]",
		Short: "Print a policy as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := wire.PolicyService().GetPolicy(NewContext(), args[0])
			if err != nil {
				return fmt.Errorf("policy not found: %w", err)
			}
			return printPolicies([]*sla.Policy{p})
		},
	}
}

func policyExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print every stored policy as a loadable YAML document",
		RunE: func(cmd *cobra.Command, args []string) error {
			policies, err := wire.PolicyService().ListPolicies(NewContext())
			if err != nil {
				return err
			}
			return printPolicies(policies)
		},
	}
}

func policyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [policy-id]",
		Short: "Delete a policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := wire.PolicyService().DeletePolicy(NewContext(), args[0]); err != nil {
				return fmt.Errorf("failed to delete policy: %w", err)
			}
			fmt.Printf("✓ Policy %s deleted\n", args[0])
			return nil
		},
	}
}

func printPolicies(policies []*sla.Policy) error {
	data, err := policyfile.Marshal(policies)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func defaultMarker(p *sla.Policy) string {
	switch {
	case !p.Enabled:
		return " (disabled)"
	case p.IsDefault:
		return " (default)"
	}
	return ""
}

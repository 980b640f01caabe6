package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/slaengine/internal/config"
	"github.com/example/slaengine/internal/db"
	"github.com/example/slaengine/internal/wire"
)

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the SLA engine database and config",
		Long: `Create the SLA database with the required schema and write
` + config.DirName + `/config.json with the effective settings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, _ := cmd.Flags().GetBool("seed")

			fmt.Printf("Initializing SLA database at %s\n", current.DBPath)
			a := wire.Current()
			fmt.Println("✓ Database initialized successfully")

			if err := config.SaveConfig(configDir, current); err != nil {
				return err
			}
			fmt.Printf("✓ Config written to %s/%s/config.json\n", configDir, config.DirName)

			if seed {
				if err := db.SeedFixtures(a.DB); err != nil {
					return fmt.Errorf("failed to seed database: %w", err)
				}
				fmt.Println("✓ Seeded demo policy POL-STD, users and work items")
			}

			fmt.Println()
			fmt.Println("Next steps:")
			fmt.Println("  slaengine policy load policies.yaml")
			fmt.Println("  slaengine event WI-001 Started")
			fmt.Println("  slaengine serve")
			return nil
		},
	}
	cmd.Flags().Bool("seed", false, "insert a demo policy, users and work items")
	return cmd
}

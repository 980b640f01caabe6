// Package cli provides CLI commands for the SLA engine.
package cli

import (
	gocontext "context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/slaengine/internal/config"
	"github.com/example/slaengine/internal/ctxutil"
	"github.com/example/slaengine/internal/logging"
	"github.com/example/slaengine/internal/wire"
)

// Global flags, bound in Bootstrap.
var (
	configDir string
	dbPath    string
	logLevel  string
	actorID   string
)

// current holds the configuration loaded for this invocation.
var (
	current *config.Config
	logger  *zap.Logger
)

// Bootstrap registers global flags and the config/logging setup that runs
// before every command.
func Bootstrap(root *cobra.Command) {
	root.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory containing "+config.DirName+"/config.json")
	root.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides config)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides config)")
	root.PersistentFlags().StringVar(&actorID, "actor", "", "actor recorded for events (default $USER)")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		l, err := logging.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		current, logger = cfg, l
		wire.Configure(cfg, l)
		return nil
	}
	root.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if logger != nil {
			_ = logger.Sync()
		}
		return wire.Shutdown()
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

// NewContext creates a context.Background() with the current actor ID embedded.
// CLI commands should use this instead of context.Background() directly.
func NewContext() gocontext.Context {
	return ctxutil.WithActorID(gocontext.Background(), GetActorID())
}

// GetActorID returns --actor, falling back to $USER.
func GetActorID() string {
	if actorID != "" {
		return actorID
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cli"
}

// Package cli holds the evalbot commands.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/varvaraparamon/final-eval-bot/internal/config"
	"github.com/varvaraparamon/final-eval-bot/pkg/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

type rootFlags struct {
	configPath string
	logJSON    bool
}

// NewRootCommand builds the evalbot command tree.
func NewRootCommand() *cobra.Command {
	var flags rootFlags
	root := &cobra.Command{
		Use:   "evalbot",
		Short: "Conversational jury bot for scoring hackathon teams",
		Long: "evalbot runs the evaluation wizard behind a chat webhook: evaluators sign in,\n" +
			"pick a case and a team, score four criteria and save the result.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if flags.configPath != "" {
				if err := os.Setenv(config.FileEnv, flags.configPath); err != nil {
					return fmt.Errorf("set %s: %w", config.FileEnv, err)
				}
			}
			return logger.Init(logger.WithWriter(cmd.ErrOrStderr()), logger.WithJSON(flags.logJSON))
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "YAML config file (overrides "+config.FileEnv+")")
	root.PersistentFlags().BoolVar(&flags.logJSON, "log-json", false, "log as JSON")

	root.AddCommand(newServeCommand())
	root.AddCommand(newMigrateCommand())
	root.AddCommand(newSimulateCommand())
	return root
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// loadConfig loads configuration and applies its log level.
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}

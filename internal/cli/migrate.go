package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/varvaraparamon/final-eval-bot/internal/adapters/repository"
	"github.com/varvaraparamon/final-eval-bot/pkg/logger"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the user, case, team and final_evaluation tables if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			store, err := repository.Open(ctx, cfg.DatabaseURL, repository.WithLogger(logger.Named("repository")))
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

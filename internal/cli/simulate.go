package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/varvaraparamon/final-eval-bot/internal/simulate"
)

func newSimulateCommand() *cobra.Command {
	cfg := simulate.Config{}
	var scenarioPath string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive scripted evaluator conversations against a running server",
		Long: "simulate signs each scenario evaluator in, picks the case and team, gives the\n" +
			"four scores, saves and logs out, checking the state after every step.\n" +
			"Accounts, cases and teams must already exist.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if cfg.Token == "" {
				if appCfg, err := loadConfig(ctx); err == nil {
					cfg.Token = appCfg.BotToken
				}
			}
			sc, err := simulate.LoadScenario(scenarioPath)
			if err != nil {
				return err
			}

			stats, err := simulate.Run(ctx, cfg, sc)
			if stats != nil {
				simulate.Report(cmd.OutOrStdout(), stats)
			}
			if err != nil && !errors.Is(err, simulate.ErrRunsFailed) {
				return fmt.Errorf("simulate: %w", err)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", simulate.DefaultBaseURL, "base URL of the bot")
	f.StringVar(&cfg.Token, "token", "", "X-Bot-Token value (defaults to the configured bot_token)")
	f.StringVar(&scenarioPath, "scenario", "", "YAML scenario file")
	f.IntVar(&cfg.Concurrency, "concurrency", simulate.DefaultConcurrency, "conversations driven at once")
	f.DurationVar(&cfg.Timeout, "timeout", simulate.DefaultTimeout, "HTTP request timeout")
	f.BoolVar(&cfg.Redeliver, "redeliver", false, "resend every update and expect a duplicate")
	f.BoolVar(&cfg.Verbose, "verbose", false, "log every completed conversation")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

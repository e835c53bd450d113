package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/akkana/mtgmon/internal/monitor"
)

// NewRunCommand creates the run command: a single monitor cycle, suitable
// for cron.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Fetch the calendar once and regenerate the feed",
		Long: `Perform one complete monitor cycle: fetch the upstream calendar,
convert agendas, detect changes, and rewrite the output directory.

Example:
  mtgmon run -c mtgmon.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			mon, err := monitor.New(cfg, slog.Default())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to initialize monitor", err)
			}
			if err := mon.RunOnce(context.Background()); err != nil {
				return WrapExitError(ExitRunFailure, "run failed", err)
			}
			return nil
		},
	}
}

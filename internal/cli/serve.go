package cli

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/akkana/mtgmon/internal/monitor"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Interval time.Duration
}

// NewServeCommand creates the serve command: run forever on an interval.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the monitor loop until interrupted",
		Long: `Run monitor cycles on the configured interval. SIGINT or SIGTERM stops
the loop cooperatively: the current cycle finishes (or aborts at a safe
boundary between meetings) before the process exits.

Example:
  mtgmon serve -c mtgmon.yaml --interval 6h`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			if opts.Interval > 0 {
				cfg.Interval = opts.Interval
			}
			mon, err := monitor.New(cfg, slog.Default())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to initialize monitor", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			slog.Info("monitor loop starting", "interval", cfg.Interval)
			err = mon.RunForever(ctx, cfg.Interval)
			if errors.Is(err, context.Canceled) {
				slog.Info("monitor loop stopped")
				return nil
			}
			return err
		},
	}

	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "override the configured between-run interval")

	return cmd
}

// Package cli defines the mtgmon command tree.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/akkana/mtgmon/internal/config"
	"github.com/akkana/mtgmon/internal/faults"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
}

// NewRootCommand creates the root command for the mtgmon CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "mtgmon",
		Short: "mtgmon - municipal meetings monitor",
		Long: "Monitors a Legistar meetings calendar, converts PDF agendas to HTML,\n" +
			"detects changes between runs, and publishes an RSS 2.0 feed plus\n" +
			"per-meeting pages as static files.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(opts.Verbose)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))

	return cmd
}

func configureLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// loadConfig reads and validates the configuration, mapping failures to a
// command-error exit code.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		if faults.IsConfig(err) {
			return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
		}
		return nil, err
	}
	return cfg, nil
}

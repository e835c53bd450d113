package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCheckCommand creates the check command: validate the configuration
// and print the resolved values without running anything.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "check",
		Short:         "Validate configuration and print resolved settings",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "calendar_url:    %s\n", cfg.CalendarURL)
			fmt.Fprintf(out, "feed_base_url:   %s\n", cfg.FeedBaseURL)
			fmt.Fprintf(out, "output_dir:      %s\n", cfg.OutputDir)
			fmt.Fprintf(out, "interval:        %s\n", cfg.Interval)
			fmt.Fprintf(out, "local_timezone:  %s\n", cfg.LocalTimezone)
			fmt.Fprintf(out, "table_id:        %s\n", cfg.TableID)
			fmt.Fprintf(out, "pdftohtml:       %s\n", cfg.PDFToHTML)
			fmt.Fprintf(out, "http_timeout:    %s\n", cfg.HTTPTimeout)
			fmt.Fprintf(out, "convert_timeout: %s\n", cfg.ConvertTimeout)
			fmt.Fprintf(out, "only_future:     %v\n", cfg.OnlyFuture)
			return nil
		},
	}
}

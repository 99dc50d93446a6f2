package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sharkusmanch/outline-backup/internal/analytics"
)

// NewAnalyticsCmd creates the analytics command.
func NewAnalyticsCmd() *cobra.Command {
	var rows int

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show recent backups and CPU usage",
		Long: `Print the most recent rows of the backup run log with a summary of
duration, size, throughput and CPU usage, followed by the CPU usage recorded
during the current or last listen session: minimum, maximum, average and the
most recent samples.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rows < 1 {
				return errors.New("--rows must be at least 1")
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.Analytics.Path == "" {
				return errors.New("analytics path is not set")
			}

			records, err := analytics.ReadRecent(cfg.Analytics.Path, rows)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := analytics.WriteReport(out, records); err != nil {
				return err
			}

			if cfg.Analytics.CPULogPath == "" {
				return nil
			}
			samples, err := analytics.ReadCPUSamples(cfg.Analytics.CPULogPath)
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			return analytics.WriteCPUReport(out, samples, rows)
		},
	}

	cmd.Flags().IntVarP(&rows, "rows", "n", analytics.DefaultRows, "number of most recent runs and CPU samples to show")

	return cmd
}

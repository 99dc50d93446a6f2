package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/sharkusmanch/outline-backup/internal/app"
	"github.com/sharkusmanch/outline-backup/internal/backup"
	"github.com/sharkusmanch/outline-backup/internal/domain"
)

var noProgress bool

// NewBackupCmd creates the backup command.
func NewBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Run a single backup now and exit",
		Long: `Copy the configured source folder to the destination without waiting for
a gesture. Metrics, notifications and analytics are reported exactly as for a
gesture-triggered backup.

Press Ctrl+C to cancel; files already copied are kept.`,
		RunE: runBackup,
	}

	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "do not draw a progress bar")

	return cmd
}

func runBackup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := setupLogging(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	if _, err := cfg.BackupConfig(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := reportingOptions(cfg, logger)
	if !noProgress {
		opts = append(opts, app.WithObserver(newProgressReporter(os.Stderr)))
	}

	supervisor := app.NewSupervisor(
		backup.NewEngine(backup.WithLogger(logger)),
		newProvider(),
		nopDetector{},
		opts...,
	)

	if err := supervisor.StartBackup(ctx); err != nil {
		return err
	}
	supervisor.Wait()

	status := supervisor.Snapshot()
	if status.Outcome == nil {
		return fmt.Errorf("backup finished without an outcome")
	}
	return report(cmd.OutOrStdout(), *status.Outcome)
}

// report prints a one-line summary and returns the run's error, if any.
func report(w io.Writer, o domain.Outcome) error {
	switch o.Kind {
	case domain.OutcomeSuccess:
		fmt.Fprintf(w, "Backup completed: %d files, %s in %s\n",
			o.FilesCopied, humanize.Bytes(o.BytesCopied), o.Duration.Round(time.Millisecond))
		return nil
	case domain.OutcomeCancelled:
		fmt.Fprintf(w, "Backup cancelled after %d files\n", o.FilesCopied)
		return o.Err
	default:
		return fmt.Errorf("backup failed after %d files: %w", o.FilesCopied, o.Err)
	}
}

// progressReporter draws engine events as a terminal progress bar.
type progressReporter struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

func newProgressReporter(w io.Writer) *progressReporter {
	return &progressReporter{w: w}
}

// Emit implements backup.EventEmitter.
func (p *progressReporter) Emit(ev backup.Event) {
	switch e := ev.(type) {
	case backup.Started:
		p.bar = progressbar.NewOptions64(int64(e.FilesTotal),
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionSetDescription("copying"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("files"),
			progressbar.OptionShowIts(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	case backup.FileCopied:
		if p.bar == nil {
			return
		}
		p.bar.Describe(e.Progress.CurrentFile)
		_ = p.bar.Set64(int64(e.Progress.FilesCopied))
	case backup.Finished:
		if p.bar == nil {
			return
		}
		if e.Outcome.Success() {
			_ = p.bar.Finish()
		} else {
			_ = p.bar.Exit()
		}
	}
}

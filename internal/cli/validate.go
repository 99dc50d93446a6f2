package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sharkusmanch/outline-backup/internal/http"
	"github.com/sharkusmanch/outline-backup/internal/platform"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and test connectivity",
		Long: `Validate the configuration file and test connectivity to external services.

This checks:
- Config file syntax and extension filter rules
- Source and destination folders
- Screen size used for gesture tolerance
- Pushgateway connectivity (if enabled)
- Apprise server connectivity (if enabled)`,
		RunE: runValidate,
	}

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Configuration:")
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(out, "  ✗ Config file: %v\n", err)
		return err
	}
	fmt.Fprintf(out, "  ✓ Config file valid\n")

	path, _ := configPath()
	fmt.Fprintf(out, "  Config file: %s\n", path)
	fmt.Fprintf(out, "  Mode: %s\n", cfg.Mode)
	if len(cfg.Extensions) > 0 {
		fmt.Fprintf(out, "  Extensions: %v\n", cfg.Extensions)
	}
	fmt.Fprintf(out, "  Hash: %s\n", cfg.HashAlgorithm)
	fmt.Fprintf(out, "  Outline gesture: %s\n", cfg.Gesture.Outline)
	if cfg.Metrics.Enabled {
		fmt.Fprintf(out, "  Metrics: enabled (%s)\n", cfg.Metrics.PushgatewayURL)
	} else {
		fmt.Fprintf(out, "  Metrics: disabled\n")
	}
	if cfg.Apprise.Enabled {
		fmt.Fprintf(out, "  Notifications: enabled (%s, level %s)\n", cfg.Apprise.URL, cfg.Apprise.Notify)
	} else {
		fmt.Fprintf(out, "  Notifications: disabled\n")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Checks:")
	logger, err := setupLogging(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	if _, err := cfg.BackupConfig(); err != nil {
		fmt.Fprintf(out, "  ✗ Backup folders: %v\n", err)
	} else {
		fmt.Fprintf(out, "  ✓ Backup folders: %s -> %s\n", cfg.Source, cfg.Destination)
		for _, dir := range []string{cfg.Source, cfg.Destination} {
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				fmt.Fprintf(out, "  ✗ Folder not found: %s\n", dir)
			}
		}
	}

	if w, h, ok := platform.NewScreenProvider(cfg.Screen.Width, cfg.Screen.Height).Resolution(); ok {
		fmt.Fprintf(out, "  ✓ Screen: %dx%d (tolerance %.0fpx)\n", w, h, cfg.Geometry(w, h).Tolerance)
	} else {
		fmt.Fprintf(out, "  ✗ Screen: unknown, set screen.width and screen.height\n")
	}

	// No retries for validation
	client := http.NewClient(
		http.WithRetryConfig(http.RetryConfig{
			MaxAttempts:  1,
			InitialDelay: time.Second,
			MaxDelay:     time.Second,
		}),
		http.WithLogger(logger),
	)

	if cfg.Metrics.Enabled {
		if err := newPushgateway(cfg, client, logger).Validate(ctx); err != nil {
			fmt.Fprintf(out, "  ✗ Pushgateway: %v\n", err)
		} else {
			fmt.Fprintf(out, "  ✓ Pushgateway reachable\n")
		}
	}

	if cfg.Apprise.Enabled {
		if err := newApprise(cfg, client, logger).Validate(ctx); err != nil {
			fmt.Fprintf(out, "  ✗ Apprise server: %v\n", err)
		} else {
			fmt.Fprintf(out, "  ✓ Apprise server reachable\n")
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Validation complete.")
	return nil
}

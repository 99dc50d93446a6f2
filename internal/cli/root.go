// Package cli provides the command-line interface.
package cli

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sharkusmanch/outline-backup/internal/config"
	"github.com/sharkusmanch/outline-backup/pkg/version"
)

var (
	cfgFile  string
	logLevel string
	source   string
	dest     string
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "outline-backup",
		Short: "Start a folder backup by tracing the screen outline",
		Long: `outline-backup watches pointer input for a deliberate gesture: trace the
outline of the screen, then draw a horizontal stroke to confirm. The
configured source folder is then copied to the destination, and every file
is verified by content hash.

Run "outline-backup config init" to create a configuration file.`,
		Version: version.Get().String(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&source, "source", "", "override the source folder")
	rootCmd.PersistentFlags().StringVar(&dest, "destination", "", "override the destination folder")

	rootCmd.AddCommand(NewListenCmd())
	rootCmd.AddCommand(NewBackupCmd())
	rootCmd.AddCommand(NewValidateCmd())
	rootCmd.AddCommand(NewVersionCmd())
	rootCmd.AddCommand(NewAutostartCmd())
	rootCmd.AddCommand(NewAnalyticsCmd())
	rootCmd.AddCommand(NewConfigCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// initConfig installs a stderr logger until the config is loaded.
func initConfig() error {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(logLevel, slog.LevelInfo),
	})
	slog.SetDefault(slog.New(handler))

	return nil
}

func parseLevel(s string, fallback slog.Level) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}

// setupLogging configures logging based on the loaded config. Output goes
// to a rotated file when log.output is set, otherwise to stderr.
func setupLogging(cfg *config.Config) (*slog.Logger, error) {
	level := parseLevel(cfg.Log.Level, slog.LevelInfo)

	// CLI flag overrides config
	level = parseLevel(logLevel, level)

	var output io.Writer = os.Stderr
	if cfg.Log.Output != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.Output), 0o750); err != nil {
			return nil, err
		}

		output = &lumberjack.Logger{
			Filename:   cfg.Log.Output,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
	}

	handler := slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger, nil
}

// overrides returns the config keys set by global flags.
func overrides() map[string]interface{} {
	o := make(map[string]interface{})
	if source != "" {
		o["source"] = source
	}
	if dest != "" {
		o["destination"] = dest
	}
	if logLevel != "" {
		o["log.level"] = logLevel
	}
	return o
}

// newProvider returns a config provider honoring --config and the global
// override flags.
func newProvider() *config.Provider {
	return config.NewProvider(cfgFile, overrides())
}

// loadConfig loads the application configuration.
func loadConfig() (*config.Config, error) {
	return newProvider().Load()
}

// configPath returns the file a command reads or writes.
func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.DefaultConfigPath()
}

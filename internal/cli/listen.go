package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sharkusmanch/outline-backup/internal/analytics"
	"github.com/sharkusmanch/outline-backup/internal/api"
	"github.com/sharkusmanch/outline-backup/internal/app"
	"github.com/sharkusmanch/outline-backup/internal/backup"
	"github.com/sharkusmanch/outline-backup/internal/domain"
	"github.com/sharkusmanch/outline-backup/internal/gesture"
	"github.com/sharkusmanch/outline-backup/internal/input"
	"github.com/sharkusmanch/outline-backup/internal/metrics"
	"github.com/sharkusmanch/outline-backup/internal/notify"
	"github.com/sharkusmanch/outline-backup/internal/platform"
)

// eventBuffer absorbs bursts of pointer moves while the recognizer is busy.
const eventBuffer = 256

var (
	eventsPath  string
	emitSignals bool
	apiListen   string
)

// NewListenCmd creates the listen command.
func NewListenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Watch pointer input and back up on the confirmed gesture",
		Long: `Read pointer events as JSON lines and run a backup when the screen outline
is traced and confirmed with a horizontal stroke.

Each input line is an object such as {"type":"move","x":10,"y":0}. Types are
down, up, move, reset (decline a pending confirmation) and cancel (stop a
running backup).

Use Ctrl+C to stop; a running backup is cancelled first.`,
		RunE: runListen,
	}

	cmd.Flags().StringVar(&eventsPath, "events", "-", `pointer event source file, or "-" for stdin`)
	cmd.Flags().BoolVar(&emitSignals, "signals", false, "write cue and show-ui events as JSON lines to stdout")
	cmd.Flags().StringVar(&apiListen, "api", "", "serve the status API on this address (overrides api.listen)")

	return cmd
}

func runListen(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := setupLogging(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	if cfg.LockFile != "" {
		lock, err := platform.AcquireLock(cfg.LockFile)
		if err != nil {
			return fmt.Errorf("failed to acquire lock %s: %w", cfg.LockFile, err)
		}
		defer func() {
			if err := lock.Release(); err != nil {
				logger.Warn("failed to release lock", "error", err)
			}
		}()
	}

	width, height, ok := platform.NewScreenProvider(cfg.Screen.Width, cfg.Screen.Height).Resolution()
	if !ok {
		return errors.New("screen size unknown: set screen.width and screen.height in the config")
	}

	outline, confirm, err := cfg.GestureDefinitions()
	if err != nil {
		return err
	}
	geom := cfg.Geometry(width, height)
	recognizer := gesture.NewRecognizer(geom, outline, confirm, gesture.WithLogger(logger))

	var src io.Reader = os.Stdin
	if eventsPath != "" && eventsPath != "-" {
		f, err := os.Open(eventsPath)
		if err != nil {
			return fmt.Errorf("failed to open event source: %w", err)
		}
		defer f.Close()
		src = f
	}

	cue := notify.MultiCue{notify.NewBellCue(os.Stderr, logger)}
	opts := reportingOptions(cfg, logger)
	if emitSignals {
		signals := notify.NewSignalWriter(os.Stdout)
		cue = append(cue, signals)
		opts = append(opts, app.WithUISignaler(signals))
	}
	opts = append(opts, app.WithCue(cue))

	supervisor := app.NewSupervisor(
		backup.NewEngine(backup.WithLogger(logger)),
		newProvider(),
		recognizer,
		opts...,
	)

	if !cfg.IsConfigured() {
		logger.Warn("backup folders are not configured; confirmed gestures will fail until they are set")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("listening for gestures",
		"screen", fmt.Sprintf("%dx%d", width, height),
		"outline", outline.Name(),
		"tolerance_px", geom.Tolerance,
	)

	g, gctx := errgroup.WithContext(ctx)
	events := make(chan domain.PointerEvent, eventBuffer)

	// The API and the CPU monitor stop with the supervisor, including when
	// the event stream ends.
	auxCtx, stopAux := context.WithCancel(gctx)
	defer stopAux()

	g.Go(func() error {
		return input.NewReader(src, supervisor, input.WithLogger(logger)).Run(gctx, events)
	})
	g.Go(func() error {
		return recognizer.Run(gctx, events)
	})
	g.Go(func() error {
		defer stopAux()
		return supervisor.Run(gctx, recognizer.Intents())
	})

	if cfg.Analytics.Enabled && cfg.Analytics.CPUInterval > 0 && cfg.Analytics.CPULogPath != "" {
		monitor := analytics.NewMonitor(
			metrics.NewCPUSampler(cfg.CPUSampleWindow),
			analytics.NewCPULog(cfg.Analytics.CPULogPath),
			cfg.Analytics.CPUInterval,
			analytics.WithMonitorLogger(logger),
		)
		g.Go(func() error {
			return monitor.Run(auxCtx)
		})
	}

	if addr := listenAddr(cfg.API.Enabled, cfg.API.Listen); addr != "" {
		gin.SetMode(gin.ReleaseMode)
		server := api.NewServer(supervisor, api.WithLogger(logger))
		g.Go(func() error {
			return server.ListenAndServe(auxCtx, addr)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("outline-backup stopped")
	return nil
}

// listenAddr returns the API address, or "" when the API is off. The flag
// turns the API on regardless of the config.
func listenAddr(enabled bool, configured string) string {
	if apiListen != "" {
		return apiListen
	}
	if enabled {
		return configured
	}
	return ""
}

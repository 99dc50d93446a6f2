package cli

import (
	"log/slog"

	"github.com/sharkusmanch/outline-backup/internal/analytics"
	"github.com/sharkusmanch/outline-backup/internal/app"
	"github.com/sharkusmanch/outline-backup/internal/config"
	"github.com/sharkusmanch/outline-backup/internal/http"
	"github.com/sharkusmanch/outline-backup/internal/metrics"
	"github.com/sharkusmanch/outline-backup/internal/notify"
)

func newHTTPClient(cfg *config.Config, logger *slog.Logger) *http.Client {
	return http.NewClient(
		http.WithRetryConfig(http.RetryConfig{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
		}),
		http.WithLogger(logger),
	)
}

func newPushgateway(cfg *config.Config, client *http.Client, logger *slog.Logger) *metrics.PushgatewayClient {
	return metrics.NewPushgatewayClient(
		cfg.Metrics.PushgatewayURL,
		metrics.WithHTTPClient(client),
		metrics.WithLogger(logger),
	)
}

func newApprise(cfg *config.Config, client *http.Client, logger *slog.Logger) *notify.AppriseClient {
	return notify.NewAppriseClient(
		cfg.Apprise.URL,
		cfg.Apprise.Key,
		notify.WithHTTPClient(client),
		notify.WithLogger(logger),
	)
}

// reportingOptions builds the supervisor options shared by every command
// that runs backups: metrics, notifications, CPU sampling and analytics.
func reportingOptions(cfg *config.Config, logger *slog.Logger) []app.SupervisorOption {
	client := newHTTPClient(cfg, logger)

	opts := []app.SupervisorOption{
		app.WithLogger(logger),
		app.WithNotifyLevel(cfg.Apprise.Notify),
		app.WithCPUSampler(metrics.NewCPUSampler(cfg.CPUSampleWindow)),
	}

	if cfg.Metrics.Enabled {
		opts = append(opts, app.WithMetricsPusher(newPushgateway(cfg, client, logger)))
	}

	if cfg.Apprise.Enabled {
		opts = append(opts, app.WithNotifier(notify.NewMultiNotifier(logger, newApprise(cfg, client, logger))))
	}

	if cfg.Analytics.Enabled && cfg.Analytics.Path != "" {
		opts = append(opts, app.WithRecorder(analytics.NewRecorder(cfg.Analytics.Path)))
	}

	return opts
}

// nopDetector stands in for the recognizer when backups are started directly.
type nopDetector struct{}

func (nopDetector) SetEnabled(bool) {}
func (nopDetector) Reset()          {}

var _ app.Detector = nopDetector{}

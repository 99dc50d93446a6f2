// Package config loads outline-backup settings from a TOML file, environment
// variables and command-line overrides.
package config

import "time"

// Default configuration values.
const (
	DefaultMode          = "all"
	DefaultHashAlgorithm = "sha256"

	DefaultGestureOutline        = "contour"
	DefaultGestureSegments       = 4
	DefaultGestureToleranceRatio = 0.02
	DefaultGestureMinTolerancePx = 10.0
	DefaultGestureStrokeMinDX    = 100.0
	DefaultGestureStrokeMaxDY    = 50.0

	DefaultCPUSampleWindow = time.Second

	DefaultAnalyticsEnabled     = true
	DefaultAnalyticsCPUInterval = 30 * time.Second

	DefaultAPIEnabled = false
	DefaultAPIListen  = "127.0.0.1:8765"

	DefaultMetricsEnabled        = false
	DefaultMetricsPushgatewayURL = ""

	DefaultRetryMaxAttempts  = 3
	DefaultRetryInitialDelay = 5 * time.Second
	DefaultRetryMaxDelay     = 30 * time.Second

	DefaultAppriseEnabled = false
	DefaultAppriseURL     = ""
	DefaultAppriseKey     = ""
	DefaultAppriseNotify  = NotifyError

	DefaultLogLevel     = "info"
	DefaultLogMaxSizeMB = 10
)

// Extension filter limits.
const (
	MaxExtensions      = 10
	MaxExtensionLength = 6
)

// NotifyLevel selects which outcomes produce a notification. Failures are
// always reported.
type NotifyLevel string

const (
	NotifyError   NotifyLevel = "error"
	NotifyWarning NotifyLevel = "warning" // failures and cancellations
	NotifyAlways  NotifyLevel = "always"
)

var notifyLevels = map[NotifyLevel]struct{}{
	NotifyError:   {},
	NotifyWarning: {},
	NotifyAlways:  {},
}

func (n NotifyLevel) IsValid() bool {
	_, ok := notifyLevels[n]
	return ok
}

func (n NotifyLevel) String() string { return string(n) }

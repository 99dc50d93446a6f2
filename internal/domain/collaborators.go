package domain

import (
	"context"
	"time"
)

// ScreenProvider reports the primary screen resolution.
type ScreenProvider interface {
	// Resolution returns the width and height in pointer units, or ok=false if unknown.
	Resolution() (width, height int, ok bool)
}

// ConfigProvider supplies a fresh backup configuration for every attempt.
type ConfigProvider interface {
	// BackupConfig returns a validated snapshot, ErrNotConfigured, or a validation error.
	BackupConfig() (BackupConfig, error)
}

// CPUSampler measures system CPU utilization.
type CPUSampler interface {
	// Sample blocks for a short fixed window and returns utilization in percent.
	Sample(ctx context.Context) (float64, error)
}

// RunRecord is one analytics row for a successful backup.
type RunRecord struct {
	RunID      string
	Timestamp  time.Time
	Duration   time.Duration
	Bytes      uint64
	CPUPercent float64
}

// RunRecorder persists analytics rows.
type RunRecorder interface {
	Record(ctx context.Context, record RunRecord) error
}

// UISignaler asks the user interface to become visible.
type UISignaler interface {
	ShowUI()
}

// NopUISignaler ignores show requests.
type NopUISignaler struct{}

// ShowUI does nothing.
func (NopUISignaler) ShowUI() {}

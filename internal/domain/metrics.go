package domain

import (
	"context"
	"time"
)

// Metrics is a liveness sample plus, after a run, that run's results.
type Metrics struct {
	Timestamp time.Time
	Hostname  string
	ServiceUp bool

	// Outcome is nil for liveness-only samples.
	Outcome    *Outcome
	Progress   Progress
	CPUPercent float64
}

// RunMetrics describes a finished run on a live host. cpuPercent is zero when
// no sample was taken.
func RunMetrics(hostname string, o Outcome, p Progress, cpuPercent float64) *Metrics {
	return &Metrics{
		Timestamp:  time.Now(),
		Hostname:   hostname,
		ServiceUp:  true,
		Outcome:    &o,
		Progress:   p,
		CPUPercent: cpuPercent,
	}
}

// LivenessMetrics reports only whether the listener is up.
func LivenessMetrics(hostname string, up bool) *Metrics {
	return &Metrics{
		Timestamp: time.Now(),
		Hostname:  hostname,
		ServiceUp: up,
	}
}

// MetricsPusher sends Metrics to a remote collector.
type MetricsPusher interface {
	Push(ctx context.Context, metrics *Metrics) error
	Validate(ctx context.Context) error
}

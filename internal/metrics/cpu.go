package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/sharkusmanch/outline-backup/internal/domain"
)

// CPUSampler measures overall CPU utilization over a fixed window.
type CPUSampler struct {
	window time.Duration
}

// NewCPUSampler creates a sampler that blocks for window on each Sample.
func NewCPUSampler(window time.Duration) *CPUSampler {
	return &CPUSampler{window: window}
}

// Sample returns the average utilization across all CPUs, in percent.
func (s *CPUSampler) Sample(ctx context.Context) (float64, error) {
	percents, err := cpu.PercentWithContext(ctx, s.window, false)
	if err != nil {
		return 0, fmt.Errorf("failed to sample cpu usage: %w", err)
	}
	if len(percents) == 0 {
		return 0, fmt.Errorf("failed to sample cpu usage: no data")
	}
	return percents[0], nil
}

var _ domain.CPUSampler = (*CPUSampler)(nil)

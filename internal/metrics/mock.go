package metrics

import (
	"context"
	"sync"

	"github.com/sharkusmanch/outline-backup/internal/domain"
)

// MockPusher is a mock implementation of domain.MetricsPusher for testing.
type MockPusher struct {
	PushFunc     func(ctx context.Context, metrics *domain.Metrics) error
	ValidateFunc func(ctx context.Context) error

	mu     sync.Mutex
	pushed []*domain.Metrics
}

// Push calls the mock PushFunc and stores the metrics.
func (m *MockPusher) Push(ctx context.Context, metrics *domain.Metrics) error {
	m.mu.Lock()
	m.pushed = append(m.pushed, metrics)
	m.mu.Unlock()

	if m.PushFunc != nil {
		return m.PushFunc(ctx, metrics)
	}
	return nil
}

// Validate calls the mock ValidateFunc.
func (m *MockPusher) Validate(ctx context.Context) error {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx)
	}
	return nil
}

// Pushed returns every payload pushed so far.
func (m *MockPusher) Pushed() []*domain.Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Metrics(nil), m.pushed...)
}

// MockCPUSampler returns a fixed utilization.
type MockCPUSampler struct {
	Percent float64
	Err     error
	Calls   int
}

// Sample implements domain.CPUSampler.
func (m *MockCPUSampler) Sample(context.Context) (float64, error) {
	m.Calls++
	return m.Percent, m.Err
}

var (
	_ domain.MetricsPusher = (*MockPusher)(nil)
	_ domain.CPUSampler    = (*MockCPUSampler)(nil)
)

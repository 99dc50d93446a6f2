package notify

import (
	"context"
	"sync"

	"github.com/sharkusmanch/outline-backup/internal/domain"
)

// MockNotifier is a mock implementation of domain.Notifier for testing.
type MockNotifier struct {
	NotifyFunc   func(ctx context.Context, notification *domain.Notification) error
	ValidateFunc func(ctx context.Context) error

	mu            sync.Mutex
	notifications []*domain.Notification
}

// Notify calls the mock NotifyFunc and stores the notification.
func (m *MockNotifier) Notify(ctx context.Context, notification *domain.Notification) error {
	m.mu.Lock()
	m.notifications = append(m.notifications, notification)
	m.mu.Unlock()

	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, notification)
	}
	return nil
}

// Validate calls the mock ValidateFunc.
func (m *MockNotifier) Validate(ctx context.Context) error {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx)
	}
	return nil
}

// Notifications returns every notification sent so far.
func (m *MockNotifier) Notifications() []*domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Notification(nil), m.notifications...)
}

// Reset clears all stored notifications.
func (m *MockNotifier) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = nil
}

// MockCue records fired cues.
type MockCue struct {
	mu    sync.Mutex
	fired []domain.CueKind
}

// Fire records kind.
func (m *MockCue) Fire(kind domain.CueKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fired = append(m.fired, kind)
}

// Fired returns the cues fired so far, in order.
func (m *MockCue) Fired() []domain.CueKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CueKind(nil), m.fired...)
}

// MockUISignaler counts show requests.
type MockUISignaler struct {
	mu    sync.Mutex
	shown int
}

// ShowUI records a request.
func (m *MockUISignaler) ShowUI() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shown++
}

// Shown returns how many times ShowUI was called.
func (m *MockUISignaler) Shown() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shown
}

var (
	_ domain.Notifier   = (*MockNotifier)(nil)
	_ domain.Cue        = (*MockCue)(nil)
	_ domain.UISignaler = (*MockUISignaler)(nil)
)

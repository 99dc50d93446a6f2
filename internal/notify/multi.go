package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sharkusmanch/outline-backup/internal/domain"
)

// MultiNotifier fans a notification out to several notifiers.
type MultiNotifier struct {
	notifiers []domain.Notifier
	logger    *slog.Logger
}

// NewMultiNotifier creates a new MultiNotifier. Nil notifiers are skipped.
func NewMultiNotifier(logger *slog.Logger, notifiers ...domain.Notifier) *MultiNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	m := &MultiNotifier{logger: logger}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

// Len returns the number of wrapped notifiers.
func (m *MultiNotifier) Len() int {
	return len(m.notifiers)
}

// Notify sends to every notifier and joins their errors.
func (m *MultiNotifier) Notify(ctx context.Context, notification *domain.Notification) error {
	var errs []error

	for _, notifier := range m.notifiers {
		if err := notifier.Notify(ctx, notification); err != nil {
			m.logger.Warn("notifier failed", "error", err)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Validate validates every notifier and joins their errors.
func (m *MultiNotifier) Validate(ctx context.Context) error {
	var errs []error

	for _, notifier := range m.notifiers {
		if err := notifier.Validate(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// MultiCue fires every wrapped cue.
type MultiCue []domain.Cue

// Fire implements domain.Cue.
func (m MultiCue) Fire(kind domain.CueKind) {
	for _, c := range m {
		c.Fire(kind)
	}
}

var (
	_ domain.Notifier = (*MultiNotifier)(nil)
	_ domain.Cue      = MultiCue(nil)
)

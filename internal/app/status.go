package app

import (
	"sync"
	"time"

	"github.com/sharkusmanch/outline-backup/internal/backup"
	"github.com/sharkusmanch/outline-backup/internal/domain"
)

// StatusCell is the shared status read by pollers and written by the
// supervisor and the backup worker. Every access holds the lock, so readers
// never see a torn value.
type StatusCell struct {
	mu     sync.RWMutex
	status domain.Status
	now    func() time.Time
}

var _ backup.EventEmitter = (*StatusCell)(nil)

// NewStatusCell creates a cell in the idle phase.
func NewStatusCell() *StatusCell {
	c := &StatusCell{now: time.Now}
	c.status = domain.Status{Phase: domain.PhaseIdle, UpdatedAt: c.now()}
	return c
}

// Snapshot returns a consistent copy of the current status.
func (c *StatusCell) Snapshot() domain.Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.status
	if s.Outcome != nil {
		o := *s.Outcome
		s.Outcome = &o
	}
	return s
}

// Phase returns the current phase.
func (c *StatusCell) Phase() domain.Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status.Phase
}

// AwaitConfirmation moves Idle or Completed to ToConfirm. It is a no-op while
// a backup is running.
func (c *StatusCell) AwaitConfirmation() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status.Phase == domain.PhaseInProgress {
		return false
	}
	c.status.Phase = domain.PhaseToConfirm
	c.status.UpdatedAt = c.now()
	return true
}

// ClearConfirmation returns ToConfirm to Idle.
func (c *StatusCell) ClearConfirmation() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status.Phase != domain.PhaseToConfirm {
		return false
	}
	c.status.Phase = domain.PhaseIdle
	c.status.UpdatedAt = c.now()
	return true
}

// Begin enters InProgress with zeroed progress and no outcome.
func (c *StatusCell) Begin() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status = domain.Status{Phase: domain.PhaseInProgress, UpdatedAt: c.now()}
}

// Complete records the outcome of the running backup and enters Completed.
// It returns false, leaving the cell untouched, when no backup is running.
func (c *StatusCell) Complete(outcome domain.Outcome) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status.Phase != domain.PhaseInProgress {
		return false
	}
	c.status.Phase = domain.PhaseCompleted
	c.status.Outcome = &outcome
	c.status.UpdatedAt = c.now()
	return true
}

// Emit applies engine progress while a backup is running.
func (c *StatusCell) Emit(event backup.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status.Phase != domain.PhaseInProgress {
		return
	}

	switch ev := event.(type) {
	case backup.Started:
		c.status.Progress = domain.Progress{FilesTotal: ev.FilesTotal}
	case backup.FileCopied:
		if ev.Progress.FilesCopied < c.status.Progress.FilesCopied {
			return
		}
		c.status.Progress = ev.Progress
	case backup.Finished:
		c.status.Progress = ev.Progress
	default:
		return
	}
	c.status.UpdatedAt = c.now()
}

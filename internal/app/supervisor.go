// Package app couples gesture recognition to the backup engine.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sharkusmanch/outline-backup/internal/backup"
	"github.com/sharkusmanch/outline-backup/internal/config"
	"github.com/sharkusmanch/outline-backup/internal/domain"
	"github.com/sharkusmanch/outline-backup/internal/gesture"
)

// ErrBackupInProgress is returned by StartBackup while a run is active.
var ErrBackupInProgress = errors.New("a backup is already running")

// sideEffectTimeout bounds the post-run calls to remote collaborators.
const sideEffectTimeout = 30 * time.Second

// BackupRunner runs one backup. *backup.Engine implements it.
type BackupRunner interface {
	Run(ctx context.Context, cfg domain.BackupConfig, emitter backup.EventEmitter) domain.Outcome
}

// Detector is the part of the gesture recognizer the supervisor controls.
type Detector interface {
	SetEnabled(enabled bool)
	Reset()
}

var (
	_ BackupRunner = (*backup.Engine)(nil)
	_ Detector     = (*gesture.Recognizer)(nil)
)

// Supervisor starts backups on confirmed gestures and publishes their
// progress and outcome through a StatusCell.
type Supervisor struct {
	runner   BackupRunner
	configs  domain.ConfigProvider
	detector Detector
	status   *StatusCell

	notifier      domain.Notifier
	metricsPusher domain.MetricsPusher
	cue           domain.Cue
	ui            domain.UISignaler
	cpu           domain.CPUSampler
	recorder      domain.RunRecorder
	observer      backup.EventEmitter
	notifyLevel   config.NotifyLevel
	logger        *slog.Logger
	hostname      string

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	// workers counts backups whose post-run steps have not finished. It can
	// reach two while one run reports and the next one copies.
	workers int
	idle    *sync.Cond
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithNotifier sets the notifier.
func WithNotifier(n domain.Notifier) SupervisorOption {
	return func(s *Supervisor) {
		s.notifier = n
	}
}

// WithMetricsPusher sets the metrics pusher.
func WithMetricsPusher(m domain.MetricsPusher) SupervisorOption {
	return func(s *Supervisor) {
		s.metricsPusher = m
	}
}

// WithCue sets the audible/visual cue.
func WithCue(c domain.Cue) SupervisorOption {
	return func(s *Supervisor) {
		s.cue = c
	}
}

// WithUISignaler sets the UI signaller.
func WithUISignaler(u domain.UISignaler) SupervisorOption {
	return func(s *Supervisor) {
		s.ui = u
	}
}

// WithCPUSampler sets the sampler used after successful runs.
func WithCPUSampler(c domain.CPUSampler) SupervisorOption {
	return func(s *Supervisor) {
		s.cpu = c
	}
}

// WithRecorder sets the analytics recorder.
func WithRecorder(r domain.RunRecorder) SupervisorOption {
	return func(s *Supervisor) {
		s.recorder = r
	}
}

// WithObserver receives a copy of every engine event after the status cell
// has applied it.
func WithObserver(o backup.EventEmitter) SupervisorOption {
	return func(s *Supervisor) {
		s.observer = o
	}
}

// WithNotifyLevel sets when notifications are sent.
func WithNotifyLevel(l config.NotifyLevel) SupervisorOption {
	return func(s *Supervisor) {
		s.notifyLevel = l
	}
}

// WithStatusCell shares an existing status cell.
func WithStatusCell(c *StatusCell) SupervisorOption {
	return func(s *Supervisor) {
		s.status = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) SupervisorOption {
	return func(s *Supervisor) {
		s.logger = l
	}
}

// NewSupervisor creates a new Supervisor.
func NewSupervisor(runner BackupRunner, configs domain.ConfigProvider, detector Detector, opts ...SupervisorOption) *Supervisor {
	hostname, _ := os.Hostname()

	s := &Supervisor{
		runner:      runner,
		configs:     configs,
		detector:    detector,
		notifier:    domain.NopNotifier{},
		cue:         domain.NopCue{},
		ui:          domain.NopUISignaler{},
		notifyLevel: config.NotifyError,
		logger:      slog.Default(),
		hostname:    hostname,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.status == nil {
		s.status = NewStatusCell()
	}
	s.idle = sync.NewCond(&s.mu)

	return s
}

// Status returns the shared status cell.
func (s *Supervisor) Status() *StatusCell {
	return s.status
}

// Snapshot returns the current status.
func (s *Supervisor) Snapshot() domain.Status {
	return s.status.Snapshot()
}

// IsRunning returns true while a backup worker is active.
func (s *Supervisor) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Run consumes intents until ctx is cancelled or intents is closed. On
// cancellation any running backup is cancelled; when intents is closed it is
// allowed to finish. Either way Run waits for it and then pushes a final
// service-down metric.
func (s *Supervisor) Run(ctx context.Context, intents <-chan gesture.Intent) error {
	s.logger.Info("supervisor started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("supervisor stopping due to context cancellation")
			s.Cancel()
			s.shutdown()
			return ctx.Err()

		case intent, ok := <-intents:
			if !ok {
				s.logger.Info("intent stream closed, supervisor stopping")
				s.shutdown()
				return nil
			}
			s.HandleIntent(ctx, intent)
		}
	}
}

// HandleIntent reacts to one recognizer intent.
func (s *Supervisor) HandleIntent(ctx context.Context, intent gesture.Intent) {
	switch intent {
	case gesture.IntentOutlineComplete:
		s.cue.Fire(domain.CueOutlineComplete)
		s.status.AwaitConfirmation()

	case gesture.IntentBackupConfirmed:
		if err := s.StartBackup(ctx); err != nil {
			s.logger.Warn("backup not started", "error", err)
		}

	default:
		s.logger.Debug("ignoring unknown intent", "intent", intent)
	}
}

// StartBackup disables gesture detection and runs a backup in the background.
// The run is cancelled when ctx is or when Cancel is called.
func (s *Supervisor) StartBackup(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrBackupInProgress
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.workers++
	s.mu.Unlock()

	s.detector.SetEnabled(false)
	s.status.Begin()

	go s.work(runCtx, cancel)
	return nil
}

// Cancel requests that the running backup stop at the next file boundary.
// It is safe to call at any time and any number of times.
func (s *Supervisor) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		s.logger.Info("backup cancellation requested")
		cancel()
	}
}

// Reset declines a pending confirmation: the recognizer returns to Idle and
// the status leaves ToConfirm.
func (s *Supervisor) Reset() {
	s.detector.Reset()
	s.status.ClearConfirmation()
}

// Wait blocks until every backup worker has finished its post-run steps.
func (s *Supervisor) Wait() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.workers > 0 {
		s.idle.Wait()
	}
}

func (s *Supervisor) work(ctx context.Context, cancel context.CancelFunc) {
	start := time.Now()
	outcome := domain.Outcome{
		Kind:      domain.OutcomeFailed,
		Err:       errors.New("backup worker exited unexpectedly"),
		StartTime: start,
	}

	defer func() {
		s.mu.Lock()
		s.workers--
		s.mu.Unlock()
		s.idle.Broadcast()
	}()
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("backup worker panicked", "panic", r)
			outcome = domain.Outcome{
				Kind:      domain.OutcomeFailed,
				Err:       fmt.Errorf("backup worker panicked: %v", r),
				StartTime: start,
				EndTime:   time.Now(),
			}
		}
		s.finish(outcome)
	}()

	cfg, err := s.configs.BackupConfig()
	if err != nil {
		outcome = domain.Outcome{
			Kind:      domain.OutcomeFailed,
			Err:       &backup.ConfigError{Reason: "configuration unavailable", Err: err},
			StartTime: start,
			EndTime:   time.Now(),
		}
		s.logger.Error("backup configuration unavailable", "error", err)
		return
	}

	var emitter backup.EventEmitter = s.status
	if s.observer != nil {
		emitter = backup.EmitterFunc(func(ev backup.Event) {
			s.status.Emit(ev)
			s.observer.Emit(ev)
		})
	}

	outcome = s.runner.Run(ctx, cfg, emitter)
}

// finish publishes the outcome and hands control back to gesture detection
// before running the slower reporting steps.
func (s *Supervisor) finish(outcome domain.Outcome) {
	s.status.Complete(outcome)
	// Taken before detection resumes; a new run overwrites the cell.
	progress := s.status.Snapshot().Progress

	s.mu.Lock()
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	s.detector.Reset()
	s.detector.SetEnabled(true)

	s.safely("show ui", s.ui.ShowUI)
	s.safely("cue", func() {
		if outcome.Success() {
			s.cue.Fire(domain.CueBackupSucceeded)
		} else {
			s.cue.Fire(domain.CueBackupFailed)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()

	var cpuPercent float64
	if outcome.Success() && s.cpu != nil {
		s.safely("cpu sample", func() {
			p, err := s.cpu.Sample(ctx)
			if err != nil {
				s.logger.Warn("failed to sample cpu usage", "error", err)
				return
			}
			cpuPercent = p
		})
	}

	if outcome.Success() && s.recorder != nil {
		s.safely("analytics", func() {
			record := domain.RunRecord{
				RunID:      outcome.RunID,
				Timestamp:  outcome.EndTime,
				Duration:   outcome.Duration,
				Bytes:      outcome.BytesCopied,
				CPUPercent: cpuPercent,
			}
			if err := s.recorder.Record(ctx, record); err != nil {
				s.logger.Warn("failed to record analytics", "error", err)
			}
		})
	}

	s.safely("metrics", func() {
		if err := s.pushMetrics(ctx, outcome, progress, cpuPercent); err != nil {
			s.logger.Error("failed to push metrics", "error", err)
		}
	})

	s.safely("notification", func() {
		if err := s.sendNotification(ctx, outcome, progress); err != nil {
			s.logger.Error("failed to send notification", "error", err)
		}
	})
}

// safely runs a post-run step, containing panics from collaborators.
func (s *Supervisor) safely(step string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("post-run step panicked", "step", step, "panic", r)
		}
	}()
	fn()
}

func (s *Supervisor) pushMetrics(ctx context.Context, outcome domain.Outcome, progress domain.Progress, cpuPercent float64) error {
	if s.metricsPusher == nil {
		return nil
	}

	return s.metricsPusher.Push(ctx,
		domain.RunMetrics(s.hostname, outcome, progress, cpuPercent))
}

func (s *Supervisor) sendNotification(ctx context.Context, outcome domain.Outcome, progress domain.Progress) error {
	if s.notifier == nil {
		return nil
	}

	var notification *domain.Notification

	switch {
	case outcome.Kind == domain.OutcomeFailed:
		notification = domain.NewNotification(
			"Backup Failed",
			s.buildFailureMessage(outcome),
			domain.NotificationLevelError,
		)

	case outcome.Kind == domain.OutcomeCancelled &&
		(s.notifyLevel == config.NotifyWarning || s.notifyLevel == config.NotifyAlways):
		notification = domain.NewNotification(
			"Backup Cancelled",
			s.buildCancelMessage(outcome, progress),
			domain.NotificationLevelWarning,
		)

	case outcome.Success() && s.notifyLevel == config.NotifyAlways:
		notification = domain.NewNotification(
			"Backup Completed",
			s.buildSuccessMessage(outcome),
			domain.NotificationLevelInfo,
		)
	}

	if notification == nil {
		return nil
	}

	return s.notifier.Notify(ctx, notification)
}

func (s *Supervisor) buildFailureMessage(outcome domain.Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Backup failed on %s.\n", s.hostname)
	fmt.Fprintf(&b, "Error: %s\n", outcome.Reason())
	fmt.Fprintf(&b, "Files copied before failure: %d", outcome.FilesCopied)
	return b.String()
}

func (s *Supervisor) buildCancelMessage(outcome domain.Outcome, progress domain.Progress) string {
	return fmt.Sprintf("Backup cancelled on %s after %d of %d files.",
		s.hostname, outcome.FilesCopied, progress.FilesTotal)
}

func (s *Supervisor) buildSuccessMessage(outcome domain.Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Backup completed successfully on %s.\n", s.hostname)
	fmt.Fprintf(&b, "Files: %d (%s)\n", outcome.FilesCopied, humanize.Bytes(outcome.BytesCopied))
	fmt.Fprintf(&b, "Duration: %s", outcome.Duration.Round(100*time.Millisecond))
	return b.String()
}

// shutdown awaits any running backup, then reports the service as down.
func (s *Supervisor) shutdown() {
	s.Wait()

	if s.metricsPusher == nil {
		return
	}

	s.logger.Debug("pushing final metrics before shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()

	if err := s.metricsPusher.Push(ctx, domain.LivenessMetrics(s.hostname, false)); err != nil {
		s.logger.Warn("failed to push final metrics", "error", err)
	}
}

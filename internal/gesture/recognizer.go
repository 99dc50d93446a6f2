package gesture

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/sharkusmanch/outline-backup/internal/domain"
)

// State is the recognizer's position in the outline-then-confirm sequence.
type State int32

const (
	StateIdle State = iota
	StateTracingOutline
	StateAwaitingConfirmation
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTracingOutline:
		return "tracing_outline"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	default:
		return "unknown"
	}
}

// Intent is a high-level result of gesture recognition.
type Intent int

const (
	// IntentOutlineComplete means the outline was drawn and confirmation is expected.
	IntentOutlineComplete Intent = iota + 1
	// IntentBackupConfirmed means the confirming stroke was drawn.
	IntentBackupConfirmed
)

// String returns the string representation of the intent.
func (i Intent) String() string {
	switch i {
	case IntentOutlineComplete:
		return "outline_complete"
	case IntentBackupConfirmed:
		return "backup_confirmed"
	default:
		return "unknown"
	}
}

// Recognizer is the gesture state machine. All tracker state is owned by the
// goroutine calling Handle (normally Run); Reset and SetEnabled are the only
// methods safe to call from other goroutines.
type Recognizer struct {
	outline tracker
	confirm tracker
	logger  *slog.Logger

	state   atomic.Int32
	enabled atomic.Bool
	pressed bool

	resetCh chan struct{}
	intents chan Intent
}

// Option configures a Recognizer.
type Option func(*Recognizer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Recognizer) {
		r.logger = l
	}
}

// WithIntentBuffer sets the capacity of the intent channel.
func WithIntentBuffer(n int) Option {
	return func(r *Recognizer) {
		r.intents = make(chan Intent, n)
	}
}

// NewRecognizer builds a recognizer for the given screen from an outline and a
// confirmation definition. It starts enabled and idle.
func NewRecognizer(geom Geometry, outline, confirm Definition, opts ...Option) *Recognizer {
	r := &Recognizer{
		outline: outline.newTracker(geom),
		confirm: confirm.newTracker(geom),
		logger:  slog.Default(),
		resetCh: make(chan struct{}, 1),
		intents: make(chan Intent, 4),
	}
	r.enabled.Store(true)

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Intents returns the channel Run delivers intents on.
func (r *Recognizer) Intents() <-chan Intent {
	return r.intents
}

// State returns the current state.
func (r *Recognizer) State() State {
	return State(r.state.Load())
}

// Enabled reports whether events are being processed.
func (r *Recognizer) Enabled() bool {
	return r.enabled.Load()
}

// SetEnabled turns event processing on or off. Disabled recognizers drop every event.
func (r *Recognizer) SetEnabled(enabled bool) {
	r.enabled.Store(enabled)
}

// Reset requests a return to Idle. The request is applied on the owning
// goroutine before the next event, so it never races with tracker updates.
func (r *Recognizer) Reset() {
	select {
	case r.resetCh <- struct{}{}:
	default:
	}
}

// Run consumes events until ctx is cancelled or events is closed, forwarding
// intents to Intents(). The intent channel is closed when Run returns.
func (r *Recognizer) Run(ctx context.Context, events <-chan domain.PointerEvent) error {
	defer close(r.intents)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-r.resetCh:
			r.applyReset()

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			intent, emitted := r.Handle(ev)
			if !emitted {
				continue
			}
			select {
			case r.intents <- intent:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Handle applies a single event and returns the intent it produced, if any.
func (r *Recognizer) Handle(ev domain.PointerEvent) (Intent, bool) {
	select {
	case <-r.resetCh:
		r.applyReset()
	default:
	}

	if !r.enabled.Load() {
		return 0, false
	}

	switch r.State() {
	case StateIdle:
		if ev.Kind == domain.ButtonDown {
			r.outline.Reset()
			r.pressed = true
			r.setState(StateTracingOutline)
		}

	case StateTracingOutline:
		switch ev.Kind {
		case domain.Move:
			r.outline.Update(ev.X, ev.Y)
		case domain.ButtonDown:
			// Missed release: start the outline over.
			r.outline.Reset()
		case domain.ButtonUp:
			r.pressed = false
			if !r.outline.Complete() {
				r.logger.Info("outline incomplete, waiting for a new attempt")
				r.setState(StateIdle)
				return 0, false
			}
			r.confirm.Reset()
			r.setState(StateAwaitingConfirmation)
			r.logger.Info("outline recognized, waiting for confirmation stroke")
			return IntentOutlineComplete, true
		}

	case StateAwaitingConfirmation:
		switch ev.Kind {
		case domain.ButtonDown:
			r.confirm.Reset()
			r.pressed = true
		case domain.Move:
			if r.pressed {
				r.confirm.Update(ev.X, ev.Y)
			}
		case domain.ButtonUp:
			if !r.pressed {
				return 0, false
			}
			r.pressed = false
			if !r.confirm.Complete() {
				r.logger.Info("stroke not horizontal, try again")
				return 0, false
			}
			// Stay disabled until the backup that this starts has finished.
			r.enabled.Store(false)
			r.setState(StateIdle)
			r.logger.Info("backup confirmed")
			return IntentBackupConfirmed, true
		}
	}

	return 0, false
}

func (r *Recognizer) applyReset() {
	r.outline.Reset()
	r.confirm.Reset()
	r.pressed = false
	if r.State() != StateIdle {
		r.logger.Debug("gesture reset", "from", r.State())
	}
	r.setState(StateIdle)
}

func (r *Recognizer) setState(s State) {
	prev := State(r.state.Swap(int32(s)))
	if prev != s {
		r.logger.Debug("gesture state changed", "from", prev, "to", s)
	}
}

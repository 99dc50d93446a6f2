package notify

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sharkusmanch/outline-backup/internal/domain"
)

const bell = "\a"

// BellCue rings the terminal bell for each cue and logs it.
type BellCue struct {
	mu     sync.Mutex
	w      io.Writer
	logger *slog.Logger
}

// NewBellCue creates a BellCue writing to w (usually a terminal).
func NewBellCue(w io.Writer, logger *slog.Logger) *BellCue {
	if logger == nil {
		logger = slog.Default()
	}
	return &BellCue{w: w, logger: logger}
}

// Fire rings once for an outline and success, twice for a failure.
func (c *BellCue) Fire(kind domain.CueKind) {
	c.logger.Info("cue", "kind", kind)

	rings := 1
	if kind == domain.CueBackupFailed {
		rings = 2
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := 0; i < rings; i++ {
		_, _ = io.WriteString(c.w, bell)
	}
}

// signal is one JSON line written for an external UI process.
type signal struct {
	Event string         `json:"event"`
	Cue   domain.CueKind `json:"cue,omitempty"`
	Time  time.Time      `json:"time"`
}

// SignalWriter tells an external UI process about cues and show requests by
// writing one JSON object per line.
type SignalWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
	now func() time.Time
}

// NewSignalWriter creates a SignalWriter on w.
func NewSignalWriter(w io.Writer) *SignalWriter {
	return &SignalWriter{enc: json.NewEncoder(w), now: time.Now}
}

// Fire writes a cue event.
func (s *SignalWriter) Fire(kind domain.CueKind) {
	s.write(signal{Event: "cue", Cue: kind})
}

// ShowUI writes a show_ui event.
func (s *SignalWriter) ShowUI() {
	s.write(signal{Event: "show_ui"})
}

func (s *SignalWriter) write(sig signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sig.Time = s.now().UTC()
	_ = s.enc.Encode(sig)
}

var (
	_ domain.Cue        = (*BellCue)(nil)
	_ domain.Cue        = (*SignalWriter)(nil)
	_ domain.UISignaler = (*SignalWriter)(nil)
)

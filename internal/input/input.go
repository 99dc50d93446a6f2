// Package input decodes pointer and control events from a JSON-lines stream.
//
// Each line is one object with a "type" of down, up, move, reset or cancel.
// Pointer types carry "x" and "y" in screen pixels:
//
//	{"type":"down","x":0,"y":0}
//	{"type":"move","x":640,"y":2}
//	{"type":"up","x":640,"y":2}
//	{"type":"cancel"}
package input

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sharkusmanch/outline-backup/internal/domain"
)

// maxLineSize bounds a single input line.
const maxLineSize = 64 * 1024

// Message is one decoded input line.
type Message struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Control receives the non-pointer messages.
type Control interface {
	// Reset declines a pending confirmation.
	Reset()
	// Cancel stops a running backup.
	Cancel()
}

// ErrUnknownType is returned by Decode for an unrecognized message type.
var ErrUnknownType = errors.New("unknown message type")

// Decode parses one line. Exactly one of the pointer event or control name
// is meaningful: ok reports a pointer event, otherwise control holds
// "reset" or "cancel".
func Decode(line []byte) (ev domain.PointerEvent, control string, ok bool, err error) {
	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return ev, "", false, fmt.Errorf("invalid input line: %w", err)
	}

	var kind domain.PointerKind
	switch t := strings.ToLower(msg.Type); t {
	case "down":
		kind = domain.ButtonDown
	case "up":
		kind = domain.ButtonUp
	case "move":
		kind = domain.Move
	case "reset", "cancel":
		return ev, t, false, nil
	default:
		return ev, "", false, fmt.Errorf("%w %q", ErrUnknownType, msg.Type)
	}
	return domain.PointerEvent{Kind: kind, X: msg.X, Y: msg.Y}, "", true, nil
}

// Reader turns a JSON-lines stream into pointer events and control calls.
type Reader struct {
	r       io.Reader
	control Control
	logger  *slog.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(rd *Reader) {
		rd.logger = l
	}
}

// NewReader creates a Reader. control may be nil, in which case control
// messages are logged and dropped.
func NewReader(r io.Reader, control Control, opts ...Option) *Reader {
	rd := &Reader{
		r:       r,
		control: control,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(rd)
	}
	return rd
}

// Run forwards pointer events to out until the stream ends or ctx is
// cancelled, then closes out. Malformed lines are logged and skipped.
// A blocked read of the underlying stream does not delay the return on
// cancellation.
func (rd *Reader) Run(ctx context.Context, out chan<- domain.PointerEvent) error {
	defer close(out)

	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(rd.r)
		scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("failed to read input: %w", err)
					}
				default:
				}
				rd.logger.Info("input stream closed")
				return nil
			}
			if len(strings.TrimSpace(string(line))) == 0 {
				continue
			}

			ev, control, isPointer, err := Decode(line)
			if err != nil {
				rd.logger.Warn("skipping input line", "error", err)
				continue
			}
			if !isPointer {
				rd.dispatch(control)
				continue
			}

			select {
			case out <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (rd *Reader) dispatch(control string) {
	if rd.control == nil {
		rd.logger.Debug("no control handler, dropping message", "type", control)
		return
	}
	switch control {
	case "reset":
		rd.control.Reset()
	case "cancel":
		rd.control.Cancel()
	}
}

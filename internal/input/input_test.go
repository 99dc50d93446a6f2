package input

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharkusmanch/outline-backup/internal/domain"
)

type recordingControl struct {
	mu    sync.Mutex
	calls []string
}

func (c *recordingControl) Reset()  { c.record("reset") }
func (c *recordingControl) Cancel() { c.record("cancel") }

func (c *recordingControl) record(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, s)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDecode(t *testing.T) {
	tests := []struct {
		line      string
		want      domain.PointerEvent
		control   string
		isPointer bool
		wantErr   bool
	}{
		{line: `{"type":"down"}`, want: domain.Down(), isPointer: true},
		{line: `{"type":"UP"}`, want: domain.Up(), isPointer: true},
		{line: `{"type":"move","x":12.5,"y":3}`, want: domain.MoveTo(12.5, 3), isPointer: true},
		{line: `{"type":"reset"}`, control: "reset"},
		{line: `{"type":"cancel"}`, control: "cancel"},
		{line: `{"type":"wiggle"}`, wantErr: true},
		{line: `not json`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			ev, control, isPointer, err := Decode([]byte(tt.line))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.isPointer, isPointer)
			assert.Equal(t, tt.control, control)
			if isPointer {
				assert.Equal(t, tt.want, ev)
			}
		})
	}
}

func TestReader_Run(t *testing.T) {
	stream := strings.Join([]string{
		`{"type":"down"}`,
		``,
		`{"type":"move","x":10,"y":0}`,
		`garbage`,
		`{"type":"reset"}`,
		`{"type":"up"}`,
		`{"type":"cancel"}`,
	}, "\n")

	control := &recordingControl{}
	rd := NewReader(strings.NewReader(stream), control, WithLogger(quietLogger()))

	out := make(chan domain.PointerEvent, 10)
	require.NoError(t, rd.Run(context.Background(), out))

	var got []domain.PointerEvent
	for ev := range out {
		got = append(got, ev)
	}
	assert.Equal(t, []domain.PointerEvent{domain.Down(), domain.MoveTo(10, 0), domain.Up()}, got)
	assert.Equal(t, []string{"reset", "cancel"}, control.calls)
}

func TestReader_Run_ContextCancelWhileBlocked(t *testing.T) {
	pr, pw := io.Pipe()
	defer func() { _ = pw.Close() }()

	rd := NewReader(pr, nil, WithLogger(quietLogger()))
	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan domain.PointerEvent)

	errCh := make(chan error, 1)
	go func() { errCh <- rd.Run(ctx, out) }()

	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	_, open := <-out
	assert.False(t, open)
}

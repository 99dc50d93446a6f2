package gesture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharkusmanch/outline-backup/internal/domain"
)

func testRecognizer() *Recognizer {
	geom := Geometry{Width: testWidth, Height: testHeight, Tolerance: testTol}
	return NewRecognizer(geom,
		BucketedContour{Segments: 4},
		HorizontalStroke{MinDX: DefaultStrokeMinDX, MaxDY: DefaultStrokeMaxDY},
	)
}

// perimeter returns moves around the whole screen border, repeated n times.
func perimeter(n int) []domain.PointerEvent {
	var evs []domain.PointerEvent
	for r := 0; r < n; r++ {
		for x := 0.0; x <= testWidth; x += 50 {
			evs = append(evs, domain.MoveTo(x, 0))
		}
		for y := 0.0; y <= testHeight; y += 50 {
			evs = append(evs, domain.MoveTo(testWidth, y))
		}
		for x := testWidth; x >= 0; x -= 50 {
			evs = append(evs, domain.MoveTo(x, testHeight))
		}
		for y := testHeight; y >= 0; y -= 50 {
			evs = append(evs, domain.MoveTo(0, y))
		}
	}
	return evs
}

func outlineGesture(n int) []domain.PointerEvent {
	evs := []domain.PointerEvent{domain.Down()}
	evs = append(evs, perimeter(n)...)
	return append(evs, domain.Up())
}

func stroke(x0, y0, x1, y1 float64) []domain.PointerEvent {
	return []domain.PointerEvent{
		domain.Down(),
		domain.MoveTo(x0, y0),
		domain.MoveTo((x0+x1)/2, (y0+y1)/2),
		domain.MoveTo(x1, y1),
		domain.Up(),
	}
}

func feed(r *Recognizer, evs []domain.PointerEvent) []Intent {
	var intents []Intent
	for _, ev := range evs {
		if intent, ok := r.Handle(ev); ok {
			intents = append(intents, intent)
		}
	}
	return intents
}

func TestRecognizer_OutlineMovesToAwaitingConfirmation(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		r := testRecognizer()
		intents := feed(r, outlineGesture(n))

		assert.Equal(t, []Intent{IntentOutlineComplete}, intents, "n=%d", n)
		assert.Equal(t, StateAwaitingConfirmation, r.State())
	}
}

func TestRecognizer_DownUpWithoutCoverage(t *testing.T) {
	r := testRecognizer()

	intents := feed(r, []domain.PointerEvent{domain.Down(), domain.Up()})

	assert.Empty(t, intents)
	assert.Equal(t, StateIdle, r.State())
}

func TestRecognizer_PartialOutlineReturnsToIdle(t *testing.T) {
	r := testRecognizer()

	evs := []domain.PointerEvent{domain.Down()}
	for x := 0.0; x <= testWidth; x += 50 {
		evs = append(evs, domain.MoveTo(x, 0))
	}
	evs = append(evs, domain.Up())

	assert.Empty(t, feed(r, evs))
	assert.Equal(t, StateIdle, r.State())
}

func TestRecognizer_ConfirmedByHorizontalStroke(t *testing.T) {
	r := testRecognizer()
	feed(r, outlineGesture(1))

	intents := feed(r, stroke(100, 300, 400, 310))

	assert.Equal(t, []Intent{IntentBackupConfirmed}, intents)
	assert.Equal(t, StateIdle, r.State())
	assert.False(t, r.Enabled(), "recognizer stays disabled until the backup finishes")
}

func TestRecognizer_InvalidStrokeAllowsRetry(t *testing.T) {
	r := testRecognizer()
	feed(r, outlineGesture(1))

	assert.Empty(t, feed(r, stroke(100, 100, 150, 400)))
	assert.Equal(t, StateAwaitingConfirmation, r.State())

	assert.Equal(t, []Intent{IntentBackupConfirmed}, feed(r, stroke(500, 300, 100, 320)))
}

func TestRecognizer_HoverBeforePressIsNotAStroke(t *testing.T) {
	r := testRecognizer()
	feed(r, outlineGesture(1))

	intents := feed(r, []domain.PointerEvent{
		domain.MoveTo(0, 300),
		domain.MoveTo(500, 300),
		domain.Up(),
	})

	assert.Empty(t, intents)
	assert.Equal(t, StateAwaitingConfirmation, r.State())
}

func TestRecognizer_DisabledIgnoresEvents(t *testing.T) {
	r := testRecognizer()
	r.SetEnabled(false)

	assert.Empty(t, feed(r, outlineGesture(1)))
	assert.Equal(t, StateIdle, r.State())

	r.SetEnabled(true)
	assert.Equal(t, []Intent{IntentOutlineComplete}, feed(r, outlineGesture(1)))
}

func TestRecognizer_ResetReturnsToIdle(t *testing.T) {
	r := testRecognizer()
	feed(r, outlineGesture(1))
	require.Equal(t, StateAwaitingConfirmation, r.State())

	r.Reset()
	// A horizontal stroke after reset is just the start of a new outline attempt.
	assert.Empty(t, feed(r, stroke(100, 300, 400, 300)))
	assert.Equal(t, StateIdle, r.State())
}

func TestRecognizer_AnyEdgeTouch(t *testing.T) {
	geom := Geometry{Width: testWidth, Height: testHeight, Tolerance: testTol}
	r := NewRecognizer(geom, AnyEdgeTouch{}, HorizontalStroke{MinDX: 100, MaxDY: 50})

	corners := []domain.PointerEvent{
		domain.Down(),
		domain.MoveTo(0, 0),
		domain.MoveTo(testWidth, testHeight),
		domain.Up(),
	}

	assert.Equal(t, []Intent{IntentOutlineComplete}, feed(r, corners))
}

func TestRecognizer_Run(t *testing.T) {
	r := testRecognizer()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan domain.PointerEvent)
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, events) }()

	go func() {
		for _, ev := range outlineGesture(1) {
			events <- ev
		}
		for _, ev := range stroke(0, 300, 300, 300) {
			events <- ev
		}
		close(events)
	}()

	var got []Intent
	for intent := range r.Intents() {
		got = append(got, intent)
	}

	assert.Equal(t, []Intent{IntentOutlineComplete, IntentBackupConfirmed}, got)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after events closed")
	}
}

func TestNewGeometry_ScalesTolerance(t *testing.T) {
	assert.InDelta(t, 21.6, NewGeometry(1920, 1080, 0.02, 10).Tolerance, 1e-9)
	assert.Equal(t, 10.0, NewGeometry(320, 240, 0.02, 10).Tolerance)
}

func TestParseOutline(t *testing.T) {
	def, err := ParseOutline("contour", 6)
	require.NoError(t, err)
	assert.Equal(t, BucketedContour{Segments: 6}, def)

	def, err = ParseOutline("EDGES", 0)
	require.NoError(t, err)
	assert.Equal(t, AnyEdgeTouch{}, def)

	_, err = ParseOutline("contour", 0)
	assert.Error(t, err)

	_, err = ParseOutline("x-shape", 4)
	assert.Error(t, err)
}

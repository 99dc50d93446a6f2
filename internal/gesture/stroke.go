package gesture

// Default thresholds for a confirming stroke, in pointer units.
const (
	DefaultStrokeMinDX = 100.0
	DefaultStrokeMaxDY = 50.0
)

// HorizontalStrokeTracker tracks whether a single drag was predominantly horizontal.
type HorizontalStrokeTracker struct {
	minDX, maxDY float64

	hasStart       bool
	startX, startY float64
	endX, endY     float64
	valid          bool
}

// NewHorizontalStrokeTracker creates a tracker that accepts strokes with
// |dx| > minDX and |dy| < maxDY.
func NewHorizontalStrokeTracker(minDX, maxDY float64) *HorizontalStrokeTracker {
	return &HorizontalStrokeTracker{minDX: minDX, maxDY: maxDY}
}

// Update sets the start point on the first call since Reset and always moves the end point.
func (t *HorizontalStrokeTracker) Update(x, y float64) {
	if !t.hasStart {
		t.startX, t.startY = x, y
		t.hasStart = true
	}
	t.endX, t.endY = x, y
	t.valid = abs(t.endX-t.startX) > t.minDX && abs(t.endY-t.startY) < t.maxDY
}

// IsValid reports whether the stroke so far qualifies as horizontal.
func (t *HorizontalStrokeTracker) IsValid() bool {
	return t.valid
}

// Reset clears the stroke, keeping the thresholds.
func (t *HorizontalStrokeTracker) Reset() {
	*t = HorizontalStrokeTracker{minDX: t.minDX, maxDY: t.maxDY}
}

package gesture

import (
	"fmt"
	"math"
	"strings"
)

// Geometry describes the screen the pointer moves on.
type Geometry struct {
	Width     float64
	Height    float64
	Tolerance float64
}

// NewGeometry scales the edge tolerance to the screen: ratio of the shorter
// side, never less than minTolerance.
func NewGeometry(width, height int, ratio, minTolerance float64) Geometry {
	short := math.Min(float64(width), float64(height))
	return Geometry{
		Width:     float64(width),
		Height:    float64(height),
		Tolerance: math.Max(minTolerance, ratio*short),
	}
}

// Definition describes one gesture a recognizer can track.
// Implementations are AnyEdgeTouch, BucketedContour and HorizontalStroke.
type Definition interface {
	// Name identifies the definition in logs and config.
	Name() string
	newTracker(g Geometry) tracker
}

// tracker accumulates one drag and decides if it completed the gesture.
type tracker interface {
	Reset()
	Update(x, y float64)
	Complete() bool
}

// AnyEdgeTouch completes once every edge has been touched at least once.
type AnyEdgeTouch struct{}

// Name returns "edges".
func (AnyEdgeTouch) Name() string { return "edges" }

func (AnyEdgeTouch) newTracker(g Geometry) tracker {
	return &contourTracker{geom: g, segments: 1}
}

// BucketedContour completes once every one of Segments buckets on every edge was visited.
type BucketedContour struct {
	Segments int
}

// Name returns "contour".
func (BucketedContour) Name() string { return "contour" }

func (d BucketedContour) newTracker(g Geometry) tracker {
	return &contourTracker{geom: g, segments: d.Segments}
}

// HorizontalStroke completes on a drag with |dx| > MinDX and |dy| < MaxDY.
type HorizontalStroke struct {
	MinDX float64
	MaxDY float64
}

// Name returns "stroke".
func (HorizontalStroke) Name() string { return "stroke" }

func (d HorizontalStroke) newTracker(Geometry) tracker {
	return &strokeTracker{NewHorizontalStrokeTracker(d.MinDX, d.MaxDY)}
}

// ParseOutline maps a config name to an outline definition.
func ParseOutline(name string, segments int) (Definition, error) {
	switch strings.ToLower(name) {
	case "", "contour":
		if segments < 1 {
			return nil, fmt.Errorf("contour segments must be at least 1, got %d", segments)
		}
		return BucketedContour{Segments: segments}, nil
	case "edges":
		return AnyEdgeTouch{}, nil
	default:
		return nil, fmt.Errorf("unknown outline gesture %q (want contour or edges)", name)
	}
}

type contourTracker struct {
	geom     Geometry
	segments int
	coverage EdgeCoverage
}

func (t *contourTracker) Reset() { t.coverage.Reset() }

func (t *contourTracker) Update(x, y float64) {
	t.coverage.Update(x, y, t.geom.Width, t.geom.Height, t.geom.Tolerance)
}

func (t *contourTracker) Complete() bool {
	return t.coverage.IsContourComplete(t.geom.Width, t.geom.Height, t.segments)
}

type strokeTracker struct {
	*HorizontalStrokeTracker
}

func (t *strokeTracker) Complete() bool { return t.IsValid() }

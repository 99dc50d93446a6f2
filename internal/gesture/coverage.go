// Package gesture recognizes the outline-then-stroke gesture that triggers a backup.
package gesture

// Edge identifies one side of the screen.
type Edge int

const (
	EdgeTop Edge = iota
	EdgeRight
	EdgeBottom
	EdgeLeft
)

var edges = [...]Edge{EdgeTop, EdgeRight, EdgeBottom, EdgeLeft}

func (e Edge) String() string {
	switch e {
	case EdgeTop:
		return "top"
	case EdgeRight:
		return "right"
	case EdgeBottom:
		return "bottom"
	case EdgeLeft:
		return "left"
	default:
		return "unknown"
	}
}

// EdgeCoverage records which points along the four screen edges a drag visited.
// Top and bottom store x coordinates, left and right store y coordinates.
// The zero value is ready to use.
type EdgeCoverage struct {
	points [4][]float64
	seen   [4]map[float64]struct{}
}

// NewEdgeCoverage creates an empty EdgeCoverage.
func NewEdgeCoverage() *EdgeCoverage {
	return &EdgeCoverage{}
}

// Update records (x, y) on every edge it lies within tolerance of.
func (c *EdgeCoverage) Update(x, y, width, height, tolerance float64) {
	inX := x >= 0 && x <= width
	inY := y >= 0 && y <= height

	if abs(y) <= tolerance && inX {
		c.record(EdgeTop, x)
	}
	if abs(x-width) <= tolerance && inY {
		c.record(EdgeRight, y)
	}
	if abs(y-height) <= tolerance && inX {
		c.record(EdgeBottom, x)
	}
	if abs(x) <= tolerance && inY {
		c.record(EdgeLeft, y)
	}
}

func (c *EdgeCoverage) record(e Edge, v float64) {
	if c.seen[e] == nil {
		c.seen[e] = make(map[float64]struct{})
	}
	if _, ok := c.seen[e][v]; ok {
		return
	}
	c.seen[e][v] = struct{}{}
	c.points[e] = append(c.points[e], v)
}

// Points returns a copy of the coordinates recorded for e, in visit order.
func (c *EdgeCoverage) Points(e Edge) []float64 {
	out := make([]float64, len(c.points[e]))
	copy(out, c.points[e])
	return out
}

// IsContourComplete reports whether every one of segments equal buckets on
// every edge holds at least one recorded coordinate.
func (c *EdgeCoverage) IsContourComplete(width, height float64, segments int) bool {
	if segments < 1 {
		segments = 1
	}
	for _, e := range edges {
		span := width
		if e == EdgeLeft || e == EdgeRight {
			span = height
		}
		if !bucketsFilled(c.points[e], span, segments) {
			return false
		}
	}
	return true
}

// Reset clears all four edges.
func (c *EdgeCoverage) Reset() {
	for i := range c.points {
		c.points[i] = c.points[i][:0]
		clear(c.seen[i])
	}
}

func bucketsFilled(points []float64, span float64, segments int) bool {
	if span <= 0 || len(points) == 0 {
		return false
	}
	size := span / float64(segments)
	filled := make([]bool, segments)
	remaining := segments
	for _, p := range points {
		i := int(p / size)
		if i >= segments {
			i = segments - 1
		}
		if i < 0 {
			i = 0
		}
		if !filled[i] {
			filled[i] = true
			remaining--
			if remaining == 0 {
				return true
			}
		}
	}
	return false
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

package gesture

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHorizontalStrokeTracker(t *testing.T) {
	tests := []struct {
		name   string
		points [][2]float64
		want   bool
	}{
		{"long horizontal", [][2]float64{{0, 0}, {150, 0}}, true},
		{"too much vertical", [][2]float64{{0, 0}, {150, 60}}, false},
		{"too short", [][2]float64{{0, 0}, {50, 0}}, false},
		{"exactly min dx", [][2]float64{{0, 0}, {100, 0}}, false},
		{"leftwards", [][2]float64{{300, 200}, {120, 230}}, true},
		{"only end matters", [][2]float64{{0, 0}, {80, 200}, {160, 10}}, true},
		{"single point", [][2]float64{{0, 0}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewHorizontalStrokeTracker(DefaultStrokeMinDX, DefaultStrokeMaxDY)
			for _, p := range tt.points {
				tr.Update(p[0], p[1])
			}
			assert.Equal(t, tt.want, tr.IsValid())
		})
	}
}

func TestHorizontalStrokeTracker_Reset(t *testing.T) {
	tr := NewHorizontalStrokeTracker(DefaultStrokeMinDX, DefaultStrokeMaxDY)
	tr.Update(0, 0)
	tr.Update(150, 0)
	assert.True(t, tr.IsValid())

	tr.Reset()
	assert.False(t, tr.IsValid())

	// The new start point is the first update after reset.
	tr.Update(150, 0)
	tr.Update(200, 0)
	assert.False(t, tr.IsValid())

	tr.Update(260, 0)
	assert.True(t, tr.IsValid())
}

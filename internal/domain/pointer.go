// Package domain defines core business types and interfaces.
package domain

import "fmt"

// PointerKind identifies the kind of a raw pointer event.
type PointerKind uint8

const (
	// ButtonDown is a primary button press.
	ButtonDown PointerKind = iota + 1
	// ButtonUp is a primary button release.
	ButtonUp
	// Move is a pointer movement to an absolute screen position.
	Move
)

// String returns the string representation of the pointer kind.
func (k PointerKind) String() string {
	switch k {
	case ButtonDown:
		return "down"
	case ButtonUp:
		return "up"
	case Move:
		return "move"
	default:
		return "unknown"
	}
}

// PointerEvent is a single event from the pointer stream.
// X and Y are only meaningful for Move events.
type PointerEvent struct {
	Kind PointerKind
	X    float64
	Y    float64
}

// Down returns a ButtonDown event.
func Down() PointerEvent {
	return PointerEvent{Kind: ButtonDown}
}

// Up returns a ButtonUp event.
func Up() PointerEvent {
	return PointerEvent{Kind: ButtonUp}
}

// MoveTo returns a Move event to (x, y).
func MoveTo(x, y float64) PointerEvent {
	return PointerEvent{Kind: Move, X: x, Y: y}
}

func (e PointerEvent) String() string {
	if e.Kind == Move {
		return fmt.Sprintf("move(%.0f,%.0f)", e.X, e.Y)
	}
	return e.Kind.String()
}

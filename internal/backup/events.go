package backup

import "github.com/sharkusmanch/outline-backup/internal/domain"

// Event is the interface implemented by all engine events.
type Event interface {
	isEvent()
}

// EventEmitter receives engine events in order, on the engine's goroutine.
type EventEmitter interface {
	Emit(event Event)
}

// EmitterFunc adapts a function to EventEmitter.
type EmitterFunc func(Event)

// Emit calls f(event).
func (f EmitterFunc) Emit(event Event) { f(event) }

// Started is emitted once the total file count is known.
type Started struct {
	RunID      string
	FilesTotal uint64
}

func (Started) isEvent() {}

// FileCopied is emitted after each copied and verified file.
type FileCopied struct {
	RunID    string
	Progress domain.Progress
}

func (FileCopied) isEvent() {}

// Finished is emitted exactly once per run, after every other event.
type Finished struct {
	Outcome  domain.Outcome
	Progress domain.Progress
}

func (Finished) isEvent() {}

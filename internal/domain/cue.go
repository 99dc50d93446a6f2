package domain

// CueKind identifies a user-facing audible or visual cue.
type CueKind string

const (
	// CueOutlineComplete fires when the perimeter gesture is recognized.
	CueOutlineComplete CueKind = "outline_complete"
	CueBackupSucceeded CueKind = "backup_succeeded"
	CueBackupFailed    CueKind = "backup_failed"
)

// Cue is a fire-and-forget trigger. Implementations must not block.
type Cue interface {
	Fire(kind CueKind)
}

// NopCue ignores every cue.
type NopCue struct{}

func (NopCue) Fire(CueKind) {}

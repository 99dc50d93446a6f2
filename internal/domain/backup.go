package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrNotConfigured is returned by a ConfigProvider when no source or destination has been set.
var ErrNotConfigured = errors.New("backup source and destination are not configured")

// BackupMode selects which files a backup copies.
type BackupMode string

const (
	// BackupModeAll copies every regular file.
	BackupModeAll BackupMode = "all"
	// BackupModeCustom copies only files whose extension is in the filter.
	BackupModeCustom BackupMode = "custom"
)

// IsValid returns true if the mode is known.
func (m BackupMode) IsValid() bool {
	switch m {
	case BackupModeAll, BackupModeCustom:
		return true
	default:
		return false
	}
}

// String returns the string representation of the backup mode.
func (m BackupMode) String() string {
	return string(m)
}

// HashAlgorithm names the content hash used for integrity verification.
type HashAlgorithm string

const (
	// HashSHA256 verifies copies with SHA-256.
	HashSHA256 HashAlgorithm = "sha256"
	// HashBLAKE2b verifies copies with BLAKE2b-256.
	HashBLAKE2b HashAlgorithm = "blake2b"
)

// IsValid returns true if the algorithm is supported.
func (h HashAlgorithm) IsValid() bool {
	switch h {
	case HashSHA256, HashBLAKE2b:
		return true
	default:
		return false
	}
}

// BackupConfig is an immutable snapshot of what one backup run copies.
type BackupConfig struct {
	Source      string
	Destination string
	Mode        BackupMode
	// Extensions holds normalized extensions (lower case, leading dot).
	Extensions map[string]struct{}
	// Exclude holds glob patterns matched against slash-separated relative paths.
	Exclude       []string
	HashAlgorithm HashAlgorithm
}

// IncludesAll reports whether every file passes the extension filter.
// An empty filter under BackupModeCustom behaves like BackupModeAll.
func (c BackupConfig) IncludesAll() bool {
	return c.Mode != BackupModeCustom || len(c.Extensions) == 0
}

// NewExtensionSet normalizes the given extensions into a set.
// Empty entries are dropped.
func NewExtensionSet(exts ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		if n := NormalizeExtension(ext); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// NormalizeExtension lower-cases ext and ensures a single leading dot.
func NormalizeExtension(ext string) string {
	ext = strings.TrimLeft(strings.TrimSpace(ext), ".")
	if ext == "" {
		return ""
	}
	return "." + strings.ToLower(ext)
}

// Progress is a snapshot of a running backup.
type Progress struct {
	FilesTotal  uint64 `json:"files_total"`
	FilesCopied uint64 `json:"files_copied"`
	// CurrentFile is the relative path of the last verified file, empty before the first one.
	CurrentFile string `json:"current_file,omitempty"`
	BytesCopied uint64 `json:"bytes_copied"`
}

// OutcomeKind is the terminal result class of a backup run.
type OutcomeKind string

const (
	// OutcomeSuccess means every selected file was copied and verified.
	OutcomeSuccess OutcomeKind = "success"
	// OutcomeCancelled means the user stopped the run.
	OutcomeCancelled OutcomeKind = "cancelled"
	// OutcomeFailed means the run aborted on a configuration, I/O or corruption error.
	OutcomeFailed OutcomeKind = "failed"
)

// String returns the string representation of the outcome kind.
func (k OutcomeKind) String() string {
	return string(k)
}

// Outcome is the terminal value of one backup run.
type Outcome struct {
	RunID       string
	Kind        OutcomeKind
	Err         error
	StartTime   time.Time
	EndTime     time.Time
	FilesCopied uint64
	// Duration and BytesCopied are only recorded for successful runs.
	Duration    time.Duration
	BytesCopied uint64
}

// Success returns true if the run completed successfully.
func (o Outcome) Success() bool {
	return o.Kind == OutcomeSuccess
}

// Reason returns the failure reason, or an empty string.
func (o Outcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Phase is the coarse state shown to the user.
type Phase string

const (
	// PhaseIdle means no gesture is pending and no backup is running.
	PhaseIdle Phase = "idle"
	// PhaseToConfirm means the outline was recognized and a confirming stroke is expected.
	PhaseToConfirm Phase = "to_confirm"
	// PhaseInProgress means a backup is running.
	PhaseInProgress Phase = "in_progress"
	// PhaseCompleted means the last backup reached an outcome.
	PhaseCompleted Phase = "completed"
)

// Status is a consistent snapshot of the shared status cell.
type Status struct {
	Phase     Phase
	Progress  Progress
	Outcome   *Outcome
	UpdatedAt time.Time
}

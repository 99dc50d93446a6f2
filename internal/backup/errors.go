package backup

import (
	"errors"
	"fmt"
)

// ErrCancelled is the error carried by a cancelled outcome.
var ErrCancelled = errors.New("backup cancelled")

// ConfigError reports an unusable backup configuration. No I/O has been
// performed when it is returned.
type ConfigError struct {
	Reason string
	Path   string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := "invalid backup configuration: " + e.Reason
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IOError reports a filesystem failure during traversal or copy.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// CorruptionError reports a content hash mismatch after a copy.
type CorruptionError struct {
	Path      string
	SourceSum string
	DestSum   string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("integrity check failed for %s: source %s, destination %s",
		e.Path, short(e.SourceSum), short(e.DestSum))
}

func short(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}

package backup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DefaultBufferSize is the buffer used for file copies (32KB).
const DefaultBufferSize = 32 * 1024

// Copier copies a single regular file.
type Copier interface {
	// Copy writes src to dst, replacing dst, and returns the bytes written.
	Copy(src, dst string) (int64, error)
}

// FileCopier streams file contents into a temporary file next to dst and
// renames it into place, so an existing dst is replaced whatever its mode.
// The source's permission bits and modification time are kept.
type FileCopier struct {
	BufferSize int
}

// Copy implements Copier.
func (c FileCopier) Copy(src, dst string) (int64, error) {
	in, err := os.Open(src) // #nosec G304 - path comes from the configured tree
	if err != nil {
		return 0, fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat source: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.partial")
	if err != nil {
		return 0, fmt.Errorf("create destination: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	size := c.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}

	n, err := io.CopyBuffer(tmp, in, make([]byte, size))
	if err != nil {
		return n, fmt.Errorf("copy: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return n, fmt.Errorf("sync destination: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("close destination: %w", err)
	}

	if err := os.Chmod(tmpPath, info.Mode().Perm()); err != nil {
		return n, fmt.Errorf("set destination mode: %w", err)
	}
	if err := os.Chtimes(tmpPath, info.ModTime(), info.ModTime()); err != nil {
		return n, fmt.Errorf("preserve modification time: %w", err)
	}

	if err := replace(tmpPath, dst); err != nil {
		return n, fmt.Errorf("replace destination: %w", err)
	}
	committed = true

	return n, nil
}

// replace renames tmp over dst. Windows refuses to replace a read-only
// file, so dst is made writable and the rename retried once.
func replace(tmp, dst string) error {
	err := os.Rename(tmp, dst)
	if err == nil {
		return nil
	}
	if info, statErr := os.Lstat(dst); statErr == nil && info.Mode().IsRegular() {
		if chmodErr := os.Chmod(dst, 0o600); chmodErr != nil {
			return errors.Join(err, chmodErr)
		}
		return os.Rename(tmp, dst)
	}
	return err
}

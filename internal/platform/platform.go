// Package platform provides OS integration: a single-instance lock,
// login autostart registration and screen size detection.
package platform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sharkusmanch/outline-backup/internal/domain"
)

// ErrAlreadyRunning is returned by AcquireLock when another instance holds the lock.
var ErrAlreadyRunning = errors.New("another instance is already running")

// AutostartOptions contains options for autostart registration.
type AutostartOptions struct {
	// Executable defaults to the running binary.
	Executable string
	// Args are passed to the executable at login.
	Args []string
}

// AutostartStatus describes the current registration.
type AutostartStatus struct {
	Installed bool
	Location  string
	Command   string
}

// AutostartManager registers the listener to start at user login.
type AutostartManager interface {
	Install(ctx context.Context, opts AutostartOptions) error
	Uninstall(ctx context.Context) error
	Status(ctx context.Context) (*AutostartStatus, error)
	IsSupported() bool
}

// Lock is a held single-instance lock file.
type Lock struct {
	f    *os.File
	path string
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// AcquireLock takes an exclusive, non-blocking lock on path, creating the
// file and its directory if needed. The lock is released by Release or when
// the process exits.
func AcquireLock(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := lockFile(f); err != nil {
		_ = f.Close()
		return nil, err
	}

	if err := f.Truncate(0); err == nil {
		_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())
	}

	return &Lock{f: f, path: path}, nil
}

// Release unlocks and removes the lock file. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	f := l.f
	l.f = nil

	err := unlockFile(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if rerr := os.Remove(l.path); rerr != nil && !errors.Is(rerr, os.ErrNotExist) && err == nil {
		err = rerr
	}
	return err
}

// ScreenProvider reports the primary screen size, preferring a configured
// override over the native query.
type ScreenProvider struct {
	width, height int
}

var _ domain.ScreenProvider = (*ScreenProvider)(nil)

// NewScreenProvider returns a provider. A non-positive width or height
// disables the override.
func NewScreenProvider(width, height int) *ScreenProvider {
	return &ScreenProvider{width: width, height: height}
}

// Resolution implements domain.ScreenProvider.
func (p *ScreenProvider) Resolution() (int, int, bool) {
	if p.width > 0 && p.height > 0 {
		return p.width, p.height, true
	}
	return nativeResolution()
}

// commandLine renders an executable and its arguments, quoting anything
// that contains whitespace or quotes.
func commandLine(exe string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	for _, a := range append([]string{exe}, args...) {
		if a == "" || strings.ContainsAny(a, " \t\"") {
			a = `"` + strings.ReplaceAll(a, `"`, `\"`) + `"`
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

func resolveExecutable(exe string) (string, error) {
	if exe == "" {
		var err error
		exe, err = os.Executable()
		if err != nil {
			return "", fmt.Errorf("failed to get executable path: %w", err)
		}
	}
	abs, err := filepath.Abs(exe)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	return abs, nil
}

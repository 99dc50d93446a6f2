//go:build !windows

package platform

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const desktopFileName = "outline-backup.desktop"

// XDGAutostart manages a freedesktop autostart entry.
type XDGAutostart struct {
	dir string
}

// NewAutostartManager creates an autostart manager for the current platform.
// dir overrides the autostart directory; empty means $XDG_CONFIG_HOME/autostart.
func NewAutostartManager(dir string) AutostartManager {
	return &XDGAutostart{dir: dir}
}

// IsSupported returns false on macOS, which uses launch agents instead.
func (x *XDGAutostart) IsSupported() bool {
	return runtime.GOOS != "darwin"
}

func (x *XDGAutostart) path() (string, error) {
	dir := x.dir
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine config directory: %w", err)
		}
		dir = filepath.Join(base, "autostart")
	}
	return filepath.Join(dir, desktopFileName), nil
}

// Install writes the desktop entry, replacing an existing one.
func (x *XDGAutostart) Install(_ context.Context, opts AutostartOptions) error {
	if !x.IsSupported() {
		return fmt.Errorf("autostart is not supported on %s", runtime.GOOS)
	}

	exe, err := resolveExecutable(opts.Executable)
	if err != nil {
		return err
	}
	path, err := x.path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create autostart directory: %w", err)
	}

	entry := strings.Join([]string{
		"[Desktop Entry]",
		"Type=Application",
		"Name=Outline Backup",
		"Comment=Start a backup by tracing the screen outline",
		"Exec=" + commandLine(exe, opts.Args),
		"Terminal=false",
		"X-GNOME-Autostart-enabled=true",
		"",
	}, "\n")

	if err := os.WriteFile(path, []byte(entry), 0o644); err != nil {
		return fmt.Errorf("failed to write autostart entry: %w", err)
	}
	return nil
}

// Uninstall removes the desktop entry. A missing entry is not an error.
func (x *XDGAutostart) Uninstall(_ context.Context) error {
	path, err := x.path()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove autostart entry: %w", err)
	}
	return nil
}

// Status reports whether the desktop entry exists and what it runs.
func (x *XDGAutostart) Status(_ context.Context) (*AutostartStatus, error) {
	path, err := x.path()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return &AutostartStatus{Location: path}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read autostart entry: %w", err)
	}
	defer f.Close()

	status := &AutostartStatus{Installed: true, Location: path}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if cmd, ok := strings.CutPrefix(scanner.Text(), "Exec="); ok {
			status.Command = cmd
			break
		}
	}
	return status, scanner.Err()
}

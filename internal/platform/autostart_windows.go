//go:build windows

package platform

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"
)

const (
	runKeyPath   = `Software\Microsoft\Windows\CurrentVersion\Run`
	runValueName = "OutlineBackup"
)

// RegistryAutostart manages a value under the current user's Run key.
type RegistryAutostart struct{}

// NewAutostartManager creates an autostart manager for the current platform.
// The directory argument is ignored on Windows.
func NewAutostartManager(_ string) AutostartManager {
	return &RegistryAutostart{}
}

// IsSupported returns true on Windows.
func (r *RegistryAutostart) IsSupported() bool {
	return true
}

// Install sets the Run value, replacing an existing one.
func (r *RegistryAutostart) Install(_ context.Context, opts AutostartOptions) error {
	exe, err := resolveExecutable(opts.Executable)
	if err != nil {
		return err
	}

	k, _, err := registry.CreateKey(registry.CURRENT_USER, runKeyPath, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("failed to open Run key: %w", err)
	}
	defer k.Close()

	if err := k.SetStringValue(runValueName, commandLine(exe, opts.Args)); err != nil {
		return fmt.Errorf("failed to set Run value: %w", err)
	}
	return nil
}

// Uninstall deletes the Run value. A missing value is not an error.
func (r *RegistryAutostart) Uninstall(_ context.Context) error {
	k, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.SET_VALUE)
	if errors.Is(err, registry.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open Run key: %w", err)
	}
	defer k.Close()

	if err := k.DeleteValue(runValueName); err != nil && !errors.Is(err, registry.ErrNotExist) {
		return fmt.Errorf("failed to delete Run value: %w", err)
	}
	return nil
}

// Status reads the Run value.
func (r *RegistryAutostart) Status(_ context.Context) (*AutostartStatus, error) {
	location := `HKCU\` + runKeyPath + `\` + runValueName

	k, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.QUERY_VALUE)
	if errors.Is(err, registry.ErrNotExist) {
		return &AutostartStatus{Location: location}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open Run key: %w", err)
	}
	defer k.Close()

	cmd, _, err := k.GetStringValue(runValueName)
	if errors.Is(err, registry.ErrNotExist) {
		return &AutostartStatus{Location: location}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read Run value: %w", err)
	}

	return &AutostartStatus{Installed: true, Location: location, Command: cmd}, nil
}

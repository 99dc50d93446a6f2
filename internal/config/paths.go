package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	// AppName is the application name used for config and state directories.
	AppName = "outline-backup"
	// ConfigFileName is the default config file name.
	ConfigFileName = "config.toml"
	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "OUTLINE_BACKUP"

	lockFileName      = "outline-backup.lock"
	analyticsFileName = "analytics.csv"
	cpuLogFileName    = "cpu_usage.csv"
	logFileName       = "outline-backup.log"
)

// dirLayout locates one per-user base directory on each platform.
type dirLayout struct {
	windowsEnv  string   // e.g. APPDATA
	windowsHome []string // fallback below the home directory
	darwinHome  []string // below the home directory
	xdgEnv      string   // e.g. XDG_CONFIG_HOME
	xdgHome     []string // fallback below the home directory
	suffix      []string // appended after AppName
}

var (
	configDirLayout = dirLayout{
		windowsEnv:  "APPDATA",
		windowsHome: []string{"AppData", "Roaming"},
		darwinHome:  []string{"Library", "Application Support"},
		xdgEnv:      "XDG_CONFIG_HOME",
		xdgHome:     []string{".config"},
	}
	stateDirLayout = dirLayout{
		windowsEnv:  "LOCALAPPDATA",
		windowsHome: []string{"AppData", "Local"},
		darwinHome:  []string{"Library", "Application Support"},
		xdgEnv:      "XDG_STATE_HOME",
		xdgHome:     []string{".local", "state"},
	}
)

func (d dirLayout) resolve(goos string) (string, error) {
	var base string
	var home []string

	switch goos {
	case "windows":
		base, home = os.Getenv(d.windowsEnv), d.windowsHome
	case "darwin":
		home = d.darwinHome
	default:
		base, home = os.Getenv(d.xdgEnv), d.xdgHome
	}

	if base == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(append([]string{h}, home...)...)
	}

	parts := append([]string{base, AppName}, d.suffix...)
	return filepath.Join(parts...), nil
}

// DefaultConfigDir returns the per-user configuration directory:
// %APPDATA% on Windows, ~/Library/Application Support on macOS and
// $XDG_CONFIG_HOME elsewhere.
func DefaultConfigDir() (string, error) {
	return configDirLayout.resolve(runtime.GOOS)
}

// DefaultConfigPath returns the full path to the default config file.
func DefaultConfigPath() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// DefaultStateDir returns the directory for logs, the lock file and
// analytics. On macOS it is a "state" folder beside the config file.
func DefaultStateDir() (string, error) {
	layout := stateDirLayout
	if runtime.GOOS == "darwin" {
		layout.suffix = []string{"state"}
	}
	return layout.resolve(runtime.GOOS)
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() (string, error) {
	return stateFile(logFileName)
}

// DefaultLockPath returns the default single-instance lock file path.
func DefaultLockPath() (string, error) {
	return stateFile(lockFileName)
}

// DefaultAnalyticsPath returns the default analytics CSV path.
func DefaultAnalyticsPath() (string, error) {
	return stateFile(analyticsFileName)
}

// DefaultCPULogPath returns the default CPU usage log path.
func DefaultCPULogPath() (string, error) {
	return stateFile(cpuLogFileName)
}

func stateFile(name string) (string, error) {
	dir, err := DefaultStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharkusmanch/outline-backup/internal/domain"
	"github.com/sharkusmanch/outline-backup/internal/gesture"
)

// isolate points every default location at a temp dir.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	t.Setenv("APPDATA", filepath.Join(dir, "config"))
	t.Setenv("LOCALAPPDATA", filepath.Join(dir, "state"))
	t.Setenv("HOME", dir)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PWD", dir)
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestNotifyLevel_IsValid(t *testing.T) {
	tests := []struct {
		level NotifyLevel
		want  bool
	}{
		{NotifyError, true},
		{NotifyWarning, true},
		{NotifyAlways, true},
		{NotifyLevel("invalid"), false},
		{NotifyLevel(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.level.IsValid())
		})
	}
}

func validConfig() *Config {
	return &Config{
		Source:        "/data/src",
		Destination:   "/data/dst",
		Mode:          "custom",
		Extensions:    []string{".txt", ".pdf"},
		HashAlgorithm: "sha256",
		Gesture: GestureConfig{
			Outline:        "contour",
			Segments:       4,
			ToleranceRatio: 0.02,
			MinTolerancePx: 10,
			StrokeMinDX:    100,
			StrokeMaxDY:    50,
		},
		CPUSampleWindow: time.Second,
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 5 * time.Second,
			MaxDelay:     30 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:        true,
			PushgatewayURL: "http://pushgateway:9091",
		},
		Apprise: AppriseConfig{
			Enabled: true,
			URL:     "http://localhost:8000",
			Key:     "outline-backup",
			Notify:  NotifyError,
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("legacy total mode", func(t *testing.T) {
		cfg := validConfig()
		cfg.Mode = "total"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("unknown mode", func(t *testing.T) {
		cfg := validConfig()
		cfg.Mode = "some"
		assert.ErrorContains(t, cfg.Validate(), "mode must be one of")
	})

	t.Run("unknown hash algorithm", func(t *testing.T) {
		cfg := validConfig()
		cfg.HashAlgorithm = "md5"
		assert.ErrorContains(t, cfg.Validate(), "hash_algorithm must be one of")
	})

	t.Run("unknown outline", func(t *testing.T) {
		cfg := validConfig()
		cfg.Gesture.Outline = "circle"
		assert.ErrorContains(t, cfg.Validate(), "gesture.outline")
	})

	t.Run("zero segments", func(t *testing.T) {
		cfg := validConfig()
		cfg.Gesture.Segments = 0
		assert.ErrorContains(t, cfg.Validate(), "segments must be at least 1")
	})

	t.Run("tolerance ratio out of range", func(t *testing.T) {
		cfg := validConfig()
		cfg.Gesture.ToleranceRatio = 0.6
		assert.ErrorContains(t, cfg.Validate(), "gesture.tolerance_ratio")
	})

	t.Run("non-positive stroke thresholds", func(t *testing.T) {
		cfg := validConfig()
		cfg.Gesture.StrokeMaxDY = 0
		assert.ErrorContains(t, cfg.Validate(), "must be positive")
	})

	t.Run("api enabled without listen address", func(t *testing.T) {
		cfg := validConfig()
		cfg.API = APIConfig{Enabled: true}
		assert.ErrorContains(t, cfg.Validate(), "api.listen is required")
	})

	t.Run("empty pushgateway URL when metrics enabled", func(t *testing.T) {
		cfg := validConfig()
		cfg.Metrics.PushgatewayURL = ""
		assert.ErrorContains(t, cfg.Validate(), "metrics.pushgateway_url is required when metrics is enabled")
	})

	t.Run("metrics disabled skips validation", func(t *testing.T) {
		cfg := validConfig()
		cfg.Metrics.Enabled = false
		cfg.Metrics.PushgatewayURL = ""
		assert.NoError(t, cfg.Validate())
	})

	t.Run("retry max_attempts less than 1", func(t *testing.T) {
		cfg := validConfig()
		cfg.Retry.MaxAttempts = 0
		assert.ErrorContains(t, cfg.Validate(), "retry.max_attempts must be at least 1")
	})

	t.Run("retry max_delay less than initial_delay", func(t *testing.T) {
		cfg := validConfig()
		cfg.Retry.MaxDelay = 1 * time.Second
		assert.ErrorContains(t, cfg.Validate(), "retry.max_delay must be >= retry.initial_delay")
	})

	t.Run("apprise enabled without key", func(t *testing.T) {
		cfg := validConfig()
		cfg.Apprise.Key = ""
		assert.ErrorContains(t, cfg.Validate(), "apprise.key is required")
	})

	t.Run("invalid apprise notify level", func(t *testing.T) {
		cfg := validConfig()
		cfg.Apprise.Notify = NotifyLevel("invalid")
		assert.ErrorContains(t, cfg.Validate(), "apprise.notify must be one of")
	})

	t.Run("negative cpu interval", func(t *testing.T) {
		cfg := validConfig()
		cfg.Analytics.CPUInterval = -time.Second
		assert.ErrorContains(t, cfg.Validate(), "analytics.cpu_interval cannot be negative")
	})

	t.Run("invalid log level", func(t *testing.T) {
		cfg := validConfig()
		cfg.Log.Level = "invalid"
		assert.ErrorContains(t, cfg.Validate(), "log.level must be one of")
	})

	t.Run("log max_size_mb less than 1", func(t *testing.T) {
		cfg := validConfig()
		cfg.Log.MaxSizeMB = 0
		assert.ErrorContains(t, cfg.Validate(), "log.max_size_mb must be at least 1")
	})
}

func TestValidateExtensions(t *testing.T) {
	tests := []struct {
		name    string
		exts    []string
		wantErr string
	}{
		{"empty list", nil, ""},
		{"valid", []string{".txt", ".tar-gz", ".a_b", ".PNG"}, ""},
		{"max length", []string{".abcde"}, ""},
		{"empty entry", []string{""}, "cannot be empty"},
		{"missing dot", []string{"txt"}, "must start with a dot"},
		{"too long", []string{".abcdef"}, "at most 6 characters"},
		{"bare dot", []string{"."}, "no name after the dot"},
		{"invalid characters", []string{".t*t"}, "invalid characters"},
		{"duplicate ignoring case", []string{".txt", ".TXT"}, "already in the list"},
		{"too many", []string{".a", ".b", ".c", ".d", ".e", ".f", ".g", ".h", ".i", ".j", ".k"}, "at most 10 file types"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateExtensions(tt.exts)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfig_BackupConfig(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		cfg := validConfig()
		cfg.Destination = ""
		_, err := cfg.BackupConfig()
		assert.True(t, errors.Is(err, domain.ErrNotConfigured))
	})

	t.Run("snapshot", func(t *testing.T) {
		cfg := validConfig()
		cfg.Exclude = []string{"**/*.tmp"}
		bc, err := cfg.BackupConfig()
		require.NoError(t, err)

		assert.Equal(t, filepath.Clean("/data/src"), bc.Source)
		assert.Equal(t, domain.BackupModeCustom, bc.Mode)
		assert.Contains(t, bc.Extensions, ".txt")
		assert.Contains(t, bc.Extensions, ".pdf")
		assert.Equal(t, domain.HashSHA256, bc.HashAlgorithm)

		cfg.Exclude[0] = "changed"
		assert.Equal(t, "**/*.tmp", bc.Exclude[0])
	})
}

func TestConfig_GestureDefinitions(t *testing.T) {
	cfg := validConfig()
	outline, confirm, err := cfg.GestureDefinitions()
	require.NoError(t, err)
	assert.Equal(t, gesture.BucketedContour{Segments: 4}, outline)
	assert.Equal(t, gesture.HorizontalStroke{MinDX: 100, MaxDY: 50}, confirm)

	cfg.Gesture.Outline = "edges"
	outline, _, err = cfg.GestureDefinitions()
	require.NoError(t, err)
	assert.Equal(t, gesture.AnyEdgeTouch{}, outline)

	geom := cfg.Geometry(1920, 1080)
	assert.InDelta(t, 21.6, geom.Tolerance, 1e-9)
}

func TestLoader_Load_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.False(t, cfg.IsConfigured())
	assert.Equal(t, DefaultMode, cfg.Mode)
	assert.Equal(t, DefaultHashAlgorithm, cfg.HashAlgorithm)
	assert.Equal(t, DefaultGestureOutline, cfg.Gesture.Outline)
	assert.Equal(t, DefaultGestureSegments, cfg.Gesture.Segments)
	assert.InDelta(t, DefaultGestureToleranceRatio, cfg.Gesture.ToleranceRatio, 1e-9)
	assert.Equal(t, DefaultCPUSampleWindow, cfg.CPUSampleWindow)
	assert.Equal(t, DefaultAnalyticsEnabled, cfg.Analytics.Enabled)
	assert.Equal(t, DefaultAnalyticsCPUInterval, cfg.Analytics.CPUInterval)
	assert.Equal(t, DefaultAPIListen, cfg.API.Listen)
	assert.Equal(t, DefaultRetryMaxAttempts, cfg.Retry.MaxAttempts)
	assert.Equal(t, DefaultRetryInitialDelay, cfg.Retry.InitialDelay)
	assert.Equal(t, DefaultRetryMaxDelay, cfg.Retry.MaxDelay)
	assert.Equal(t, DefaultAppriseNotify, cfg.Apprise.Notify)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultLogMaxSizeMB, cfg.Log.MaxSizeMB)

	assert.Contains(t, cfg.LockFile, AppName)
	assert.Contains(t, cfg.Analytics.Path, AppName)
	assert.Equal(t, "cpu_usage.csv", filepath.Base(cfg.Analytics.CPULogPath))

	_, err = cfg.BackupConfig()
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestLoader_Load_FromFile(t *testing.T) {
	isolate(t)
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	content := `
source = "/home/me/docs"
destination = "/mnt/usb"
mode = "custom"
extensions = [".txt", ".odt"]
exclude = ["**/.git"]
hash_algorithm = "blake2b"
cpu_sample_window = "500ms"

[gesture]
outline = "edges"
tolerance_ratio = 0.03
stroke_min_dx = 150

[screen]
width = 1280
height = 720

[retry]
max_attempts = 5
initial_delay = "10s"
max_delay = "60s"

[apprise]
enabled = false
notify = "always"

[log]
level = "debug"
max_size_mb = 20
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsConfigured())
	assert.Equal(t, "custom", cfg.Mode)
	assert.Equal(t, []string{".txt", ".odt"}, cfg.Extensions)
	assert.Equal(t, []string{"**/.git"}, cfg.Exclude)
	assert.Equal(t, "blake2b", cfg.HashAlgorithm)
	assert.Equal(t, 500*time.Millisecond, cfg.CPUSampleWindow)
	assert.Equal(t, "edges", cfg.Gesture.Outline)
	assert.InDelta(t, 0.03, cfg.Gesture.ToleranceRatio, 1e-9)
	assert.InDelta(t, 150.0, cfg.Gesture.StrokeMinDX, 1e-9)
	assert.InDelta(t, DefaultGestureStrokeMaxDY, cfg.Gesture.StrokeMaxDY, 1e-9)
	assert.Equal(t, 1280, cfg.Screen.Width)
	assert.Equal(t, 720, cfg.Screen.Height)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, NotifyAlways, cfg.Apprise.Notify)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 20, cfg.Log.MaxSizeMB)
}

func TestLoader_Load_InvalidExtensions(t *testing.T) {
	isolate(t)
	configPath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(`extensions = ["txt"]`), 0600))

	_, err := NewLoader().WithConfigPath(configPath).Load()
	assert.ErrorContains(t, err, "must start with a dot")
}

func TestLoader_Load_MissingExplicitFile(t *testing.T) {
	isolate(t)

	cfg, err := NewLoader().WithConfigPath(filepath.Join(t.TempDir(), "absent.toml")).Load()
	require.NoError(t, err)
	assert.False(t, cfg.IsConfigured())
}

func TestLoader_Load_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("OUTLINE_BACKUP_SOURCE", "/src")
	t.Setenv("OUTLINE_BACKUP_DESTINATION", "/dst")
	t.Setenv("OUTLINE_BACKUP_GESTURE_SEGMENTS", "6")
	t.Setenv("OUTLINE_BACKUP_LOG_LEVEL", "debug")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "/src", cfg.Source)
	assert.Equal(t, "/dst", cfg.Destination)
	assert.Equal(t, 6, cfg.Gesture.Segments)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoader_Set(t *testing.T) {
	isolate(t)
	loader := NewLoader()
	loader.Set("hash_algorithm", "blake2b")
	loader.Set("log.level", "error")

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "blake2b", cfg.HashAlgorithm)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestProvider_ReloadsEveryCall(t *testing.T) {
	isolate(t)
	configPath := filepath.Join(t.TempDir(), "config.toml")
	provider := NewProvider(configPath, nil)

	_, err := provider.BackupConfig()
	assert.ErrorIs(t, err, domain.ErrNotConfigured)

	require.NoError(t, os.WriteFile(configPath, []byte("source = \"/a\"\ndestination = \"/b\"\n"), 0600))

	bc, err := provider.BackupConfig()
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean("/a"), bc.Source)
	assert.Equal(t, domain.BackupModeAll, bc.Mode)
}

func TestProvider_Overrides(t *testing.T) {
	isolate(t)
	provider := NewProvider("", map[string]interface{}{"source": "/x", "destination": "/y"})

	bc, err := provider.BackupConfig()
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean("/y"), bc.Destination)
}

func TestWriteExampleConfig(t *testing.T) {
	isolate(t)
	configPath := filepath.Join(t.TempDir(), "subdir", "config.toml")

	require.NoError(t, WriteExampleConfig(configPath))
	_, err := os.Stat(configPath)
	require.NoError(t, err)

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultGestureSegments, cfg.Gesture.Segments)
	assert.False(t, cfg.IsConfigured())
}

func TestDefaultConfigDir(t *testing.T) {
	dir, err := DefaultConfigDir()
	require.NoError(t, err)
	assert.NotEmpty(t, dir)
	assert.Contains(t, dir, AppName)
}

func TestDefaultConfigPath(t *testing.T) {
	path, err := DefaultConfigPath()
	require.NoError(t, err)
	assert.NotEmpty(t, path)
	assert.Contains(t, path, ConfigFileName)
}

func TestDirLayout_Resolve(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("LOCALAPPDATA", filepath.Join(home, "local"))

	tests := []struct {
		name   string
		layout dirLayout
		goos   string
		want   string
	}{
		{"xdg fallback", stateDirLayout, "linux", filepath.Join(home, ".local", "state", AppName)},
		{"windows env", stateDirLayout, "windows", filepath.Join(home, "local", AppName)},
		{"darwin", configDirLayout, "darwin", filepath.Join(home, "Library", "Application Support", AppName)},
		{
			"suffix",
			dirLayout{darwinHome: []string{"Library"}, suffix: []string{"state"}},
			"darwin",
			filepath.Join(home, "Library", AppName, "state"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.layout.resolve(tt.goos)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Setenv("XDG_STATE_HOME", filepath.Join(home, "xdg"))
	got, err := stateDirLayout.resolve("linux")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "xdg", AppName), got)
}

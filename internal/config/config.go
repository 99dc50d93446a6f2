package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/viper"

	"github.com/sharkusmanch/outline-backup/internal/domain"
	"github.com/sharkusmanch/outline-backup/internal/gesture"
)

// Config holds all application configuration.
type Config struct {
	Source          string          `mapstructure:"source"`
	Destination     string          `mapstructure:"destination"`
	Mode            string          `mapstructure:"mode"`
	Extensions      []string        `mapstructure:"extensions"`
	Exclude         []string        `mapstructure:"exclude"`
	HashAlgorithm   string          `mapstructure:"hash_algorithm"`
	Gesture         GestureConfig   `mapstructure:"gesture"`
	Screen          ScreenConfig    `mapstructure:"screen"`
	CPUSampleWindow time.Duration   `mapstructure:"cpu_sample_window"`
	Analytics       AnalyticsConfig `mapstructure:"analytics"`
	LockFile        string          `mapstructure:"lock_file"`
	API             APIConfig       `mapstructure:"api"`
	Retry           RetryConfig     `mapstructure:"retry"`
	Metrics         MetricsConfig   `mapstructure:"metrics"`
	Apprise         AppriseConfig   `mapstructure:"apprise"`
	Log             LogConfig       `mapstructure:"log"`
}

// GestureConfig selects and tunes the trigger gestures.
type GestureConfig struct {
	Outline        string  `mapstructure:"outline"`
	Segments       int     `mapstructure:"segments"`
	ToleranceRatio float64 `mapstructure:"tolerance_ratio"`
	MinTolerancePx float64 `mapstructure:"min_tolerance_px"`
	StrokeMinDX    float64 `mapstructure:"stroke_min_dx"`
	StrokeMaxDY    float64 `mapstructure:"stroke_max_dy"`
}

// ScreenConfig overrides the detected screen resolution when both are set.
type ScreenConfig struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

// AnalyticsConfig holds the run log and CPU usage log settings. A zero
// CPUInterval turns the CPU usage log off.
type AnalyticsConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Path        string        `mapstructure:"path"`
	CPUInterval time.Duration `mapstructure:"cpu_interval"`
	CPULogPath  string        `mapstructure:"cpu_log_path"`
}

// APIConfig holds the local status API settings.
type APIConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	PushgatewayURL string `mapstructure:"pushgateway_url"`
}

// RetryConfig holds HTTP retry configuration.
type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
}

// AppriseConfig holds Apprise notification configuration.
type AppriseConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	URL     string      `mapstructure:"url"`
	Key     string      `mapstructure:"key"`
	Notify  NotifyLevel `mapstructure:"notify"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level     string `mapstructure:"level"`
	Output    string `mapstructure:"output"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
}

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configPath string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v: viper.New(),
	}
}

// WithConfigPath sets a specific config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// Load reads configuration from all sources and returns the merged config.
// Precedence (highest to lowest): CLI flags > environment > config file > defaults.
// A missing config file is not an error; the result is simply not configured.
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()
	l.setupEnvBindings()

	if err := l.loadConfigFile(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.fillStatePaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// fillStatePaths sets paths whose defaults depend on the state directory.
// If it cannot be determined they stay empty: logs go to stderr, and the
// lock and analytics features are skipped.
func (c *Config) fillStatePaths() {
	if c.Log.Output == "" {
		if p, err := DefaultLogPath(); err == nil {
			c.Log.Output = p
		}
	}
	if c.LockFile == "" {
		if p, err := DefaultLockPath(); err == nil {
			c.LockFile = p
		}
	}
	if c.Analytics.Path == "" {
		if p, err := DefaultAnalyticsPath(); err == nil {
			c.Analytics.Path = p
		}
	}
	if c.Analytics.CPULogPath == "" {
		if p, err := DefaultCPULogPath(); err == nil {
			c.Analytics.CPULogPath = p
		}
	}
}

// setDefaults sets default values for all configuration options.
func (l *Loader) setDefaults() {
	l.v.SetDefault("source", "")
	l.v.SetDefault("destination", "")
	l.v.SetDefault("mode", DefaultMode)
	l.v.SetDefault("extensions", []string{})
	l.v.SetDefault("exclude", []string{})
	l.v.SetDefault("hash_algorithm", DefaultHashAlgorithm)

	l.v.SetDefault("gesture.outline", DefaultGestureOutline)
	l.v.SetDefault("gesture.segments", DefaultGestureSegments)
	l.v.SetDefault("gesture.tolerance_ratio", DefaultGestureToleranceRatio)
	l.v.SetDefault("gesture.min_tolerance_px", DefaultGestureMinTolerancePx)
	l.v.SetDefault("gesture.stroke_min_dx", DefaultGestureStrokeMinDX)
	l.v.SetDefault("gesture.stroke_max_dy", DefaultGestureStrokeMaxDY)

	l.v.SetDefault("screen.width", 0)
	l.v.SetDefault("screen.height", 0)

	l.v.SetDefault("cpu_sample_window", DefaultCPUSampleWindow)

	l.v.SetDefault("analytics.enabled", DefaultAnalyticsEnabled)
	l.v.SetDefault("analytics.path", "")
	l.v.SetDefault("analytics.cpu_interval", DefaultAnalyticsCPUInterval)
	l.v.SetDefault("analytics.cpu_log_path", "")

	l.v.SetDefault("lock_file", "")

	l.v.SetDefault("api.enabled", DefaultAPIEnabled)
	l.v.SetDefault("api.listen", DefaultAPIListen)

	l.v.SetDefault("retry.max_attempts", DefaultRetryMaxAttempts)
	l.v.SetDefault("retry.initial_delay", DefaultRetryInitialDelay)
	l.v.SetDefault("retry.max_delay", DefaultRetryMaxDelay)

	l.v.SetDefault("metrics.enabled", DefaultMetricsEnabled)
	l.v.SetDefault("metrics.pushgateway_url", DefaultMetricsPushgatewayURL)

	l.v.SetDefault("apprise.enabled", DefaultAppriseEnabled)
	l.v.SetDefault("apprise.url", DefaultAppriseURL)
	l.v.SetDefault("apprise.key", DefaultAppriseKey)
	l.v.SetDefault("apprise.notify", string(DefaultAppriseNotify))

	l.v.SetDefault("log.level", DefaultLogLevel)
	l.v.SetDefault("log.output", "")
	l.v.SetDefault("log.max_size_mb", DefaultLogMaxSizeMB)
}

// setupEnvBindings configures environment variable bindings.
func (l *Loader) setupEnvBindings() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()
}

// loadConfigFile loads configuration from a file.
func (l *Loader) loadConfigFile() error {
	if l.configPath != "" {
		l.v.SetConfigFile(l.configPath)
	} else {
		configDir, err := DefaultConfigDir()
		if err != nil {
			return nil
		}

		l.v.SetConfigName("config")
		l.v.SetConfigType("toml")
		l.v.AddConfigPath(configDir)
		l.v.AddConfigPath(".")
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		// An explicit path that does not exist yet behaves like a missing file.
		if l.configPath != "" && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// Set sets a configuration value (for CLI flag overrides).
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// ConfigFileUsed returns the path of the config file used, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := parseMode(c.Mode); err != nil {
		return err
	}

	if !domain.HashAlgorithm(strings.ToLower(c.HashAlgorithm)).IsValid() {
		return fmt.Errorf("hash_algorithm must be one of: sha256, blake2b")
	}

	if err := ValidateExtensions(c.Extensions); err != nil {
		return err
	}

	if _, _, err := c.GestureDefinitions(); err != nil {
		return err
	}
	if c.Gesture.ToleranceRatio < 0 || c.Gesture.ToleranceRatio >= 0.5 {
		return fmt.Errorf("gesture.tolerance_ratio must be in [0, 0.5)")
	}
	if c.Gesture.MinTolerancePx < 0 {
		return fmt.Errorf("gesture.min_tolerance_px cannot be negative")
	}
	if c.Gesture.StrokeMinDX <= 0 || c.Gesture.StrokeMaxDY <= 0 {
		return fmt.Errorf("gesture.stroke_min_dx and gesture.stroke_max_dy must be positive")
	}

	if c.Screen.Width < 0 || c.Screen.Height < 0 {
		return fmt.Errorf("screen.width and screen.height cannot be negative")
	}

	if c.CPUSampleWindow <= 0 {
		return fmt.Errorf("cpu_sample_window must be positive")
	}

	if c.Analytics.CPUInterval < 0 {
		return fmt.Errorf("analytics.cpu_interval cannot be negative")
	}

	if c.API.Enabled && c.API.Listen == "" {
		return fmt.Errorf("api.listen is required when the api is enabled")
	}

	if c.Metrics.Enabled {
		if c.Metrics.PushgatewayURL == "" {
			return fmt.Errorf("metrics.pushgateway_url is required when metrics is enabled")
		}
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}

	if c.Retry.InitialDelay < 0 {
		return fmt.Errorf("retry.initial_delay cannot be negative")
	}

	if c.Retry.MaxDelay < c.Retry.InitialDelay {
		return fmt.Errorf("retry.max_delay must be >= retry.initial_delay")
	}

	if c.Apprise.Enabled {
		if c.Apprise.URL == "" {
			return fmt.Errorf("apprise.url is required when apprise is enabled")
		}
		if c.Apprise.Key == "" {
			return fmt.Errorf("apprise.key is required when apprise is enabled")
		}
		if !c.Apprise.Notify.IsValid() {
			return fmt.Errorf("apprise.notify must be one of: error, warning, always")
		}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}

	if c.Log.MaxSizeMB < 1 {
		return fmt.Errorf("log.max_size_mb must be at least 1")
	}

	return nil
}

// ValidateExtensions applies the extension filter rules: each entry starts
// with a dot, is at most MaxExtensionLength characters including the dot and
// contains only letters, digits, '-' and '_'. At most MaxExtensions entries
// are allowed and duplicates are rejected case-insensitively.
func ValidateExtensions(exts []string) error {
	if len(exts) > MaxExtensions {
		return fmt.Errorf("extensions: at most %d file types are allowed, got %d", MaxExtensions, len(exts))
	}

	seen := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		switch {
		case ext == "":
			return fmt.Errorf("extensions: file type cannot be empty")
		case !strings.HasPrefix(ext, "."):
			return fmt.Errorf("extensions: %q must start with a dot (e.g. .txt)", ext)
		case len(ext) > MaxExtensionLength:
			return fmt.Errorf("extensions: %q must be at most %d characters including the dot", ext, MaxExtensionLength)
		case len(ext) == 1:
			return fmt.Errorf("extensions: %q has no name after the dot", ext)
		}

		for _, r := range ext[1:] {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
				return fmt.Errorf("extensions: %q contains invalid characters (allowed: letters, digits, '-', '_')", ext)
			}
		}

		key := strings.ToLower(ext)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("extensions: %q is already in the list", ext)
		}
		seen[key] = struct{}{}
	}

	return nil
}

// parseMode accepts "all", "custom" and the legacy alias "total".
func parseMode(mode string) (domain.BackupMode, error) {
	switch m := strings.ToLower(mode); m {
	case "", "all", "total":
		return domain.BackupModeAll, nil
	case "custom":
		return domain.BackupModeCustom, nil
	default:
		return "", fmt.Errorf("mode must be one of: all, custom")
	}
}

// IsConfigured reports whether both backup folders are set.
func (c *Config) IsConfigured() bool {
	return c.Source != "" && c.Destination != ""
}

// BackupConfig returns the backup snapshot described by c.
func (c *Config) BackupConfig() (domain.BackupConfig, error) {
	if !c.IsConfigured() {
		return domain.BackupConfig{}, domain.ErrNotConfigured
	}

	mode, err := parseMode(c.Mode)
	if err != nil {
		return domain.BackupConfig{}, err
	}

	return domain.BackupConfig{
		Source:        filepath.Clean(c.Source),
		Destination:   filepath.Clean(c.Destination),
		Mode:          mode,
		Extensions:    domain.NewExtensionSet(c.Extensions...),
		Exclude:       append([]string(nil), c.Exclude...),
		HashAlgorithm: domain.HashAlgorithm(strings.ToLower(c.HashAlgorithm)),
	}, nil
}

// GestureDefinitions returns the outline and confirmation gestures.
func (c *Config) GestureDefinitions() (outline, confirm gesture.Definition, err error) {
	outline, err = gesture.ParseOutline(c.Gesture.Outline, c.Gesture.Segments)
	if err != nil {
		return nil, nil, fmt.Errorf("gesture.outline: %w", err)
	}
	confirm = gesture.HorizontalStroke{MinDX: c.Gesture.StrokeMinDX, MaxDY: c.Gesture.StrokeMaxDY}
	return outline, confirm, nil
}

// Geometry scales the gesture tolerance to a width x height screen.
func (c *Config) Geometry(width, height int) gesture.Geometry {
	return gesture.NewGeometry(width, height, c.Gesture.ToleranceRatio, c.Gesture.MinTolerancePx)
}

// Provider reloads the configuration file on every call, so folder or
// filter changes made between backups apply to the next one.
type Provider struct {
	path      string
	overrides map[string]interface{}
}

// NewProvider creates a Provider reading path (or the default locations when
// empty) with the given key overrides applied on top.
func NewProvider(path string, overrides map[string]interface{}) *Provider {
	return &Provider{path: path, overrides: overrides}
}

// Load returns a freshly loaded Config.
func (p *Provider) Load() (*Config, error) {
	loader := NewLoader()
	if p.path != "" {
		loader.WithConfigPath(p.path)
	}
	for k, v := range p.overrides {
		loader.Set(k, v)
	}
	return loader.Load()
}

// BackupConfig implements domain.ConfigProvider.
func (p *Provider) BackupConfig() (domain.BackupConfig, error) {
	cfg, err := p.Load()
	if err != nil {
		return domain.BackupConfig{}, err
	}
	return cfg.BackupConfig()
}

var _ domain.ConfigProvider = (*Provider)(nil)

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// WriteExampleConfig writes an example config file to the given path.
func WriteExampleConfig(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, []byte(exampleConfig), 0600)
}

const exampleConfig = `# outline-backup configuration

# Folder to back up and folder to copy into. Both must exist.
source = ""
destination = ""

# "all" copies every file, "custom" only the extensions below.
mode = "all"
# Up to 10 entries, each starting with a dot and at most 6 characters.
extensions = []
# Glob patterns (relative to source) to skip, e.g. ["**/node_modules", "**/*.tmp"]
exclude = []
# Integrity check: "sha256" or "blake2b"
hash_algorithm = "sha256"

[gesture]
# "contour" requires every segment of every edge, "edges" any touch of each edge.
outline = "contour"
segments = 4
# Edge tolerance as a fraction of the shorter screen side, never below min_tolerance_px.
tolerance_ratio = 0.02
min_tolerance_px = 10
# Confirming stroke: horizontal distance > stroke_min_dx, vertical drift < stroke_max_dy.
stroke_min_dx = 100
stroke_max_dy = 50

# Screen size override; leave at 0 to detect.
[screen]
width = 0
height = 0

[analytics]
enabled = true
# path = ""
# CPU usage is sampled at this interval while listening; "0s" turns it off.
cpu_interval = "30s"
# cpu_log_path = ""

[api]
enabled = false
listen = "127.0.0.1:8765"

# HTTP retry configuration
[retry]
max_attempts = 3
initial_delay = "5s"
max_delay = "30s"

# Prometheus metrics (optional, disabled by default)
[metrics]
enabled = false
pushgateway_url = "http://pushgateway:9091"

# Apprise notifications (optional, disabled by default)
[apprise]
enabled = false
url = "http://localhost:8000"
key = "outline-backup"
# Notification level: "error", "warning", "always"
notify = "error"

[log]
# Level: debug, info, warn, error
level = "info"
# output = ""
max_size_mb = 10
`

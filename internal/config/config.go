// Package config provides configuration management for Flow Reader.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/xvierd/flow-reader/internal/domain"
)

// ErrUnknownKey is returned by Set for keys it does not manage.
var ErrUnknownKey = errors.New("unknown config key")

// Config holds all configuration for the Flow Reader application.
type Config struct {
	Session       SessionConfig      `mapstructure:"session"`
	Viewer        ViewerConfig       `mapstructure:"viewer"`
	Fullscreen    FullscreenConfig   `mapstructure:"fullscreen"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Log           LogConfig          `mapstructure:"log"`
	Library       LibraryConfig      `mapstructure:"library"`
	Theme         ThemeConfig        `mapstructure:"theme"`
}

// SessionConfig holds focus session settings.
type SessionConfig struct {
	DefaultDuration Duration   `mapstructure:"default_duration"`
	Presets         []Duration `mapstructure:"presets"`
}

// PresetDurations returns the presets as plain durations.
func (c *SessionConfig) PresetDurations() []time.Duration {
	out := make([]time.Duration, 0, len(c.Presets))
	for _, p := range c.Presets {
		out = append(out, time.Duration(p))
	}
	return out
}

// ViewerConfig holds document viewer settings.
type ViewerConfig struct {
	InitialZoom float64 `mapstructure:"initial_zoom"`
	// BaseWidth is the text column count at 100% zoom.
	BaseWidth int `mapstructure:"base_width"`
}

// FullscreenConfig holds fullscreen settings.
type FullscreenConfig struct {
	RequestTimeout Duration `mapstructure:"request_timeout"`
}

// NotificationConfig holds notification settings.
type NotificationConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Sound   bool `mapstructure:"sound"`
}

// LogConfig holds logging settings. The terminal belongs to the UI, so
// logs go to a file.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// LibraryConfig holds the document library settings.
type LibraryConfig struct {
	Dir string `mapstructure:"dir"`
}

// ThemeConfig holds theme customization settings (colors and icons).
type ThemeConfig struct {
	ColorAccent   string `mapstructure:"color_accent"`
	ColorLocked   string `mapstructure:"color_locked"`
	ColorUnlocked string `mapstructure:"color_unlocked"`
	ColorTitle    string `mapstructure:"color_title"`
	ColorHelp     string `mapstructure:"color_help"`
	ColorError    string `mapstructure:"color_error"`
	GradientStart string `mapstructure:"gradient_start"`
	GradientEnd   string `mapstructure:"gradient_end"`
	IconApp       string `mapstructure:"icon_app"`
	IconLock      string `mapstructure:"icon_lock"`
	IconDocument  string `mapstructure:"icon_document"`
}

// DefaultThemeConfig returns the default theme configuration.
func DefaultThemeConfig() ThemeConfig {
	return ThemeConfig{
		ColorAccent:   "#8B5CF6",
		ColorLocked:   "#10B981",
		ColorUnlocked: "#F59E0B",
		ColorTitle:    "#6B7280",
		ColorHelp:     "#95A5A6",
		ColorError:    "#EF4444",
		GradientStart: "#8B5CF6",
		GradientEnd:   "#EC4899",
		IconApp:       "📖",
		IconLock:      "🔒",
		IconDocument:  "📄",
	}
}

// Duration is a wrapper around time.Duration for TOML parsing.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(duration)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// String returns the string representation of the duration.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Session: SessionConfig{
			DefaultDuration: Duration(25 * time.Minute),
			Presets: []Duration{
				Duration(5 * time.Minute),
				Duration(10 * time.Minute),
				Duration(15 * time.Minute),
				Duration(25 * time.Minute),
				Duration(30 * time.Minute),
				Duration(45 * time.Minute),
				Duration(60 * time.Minute),
			},
		},
		Viewer: ViewerConfig{
			InitialZoom: 1.5,
			BaseWidth:   60,
		},
		Fullscreen: FullscreenConfig{
			RequestTimeout: Duration(2 * time.Second),
		},
		Notifications: NotificationConfig{
			Enabled: true,
			Sound:   false,
		},
		Log: LogConfig{
			Level: "info",
			File:  "~/.flow-reader/flow-reader.log",
		},
		Library: LibraryConfig{
			Dir: ".",
		},
		Theme: DefaultThemeConfig(),
	}
}

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	d := time.Duration(c.Session.DefaultDuration)
	if d < time.Second || d%time.Second != 0 {
		return fmt.Errorf("session.default_duration %s: %w", d, domain.ErrInvalidDuration)
	}
	for _, p := range c.Session.Presets {
		if time.Duration(p) < time.Second {
			return fmt.Errorf("session.presets %s: %w", p, domain.ErrInvalidDuration)
		}
	}
	if c.Viewer.InitialZoom < domain.MinZoom || c.Viewer.InitialZoom > domain.MaxZoom {
		return fmt.Errorf("viewer.initial_zoom must be between %.2f and %.2f", domain.MinZoom, domain.MaxZoom)
	}
	if c.Viewer.BaseWidth < 20 {
		return fmt.Errorf("viewer.base_width must be at least 20")
	}
	if c.Fullscreen.RequestTimeout <= 0 {
		return fmt.Errorf("fullscreen.request_timeout must be positive")
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Load loads the configuration from the default config file.
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadFrom(configPath)
}

// LoadFrom loads the configuration from configPath, creating it with
// defaults if it does not exist.
func LoadFrom(configPath string) (*Config, error) {
	// Ensure config directory exists
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	// If config file doesn't exist, create it with defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := SaveTo(configPath, DefaultConfig()); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	cfg.Log.File = ExpandHome(cfg.Log.File)
	cfg.Library.Dir = ExpandHome(cfg.Library.Dir)
	return &cfg, nil
}

// Save saves the configuration to the default config file.
func Save(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	return SaveTo(configPath, cfg)
}

// SaveTo writes cfg to configPath as TOML.
func SaveTo(configPath string, cfg *Config) error {
	// Ensure config directory exists
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	presets := make([]string, 0, len(cfg.Session.Presets))
	for _, p := range cfg.Session.Presets {
		presets = append(presets, p.String())
	}

	v.Set("session.default_duration", cfg.Session.DefaultDuration.String())
	v.Set("session.presets", presets)
	v.Set("viewer.initial_zoom", cfg.Viewer.InitialZoom)
	v.Set("viewer.base_width", cfg.Viewer.BaseWidth)
	v.Set("fullscreen.request_timeout", cfg.Fullscreen.RequestTimeout.String())
	v.Set("notifications.enabled", cfg.Notifications.Enabled)
	v.Set("notifications.sound", cfg.Notifications.Sound)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.file", cfg.Log.File)
	v.Set("library.dir", cfg.Library.Dir)
	v.Set("theme.color_accent", cfg.Theme.ColorAccent)
	v.Set("theme.color_locked", cfg.Theme.ColorLocked)
	v.Set("theme.color_unlocked", cfg.Theme.ColorUnlocked)
	v.Set("theme.color_title", cfg.Theme.ColorTitle)
	v.Set("theme.color_help", cfg.Theme.ColorHelp)
	v.Set("theme.color_error", cfg.Theme.ColorError)
	v.Set("theme.gradient_start", cfg.Theme.GradientStart)
	v.Set("theme.gradient_end", cfg.Theme.GradientEnd)
	v.Set("theme.icon_app", cfg.Theme.IconApp)
	v.Set("theme.icon_lock", cfg.Theme.IconLock)
	v.Set("theme.icon_document", cfg.Theme.IconDocument)

	return v.WriteConfig()
}

// GetConfigPath returns the path to the config file.
func GetConfigPath() (string, error) {
	dir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// GetDataDir returns the directory holding the config file and logs.
func GetDataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".flow-reader"), nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
}

// setters maps each settable key to the function applying it.
var setters = map[string]func(*Config, string) error{
	"session.default_duration": func(c *Config, s string) error {
		return parseDuration(s, &c.Session.DefaultDuration)
	},
	"session.presets": func(c *Config, s string) error {
		var presets []Duration
		for _, part := range strings.Split(s, ",") {
			var d Duration
			if err := parseDuration(strings.TrimSpace(part), &d); err != nil {
				return err
			}
			presets = append(presets, d)
		}
		c.Session.Presets = presets
		return nil
	},
	"viewer.initial_zoom": func(c *Config, s string) error {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		c.Viewer.InitialZoom = f
		return nil
	},
	"viewer.base_width": func(c *Config, s string) error {
		n, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		c.Viewer.BaseWidth = n
		return nil
	},
	"fullscreen.request_timeout": func(c *Config, s string) error {
		return parseDuration(s, &c.Fullscreen.RequestTimeout)
	},
	"notifications.enabled": func(c *Config, s string) error {
		return parseBool(s, &c.Notifications.Enabled)
	},
	"notifications.sound": func(c *Config, s string) error {
		return parseBool(s, &c.Notifications.Sound)
	},
	"log.level": func(c *Config, s string) error {
		c.Log.Level = strings.ToLower(s)
		return nil
	},
	"log.file": func(c *Config, s string) error {
		c.Log.File = s
		return nil
	},
	"library.dir": func(c *Config, s string) error {
		c.Library.Dir = s
		return nil
	},
}

// Set updates key on cfg from its text form and validates the result.
// cfg is left unchanged on error.
func Set(cfg *Config, key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	next := *cfg
	next.Session.Presets = append([]Duration(nil), cfg.Session.Presets...)
	if err := set(&next, value); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*cfg = next
	return nil
}

// Keys returns the settable keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func parseDuration(s string, dst *Duration) error {
	var d Duration
	if err := d.UnmarshalText([]byte(s)); err != nil {
		return err
	}
	*dst = d
	return nil
}

func parseBool(s string, dst *bool) error {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

// setDefaults sets default values for viper.
func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()
	presets := make([]string, 0, len(defaults.Session.Presets))
	for _, p := range defaults.Session.Presets {
		presets = append(presets, p.String())
	}

	v.SetDefault("session.default_duration", defaults.Session.DefaultDuration.String())
	v.SetDefault("session.presets", presets)
	v.SetDefault("viewer.initial_zoom", defaults.Viewer.InitialZoom)
	v.SetDefault("viewer.base_width", defaults.Viewer.BaseWidth)
	v.SetDefault("fullscreen.request_timeout", defaults.Fullscreen.RequestTimeout.String())
	v.SetDefault("notifications.enabled", defaults.Notifications.Enabled)
	v.SetDefault("notifications.sound", defaults.Notifications.Sound)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.file", defaults.Log.File)
	v.SetDefault("library.dir", defaults.Library.Dir)

	// Theme defaults
	v.SetDefault("theme.color_accent", defaults.Theme.ColorAccent)
	v.SetDefault("theme.color_locked", defaults.Theme.ColorLocked)
	v.SetDefault("theme.color_unlocked", defaults.Theme.ColorUnlocked)
	v.SetDefault("theme.color_title", defaults.Theme.ColorTitle)
	v.SetDefault("theme.color_help", defaults.Theme.ColorHelp)
	v.SetDefault("theme.color_error", defaults.Theme.ColorError)
	v.SetDefault("theme.gradient_start", defaults.Theme.GradientStart)
	v.SetDefault("theme.gradient_end", defaults.Theme.GradientEnd)
	v.SetDefault("theme.icon_app", defaults.Theme.IconApp)
	v.SetDefault("theme.icon_lock", defaults.Theme.IconLock)
	v.SetDefault("theme.icon_document", defaults.Theme.IconDocument)
}

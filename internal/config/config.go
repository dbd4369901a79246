// Package config handles the configuration directory, its files and settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	// AppName is the application directory name.
	AppName = "heartwork"

	// EnvPrefix prefixes environment overrides (HEARTWORK_SERVER_URL, ...).
	EnvPrefix = "HEARTWORK"

	// SettingsFile is the optional settings filename.
	SettingsFile = "config.yaml"

	// TokenFile is the stored login token filename.
	TokenFile = "token.json"

	// StateFile holds the per-category reset markers.
	StateFile = "state.yaml"

	// CacheFile is the sqlite snapshot cache.
	CacheFile = "cache.db"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// ServerURL is the backend base URL.
	ServerURL string

	// Categories are the to-do list partitions, in display order.
	Categories []string

	// SyncInterval is the period of the background sync trigger.
	SyncInterval time.Duration

	// MorningStart and MorningEnd bound the reset window as local hours [start, end).
	MorningStart int
	MorningEnd   int

	// Realtime connection settings.
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	DialTimeout       time.Duration

	// Log is the structured logger; disabled unless Debug is set.
	Log zerolog.Logger
}

// Defaults returns a Config with every setting at its default value.
func Defaults(dir string) *Config {
	return &Config{
		Dir:               dir,
		ServerURL:         "http://localhost:5000",
		Categories:        []string{"panda", "bear"},
		SyncInterval:      time.Hour,
		MorningStart:      5,
		MorningEnd:        11,
		ReconnectAttempts: 5,
		ReconnectDelay:    time.Second,
		DialTimeout:       10 * time.Second,
		Log:               zerolog.Nop(),
	}
}

// New creates a Config for the default or specified config directory and
// applies config.yaml and environment overrides.
// If configDir is empty, uses XDG_CONFIG_HOME/heartwork or $HOME/.config/heartwork.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := Defaults(dir)
	if err := cfg.load(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// load reads .env, config.yaml and HEARTWORK_* variables, in increasing precedence.
func (c *Config) load() error {
	// A missing .env is the common case
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("server_url", c.ServerURL)
	v.SetDefault("categories", c.Categories)
	v.SetDefault("sync.interval", c.SyncInterval)
	v.SetDefault("reset.morning_start", c.MorningStart)
	v.SetDefault("reset.morning_end", c.MorningEnd)
	v.SetDefault("realtime.reconnect_attempts", c.ReconnectAttempts)
	v.SetDefault("realtime.reconnect_delay", c.ReconnectDelay)
	v.SetDefault("realtime.timeout", c.DialTimeout)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(c.SettingsPath())
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("invalid %s: %w", SettingsFile, err)
		}
	}

	c.ServerURL = strings.TrimRight(v.GetString("server_url"), "/")
	c.Categories = normalizeCategories(v.GetStringSlice("categories"))
	c.SyncInterval = v.GetDuration("sync.interval")
	c.MorningStart = v.GetInt("reset.morning_start")
	c.MorningEnd = v.GetInt("reset.morning_end")
	c.ReconnectAttempts = v.GetInt("realtime.reconnect_attempts")
	c.ReconnectDelay = v.GetDuration("realtime.reconnect_delay")
	c.DialTimeout = v.GetDuration("realtime.timeout")

	if len(c.Categories) == 0 {
		return fmt.Errorf("invalid %s: no categories configured", SettingsFile)
	}
	if c.MorningStart < 0 || c.MorningEnd > 24 || c.MorningStart >= c.MorningEnd {
		return fmt.Errorf("invalid %s: reset window [%d, %d)", SettingsFile, c.MorningStart, c.MorningEnd)
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("invalid %s: sync.interval must be positive", SettingsFile)
	}
	return nil
}

// normalizeCategories trims, lowercases and drops empty or duplicate names.
func normalizeCategories(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// DefaultCategory is the category used when a command gets none.
func (c *Config) DefaultCategory() string {
	return c.Categories[0]
}

// HasCategory reports whether name is a configured category.
func (c *Config) HasCategory(name string) bool {
	for _, cat := range c.Categories {
		if cat == name {
			return true
		}
	}
	return false
}

// SettingsPath returns the path to config.yaml.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// TokenPath returns the path to the stored token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// StatePath returns the path to the reset marker file.
func (c *Config) StatePath() string {
	return filepath.Join(c.Dir, StateFile)
}

// CachePath returns the path to the snapshot cache database.
func (c *Config) CachePath() string {
	return filepath.Join(c.Dir, CacheFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}

// Package config loads memocal settings from the TOML file, a .env file
// and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Config holds all memocal configuration.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	General    GeneralConfig    `toml:"general"`
	Appearance AppearanceConfig `toml:"appearance"`
	TUI        TUIConfig        `toml:"tui"`
	Daemon     DaemonConfig     `toml:"daemon"`
}

// ServerConfig holds the Memos server connection.
type ServerConfig struct {
	URL   string `toml:"url"`
	Token string `toml:"token,omitempty"`
	// User is the resource name ("users/42") to show; empty means the
	// token's own account.
	User string `toml:"user,omitempty"`
	// RequestsPerSecond throttles API calls.
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	PageSize int    `toml:"page_size"`
	Timezone string `toml:"timezone,omitempty"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// TUIConfig holds dashboard settings.
type TUIConfig struct {
	AutoRefresh     bool `toml:"auto_refresh"`
	RefreshInterval int  `toml:"refresh_interval_sec"`
}

// DaemonConfig holds background poller settings.
type DaemonConfig struct {
	Addr        string `toml:"addr"`
	IntervalSec int    `toml:"interval_sec"`
}

// envOverrides are read after the file. Empty values leave the file's
// settings alone.
type envOverrides struct {
	Server   string `env:"MEMOCAL_SERVER"`
	Token    string `env:"MEMOCAL_TOKEN"`
	User     string `env:"MEMOCAL_USER"`
	PageSize int    `env:"MEMOCAL_PAGE_SIZE"`
	Theme    string `env:"MEMOCAL_THEME"`
	Timezone string `env:"MEMOCAL_TZ"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			RequestsPerSecond: 5,
		},
		General: GeneralConfig{
			PageSize: 1000,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
		TUI: TUIConfig{
			AutoRefresh:     true,
			RefreshInterval: 60,
		},
		Daemon: DaemonConfig{
			Addr:        "127.0.0.1:8787",
			IntervalSec: 60,
		},
	}
}

// Dir returns the XDG-compliant config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "memocal")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "memocal")
}

// Path returns the full path to the config file.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads .env, the config file and environment overrides, returning
// defaults for whatever is unset.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), fmt.Errorf("reading .env: %w", err)
	}
	return LoadFrom(Path(), nil)
}

// LoadFrom reads the config file at path and applies overrides from src.
// A nil src reads the process environment.
func LoadFrom(path string, src env.Source) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("reading config: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := applyEnv(&cfg, src); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, src env.Source) error {
	var o envOverrides
	if err := env.Load(&o, &env.Options{Source: src}); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	if o.Server != "" {
		cfg.Server.URL = o.Server
	}
	if o.Token != "" {
		cfg.Server.Token = o.Token
	}
	if o.User != "" {
		cfg.Server.User = o.User
	}
	if o.PageSize > 0 {
		cfg.General.PageSize = o.PageSize
	}
	if o.Theme != "" {
		cfg.Appearance.Theme = o.Theme
	}
	if o.Timezone != "" {
		cfg.General.Timezone = o.Timezone
	}
	return nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(Path(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}

// Location resolves the configured timezone, falling back to time.Local.
func (c Config) Location() *time.Location {
	tz := strings.TrimSpace(c.General.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Local
	}
	return loc
}

// PollInterval returns the daemon interval, at least ten seconds.
func (c Config) PollInterval() time.Duration {
	return max(time.Duration(c.Daemon.IntervalSec)*time.Second, 10*time.Second)
}

// RefreshInterval returns the TUI auto-refresh interval, at least ten seconds.
func (c Config) RefreshInterval() time.Duration {
	return max(time.Duration(c.TUI.RefreshInterval)*time.Second, 10*time.Second)
}

// MaskToken hides all but the last four characters of a token.
func MaskToken(token string) string {
	if len(token) <= 8 {
		if token == "" {
			return ""
		}
		return "****"
	}
	return strings.Repeat("*", 8) + token[len(token)-4:]
}

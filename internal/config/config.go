// Package config handles global marginalia configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global marginalia configuration.
type Config struct {
	// DefaultSite is the name of the default site (from Sites map).
	DefaultSite string `toml:"default_site"`

	// Sites is a map of site names to paths. A site directory contains
	// drafts/ and the .marginalia database.
	Sites map[string]string `toml:"sites"`

	// Daemon holds watcher/server settings.
	Daemon DaemonConfig `toml:"daemon"`

	// UI controls optional CLI theming preferences.
	UI UIConfig `toml:"ui"`
}

// DaemonConfig configures the watcher daemon and the API server.
type DaemonConfig struct {
	// SocketPath is where the watcher publishes change notifications.
	SocketPath string `toml:"socket_path"`

	// PollIntervalMS is the watcher poll interval in milliseconds.
	PollIntervalMS int `toml:"poll_interval_ms"`

	// ListenAddr is the API server bind address (default: 127.0.0.1:7777).
	ListenAddr string `toml:"listen_addr"`
}

// UIConfig represents optional CLI theming preferences.
type UIConfig struct {
	// Accent is an optional accent color for CLI output.
	// Supported values are ANSI color codes ("0" to "255") or hex colors ("#RRGGBB").
	Accent string `toml:"accent"`
}

// DefaultListenAddr is used when the config omits daemon.listen_addr.
const DefaultListenAddr = "127.0.0.1:7777"

// GetSitePath returns the path for a named site.
// If name is empty, returns the default site path.
func (c *Config) GetSitePath(name string) (string, error) {
	if name == "" {
		name = c.DefaultSite
	}
	if name == "" {
		return "", fmt.Errorf("no default site configured")
	}
	if c.Sites != nil {
		if path, ok := c.Sites[name]; ok {
			return path, nil
		}
	}
	return "", fmt.Errorf("site '%s' not found in config", name)
}

// GetDefaultSitePath returns the default site path.
func (c *Config) GetDefaultSitePath() (string, error) {
	return c.GetSitePath("")
}

// SocketPath resolves the watcher socket path with precedence:
// MARGINALIA_SOCKET > SOCKET_PATH > config file > built-in default.
// The fallback argument is that built-in default.
func (c *Config) SocketPath(fallback string) string {
	if v := os.Getenv("MARGINALIA_SOCKET"); v != "" {
		return v
	}
	if v := os.Getenv("SOCKET_PATH"); v != "" {
		return v
	}
	if c.Daemon.SocketPath != "" {
		return c.Daemon.SocketPath
	}
	return fallback
}

// PollInterval resolves the watcher poll interval. POLL_INTERVAL (ms)
// overrides the config file; non-numeric or non-positive values fall
// through.
func (c *Config) PollInterval(fallback time.Duration) time.Duration {
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	if c.Daemon.PollIntervalMS > 0 {
		return time.Duration(c.Daemon.PollIntervalMS) * time.Millisecond
	}
	return fallback
}

// ListenAddr resolves the API server bind address.
func (c *Config) ListenAddr() string {
	if c.Daemon.ListenAddr != "" {
		return c.Daemon.ListenAddr
	}
	return DefaultListenAddr
}

// DatabaseURL returns the DATABASE_URL override for the store path, or "".
// Accepts plain paths and file: connection strings.
func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// Load loads the configuration from the default location.
// Returns a default config if the file doesn't exist.
func Load() (*Config, error) {
	configPath := DefaultPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return &Config{}, nil
	}

	return LoadFrom(configPath)
}

// LoadFrom loads the configuration from a specific path.
func LoadFrom(path string) (*Config, error) {
	var config Config
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &config, nil
}

// DefaultPath returns the default config file path.
// Checks ~/.config/marginalia/config.toml first (XDG style),
// then falls back to OS-specific location.
func DefaultPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		xdgPath := filepath.Join(home, ".config", "marginalia", "config.toml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath
		}
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "marginalia", "config.toml")
	}

	return filepath.Join(".", "config.toml")
}

// CreateDefault creates a default config file if it doesn't exist.
func CreateDefault() (string, error) {
	configPath := DefaultPath()

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	defaultConfig := `# Marginalia Configuration

# Default site name (must exist in [sites] below)
# default_site = "blog"

# Named sites; each contains drafts/ and the annotation database
# [sites]
# blog = "/path/to/your/site"

# Watcher daemon and API server settings
# [daemon]
# socket_path = "/tmp/marginalia.sock"
# poll_interval_ms = 500
# listen_addr = "127.0.0.1:7777"

# Optional UI accent color (ANSI 0-255 or #RRGGBB)
# [ui]
# accent = "39"
`

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return configPath, nil
}

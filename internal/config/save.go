package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/klaboworld/marginalia/internal/atomicfile"
)

type persistedConfig struct {
	DefaultSite *string              `toml:"default_site,omitempty"`
	Sites       map[string]string    `toml:"sites,omitempty"`
	Daemon      *persistedDaemon     `toml:"daemon,omitempty"`
	UI          *persistedUISettings `toml:"ui,omitempty"`
}

type persistedDaemon struct {
	SocketPath     *string `toml:"socket_path,omitempty"`
	PollIntervalMS *int    `toml:"poll_interval_ms,omitempty"`
	ListenAddr     *string `toml:"listen_addr,omitempty"`
}

type persistedUISettings struct {
	Accent *string `toml:"accent,omitempty"`
}

func nonEmptyPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Save writes the global config to the default config path.
func Save(cfg *Config) error {
	return SaveTo(DefaultPath(), cfg)
}

// SaveTo writes the global config to a specific path atomically.
func SaveTo(path string, cfg *Config) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("config path is required")
	}
	if cfg == nil {
		cfg = &Config{}
	}

	out := persistedConfig{
		DefaultSite: nonEmptyPtr(cfg.DefaultSite),
	}
	if len(cfg.Sites) > 0 {
		out.Sites = cfg.Sites
	}

	socket := nonEmptyPtr(cfg.Daemon.SocketPath)
	listen := nonEmptyPtr(cfg.Daemon.ListenAddr)
	var pollMS *int
	if cfg.Daemon.PollIntervalMS > 0 {
		v := cfg.Daemon.PollIntervalMS
		pollMS = &v
	}
	if socket != nil || listen != nil || pollMS != nil {
		out.Daemon = &persistedDaemon{
			SocketPath:     socket,
			PollIntervalMS: pollMS,
			ListenAddr:     listen,
		}
	}

	if accent := nonEmptyPtr(cfg.UI.Accent); accent != nil {
		out.UI = &persistedUISettings{Accent: accent}
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := atomicfile.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}

	return nil
}

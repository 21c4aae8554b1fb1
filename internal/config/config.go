// Package config loads adapter configuration from an optional YAML
// file with environment variable overrides. Configuration is loaded
// once at startup and passed down explicitly; no package reads the
// environment after Load returns.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Environment variables recognized as overrides.
const (
	EnvServerURL = "SPECKLE_SERVER_URL"
	EnvToken     = "SPECKLE_TOKEN"
	EnvDatabase  = "ADAPTER_DB"
	EnvListen    = "ADAPTER_LISTEN"
)

// Config is the adapter's full configuration.
type Config struct {
	Speckle  SpeckleConfig  `yaml:"speckle"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Sync     SyncConfig     `yaml:"sync"`
	Policy   PolicyConfig   `yaml:"policy"`
}

// SpeckleConfig locates the remote object-graph store.
type SpeckleConfig struct {
	// ServerURL is the Speckle server base URL.
	ServerURL string `yaml:"server_url"`

	// Token is the personal access token. Required for any remote
	// operation; typically supplied via SPECKLE_TOKEN rather than the
	// file.
	Token string `yaml:"token"`

	// TimeoutSeconds bounds each network round trip. Zero means the
	// client default.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// DatabaseConfig locates the relational store.
type DatabaseConfig struct {
	// Path is the SQLite database file path.
	Path string `yaml:"path"`
}

// ServerConfig configures the HTTP front door.
type ServerConfig struct {
	// Listen is the address the HTTP server binds to.
	Listen string `yaml:"listen"`
}

// SyncConfig tunes the pipeline.
type SyncConfig struct {
	// Branch is the logical branch name recorded on model rows.
	Branch string `yaml:"branch"`

	// DebugLimit caps elements returned by debug extraction.
	DebugLimit int `yaml:"debug_limit"`

	// SyncLimit caps elements persisted per sync.
	SyncLimit int `yaml:"sync_limit"`
}

// PolicyConfig locates the optional extraction policy file.
type PolicyConfig struct {
	// File is a CUE policy file unified over the built-in defaults.
	File string `yaml:"file"`
}

// Default returns the configuration used when no file and no overrides
// are present.
func Default() Config {
	return Config{
		Speckle:  SpeckleConfig{ServerURL: "http://localhost:3000"},
		Database: DatabaseConfig{Path: "adapter.db"},
		Server:   ServerConfig{Listen: ":8080"},
		Sync:     SyncConfig{Branch: "main", DebugLimit: 2000, SyncLimit: 10000},
	}
}

// Load reads configuration from path (optional; empty path skips the
// file), then applies environment overrides. Missing files are an
// error only when a path was explicitly given.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.Sync.Branch == "" {
		cfg.Sync.Branch = "main"
	}

	return cfg, nil
}

// applyEnv overlays environment variables onto cfg.
func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvServerURL); v != "" {
		cfg.Speckle.ServerURL = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		cfg.Speckle.Token = v
	}
	if v := os.Getenv(EnvDatabase); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv(EnvListen); v != "" {
		cfg.Server.Listen = v
	}
}

// ValidateRemote checks the fields required for operations that reach
// the Speckle server.
func (c Config) ValidateRemote() error {
	if c.Speckle.Token == "" {
		return fmt.Errorf("speckle token is not set (config speckle.token or %s)", EnvToken)
	}
	if c.Speckle.ServerURL == "" {
		return fmt.Errorf("speckle server URL is not set (config speckle.server_url or %s)", EnvServerURL)
	}
	return nil
}

// String renders the config for verbose logging with the token
// redacted.
func (c Config) String() string {
	token := c.Speckle.Token
	if token != "" {
		token = "[redacted " + strconv.Itoa(len(token)) + " chars]"
	}
	return fmt.Sprintf("speckle=%s token=%s db=%s listen=%s branch=%s",
		c.Speckle.ServerURL, token, c.Database.Path, c.Server.Listen, c.Sync.Branch)
}

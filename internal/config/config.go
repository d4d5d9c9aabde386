package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Environment variable names recognized by Load.
const (
	EnvBaseDir   = "NEXUS_BASE_DIR"
	EnvLogLevel  = "NEXUS_LOG_LEVEL"
	EnvLogFormat = "NEXUS_LOG_FORMAT"
)

const (
	defaultLogLevel  = "info"
	defaultLogFormat = "console"
)

// Config centralizes every setting the daemon and CLI need.
type Config struct {
	BaseDir   string
	LogLevel  string
	LogFormat string
}

// Default returns a Config populated with repository defaults. BaseDir is
// empty until Normalize resolves it against the working directory.
func Default() Config {
	return Config{
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
	}
}

// Load builds configuration from the environment and normalizes it.
func Load() (*Config, error) {
	cfg := Default()
	cfg.BaseDir = strings.TrimSpace(os.Getenv(EnvBaseDir))
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.LogFormat = v
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize resolves the base directory to an absolute path and validates the
// logging settings.
func (c *Config) Normalize() error {
	base := strings.TrimSpace(c.BaseDir)
	if base == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
		base = cwd
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return fmt.Errorf("resolve base directory %q: %w", base, err)
	}
	c.BaseDir = abs

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "":
		c.LogLevel = defaultLogLevel
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level: unsupported value %q", c.LogLevel)
	}

	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	switch c.LogFormat {
	case "":
		c.LogFormat = defaultLogFormat
	case "console", "json":
	default:
		return fmt.Errorf("log format: unsupported value %q", c.LogFormat)
	}
	return nil
}

// SessionDir is the root of the active session tree.
func (c *Config) SessionDir() string {
	return filepath.Join(c.BaseDir, "sessions", "current")
}

// FramesDir holds the saved frame bitmaps.
func (c *Config) FramesDir() string {
	return filepath.Join(c.SessionDir(), "frames")
}

// LogPath is the append-only diagnostic log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.SessionDir(), "capture.log")
}

// StateDir holds the lock file, heartbeat, and session manifest.
func (c *Config) StateDir() string {
	return filepath.Join(c.SessionDir(), "state")
}

// ManifestPath is the SQLite session manifest database.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.StateDir(), "manifest.db")
}

// LockPath is the single-instance daemon lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.StateDir(), "nexuscapd.lock")
}

// HeartbeatPath is the atomically replaced heartbeat state file.
func (c *Config) HeartbeatPath() string {
	return filepath.Join(c.StateDir(), "heartbeat_capture.json")
}

// EnsureDirectories creates every directory the service writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.FramesDir(), c.StateDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

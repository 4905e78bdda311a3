package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appDirName     = "downlink"
	configFileName = "config.yaml"
	dbFileName     = "downlink.db"
)

// ToolsConfig pins explicit binary paths; empty means discover via common
// install locations and PATH.
type ToolsConfig struct {
	YtDlpPath  string `yaml:"yt_dlp_path"`
	FfmpegPath string `yaml:"ffmpeg_path"`
}

// EngineConfig tunes the download engine.
type EngineConfig struct {
	// MaxConcurrent bounds how many jobs may be active at once.
	MaxConcurrent int `yaml:"max_concurrent"`
	// StopGraceSeconds is how long a graceful stop waits before a hard kill.
	StopGraceSeconds int `yaml:"stop_grace_seconds"`
	// LogBufferLines caps the per-job diagnostic ring buffer.
	LogBufferLines int `yaml:"log_buffer_lines"`
	// ProgressEventsPerSecond rate-limits progress events per job.
	ProgressEventsPerSecond int `yaml:"progress_events_per_second"`
	// MetadataTimeoutSeconds bounds metadata and playlist enumeration calls.
	MetadataTimeoutSeconds int `yaml:"metadata_timeout_seconds"`
}

// NetworkConfig holds optional network behavior passed to the engine.
type NetworkConfig struct {
	ProxyURL      string  `yaml:"proxy_url"`
	RateLimitMBps float64 `yaml:"rate_limit_mbps"`
}

// Config holds application configuration
type Config struct {
	DownloadDir string        `yaml:"download_dir"`
	Engine      EngineConfig  `yaml:"engine"`
	Tools       ToolsConfig   `yaml:"tools"`
	Network     NetworkConfig `yaml:"network"`
	LogFile     string        `yaml:"log_file"`
	LogLevel    string        `yaml:"log_level"`

	// Derived from environment, not stored in YAML
	dataDir string
}

// Default returns a config with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.DownloadDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.DownloadDir = filepath.Join(home, "Downloads")
		} else {
			c.DownloadDir = "."
		}
	}
	if c.Engine.MaxConcurrent <= 0 {
		c.Engine.MaxConcurrent = 2
	}
	if c.Engine.StopGraceSeconds <= 0 {
		c.Engine.StopGraceSeconds = 10
	}
	if c.Engine.LogBufferLines <= 0 {
		c.Engine.LogBufferLines = 2000
	}
	if c.Engine.ProgressEventsPerSecond <= 0 {
		c.Engine.ProgressEventsPerSecond = 5
	}
	if c.Engine.MetadataTimeoutSeconds <= 0 {
		c.Engine.MetadataTimeoutSeconds = 30
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// DataDir returns the app data directory, honoring DOWNLINK_DATA_DIR and
// XDG_DATA_HOME before falling back to ~/.local/share/downlink.
func (c *Config) DataDir() string {
	if c.dataDir != "" {
		return c.dataDir
	}
	if dir := os.Getenv("DOWNLINK_DATA_DIR"); dir != "" {
		return dir
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return appDirName
	}
	return filepath.Join(home, ".local", "share", appDirName)
}

// DatabasePath returns the path to the SQLite database
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir(), dbFileName)
}

// LogPath returns the engine log file path, defaulting under the data dir.
func (c *Config) LogPath() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return filepath.Join(c.DataDir(), "downlink.log")
}

// EnsureDataDir creates the data directory tree.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir(), 0755)
}

// StopGrace returns the graceful-stop window as a duration.
func (e EngineConfig) StopGrace() time.Duration {
	return time.Duration(e.StopGraceSeconds) * time.Second
}

// MetadataTimeout returns the metadata probe budget as a duration.
func (e EngineConfig) MetadataTimeout() time.Duration {
	return time.Duration(e.MetadataTimeoutSeconds) * time.Second
}

// Load reads configuration from a YAML file and applies defaults plus
// environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

// LoadDefault loads config from the default location, falling back to pure
// defaults when no config file exists yet.
func LoadDefault() (*Config, error) {
	path := DefaultPath()
	if _, err := os.Stat(path); err != nil {
		cfg := Default()
		cfg.applyEnv()
		return cfg, nil
	}
	return Load(path)
}

// DefaultPath returns the expected config file location, honoring
// XDG_CONFIG_HOME before ~/.config.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName, configFileName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(appDirName, configFileName)
	}
	return filepath.Join(home, ".config", appDirName, configFileName)
}

// applyEnv layers environment overrides on top of file values. Only knobs
// operators tune per-host are exposed this way.
func (c *Config) applyEnv() {
	if v := os.Getenv("DOWNLINK_DOWNLOAD_DIR"); v != "" {
		c.DownloadDir = v
	}
	if v := os.Getenv("DOWNLINK_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Engine.MaxConcurrent = n
		}
	}
	if v := os.Getenv("DOWNLINK_YTDLP_PATH"); v != "" {
		c.Tools.YtDlpPath = v
	}
	if v := os.Getenv("DOWNLINK_FFMPEG_PATH"); v != "" {
		c.Tools.FfmpegPath = v
	}
	if v := os.Getenv("DOWNLINK_PROXY_URL"); v != "" {
		c.Network.ProxyURL = v
	}
	if v := os.Getenv("DOWNLINK_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

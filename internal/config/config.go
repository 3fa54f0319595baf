package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Fetch   FetchConfig   `yaml:"fetch"`
	History HistoryConfig `yaml:"history"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `yaml:"host" envconfig:"SERVER_HOST"`
	Port         int           `yaml:"port" envconfig:"SERVER_PORT"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT"`
}

// StorageConfig holds cache directory configuration.
type StorageConfig struct {
	BasePath      string        `yaml:"base_path" envconfig:"STORAGE_PATH"`
	ScratchPath   string        `yaml:"scratch_path" envconfig:"STORAGE_SCRATCH_PATH"`
	MinFileSize   int64         `yaml:"min_file_size" envconfig:"MIN_FILE_SIZE"`
	MaxFileAge    time.Duration `yaml:"max_file_age" envconfig:"MAX_FILE_AGE"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"SWEEP_INTERVAL"`
}

// FetchConfig holds external tool configuration.
type FetchConfig struct {
	YtdlpPath     string        `yaml:"ytdlp_path" envconfig:"YTDLP_PATH"`
	Timeout       time.Duration `yaml:"timeout" envconfig:"FETCH_TIMEOUT"`
	MaxHeight     int           `yaml:"max_height" envconfig:"FETCH_MAX_HEIGHT"`
	AudioQuality  string        `yaml:"audio_quality" envconfig:"FETCH_AUDIO_QUALITY"`
	CookieFile    string        `yaml:"cookie_file" envconfig:"FETCH_COOKIE_FILE"`
	SkipTLSVerify bool          `yaml:"skip_tls_verify" envconfig:"FETCH_SKIP_TLS_VERIFY"`
}

// HistoryConfig holds fetch history store configuration.
// An empty path disables persistence.
type HistoryConfig struct {
	Path      string        `yaml:"path" envconfig:"HISTORY_PATH"`
	Retention time.Duration `yaml:"retention" envconfig:"HISTORY_RETENTION"`
}

// defaultConfig returns the built-in defaults. Defaults live here rather
// than in struct tags so that envconfig only writes fields whose
// environment variable is actually set.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8632,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 10 * time.Minute,
		},
		Storage: StorageConfig{
			BasePath:      "/data/media",
			ScratchPath:   "/data/scratch",
			MinFileSize:   10240,
			MaxFileAge:    24 * time.Hour,
			SweepInterval: time.Hour,
		},
		Fetch: FetchConfig{
			YtdlpPath:    "yt-dlp",
			Timeout:      5 * time.Minute,
			MaxHeight:    720,
			AudioQuality: "192K",
		},
		History: HistoryConfig{
			Path:      "/data/history.db",
			Retention: 720 * time.Hour,
		},
	}
}

// Load reads configuration in layers: built-in defaults first, then the
// YAML file, then environment variables. Each layer only overrides what
// it actually sets.
func Load(configPath string) (*Config, error) {
	cfg := defaultConfig()

	// Layer the YAML file over the defaults if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Environment variables override file values
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.Storage.BasePath == "" {
		return fmt.Errorf("STORAGE_PATH is required")
	}
	if c.Storage.ScratchPath == "" {
		return fmt.Errorf("STORAGE_SCRATCH_PATH is required")
	}
	if c.Storage.MinFileSize < 0 {
		return fmt.Errorf("MIN_FILE_SIZE must not be negative")
	}
	if c.Storage.MaxFileAge <= 0 {
		return fmt.Errorf("MAX_FILE_AGE must be positive")
	}
	if c.Fetch.YtdlpPath == "" {
		return fmt.Errorf("YTDLP_PATH is required")
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

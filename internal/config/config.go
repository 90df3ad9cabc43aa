package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
)

// Config represents the scanner configuration
type Config struct {
	// Signature settings
	SignaturesPath string `mapstructure:"signatures_path"` // signature store file
	Algorithm      string `mapstructure:"algorithm"`       // md5, sha256

	// Quarantine settings
	QuarantineDir string `mapstructure:"quarantine_dir"` // isolation directory

	// Report settings
	ReportFormat string `mapstructure:"report_format"` // json, yaml, csv, txt
	OutputFile   string `mapstructure:"output_file"`   // output file path

	Scan ScanConfig `mapstructure:"scan"`
	Sync SyncConfig `mapstructure:"sync"`
	Log  LogConfig  `mapstructure:"log"`
}

// ScanConfig holds scan coordinator settings
type ScanConfig struct {
	Workers             int      `mapstructure:"workers"`              // concurrent hashing workers
	SequentialThreshold int      `mapstructure:"sequential_threshold"` // scan sequentially at or below this file count
	ChunkSize           string   `mapstructure:"chunk_size"`           // hashing read size, e.g. 64KiB
	FollowSymlinks      bool     `mapstructure:"follow_symlinks"`      // follow directory symlinks
	Exclude             []string `mapstructure:"exclude"`              // directory names or absolute paths
	RateLimit           float64  `mapstructure:"rate_limit"`           // files per second, 0 = unlimited
	EventBuffer         int      `mapstructure:"event_buffer"`         // scan event channel capacity
}

// SyncConfig holds remote signature feed settings
type SyncConfig struct {
	URL       string        `mapstructure:"url"`        // feed returning a JSON array of fingerprints
	StateFile string        `mapstructure:"state_file"` // last successful sync timestamp
	Cooldown  time.Duration `mapstructure:"cooldown"`   // minimum time between fetches
	Timeout   int           `mapstructure:"timeout"`    // seconds per fetch
	Retries   int           `mapstructure:"retries"`    // transport retries per fetch
	UserAgent string        `mapstructure:"user_agent"` // client identifier header
}

// LogConfig holds logging settings
type LogConfig struct {
	Level      string `mapstructure:"level"`        // debug, info, warn, error
	File       string `mapstructure:"file"`         // JSON log file, empty disables
	MaxSizeMB  int    `mapstructure:"max_size_mb"`  // rotate after this size
	MaxBackups int    `mapstructure:"max_backups"`  // rotated files kept
	MaxAgeDays int    `mapstructure:"max_age_days"` // rotated files age limit
}

// Default values shared by the loader and the CLI flags
const (
	DefaultWorkers             = 4
	DefaultSequentialThreshold = 10
	DefaultChunkSize           = "64KiB"
	DefaultCooldown            = time.Hour
	DefaultSyncTimeout         = 10
	DefaultUserAgent           = "sigscan/1.0"
)

// LoadConfig loads configuration from defaults, an optional config file and
// environment variables (SIGSCAN_ prefix)
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	}

	// Read environment variables
	v.SetEnvPrefix("SIGSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("signatures_path", "virus_signatures.json")
	v.SetDefault("algorithm", "md5")
	v.SetDefault("quarantine_dir", "quarantine")
	v.SetDefault("report_format", "")
	v.SetDefault("output_file", "")

	v.SetDefault("scan.workers", DefaultWorkers)
	v.SetDefault("scan.sequential_threshold", DefaultSequentialThreshold)
	v.SetDefault("scan.chunk_size", DefaultChunkSize)
	v.SetDefault("scan.follow_symlinks", false)
	v.SetDefault("scan.exclude", []string{})
	v.SetDefault("scan.rate_limit", 0)
	v.SetDefault("scan.event_buffer", 64)

	v.SetDefault("sync.url", "")
	v.SetDefault("sync.state_file", "cloud_signatures_cache.json")
	v.SetDefault("sync.cooldown", DefaultCooldown)
	v.SetDefault("sync.timeout", DefaultSyncTimeout)
	v.SetDefault("sync.retries", 2)
	v.SetDefault("sync.user_agent", DefaultUserAgent)

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.file", "antivirus.log")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}

// Validate checks values that the loader cannot coerce
func (c *Config) Validate() error {
	switch c.Algorithm {
	case "md5", "sha256":
	default:
		return fmt.Errorf("algorithm must be md5 or sha256 (got: %s)", c.Algorithm)
	}

	if c.Scan.Workers < 0 {
		return fmt.Errorf("scan.workers must not be negative (got: %d)", c.Scan.Workers)
	}
	if c.Scan.SequentialThreshold < 0 {
		return fmt.Errorf("scan.sequential_threshold must not be negative (got: %d)", c.Scan.SequentialThreshold)
	}
	if c.Scan.RateLimit < 0 {
		return fmt.Errorf("scan.rate_limit must not be negative (got: %v)", c.Scan.RateLimit)
	}
	if _, err := c.ChunkBytes(); err != nil {
		return err
	}

	switch c.ReportFormat {
	case "", "json", "yaml", "csv", "txt", "text":
	default:
		return fmt.Errorf("report_format must be one of: json, yaml, csv, txt (got: %s)", c.ReportFormat)
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error (got: %s)", c.Log.Level)
	}

	return nil
}

// ChunkBytes returns the hashing chunk size in bytes
func (c *Config) ChunkBytes() (int, error) {
	if c.Scan.ChunkSize == "" {
		c.Scan.ChunkSize = DefaultChunkSize
	}
	n, err := humanize.ParseBytes(c.Scan.ChunkSize)
	if err != nil {
		return 0, fmt.Errorf("invalid scan.chunk_size %q: %w", c.Scan.ChunkSize, err)
	}
	if n == 0 || n > 64*1024*1024 {
		return 0, fmt.Errorf("scan.chunk_size must be between 1B and 64MiB (got: %s)", c.Scan.ChunkSize)
	}
	return int(n), nil
}

// SyncTimeout returns the feed timeout as a duration
func (c *Config) SyncTimeout() time.Duration {
	if c.Sync.Timeout <= 0 {
		return DefaultSyncTimeout * time.Second
	}
	return time.Duration(c.Sync.Timeout) * time.Second
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	// Test default config loading (without config file)
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	// Check defaults
	if cfg.Algorithm != "md5" {
		t.Errorf("Default algorithm = %v, want %v", cfg.Algorithm, "md5")
	}

	if cfg.QuarantineDir != "quarantine" {
		t.Errorf("Default quarantine_dir = %v, want %v", cfg.QuarantineDir, "quarantine")
	}

	if cfg.Scan.Workers != DefaultWorkers {
		t.Errorf("Default scan.workers = %v, want %v", cfg.Scan.Workers, DefaultWorkers)
	}

	if cfg.Scan.SequentialThreshold != DefaultSequentialThreshold {
		t.Errorf("Default scan.sequential_threshold = %v, want %v", cfg.Scan.SequentialThreshold, DefaultSequentialThreshold)
	}

	if cfg.Sync.Cooldown != time.Hour {
		t.Errorf("Default sync.cooldown = %v, want %v", cfg.Sync.Cooldown, time.Hour)
	}

	if cfg.SyncTimeout() != 10*time.Second {
		t.Errorf("Default SyncTimeout() = %v, want %v", cfg.SyncTimeout(), 10*time.Second)
	}

	if cfg.Log.File != "antivirus.log" {
		t.Errorf("Default log.file = %v, want %v", cfg.Log.File, "antivirus.log")
	}
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sigscan.yaml")
	content := `
algorithm: sha256
quarantine_dir: /tmp/jail
scan:
  workers: 8
  sequential_threshold: 3
  exclude: [".git", "node_modules"]
sync:
  url: https://example.com/signatures.json
  cooldown: 30m
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Algorithm != "sha256" {
		t.Errorf("algorithm = %v, want sha256", cfg.Algorithm)
	}
	if cfg.Scan.Workers != 8 {
		t.Errorf("scan.workers = %v, want 8", cfg.Scan.Workers)
	}
	if cfg.Scan.SequentialThreshold != 3 {
		t.Errorf("scan.sequential_threshold = %v, want 3", cfg.Scan.SequentialThreshold)
	}
	if len(cfg.Scan.Exclude) != 2 {
		t.Errorf("scan.exclude count = %v, want 2", len(cfg.Scan.Exclude))
	}
	if cfg.Sync.Cooldown != 30*time.Minute {
		t.Errorf("sync.cooldown = %v, want 30m", cfg.Sync.Cooldown)
	}
	// Untouched keys keep their defaults
	if cfg.SignaturesPath != "virus_signatures.json" {
		t.Errorf("signatures_path = %v, want default", cfg.SignaturesPath)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadConfig() expected error for missing config file, got nil")
	}
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("SIGSCAN_ALGORITHM", "sha256")
	t.Setenv("SIGSCAN_SCAN_WORKERS", "12")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Algorithm != "sha256" {
		t.Errorf("algorithm = %v, want sha256", cfg.Algorithm)
	}
	if cfg.Scan.Workers != 12 {
		t.Errorf("scan.workers = %v, want 12", cfg.Scan.Workers)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Algorithm: "md5",
			Scan: ScanConfig{
				Workers:             4,
				SequentialThreshold: 10,
				ChunkSize:           "64KiB",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"Valid defaults", func(c *Config) {}, false},
		{"SHA256", func(c *Config) { c.Algorithm = "sha256" }, false},
		{"Unknown algorithm", func(c *Config) { c.Algorithm = "crc32" }, true},
		{"Negative workers", func(c *Config) { c.Scan.Workers = -1 }, true},
		{"Negative threshold", func(c *Config) { c.Scan.SequentialThreshold = -1 }, true},
		{"Negative rate", func(c *Config) { c.Scan.RateLimit = -2 }, true},
		{"Bad chunk size", func(c *Config) { c.Scan.ChunkSize = "lots" }, true},
		{"Zero chunk size", func(c *Config) { c.Scan.ChunkSize = "0B" }, true},
		{"Report csv", func(c *Config) { c.ReportFormat = "csv" }, false},
		{"Report xml", func(c *Config) { c.ReportFormat = "xml" }, true},
		{"Log level debug", func(c *Config) { c.Log.Level = "debug" }, false},
		{"Log level loud", func(c *Config) { c.Log.Level = "loud" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestChunkBytes(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"64KiB", 64 * 1024},
		{"1MiB", 1024 * 1024},
		{"4096", 4096},
		{"", 64 * 1024},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cfg := &Config{Scan: ScanConfig{ChunkSize: tt.input}}
			got, err := cfg.ChunkBytes()
			if err != nil {
				t.Fatalf("ChunkBytes() error = %v", err)
			}
			if got != tt.expected {
				t.Errorf("ChunkBytes(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

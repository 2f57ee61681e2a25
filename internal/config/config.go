// Package config loads application configuration from environment
// variables, .env files and an optional config file.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// DataDir is the directory holding the store, snapshot and audit
	// databases.
	DataDir string

	// StoreDB, SnapshotDB and AuditDB are the SQLite database paths.
	// Empty values default to files under DataDir.
	StoreDB    string
	SnapshotDB string
	AuditDB    string

	// Restore retry bounds for snapshot rollback.
	RestoreMaxRetries int
	RestoreBaseDelay  time.Duration

	// Logging configuration
	LogLevel  string
	LogFormat string
}

// Load reads configuration in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (STAFFSYNC_ prefix)
// 3. .env files
// 4. Config file (~/.staffsync.yaml)
// 5. Defaults
func Load() (*Config, error) {
	loadEnvFiles()

	viper.SetEnvPrefix("STAFFSYNC")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	viper.SetDefault("data_dir", defaultDataDir())
	viper.SetDefault("restore_max_retries", 3)
	viper.SetDefault("restore_base_delay", "100ms")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "console")

	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".staffsync")
	}

	// Config file is optional.
	_ = viper.ReadInConfig()

	cfg := &Config{
		DataDir:           viper.GetString("data_dir"),
		StoreDB:           viper.GetString("store_db"),
		SnapshotDB:        viper.GetString("snapshot_db"),
		AuditDB:           viper.GetString("audit_db"),
		RestoreMaxRetries: viper.GetInt("restore_max_retries"),
		RestoreBaseDelay:  viper.GetDuration("restore_base_delay"),
		LogLevel:          viper.GetString("log_level"),
		LogFormat:         viper.GetString("log_format"),
	}
	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults fills database paths derived from DataDir.
func (c *Config) applyDefaults() {
	if c.StoreDB == "" {
		c.StoreDB = filepath.Join(c.DataDir, "records.db")
	}
	if c.SnapshotDB == "" {
		c.SnapshotDB = filepath.Join(c.DataDir, "snapshots.db")
	}
	if c.AuditDB == "" {
		c.AuditDB = filepath.Join(c.DataDir, "audit.db")
	}
	if c.RestoreBaseDelay <= 0 {
		c.RestoreBaseDelay = 100 * time.Millisecond
	}
}

// SetDataDir moves the data directory and re-derives any database path
// that was not set explicitly.
func (c *Config) SetDataDir(dir string) {
	old := c.DataDir
	c.DataDir = dir
	if c.StoreDB == filepath.Join(old, "records.db") {
		c.StoreDB = ""
	}
	if c.SnapshotDB == filepath.Join(old, "snapshots.db") {
		c.SnapshotDB = ""
	}
	if c.AuditDB == filepath.Join(old, "audit.db") {
		c.AuditDB = ""
	}
	c.applyDefaults()
}

// EnsureDataDir creates the data directory when missing.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o755)
}

// loadEnvFiles loads .env files from the working directory, most
// specific first. Missing files are fine.
func loadEnvFiles() {
	for _, name := range []string{".env.local", ".env"} {
		_ = godotenv.Load(name)
	}
}

// defaultDataDir places data under the user's home directory, falling
// back to the working directory.
func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".staffsync")
	}
	return ".staffsync"
}

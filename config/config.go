// Package config holds run configuration resolved from the environment and
// command-line flags.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Run modes. ModeStoreDump persists every new record to the document store
// and writes the dump at the end; ModeDumpOnly skips the store and writes a
// timestamped dump with a progress bar.
const (
	ModeStoreDump = "store+dump"
	ModeDumpOnly  = "dump-only"
)

// Store backend names.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds catalog sync configuration.
type Config struct {
	BaseURL      string
	Mode         string // store+dump or dump-only
	StoreBackend string // sqlite or postgres
	StoreDSN     string
	OutputFile   string
	LogFile      string
	Timeout      time.Duration
	UserAgent    string
	Verbose      bool
	MetricsAddr  string
}

// DefaultConfig returns defaults for everything that has a sane default.
// BaseURL and StoreDSN have none and must be supplied externally.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      "",
		Mode:         ModeStoreDump,
		StoreBackend: BackendSQLite,
		StoreDSN:     "",
		OutputFile:   "books-dump.json",
		LogFile:      "",
		Timeout:      60 * time.Second,
		UserAgent:    "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Verbose:      false,
		MetricsAddr:  "",
	}
}

// LoadEnv reads a .env file if one is present. A missing file is not an
// error; the process environment always wins.
func LoadEnv() {
	_ = godotenv.Load()
}

// EnvString returns the value of an environment variable and whether it was
// set to a non-empty value.
func EnvString(key string) (string, bool) {
	value := os.Getenv(key)
	return value, value != ""
}

// EnvInt parses an integer environment variable.
func EnvInt(key string) (int, bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, true, nil
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.Mode != ModeStoreDump && c.Mode != ModeDumpOnly {
		return fmt.Errorf("mode must be %s or %s", ModeStoreDump, ModeDumpOnly)
	}
	if c.Mode == ModeStoreDump {
		if c.StoreBackend != BackendSQLite && c.StoreBackend != BackendPostgres {
			return fmt.Errorf("store backend must be %s or %s", BackendSQLite, BackendPostgres)
		}
		if c.StoreDSN == "" {
			return fmt.Errorf("store DSN cannot be empty in %s mode", ModeStoreDump)
		}
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}

// DumpPath returns the JSON artifact path for this run. Dump-only runs get a
// date-stamped file the way the standalone parser did; store+dump runs keep
// the configured fixed path.
func (c *Config) DumpPath(now time.Time) string {
	if c.Mode == ModeDumpOnly {
		return fmt.Sprintf("books-dump-%s.json", now.Format("2006-01-02"))
	}
	return c.OutputFile
}

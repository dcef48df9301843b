package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds scraper configuration.
type Config struct {
	Delay         time.Duration
	Timeout       time.Duration
	UserAgent     string
	DomainToken   string
	LocatorsFile  string
	SnapshotEvery int
	SnapshotDir   string
	OutputFile    string
	OutputFormat  string // csv, json, or dual
	CacheSize     int
	MetricsAddr   string
	Verbose       bool
}

// DefaultConfig returns conservative defaults for the target site.
func DefaultConfig() *Config {
	return &Config{
		Delay:         2 * time.Second,
		Timeout:       15 * time.Second,
		UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		DomainToken:   "1mg",
		LocatorsFile:  "",
		SnapshotEvery: 5,
		SnapshotDir:   "output",
		OutputFile:    "output/medicines.csv",
		OutputFormat:  "dual",
		CacheSize:     128,
		MetricsAddr:   "",
		Verbose:       false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.DomainToken == "" {
		return fmt.Errorf("domain token cannot be empty")
	}
	if c.SnapshotEvery < 0 {
		return fmt.Errorf("snapshot interval cannot be negative")
	}
	if c.SnapshotEvery > 0 && c.SnapshotDir == "" {
		return fmt.Errorf("snapshot directory cannot be empty when snapshots are enabled")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache size must be positive")
	}
	return nil
}

// EnvInt reads an integer environment variable. The second return reports
// whether the variable was set.
func EnvInt(name string) (int, bool, error) {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s: %w", name, err)
	}
	return value, true, nil
}

// EnvString reads a string environment variable.
func EnvString(name string) (string, bool) {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return "", false
	}
	return raw, true
}

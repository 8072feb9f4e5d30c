package internal

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Store
	DatabasePath string

	// Transfer pacing
	BatchLimit   int
	ItemDelay    time.Duration
	RestEvery    int
	RestDuration time.Duration

	// Provider adapters
	HTTPTimeout time.Duration
	CookieFile  string
	ProxyURL    string
	DestDirID   string

	// Audit
	AuditDir string

	// Logging
	LogLevel    string
	EnableDebug bool
	QuietMode   bool
	LogFile     string
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		DatabasePath: "data/netdisk_links.db",
		BatchLimit:   5,
		ItemDelay:    2 * time.Second,
		RestEvery:    5,
		RestDuration: 10 * time.Second,
		HTTPTimeout:  30 * time.Second,
		CookieFile:   "config/quark_cookies.txt",
		DestDirID:    "0", // provider root folder
		AuditDir:     "logs",
		LogLevel:     "info",
	}
}

// LoadFromEnv loads configuration from the environment. A .env file in the
// working directory is honored first but never required.
func (c *Config) LoadFromEnv() {
	_ = godotenv.Load()

	if v := os.Getenv("PANSAVE_DB"); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv("PANSAVE_BATCH_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.BatchLimit = n
		}
	}
	if v := os.Getenv("PANSAVE_ITEM_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			c.ItemDelay = d
		}
	}
	if v := os.Getenv("PANSAVE_REST_EVERY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.RestEvery = n
		}
	}
	if v := os.Getenv("PANSAVE_REST"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			c.RestDuration = d
		}
	}
	if v := os.Getenv("PANSAVE_HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.HTTPTimeout = d
		}
	}
	if v := os.Getenv("PANSAVE_COOKIES"); v != "" {
		c.CookieFile = v
	}
	if v := os.Getenv("PANSAVE_PROXY"); v != "" {
		c.ProxyURL = v
	}
	if v := os.Getenv("PANSAVE_DEST_DIR"); v != "" {
		c.DestDirID = v
	}
	if v := os.Getenv("PANSAVE_AUDIT_DIR"); v != "" {
		c.AuditDir = v
	}
	if v := os.Getenv("PANSAVE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("PANSAVE_DEBUG"); v != "" {
		c.EnableDebug = v == "true" || v == "1"
	}
	if v := os.Getenv("PANSAVE_QUIET"); v != "" {
		c.QuietMode = v == "true" || v == "1"
	}
	if v := os.Getenv("PANSAVE_LOG_FILE"); v != "" {
		c.LogFile = v
	}
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.BatchLimit < 1 {
		return fmt.Errorf("invalid batch limit: %d (must be >= 1)", c.BatchLimit)
	}
	if c.ItemDelay < 0 {
		return fmt.Errorf("invalid item delay: %v (must be >= 0)", c.ItemDelay)
	}
	if c.RestEvery < 1 {
		return fmt.Errorf("invalid rest interval count: %d (must be >= 1)", c.RestEvery)
	}
	if c.RestDuration < 0 {
		return fmt.Errorf("invalid rest duration: %v (must be >= 0)", c.RestDuration)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("invalid HTTP timeout: %v (must be > 0)", c.HTTPTimeout)
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	EnvDeskRecordStoreURL = "LICITA_RECORD_STORE_URL"
	EnvDeskExtractionURL  = "LICITA_EXTRACTION_URL"
	EnvDeskComplianceURL  = "LICITA_COMPLIANCE_URL"
	EnvDeskCachePath      = "LICITA_CACHE_PATH"
	EnvDeskRulesPath      = "LICITA_RULES_PATH"
	EnvDeskRequestTimeout = "LICITA_REQUEST_TIMEOUT"
	EnvDeskRetries        = "LICITA_RETRIES"
)

// DeskConfig configures the workspace desk driven by the CLI.
type DeskConfig struct {
	RecordStoreURL string `toml:"record_store_url"`
	ExtractionURL  string `toml:"extraction_url"`
	// ComplianceURL defaults to ExtractionURL; both services sit behind
	// the same agent gateway in the usual deployment.
	ComplianceURL string `toml:"compliance_url"`
	CachePath     string `toml:"cache_path"`
	// RulesPath is an optional YAML classification table. Empty selects the
	// built-in table.
	RulesPath      string `toml:"rules_path"`
	RequestTimeout string `toml:"request_timeout"`
	Retries        int    `toml:"retries"`
}

// RequestTimeoutDuration returns RequestTimeout as a time.Duration.
func (c *DeskConfig) RequestTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.RequestTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *DeskConfig) Finalize() error {
	c.loadEnv()
	c.loadDefaults()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *DeskConfig) Merge(overlay *DeskConfig) {
	if overlay.RecordStoreURL != "" {
		c.RecordStoreURL = overlay.RecordStoreURL
	}
	if overlay.ExtractionURL != "" {
		c.ExtractionURL = overlay.ExtractionURL
	}
	if overlay.ComplianceURL != "" {
		c.ComplianceURL = overlay.ComplianceURL
	}
	if overlay.CachePath != "" {
		c.CachePath = overlay.CachePath
	}
	if overlay.RulesPath != "" {
		c.RulesPath = overlay.RulesPath
	}
	if overlay.RequestTimeout != "" {
		c.RequestTimeout = overlay.RequestTimeout
	}
	if overlay.Retries != 0 {
		c.Retries = overlay.Retries
	}
}

// loadDefaults runs after loadEnv so ComplianceURL can follow an
// overridden ExtractionURL.
func (c *DeskConfig) loadDefaults() {
	if c.RecordStoreURL == "" {
		c.RecordStoreURL = "http://localhost:8080/api"
	}
	if c.ExtractionURL == "" {
		c.ExtractionURL = "http://localhost:8000/api"
	}
	if c.ComplianceURL == "" {
		c.ComplianceURL = c.ExtractionURL
	}
	if c.CachePath == "" {
		c.CachePath = defaultCachePath()
	}
	if c.RequestTimeout == "" {
		c.RequestTimeout = "10m"
	}
	if c.Retries == 0 {
		c.Retries = 3
	}
}

func (c *DeskConfig) loadEnv() {
	if v := os.Getenv(EnvDeskRecordStoreURL); v != "" {
		c.RecordStoreURL = v
	}
	if v := os.Getenv(EnvDeskExtractionURL); v != "" {
		c.ExtractionURL = v
	}
	if v := os.Getenv(EnvDeskComplianceURL); v != "" {
		c.ComplianceURL = v
	}
	if v := os.Getenv(EnvDeskCachePath); v != "" {
		c.CachePath = v
	}
	if v := os.Getenv(EnvDeskRulesPath); v != "" {
		c.RulesPath = v
	}
	if v := os.Getenv(EnvDeskRequestTimeout); v != "" {
		c.RequestTimeout = v
	}
	if v := os.Getenv(EnvDeskRetries); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Retries = n
		}
	}
}

func (c *DeskConfig) validate() error {
	for name, v := range map[string]string{
		"record_store_url": c.RecordStoreURL,
		"extraction_url":   c.ExtractionURL,
		"compliance_url":   c.ComplianceURL,
	} {
		u, err := url.Parse(v)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s: %q", name, v)
		}
	}
	if _, err := time.ParseDuration(c.RequestTimeout); err != nil {
		return fmt.Errorf("invalid request_timeout: %w", err)
	}
	if c.Retries < 0 {
		return errors.New("retries cannot be negative")
	}
	return nil
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "workspaces.json"
	}
	return filepath.Join(dir, "licita", "workspaces.json")
}

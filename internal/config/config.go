// Package config loads licita configuration from config.toml, an optional
// config.<env>.toml overlay, and LICITA_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/licita/pkg/database"
	"github.com/JaimeStill/licita/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvLicitaEnv             = "LICITA_ENV"
	EnvLicitaShutdownTimeout = "LICITA_SHUTDOWN_TIMEOUT"
	EnvLicitaVersion         = "LICITA_VERSION"
)

var databaseEnv = &database.Env{
	DSN:             "LICITA_DB_DSN",
	Host:            "LICITA_DB_HOST",
	Port:            "LICITA_DB_PORT",
	Name:            "LICITA_DB_NAME",
	User:            "LICITA_DB_USER",
	Password:        "LICITA_DB_PASSWORD",
	SSLMode:         "LICITA_DB_SSL_MODE",
	MaxOpenConns:    "LICITA_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "LICITA_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "LICITA_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "LICITA_DB_CONN_TIMEOUT",
	ApplicationName: "LICITA_DB_APPLICATION_NAME",
}

var storageEnv = &storage.Env{
	ContainerName:    "LICITA_STORAGE_CONTAINER_NAME",
	ConnectionString: "LICITA_STORAGE_CONNECTION_STRING",
	ServiceURL:       "LICITA_STORAGE_SERVICE_URL",
	MaxListSize:      "LICITA_STORAGE_MAX_LIST_SIZE",
}

// Config is the root configuration. The record store server uses every
// section except Desk; the CLI uses only Desk.
type Config struct {
	Server          ServerConfig    `toml:"server"`
	Database        database.Config `toml:"database"`
	Storage         storage.Config  `toml:"storage"`
	API             APIConfig       `toml:"api"`
	Desk            DeskConfig      `toml:"desk"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
	Version         string          `toml:"version"`
}

// Env returns the LICITA_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvLicitaEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads and finalizes the server configuration from the working
// directory. Without a config.toml, defaults and environment variables
// provide every value.
func Load() (*Config, error) {
	cfg, err := read(BaseConfigFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}
	return cfg, nil
}

// LoadDesk reads the file at path (config.toml when empty) and finalizes
// only the [desk] section.
func LoadDesk(path string) (*DeskConfig, error) {
	if path == "" {
		path = BaseConfigFile
	}
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Desk.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: desk: %w", err)
	}
	return &cfg.Desk, nil
}

// LoadDatabase reads config.toml and finalizes only the [database]
// section, for tools that need the connection and nothing else.
func LoadDatabase() (*database.Config, error) {
	cfg, err := read(BaseConfigFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Database.Finalize(databaseEnv); err != nil {
		return nil, fmt.Errorf("finalize config: database: %w", err)
	}
	return &cfg.Database, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Desk.Merge(&overlay.Desk)
}

// read loads base (when it exists) and merges the LICITA_ENV overlay
// found next to it.
func read(base string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(base); err == nil {
		loaded, err := load(base)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(base); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	return cfg, nil
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvLicitaShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvLicitaVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return &cfg, nil
}

func overlayPath(base string) string {
	env := os.Getenv(EnvLicitaEnv)
	if env == "" {
		return ""
	}
	path := filepath.Join(filepath.Dir(base), fmt.Sprintf(OverlayConfigPattern, env))
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

// Package config loads dosecalc settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when CONFIG_PATH is not set.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Dexcom struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		BaseURL  string `yaml:"base_url"`
	} `yaml:"dexcom"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Watch struct {
		Cron string `yaml:"cron"`
	} `yaml:"watch"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("DEXCOM_USERNAME"); v != "" {
		cfg.Dexcom.Username = v
	}
	if v := os.Getenv("DEXCOM_PASSWORD"); v != "" {
		cfg.Dexcom.Password = v
	}
	if v := os.Getenv("DEXCOM_BASE_URL"); v != "" {
		cfg.Dexcom.BaseURL = v
	}
	if v := os.Getenv("DOSECALC_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DOSECALC_WATCH_CRON"); v != "" {
		cfg.Watch.Cron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}

	// Defaults
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Watch.Cron == "" {
		cfg.Watch.Cron = "0 */5 * * * *"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/dosecalc.db"
	}

	return cfg, nil
}

// HasDexcom reports whether Dexcom Share credentials are configured.
func (c *Config) HasDexcom() bool {
	return c.Dexcom.Username != "" && c.Dexcom.Password != ""
}

// Validate checks that the settings are usable.
func (c *Config) Validate() error {
	if (c.Dexcom.Username == "") != (c.Dexcom.Password == "") {
		return fmt.Errorf("dexcom.username and dexcom.password must be set together")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if _, err := cron.NewParser(CronSpecParser).Parse(c.Watch.Cron); err != nil {
		return fmt.Errorf("watch.cron %q is invalid: %w", c.Watch.Cron, err)
	}
	return nil
}

// CronSpecParser accepts the six-field (with seconds) schedules used by
// watch.cron.
const CronSpecParser = cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor

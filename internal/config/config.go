// Package config provides YAML-based configuration loading for Caretaker.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override values from the YAML file.
const (
	EnvDBPassword     = "CARETAKER_DB_PASSWORD"
	EnvSlackWebhook   = "CARETAKER_SLACK_WEBHOOK"
	EnvDiscordWebhook = "CARETAKER_DISCORD_WEBHOOK"
)

var validCapabilities = map[string]bool{"worker": true, "supervisor": true, "admin": true}

// Config is the top-level Caretaker configuration, loaded from caretaker.yaml.
type Config struct {
	Site       string            `yaml:"site"`
	Database   DatabaseConfig    `yaml:"database"`
	Generation GenerationConfig  `yaml:"generation"`
	API        APIConfig         `yaml:"api"`
	Log        LogConfig         `yaml:"log"`
	Notify     NotifyConfig      `yaml:"notify"`
	Roles      []RoleConfig      `yaml:"roles"`
	TaskGroups []TaskGroupConfig `yaml:"task_groups"`
}

// DatabaseConfig selects the store. Path is only used by the sqlite driver.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Path     string `yaml:"path"`
}

// GenerationConfig controls the daily work-item generation run.
type GenerationConfig struct {
	DefaultTime string `yaml:"default_time"`
	Cron        string `yaml:"cron"`
	Timezone    string `yaml:"timezone"`
	RunOnStart  bool   `yaml:"run_on_start"`
}

// APIConfig holds HTTP listener settings.
type APIConfig struct {
	Port int `yaml:"port"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NotifyConfig holds chat webhook targets for generation summaries.
type NotifyConfig struct {
	SlackWebhook   string `yaml:"slack_webhook"`
	DiscordWebhook string `yaml:"discord_webhook"`
	Channel        string `yaml:"channel"`
}

// RoleConfig declares a role and the capabilities it grants.
type RoleConfig struct {
	Name         string   `yaml:"name"`
	Capabilities []string `yaml:"capabilities"`
}

// TaskGroupConfig declares a shift window.
type TaskGroupConfig struct {
	Name  string `yaml:"name"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Load reads a YAML config file from path and returns a validated Config.
// A .env file in the same directory, if present, is loaded first so its
// values are visible as environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	envFile := filepath.Join(filepath.Dir(path), ".env")
	if _, statErr := os.Stat(envFile); statErr == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overlays secrets from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDBPassword); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv(EnvSlackWebhook); v != "" {
		c.Notify.SlackWebhook = v
	}
	if v := os.Getenv(EnvDiscordWebhook); v != "" {
		c.Notify.DiscordWebhook = v
	}
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		switch c.Database.Driver {
		case "postgres":
			c.Database.Port = 5432
		default:
			c.Database.Port = 3306
		}
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Database.Name == "" && c.Site != "" {
		c.Database.Name = "caretaker_" + c.Site
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "caretaker.db"
	}
	if c.Generation.DefaultTime == "" {
		c.Generation.DefaultTime = "08:00"
	}
	if c.Generation.Cron == "" {
		c.Generation.Cron = "0 5 * * *"
	}
	if c.Generation.Timezone == "" {
		c.Generation.Timezone = "UTC"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Site == "" {
		errs = append(errs, "site is required")
	}
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q must be mysql, postgres or sqlite", c.Database.Driver))
	}
	if !isClock(c.Generation.DefaultTime) {
		errs = append(errs, fmt.Sprintf("generation.default_time %q must be HH:MM", c.Generation.DefaultTime))
	}
	if _, err := time.LoadLocation(c.Generation.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("generation.timezone %q is unknown", c.Generation.Timezone))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q must be text or json", c.Log.Format))
	}
	seen := make(map[string]bool)
	for i, r := range c.Roles {
		if r.Name == "" {
			errs = append(errs, fmt.Sprintf("roles[%d].name is required", i))
		}
		if seen[r.Name] {
			errs = append(errs, fmt.Sprintf("roles[%d].name %q is duplicated", i, r.Name))
		}
		seen[r.Name] = true
		for _, capName := range r.Capabilities {
			if !validCapabilities[capName] {
				errs = append(errs, fmt.Sprintf("roles[%d] capability %q must be worker, supervisor or admin", i, capName))
			}
		}
	}
	for i, g := range c.TaskGroups {
		if g.Name == "" {
			errs = append(errs, fmt.Sprintf("task_groups[%d].name is required", i))
		}
		if !isClock(g.Start) || !isClock(g.End) {
			errs = append(errs, fmt.Sprintf("task_groups[%d] start/end must be HH:MM", i))
			continue
		}
		// Zero-padded HH:MM compares correctly as a string.
		if g.Start >= g.End {
			errs = append(errs, fmt.Sprintf("task_groups[%d] start %s must be before end %s", i, g.Start, g.End))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Location returns the generation timezone. It is validated at load time.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Generation.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func isClock(s string) bool {
	if len(s) != 5 {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}

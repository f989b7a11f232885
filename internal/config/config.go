package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. CHRONOS_LISTEN.
const EnvPrefix = "CHRONOS"

const (
	defaultListen      = "127.0.0.1:8080"
	defaultTimezone    = "Local"
	defaultWeekStart   = "monday"
	defaultDigestCron  = "0 7 * * *"
	defaultRefreshCron = "*/15 * * * *"
	defaultLogLevel    = "info"
	defaultHorizonDays = 30
	defaultCacheDir    = "./var/ics-cache"
)

// ICSConfig describes a single ICS subscription imported into the timeline.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone in which "today" is evaluated, or "Local".
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is reported to month views: "monday" (default) or "sunday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// DigestCron is a 5-field cron schedule for the daily digest log line.
	DigestCron string `yaml:"digest" json:"digest"`

	// RefreshCron is a 5-field cron schedule for re-importing the ICS
	// subscriptions while the server runs.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// LogLevel is one of debug, info, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// SeedSample adds the demo items at startup.
	SeedSample bool `yaml:"seed_sample" json:"seed_sample"`

	// HorizonDays is how many days ahead recurring ICS events are expanded.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// CacheDir holds per-URL ICS caches.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// ICS is the list of subscriptions imported at startup.
	ICS []ICSConfig `yaml:"ics" json:"ics"`
}

// envOverrides mirrors the settable scalar fields. Unset variables leave
// the file value alone.
type envOverrides struct {
	Listen      string `envconfig:"LISTEN"`
	Timezone    string `envconfig:"TIMEZONE"`
	WeekStart   string `envconfig:"WEEK_START"`
	DigestCron  string `envconfig:"DIGEST"`
	RefreshCron string `envconfig:"REFRESH"`
	LogLevel    string `envconfig:"LOG_LEVEL"`
	SeedSample  *bool  `envconfig:"SEED_SAMPLE"`
	HorizonDays *int   `envconfig:"HORIZON_DAYS"`
	CacheDir    string `envconfig:"CACHE_DIR"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      defaultListen,
		Timezone:    defaultTimezone,
		WeekStart:   defaultWeekStart,
		DigestCron:  defaultDigestCron,
		RefreshCron: defaultRefreshCron,
		LogLevel:    defaultLogLevel,
		SeedSample:  true,
		HorizonDays: defaultHorizonDays,
		CacheDir:    defaultCacheDir,
		ICS:         []ICSConfig{},
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = defaultWeekStart
	}
	if c.DigestCron == "" {
		c.DigestCron = defaultDigestCron
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	switch c.LogLevel {
	case "debug", "info", "error":
	default:
		c.LogLevel = defaultLogLevel
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = defaultHorizonDays
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
}

// Location resolves Timezone. "Local" or empty means time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ApplyEnv overlays CHRONOS_* environment variables onto c.
func (c *Config) ApplyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("process environment: %w", err)
	}
	if env.Listen != "" {
		c.Listen = env.Listen
	}
	if env.Timezone != "" {
		c.Timezone = env.Timezone
	}
	if env.WeekStart != "" {
		c.WeekStart = env.WeekStart
	}
	if env.DigestCron != "" {
		c.DigestCron = env.DigestCron
	}
	if env.RefreshCron != "" {
		c.RefreshCron = env.RefreshCron
	}
	if env.LogLevel != "" {
		c.LogLevel = env.LogLevel
	}
	if env.SeedSample != nil {
		c.SeedSample = *env.SeedSample
	}
	if env.HorizonDays != nil {
		c.HorizonDays = *env.HorizonDays
	}
	if env.CacheDir != "" {
		c.CacheDir = env.CacheDir
	}
	c.Normalize()
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - If the file exists, it is unmarshaled and normalized.
//
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, cfg.ApplyEnv()
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".chronos-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

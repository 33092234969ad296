// Package config loads runtime configuration from the environment, with
// an optional YAML file overlay.
//
// Configuration is an explicit value passed into constructors; nothing
// in this repository reads ambient globals at run time. Validation fails
// fast, before any browser or store state is touched.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults mirror the rate-limiting posture this tool ships with:
// deliberately slow.
const (
	DefaultDailyLimit      = 500
	DefaultMinDelaySeconds = 5
	DefaultMaxDelaySeconds = 15
	DefaultStorePath       = "following.csv"
	DefaultCookiesPath     = "cookies.json"
	DefaultDevToolsURL     = "http://127.0.0.1:9222"
)

// Config holds everything a run needs.
type Config struct {
	// DailyLimit caps unfollows per calendar day. Must be positive.
	DailyLimit int `yaml:"daily_limit"`
	// MinDelaySeconds/MaxDelaySeconds bound the randomized inter-action
	// delay (closed interval, inclusive). 0 <= min <= max.
	MinDelaySeconds int `yaml:"min_delay_seconds"`
	MaxDelaySeconds int `yaml:"max_delay_seconds"`

	// Username/Password are Instagram credentials for automated login.
	// Both may be empty: login then falls back to manual entry in the
	// browser window.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// StorePath selects the record store backend by extension
	// (.db/.sqlite/.sqlite3 for SQLite, anything else CSV).
	StorePath string `yaml:"store_path"`
	// CookiesPath is where the browser session cookies persist.
	CookiesPath string `yaml:"cookies_path"`
	// DevToolsURL is the Chrome DevTools HTTP endpoint.
	DevToolsURL string `yaml:"devtools_url"`

	// Timezone names the fixed reference zone for the daily quota
	// (IANA name, e.g. "Europe/Berlin"). Empty means the local zone.
	Timezone string `yaml:"timezone"`
}

// Load builds a Config from defaults, an optional YAML file, then the
// environment - later sources win. file may be empty.
func Load(file string) (*Config, error) {
	cfg := &Config{
		DailyLimit:      DefaultDailyLimit,
		MinDelaySeconds: DefaultMinDelaySeconds,
		MaxDelaySeconds: DefaultMaxDelaySeconds,
		StorePath:       DefaultStorePath,
		CookiesPath:     DefaultCookiesPath,
		DevToolsURL:     DefaultDevToolsURL,
	}

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", file, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var err error
	if c.DailyLimit, err = intEnv("DAILY_UNFOLLOW_LIMIT", c.DailyLimit); err != nil {
		return err
	}
	if c.MinDelaySeconds, err = intEnv("MIN_DELAY_SECONDS", c.MinDelaySeconds); err != nil {
		return err
	}
	if c.MaxDelaySeconds, err = intEnv("MAX_DELAY_SECONDS", c.MaxDelaySeconds); err != nil {
		return err
	}
	c.Username = strEnv("INSTAGRAM_USERNAME", c.Username)
	c.Password = strEnv("INSTAGRAM_PASSWORD", c.Password)
	c.StorePath = strEnv("UNFOLLOWER_STORE", c.StorePath)
	c.CookiesPath = strEnv("UNFOLLOWER_COOKIES", c.CookiesPath)
	c.DevToolsURL = strEnv("UNFOLLOWER_CDP_URL", c.DevToolsURL)
	c.Timezone = strEnv("UNFOLLOWER_TIMEZONE", c.Timezone)
	return nil
}

// Validate checks the rate-limit fields and the timezone. Configuration
// errors are fatal and reported before any run starts.
func (c *Config) Validate() error {
	if c.DailyLimit <= 0 {
		return fmt.Errorf("daily limit must be positive, got %d", c.DailyLimit)
	}
	if c.MinDelaySeconds < 0 || c.MaxDelaySeconds < 0 {
		return fmt.Errorf("delays must be non-negative, got min=%d max=%d", c.MinDelaySeconds, c.MaxDelaySeconds)
	}
	if c.MinDelaySeconds > c.MaxDelaySeconds {
		return fmt.Errorf("min delay %d exceeds max delay %d", c.MinDelaySeconds, c.MaxDelaySeconds)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// MinDelay returns the lower delay bound as a duration.
func (c *Config) MinDelay() time.Duration {
	return time.Duration(c.MinDelaySeconds) * time.Second
}

// MaxDelay returns the upper delay bound as a duration.
func (c *Config) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelaySeconds) * time.Second
}

// Location resolves the reference time zone for the daily quota.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func strEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be an integer", key, v)
	}
	return n, nil
}

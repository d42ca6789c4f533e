// Package config loads the service configuration from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/threadsokc/workday-calendar/internal/calendar"
	"github.com/threadsokc/workday-calendar/internal/event"
)

// Environment variables that override file values.
const (
	EnvListen      = "WORKDAY_LISTEN"
	EnvTimezone    = "WORKDAY_TIMEZONE"
	EnvNonceSecret = "WORKDAY_NONCE_SECRET"
	EnvLogLevel    = "WORKDAY_LOG_LEVEL"
)

// CalendarConfig controls encoder output.
type CalendarConfig struct {
	Vendor    string `yaml:"vendor" json:"vendor"`
	Product   string `yaml:"product" json:"product"`
	UIDDomain string `yaml:"uid_domain" json:"uid_domain"`
}

// NonceConfig controls form token checks.
type NonceConfig struct {
	// Secret signs tokens. Prefer setting it through WORKDAY_NONCE_SECRET.
	Secret string `yaml:"secret" json:"-"`
	// Action is the name tokens are bound to.
	Action string `yaml:"action" json:"action"`
	// Field is the form field carrying the token.
	Field string `yaml:"field" json:"field"`
	// Lifetime is the maximum age of a token.
	Lifetime Duration `yaml:"lifetime" json:"lifetime"`
}

// WidgetConfig describes the next workday shown on the widget page.
type WidgetConfig struct {
	Title       string `yaml:"title" json:"title"`
	Date        string `yaml:"date" json:"date"`
	ExtraInfo   string `yaml:"extra_info" json:"extra_info"`
	Summary     string `yaml:"summary" json:"summary"`
	Address     string `yaml:"address" json:"address"`
	URI         string `yaml:"uri" json:"uri"`
	Description string `yaml:"description" json:"description"`
	// Start and End are wall-clock times ("14:00") in Timezone.
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`
	// Timezone is the IANA zone used to read wall-clock inputs.
	Timezone string `yaml:"timezone" json:"timezone"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	ReadTimeout  Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout" json:"write_timeout"`

	Calendar CalendarConfig `yaml:"calendar" json:"calendar"`
	Nonce    NonceConfig    `yaml:"nonce" json:"nonce"`
	Widget   WidgetConfig   `yaml:"widget" json:"widget"`
}

// Duration is a time.Duration that reads and writes as "10s" in YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       "127.0.0.1:8080",
		Timezone:     event.DefaultTimeZone,
		LogLevel:     "info",
		ReadTimeout:  Duration(10 * time.Second),
		WriteTimeout: Duration(10 * time.Second),
		Calendar: CalendarConfig{
			Vendor:    calendar.DefaultVendor,
			Product:   calendar.DefaultProduct,
			UIDDomain: calendar.DefaultUIDDomain,
		},
		Nonce: NonceConfig{
			Action:   "build_calendar",
			Field:    "threads-next-workday_nonce",
			Lifetime: Duration(24 * time.Hour),
		},
		Widget: WidgetConfig{
			Title:   "Next Workday",
			Date:    "2010-01-01",
			Summary: "Threads OKC Workday",
			Address: "2221 E. Memorial Rd., Edmond, OK 73013",
			URI:     "http://www.threadsokc.org/events.html",
			Start:   "14:00",
			End:     "17:00",
		},
	}
}

// Normalize fills in missing/zero values with defaults so partially-filled
// configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}

	if c.Calendar.Vendor == "" {
		c.Calendar.Vendor = def.Calendar.Vendor
	}
	if c.Calendar.Product == "" {
		c.Calendar.Product = def.Calendar.Product
	}
	if c.Calendar.UIDDomain == "" {
		c.Calendar.UIDDomain = def.Calendar.UIDDomain
	}

	if c.Nonce.Action == "" {
		c.Nonce.Action = def.Nonce.Action
	}
	if c.Nonce.Field == "" {
		c.Nonce.Field = def.Nonce.Field
	}
	if c.Nonce.Lifetime <= 0 {
		c.Nonce.Lifetime = def.Nonce.Lifetime
	}

	// Title, extra info, and description may legitimately be empty
	if c.Widget.Date == "" {
		c.Widget.Date = def.Widget.Date
	}
	if c.Widget.Summary == "" {
		c.Widget.Summary = def.Widget.Summary
	}
	if c.Widget.Address == "" {
		c.Widget.Address = def.Widget.Address
	}
	if c.Widget.URI == "" {
		c.Widget.URI = def.Widget.URI
	}
	if c.Widget.Start == "" {
		c.Widget.Start = def.Widget.Start
	}
	if c.Widget.End == "" {
		c.Widget.End = def.Widget.End
	}
}

// ApplyEnv overrides file values with the WORKDAY_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}
	if v := os.Getenv(EnvTimezone); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv(EnvNonceSecret); v != "" {
		c.Nonce.Secret = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	if c.Nonce.Secret == "" {
		return fmt.Errorf("nonce secret is empty (set %s)", EnvNonceSecret)
	}
	return nil
}

// Load reads configuration from path, applies defaults and environment overrides.
//
// If path is empty, defaults plus environment are used. If the file does not
// exist, a default config is written there with 0600 permissions.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := DefaultConfig()
		cfg.ApplyEnv()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return nil, fmt.Errorf("writing default config: %w", err)
			}
			cfg.ApplyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Normalize()
	cfg.ApplyEnv()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 permissions.
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

	tmp, err := os.CreateTemp(dir, ".workday-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
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

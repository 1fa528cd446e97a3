package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Source modes.
const (
	SourceModeRemote = "remote"
	SourceModeDir    = "dir"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "5m" or "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig `yaml:"app"`
	Source      SourceConfig      `yaml:"source"`
	Cache       CacheConfig       `yaml:"cache"`
	Locale      LocaleConfig      `yaml:"locale"`
	Collections CollectionsConfig `yaml:"collections"`
	Auth        AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Source.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Collections.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SourceConfig selects where collections come from.
//
// Mode controls the backing source:
//   - "remote" (default): the HTTP sheet endpoint; BaseURL must be set.
//   - "dir": local fixture files; Dir must point at a directory of
//     <table>.json files. Mutations are rejected in this mode.
type SourceConfig struct {
	Mode    string   `yaml:"mode"`
	BaseURL string   `yaml:"base_url"`
	Timeout Duration `yaml:"timeout"`
	Dir     string   `yaml:"dir"`
}

// Validate validates the source configuration.
func (c *SourceConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = SourceModeRemote
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(SourceModeRemote, SourceModeDir)),
	); err != nil {
		return err
	}
	if c.Mode == SourceModeRemote && c.BaseURL == "" {
		return fmt.Errorf("source: mode is %q but base_url is empty", SourceModeRemote)
	}
	if c.Mode == SourceModeDir && c.Dir == "" {
		return fmt.Errorf("source: mode is %q but dir is empty", SourceModeDir)
	}
	return nil
}

// CacheConfig holds the freshness window and the persistence tiers.
// SessionFile and SQLitePath may each be empty to disable that tier.
type CacheConfig struct {
	TTL         Duration `yaml:"ttl"`
	SessionFile string   `yaml:"session_file"`
	SQLitePath  string   `yaml:"sqlite_path"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	if c.TTL < 0 {
		return fmt.Errorf("cache: ttl must not be negative")
	}
	return nil
}

// LocaleConfig controls ambiguous-date interpretation.
type LocaleConfig struct {
	DayFirst         bool `yaml:"day_first"`
	TwoDigitYearBase int  `yaml:"two_digit_year_base"`
}

// CollectionsConfig maps the four logical collections to table names
// at the source.
type CollectionsConfig struct {
	Customers string `yaml:"customers"`
	Products  string `yaml:"products"`
	Orders    string `yaml:"orders"`
	Items     string `yaml:"items"`
}

// Validate validates the collections configuration.
func (c *CollectionsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Customers, validation.Required),
		validation.Field(&c.Products, validation.Required),
		validation.Field(&c.Orders, validation.Required),
		validation.Field(&c.Items, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Source: SourceConfig{
			Mode:    SourceModeRemote,
			Timeout: Duration(15 * time.Second),
		},
		Cache: CacheConfig{
			TTL:        Duration(5 * time.Minute),
			SQLitePath: "./tokodata.db",
		},
		Locale: LocaleConfig{
			DayFirst:         true,
			TwoDigitYearBase: 2000,
		},
		Collections: CollectionsConfig{
			Customers: "pelanggan",
			Products:  "barang",
			Orders:    "penjualan",
			Items:     "item_penjualan",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}

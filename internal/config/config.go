package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/mcoot/callclock/internal/services/frame"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "PUTP_"

// Config is the server configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Clock    ClockConfig    `yaml:"clock"`
	Captions CaptionsConfig `yaml:"captions"`
	Storage  StorageConfig  `yaml:"storage"`
	Admin    AdminConfig    `yaml:"admin"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	ReadTimeout     string `yaml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout"` // must outlive SSE keepalives
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	StaticDir       string `yaml:"static_dir"`
	BaseURL         string `yaml:"base_url"` // absolute URL used in OpenGraph metadata
}

// ClockConfig configures the clock engine of each mounted view
type ClockConfig struct {
	FrameRate  int    `yaml:"frame_rate"`
	FixedTime  string `yaml:"fixed_time"` // "HH:MM" pins every view, empty for live time
	Period     string `yaml:"period"`
	Transition string `yaml:"transition"`
	Timezone   string `yaml:"timezone"` // IANA name for server-side rendering, empty for local
}

// CaptionsConfig maps pages to caption files
type CaptionsConfig struct {
	Files map[string]string `yaml:"files"`
	Watch bool              `yaml:"watch"` // reload files when they change
}

// StorageConfig selects and tunes the storage backend
type StorageConfig struct {
	Type         string `yaml:"type"`
	RedisURL     string `yaml:"redis_url"`
	PoolSize     int    `yaml:"pool_size"`
	MinIdleConns int    `yaml:"min_idle_conns"`
	KeyPrefix    string `yaml:"key_prefix"`
	CaptionTTL   string `yaml:"caption_ttl"`
}

// AdminConfig guards caption updates through the API
type AdminConfig struct {
	TokenHash string `yaml:"token_hash"` // bcrypt hash of the admin bearer token
}

// LogConfig configures logging
type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the configuration used when no file is present
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     "15s",
			WriteTimeout:    "0s",
			ShutdownTimeout: "30s",
			StaticDir:       "internal/web/static",
			BaseURL:         "http://localhost:8080",
		},
		Clock: ClockConfig{
			FrameRate:  frame.DefaultRate,
			Period:     "5s",
			Transition: "200ms",
		},
		Captions: CaptionsConfig{
			Files: map[string]string{},
		},
		Storage: StorageConfig{
			Type:         StorageTypeMemory,
			RedisURL:     "redis://localhost:6379",
			PoolSize:     10,
			MinIdleConns: 2,
			KeyPrefix:    "putp",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a YAML file on fs and applies environment overrides.
// A missing file yields the defaults.
func Load(fs afero.Fs, path string) (*Config, error) {
	return load(fs, path, os.LookupEnv)
}

func load(fs afero.Fs, path string, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := afero.ReadFile(fs, path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// Defaults only
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(lookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies PUTP_* environment variables
func (c *Config) applyEnvOverrides(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
		return nil
	}

	str("HOST", &c.Server.Host)
	if err := num("PORT", &c.Server.Port); err != nil {
		return err
	}
	str("STATIC_DIR", &c.Server.StaticDir)
	str("BASE_URL", &c.Server.BaseURL)

	if err := num("FRAME_RATE", &c.Clock.FrameRate); err != nil {
		return err
	}
	str("FIXED_TIME", &c.Clock.FixedTime)
	str("TIMEZONE", &c.Clock.Timezone)

	str("STORAGE_TYPE", &c.Storage.Type)
	str("REDIS_URL", &c.Storage.RedisURL)
	str("REDIS_KEY_PREFIX", &c.Storage.KeyPrefix)

	str("ADMIN_TOKEN_HASH", &c.Admin.TokenHash)
	str("LOG_LEVEL", &c.Log.Level)

	if v, ok := lookup(EnvPrefix + "CAPTIONS_FILE"); ok && v != "" {
		if c.Captions.Files == nil {
			c.Captions.Files = map[string]string{}
		}
		c.Captions.Files["clock"] = v
	}
	return nil
}

// Validate checks values that can't be defaulted
func (c *Config) Validate() error {
	if !slices.Contains([]string{StorageTypeMemory, StorageTypeRedis}, c.Storage.Type) {
		return fmt.Errorf("invalid storage type %q: must be %q or %q", c.Storage.Type, StorageTypeMemory, StorageTypeRedis)
	}
	if c.Storage.Type == StorageTypeRedis && c.Storage.RedisURL == "" {
		return errors.New("redis_url required when storage type is redis")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if _, err := frame.ParseFixedTime(c.Clock.FixedTime); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if err := validDuration("clock.period", c.Clock.Period); err != nil {
		return err
	}
	if err := validDuration("clock.transition", c.Clock.Transition); err != nil {
		return err
	}
	if period, transition := c.Period(), c.Transition(); 2*transition >= period {
		return fmt.Errorf("clock.transition %s must be under half of clock.period %s", transition, period)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// validDuration accepts an unset value or a positive duration
func validDuration(key, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d <= 0 {
		return fmt.Errorf("invalid %s %q: must be positive", key, v)
	}
	return nil
}

// FrameInterval returns the time between frames of a mounted view
func (c *Config) FrameInterval() time.Duration {
	return frame.IntervalForRate(c.Clock.FrameRate)
}

// FixedTime returns the fixed-time override, or nil for live time
func (c *Config) FixedTime() *frame.FixedTime {
	ft, err := frame.ParseFixedTime(c.Clock.FixedTime)
	if err != nil {
		return nil
	}
	return ft
}

// Period returns the caption rotation period
func (c *Config) Period() time.Duration {
	return parseDuration(c.Clock.Period, 5*time.Second)
}

// Transition returns the caption slide duration
func (c *Config) Transition() time.Duration {
	return parseDuration(c.Clock.Transition, 200*time.Millisecond)
}

// Location returns the timezone for server-side time sampling.
// Nil means the clock's own zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Clock.Timezone == "" {
		return nil, nil
	}
	loc, err := time.LoadLocation(c.Clock.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Clock.Timezone, err)
	}
	return loc, nil
}

// CaptionTTL returns how long stored caption sets live; zero means forever
func (c *Config) CaptionTTL() time.Duration {
	return parseDuration(c.Storage.CaptionTTL, 0)
}

// ReadTimeout returns the server read timeout
func (c *Config) ReadTimeout() time.Duration {
	return parseDuration(c.Server.ReadTimeout, 15*time.Second)
}

// WriteTimeout returns the server write timeout; zero disables it for SSE
func (c *Config) WriteTimeout() time.Duration {
	return parseDuration(c.Server.WriteTimeout, 0)
}

// ShutdownTimeout returns how long to wait for connections to drain
func (c *Config) ShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 30*time.Second)
}

// LogLevel parses the configured log level
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.Log.Level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	return level, nil
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}

package redis

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces keys when Config.KeyPrefix is empty
const DefaultKeyPrefix = "putp"

// Config holds Redis connection and behavior settings
type Config struct {
	URL          string // redis://[:password@]host:port[/db]
	PoolSize     int
	MinIdleConns int

	// KeyPrefix lets several deployments share one Redis database
	KeyPrefix string

	// CaptionTTL expires caption sets; zero keeps them forever
	CaptionTTL time.Duration

	// PingTimeout bounds the connection check in New
	PingTimeout time.Duration
}

// DefaultConfig returns the settings for a local Redis
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		KeyPrefix:    DefaultKeyPrefix,
		PingTimeout:  5 * time.Second,
	}
}

// options parses URL and applies the pool settings
func (c Config) options() (*redis.Options, error) {
	if c.URL == "" {
		return nil, errors.New("redis url is empty")
	}
	opts, err := redis.ParseURL(c.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if c.PoolSize > 0 {
		opts.PoolSize = c.PoolSize
	}
	if c.MinIdleConns > 0 {
		opts.MinIdleConns = c.MinIdleConns
	}
	return opts, nil
}

func (c Config) prefix() string {
	p := strings.TrimSuffix(c.KeyPrefix, ":")
	if p == "" {
		return DefaultKeyPrefix
	}
	return p
}

func (c Config) pingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return c.PingTimeout
}

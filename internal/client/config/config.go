package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/ordersync/internal/client/photos"
)

var ErrInvalidConfig = errors.New("invalid config")

const (
	ProbeHTTP = "http"
	ProbeGRPC = "grpc"
)

// Photos selects where product pictures are downloaded from and how hard
// the source may be hit.
type Photos struct {
	Source      string
	Concurrency int
	PerSecond   float64
	Burst       int
	S3          photos.S3Settings
	Supabase    photos.SupabaseSettings
}

// Config holds runtime settings for the ordersync client.
type Config struct {
	ServerURL           string
	Token               string
	Probe               string
	HealthAddr          string
	HealthService       string
	OnlineCheckInterval time.Duration
	RequestTimeout      time.Duration
	DBPath              string
	LogLevel            string
	Offline             bool
	Photos              Photos
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8000"
	c.Probe = ProbeHTTP
	c.HealthAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 10 * time.Second
	c.DBPath = "ordersync.db"
	c.LogLevel = "info"
	c.Photos = Photos{Source: photos.KindAPI, Concurrency: 4}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("%w: server url is empty", ErrInvalidConfig)
	}
	switch c.Probe {
	case ProbeHTTP:
	case ProbeGRPC:
		if c.HealthAddr == "" {
			return fmt.Errorf("%w: grpc probe needs health_addr", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown probe %q", ErrInvalidConfig, c.Probe)
	}
	if c.OnlineCheckInterval <= 0 {
		return fmt.Errorf("%w: online check interval must be positive", ErrInvalidConfig)
	}

	switch c.Photos.Source {
	case photos.KindAPI:
	case photos.KindS3:
		if c.Photos.S3.Bucket == "" {
			return fmt.Errorf("%w: s3 photo source needs a bucket", ErrInvalidConfig)
		}
	case photos.KindSupabase:
		s := c.Photos.Supabase
		if s.URL == "" || s.Key == "" || s.Bucket == "" {
			return fmt.Errorf("%w: supabase photo source needs url, key and bucket", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown photo source %q", ErrInvalidConfig, c.Photos.Source)
	}
	return nil
}

// Load constructs a Config, applies defaults, then overlays the environment,
// the config file named in args and finally the flags in args. Later
// sources take precedence over earlier ones.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseEnv(cfg, ".env"); err != nil {
		return nil, err
	}
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

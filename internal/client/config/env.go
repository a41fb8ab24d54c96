package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "ORDERSYNC_"

// parseEnv loads dotenv (when the file exists) and overlays Config with
// ORDERSYNC_* variables. Variables already set in the process win over the
// file.
func parseEnv(cfg *Config, dotenv string) error {
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", dotenv, err)
		}
	}

	strs := map[string]*string{
		"SERVER_URL":      &cfg.ServerURL,
		"TOKEN":           &cfg.Token,
		"PROBE":           &cfg.Probe,
		"HEALTH_ADDR":     &cfg.HealthAddr,
		"HEALTH_SERVICE":  &cfg.HealthService,
		"DB_PATH":         &cfg.DBPath,
		"LOG_LEVEL":       &cfg.LogLevel,
		"PHOTO_SOURCE":    &cfg.Photos.Source,
		"S3_BUCKET":       &cfg.Photos.S3.Bucket,
		"S3_REGION":       &cfg.Photos.S3.Region,
		"S3_ENDPOINT":     &cfg.Photos.S3.Endpoint,
		"S3_ACCESS_KEY":   &cfg.Photos.S3.AccessKey,
		"S3_SECRET_KEY":   &cfg.Photos.S3.SecretKey,
		"S3_PREFIX":       &cfg.Photos.S3.Prefix,
		"SUPABASE_URL":    &cfg.Photos.Supabase.URL,
		"SUPABASE_KEY":    &cfg.Photos.Supabase.Key,
		"SUPABASE_BUCKET": &cfg.Photos.Supabase.Bucket,
		"SUPABASE_PREFIX": &cfg.Photos.Supabase.Prefix,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"CHECK_INTERVAL":  &cfg.OnlineCheckInterval,
		"REQUEST_TIMEOUT": &cfg.RequestTimeout,
	}
	for name, dst := range durations {
		v, ok := os.LookupEnv(envPrefix + name)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q", ErrInvalidConfig, envPrefix, name, v)
		}
		*dst = d
	}

	if v, ok := os.LookupEnv(envPrefix + "OFFLINE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %sOFFLINE=%q", ErrInvalidConfig, envPrefix, v)
		}
		cfg.Offline = b
	}
	if v, ok := os.LookupEnv(envPrefix + "PHOTO_CONCURRENCY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sPHOTO_CONCURRENCY=%q", ErrInvalidConfig, envPrefix, v)
		}
		cfg.Photos.Concurrency = n
	}
	return nil
}

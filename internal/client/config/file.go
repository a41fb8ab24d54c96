package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/ordersync/internal/flagx"
	"github.com/dmitrijs2005/ordersync/internal/timex"
)

// FileConfig is a DTO used exclusively for file unmarshalling. Intervals use
// timex.Duration; after parsing, set values are copied into Config.
type FileConfig struct {
	ServerURL           string         `json:"server_url" yaml:"server_url"`
	Token               string         `json:"token" yaml:"token"`
	Probe               string         `json:"probe" yaml:"probe"`
	HealthAddr          string         `json:"health_addr" yaml:"health_addr"`
	HealthService       string         `json:"health_service" yaml:"health_service"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval" yaml:"online_check_interval"`
	RequestTimeout      timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	DBPath              string         `json:"db_path" yaml:"db_path"`
	LogLevel            string         `json:"log_level" yaml:"log_level"`
	Offline             *bool          `json:"offline" yaml:"offline"`
	Photos              FilePhotos     `json:"photos" yaml:"photos"`
}

type FilePhotos struct {
	Source      string  `json:"source" yaml:"source"`
	Concurrency int     `json:"concurrency" yaml:"concurrency"`
	PerSecond   float64 `json:"per_second" yaml:"per_second"`
	Burst       int     `json:"burst" yaml:"burst"`
	S3          struct {
		Bucket    string `json:"bucket" yaml:"bucket"`
		Region    string `json:"region" yaml:"region"`
		Endpoint  string `json:"endpoint" yaml:"endpoint"`
		AccessKey string `json:"access_key" yaml:"access_key"`
		SecretKey string `json:"secret_key" yaml:"secret_key"`
		Prefix    string `json:"prefix" yaml:"prefix"`
	} `json:"s3" yaml:"s3"`
	Supabase struct {
		URL    string `json:"url" yaml:"url"`
		Key    string `json:"key" yaml:"key"`
		Bucket string `json:"bucket" yaml:"bucket"`
		Prefix string `json:"prefix" yaml:"prefix"`
	} `json:"supabase" yaml:"supabase"`
}

// parseFile overlays Config with the file named by -c or --config in args.
// Files ending in .yaml or .yml are YAML, anything else JSON. Fields absent
// from the file keep their current values.
func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc *FileConfig) apply(cfg *Config) {
	setString(&cfg.ServerURL, fc.ServerURL)
	setString(&cfg.Token, fc.Token)
	setString(&cfg.Probe, fc.Probe)
	setString(&cfg.HealthAddr, fc.HealthAddr)
	setString(&cfg.HealthService, fc.HealthService)
	setString(&cfg.DBPath, fc.DBPath)
	setString(&cfg.LogLevel, fc.LogLevel)
	if fc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = fc.OnlineCheckInterval.Duration
	}
	if fc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.Offline != nil {
		cfg.Offline = *fc.Offline
	}

	p := &cfg.Photos
	setString(&p.Source, fc.Photos.Source)
	if fc.Photos.Concurrency != 0 {
		p.Concurrency = fc.Photos.Concurrency
	}
	if fc.Photos.PerSecond != 0 {
		p.PerSecond = fc.Photos.PerSecond
	}
	if fc.Photos.Burst != 0 {
		p.Burst = fc.Photos.Burst
	}
	s3 := fc.Photos.S3
	setString(&p.S3.Bucket, s3.Bucket)
	setString(&p.S3.Region, s3.Region)
	setString(&p.S3.Endpoint, s3.Endpoint)
	setString(&p.S3.AccessKey, s3.AccessKey)
	setString(&p.S3.SecretKey, s3.SecretKey)
	setString(&p.S3.Prefix, s3.Prefix)
	sb := fc.Photos.Supabase
	setString(&p.Supabase.URL, sb.URL)
	setString(&p.Supabase.Key, sb.Key)
	setString(&p.Supabase.Bucket, sb.Bucket)
	setString(&p.Supabase.Prefix, sb.Prefix)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

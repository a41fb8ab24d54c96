package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/ordersync/internal/flagx"
)

// Flags lists the command-line flags owned by the config loader. The CLI
// registers the same names so its own parser accepts them.
var Flags = []string{
	"-a", "--server",
	"-i", "--interval",
	"-d", "--db",
	"-l", "--log-level",
	"--offline",
}

// parseFlags populates selected Config fields from command-line flags.
// args are filtered with flagx.FilterArgs so flags owned by other
// components do not interfere.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, Flags)

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	for _, name := range []string{"a", "server"} {
		fs.StringVar(&cfg.ServerURL, name, cfg.ServerURL, "base URL of the REST API")
	}
	interval := int(cfg.OnlineCheckInterval.Seconds())
	for _, name := range []string{"i", "interval"} {
		fs.IntVar(&interval, name, interval, "online check interval (in seconds)")
	}
	for _, name := range []string{"d", "db"} {
		fs.StringVar(&cfg.DBPath, name, cfg.DBPath, "path to the local cache")
	}
	for _, name := range []string{"l", "log-level"} {
		fs.StringVar(&cfg.LogLevel, name, cfg.LogLevel, "log level")
	}
	fs.BoolVar(&cfg.Offline, "offline", cfg.Offline, "never contact the server")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	intervalSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "i" || f.Name == "interval" {
			intervalSet = true
		}
	})
	if intervalSet {
		cfg.OnlineCheckInterval = time.Duration(interval) * time.Second
	}
	return nil
}

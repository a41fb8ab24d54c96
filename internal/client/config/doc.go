// Package config loads runtime configuration for the ordersync client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment variables prefixed ORDERSYNC_, with an optional .env file
//     loaded first (see parseEnv).
//  3. Optional JSON or YAML file selected via -c or --config (see parseFile).
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a, --server string     base URL of the REST API
//	-i, --interval int      online status check interval (seconds)
//	-d, --db string         path to the SQLite cache
//	-l, --log-level string  debug, info, warn or error
//	--offline               never contact the server
//
// # File schema
//
// Durations use timex.Duration, so values can be strings like "3s" or
// integer nanoseconds:
//
//	server_url: https://orders.example.com/api
//	probe: grpc
//	health_addr: orders.example.com:50051
//	online_check_interval: 5s
//	photos:
//	  source: s3
//	  s3:
//	    bucket: product-photos
//	    endpoint: http://127.0.0.1:9000
package config

// Package config loads runtime configuration for the Briefly CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment variables BRIEFLY_*, optionally seeded from a .env file
//     in the working directory (see parseEnv).
//  3. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the Briefly API
//	-t int      request timeout (seconds)
//	-d string   path of the local session database
//	-o string   download directory
//	-l string   log level (debug, info, warn, error)
//	-ephemeral  keep the session in memory only
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "30s" or
// integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8000",
//	  "request_timeout": "30s",
//	  "database_path": "briefly.db",
//	  "download_dir": "download",
//	  "log_level": "info",
//	  "session_secret": "",
//	  "s3": {"bucket": "exports", "region": "us-east-1", "endpoint": "http://127.0.0.1:9000",
//	         "access_key": "minio", "secret_key": "minio123", "prefix": "briefly/", "link_ttl": "15m"}
//	}
package config

// Package config loads runtime configuration for the todo CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-storage string        storage driver: sqlite, postgres, s3 or memory
//	-data-dir string       directory holding the sqlite database
//	-dsn string            database DSN (postgres, or an explicit sqlite path)
//	-storage-key string    hex AES key; enables at-rest encryption
//	-session-secret string HMAC secret for local session tokens
//	-reopen-parent         reopen a completed task when one of its subtasks is unchecked
//	-callback-addr string  loopback address for OAuth callbacks and /metrics
//	-log-level string      debug, info, warn or error
//
// # JSON schema
//
// Durations use timex.Duration, so "3s" and integer nanoseconds are both accepted:
//
//	{
//	  "storage_driver": "sqlite",
//	  "data_dir": "data",
//	  "shutdown_timeout": "3s",
//	  "google_client_id": "...",
//	  "s3_bucket": "todos"
//	}
//
// Environment variables are not read; use the JSON file or flags.
package config

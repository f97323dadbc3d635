package config

import (
	"os"
	"time"
)

// Storage drivers understood by storage.Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverS3       = "s3"
	DriverMemory   = "memory"
)

// Config holds runtime settings for the todo CLI.
type Config struct {
	StorageDriver string
	DataDir       string
	DatabaseDSN   string
	StorageKey    string

	SessionSecret string

	ReopenParentOnSubtaskUncheck bool

	GoogleClientID     string
	GoogleClientSecret string
	CallbackAddr       string

	ShutdownTimeout time.Duration
	LogLevel        string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Prefix    string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.StorageDriver = DriverSQLite
	c.DataDir = "data"
	c.SessionSecret = "todo-local-session"
	c.CallbackAddr = "127.0.0.1:8765"
	c.ShutdownTimeout = 3 * time.Second
	c.LogLevel = "info"
	c.S3Region = "us-east-1"
	c.S3Prefix = "todo/"
}

// GoogleEnabled reports whether external sign-in is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// Load builds a Config from args (without the program name) by applying
// defaults, then the JSON file, then flags.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is Load over os.Args.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/IsnuMdr/todo-app/internal/flagx"
	"github.com/IsnuMdr/todo-app/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Pointer fields let an
// absent key keep the value from the previous stage.
type JsonConfig struct {
	StorageDriver string `json:"storage_driver"`
	DataDir       string `json:"data_dir"`
	DatabaseDSN   string `json:"database_dsn"`
	StorageKey    string `json:"storage_key"`

	SessionSecret string `json:"session_secret"`

	ReopenParentOnSubtaskUncheck *bool `json:"reopen_parent_on_subtask_uncheck"`

	GoogleClientID     string `json:"google_client_id"`
	GoogleClientSecret string `json:"google_client_secret"`
	CallbackAddr       string `json:"callback_addr"`

	ShutdownTimeout *timex.Duration `json:"shutdown_timeout"`
	LogLevel        string          `json:"log_level"`

	S3Bucket    string `json:"s3_bucket"`
	S3Region    string `json:"s3_region"`
	S3Endpoint  string `json:"s3_endpoint"`
	S3AccessKey string `json:"s3_access_key"`
	S3SecretKey string `json:"s3_secret_key"`
	S3Prefix    string `json:"s3_prefix"`
}

// parseJson overlays cfg with the file named by -c / -config in args.
// Empty strings in the file leave the current value alone.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	setString(&cfg.StorageDriver, jc.StorageDriver)
	setString(&cfg.DataDir, jc.DataDir)
	setString(&cfg.DatabaseDSN, jc.DatabaseDSN)
	setString(&cfg.StorageKey, jc.StorageKey)
	setString(&cfg.SessionSecret, jc.SessionSecret)
	setString(&cfg.GoogleClientID, jc.GoogleClientID)
	setString(&cfg.GoogleClientSecret, jc.GoogleClientSecret)
	setString(&cfg.CallbackAddr, jc.CallbackAddr)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.S3Bucket, jc.S3Bucket)
	setString(&cfg.S3Region, jc.S3Region)
	setString(&cfg.S3Endpoint, jc.S3Endpoint)
	setString(&cfg.S3AccessKey, jc.S3AccessKey)
	setString(&cfg.S3SecretKey, jc.S3SecretKey)
	setString(&cfg.S3Prefix, jc.S3Prefix)

	if jc.ReopenParentOnSubtaskUncheck != nil {
		cfg.ReopenParentOnSubtaskUncheck = *jc.ReopenParentOnSubtaskUncheck
	}
	if jc.ShutdownTimeout != nil {
		cfg.ShutdownTimeout = jc.ShutdownTimeout.Duration
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/IsnuMdr/todo-app/internal/flagx"
)

var knownFlags = []string{
	"-storage", "-data-dir", "-dsn", "-storage-key", "-session-secret",
	"-reopen-parent", "-callback-addr", "-log-level",
}

// parseFlags applies the command-line flags it knows about to cfg. Other
// arguments, including -c / -config, are filtered out first.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("todo", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.StorageDriver, "storage", cfg.StorageDriver, "storage driver: sqlite, postgres, s3 or memory")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for the sqlite database")
	fs.StringVar(&cfg.DatabaseDSN, "dsn", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.StorageKey, "storage-key", cfg.StorageKey, "hex AES key for at-rest encryption")
	fs.StringVar(&cfg.SessionSecret, "session-secret", cfg.SessionSecret, "HMAC secret for session tokens")
	fs.BoolVar(&cfg.ReopenParentOnSubtaskUncheck, "reopen-parent", cfg.ReopenParentOnSubtaskUncheck, "reopen parent when a subtask is unchecked")
	fs.StringVar(&cfg.CallbackAddr, "callback-addr", cfg.CallbackAddr, "loopback address for OAuth callback and metrics")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/IsnuMdr/todo-app/internal/dbx"
	"github.com/IsnuMdr/todo-app/internal/storage/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// Dialect captures what differs between the SQL backends.
type Dialect struct {
	Name        string // database/sql driver name
	gooseName   string
	migrations  string
	getQuery    string
	putQuery    string
	deleteQuery string
}

var (
	DialectSQLite = Dialect{
		Name:        "sqlite",
		gooseName:   "sqlite3",
		migrations:  "sqlite",
		getQuery:    `SELECT value FROM kv WHERE key = ?`,
		putQuery:    `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP) ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		deleteQuery: `DELETE FROM kv WHERE key = ?`,
	}
	DialectPostgres = Dialect{
		Name:        "pgx",
		gooseName:   "postgres",
		migrations:  "postgres",
		getQuery:    `SELECT value FROM kv WHERE key = $1`,
		putQuery:    `INSERT INTO kv (key, value, updated_at) VALUES ($1, $2, now()) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		deleteQuery: `DELETE FROM kv WHERE key = $1`,
	}
)

const clearQuery = `DELETE FROM kv`

// SQLStore keeps values in the kv table of a SQLite or PostgreSQL database.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLStore wraps an already migrated database.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// goose keeps its FS and dialect in package globals.
var migrateMu sync.Mutex

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema for dialect.
func RunMigrations(ctx context.Context, db *sql.DB, dialect Dialect) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect.gooseName); err != nil {
		return fmt.Errorf("goose dialect %s: %w", dialect.gooseName, err)
	}
	if err := gooseUpContext(ctx, db, dialect.migrations); err != nil {
		return fmt.Errorf("migrate %s: %w", dialect.migrations, err)
	}
	return nil
}

// OpenSQLStore opens dsn with dialect's driver, pings it and runs the
// migrations.
func OpenSQLStore(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	db, err := sql.Open(dialect.Name, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Name, err)
	}
	if dialect.Name == DialectSQLite.Name {
		// one connection keeps ":memory:" databases and write locking sane
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect.Name, err)
	}
	if err := RunMigrations(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewSQLStore(db, dialect), nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, s.dialect.getQuery, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *SQLStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, s.dialect.putQuery, key, value)
	return err
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, s.dialect.deleteQuery, key)
	return err
}

func (s *SQLStore) Clear(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, clearQuery)
		return err
	})
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

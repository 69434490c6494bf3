package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver
	_ "modernc.org/sqlite"             // register pure-Go sqlite driver

	"roast-backend/internal/shared/telemetry"
)

// Dialect names the SQL flavour behind a *sql.DB.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ErrNoDatabase is returned by Open when neither a URL nor a file is set.
var ErrNoDatabase = errors.New("DATABASE_URL or SQLITE_PATH is required")

// Target selects the backing database. DatabaseURL wins over SQLitePath.
type Target struct {
	DatabaseURL string
	SQLitePath  string
	Profile     Profile
}

// Dialect reports which driver Open will use for t, or "" when t is empty.
func (t Target) Dialect() Dialect {
	switch {
	case strings.TrimSpace(t.DatabaseURL) != "":
		return DialectPostgres
	case strings.TrimSpace(t.SQLitePath) != "":
		return DialectSQLite
	}
	return ""
}

var (
	openDB         = sql.Open
	singletonMu    sync.Mutex
	singletonCond  = sync.NewCond(&singletonMu)
	singletonDB    *sql.DB
	singletonInFly bool
)

// IsLambdaRuntime reports whether the current process is running in AWS Lambda.
func IsLambdaRuntime() bool {
	return strings.TrimSpace(os.Getenv("AWS_LAMBDA_FUNCTION_NAME")) != ""
}

// Open connects to the database named by t. Postgres pools are sized by the
// profile and shared process-wide under ProfileLambda. SQLite files are
// migrated on open since nothing else owns their schema.
func Open(ctx context.Context, t Target) (*sql.DB, Dialect, error) {
	dialect := t.Dialect()
	switch dialect {
	case DialectPostgres:
		opts := PoolOptions(t.Profile)
		var (
			sqlDB *sql.DB
			err   error
		)
		if t.Profile == ProfileLambda {
			sqlDB, err = GetSingleton(ctx, t.DatabaseURL, opts)
		} else {
			sqlDB, err = Connect(ctx, t.DatabaseURL, opts)
		}
		return sqlDB, dialect, err
	case DialectSQLite:
		sqlDB, err := OpenSQLite(ctx, t.SQLitePath)
		if err != nil {
			return nil, dialect, err
		}
		if err := RunMigrations(ctx, sqlDB, DialectSQLite); err != nil {
			sqlDB.Close()
			return nil, dialect, fmt.Errorf("sqlite migrations: %w", err)
		}
		return sqlDB, dialect, nil
	}
	return nil, "", ErrNoDatabase
}

// Connect opens a pgx-backed *sql.DB and verifies connectivity.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := openDB("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	applyOptions(db, opts)

	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logPoolStats(db, "db.init")
	return db, nil
}

// OpenSQLite opens a single-writer SQLite database file, creating parent
// directories as needed.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("SQLITE_PATH is empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("sqlite mkdir: %w", err)
		}
	}
	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	logPoolStats(db, "db.sqlite_init")
	return db, nil
}

// GetSingleton returns a process-wide *sql.DB. A failed initialization is
// retried on the next call.
func GetSingleton(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	singletonMu.Lock()
	for singletonInFly && singletonDB == nil {
		singletonCond.Wait()
	}
	if singletonDB != nil {
		singletonMu.Unlock()
		telemetry.Debug("db.singleton_reuse", nil)
		return singletonDB, nil
	}
	singletonInFly = true
	singletonMu.Unlock()

	db, err := Connect(ctx, databaseURL, opts)

	singletonMu.Lock()
	if err == nil {
		singletonDB = db
	}
	singletonInFly = false
	singletonCond.Broadcast()
	singletonMu.Unlock()

	if err != nil {
		return nil, err
	}
	telemetry.Info("db.singleton_init", nil)
	return db, nil
}

func logPoolStats(db *sql.DB, label string) {
	stats := db.Stats()
	telemetry.Info(label, map[string]any{
		"open":     stats.OpenConnections,
		"in_use":   stats.InUse,
		"idle":     stats.Idle,
		"max_open": stats.MaxOpenConnections,
	})
}

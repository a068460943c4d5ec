// Package sqldb runs list queries on database/sql drivers through sqlx.
// SQLite (modernc), MySQL and PostgreSQL (lib/pq) are supported.
package sqldb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rezkam/parish/internal/infrastructure/persistence/migrations"
	"github.com/rezkam/parish/internal/infrastructure/persistence/sqlbuilder"
	_ "modernc.org/sqlite" // SQLite driver
)

// Supported values of Config.Driver. They double as database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

func init() {
	// modernc registers as "sqlite", which sqlx does not know.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Config holds database/sql connection configuration.
type Config struct {
	Driver          string        // sqlite, mysql or postgres
	DSN             string        // driver-specific connection string
	MaxOpenConns    int           // Maximum open connections (default: 25)
	MaxIdleConns    int           // Maximum idle connections (default: 5)
	ConnMaxLifetime time.Duration // Connection max lifetime (default: 5min)
	ConnMaxIdleTime time.Duration // Connection max idle time (default: 1min)
	AutoMigrate     bool          // Apply embedded migrations after connecting
}

// DB is a database/sql backed list-query store.
type DB struct {
	db      *sqlx.DB
	dialect sqlbuilder.Dialect
}

// Open connects to the configured database, verifies the connection and
// optionally applies migrations.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	dialect, err := sqlbuilder.DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	connMaxLifetime := cfg.ConnMaxLifetime
	if connMaxLifetime <= 0 {
		connMaxLifetime = 5 * time.Minute
	}
	connMaxIdleTime := cfg.ConnMaxIdleTime
	if connMaxIdleTime <= 0 {
		connMaxIdleTime = 1 * time.Minute
	}

	// A SQLite file tolerates a single writer only.
	if cfg.Driver == DriverSQLite {
		maxOpen = 1
		maxIdle = 1
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		if cerr := db.Close(); cerr != nil {
			slog.ErrorContext(ctx, "Failed to close database after ping failure", "error", cerr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &DB{db: db, dialect: dialect}

	if cfg.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	return store, nil
}

// Migrate applies the embedded schema migrations.
func (d *DB) Migrate(ctx context.Context) error {
	if err := migrations.Up(ctx, d.db.DB, d.dialect.Name()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Client returns a list-query client backed by this database.
func (d *DB) Client() *sqlbuilder.Client {
	return sqlbuilder.NewClient(d.dialect, d)
}

// Dialect returns the SQL dialect of the connection.
func (d *DB) Dialect() sqlbuilder.Dialect {
	return d.dialect
}

// Sqlx exposes the underlying handle.
func (d *DB) Sqlx() *sqlx.DB {
	return d.db
}

// Close closes the connection pool.
func (d *DB) Close() error {
	return d.db.Close()
}

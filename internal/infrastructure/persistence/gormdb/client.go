// Package gormdb runs list queries through GORM on PostgreSQL.
package gormdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rezkam/parish/internal/domain"
	"github.com/rezkam/parish/internal/listquery"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config holds GORM connection settings.
type Config struct {
	DSN string

	// Pool, when set, is shared instead of opening a connection from DSN.
	Pool *pgxpool.Pool

	// SlowThreshold marks queries logged as slow (default: 200ms).
	SlowThreshold time.Duration

	// DryRun renders statements without sending them.
	DryRun bool
}

// Client opens GORM-backed list-query builders.
type Client struct {
	db *gorm.DB
}

var _ listquery.Client = (*Client)(nil)

// Open creates a client. No connection is made until the first query.
func Open(cfg Config) (*Client, error) {
	pgCfg := postgres.Config{DSN: cfg.DSN}
	if cfg.Pool != nil {
		pgCfg.Conn = stdlib.OpenDBFromPool(cfg.Pool)
	}

	slowThreshold := cfg.SlowThreshold
	if slowThreshold <= 0 {
		slowThreshold = 200 * time.Millisecond
	}

	db, err := gorm.Open(postgres.New(pgCfg), &gorm.Config{
		Logger: logger.NewSlogLogger(slog.Default(), logger.Config{
			SlowThreshold:        slowThreshold,
			LogLevel:             logger.Warn,
			ParameterizedQueries: true,
		}),
		DryRun:               cfg.DryRun,
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm database: %w", err)
	}
	return NewClient(db), nil
}

// NewClient wraps an open GORM handle.
func NewClient(db *gorm.DB) *Client {
	return &Client{db: db}
}

// DB returns the underlying GORM handle.
func (c *Client) DB() *gorm.DB {
	return c.db
}

func (c *Client) Select(resource, columns string, mode listquery.Mode) listquery.Builder {
	return newBuilder(c.db, resource, columns, mode)
}

// Close releases the connection pool. A shared pgx pool is left open.
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the database is reachable.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// classify attaches the SQLSTATE of server errors.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return domain.NewBackendError(pgErr.Code, err)
	}
	if errors.Is(err, sql.ErrConnDone) {
		return domain.NewBackendError("connection_closed", err)
	}
	return err
}

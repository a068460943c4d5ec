package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rezkam/parish/internal/config"
	"github.com/rezkam/parish/internal/infrastructure/persistence/gormdb"
	"github.com/rezkam/parish/internal/infrastructure/persistence/mongodb"
	"github.com/rezkam/parish/internal/infrastructure/persistence/postgres"
	"github.com/rezkam/parish/internal/infrastructure/persistence/sqldb"
	"github.com/rezkam/parish/internal/listquery"
)

// backend is an opened list-query backend.
type backend struct {
	client listquery.Client
	close  func(context.Context) error
}

// openBackend connects to the database selected by cfg.Driver.
func openBackend(ctx context.Context, cfg config.DatabaseConfig) (*backend, error) {
	switch cfg.Driver {
	case config.DriverPgx:
		store, err := openPgxStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &backend{
			client: store.Client(),
			close:  func(context.Context) error { return store.Close() },
		}, nil

	case config.DriverGorm:
		store, err := openPgxStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		client, err := gormdb.Open(gormdb.Config{
			Pool:          store.Pool(),
			SlowThreshold: cfg.SlowQueryThreshold,
		})
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		return &backend{
			client: client,
			close: func(context.Context) error {
				if err := client.Close(); err != nil {
					slog.Error("Failed to close gorm connection", "error", err)
				}
				return store.Close()
			},
		}, nil

	case config.DriverPostgres, config.DriverMySQL, config.DriverSQLite:
		db, err := sqldb.Open(ctx, sqldb.Config{
			Driver:          cfg.Driver,
			DSN:             cfg.DSN,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ConnMaxIdleTime,
			AutoMigrate:     cfg.AutoMigrate,
		})
		if err != nil {
			return nil, err
		}
		return &backend{
			client: db.Client(),
			close:  func(context.Context) error { return db.Close() },
		}, nil

	case config.DriverMongo:
		client, err := mongodb.Open(ctx, mongodb.Config{
			URI:      cfg.DSN,
			Database: cfg.MongoDatabase,
		})
		if err != nil {
			return nil, err
		}
		return &backend{client: client, close: client.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func openPgxStore(ctx context.Context, cfg config.DatabaseConfig) (*postgres.Store, error) {
	return postgres.NewStoreWithConfig(ctx, postgres.DBConfig{
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		AutoMigrate:     cfg.AutoMigrate,
	})
}

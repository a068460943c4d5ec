// Package migrations embeds the portal schema and applies it with goose.
// The SQL is portable across PostgreSQL, SQLite and MySQL.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var FS embed.FS

// goose keeps dialect and base FS in package state.
var gooseMu sync.Mutex

// Up applies all pending migrations. dialect is a goose dialect name
// such as "postgres", "sqlite3" or "mysql".
func Up(ctx context.Context, db *sql.DB, dialect string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	goose.SetBaseFS(FS)
	defer goose.SetBaseFS(nil)

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

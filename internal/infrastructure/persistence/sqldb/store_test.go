package sqldb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rezkam/parish/internal/domain"
	"github.com/rezkam/parish/internal/infrastructure/persistence/compliance"
	"github.com/rezkam/parish/internal/listquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *DB {
	t.Helper()

	db, err := Open(context.Background(), Config{
		Driver:      DriverSQLite,
		DSN:         filepath.Join(t.TempDir(), "parish.db"),
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedFunc(db *DB) func(ctx context.Context, rows []domain.Row) error {
	return func(ctx context.Context, rows []domain.Row) error {
		for _, row := range rows {
			_, err := db.Sqlx().NamedExecContext(ctx,
				`INSERT INTO attendees (id, first_name, last_name, email, age, role, confirmed)
				 VALUES (:id, :first_name, :last_name, :email, :age, :role, :confirmed)`,
				map[string]any(row))
			if err != nil {
				return err
			}
		}
		return nil
	}
}

func TestSQLiteCompliance(t *testing.T) {
	compliance.RunClientCompliance(t, func(t *testing.T) compliance.Fixture {
		db := openSQLite(t)
		return compliance.Fixture{Client: db.Client(), Seed: seedFunc(db)}
	})
}

// TestMySQLCompliance runs against a live server when PARISH_TEST_MYSQL_DSN is set.
func TestMySQLCompliance(t *testing.T) {
	dsn := os.Getenv("PARISH_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("set PARISH_TEST_MYSQL_DSN to run MySQL compliance tests")
	}

	compliance.RunClientCompliance(t, func(t *testing.T) compliance.Fixture {
		db, err := Open(context.Background(), Config{Driver: DriverMySQL, DSN: dsn, AutoMigrate: true})
		require.NoError(t, err)
		_, err = db.Sqlx().Exec("DELETE FROM attendees")
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		return compliance.Fixture{Client: db.Client(), Seed: seedFunc(db)}
	})
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle", DSN: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported SQL driver")
}

func TestQueryRows_NormalizesValues(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	_, err := db.Sqlx().ExecContext(ctx,
		`INSERT INTO announcements (id, title, body, confirmed) VALUES (?, ?, ?, ?)`,
		1, "Feast day", []byte("Procession at noon"), true)
	require.NoError(t, err)

	rows, err := db.QueryRows(ctx, `SELECT id, title, body FROM announcements`)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Feast day", rows[0]["title"])
	assert.IsType(t, "", rows[0]["body"])
	assert.Equal(t, "Procession at noon", rows[0]["body"])
}

func TestQueryCount(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	n, err := db.QueryCount(ctx, `SELECT COUNT(*) FROM polls`)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestQueryError_CarriesSQLiteCode(t *testing.T) {
	db := openSQLite(t)
	engine := listquery.NewEngine(db.Client())

	_, err := engine.FetchPage(context.Background(), listquery.Request{
		Resource: "no_such_table",
		Window:   domain.PageWindow{Page: 1, PageSize: 10},
	})

	var qerr *domain.QueryError
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, domain.QueryCount, qerr.Query)
	assert.NotEmpty(t, qerr.Code)
	assert.True(t, strings.Contains(qerr.Message, "no such table"))
}

func TestFetchPage_DeadlineIsCancelled(t *testing.T) {
	db := openSQLite(t)
	engine := listquery.NewEngine(db.Client())

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := engine.FetchPage(ctx, listquery.Request{
		Resource: "events",
		Window:   domain.PageWindow{Page: 1, PageSize: 10},
	})
	assert.ErrorIs(t, err, domain.ErrCancelled)
}

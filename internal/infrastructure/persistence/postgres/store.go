package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rezkam/parish/internal/domain"
	"github.com/rezkam/parish/internal/infrastructure/persistence/sqlbuilder"
	"github.com/rezkam/parish/internal/listquery"
)

// Store runs list queries on a pgx connection pool.
// It is the sqlbuilder.Executor of the PostgreSQL backend.
type Store struct {
	pool *pgxpool.Pool
}

var _ sqlbuilder.Executor = (*Store)(nil)

// NewStore creates a new PostgreSQL store with the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Client returns a list-query client rendering PostgreSQL SQL.
func (s *Store) Client() listquery.Client {
	return sqlbuilder.NewClient(sqlbuilder.Postgres, s)
}

// Pool returns the underlying connection pool.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// QueryRows runs query and collects every row into a column map.
func (s *Store) QueryRows(ctx context.Context, query string, args ...any) ([]domain.Row, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}

	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, classify(err)
	}

	result := make([]domain.Row, len(maps))
	for i, m := range maps {
		result[i] = normalizeRow(m)
	}
	return result, nil
}

// QueryCount runs a single-value COUNT query.
func (s *Store) QueryCount(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, classify(err)
	}
	return n, nil
}

// Close closes the database connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// classify attaches the SQLSTATE of server errors.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return domain.NewBackendError(pgErr.Code, err)
	}
	return err
}

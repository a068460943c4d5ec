package sqldb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/rezkam/parish/internal/domain"
	"modernc.org/sqlite"
)

// QueryRows runs query and scans every row into a column map.
func (d *DB) QueryRows(ctx context.Context, query string, args ...any) ([]domain.Row, error) {
	rows, err := d.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var result []domain.Row
	for rows.Next() {
		m := make(map[string]any)
		if err := rows.MapScan(m); err != nil {
			return nil, classify(fmt.Errorf("scan row: %w", err))
		}
		for k, v := range m {
			m[k] = normalizeValue(v)
		}
		result = append(result, domain.Row(m))
	}

	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("rows iteration: %w", err))
	}

	return result, nil
}

// QueryCount runs a single-value COUNT query.
func (d *DB) QueryCount(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := d.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, classify(err)
	}
	return n, nil
}

// normalizeValue converts driver-scanned values to plain Go types.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC()
	default:
		return val
	}
}

// classify attaches the driver error code, if any.
func classify(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return domain.NewBackendError(strconv.Itoa(int(myErr.Number)), err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return domain.NewBackendError(string(pqErr.Code), err)
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return domain.NewBackendError(strconv.Itoa(liteErr.Code()), err)
	}

	return err
}

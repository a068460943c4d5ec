package postgres

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rezkam/parish/internal/domain"
)

// === pgx Value Conversion Helpers ===

// normalizeRow converts every value pgx decoded into a plain Go type so rows
// look the same whichever backend produced them.
func normalizeRow(m map[string]any) domain.Row {
	for k, v := range m {
		m[k] = normalizeValue(v)
	}
	return domain.Row(m)
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case time.Time:
		// Always return time in UTC location for consistent timezone handling.
		return val.UTC()
	case [16]byte:
		// uuid columns decode as raw bytes
		return uuid.UUID(val).String()
	case pgtype.Numeric:
		return numericToValue(val)
	case pgtype.Interval:
		if !val.Valid {
			return nil
		}
		return intervalToDuration(val).String()
	case pgtype.Time:
		if !val.Valid {
			return nil
		}
		return (time.Duration(val.Microseconds) * time.Microsecond).String()
	default:
		return val
	}
}

// numericToValue converts NUMERIC to int64 when it is integral and fits,
// otherwise to float64. NaN and infinities become float64 as well.
func numericToValue(n pgtype.Numeric) any {
	if !n.Valid {
		return nil
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		f, err := n.Float64Value()
		if err != nil {
			return nil
		}
		return f.Float64
	}
	if n.Exp >= 0 {
		if i, err := n.Int64Value(); err == nil && i.Valid {
			return i.Int64
		}
	}
	f, err := n.Float64Value()
	if err != nil || !f.Valid {
		return nil
	}
	return f.Float64
}

// intervalToDuration converts PostgreSQL interval to Go duration.
// PostgreSQL uses 30 days/month for interval arithmetic.
func intervalToDuration(interval pgtype.Interval) time.Duration {
	days := int64(interval.Days) + int64(interval.Months)*30
	return time.Duration(interval.Microseconds)*time.Microsecond + time.Duration(days)*24*time.Hour
}

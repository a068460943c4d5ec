package sqlbuilder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rezkam/parish/internal/domain"
	"github.com/rezkam/parish/internal/listquery"
)

// Executor runs rendered SQL. Each SQL backend supplies one.
type Executor interface {
	QueryRows(ctx context.Context, query string, args ...any) ([]domain.Row, error)
	QueryCount(ctx context.Context, query string, args ...any) (int64, error)
}

// predicate renders one WHERE condition, binding its arguments through w.
type predicate func(w *writer) string

// writer numbers placeholders in the order arguments are bound.
type writer struct {
	dialect Dialect
	args    []any
}

func (w *writer) bind(v any) string {
	w.args = append(w.args, v)
	return w.dialect.Placeholder(len(w.args))
}

func (w *writer) quote(column string) string {
	return w.dialect.QuoteIdentifier(column)
}

// Builder renders a single SELECT statement. It implements listquery.Builder
// and mutates itself; every method returns the receiver.
type Builder struct {
	dialect  Dialect
	exec     Executor
	table    string
	columns  string
	mode     listquery.Mode
	where    []predicate
	orderBy  []string
	limit    int
	offset   int
	hasRange bool
}

var _ listquery.Builder = (*Builder)(nil)

func newBuilder(dialect Dialect, exec Executor, table, columns string, mode listquery.Mode) *Builder {
	if strings.TrimSpace(columns) == "" {
		columns = "*"
	}
	return &Builder{dialect: dialect, exec: exec, table: table, columns: columns, mode: mode}
}

func (b *Builder) add(p predicate) listquery.Builder {
	b.where = append(b.where, p)
	return b
}

func (b *Builder) Match(m map[string]any) listquery.Builder {
	for _, col := range domain.SortedKeys(m) {
		b.Eq(col, m[col])
	}
	return b
}

func (b *Builder) Eq(column string, value any) listquery.Builder {
	return b.add(func(w *writer) string { return comparison(w, column, domain.OpEq, value) })
}

func (b *Builder) Gte(column string, value any) listquery.Builder {
	return b.add(func(w *writer) string { return comparison(w, column, domain.OpGte, value) })
}

func (b *Builder) Lte(column string, value any) listquery.Builder {
	return b.add(func(w *writer) string { return comparison(w, column, domain.OpLte, value) })
}

func (b *Builder) ILike(column, pattern string) listquery.Builder {
	return b.add(func(w *writer) string { return comparison(w, column, domain.OpILike, pattern) })
}

func (b *Builder) IsNull(column string, isNull bool) listquery.Builder {
	return b.add(func(w *writer) string {
		if isNull {
			return w.quote(column) + " IS NULL"
		}
		return w.quote(column) + " IS NOT NULL"
	})
}

func (b *Builder) In(column string, values []any) listquery.Builder {
	return b.add(func(w *writer) string { return comparison(w, column, domain.OpIn, values) })
}

func (b *Builder) Not(column string, op domain.Operator, value any) listquery.Builder {
	return b.add(func(w *writer) string {
		switch op {
		case domain.OpIs:
			v, _ := domain.IsOperand(value)
			return isComparison(w, column, v, true)
		case domain.OpIn:
			values, _ := domain.AsValues(value)
			if len(values) == 0 {
				return "1=1"
			}
			return w.quote(column) + " NOT IN (" + bindAll(w, values) + ")"
		default:
			return "NOT (" + comparison(w, column, op, value) + ")"
		}
	})
}

func (b *Builder) Or(d *listquery.Disjunction) listquery.Builder {
	terms := d.Terms()
	if len(terms) == 0 {
		return b
	}
	return b.add(func(w *writer) string {
		parts := make([]string, len(terms))
		for i, t := range terms {
			parts[i] = comparison(w, t.Column, t.Operator, t.Value)
		}
		return "(" + strings.Join(parts, " OR ") + ")"
	})
}

func (b *Builder) Order(column string, ascending bool) listquery.Builder {
	dir := "DESC"
	if ascending {
		dir = "ASC"
	}
	b.orderBy = append(b.orderBy, b.dialect.QuoteIdentifier(column)+" "+dir)
	return b
}

func (b *Builder) Range(from, to int) listquery.Builder {
	b.offset = from
	b.limit = to - from + 1
	b.hasRange = true
	return b
}

// ToSQL renders the statement and its arguments.
// Ordering and range are omitted in count mode.
func (b *Builder) ToSQL() (string, []any) {
	w := &writer{dialect: b.dialect}
	var sb strings.Builder

	if b.mode == listquery.ModeCount {
		sb.WriteString("SELECT COUNT(*) FROM ")
	} else {
		sb.WriteString("SELECT ")
		sb.WriteString(b.columns)
		sb.WriteString(" FROM ")
	}
	sb.WriteString(b.dialect.QuoteIdentifier(b.table))

	if len(b.where) > 0 {
		parts := make([]string, len(b.where))
		for i, p := range b.where {
			parts[i] = p(w)
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(parts, " AND "))
	}

	if b.mode == listquery.ModeCount {
		return sb.String(), w.args
	}

	if len(b.orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(b.orderBy, ", "))
	}
	if b.hasRange {
		fmt.Fprintf(&sb, " LIMIT %d OFFSET %d", b.limit, b.offset)
	}

	return sb.String(), w.args
}

func (b *Builder) Execute(ctx context.Context) (listquery.Result, error) {
	query, args := b.ToSQL()
	slog.DebugContext(ctx, "Executing list query", "dialect", b.dialect.Name(), "mode", b.mode, "sql", query)

	if b.mode == listquery.ModeCount {
		n, err := b.exec.QueryCount(ctx, query, args...)
		if err != nil {
			return listquery.Result{}, err
		}
		return listquery.Result{Count: n}, nil
	}

	rows, err := b.exec.QueryRows(ctx, query, args...)
	if err != nil {
		return listquery.Result{}, err
	}
	return listquery.Result{Rows: rows}, nil
}

// comparison renders "column <op> operand". A nil operand of eq or neq
// becomes an IS (NOT) NULL test, an empty IN list a false predicate.
func comparison(w *writer, column string, op domain.Operator, value any) string {
	col := w.quote(column)

	switch op {
	case domain.OpEq:
		if value == nil {
			return col + " IS NULL"
		}
		return col + " = " + w.bind(value)
	case domain.OpNeq:
		if value == nil {
			return col + " IS NOT NULL"
		}
		return col + " <> " + w.bind(value)
	case domain.OpGt:
		return col + " > " + w.bind(value)
	case domain.OpGte:
		return col + " >= " + w.bind(value)
	case domain.OpLt:
		return col + " < " + w.bind(value)
	case domain.OpLte:
		return col + " <= " + w.bind(value)
	case domain.OpLike:
		return col + " LIKE " + w.bind(value)
	case domain.OpILike:
		return w.dialect.ILike(col, w.bind(value))
	case domain.OpIn:
		values, _ := domain.AsValues(value)
		if len(values) == 0 {
			return "1=0"
		}
		return col + " IN (" + bindAll(w, values) + ")"
	case domain.OpIs:
		v, _ := domain.IsOperand(value)
		return isComparison(w, column, v, false)
	default:
		// Unknown operators match nothing.
		return "1=0"
	}
}

func isComparison(w *writer, column string, value any, negate bool) string {
	not := ""
	if negate {
		not = "NOT "
	}
	switch value {
	case true:
		return w.quote(column) + " IS " + not + "TRUE"
	case false:
		return w.quote(column) + " IS " + not + "FALSE"
	default:
		return w.quote(column) + " IS " + not + "NULL"
	}
}

func bindAll(w *writer, values []any) string {
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = w.bind(v)
	}
	return strings.Join(placeholders, ", ")
}

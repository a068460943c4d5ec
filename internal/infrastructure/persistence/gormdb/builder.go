package gormdb

import (
	"context"
	"strings"

	"github.com/rezkam/parish/internal/domain"
	"github.com/rezkam/parish/internal/listquery"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Builder accumulates GORM clause expressions for one statement.
// It implements listquery.Builder and mutates itself.
type Builder struct {
	db      *gorm.DB
	table   string
	columns string
	mode    listquery.Mode
	where   []clause.Expression
	orderBy []clause.OrderByColumn
	limit   *clause.Limit
}

var _ listquery.Builder = (*Builder)(nil)

func newBuilder(db *gorm.DB, table, columns string, mode listquery.Mode) *Builder {
	columns = strings.TrimSpace(columns)
	if columns == "*" {
		columns = ""
	}
	return &Builder{db: db, table: table, columns: columns, mode: mode}
}

func (b *Builder) add(expr clause.Expression) listquery.Builder {
	b.where = append(b.where, expr)
	return b
}

func (b *Builder) Match(m map[string]any) listquery.Builder {
	for _, col := range domain.SortedKeys(m) {
		b.Eq(col, m[col])
	}
	return b
}

func (b *Builder) Eq(column string, value any) listquery.Builder {
	return b.add(comparison(column, domain.OpEq, value))
}

func (b *Builder) Gte(column string, value any) listquery.Builder {
	return b.add(comparison(column, domain.OpGte, value))
}

func (b *Builder) Lte(column string, value any) listquery.Builder {
	return b.add(comparison(column, domain.OpLte, value))
}

func (b *Builder) ILike(column, pattern string) listquery.Builder {
	return b.add(comparison(column, domain.OpILike, pattern))
}

func (b *Builder) IsNull(column string, isNull bool) listquery.Builder {
	if isNull {
		return b.add(clause.Eq{Column: clause.Column{Name: column}, Value: nil})
	}
	return b.add(clause.Neq{Column: clause.Column{Name: column}, Value: nil})
}

func (b *Builder) In(column string, values []any) listquery.Builder {
	return b.add(comparison(column, domain.OpIn, values))
}

func (b *Builder) Not(column string, op domain.Operator, value any) listquery.Builder {
	switch op {
	case domain.OpIs:
		v, _ := domain.IsOperand(value)
		return b.add(isComparison(column, v, true))
	case domain.OpIn:
		values, _ := domain.AsValues(value)
		if len(values) == 0 {
			return b
		}
		return b.add(clause.Not(clause.IN{Column: clause.Column{Name: column}, Values: values}))
	default:
		return b.add(clause.Not(comparison(column, op, value)))
	}
}

func (b *Builder) Or(d *listquery.Disjunction) listquery.Builder {
	terms := d.Terms()
	switch len(terms) {
	case 0:
		return b
	case 1:
		// A single-term clause.Or would be OR-ed with the previous condition.
		return b.add(comparison(terms[0].Column, terms[0].Operator, terms[0].Value))
	}

	exprs := make([]clause.Expression, len(terms))
	for i, t := range terms {
		exprs[i] = comparison(t.Column, t.Operator, t.Value)
	}
	return b.add(clause.Or(exprs...))
}

func (b *Builder) Order(column string, ascending bool) listquery.Builder {
	b.orderBy = append(b.orderBy, clause.OrderByColumn{
		Column: clause.Column{Name: column},
		Desc:   !ascending,
	})
	return b
}

func (b *Builder) Range(from, to int) listquery.Builder {
	limit := to - from + 1
	b.limit = &clause.Limit{Limit: &limit, Offset: from}
	return b
}

// scope applies the table and every accumulated clause to tx.
// Ordering and range are left out in count mode.
func (b *Builder) scope(tx *gorm.DB) *gorm.DB {
	tx = tx.Table(b.table)
	if len(b.where) > 0 {
		tx = tx.Clauses(clause.Where{Exprs: b.where})
	}
	if b.mode == listquery.ModeCount {
		return tx
	}

	if b.columns != "" {
		tx = tx.Select(b.columns)
	}
	if len(b.orderBy) > 0 {
		tx = tx.Order(clause.OrderBy{Columns: b.orderBy})
	}
	if b.limit != nil {
		tx = tx.Clauses(*b.limit)
	}
	return tx
}

func (b *Builder) run(tx *gorm.DB) (listquery.Result, *gorm.DB) {
	if b.mode == listquery.ModeCount {
		var n int64
		tx = b.scope(tx).Count(&n)
		return listquery.Result{Count: n}, tx
	}

	var maps []map[string]any
	tx = b.scope(tx).Find(&maps)

	rows := make([]domain.Row, len(maps))
	for i, m := range maps {
		rows[i] = domain.Row(m)
	}
	return listquery.Result{Rows: rows}, tx
}

// ToSQL renders the statement without executing it.
func (b *Builder) ToSQL() (string, []any) {
	_, tx := b.run(b.db.Session(&gorm.Session{DryRun: true, NewDB: true}))
	return tx.Statement.SQL.String(), tx.Statement.Vars
}

func (b *Builder) Execute(ctx context.Context) (listquery.Result, error) {
	result, tx := b.run(b.db.WithContext(ctx))
	if tx.Error != nil {
		return listquery.Result{}, classify(tx.Error)
	}
	return result, nil
}

// comparison translates one operator into a clause expression. A nil operand
// of eq or neq becomes an IS (NOT) NULL test.
func comparison(column string, op domain.Operator, value any) clause.Expression {
	col := clause.Column{Name: column}

	switch op {
	case domain.OpEq:
		return clause.Eq{Column: col, Value: value}
	case domain.OpNeq:
		return clause.Neq{Column: col, Value: value}
	case domain.OpGt:
		return clause.Gt{Column: col, Value: value}
	case domain.OpGte:
		return clause.Gte{Column: col, Value: value}
	case domain.OpLt:
		return clause.Lt{Column: col, Value: value}
	case domain.OpLte:
		return clause.Lte{Column: col, Value: value}
	case domain.OpLike:
		return clause.Like{Column: col, Value: value}
	case domain.OpILike:
		return clause.Expr{SQL: "? ILIKE ?", Vars: []any{col, value}}
	case domain.OpIn:
		values, _ := domain.AsValues(value)
		if len(values) == 0 {
			return clause.Expr{SQL: "1=0"}
		}
		return clause.IN{Column: col, Values: values}
	case domain.OpIs:
		v, _ := domain.IsOperand(value)
		return isComparison(column, v, false)
	default:
		// Unknown operators match nothing.
		return clause.Expr{SQL: "1=0"}
	}
}

func isComparison(column string, value any, negate bool) clause.Expression {
	not := ""
	if negate {
		not = "NOT "
	}
	col := clause.Column{Name: column}
	switch value {
	case true:
		return clause.Expr{SQL: "? IS " + not + "TRUE", Vars: []any{col}}
	case false:
		return clause.Expr{SQL: "? IS " + not + "FALSE", Vars: []any{col}}
	default:
		return clause.Expr{SQL: "? IS " + not + "NULL", Vars: []any{col}}
	}
}

package listquery

import (
	"context"

	"github.com/rezkam/parish/internal/domain"
)

// Mode selects what a builder returns when executed.
type Mode int

const (
	// ModeRows returns the matching rows.
	ModeRows Mode = iota
	// ModeCount returns only the number of matching rows.
	ModeCount
)

func (m Mode) String() string {
	if m == ModeCount {
		return "count"
	}
	return "rows"
}

// Result is the outcome of executing a builder.
// Rows is set in ModeRows, Count in ModeCount.
type Result struct {
	Rows  []domain.Row
	Count int64
}

// Client opens query builders against a backend.
type Client interface {
	// Select starts a query on resource. columns is passed to the backend
	// as-is and may carry backend-specific syntax; empty selects all columns.
	Select(resource, columns string, mode Mode) Builder
}

// Builder accumulates constraints for one query. Every constraint is
// AND-ed with the previous ones. Implementations may return the receiver.
type Builder interface {
	// Match constrains every column of m to equal its value.
	Match(m map[string]any) Builder
	Eq(column string, value any) Builder
	Gte(column string, value any) Builder
	Lte(column string, value any) Builder
	// ILike is a case-insensitive LIKE; pattern carries its own wildcards.
	ILike(column, pattern string) Builder
	IsNull(column string, isNull bool) Builder
	In(column string, values []any) Builder
	Not(column string, op domain.Operator, value any) Builder
	Or(d *Disjunction) Builder

	Order(column string, ascending bool) Builder
	// Range limits rows to the zero-based inclusive window [from, to].
	Range(from, to int) Builder

	Execute(ctx context.Context) (Result, error)
}

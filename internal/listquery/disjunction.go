package listquery

import (
	"fmt"
	"strings"
	"time"

	"github.com/rezkam/parish/internal/domain"
)

// Errors returned by Disjunction.Add, shared with domain.Condition.Validate.
var (
	ErrInvalidColumn = domain.ErrInvalidColumn
	ErrMissingValue  = domain.ErrMissingValue
)

// ValidColumn reports whether name is a plain identifier usable as a column.
func ValidColumn(name string) bool {
	return domain.ValidColumn(name)
}

// Term is one validated comparison of a disjunction.
// In terms carry []any, Is terms carry nil or a bool.
type Term struct {
	Column   string
	Operator domain.Operator
	Value    any
}

// Disjunction is an OR of validated terms. The zero value is empty and usable.
type Disjunction struct {
	terms []Term
}

// NewDisjunction returns an empty disjunction.
func NewDisjunction() *Disjunction {
	return &Disjunction{}
}

// Add appends a term. It rejects unknown operators, malformed column names
// and operands the operator cannot take; the disjunction is unchanged on error.
func (d *Disjunction) Add(column string, op domain.Operator, value any) error {
	if err := (domain.Condition{Column: column, Operator: op, Value: value}).Validate(); err != nil {
		return err
	}

	switch op {
	case domain.OpIn:
		value, _ = domain.AsValues(value)
	case domain.OpIs:
		value, _ = domain.IsOperand(value)
	}

	d.terms = append(d.terms, Term{Column: column, Operator: op, Value: value})
	return nil
}

// Len returns the number of terms.
func (d *Disjunction) Len() int {
	if d == nil {
		return 0
	}
	return len(d.terms)
}

// Terms returns a copy of the terms in insertion order.
func (d *Disjunction) Terms() []Term {
	if d == nil {
		return nil
	}
	terms := make([]Term, len(d.terms))
	copy(terms, d.terms)
	return terms
}

// String renders the terms in PostgREST or-filter form: col.op.val,col.op.val
func (d *Disjunction) String() string {
	parts := make([]string, 0, d.Len())
	for _, t := range d.Terms() {
		parts = append(parts, t.Column+"."+string(t.Operator)+"."+formatOperand(t.Operator, t.Value))
	}
	return strings.Join(parts, ",")
}

func formatOperand(op domain.Operator, value any) string {
	switch op {
	case domain.OpIn:
		values, _ := value.([]any)
		items := make([]string, len(values))
		for i, v := range values {
			items[i] = formatValue(v)
		}
		return "(" + strings.Join(items, ",") + ")"
	case domain.OpIs:
		if value == nil {
			return "null"
		}
		return fmt.Sprint(value)
	default:
		return formatValue(value)
	}
}

// formatValue quotes values holding characters reserved by the or-filter syntax.
func formatValue(v any) string {
	var s string
	switch val := v.(type) {
	case string:
		s = val
	case time.Time:
		s = val.UTC().Format(time.RFC3339Nano)
	default:
		s = fmt.Sprint(val)
	}
	if strings.ContainsAny(s, `,()"\:`) || strings.TrimSpace(s) != s {
		s = `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
	}
	return s
}

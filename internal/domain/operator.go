package domain

import (
	"reflect"
	"strings"
)

// Operator is a comparison operator in PostgREST shorthand.
// Value object - immutable string enum.
type Operator string

const (
	OpEq    Operator = "eq"
	OpNeq   Operator = "neq"
	OpGt    Operator = "gt"
	OpGte   Operator = "gte"
	OpLt    Operator = "lt"
	OpLte   Operator = "lte"
	OpLike  Operator = "like"
	OpILike Operator = "ilike"
	OpIn    Operator = "in"
	OpIs    Operator = "is"
)

// Valid reports whether op is one of the known operators.
func (op Operator) Valid() bool {
	switch op {
	case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpLike, OpILike, OpIn, OpIs:
		return true
	default:
		return false
	}
}

// ParseOperator validates s and returns the matching Operator.
func ParseOperator(s string) (Operator, error) {
	op := Operator(strings.ToLower(strings.TrimSpace(s)))
	if !op.Valid() {
		return "", invalidArgument("unknown operator %q", s)
	}
	return op, nil
}

// CheckOperand reports whether value is acceptable for op.
// IN needs a slice, IS needs nil, a bool or the literal "null".
func CheckOperand(op Operator, value any) error {
	switch op {
	case OpIn:
		if _, ok := AsValues(value); !ok {
			return invalidArgument("operator in expects a list, got %T", value)
		}
	case OpIs:
		if _, ok := IsOperand(value); !ok {
			return invalidArgument("operator is expects null, true or false, got %v", value)
		}
	case OpLike, OpILike:
		if _, ok := value.(string); !ok {
			return invalidArgument("operator %s expects a string pattern, got %T", op, value)
		}
	default:
		if value == nil {
			return invalidArgument("operator %s expects a value", op)
		}
	}
	return nil
}

// IsOperand normalizes the operand of an IS comparison.
// It returns nil for null, or the bool for true/false.
func IsOperand(value any) (any, bool) {
	switch v := value.(type) {
	case nil:
		return nil, true
	case bool:
		return v, true
	case string:
		switch strings.ToLower(v) {
		case "null":
			return nil, true
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return nil, false
}

// AsValues converts any slice or array into []any.
func AsValues(value any) ([]any, bool) {
	if values, ok := value.([]any); ok {
		return values, true
	}
	if value == nil {
		return nil, false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	// []byte is a scalar for every backend.
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	values := make([]any, rv.Len())
	for i := range rv.Len() {
		values[i] = rv.Index(i).Interface()
	}
	return values, true
}

package handler

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rezkam/parish/internal/application/listing"
	"github.com/rezkam/parish/internal/domain"
	"github.com/rezkam/parish/internal/listquery"
)

// Reserved query parameters. Every other parameter is a column filter.
const (
	paramPage     = "page"
	paramPageSize = "page_size"
	paramOrder    = "order"
	paramSelect   = "select"
	paramState    = "state"
	paramOr       = "or"
	paramIDs      = "ids"
	matchPrefix   = "match."
)

// parseListQuery turns PostgREST-style parameters into a listing query:
//
//	?page=2&page_size=20&order=starts_at.desc&select=id,title
//	&kind=eq.mass&starts_at=gte.2026-01-01&title=ilike.advent
//	&email=is.null&status=in.(open,closed)&role=not.eq.usher
//	&or=(age.lt.18,role.eq.lector)&state=active&match.parish_id=7&ids=1,2,3
func parseListQuery(values url.Values) (listing.Query, error) {
	var q listing.Query
	var err error

	if q.Page, err = intParam(values, paramPage); err != nil {
		return q, err
	}
	if q.PageSize, err = intParam(values, paramPageSize); err != nil {
		return q, err
	}
	if q.Order, err = domain.ParseOrder(values.Get(paramOrder)); err != nil {
		return q, err
	}
	if s := values.Get(paramSelect); s != "" {
		for _, c := range strings.Split(s, ",") {
			q.Columns = append(q.Columns, strings.TrimSpace(c))
		}
	}
	if q.Filters.ActiveState, err = domain.ParseActiveState(values.Get(paramState)); err != nil {
		return q, err
	}
	if s := values.Get(paramIDs); s != "" {
		for _, id := range splitTopLevel(s) {
			q.Filters.SetMembershipIDs = append(q.Filters.SetMembershipIDs, parseValue(id))
		}
	}
	if s := values.Get(paramOr); s != "" {
		if q.Filters.Disjunction, err = parseDisjunction(s); err != nil {
			return q, err
		}
	}

	for _, key := range domain.SortedKeys(values) {
		switch key {
		case paramPage, paramPageSize, paramOrder, paramSelect, paramState, paramOr, paramIDs:
			continue
		}

		if col, ok := strings.CutPrefix(key, matchPrefix); ok {
			if err := checkColumn(col); err != nil {
				return q, err
			}
			if q.Filters.MatchSet == nil {
				q.Filters.MatchSet = make(map[string]any)
			}
			q.Filters.MatchSet[col] = parseValue(values.Get(key))
			continue
		}

		if err := checkColumn(key); err != nil {
			return q, err
		}
		for _, v := range values[key] {
			if err := addColumnFilter(&q.Filters, key, v); err != nil {
				return q, err
			}
		}
	}

	return q, nil
}

func addColumnFilter(f *domain.FilterSpec, column, expr string) error {
	op, value, ok := strings.Cut(expr, ".")
	if !ok {
		return fmt.Errorf("%w: filter %s=%q must be <operator>.<value>", domain.ErrInvalidArgument, column, expr)
	}

	switch domain.Operator(op) {
	case domain.OpEq:
		f.Equality = append(f.Equality, domain.EqualityClause{Column: column, Value: parseValue(value)})
	case domain.OpGte:
		put(&f.RangeLower, column, parseValue(value))
	case domain.OpLte:
		put(&f.RangeUpper, column, parseValue(value))
	case domain.OpILike:
		if f.PatternMatch == nil {
			f.PatternMatch = make(map[string]string)
		}
		f.PatternMatch[column] = unquote(value)
	case domain.OpIs:
		switch strings.ToLower(value) {
		case "null":
			put(&f.NullCheck, column, true)
		case "true", "false":
			f.Equality = append(f.Equality, domain.EqualityClause{Column: column, Value: value == "true"})
		default:
			return fmt.Errorf("%w: is.%s on %s", domain.ErrInvalidArgument, value, column)
		}
	case domain.OpIn:
		if f.SetMembership != nil {
			return fmt.Errorf("%w: only one in filter is supported", domain.ErrInvalidArgument)
		}
		values, err := parseList(value)
		if err != nil {
			return err
		}
		f.SetMembership = &domain.SetMembership{Column: column, Values: values}
	case "not":
		return addNegation(f, column, value)
	default:
		return fmt.Errorf("%w: operator %q is not supported on %s outside or=", domain.ErrInvalidArgument, op, column)
	}
	return nil
}

func addNegation(f *domain.FilterSpec, column, expr string) error {
	op, value, ok := strings.Cut(expr, ".")
	if !ok {
		return fmt.Errorf("%w: not filter on %s must be not.<operator>.<value>", domain.ErrInvalidArgument, column)
	}
	if op == string(domain.OpIs) && strings.EqualFold(value, "null") {
		put(&f.NullCheck, column, false)
		return nil
	}
	if f.Negation != nil {
		return fmt.Errorf("%w: only one not filter is supported", domain.ErrInvalidArgument)
	}

	operator, err := domain.ParseOperator(op)
	if err != nil {
		return err
	}

	var operand any
	switch operator {
	case domain.OpIn:
		if operand, err = parseList(value); err != nil {
			return err
		}
	case domain.OpLike, domain.OpILike:
		operand = unquote(value)
	default:
		operand = parseValue(value)
	}
	f.Negation = &domain.Negation{Column: column, Operator: operator, Value: operand}
	return nil
}

// parseDisjunction parses "(col.op.value,col.op.value)". Entries that do not
// split into three parts are kept with an empty operator so the engine drops
// them with a warning instead of failing the request.
func parseDisjunction(s string) ([]domain.Condition, error) {
	inner, ok := parens(s)
	if !ok {
		return nil, fmt.Errorf("%w: or=%s must be wrapped in parentheses", domain.ErrInvalidArgument, s)
	}

	var conds []domain.Condition
	for _, entry := range splitTopLevel(inner) {
		column, rest, _ := strings.Cut(entry, ".")
		op, value, ok := strings.Cut(rest, ".")
		if !ok {
			conds = append(conds, domain.Condition{Column: column})
			continue
		}

		c := domain.Condition{Column: column, Operator: domain.Operator(strings.ToLower(op))}
		switch c.Operator {
		case domain.OpIn:
			values, err := parseList(value)
			if err != nil {
				c.Operator = ""
			}
			c.Value = values
		case domain.OpLike, domain.OpILike:
			c.Value = unquote(value)
		case domain.OpIs:
			c.Value = strings.ToLower(value)
		default:
			c.Value = parseValue(value)
		}
		conds = append(conds, c)
	}
	return conds, nil
}

// parseList parses "(a,b,c)" into typed values.
func parseList(s string) ([]any, error) {
	inner, ok := parens(s)
	if !ok {
		return nil, fmt.Errorf("%w: list %q must be wrapped in parentheses", domain.ErrInvalidArgument, s)
	}
	values := []any{}
	for _, item := range splitTopLevel(inner) {
		values = append(values, parseValue(item))
	}
	return values, nil
}

func parens(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return "", false
	}
	return s[1 : len(s)-1], true
}

// splitTopLevel splits on commas outside parentheses and double quotes.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	inQuote, escaped := false, false

	for i, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && inQuote:
			escaped = true
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '(':
			depth++
		case r == ')':
			depth--
		case r == ',' && depth == 0:
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if rest := strings.TrimSpace(s[start:]); rest != "" || len(parts) > 0 {
		parts = append(parts, rest)
	}
	return parts
}

// parseValue types a raw operand. Quoted text stays a string; otherwise
// null, booleans and canonical integers are recognized. Digits with a leading
// zero or sign, such as phone numbers, stay strings.
func parseValue(s string) any {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return unquote(s)
	}
	switch s {
	case "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && strconv.FormatInt(n, 10) == s {
		return n
	}
	return s
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
		s = strings.ReplaceAll(s, `\"`, `"`)
		s = strings.ReplaceAll(s, `\\`, `\`)
	}
	return s
}

func intParam(values url.Values, name string) (int, error) {
	s := values.Get(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", domain.ErrInvalidArgument, name, s)
	}
	return n, nil
}

func checkColumn(column string) error {
	if !listquery.ValidColumn(column) {
		return fmt.Errorf("%w: invalid column %q", domain.ErrInvalidArgument, column)
	}
	return nil
}

func put[V any](m *map[string]V, column string, v V) {
	if *m == nil {
		*m = make(map[string]V)
	}
	(*m)[column] = v
}

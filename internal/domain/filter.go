package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ConfirmedColumn is the boolean column behind the active-state filter.
const ConfirmedColumn = "confirmed"

var (
	// ErrInvalidColumn is returned for column names that are not plain identifiers.
	ErrInvalidColumn = errors.New("invalid column name")

	// ErrMissingValue is returned for a term without a value.
	ErrMissingValue = errors.New("missing value")

	columnPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// ValidColumn reports whether name is a plain identifier usable as a column.
func ValidColumn(name string) bool {
	return columnPattern.MatchString(name)
}

// ActiveState is the tri-state filter on the confirmed flag of a record.
type ActiveState string

const (
	ActiveStateActive   ActiveState = "active"
	ActiveStateInactive ActiveState = "inactive"
	ActiveStateAll      ActiveState = "all"
)

// ParseActiveState validates s. An empty string means no filter.
func ParseActiveState(s string) (ActiveState, error) {
	state := ActiveState(strings.ToLower(strings.TrimSpace(s)))
	switch state {
	case "", ActiveStateActive, ActiveStateInactive, ActiveStateAll:
		return state, nil
	default:
		return "", invalidArgument("unknown state %q", s)
	}
}

// EqualityClause constrains one column to one value.
type EqualityClause struct {
	Column string
	Value  any
}

// SetMembership constrains a column to a list of values.
type SetMembership struct {
	Column string
	Values []any
}

// Negation constrains a column with NOT <operator> value.
type Negation struct {
	Column   string
	Operator Operator
	Value    any
}

// Condition is one raw term of a disjunction as supplied by the caller.
// Terms with a missing field or an unknown operator are dropped when applied.
type Condition struct {
	Column   string
	Operator Operator
	Value    any
}

// Validate reports why c cannot join a disjunction.
func (c Condition) Validate() error {
	if !ValidColumn(c.Column) {
		return fmt.Errorf("%w: %q", ErrInvalidColumn, c.Column)
	}
	if !c.Operator.Valid() {
		return invalidArgument("unknown operator %q", c.Operator)
	}
	if c.Value == nil {
		return fmt.Errorf("%w for %s.%s", ErrMissingValue, c.Column, c.Operator)
	}
	return CheckOperand(c.Operator, c.Value)
}

// FilterSpec describes every optional constraint of one paginated query.
// A zero FilterSpec matches all rows.
//
// Map-valued fields are applied in ascending key order.
type FilterSpec struct {
	MatchSet     map[string]any
	RangeLower   map[string]any // column >= value
	RangeUpper   map[string]any // column <= value
	PatternMatch map[string]string
	NullCheck    map[string]bool // true: IS NULL, false: IS NOT NULL
	Equality     []EqualityClause

	// SetMembershipIDs is the legacy IN on the id column. It is applied in
	// addition to SetMembership when both are present.
	SetMembershipIDs []any
	SetMembership    *SetMembership

	Negation    *Negation
	Disjunction []Condition
	ActiveState ActiveState
}

// Columns returns every column the spec constrains, in application order,
// without duplicates. Disjunction columns are included only for well-formed
// entries, since malformed ones are dropped when applied.
func (f FilterSpec) Columns() []string {
	seen := make(map[string]bool)
	var cols []string
	add := func(c string) {
		if c == "" || seen[c] {
			return
		}
		seen[c] = true
		cols = append(cols, c)
	}

	for _, c := range SortedKeys(f.MatchSet) {
		add(c)
	}
	for _, c := range SortedKeys(f.RangeLower) {
		add(c)
	}
	for _, c := range SortedKeys(f.RangeUpper) {
		add(c)
	}
	for _, c := range SortedKeys(f.PatternMatch) {
		add(c)
	}
	for _, c := range SortedKeys(f.NullCheck) {
		add(c)
	}
	for _, eq := range f.Equality {
		add(eq.Column)
	}
	if len(f.SetMembershipIDs) > 0 {
		add("id")
	}
	if f.SetMembership != nil {
		add(f.SetMembership.Column)
	}
	if f.Negation != nil {
		add(f.Negation.Column)
	}
	for _, c := range f.Disjunction {
		if c.Validate() == nil {
			add(c.Column)
		}
	}
	switch f.ActiveState {
	case ActiveStateActive, ActiveStateInactive:
		add(ConfirmedColumn)
	}
	return cols
}

// Validate checks the fields the engine cannot tolerate.
// Disjunction entries are not checked here; malformed ones are dropped when applied.
func (f FilterSpec) Validate() error {
	for _, eq := range f.Equality {
		if eq.Column == "" {
			return invalidArgument("equality clause without column")
		}
	}
	if f.SetMembership != nil && len(f.SetMembership.Values) > 0 && f.SetMembership.Column == "" {
		return invalidArgument("set membership without column")
	}
	if n := f.Negation; n != nil {
		if n.Column == "" {
			return invalidArgument("negation without column")
		}
		if !n.Operator.Valid() {
			return invalidArgument("negation has unknown operator %q", n.Operator)
		}
		if err := CheckOperand(n.Operator, n.Value); err != nil {
			return err
		}
	}
	if _, err := ParseActiveState(string(f.ActiveState)); err != nil {
		return err
	}
	return nil
}

// String renders a compact summary for logs.
func (f FilterSpec) String() string {
	var parts []string
	if len(f.MatchSet) > 0 {
		parts = append(parts, fmt.Sprintf("match=%v", f.MatchSet))
	}
	if len(f.RangeLower) > 0 {
		parts = append(parts, fmt.Sprintf("gte=%v", f.RangeLower))
	}
	if len(f.RangeUpper) > 0 {
		parts = append(parts, fmt.Sprintf("lte=%v", f.RangeUpper))
	}
	if len(f.PatternMatch) > 0 {
		parts = append(parts, fmt.Sprintf("ilike=%v", f.PatternMatch))
	}
	if len(f.NullCheck) > 0 {
		parts = append(parts, fmt.Sprintf("null=%v", f.NullCheck))
	}
	for _, eq := range f.Equality {
		parts = append(parts, fmt.Sprintf("%s=eq.%v", eq.Column, eq.Value))
	}
	if len(f.SetMembershipIDs) > 0 {
		parts = append(parts, fmt.Sprintf("id=in.%v", f.SetMembershipIDs))
	}
	if f.SetMembership != nil && len(f.SetMembership.Values) > 0 {
		parts = append(parts, fmt.Sprintf("%s=in.%v", f.SetMembership.Column, f.SetMembership.Values))
	}
	if f.Negation != nil {
		parts = append(parts, fmt.Sprintf("%s=not.%s.%v", f.Negation.Column, f.Negation.Operator, f.Negation.Value))
	}
	if len(f.Disjunction) > 0 {
		parts = append(parts, fmt.Sprintf("or=%d terms", len(f.Disjunction)))
	}
	if f.ActiveState != "" {
		parts = append(parts, "state="+string(f.ActiveState))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}

package listquery

import (
	"context"
	"log/slog"

	"github.com/rezkam/parish/internal/domain"
)

const (
	// ConfirmedColumn is the boolean column behind the active-state filter.
	ConfirmedColumn = domain.ConfirmedColumn

	idColumn = "id"
)

// Apply adds every constraint of spec to b and returns the resulting builder.
//
// Constraints are applied in a fixed order so that two applications of the
// same spec produce identical queries: match set, lower then upper bounds,
// patterns, null checks, equalities, legacy id membership, membership,
// negation, disjunction, active state. Map entries are applied in key order.
// Absent fields add nothing. Malformed disjunction entries are dropped with a
// warning.
func Apply(ctx context.Context, b Builder, spec domain.FilterSpec) Builder {
	if len(spec.MatchSet) > 0 {
		b = b.Match(spec.MatchSet)
	}

	for _, col := range domain.SortedKeys(spec.RangeLower) {
		b = b.Gte(col, spec.RangeLower[col])
	}
	for _, col := range domain.SortedKeys(spec.RangeUpper) {
		b = b.Lte(col, spec.RangeUpper[col])
	}

	for _, col := range domain.SortedKeys(spec.PatternMatch) {
		b = b.ILike(col, "%"+spec.PatternMatch[col]+"%")
	}

	for _, col := range domain.SortedKeys(spec.NullCheck) {
		b = b.IsNull(col, spec.NullCheck[col])
	}

	for _, eq := range spec.Equality {
		b = b.Eq(eq.Column, eq.Value)
	}

	if len(spec.SetMembershipIDs) > 0 {
		b = b.In(idColumn, spec.SetMembershipIDs)
	}
	if sm := spec.SetMembership; sm != nil && len(sm.Values) > 0 {
		b = b.In(sm.Column, sm.Values)
	}

	if n := spec.Negation; n != nil {
		b = b.Not(n.Column, n.Operator, n.Value)
	}

	if len(spec.Disjunction) > 0 {
		if d := buildDisjunction(ctx, spec.Disjunction); d.Len() > 0 {
			b = b.Or(d)
		}
	}

	switch spec.ActiveState {
	case domain.ActiveStateActive:
		b = b.Eq(ConfirmedColumn, true)
	case domain.ActiveStateInactive:
		b = b.Eq(ConfirmedColumn, false)
	}

	return b
}

func buildDisjunction(ctx context.Context, conditions []domain.Condition) *Disjunction {
	d := NewDisjunction()
	for i, c := range conditions {
		if err := d.Add(c.Column, c.Operator, c.Value); err != nil {
			slog.WarnContext(ctx, "Dropping malformed disjunction entry",
				"index", i,
				"column", c.Column,
				"operator", c.Operator,
				"error", err)
		}
	}
	return d
}

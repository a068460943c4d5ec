// Package compliance holds a reusable test suite every list-query backend must pass.
package compliance

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/rezkam/parish/internal/domain"
	"github.com/rezkam/parish/internal/listquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Resource is the table or collection the suite seeds and queries.
const Resource = "attendees"

// Fixture is a backend under test.
type Fixture struct {
	Client listquery.Client

	// Seed inserts rows into Resource. Rows carry id, first_name, last_name,
	// email, age, role and confirmed.
	Seed func(ctx context.Context, rows []domain.Row) error

	// SchemaLess backends match nothing on unknown columns instead of failing.
	SchemaLess bool
}

// Attendees returns the seed rows used by the suite.
//
//	id  name              email              age  role     confirmed
//	1   Anna Kowalski     anna@example.org   34   choir    true
//	2   Ben Okafor        <nil>              41   choir    true
//	3   Clara Nguyen      clara@example.org  17   choir    false
//	4   David Rossi       david@example.org  65   usher    true
//	5   Eva MARTIN        <nil>              29   choir    true
//	6   Felix Brown       felix@example.org  52   lector   false
//	7   Grace Muller      grace@example.org  23   choir    true
func Attendees() []domain.Row {
	row := func(id int64, first, last string, email any, age int64, role string, confirmed bool) domain.Row {
		return domain.Row{
			"id": id, "first_name": first, "last_name": last, "email": email,
			"age": age, "role": role, "confirmed": confirmed,
		}
	}
	return []domain.Row{
		row(1, "Anna", "Kowalski", "anna@example.org", 34, "choir", true),
		row(2, "Ben", "Okafor", nil, 41, "choir", true),
		row(3, "Clara", "Nguyen", "clara@example.org", 17, "choir", false),
		row(4, "David", "Rossi", "david@example.org", 65, "usher", true),
		row(5, "Eva", "MARTIN", nil, 29, "choir", true),
		row(6, "Felix", "Brown", "felix@example.org", 52, "lector", false),
		row(7, "Grace", "Muller", "grace@example.org", 23, "choir", true),
	}
}

// RunClientCompliance runs the standard list-query tests against a backend.
// setup must return a fixture over an empty Resource.
func RunClientCompliance(t *testing.T, setup func(t *testing.T) Fixture) {
	seeded := func(t *testing.T) *listquery.Engine {
		t.Helper()
		f := setup(t)
		require.NoError(t, f.Seed(context.Background(), Attendees()))
		return listquery.NewEngine(f.Client)
	}

	fetch := func(t *testing.T, engine *listquery.Engine, filters domain.FilterSpec, page, size int) *domain.PageResult {
		t.Helper()
		result, err := engine.FetchPage(context.Background(), listquery.Request{
			Resource: Resource,
			Filters:  filters,
			Order:    []domain.Order{{Column: "id", Ascending: true}},
			Window:   domain.PageWindow{Page: page, PageSize: size},
		})
		require.NoError(t, err)
		return result
	}

	t.Run("CountDataParity", func(t *testing.T) {
		engine := seeded(t)

		specs := map[string]domain.FilterSpec{
			"none":       {},
			"match":      {MatchSet: map[string]any{"role": "choir", "confirmed": true}},
			"range":      {RangeLower: map[string]any{"age": 20}, RangeUpper: map[string]any{"age": 50}},
			"pattern":    {PatternMatch: map[string]string{"last_name": "o"}},
			"null":       {NullCheck: map[string]bool{"email": true}},
			"not null":   {NullCheck: map[string]bool{"email": false}},
			"equality":   {Equality: []domain.EqualityClause{{Column: "role", Value: "choir"}, {Column: "age", Value: 34}}},
			"legacy ids": {SetMembershipIDs: []any{1, 3, 5}},
			"membership": {SetMembership: &domain.SetMembership{Column: "role", Values: []any{"usher", "lector"}}},
			"negation":   {Negation: &domain.Negation{Column: "role", Operator: domain.OpEq, Value: "choir"}},
			"not in":     {Negation: &domain.Negation{Column: "id", Operator: domain.OpIn, Value: []any{1, 2}}},
			"disjunction": {Disjunction: []domain.Condition{
				{Column: "age", Operator: domain.OpLt, Value: 20},
				{Column: "role", Operator: domain.OpEq, Value: "usher"},
			}},
			"active":   {ActiveState: domain.ActiveStateActive},
			"inactive": {ActiveState: domain.ActiveStateInactive},
			"combined": {
				RangeLower:  map[string]any{"age": 18},
				NullCheck:   map[string]bool{"email": false},
				ActiveState: domain.ActiveStateActive,
				Disjunction: []domain.Condition{
					{Column: "role", Operator: domain.OpEq, Value: "choir"},
					{Column: "role", Operator: domain.OpEq, Value: "usher"},
				},
			},
		}

		for name, spec := range specs {
			t.Run(name, func(t *testing.T) {
				result := fetch(t, engine, spec, 1, 100)
				assert.Equal(t, int64(len(result.Items)), result.TotalItems)
			})
		}
	})

	t.Run("FilterSemantics", func(t *testing.T) {
		engine := seeded(t)

		tests := []struct {
			name string
			spec domain.FilterSpec
			want []int64
		}{
			{"match", domain.FilterSpec{MatchSet: map[string]any{"role": "choir", "confirmed": true}}, []int64{1, 2, 5, 7}},
			{"range", domain.FilterSpec{RangeLower: map[string]any{"age": 29}, RangeUpper: map[string]any{"age": 52}}, []int64{1, 2, 5, 6}},
			{"pattern is case-insensitive", domain.FilterSpec{PatternMatch: map[string]string{"last_name": "mar"}}, []int64{5}},
			{"null", domain.FilterSpec{NullCheck: map[string]bool{"email": true}}, []int64{2, 5}},
			{"legacy ids and membership both apply", domain.FilterSpec{
				SetMembershipIDs: []any{1, 4, 6},
				SetMembership:    &domain.SetMembership{Column: "role", Values: []any{"usher", "lector"}},
			}, []int64{4, 6}},
			{"negation", domain.FilterSpec{Negation: &domain.Negation{Column: "role", Operator: domain.OpEq, Value: "choir"}}, []int64{4, 6}},
			{"disjunction", domain.FilterSpec{Disjunction: []domain.Condition{
				{Column: "age", Operator: domain.OpLt, Value: 20},
				{Column: "role", Operator: domain.OpEq, Value: "usher"},
			}}, []int64{3, 4}},
			{"inactive", domain.FilterSpec{ActiveState: domain.ActiveStateInactive}, []int64{3, 6}},
			{"all", domain.FilterSpec{ActiveState: domain.ActiveStateAll}, []int64{1, 2, 3, 4, 5, 6, 7}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				result := fetch(t, engine, tt.spec, 1, 100)
				assert.Equal(t, tt.want, IDs(t, result.Items))
				assert.Equal(t, int64(len(tt.want)), result.TotalItems)
			})
		}
	})

	t.Run("Pagination", func(t *testing.T) {
		engine := seeded(t)
		spec := domain.FilterSpec{Equality: []domain.EqualityClause{{Column: "role", Value: "choir"}}}

		result := fetch(t, engine, spec, 2, 2)
		assert.Equal(t, []int64{3, 5}, IDs(t, result.Items))
		assert.Equal(t, int64(5), result.TotalItems)
		assert.Equal(t, 3, result.TotalPages)
		assert.Equal(t, 2, result.CurrentPage)
		assert.True(t, result.NextPage)

		last := fetch(t, engine, spec, 3, 2)
		assert.Equal(t, []int64{7}, IDs(t, last.Items))
		assert.False(t, last.NextPage)
	})

	t.Run("DescendingOrder", func(t *testing.T) {
		engine := seeded(t)
		result, err := engine.FetchPage(context.Background(), listquery.Request{
			Resource: Resource,
			Order:    []domain.Order{{Column: "age", Ascending: false}},
			Window:   domain.PageWindow{Page: 1, PageSize: 3},
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{4, 6, 2}, IDs(t, result.Items))
	})

	t.Run("EmptyResult", func(t *testing.T) {
		engine := seeded(t)
		result := fetch(t, engine, domain.FilterSpec{
			Equality: []domain.EqualityClause{{Column: "role", Value: "sacristan"}},
		}, 1, 10)

		assert.NotNil(t, result.Items)
		assert.Empty(t, result.Items)
		assert.Equal(t, int64(0), result.TotalItems)
		assert.Equal(t, 0, result.TotalPages)
		assert.False(t, result.NextPage)
	})

	t.Run("EmptySetMembershipIsNoOp", func(t *testing.T) {
		engine := seeded(t)
		result := fetch(t, engine, domain.FilterSpec{
			SetMembership: &domain.SetMembership{Column: "id", Values: []any{}},
		}, 1, 10)
		assert.Equal(t, int64(7), result.TotalItems)
	})

	t.Run("MalformedDisjunctionTolerated", func(t *testing.T) {
		engine := seeded(t)
		valid := domain.Condition{Column: "role", Operator: domain.OpEq, Value: "usher"}

		withInvalid := fetch(t, engine, domain.FilterSpec{Disjunction: []domain.Condition{
			valid,
			{Column: "role", Operator: "", Value: "choir"},
			{Column: "", Operator: domain.OpEq, Value: "choir"},
		}}, 1, 10)
		onlyValid := fetch(t, engine, domain.FilterSpec{Disjunction: []domain.Condition{valid}}, 1, 10)

		assert.Equal(t, IDs(t, onlyValid.Items), IDs(t, withInvalid.Items))
		assert.Equal(t, onlyValid.TotalItems, withInvalid.TotalItems)
	})

	t.Run("IdempotentApplication", func(t *testing.T) {
		engine := seeded(t)
		spec := domain.FilterSpec{
			MatchSet:   map[string]any{"role": "choir"},
			RangeLower: map[string]any{"age": 18, "id": 2},
		}

		first := fetch(t, engine, spec, 1, 10)
		second := fetch(t, engine, spec, 1, 10)
		assert.Equal(t, IDs(t, first.Items), IDs(t, second.Items))
		assert.Equal(t, []int64{2, 5, 7}, IDs(t, first.Items))
	})

	t.Run("UnknownColumnIsQueryError", func(t *testing.T) {
		f := setup(t)
		if f.SchemaLess {
			t.Skip("backend has no schema")
		}
		engine := listquery.NewEngine(f.Client)
		_, err := engine.FetchPage(context.Background(), listquery.Request{
			Resource: Resource,
			Filters:  domain.FilterSpec{Equality: []domain.EqualityClause{{Column: "no_such_column", Value: 1}}},
			Window:   domain.PageWindow{Page: 1, PageSize: 10},
		})

		var qerr *domain.QueryError
		require.ErrorAs(t, err, &qerr)
		assert.Equal(t, domain.QueryCount, qerr.Query)
	})
}

// IDs extracts the id column of rows as int64, whatever numeric type the
// backend returned.
func IDs(t *testing.T, rows []domain.Row) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		id, err := toInt64(row["id"])
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	case []byte:
		return strconv.ParseInt(string(n), 10, 64)
	default:
		return 0, fmt.Errorf("unexpected id type %T", v)
	}
}

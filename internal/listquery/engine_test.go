package listquery

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rezkam/parish/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowsFor(ids ...int) []domain.Row {
	rows := make([]domain.Row, len(ids))
	for i, id := range ids {
		rows[i] = domain.Row{"id": id, "status": "open"}
	}
	return rows
}

func TestEngine_FetchPage_OrdersScenario(t *testing.T) {
	client := &recordingClient{
		countResult: Result{Count: 5},
		dataResult:  Result{Rows: rowsFor(3, 4)},
	}
	engine := NewEngine(client)

	page, err := engine.FetchPage(context.Background(), Request{
		Resource: "orders",
		Columns:  "*",
		Filters: domain.FilterSpec{
			Equality: []domain.EqualityClause{{Column: "status", Value: "open"}},
		},
		Window: domain.PageWindow{Page: 2, PageSize: 2},
	})
	require.NoError(t, err)

	assert.Equal(t, rowsFor(3, 4), page.Items)
	assert.Equal(t, int64(5), page.TotalItems)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Equal(t, 2, page.PageSize)
	assert.True(t, page.NextPage)

	data := client.builder(ModeRows)
	require.NotNil(t, data)
	assert.Contains(t, data.calls, call{Method: "Range", Args: []any{2, 3}})
}

func TestEngine_FetchPage_CountAndDataShareFilters(t *testing.T) {
	client := &recordingClient{countResult: Result{Count: 1}, dataResult: Result{Rows: rowsFor(1)}}
	engine := NewEngine(client)

	_, err := engine.FetchPage(context.Background(), Request{
		Resource: "events",
		Columns:  "id, title, ministry:ministries(name)",
		Filters: domain.FilterSpec{
			MatchSet:     map[string]any{"parish_id": 1, "kind": "liturgy"},
			RangeLower:   map[string]any{"starts_at": "2024-01-01"},
			PatternMatch: map[string]string{"title": "mass"},
			NullCheck:    map[string]bool{"cancelled_at": true},
			Negation:     &domain.Negation{Column: "status", Operator: domain.OpIn, Value: []any{"draft"}},
			Disjunction:  []domain.Condition{{Column: "location", Operator: domain.OpEq, Value: "hall"}},
			ActiveState:  domain.ActiveStateActive,
		},
		Order:  []domain.Order{{Column: "starts_at", Ascending: true}, {Column: "id"}},
		Window: domain.PageWindow{Page: 1, PageSize: 10},
	})
	require.NoError(t, err)

	count := client.builder(ModeCount)
	data := client.builder(ModeRows)
	require.NotNil(t, count)
	require.NotNil(t, data)

	assert.Equal(t, "events", count.resource)
	assert.Equal(t, count.resource, data.resource)
	assert.Equal(t, count.columns, data.columns)

	assert.NotEmpty(t, count.calls)
	assert.Equal(t, count.calls, filterCalls(data.calls))

	for _, c := range count.calls {
		assert.NotEqual(t, "Order", c.Method, "count query must not be ordered")
		assert.NotEqual(t, "Range", c.Method, "count query must not be limited")
	}
	assert.Equal(t, []call{
		{Method: "Order", Args: []any{"starts_at", true}},
		{Method: "Order", Args: []any{"id", false}},
		{Method: "Range", Args: []any{0, 9}},
	}, data.calls[len(data.calls)-3:])
}

func TestEngine_FetchPage_EmptyResult(t *testing.T) {
	client := &recordingClient{}
	engine := NewEngine(client)

	page, err := engine.FetchPage(context.Background(), Request{
		Resource: "polls",
		Window:   domain.PageWindow{Page: 1, PageSize: 20},
	})
	require.NoError(t, err)

	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Equal(t, int64(0), page.TotalItems)
	assert.Equal(t, 0, page.TotalPages)
	assert.False(t, page.NextPage)
}

func TestEngine_FetchPage_CountFailureSkipsDataQuery(t *testing.T) {
	backendErr := domain.NewBackendError("42P01", errors.New(`relation "orders" does not exist`))
	client := &recordingClient{countErr: backendErr}
	engine := NewEngine(client)

	page, err := engine.FetchPage(context.Background(), Request{
		Resource: "orders",
		Window:   domain.PageWindow{Page: 1, PageSize: 10},
	})
	require.Error(t, err)
	assert.Nil(t, page)

	var qerr *domain.QueryError
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, domain.QueryCount, qerr.Query)
	assert.Equal(t, "orders", qerr.Resource)
	assert.Equal(t, "42P01", qerr.Code)
	assert.Contains(t, qerr.Message, "does not exist")
	assert.ErrorIs(t, err, backendErr)

	assert.Equal(t, []Mode{ModeCount}, client.executed)
}

func TestEngine_FetchPage_DataFailure(t *testing.T) {
	client := &recordingClient{
		countResult: Result{Count: 3},
		dataErr:     errors.New("column \"nope\" does not exist"),
	}
	engine := NewEngine(client)

	_, err := engine.FetchPage(context.Background(), Request{
		Resource: "families",
		Window:   domain.PageWindow{Page: 1, PageSize: 10},
	})

	var qerr *domain.QueryError
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, domain.QueryData, qerr.Query)
	assert.Empty(t, qerr.Code)
	assert.False(t, errors.Is(err, domain.ErrCancelled))
	assert.Equal(t, []Mode{ModeCount, ModeRows}, client.executed)
}

func TestEngine_FetchPage_InvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"zero page size", Request{Resource: "events", Window: domain.PageWindow{Page: 1, PageSize: 0}}},
		{"negative page size", Request{Resource: "events", Window: domain.PageWindow{Page: 1, PageSize: -1}}},
		{"negative page", Request{Resource: "events", Window: domain.PageWindow{Page: -1, PageSize: 10}}},
		{"page offset overflows", Request{Resource: "events", Window: domain.PageWindow{Page: math.MaxInt / 10, PageSize: 100}}},
		{"missing resource", Request{Window: domain.PageWindow{Page: 1, PageSize: 10}}},
		{"order without column", Request{
			Resource: "events",
			Order:    []domain.Order{{Ascending: true}},
			Window:   domain.PageWindow{Page: 1, PageSize: 10},
		}},
		{"negation with unknown operator", Request{
			Resource: "events",
			Filters:  domain.FilterSpec{Negation: &domain.Negation{Column: "a", Operator: "approx", Value: 1}},
			Window:   domain.PageWindow{Page: 1, PageSize: 10},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &recordingClient{}
			engine := NewEngine(client)

			_, err := engine.FetchPage(context.Background(), tt.req)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
			assert.Empty(t, client.builders, "no builder may be created for an invalid request")
			assert.Empty(t, client.executed)
		})
	}
}

func TestEngine_FetchPage_CancelledContext(t *testing.T) {
	client := &recordingClient{countResult: Result{Count: 1}}
	engine := NewEngine(client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.FetchPage(ctx, Request{
		Resource: "events",
		Window:   domain.PageWindow{Page: 1, PageSize: 10},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)

	var qerr *domain.QueryError
	assert.False(t, errors.As(err, &qerr))
	assert.Empty(t, client.executed)
}

func TestEngine_FetchPage_BackendDeadline(t *testing.T) {
	client := &recordingClient{
		countResult: Result{Count: 10},
		dataErr:     context.DeadlineExceeded,
	}
	engine := NewEngine(client)

	_, err := engine.FetchPage(context.Background(), Request{
		Resource: "events",
		Window:   domain.PageWindow{Page: 1, PageSize: 10},
	})
	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var qerr *domain.QueryError
	assert.False(t, errors.As(err, &qerr))
}

func TestEngine_FetchPage_ConcurrentCalls(t *testing.T) {
	engine := NewEngine(&recordingClient{countResult: Result{Count: 4}, dataResult: Result{Rows: rowsFor(1, 2)}})

	errs := make(chan error, 16)
	for range 16 {
		go func() {
			_, err := engine.FetchPage(context.Background(), Request{
				Resource: "ministries",
				Window:   domain.PageWindow{Page: 1, PageSize: 2},
			})
			errs <- err
		}()
	}
	for range 16 {
		assert.NoError(t, <-errs)
	}
}

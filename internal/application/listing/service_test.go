package listing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rezkam/parish/internal/domain"
	"github.com/rezkam/parish/internal/listquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockPager captures the request passed to FetchPage.
type mockPager struct {
	captured    listquery.Request
	hasDeadline bool
	calls       int
	err         error
}

func (m *mockPager) FetchPage(ctx context.Context, req listquery.Request) (*domain.PageResult, error) {
	m.calls++
	m.captured = req
	_, m.hasDeadline = ctx.Deadline()
	if m.err != nil {
		return nil, m.err
	}
	return &domain.PageResult{Items: []domain.Row{}, CurrentPage: req.Window.Page, PageSize: req.Window.PageSize}, nil
}

func newTestService(pager Pager) *Service {
	return NewService(pager, DefaultCatalog(), Config{})
}

func TestList_AppliesDefaults(t *testing.T) {
	pager := &mockPager{}
	svc := newTestService(pager)

	_, err := svc.List(context.Background(), "events", Query{})
	require.NoError(t, err)

	req := pager.captured
	assert.Equal(t, "events", req.Resource)
	assert.Equal(t, domain.PageWindow{Page: 1, PageSize: DefaultPageSize}, req.Window)
	assert.Equal(t, []domain.Order{
		{Column: "starts_at", Ascending: true},
		{Column: "id", Ascending: true},
	}, req.Order)
	assert.Contains(t, req.Columns, "starts_at")
	assert.True(t, pager.hasDeadline)
}

func TestList_ClampsPageSize(t *testing.T) {
	pager := &mockPager{}
	svc := newTestService(pager)

	_, err := svc.List(context.Background(), "events", Query{Page: 3, PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, domain.PageWindow{Page: 3, PageSize: MaxPageSize}, pager.captured.Window)
}

func TestList_NegativeWindowReachesEngine(t *testing.T) {
	pager := &mockPager{}
	svc := newTestService(pager)

	_, err := svc.List(context.Background(), "events", Query{Page: -1, PageSize: -5})
	require.NoError(t, err)
	assert.Equal(t, domain.PageWindow{Page: -1, PageSize: -5}, pager.captured.Window)
}

func TestList_UnknownResource(t *testing.T) {
	pager := &mockPager{}
	svc := newTestService(pager)

	_, err := svc.List(context.Background(), "sermons", Query{})
	assert.ErrorIs(t, err, domain.ErrResourceNotFound)
	assert.Zero(t, pager.calls)
}

func TestList_RejectsColumnsOutsideCatalog(t *testing.T) {
	tests := []struct {
		name  string
		query Query
	}{
		{"select", Query{Columns: []string{"id", "password"}}},
		{"order", Query{Order: []domain.Order{{Column: "password", Ascending: true}}}},
		{"filter", Query{Filters: domain.FilterSpec{MatchSet: map[string]any{"password": "x"}}}},
		{"not filterable", Query{Filters: domain.FilterSpec{NullCheck: map[string]bool{"phone": true}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pager := &mockPager{}
			svc := newTestService(pager)

			_, err := svc.List(context.Background(), "families", tt.query)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
			assert.Zero(t, pager.calls)
		})
	}
}

func TestList_MalformedDisjunctionEntriesSkipCatalogCheck(t *testing.T) {
	pager := &mockPager{}
	svc := newTestService(pager)

	filters := domain.FilterSpec{Disjunction: []domain.Condition{
		{Column: "first_name", Operator: domain.OpEq, Value: "Ana"},
		{Column: "nickname"},
	}}
	_, err := svc.List(context.Background(), "attendees", Query{Filters: filters})
	require.NoError(t, err)
	assert.Equal(t, 1, pager.calls)

	filters.Disjunction[1] = domain.Condition{Column: "nickname", Operator: domain.OpEq, Value: "Annie"}
	_, err = svc.List(context.Background(), "attendees", Query{Filters: filters})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Equal(t, 1, pager.calls)
}

func TestList_ActiveStateNeedsConfirmedColumn(t *testing.T) {
	catalog, err := NewCatalog(Resource{Name: "sermons", Columns: []string{"id", "title"}})
	require.NoError(t, err)
	pager := &mockPager{}
	svc := NewService(pager, catalog, Config{})

	_, err = svc.List(context.Background(), "sermons", Query{Filters: domain.FilterSpec{ActiveState: domain.ActiveStateActive}})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.List(context.Background(), "sermons", Query{Filters: domain.FilterSpec{ActiveState: domain.ActiveStateAll}})
	require.NoError(t, err)
	assert.Equal(t, 1, pager.calls)
}

func TestList_PassesFiltersAndSelection(t *testing.T) {
	pager := &mockPager{}
	svc := newTestService(pager)

	filters := domain.FilterSpec{
		Equality:    []domain.EqualityClause{{Column: "role", Value: "choir"}},
		ActiveState: domain.ActiveStateActive,
	}
	_, err := svc.List(context.Background(), "attendees", Query{
		Columns: []string{"id", "first_name"},
		Order:   []domain.Order{{Column: "age", Ascending: false}},
		Filters: filters,
	})
	require.NoError(t, err)

	assert.Equal(t, "id, first_name", pager.captured.Columns)
	assert.Equal(t, []domain.Order{{Column: "age", Ascending: false}}, pager.captured.Order)
	assert.Equal(t, filters, pager.captured.Filters)
}

func TestList_PropagatesEngineErrors(t *testing.T) {
	queryErr := &domain.QueryError{Query: domain.QueryCount, Resource: "events", Message: "boom"}
	svc := newTestService(&mockPager{err: queryErr})

	_, err := svc.List(context.Background(), "events", Query{})
	var qerr *domain.QueryError
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, domain.QueryCount, qerr.Query)
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(&mockPager{}, DefaultCatalog(), Config{DefaultPageSize: -1, MaxPageSize: 0})
	assert.Equal(t, DefaultPageSize, svc.config.DefaultPageSize)
	assert.Equal(t, MaxPageSize, svc.config.MaxPageSize)
	assert.Equal(t, DefaultQueryTimeout, svc.config.QueryTimeout)
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	assert.Equal(t, []string{"announcements", "attendees", "events", "families", "ministries", "polls"}, c.Names())

	events, ok := c.Lookup("events")
	require.True(t, ok)
	assert.Equal(t, "events", events.Table)
	assert.True(t, events.CanFilter("starts_at"))
	assert.False(t, events.CanFilter("password"))
}

func TestParseCatalog(t *testing.T) {
	c, err := ParseCatalog([]byte(`
resources:
  - name: sermons
    table: homilies
    columns: [id, title, preached_at]
    default_order: preached_at.desc
    filterable: [title]
  - name: notes
`))
	require.NoError(t, err)

	sermons, ok := c.Lookup("sermons")
	require.True(t, ok)
	assert.Equal(t, "homilies", sermons.Table)
	assert.Equal(t, []domain.Order{{Column: "preached_at", Ascending: false}}, sermons.Order())
	assert.True(t, sermons.CanFilter("title"))
	assert.False(t, sermons.CanFilter("id"))

	notes, ok := c.Lookup("notes")
	require.True(t, ok)
	assert.Equal(t, "notes", notes.Table)
	assert.True(t, notes.Selectable("anything"))
	assert.False(t, notes.Selectable("drop table"))
}

func TestParseCatalog_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":        `resources: []`,
		"bad yaml":     `resources: [`,
		"bad name":     "resources:\n  - name: \"a-b\"\n",
		"bad column":   "resources:\n  - name: a\n    columns: [\"x y\"]\n",
		"bad order":    "resources:\n  - name: a\n    default_order: id.up\n",
		"order column": "resources:\n  - name: a\n    columns: [id]\n    default_order: title\n",
		"duplicate":    "resources:\n  - name: a\n  - name: a\n",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("resources:\n  - name: bulletins\n"), 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"bulletins"}, c.Names())

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestList_TimeoutBoundsCall(t *testing.T) {
	pager := &mockPager{}
	svc := NewService(pager, DefaultCatalog(), Config{QueryTimeout: time.Minute})

	_, err := svc.List(context.Background(), "polls", Query{})
	require.NoError(t, err)
	assert.True(t, pager.hasDeadline)
}

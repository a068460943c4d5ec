// Package listing exposes the portal's collections through the list-query engine.
package listing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rezkam/parish/internal/domain"
	"github.com/rezkam/parish/internal/listquery"
)

// Default configuration values.
const (
	DefaultPageSize     = 25
	MaxPageSize         = 100
	DefaultQueryTimeout = 10 * time.Second
)

// Config holds configuration for the Service.
type Config struct {
	DefaultPageSize int
	MaxPageSize     int

	// QueryTimeout bounds one List call, count and data query together.
	QueryTimeout time.Duration
}

// Pager fetches one page of a resource.
type Pager interface {
	FetchPage(ctx context.Context, req listquery.Request) (*domain.PageResult, error)
}

// Query is a caller's list request. Zero Page and PageSize select the
// first page and the default size.
type Query struct {
	Page     int
	PageSize int
	Columns  []string
	Order    []domain.Order
	Filters  domain.FilterSpec
}

// Service resolves catalog resources and runs their list queries.
type Service struct {
	pager   Pager
	catalog *Catalog
	config  Config
}

// NewService creates a listing service.
// Applies defaults for zero or invalid config values.
func NewService(pager Pager, catalog *Catalog, config Config) *Service {
	if config.DefaultPageSize <= 0 {
		config.DefaultPageSize = DefaultPageSize
	}
	if config.MaxPageSize <= 0 {
		config.MaxPageSize = MaxPageSize
	}
	if config.QueryTimeout <= 0 {
		config.QueryTimeout = DefaultQueryTimeout
	}

	return &Service{
		pager:   pager,
		catalog: catalog,
		config:  config,
	}
}

// Resources returns the names of listable resources.
func (s *Service) Resources() []string {
	return s.catalog.Names()
}

// List returns one page of the named resource.
func (s *Service) List(ctx context.Context, name string, q Query) (*domain.PageResult, error) {
	res, ok := s.catalog.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrResourceNotFound, name)
	}

	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = s.config.DefaultPageSize
	}
	q.PageSize = min(q.PageSize, s.config.MaxPageSize)

	columns, err := selectColumns(res, q.Columns)
	if err != nil {
		return nil, err
	}

	order := q.Order
	if len(order) == 0 {
		order = res.Order()
	}
	for _, o := range order {
		if !res.Selectable(o.Column) {
			return nil, fmt.Errorf("%w: cannot order %s by %q", domain.ErrInvalidArgument, name, o.Column)
		}
	}

	for _, c := range q.Filters.Columns() {
		if !res.CanFilter(c) {
			return nil, fmt.Errorf("%w: cannot filter %s by %q", domain.ErrInvalidArgument, name, c)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.QueryTimeout)
	defer cancel()

	slog.DebugContext(ctx, "Listing resource",
		"resource", name,
		"page", q.Page,
		"page_size", q.PageSize,
		"filters", q.Filters.String())

	return s.pager.FetchPage(ctx, listquery.Request{
		Resource: res.Table,
		Columns:  columns,
		Filters:  q.Filters,
		Order:    order,
		Window:   domain.PageWindow{Page: q.Page, PageSize: q.PageSize},
	})
}

// selectColumns validates requested columns and renders the selection.
// No request selects the resource's declared columns.
func selectColumns(res Resource, requested []string) (string, error) {
	if len(requested) == 0 {
		return strings.Join(res.Columns, ", "), nil
	}
	for _, c := range requested {
		if !res.Selectable(c) {
			return "", fmt.Errorf("%w: unknown column %q for %s", domain.ErrInvalidArgument, c, res.Name)
		}
	}
	return strings.Join(requested, ", "), nil
}

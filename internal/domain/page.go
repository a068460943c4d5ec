package domain

import (
	"cmp"
	"maps"
	"math"
	"slices"
	"strings"
)

// Row is one raw record returned by a backend, keyed by column name.
type Row map[string]any

// Order sorts the data query by one column.
type Order struct {
	Column    string
	Ascending bool
}

// ParseOrder parses a comma-separated list of "column.asc" or "column.desc"
// entries. A bare column sorts ascending. Empty input yields no ordering.
func ParseOrder(s string) ([]Order, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var orders []Order
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		column, dir, hasDir := strings.Cut(part, ".")
		if column == "" {
			return nil, invalidArgument("empty order column in %q", s)
		}

		o := Order{Column: column, Ascending: true}
		if hasDir {
			switch strings.ToLower(dir) {
			case "asc":
			case "desc":
				o.Ascending = false
			default:
				return nil, invalidArgument("unknown order direction %q for %s", dir, column)
			}
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// PageWindow selects one page of results. Page is 1-based.
type PageWindow struct {
	Page     int
	PageSize int
}

// Validate rejects windows that cannot produce a row range.
func (w PageWindow) Validate() error {
	if w.PageSize <= 0 {
		return invalidArgument("page size must be positive, got %d", w.PageSize)
	}
	if w.Page < 1 {
		return invalidArgument("page must be at least 1, got %d", w.Page)
	}
	if w.Page-1 > (math.MaxInt-w.PageSize)/w.PageSize {
		return invalidArgument("page %d of size %d is out of range", w.Page, w.PageSize)
	}
	return nil
}

// Range converts the window into a zero-based inclusive row range.
// Page 2 of size 10 is rows [10, 19].
func (w PageWindow) Range() (from, to int) {
	from = (w.Page - 1) * w.PageSize
	to = from + w.PageSize - 1
	return from, to
}

// PageResult is one page of rows plus pagination metadata.
type PageResult struct {
	Items       []Row `json:"items"`
	CurrentPage int   `json:"currentPage"`
	NextPage    bool  `json:"nextPage"`
	TotalPages  int   `json:"totalPages"`
	PageSize    int   `json:"pageSize"`
	TotalItems  int64 `json:"totalItems"`
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}

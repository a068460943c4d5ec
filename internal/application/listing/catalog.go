package listing

import (
	"fmt"
	"os"
	"slices"

	"github.com/rezkam/parish/internal/domain"
	"github.com/rezkam/parish/internal/listquery"
	"gopkg.in/yaml.v3"
)

// Resource is a listable portal collection.
type Resource struct {
	Name  string `yaml:"name"`
	Table string `yaml:"table"`

	// Columns are the selectable columns. Empty allows any column.
	Columns []string `yaml:"columns"`

	// DefaultOrder applies when a query has no ordering, e.g. "starts_at.asc,id.asc".
	DefaultOrder string `yaml:"default_order"`

	// Filterable restricts filter columns. Empty falls back to Columns.
	Filterable []string `yaml:"filterable"`

	order []domain.Order
}

func (r *Resource) prepare() error {
	if !listquery.ValidColumn(r.Name) {
		return fmt.Errorf("invalid resource name %q", r.Name)
	}
	if r.Table == "" {
		r.Table = r.Name
	}
	if !listquery.ValidColumn(r.Table) {
		return fmt.Errorf("resource %s: invalid table %q", r.Name, r.Table)
	}
	for _, c := range slices.Concat(r.Columns, r.Filterable) {
		if !listquery.ValidColumn(c) {
			return fmt.Errorf("resource %s: invalid column %q", r.Name, c)
		}
	}

	order, err := domain.ParseOrder(r.DefaultOrder)
	if err != nil {
		return fmt.Errorf("resource %s: default order: %w", r.Name, err)
	}
	for _, o := range order {
		if !r.Selectable(o.Column) {
			return fmt.Errorf("resource %s: default order column %q is not a column", r.Name, o.Column)
		}
	}
	r.order = order
	return nil
}

// Order returns the parsed default order.
func (r Resource) Order() []domain.Order {
	return slices.Clone(r.order)
}

// Selectable reports whether column can be selected or ordered by.
func (r Resource) Selectable(column string) bool {
	if len(r.Columns) == 0 {
		return listquery.ValidColumn(column)
	}
	return slices.Contains(r.Columns, column)
}

// CanFilter reports whether column may appear in a filter.
func (r Resource) CanFilter(column string) bool {
	if len(r.Filterable) == 0 {
		return r.Selectable(column)
	}
	return slices.Contains(r.Filterable, column)
}

// Catalog maps resource names to their definitions.
type Catalog struct {
	resources map[string]Resource
}

// NewCatalog validates resources and indexes them by name.
func NewCatalog(resources ...Resource) (*Catalog, error) {
	c := &Catalog{resources: make(map[string]Resource, len(resources))}
	for _, r := range resources {
		if err := r.prepare(); err != nil {
			return nil, err
		}
		if _, dup := c.resources[r.Name]; dup {
			return nil, fmt.Errorf("duplicate resource %q", r.Name)
		}
		c.resources[r.Name] = r
	}
	return c, nil
}

// Lookup returns the resource registered under name.
func (c *Catalog) Lookup(name string) (Resource, bool) {
	r, ok := c.resources[name]
	return r, ok
}

// Names returns the registered resource names in sorted order.
func (c *Catalog) Names() []string {
	return domain.SortedKeys(c.resources)
}

type catalogFile struct {
	Resources []Resource `yaml:"resources"`
}

// LoadCatalog reads a YAML catalog file:
//
//	resources:
//	  - name: events
//	    columns: [id, title, starts_at, confirmed]
//	    default_order: starts_at.asc
//	    filterable: [title, starts_at, confirmed]
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(f.Resources) == 0 {
		return nil, fmt.Errorf("catalog has no resources")
	}
	return NewCatalog(f.Resources...)
}

// DefaultCatalog lists the portal tables created by the bundled migrations.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(
		Resource{
			Name:         "announcements",
			Columns:      []string{"id", "title", "body", "author", "published_at", "confirmed", "created_at"},
			DefaultOrder: "published_at.desc,id.desc",
		},
		Resource{
			Name:         "ministries",
			Columns:      []string{"id", "name", "description", "leader", "confirmed", "created_at"},
			DefaultOrder: "name.asc",
		},
		Resource{
			Name: "events",
			Columns: []string{
				"id", "title", "location", "kind", "status", "capacity", "ministry_id",
				"starts_at", "ends_at", "cancelled_at", "confirmed", "created_at",
			},
			DefaultOrder: "starts_at.asc,id.asc",
		},
		Resource{
			Name:         "families",
			Columns:      []string{"id", "family_name", "email", "phone", "address", "confirmed", "created_at"},
			DefaultOrder: "family_name.asc",
			Filterable:   []string{"id", "family_name", "email", "confirmed", "created_at"},
		},
		Resource{
			Name: "attendees",
			Columns: []string{
				"id", "family_id", "event_id", "first_name", "last_name", "email",
				"age", "role", "confirmed", "created_at",
			},
			DefaultOrder: "last_name.asc,first_name.asc",
		},
		Resource{
			Name:         "polls",
			Columns:      []string{"id", "question", "status", "closes_at", "confirmed", "created_at"},
			DefaultOrder: "closes_at.asc",
		},
	)
	if err != nil {
		panic(fmt.Sprintf("listing: invalid default catalog: %v", err))
	}
	return c
}

package config

import (
	"fmt"
	"time"
)

// ListingConfig holds list endpoint configuration.
type ListingConfig struct {
	DefaultPageSize int           `env:"PARISH_DEFAULT_PAGE_SIZE" default:"25"`
	MaxPageSize     int           `env:"PARISH_MAX_PAGE_SIZE" default:"100"`
	QueryTimeout    time.Duration `env:"PARISH_QUERY_TIMEOUT" default:"10s"`

	// CatalogPath points to a YAML resource catalog. Empty uses the built-in catalog.
	CatalogPath string `env:"PARISH_CATALOG_PATH"`
}

// Validate validates listing configuration.
func (c *ListingConfig) Validate() error {
	if c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("PARISH_MAX_PAGE_SIZE (%d) must be >= PARISH_DEFAULT_PAGE_SIZE (%d)", c.MaxPageSize, c.DefaultPageSize)
	}
	return nil
}

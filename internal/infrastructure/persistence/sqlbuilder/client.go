package sqlbuilder

import "github.com/rezkam/parish/internal/listquery"

// Client opens SQL builders over an executor.
type Client struct {
	dialect Dialect
	exec    Executor
}

var _ listquery.Client = (*Client)(nil)

// NewClient creates a client rendering SQL for dialect and running it through exec.
func NewClient(dialect Dialect, exec Executor) *Client {
	return &Client{dialect: dialect, exec: exec}
}

// Select starts a query on the table named resource.
func (c *Client) Select(resource, columns string, mode listquery.Mode) listquery.Builder {
	return newBuilder(c.dialect, c.exec, resource, columns, mode)
}

// Dialect returns the client's dialect.
func (c *Client) Dialect() Dialect {
	return c.dialect
}

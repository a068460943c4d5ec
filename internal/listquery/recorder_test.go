package listquery

import (
	"context"
	"sync"

	"github.com/rezkam/parish/internal/domain"
)

// call is one recorded builder method invocation.
type call struct {
	Method string
	Args   []any
}

// recordingClient hands out builders that record every call and return
// canned results per mode.
type recordingClient struct {
	mu sync.Mutex

	builders []*recordingBuilder
	executed []Mode

	countResult Result
	countErr    error
	dataResult  Result
	dataErr     error
}

func (c *recordingClient) Select(resource, columns string, mode Mode) Builder {
	c.mu.Lock()
	defer c.mu.Unlock()

	b := &recordingBuilder{client: c, resource: resource, columns: columns, mode: mode}
	c.builders = append(c.builders, b)
	return b
}

func (c *recordingClient) builder(mode Mode) *recordingBuilder {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, b := range c.builders {
		if b.mode == mode {
			return b
		}
	}
	return nil
}

type recordingBuilder struct {
	client   *recordingClient
	resource string
	columns  string
	mode     Mode
	calls    []call
}

func (b *recordingBuilder) record(method string, args ...any) Builder {
	b.calls = append(b.calls, call{Method: method, Args: args})
	return b
}

func (b *recordingBuilder) Match(m map[string]any) Builder { return b.record("Match", m) }
func (b *recordingBuilder) Eq(column string, value any) Builder {
	return b.record("Eq", column, value)
}
func (b *recordingBuilder) Gte(column string, value any) Builder {
	return b.record("Gte", column, value)
}
func (b *recordingBuilder) Lte(column string, value any) Builder {
	return b.record("Lte", column, value)
}
func (b *recordingBuilder) ILike(column, pattern string) Builder {
	return b.record("ILike", column, pattern)
}
func (b *recordingBuilder) IsNull(column string, isNull bool) Builder {
	return b.record("IsNull", column, isNull)
}
func (b *recordingBuilder) In(column string, values []any) Builder {
	return b.record("In", column, values)
}
func (b *recordingBuilder) Not(column string, op domain.Operator, value any) Builder {
	return b.record("Not", column, op, value)
}
func (b *recordingBuilder) Or(d *Disjunction) Builder { return b.record("Or", d.String()) }
func (b *recordingBuilder) Order(column string, ascending bool) Builder {
	return b.record("Order", column, ascending)
}
func (b *recordingBuilder) Range(from, to int) Builder { return b.record("Range", from, to) }

func (b *recordingBuilder) Execute(ctx context.Context) (Result, error) {
	c := b.client
	c.mu.Lock()
	c.executed = append(c.executed, b.mode)
	c.mu.Unlock()

	if b.mode == ModeCount {
		return c.countResult, c.countErr
	}
	return c.dataResult, c.dataErr
}

// filterCalls drops ordering and range so count and data calls can be compared.
func filterCalls(calls []call) []call {
	var out []call
	for _, c := range calls {
		if c.Method == "Order" || c.Method == "Range" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Package mongodb runs list queries against MongoDB collections.
// Resources map to collections and columns to top-level document fields.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rezkam/parish/internal/domain"
	"github.com/rezkam/parish/internal/listquery"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Config holds MongoDB connection settings.
type Config struct {
	URI            string
	Database       string        // default: parish
	ConnectTimeout time.Duration // default: 10s
}

// Client opens list-query builders over one database.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ listquery.Client = (*Client)(nil)

// Open connects to MongoDB and verifies the connection with a ping.
func Open(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("%w: mongo URI is required", domain.ErrInvalidArgument)
	}
	name := cfg.Database
	if name == "" {
		name = "parish"
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cl, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := cl.Ping(ctx, readpref.Primary()); err != nil {
		_ = cl.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &Client{client: cl, db: cl.Database(name)}, nil
}

// NewClient wraps an open database handle.
func NewClient(db *mongo.Database) *Client {
	return &Client{client: db.Client(), db: db}
}

// Database returns the underlying database handle.
func (c *Client) Database() *mongo.Database {
	return c.db
}

func (c *Client) Select(resource, columns string, mode listquery.Mode) listquery.Builder {
	return newBuilder(c.db.Collection(resource), columns, mode)
}

// Ping checks that the primary is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// classify attaches server error codes.
func classify(err error) error {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code != 0 {
		return domain.NewBackendError(strconv.Itoa(int(cmdErr.Code)), err)
	}
	return err
}

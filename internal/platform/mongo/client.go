package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/tailor-market/api/internal/platform/config"
)

const defaultConnectTimeout = 10 * time.Second

// Client owns the driver client and the application database handle.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials the deployment described by cfg and verifies the primary answers.
func Connect(ctx context.Context, cfg config.MongoConfig) (*Client, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, errors.New("mongo: uri is required")
	}
	if strings.TrimSpace(cfg.Database) == "" {
		return nil, errors.New("mongo: database is required")
	}

	connectCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	return &Client{client: client, db: client.Database(cfg.Database)}, nil
}

// Database returns the application database.
func (c *Client) Database() *mongo.Database { return c.db }

// Ping checks the primary is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return WrapError("ping", c.client.Ping(ctx, readpref.Primary()))
}

// Close disconnects the driver client.
func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Disconnect(ctx)
}

// RunTransaction executes fn inside a multi-document transaction. The driver retries fn on
// transient transaction errors, so fn must not keep state between attempts.
func (c *Client) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	session, err := c.client.StartSession()
	if err != nil {
		return WrapError("transaction.start", err)
	}
	defer session.EndSession(ctx)

	var fnErr error
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		fnErr = fn(sc, &Tx{sc: sc})
		return nil, fnErr
	})
	if err != nil && fnErr != nil && errors.Is(err, fnErr) {
		return fnErr
	}
	return WrapError("transaction", err)
}

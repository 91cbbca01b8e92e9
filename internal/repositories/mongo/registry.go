// Package mongo implements the repositories on a MongoDB replica set. Units of work map to
// multi-document transactions, so the deployment must run as a replica set.
package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	pmongo "github.com/tailor-market/api/internal/platform/mongo"
	"github.com/tailor-market/api/internal/repositories"
)

// Registry wires the mongo repositories to one client.
type Registry struct {
	client *pmongo.Client
	db     *mongo.Database
	health repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry builds the mongo repositories. extraChecks join the readiness probe.
func NewRegistry(client *pmongo.Client, extraChecks ...repositories.DependencyCheck) (*Registry, error) {
	if client == nil {
		return nil, errors.New("mongo registry: client is required")
	}
	checks := append([]repositories.DependencyCheck{{Name: pmongo.BackendName, Check: client.Ping}}, extraChecks...)
	health, err := repositories.NewDependencyHealthRepository(checks)
	if err != nil {
		return nil, err
	}
	return &Registry{client: client, db: client.Database(), health: health}, nil
}

// EnsureIndexes creates the indexes the list queries rely on.
func (r *Registry) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		cartsCollection: {
			{Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "createdAt", Value: 1}}},
			{
				Keys: bson.D{
					{Key: "clientId", Value: 1}, {Key: "designId", Value: 1}, {Key: "materialId", Value: 1},
					{Key: "sizeId", Value: 1}, {Key: "colorId", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
		},
		ordersCollection: {
			{Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "designerId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		transactionsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
	for name, models := range indexes {
		if _, err := r.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return pmongo.WrapError(name+".indexes", err)
		}
	}
	return nil
}

// RunInTx runs fn inside a session transaction.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context, tx repositories.Tx) error) error {
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *pmongo.Tx) error {
		return fn(ctx, tx)
	})
}

func (r *Registry) Close(ctx context.Context) error { return r.client.Close(ctx) }

func (r *Registry) Designs() repositories.DesignRepository {
	return designRepository{r.db.Collection(designsCollection)}
}

func (r *Registry) Carts() repositories.CartRepository {
	return cartRepository{r.db.Collection(cartsCollection)}
}

func (r *Registry) Orders() repositories.OrderRepository {
	return orderRepository{r.db.Collection(ordersCollection)}
}

func (r *Registry) Transactions() repositories.TransactionRepository {
	return transactionRepository{r.db.Collection(transactionsCollection)}
}

func (r *Registry) Wallets() repositories.WalletRepository {
	return walletRepository{r.db.Collection(usersCollection)}
}

func (r *Registry) Health() repositories.HealthRepository { return r.health }

package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/tailor-market/api/internal/platform/firestore"
	"github.com/tailor-market/api/internal/repositories"
)

// Registry wires every Firestore repository to one provider.
type Registry struct {
	provider     *pfirestore.Provider
	designs      *DesignRepository
	carts        *CartRepository
	orders       *OrderRepository
	transactions *TransactionRepository
	wallets      *WalletRepository
	health       repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry builds the Firestore repositories. extraChecks are added to the readiness probe
// next to the Firestore ping.
func NewRegistry(provider *pfirestore.Provider, extraChecks ...repositories.DependencyCheck) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore registry: provider is required")
	}
	designs, err := NewDesignRepository(provider)
	if err != nil {
		return nil, err
	}
	carts, err := NewCartRepository(provider)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	transactions, err := NewTransactionRepository(provider)
	if err != nil {
		return nil, err
	}
	wallets, err := NewWalletRepository(provider)
	if err != nil {
		return nil, err
	}

	checks := append([]repositories.DependencyCheck{{Name: pfirestore.BackendName, Check: provider.Ping}}, extraChecks...)
	health, err := repositories.NewDependencyHealthRepository(checks)
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider:     provider,
		designs:      designs,
		carts:        carts,
		orders:       orders,
		transactions: transactions,
		wallets:      wallets,
		health:       health,
	}, nil
}

// RunInTx runs fn inside a staged Firestore transaction.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context, tx repositories.Tx) error) error {
	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *pfirestore.Tx) error {
		return fn(ctx, tx)
	})
}

func (r *Registry) Close(ctx context.Context) error { return r.provider.Close(ctx) }

func (r *Registry) Designs() repositories.DesignRepository           { return r.designs }
func (r *Registry) Carts() repositories.CartRepository               { return r.carts }
func (r *Registry) Orders() repositories.OrderRepository             { return r.orders }
func (r *Registry) Transactions() repositories.TransactionRepository { return r.transactions }
func (r *Registry) Wallets() repositories.WalletRepository           { return r.wallets }
func (r *Registry) Health() repositories.HealthRepository            { return r.health }

// DesignWriter exposes design seeding for tooling and integration tests.
func (r *Registry) DesignWriter() *DesignRepository { return r.designs }

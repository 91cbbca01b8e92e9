//go:build integration

package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/tailor-market/api/internal/domain"
	"github.com/tailor-market/api/internal/platform/config"
	pmongo "github.com/tailor-market/api/internal/platform/mongo"
	"github.com/tailor-market/api/internal/repositories"
	"github.com/tailor-market/api/internal/testutil"
)

func newIntegrationRegistry(t *testing.T) *Registry {
	t.Helper()
	uri := testutil.StartMongoReplicaSet(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client, err := pmongo.Connect(ctx, config.MongoConfig{URI: uri, Database: "tailor_test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	reg, err := NewRegistry(client)
	require.NoError(t, err)
	require.NoError(t, reg.EnsureIndexes(ctx))
	return reg
}

func seedUser(t *testing.T, reg *Registry, id string, balance int64) {
	t.Helper()
	doc := userDocument{ID: id, Status: string(domain.UserStatusActive)}
	doc.Wallet.Main = balance
	_, err := reg.db.Collection(usersCollection).InsertOne(context.Background(), doc)
	require.NoError(t, err)
}

func TestRegistryUnitOfWorkCommitsAndRollsBack(t *testing.T) {
	reg := newIntegrationRegistry(t)
	ctx := context.Background()
	seedUser(t, reg, "u1", 1000)
	now := time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC)

	err := reg.RunInTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if err := reg.Orders().Insert(ctx, tx, domain.Order{ID: "o1", ClientID: "u1", Total: 400, Status: domain.OrderStatusProcessing, CreatedAt: now}); err != nil {
			return err
		}
		return reg.Wallets().SetBalance(ctx, tx, "u1", 600, now)
	})
	require.NoError(t, err)

	wallet, err := reg.Wallets().Get(ctx, nil, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 600, wallet.Main)

	boom := errors.New("boom")
	err = reg.RunInTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		require.NoError(t, reg.Orders().Insert(ctx, tx, domain.Order{ID: "o2", ClientID: "u1", CreatedAt: now}))
		require.NoError(t, reg.Wallets().SetBalance(ctx, tx, "u1", 0, now))
		return boom
	})
	require.ErrorIs(t, err, boom)

	wallet, err = reg.Wallets().Get(ctx, nil, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 600, wallet.Main)

	var repoErr repositories.RepositoryError
	_, err = reg.Orders().FindByID(ctx, nil, "o2")
	require.ErrorAs(t, err, &repoErr)
	assert.True(t, repoErr.IsNotFound())
}

func TestRegistryTransactionFilters(t *testing.T) {
	reg := newIntegrationRegistry(t)
	ctx := context.Background()
	base := time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC)

	for i, seed := range []struct {
		id     string
		amount int64
	}{{"ta", 100}, {"tb", 250}, {"tc", 900}} {
		require.NoError(t, reg.Transactions().Append(ctx, nil, domain.Transaction{
			ID:        seed.id,
			UserID:    "u1",
			Amount:    seed.amount,
			Action:    domain.TransactionActionDebit,
			Type:      domain.TransactionTypeOrder,
			Platform:  domain.PlatformWallet,
			Status:    domain.TransactionStatusSuccess,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	minAmount, maxAmount := int64(200), int64(900)
	page, err := reg.Transactions().List(ctx, repositories.TransactionListFilter{
		UserID:    "u1",
		MinAmount: &minAmount,
		MaxAmount: &maxAmount,
		Sort:      domain.SortAsc,
		Limit:     10,
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "tb", page.Items[0].ID)
	assert.Equal(t, "tc", page.Items[1].ID)
}

func TestRegistryHealth(t *testing.T) {
	reg := newIntegrationRegistry(t)
	report, err := reg.Health().Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.HealthStatusOK, report.Status)
	assert.Contains(t, report.Checks, pmongo.BackendName)
}

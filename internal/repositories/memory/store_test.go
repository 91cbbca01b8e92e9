package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/tailor-market/api/internal/domain"
	"github.com/tailor-market/api/internal/repositories"
)

type foreignTx struct{}

func (foreignTx) Backend() string { return "firestore" }

func TestRunInTxCommitsJournal(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.PutWallet(domain.Wallet{UserID: "u1", Main: 100, UserStatus: domain.UserStatusActive})

	err := store.RunInTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if err := store.Orders().Insert(ctx, tx, domain.Order{ID: "o1", ClientID: "u1"}); err != nil {
			return err
		}
		if err := store.Wallets().SetBalance(ctx, tx, "u1", 40, time.Unix(10, 0)); err != nil {
			return err
		}
		// Reads inside the unit of work observe its own writes.
		wallet, err := store.Wallets().Get(ctx, tx, "u1")
		require.NoError(t, err)
		assert.EqualValues(t, 40, wallet.Main)

		// Outside readers do not.
		outside, err := store.Wallets().Get(ctx, nil, "u1")
		require.NoError(t, err)
		assert.EqualValues(t, 100, outside.Main)
		return nil
	})
	require.NoError(t, err)

	wallet, err := store.Wallets().Get(ctx, nil, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 40, wallet.Main)
	_, err = store.Orders().FindByID(ctx, nil, "o1")
	require.NoError(t, err)
}

func TestRunInTxDiscardsOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.PutWallet(domain.Wallet{UserID: "u1", Main: 100})
	boom := errors.New("boom")

	err := store.RunInTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		require.NoError(t, store.Orders().Insert(ctx, tx, domain.Order{ID: "o1"}))
		require.NoError(t, store.Wallets().SetBalance(ctx, tx, "u1", 0, time.Now()))
		require.NoError(t, store.Transactions().Append(ctx, tx, domain.Transaction{ID: "t1", UserID: "u1"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	var repoErr repositories.RepositoryError
	_, err = store.Orders().FindByID(ctx, nil, "o1")
	require.ErrorAs(t, err, &repoErr)
	assert.True(t, repoErr.IsNotFound())

	_, err = store.Transactions().FindByID(ctx, nil, "t1")
	require.ErrorAs(t, err, &repoErr)
	assert.True(t, repoErr.IsNotFound())

	wallet, err := store.Wallets().Get(ctx, nil, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 100, wallet.Main)
}

func TestRunInTxCommitConflict(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	err := store.RunInTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if err := store.Orders().Insert(ctx, tx, domain.Order{ID: "o1"}); err != nil {
			return err
		}
		// A concurrent writer outside the unit of work takes the same id first.
		return store.Orders().Insert(ctx, nil, domain.Order{ID: "o1"})
	})
	var repoErr repositories.RepositoryError
	require.ErrorAs(t, err, &repoErr)
	assert.True(t, repoErr.IsConflict())
}

func TestRejectsForeignAndFinishedHandles(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	_, err := store.Orders().FindByID(ctx, foreignTx{}, "o1")
	require.ErrorContains(t, err, "foreign transaction handle")

	var leaked repositories.Tx
	require.NoError(t, store.RunInTx(ctx, func(_ context.Context, tx repositories.Tx) error {
		leaked = tx
		return nil
	}))
	err = store.Orders().Insert(ctx, leaked, domain.Order{ID: "o2"})
	require.ErrorContains(t, err, "already finished")
}

func TestTransactionListFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	base := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	for i, amount := range []int64{100, 200, 300, 400} {
		txn := domain.Transaction{
			ID:        string(rune('a' + i)),
			UserID:    "u1",
			Amount:    amount,
			Type:      domain.TransactionTypeWallet,
			Status:    domain.TransactionStatusSuccess,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, store.Transactions().Append(ctx, nil, txn))
	}
	require.NoError(t, store.Transactions().Append(ctx, nil, domain.Transaction{ID: "z", UserID: "u2", CreatedAt: base}))

	minAmount := int64(200)
	result, err := store.Transactions().List(ctx, repositories.TransactionListFilter{
		UserID:    "u1",
		MinAmount: &minAmount,
		MaxDate:   base.Add(2 * time.Hour),
		Sort:      domain.SortDesc,
		Limit:     1,
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "c", result.Items[0].ID)
	assert.True(t, result.HasMore)

	result, err = store.Transactions().List(ctx, repositories.TransactionListFilter{
		UserID: "u1", MinAmount: &minAmount, MaxDate: base.Add(2 * time.Hour), Sort: domain.SortDesc, Limit: 1, Offset: 1,
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "b", result.Items[0].ID)
	assert.False(t, result.HasMore)
}

func TestCartListOrderingAndRemoval(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	at := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	carts := store.Carts()
	require.NoError(t, carts.Insert(ctx, domain.CartItem{ID: "b", ClientID: "c1", SizeID: "s", CreatedAt: at}))
	require.NoError(t, carts.Insert(ctx, domain.CartItem{ID: "a", ClientID: "c1", SizeID: "m", CreatedAt: at}))
	require.NoError(t, carts.Insert(ctx, domain.CartItem{ID: "0", ClientID: "c1", SizeID: "l", CreatedAt: at.Add(time.Minute)}))
	require.NoError(t, carts.Insert(ctx, domain.CartItem{ID: "x", ClientID: "c2", CreatedAt: at}))

	items, err := carts.ListByClient(ctx, "c1")
	require.NoError(t, err)
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []string{"a", "b", "0"}, ids)

	require.NoError(t, carts.RemoveByClient(ctx, nil, "c1", []string{"a", "x"}))
	items, err = carts.ListByClient(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, items, 2)
	others, err := carts.ListByClient(ctx, "c2")
	require.NoError(t, err)
	assert.Len(t, others, 1, "removal is scoped to the client")
}

func TestCartInsertRejectsSecondLineForSelection(t *testing.T) {
	ctx := context.Background()
	carts := NewStore().Carts()
	line := domain.CartItem{ID: "a", ClientID: "c1", DesignID: "d1", MaterialID: "m1", SizeID: "s", ColorID: "blue"}
	require.NoError(t, carts.Insert(ctx, line))

	dup := line
	dup.ID = "b"
	err := carts.Insert(ctx, dup)
	var repoErr repositories.RepositoryError
	require.ErrorAs(t, err, &repoErr)
	assert.True(t, repoErr.IsConflict())

	other := line
	other.ID, other.ClientID = "c", "c2"
	require.NoError(t, carts.Insert(ctx, other))
}

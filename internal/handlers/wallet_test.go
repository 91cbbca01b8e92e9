package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/tailor-market/api/internal/domain"
	"github.com/tailor-market/api/internal/services"
)

func walletRouter(uid string, ledger services.WalletLedger) http.Handler {
	return NewRouter(
		WithMiddlewares(withIdentity(uid, "client")),
		WithWalletRoutes(NewWalletHandlers(nil, ledger).Routes),
		WithInternalRoutes(NewInternalTransactionHandlers(ledger).Routes),
	)
}

func TestWalletBalance(t *testing.T) {
	ledger := &stubWalletLedger{balanceFn: func(_ context.Context, userID string) (services.Wallet, error) {
		return services.Wallet{UserID: userID, Main: 2500}, nil
	}}

	rr := doRequest(t, walletRouter("client-1", ledger), http.MethodGet, "/api/v1/wallet", "")

	require.Equal(t, http.StatusOK, rr.Code)
	var resp walletPayload
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "client-1", resp.UserID)
	assert.Equal(t, int64(2500), resp.Main)
}

func TestWalletBalanceMissingUser(t *testing.T) {
	ledger := &stubWalletLedger{balanceFn: func(_ context.Context, userID string) (services.Wallet, error) {
		return services.Wallet{}, &services.NotFoundError{Entity: services.EntityUser, ID: userID}
	}}

	rr := doRequest(t, walletRouter("ghost", ledger), http.MethodGet, "/api/v1/wallet", "")

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "user_not_found", decodeError(t, rr).Code)
}

func TestListTransactionsParsesFilters(t *testing.T) {
	var got services.TransactionListFilter
	ledger := &stubWalletLedger{listFn: func(_ context.Context, filter services.TransactionListFilter) (domain.Page[services.Transaction], error) {
		got = filter
		return domain.Page[services.Transaction]{Items: []services.Transaction{{ID: "txn_1"}}, Limit: filter.Limit}, nil
	}}

	query := url.Values{
		"minDate":   {"2024-01-01T00:00:00Z"},
		"maxAmount": {"5000"},
		"action":    {"debit"},
		"platform":  {"WALLET"},
		"limit":     {"500"},
	}
	rr := doRequest(t, walletRouter("client-1", ledger), http.MethodGet, "/api/v1/wallet/transactions?"+query.Encode(), "")

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "client-1", got.UserID)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), got.MinDate)
	assert.True(t, got.MaxDate.IsZero())
	assert.Nil(t, got.MinAmount)
	require.NotNil(t, got.MaxAmount)
	assert.Equal(t, int64(5000), *got.MaxAmount)
	assert.Equal(t, domain.TransactionActionDebit, got.Action)
	assert.Equal(t, "WALLET", got.Platform)
	assert.Equal(t, 100, got.Limit)
	assert.Equal(t, domain.SortDesc, got.Sort)
}

func TestListTransactionsRejectsBadDate(t *testing.T) {
	ledger := &stubWalletLedger{}
	rr := doRequest(t, walletRouter("client-1", ledger), http.MethodGet, "/api/v1/wallet/transactions?maxDate=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetTransactionScopesToCaller(t *testing.T) {
	ledger := &stubWalletLedger{getFn: func(_ context.Context, txnID, userID string) (services.Transaction, error) {
		assert.Equal(t, "txn_1", txnID)
		assert.Equal(t, "client-1", userID)
		return services.Transaction{ID: txnID, Amount: 700, Status: domain.TransactionStatusSuccess}, nil
	}}

	rr := doRequest(t, walletRouter("client-1", ledger), http.MethodGet, "/api/v1/wallet/transactions/txn_1", "")

	require.Equal(t, http.StatusOK, rr.Code)
	var resp transactionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, int64(700), resp.Transaction.Amount)
}

func TestReconcileTransaction(t *testing.T) {
	ledger := &stubWalletLedger{reconcileFn: func(_ context.Context, txnID string, status services.TransactionStatus) (services.Transaction, error) {
		assert.Equal(t, domain.TransactionStatusSuccess, status)
		return services.Transaction{ID: txnID, Status: status}, nil
	}}

	rr := doRequest(t, walletRouter("", ledger), http.MethodPost, "/api/v1/internal/transactions/txn_1:reconcile", `{"status":"success"}`)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"status":"SUCCESS"`)
}

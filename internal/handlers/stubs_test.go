package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/tailor-market/api/internal/domain"
	"github.com/tailor-market/api/internal/platform/auth"
	"github.com/tailor-market/api/internal/platform/httpx"
	"github.com/tailor-market/api/internal/repositories"
	"github.com/tailor-market/api/internal/services"
)

type stubCheckoutService struct {
	checkoutFn func(ctx context.Context, cmd services.CheckoutCommand) ([]services.Order, error)
}

func (s *stubCheckoutService) Checkout(ctx context.Context, cmd services.CheckoutCommand) ([]services.Order, error) {
	return s.checkoutFn(ctx, cmd)
}

type stubCartService struct {
	itemsFn  func(ctx context.Context, clientID string) ([]services.CartItem, error)
	createFn func(ctx context.Context, cmd services.CreateCartItemCommand) (services.CartItem, error)
	updateFn func(ctx context.Context, cmd services.UpdateCartItemCommand) (services.CartItem, error)
	removeFn func(ctx context.Context, clientID, itemID string) error
	getFn    func(ctx context.Context, clientID, itemID string) (services.CartItem, error)
}

func (s *stubCartService) ItemsFor(ctx context.Context, clientID string) ([]services.CartItem, error) {
	return s.itemsFn(ctx, clientID)
}

func (s *stubCartService) Clear(context.Context, repositories.Tx, string, []string) error {
	return nil
}

func (s *stubCartService) Create(ctx context.Context, cmd services.CreateCartItemCommand) (services.CartItem, error) {
	return s.createFn(ctx, cmd)
}

func (s *stubCartService) UpdateQuantity(ctx context.Context, cmd services.UpdateCartItemCommand) (services.CartItem, error) {
	return s.updateFn(ctx, cmd)
}

func (s *stubCartService) Remove(ctx context.Context, clientID, itemID string) error {
	return s.removeFn(ctx, clientID, itemID)
}

func (s *stubCartService) Get(ctx context.Context, clientID, itemID string) (services.CartItem, error) {
	return s.getFn(ctx, clientID, itemID)
}

type stubOrderLifecycle struct {
	setStatusFn   func(ctx context.Context, cmd services.SetOrderStatusCommand) (services.Order, error)
	cancelFn      func(ctx context.Context, cmd services.CancelOrderCommand) (services.Order, error)
	completeJobFn func(ctx context.Context, cmd services.CompleteJobCommand) (services.Order, error)
	getFn         func(ctx context.Context, orderID string) (services.Order, error)
	listFn        func(ctx context.Context, filter services.OrderListFilter) (domain.Page[services.Order], error)
}

func (s *stubOrderLifecycle) SetStatus(ctx context.Context, cmd services.SetOrderStatusCommand) (services.Order, error) {
	return s.setStatusFn(ctx, cmd)
}

func (s *stubOrderLifecycle) Cancel(ctx context.Context, cmd services.CancelOrderCommand) (services.Order, error) {
	return s.cancelFn(ctx, cmd)
}

func (s *stubOrderLifecycle) CompleteJob(ctx context.Context, cmd services.CompleteJobCommand) (services.Order, error) {
	return s.completeJobFn(ctx, cmd)
}

func (s *stubOrderLifecycle) GetOrder(ctx context.Context, orderID string) (services.Order, error) {
	return s.getFn(ctx, orderID)
}

func (s *stubOrderLifecycle) ListOrders(ctx context.Context, filter services.OrderListFilter) (domain.Page[services.Order], error) {
	return s.listFn(ctx, filter)
}

type stubWalletLedger struct {
	balanceFn   func(ctx context.Context, userID string) (services.Wallet, error)
	listFn      func(ctx context.Context, filter services.TransactionListFilter) (domain.Page[services.Transaction], error)
	getFn       func(ctx context.Context, txnID, userID string) (services.Transaction, error)
	reconcileFn func(ctx context.Context, txnID string, status services.TransactionStatus) (services.Transaction, error)
}

func (s *stubWalletLedger) UpdateWallet(context.Context, repositories.Tx, services.WalletUpdate) (services.Transaction, error) {
	return services.Transaction{}, nil
}

func (s *stubWalletLedger) Debit(context.Context, repositories.Tx, string, int64, string) (services.Transaction, error) {
	return services.Transaction{}, nil
}

func (s *stubWalletLedger) Credit(context.Context, repositories.Tx, string, int64, string) (services.Transaction, error) {
	return services.Transaction{}, nil
}

func (s *stubWalletLedger) Balance(ctx context.Context, userID string) (services.Wallet, error) {
	return s.balanceFn(ctx, userID)
}

func (s *stubWalletLedger) ListTransactions(ctx context.Context, filter services.TransactionListFilter) (domain.Page[services.Transaction], error) {
	return s.listFn(ctx, filter)
}

func (s *stubWalletLedger) GetTransaction(ctx context.Context, txnID, userID string) (services.Transaction, error) {
	return s.getFn(ctx, txnID, userID)
}

func (s *stubWalletLedger) ReconcileTransaction(ctx context.Context, txnID string, status services.TransactionStatus) (services.Transaction, error) {
	return s.reconcileFn(ctx, txnID, status)
}

// withIdentity stands in for the Firebase middleware.
func withIdentity(uid string, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if uid == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := auth.WithIdentity(r.Context(), &auth.Identity{UID: uid, Roles: roles})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) httpx.Error {
	t.Helper()
	var payload httpx.Error
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	return payload
}

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/tailor-market/api/internal/domain"
	"github.com/tailor-market/api/internal/repositories"
	"github.com/tailor-market/api/internal/repositories/memory"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func sequentialIDs() func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%04d", n)
	}
}

func agbadaDesign() domain.Design {
	return domain.Design{
		ID:         "dsg_agbada",
		Title:      "Agbada",
		DesignerID: "designer_1",
		Duration:   14,
		Status:     domain.DesignStatusActive,
		Materials: []domain.Material{{
			ID:     "mat_aso_oke",
			Fabric: "Aso Oke",
			Sizes: []domain.Size{
				{ID: "size_m", Value: "M", Price: 5000},
				{ID: "size_l", Value: "L", Price: 6500},
			},
			Colors: []domain.Color{
				{ID: "col_indigo", Value: "Indigo", Images: []string{"indigo-front.png", "indigo-back.png"}},
			},
		}},
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []OrderEvent
	err    error
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, event OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, event := range p.events {
		out = append(out, event.Type)
	}
	return out
}

// failingCommitUnit runs the callback against the store and then reports a commit failure, so the
// callback's writes are discarded.
type failingCommitUnit struct {
	store *memory.Store
	err   error
}

func (u failingCommitUnit) RunInTx(ctx context.Context, fn func(ctx context.Context, tx repositories.Tx) error) error {
	err := u.store.RunInTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return u.err
	})
	return err
}

// countingUnit counts the units of work opened through it.
type countingUnit struct {
	repositories.UnitOfWork
	mu    sync.Mutex
	opens int
}

func (u *countingUnit) RunInTx(ctx context.Context, fn func(ctx context.Context, tx repositories.Tx) error) error {
	u.mu.Lock()
	u.opens++
	u.mu.Unlock()
	return u.UnitOfWork.RunInTx(ctx, fn)
}

func (u *countingUnit) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.opens
}

type harness struct {
	store     *memory.Store
	unit      *countingUnit
	catalog   CatalogResolver
	cart      CartService
	ledger    WalletLedger
	payments  PaymentRouter
	factory   OrderFactory
	checkout  CheckoutService
	lifecycle OrderLifecycle
	events    *recordingPublisher
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	clearCart  bool
	replicated bool
	unit       func(*memory.Store) repositories.UnitOfWork
}

func withClearCart() harnessOption { return func(c *harnessConfig) { c.clearCart = true } }

func withReplicatedLedger() harnessOption { return func(c *harnessConfig) { c.replicated = true } }

func withUnitOfWork(build func(*memory.Store) repositories.UnitOfWork) harnessOption {
	return func(c *harnessConfig) { c.unit = build }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	cfg := harnessConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	store := memory.NewStore()
	store.PutDesign(agbadaDesign())

	var base repositories.UnitOfWork = store
	if cfg.unit != nil {
		base = cfg.unit(store)
	}
	unit := &countingUnit{UnitOfWork: base}
	ids := sequentialIDs()
	events := &recordingPublisher{}

	catalog, err := NewCatalogResolver(CatalogResolverDeps{Designs: store.Designs()})
	require.NoError(t, err)
	cart, err := NewCartService(CartServiceDeps{Carts: store.Carts(), Catalog: catalog, Clock: fixedClock, IDGenerator: ids})
	require.NoError(t, err)
	ledger, err := NewWalletLedger(WalletLedgerDeps{
		Wallets:      store.Wallets(),
		Transactions: store.Transactions(),
		UnitOfWork:   unit,
		Replicated:   cfg.replicated,
		Clock:        fixedClock,
		IDGenerator:  ids,
	})
	require.NoError(t, err)
	payments, err := NewPaymentRouter(PaymentRouterDeps{Ledger: ledger, Transactions: store.Transactions(), Clock: fixedClock, IDGenerator: ids})
	require.NoError(t, err)
	factory := NewOrderFactory(OrderFactoryDeps{DeliveryFee: DefaultDeliveryFee, Clock: fixedClock, IDGenerator: ids})
	checkout, err := NewCheckoutService(CheckoutServiceDeps{
		UnitOfWork: unit,
		Orders:     store.Orders(),
		Cart:       cart,
		Catalog:    catalog,
		Factory:    factory,
		Payments:   payments,
		ClearCart:  cfg.clearCart,
		Events:     events,
	})
	require.NoError(t, err)
	lifecycle, err := NewOrderLifecycle(OrderLifecycleDeps{Orders: store.Orders(), UnitOfWork: unit, Clock: fixedClock, Events: events})
	require.NoError(t, err)

	return &harness{
		store:     store,
		unit:      unit,
		catalog:   catalog,
		cart:      cart,
		ledger:    ledger,
		payments:  payments,
		factory:   factory,
		checkout:  checkout,
		lifecycle: lifecycle,
		events:    events,
	}
}

func (h *harness) fundWallet(userID string, balance int64) {
	h.store.PutWallet(domain.Wallet{UserID: userID, Main: balance, UserStatus: domain.UserStatusActive})
}

func (h *harness) addToCart(t *testing.T, clientID, sizeID string, quantity int) CartItem {
	t.Helper()
	item, err := h.cart.Create(context.Background(), CreateCartItemCommand{
		ClientID:   clientID,
		DesignID:   "dsg_agbada",
		MaterialID: "mat_aso_oke",
		SizeID:     sizeID,
		ColorID:    "col_indigo",
		Quantity:   quantity,
	})
	require.NoError(t, err)
	return item
}

func (h *harness) allOrders(t *testing.T) []Order {
	t.Helper()
	page, err := h.store.Orders().List(context.Background(), repositories.OrderListFilter{})
	require.NoError(t, err)
	return page.Items
}

func (h *harness) allTransactions(t *testing.T) []Transaction {
	t.Helper()
	page, err := h.store.Transactions().List(context.Background(), repositories.TransactionListFilter{})
	require.NoError(t, err)
	return page.Items
}

func (h *harness) balance(t *testing.T, userID string) int64 {
	t.Helper()
	wallet, err := h.store.Wallets().Get(context.Background(), nil, userID)
	require.NoError(t, err)
	return wallet.Main
}

func homeDelivery() Delivery {
	return Delivery{Pickup: domain.PickupHome, Address: "12 Marina Road, Lagos", Phone: "+234-803-5550101"}
}

func stationDelivery() Delivery {
	return Delivery{Pickup: domain.PickupStation, Address: "Yaba pickup station", Phone: "(803)555-0101"}
}

var errCommitFailed = errors.New("commit failed")

package services

import (
	"context"
	"time"

	domain "github.com/tailor-market/api/internal/domain"
	"github.com/tailor-market/api/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Design            = domain.Design
	CartItem          = domain.CartItem
	Delivery          = domain.Delivery
	PickupMethod      = domain.PickupMethod
	Job               = domain.Job
	Order             = domain.Order
	OrderStatus       = domain.OrderStatus
	Transaction       = domain.Transaction
	TransactionAction = domain.TransactionAction
	TransactionStatus = domain.TransactionStatus
	Wallet            = domain.Wallet
	SortOrder         = domain.SortOrder

	OrderListFilter       = repositories.OrderListFilter
	TransactionListFilter = repositories.TransactionListFilter
)

// CatalogResolver prices one cart line against the catalog.
type CatalogResolver interface {
	ResolveLine(ctx context.Context, tx repositories.Tx, ref LineRef) (LineSnapshot, error)
}

// CartService owns a client's pending cart lines.
type CartService interface {
	ItemsFor(ctx context.Context, clientID string) ([]CartItem, error)
	Clear(ctx context.Context, tx repositories.Tx, clientID string, itemIDs []string) error
	Create(ctx context.Context, cmd CreateCartItemCommand) (CartItem, error)
	UpdateQuantity(ctx context.Context, cmd UpdateCartItemCommand) (CartItem, error)
	Remove(ctx context.Context, clientID, itemID string) error
	Get(ctx context.Context, clientID, itemID string) (CartItem, error)
}

// WalletLedger moves wallet balances and records every posting in the transaction ledger.
type WalletLedger interface {
	UpdateWallet(ctx context.Context, tx repositories.Tx, update WalletUpdate) (Transaction, error)
	Debit(ctx context.Context, tx repositories.Tx, userID string, amount int64, item string) (Transaction, error)
	Credit(ctx context.Context, tx repositories.Tx, userID string, amount int64, item string) (Transaction, error)
	Balance(ctx context.Context, userID string) (Wallet, error)
	ListTransactions(ctx context.Context, filter TransactionListFilter) (domain.Page[Transaction], error)
	GetTransaction(ctx context.Context, txnID, userID string) (Transaction, error)
	ReconcileTransaction(ctx context.Context, txnID string, status TransactionStatus) (Transaction, error)
}

// PaymentRouter charges an order either from the wallet or against an external reference.
type PaymentRouter interface {
	ValidatePayment(platform, reference string) error
	Pay(ctx context.Context, tx repositories.Tx, req PaymentRequest) (Transaction, error)
}

// OrderFactory turns a cart line and its catalog snapshot into a new order.
type OrderFactory interface {
	Build(item CartItem, snapshot LineSnapshot, delivery Delivery) Order
	DeliveryFee(delivery Delivery) int64
}

// CheckoutService converts a client's cart into paid orders in one unit of work.
type CheckoutService interface {
	Checkout(ctx context.Context, cmd CheckoutCommand) ([]Order, error)
}

// OrderLifecycle advances committed orders.
type OrderLifecycle interface {
	SetStatus(ctx context.Context, cmd SetOrderStatusCommand) (Order, error)
	Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error)
	CompleteJob(ctx context.Context, cmd CompleteJobCommand) (Order, error)
	GetOrder(ctx context.Context, orderID string) (Order, error)
	ListOrders(ctx context.Context, filter OrderListFilter) (domain.Page[Order], error)
}

// SystemService reports dependency health and build metadata for probes.
type SystemService interface {
	HealthReport(ctx context.Context) (domain.HealthReport, error)
}

// LineRef identifies the catalog selection of one cart line.
type LineRef struct {
	DesignID   string
	MaterialID string
	SizeID     string
	ColorID    string
}

// LineSnapshot is the catalog data frozen into an order job.
type LineSnapshot struct {
	DesignID   string
	DesignerID string
	Fabric     string
	SizeValue  string
	Price      int64
	ColorValue string
	Images     []string
}

// CreateCartItemCommand adds a selection to the client's cart.
type CreateCartItemCommand struct {
	ClientID     string
	DesignID     string
	MaterialID   string
	SizeID       string
	ColorID      string
	Quantity     int
	ShippingCost int64
}

// UpdateCartItemCommand changes the quantity of an existing cart line.
type UpdateCartItemCommand struct {
	ClientID string
	ItemID   string
	Quantity int
}

// WalletUpdate describes one wallet posting.
type WalletUpdate struct {
	UserID string
	Action TransactionAction
	Amount int64
	Item   string
}

// PaymentRequest charges Amount to UserID for Item.
type PaymentRequest struct {
	UserID    string
	Amount    int64
	Platform  string
	Reference string
	Item      string
}

// CheckoutCommand requests checkout of every item in the client's cart.
type CheckoutCommand struct {
	ClientID  string
	Delivery  Delivery
	Platform  string
	Reference string
}

// SetOrderStatusCommand is an administrative status override.
type SetOrderStatusCommand struct {
	OrderID string
	Status  OrderStatus
	ActorID string
}

// CancelOrderCommand cancels an order on behalf of its client.
type CancelOrderCommand struct {
	OrderID  string
	ClientID string
}

// CompleteJobCommand marks the tailoring job done on behalf of the order's designer.
type CompleteJobCommand struct {
	OrderID    string
	DesignerID string
}

// OrderEventPublisher publishes order domain events for downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// OrderEvent captures metadata for emitted order domain events.
type OrderEvent struct {
	Type           string
	OrderID        string
	ClientID       string
	DesignerID     string
	PreviousStatus string
	CurrentStatus  string
	ActorID        string
	OccurredAt     time.Time
	Metadata       map[string]any
}

// Logger receives structured service events.
type Logger func(ctx context.Context, event string, fields map[string]any)

func noopLogger(context.Context, string, map[string]any) {}

package repositories

import (
	"context"
	"time"

	domain "github.com/tailor-market/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Designs() DesignRepository
	Carts() CartRepository
	Orders() OrderRepository
	Transactions() TransactionRepository
	Wallets() WalletRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// Tx is the handle of an open unit of work. It is only meaningful to repositories of the backend
// that created it; passing nil means the call runs outside any unit of work.
type Tx interface {
	Backend() string
}

// UnitOfWork groups repository operations into one atomic boundary. fn receives the handle that
// every participating repository call must carry. Returning an error from fn discards all writes.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// DesignRepository reads catalog designs.
type DesignRepository interface {
	FindByID(ctx context.Context, tx Tx, designID string) (domain.Design, error)
}

// CartRepository persists client cart lines.
type CartRepository interface {
	Insert(ctx context.Context, item domain.CartItem) error
	Update(ctx context.Context, item domain.CartItem) error
	Delete(ctx context.Context, itemID string) error
	FindByID(ctx context.Context, itemID string) (domain.CartItem, error)
	// FindDuplicate returns the client's existing line with the same selection, if any.
	FindDuplicate(ctx context.Context, item domain.CartItem) (domain.CartItem, bool, error)
	ListByClient(ctx context.Context, clientID string) ([]domain.CartItem, error)
	RemoveByClient(ctx context.Context, tx Tx, clientID string, itemIDs []string) error
}

// OrderRepository persists orders.
type OrderRepository interface {
	Insert(ctx context.Context, tx Tx, order domain.Order) error
	Update(ctx context.Context, tx Tx, order domain.Order) error
	FindByID(ctx context.Context, tx Tx, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.Page[domain.Order], error)
}

// OrderListFilter narrows order listings. Zero values disable the corresponding predicate.
type OrderListFilter struct {
	ClientID   string
	DesignerID string
	Status     domain.OrderStatus
	Sort       domain.SortOrder
	Limit      int
	Offset     int
}

// TransactionRepository stores the append-only payment ledger.
type TransactionRepository interface {
	Append(ctx context.Context, tx Tx, txn domain.Transaction) error
	UpdateStatus(ctx context.Context, tx Tx, txnID string, status domain.TransactionStatus, updatedAt time.Time) error
	FindByID(ctx context.Context, tx Tx, txnID string) (domain.Transaction, error)
	List(ctx context.Context, filter TransactionListFilter) (domain.Page[domain.Transaction], error)
}

// TransactionListFilter narrows ledger listings. Date and amount bounds are inclusive; nil or zero
// values disable the corresponding predicate.
type TransactionListFilter struct {
	UserID    string
	MinDate   time.Time
	MaxDate   time.Time
	MinAmount *int64
	MaxAmount *int64
	Type      domain.TransactionType
	Action    domain.TransactionAction
	Status    domain.TransactionStatus
	Platform  string
	Sort      domain.SortOrder
	Limit     int
	Offset    int
}

// WalletRepository reads and writes the balance stored on user records.
type WalletRepository interface {
	Get(ctx context.Context, tx Tx, userID string) (domain.Wallet, error)
	SetBalance(ctx context.Context, tx Tx, userID string, balance int64, updatedAt time.Time) error
}

// HealthRepository reports dependency health for readiness checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.HealthReport, error)
}

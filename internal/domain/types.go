package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// Page packages offset based list results.
type Page[T any] struct {
	Items  []T
	Limit  int
	Offset int
	// HasMore reports whether another page exists after this one.
	HasMore bool
}

// DesignStatus tags the visibility of a design in the catalog.
type DesignStatus string

const (
	// DesignStatusActive marks a design that is listed and purchasable.
	DesignStatusActive DesignStatus = "active"
	// DesignStatusInactive marks a design the designer paused; existing carts may still resolve it.
	DesignStatusInactive DesignStatus = "inactive"
	// DesignStatusHidden marks a design removed from the catalog. Hidden designs never resolve.
	DesignStatusHidden DesignStatus = "hidden"
)

// Design is the read-mostly catalog entry a cart line points at.
type Design struct {
	ID          string
	Title       string
	Description string
	DesignerID  string
	Materials   []Material
	Duration    int
	Status      DesignStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Material groups the sizes and colors offered for one fabric.
type Material struct {
	ID     string
	Fabric string
	Sizes  []Size
	Colors []Color
}

// Size carries the unit price for a given size value.
type Size struct {
	ID    string
	Value string
	Price int64
}

// Color carries the preview images for a given color value.
type Color struct {
	ID     string
	Value  string
	Images []string
}

// CartItem is a single pending selection owned by a client.
type CartItem struct {
	ID           string
	ClientID     string
	DesignID     string
	MaterialID   string
	SizeID       string
	ColorID      string
	Quantity     int
	ShippingCost int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SameLine reports whether both items select the same design, material, size and color for one client.
func (c CartItem) SameLine(other CartItem) bool {
	return c.ClientID == other.ClientID &&
		c.DesignID == other.DesignID &&
		c.MaterialID == other.MaterialID &&
		c.SizeID == other.SizeID &&
		c.ColorID == other.ColorID
}

// LineKey identifies the selection SameLine compares. Stores use it to keep one line per selection.
func (c CartItem) LineKey() string {
	sum := sha256.Sum256([]byte(strings.Join([]string{c.ClientID, c.DesignID, c.MaterialID, c.SizeID, c.ColorID}, "\x00")))
	return hex.EncodeToString(sum[:])
}

// PickupMethod enumerates how the client receives the finished order.
type PickupMethod string

const (
	// PickupStation means the client collects the order at a station; no delivery fee applies.
	PickupStation PickupMethod = "STATION"
	// PickupHome means the order is delivered to the client's address.
	PickupHome PickupMethod = "HOME"
)

// Delivery captures where and how an order is handed over.
type Delivery struct {
	Pickup  PickupMethod
	Address string
	Phone   string
}

// Job is the pricing and content snapshot frozen into an order at checkout.
type Job struct {
	DesignID string
	Fabric   string
	Size     string
	Color    string
	Price    int64
	Images   []string
	Quantity int
	Done     bool
}

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusProcessing is the initial state after checkout.
	OrderStatusProcessing OrderStatus = "PROCESSING"
	// OrderStatusOrdered indicates the designer accepted the order and sourced materials.
	OrderStatusOrdered OrderStatus = "ORDERED"
	// OrderStatusInTransit indicates the finished order is on its way.
	OrderStatusInTransit OrderStatus = "IN_TRANSIT"
	// OrderStatusDelivered indicates the order reached the client.
	OrderStatusDelivered OrderStatus = "DELIVERED"
	// OrderStatusCancelled indicates the client cancelled the order before processing started.
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Order is one purchased cart line.
type Order struct {
	ID          string
	ClientID    string
	DesignerID  string
	Job         Job
	Delivery    Delivery
	DeliveryFee int64
	Total       int64
	Status      OrderStatus
	CancelledAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TransactionAction describes the balance effect of a ledger entry.
type TransactionAction string

const (
	TransactionActionCredit TransactionAction = "CREDIT"
	TransactionActionDebit  TransactionAction = "DEBIT"
	TransactionActionNone   TransactionAction = "NONE"
)

// TransactionType describes what a ledger entry paid for.
type TransactionType string

const (
	TransactionTypeOrder  TransactionType = "ORDER"
	TransactionTypeWallet TransactionType = "WALLET"
)

// TransactionStatus tracks reconciliation of a ledger entry.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "PENDING"
	TransactionStatusSuccess TransactionStatus = "SUCCESS"
	TransactionStatusFailed  TransactionStatus = "FAILED"
)

// PlatformWallet is the payment platform backed by the internal wallet balance.
const PlatformWallet = "WALLET"

// Transaction is an append-only ledger entry for one payment event.
type Transaction struct {
	ID        string
	UserID    string
	Title     string
	Amount    int64
	Action    TransactionAction
	Type      TransactionType
	Platform  string
	Item      string
	Reference string
	Status    TransactionStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserStatus tags whether a user record is visible.
type UserStatus string

const (
	UserStatusActive UserStatus = "active"
	UserStatusHidden UserStatus = "hidden"
)

// Wallet is the prepaid balance held on a user record.
type Wallet struct {
	UserID     string
	Main       int64
	UserStatus UserStatus
	UpdatedAt  time.Time
}

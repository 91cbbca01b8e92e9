package mongo

import (
	"fmt"
	"slices"
	"time"

	domain "github.com/tailor-market/api/internal/domain"
	pmongo "github.com/tailor-market/api/internal/platform/mongo"
	"github.com/tailor-market/api/internal/repositories"
)

const (
	designsCollection      = "designs"
	cartsCollection        = "carts"
	ordersCollection       = "orders"
	transactionsCollection = "transactions"
	usersCollection        = "users"
)

type designDocument struct {
	ID          string             `bson:"_id"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	DesignerID  string             `bson:"designerId"`
	Materials   []materialDocument `bson:"materials"`
	Duration    int                `bson:"duration"`
	Status      string             `bson:"status"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

type materialDocument struct {
	ID     string `bson:"id"`
	Fabric string `bson:"fabric"`
	Sizes  []struct {
		ID    string `bson:"id"`
		Value string `bson:"value"`
		Price int64  `bson:"price"`
	} `bson:"sizes"`
	Colors []struct {
		ID     string   `bson:"id"`
		Value  string   `bson:"value"`
		Images []string `bson:"images"`
	} `bson:"colors"`
}

func (d designDocument) toDomain() domain.Design {
	design := domain.Design{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		DesignerID:  d.DesignerID,
		Duration:    d.Duration,
		Status:      domain.DesignStatus(d.Status),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	for _, md := range d.Materials {
		m := domain.Material{ID: md.ID, Fabric: md.Fabric}
		for _, s := range md.Sizes {
			m.Sizes = append(m.Sizes, domain.Size{ID: s.ID, Value: s.Value, Price: s.Price})
		}
		for _, c := range md.Colors {
			m.Colors = append(m.Colors, domain.Color{ID: c.ID, Value: c.Value, Images: slices.Clone(c.Images)})
		}
		design.Materials = append(design.Materials, m)
	}
	return design
}

type cartItemDocument struct {
	ID           string    `bson:"_id"`
	ClientID     string    `bson:"clientId"`
	DesignID     string    `bson:"designId"`
	MaterialID   string    `bson:"materialId"`
	SizeID       string    `bson:"sizeId"`
	ColorID      string    `bson:"colorId"`
	Quantity     int       `bson:"quantity"`
	ShippingCost int64     `bson:"shippingCost"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

func newCartItemDocument(item domain.CartItem) cartItemDocument {
	return cartItemDocument{
		ID:           item.ID,
		ClientID:     item.ClientID,
		DesignID:     item.DesignID,
		MaterialID:   item.MaterialID,
		SizeID:       item.SizeID,
		ColorID:      item.ColorID,
		Quantity:     item.Quantity,
		ShippingCost: item.ShippingCost,
		CreatedAt:    item.CreatedAt.UTC(),
		UpdatedAt:    item.UpdatedAt.UTC(),
	}
}

func (d cartItemDocument) toDomain() domain.CartItem {
	return domain.CartItem{
		ID:           d.ID,
		ClientID:     d.ClientID,
		DesignID:     d.DesignID,
		MaterialID:   d.MaterialID,
		SizeID:       d.SizeID,
		ColorID:      d.ColorID,
		Quantity:     d.Quantity,
		ShippingCost: d.ShippingCost,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type orderDocument struct {
	ID          string     `bson:"_id"`
	ClientID    string     `bson:"clientId"`
	DesignerID  string     `bson:"designerId"`
	Job         domain.Job `bson:"job"`
	Pickup      string     `bson:"pickup"`
	Address     string     `bson:"address,omitempty"`
	Phone       string     `bson:"phone"`
	DeliveryFee int64      `bson:"deliveryFee"`
	Total       int64      `bson:"total"`
	Status      string     `bson:"status"`
	CancelledAt *time.Time `bson:"cancelledAt,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt"`
}

func newOrderDocument(order domain.Order) orderDocument {
	job := order.Job
	job.Images = slices.Clone(job.Images)
	return orderDocument{
		ID:          order.ID,
		ClientID:    order.ClientID,
		DesignerID:  order.DesignerID,
		Job:         job,
		Pickup:      string(order.Delivery.Pickup),
		Address:     order.Delivery.Address,
		Phone:       order.Delivery.Phone,
		DeliveryFee: order.DeliveryFee,
		Total:       order.Total,
		Status:      string(order.Status),
		CancelledAt: order.CancelledAt,
		CreatedAt:   order.CreatedAt.UTC(),
		UpdatedAt:   order.UpdatedAt.UTC(),
	}
}

func (d orderDocument) toDomain() domain.Order {
	return domain.Order{
		ID:         d.ID,
		ClientID:   d.ClientID,
		DesignerID: d.DesignerID,
		Job:        d.Job,
		Delivery: domain.Delivery{
			Pickup:  domain.PickupMethod(d.Pickup),
			Address: d.Address,
			Phone:   d.Phone,
		},
		DeliveryFee: d.DeliveryFee,
		Total:       d.Total,
		Status:      domain.OrderStatus(d.Status),
		CancelledAt: d.CancelledAt,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type transactionDocument struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"userId"`
	Title     string    `bson:"title"`
	Amount    int64     `bson:"amount"`
	Action    string    `bson:"action"`
	Type      string    `bson:"type"`
	Platform  string    `bson:"platform"`
	Item      string    `bson:"item,omitempty"`
	Reference string    `bson:"reference,omitempty"`
	Status    string    `bson:"status"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func newTransactionDocument(txn domain.Transaction) transactionDocument {
	return transactionDocument{
		ID:        txn.ID,
		UserID:    txn.UserID,
		Title:     txn.Title,
		Amount:    txn.Amount,
		Action:    string(txn.Action),
		Type:      string(txn.Type),
		Platform:  txn.Platform,
		Item:      txn.Item,
		Reference: txn.Reference,
		Status:    string(txn.Status),
		CreatedAt: txn.CreatedAt.UTC(),
		UpdatedAt: txn.UpdatedAt.UTC(),
	}
}

func (d transactionDocument) toDomain() domain.Transaction {
	return domain.Transaction{
		ID:        d.ID,
		UserID:    d.UserID,
		Title:     d.Title,
		Amount:    d.Amount,
		Action:    domain.TransactionAction(d.Action),
		Type:      domain.TransactionType(d.Type),
		Platform:  d.Platform,
		Item:      d.Item,
		Reference: d.Reference,
		Status:    domain.TransactionStatus(d.Status),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type userDocument struct {
	ID     string `bson:"_id"`
	Status string `bson:"status"`
	Wallet struct {
		Main int64 `bson:"main"`
	} `bson:"wallet"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func txFrom(tx repositories.Tx) (*pmongo.Tx, error) {
	if tx == nil {
		return nil, nil
	}
	mtx, ok := tx.(*pmongo.Tx)
	if !ok {
		return nil, fmt.Errorf("mongo repositories: foreign transaction handle from %s backend", tx.Backend())
	}
	return mtx, nil
}

package firestore

import (
	"fmt"
	"slices"
	"time"

	domain "github.com/tailor-market/api/internal/domain"
	pfirestore "github.com/tailor-market/api/internal/platform/firestore"
	"github.com/tailor-market/api/internal/repositories"
)

const (
	designsCollection      = "designs"
	cartsCollection        = "carts"
	cartLinesCollection    = "cartLines"
	ordersCollection       = "orders"
	transactionsCollection = "transactions"
	usersCollection        = "users"
)

type designDocument struct {
	ID          string             `firestore:"id"`
	Title       string             `firestore:"title"`
	Description string             `firestore:"description"`
	DesignerID  string             `firestore:"designerId"`
	Materials   []materialDocument `firestore:"materials"`
	Duration    int                `firestore:"duration"`
	Status      string             `firestore:"status"`
	CreatedAt   time.Time          `firestore:"createdAt"`
	UpdatedAt   time.Time          `firestore:"updatedAt"`
}

type materialDocument struct {
	ID     string          `firestore:"id"`
	Fabric string          `firestore:"fabric"`
	Sizes  []sizeDocument  `firestore:"sizes"`
	Colors []colorDocument `firestore:"colors"`
}

type sizeDocument struct {
	ID    string `firestore:"id"`
	Value string `firestore:"value"`
	Price int64  `firestore:"price"`
}

type colorDocument struct {
	ID     string   `firestore:"id"`
	Value  string   `firestore:"value"`
	Images []string `firestore:"images"`
}

func encodeDesign(design domain.Design) designDocument {
	doc := designDocument{
		ID:          design.ID,
		Title:       design.Title,
		Description: design.Description,
		DesignerID:  design.DesignerID,
		Duration:    design.Duration,
		Status:      string(design.Status),
		CreatedAt:   design.CreatedAt.UTC(),
		UpdatedAt:   design.UpdatedAt.UTC(),
	}
	for _, m := range design.Materials {
		md := materialDocument{ID: m.ID, Fabric: m.Fabric}
		for _, s := range m.Sizes {
			md.Sizes = append(md.Sizes, sizeDocument{ID: s.ID, Value: s.Value, Price: s.Price})
		}
		for _, c := range m.Colors {
			md.Colors = append(md.Colors, colorDocument{ID: c.ID, Value: c.Value, Images: slices.Clone(c.Images)})
		}
		doc.Materials = append(doc.Materials, md)
	}
	return doc
}

func decodeDesign(doc designDocument) domain.Design {
	design := domain.Design{
		ID:          doc.ID,
		Title:       doc.Title,
		Description: doc.Description,
		DesignerID:  doc.DesignerID,
		Duration:    doc.Duration,
		Status:      domain.DesignStatus(doc.Status),
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
	for _, md := range doc.Materials {
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
	ID           string    `firestore:"id"`
	ClientID     string    `firestore:"clientId"`
	DesignID     string    `firestore:"designId"`
	MaterialID   string    `firestore:"materialId"`
	SizeID       string    `firestore:"sizeId"`
	ColorID      string    `firestore:"colorId"`
	Quantity     int       `firestore:"quantity"`
	ShippingCost int64     `firestore:"shippingCost"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

type cartLineDocument struct {
	ItemID   string `firestore:"itemId"`
	ClientID string `firestore:"clientId"`
}

func encodeCartItem(item domain.CartItem) cartItemDocument {
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

func decodeCartItem(doc cartItemDocument) domain.CartItem {
	return domain.CartItem{
		ID:           doc.ID,
		ClientID:     doc.ClientID,
		DesignID:     doc.DesignID,
		MaterialID:   doc.MaterialID,
		SizeID:       doc.SizeID,
		ColorID:      doc.ColorID,
		Quantity:     doc.Quantity,
		ShippingCost: doc.ShippingCost,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}

type orderDocument struct {
	ID          string           `firestore:"id"`
	ClientID    string           `firestore:"clientId"`
	DesignerID  string           `firestore:"designerId"`
	Job         jobDocument      `firestore:"job"`
	Delivery    deliveryDocument `firestore:"delivery"`
	DeliveryFee int64            `firestore:"deliveryFee"`
	Total       int64            `firestore:"total"`
	Status      string           `firestore:"status"`
	CancelledAt *time.Time       `firestore:"cancelledAt,omitempty"`
	CreatedAt   time.Time        `firestore:"createdAt"`
	UpdatedAt   time.Time        `firestore:"updatedAt"`
}

type jobDocument struct {
	DesignID string   `firestore:"designId"`
	Fabric   string   `firestore:"fabric"`
	Size     string   `firestore:"size"`
	Color    string   `firestore:"color"`
	Price    int64    `firestore:"price"`
	Images   []string `firestore:"images"`
	Quantity int      `firestore:"quantity"`
	Done     bool     `firestore:"done"`
}

type deliveryDocument struct {
	Pickup  string `firestore:"pickup"`
	Address string `firestore:"address,omitempty"`
	Phone   string `firestore:"phone"`
}

func encodeOrder(order domain.Order) orderDocument {
	doc := orderDocument{
		ID:         order.ID,
		ClientID:   order.ClientID,
		DesignerID: order.DesignerID,
		Job: jobDocument{
			DesignID: order.Job.DesignID,
			Fabric:   order.Job.Fabric,
			Size:     order.Job.Size,
			Color:    order.Job.Color,
			Price:    order.Job.Price,
			Images:   slices.Clone(order.Job.Images),
			Quantity: order.Job.Quantity,
			Done:     order.Job.Done,
		},
		Delivery: deliveryDocument{
			Pickup:  string(order.Delivery.Pickup),
			Address: order.Delivery.Address,
			Phone:   order.Delivery.Phone,
		},
		DeliveryFee: order.DeliveryFee,
		Total:       order.Total,
		Status:      string(order.Status),
		CreatedAt:   order.CreatedAt.UTC(),
		UpdatedAt:   order.UpdatedAt.UTC(),
	}
	if order.CancelledAt != nil {
		at := order.CancelledAt.UTC()
		doc.CancelledAt = &at
	}
	return doc
}

func decodeOrder(doc orderDocument) domain.Order {
	return domain.Order{
		ID:         doc.ID,
		ClientID:   doc.ClientID,
		DesignerID: doc.DesignerID,
		Job: domain.Job{
			DesignID: doc.Job.DesignID,
			Fabric:   doc.Job.Fabric,
			Size:     doc.Job.Size,
			Color:    doc.Job.Color,
			Price:    doc.Job.Price,
			Images:   slices.Clone(doc.Job.Images),
			Quantity: doc.Job.Quantity,
			Done:     doc.Job.Done,
		},
		Delivery: domain.Delivery{
			Pickup:  domain.PickupMethod(doc.Delivery.Pickup),
			Address: doc.Delivery.Address,
			Phone:   doc.Delivery.Phone,
		},
		DeliveryFee: doc.DeliveryFee,
		Total:       doc.Total,
		Status:      domain.OrderStatus(doc.Status),
		CancelledAt: doc.CancelledAt,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}

type transactionDocument struct {
	ID        string    `firestore:"id"`
	UserID    string    `firestore:"userId"`
	Title     string    `firestore:"title"`
	Amount    int64     `firestore:"amount"`
	Action    string    `firestore:"action"`
	Type      string    `firestore:"type"`
	Platform  string    `firestore:"platform"`
	Item      string    `firestore:"item,omitempty"`
	Reference string    `firestore:"reference,omitempty"`
	Status    string    `firestore:"status"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func encodeTransaction(txn domain.Transaction) transactionDocument {
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

func decodeTransaction(doc transactionDocument) domain.Transaction {
	return domain.Transaction{
		ID:        doc.ID,
		UserID:    doc.UserID,
		Title:     doc.Title,
		Amount:    doc.Amount,
		Action:    domain.TransactionAction(doc.Action),
		Type:      domain.TransactionType(doc.Type),
		Platform:  doc.Platform,
		Item:      doc.Item,
		Reference: doc.Reference,
		Status:    domain.TransactionStatus(doc.Status),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

// userDocument maps the wallet-relevant subset of a user record. Writes merge only the wallet
// fields so profile data maintained elsewhere is preserved.
type userDocument struct {
	Status    string         `firestore:"status"`
	Wallet    walletDocument `firestore:"wallet"`
	UpdatedAt time.Time      `firestore:"updatedAt"`
}

type walletDocument struct {
	Main int64 `firestore:"main"`
}

func txFrom(tx repositories.Tx) (*pfirestore.Tx, error) {
	if tx == nil {
		return nil, nil
	}
	ftx, ok := tx.(*pfirestore.Tx)
	if !ok {
		return nil, fmt.Errorf("firestore repositories: foreign transaction handle from %s backend", tx.Backend())
	}
	return ftx, nil
}

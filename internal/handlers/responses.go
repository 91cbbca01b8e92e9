package handlers

import (
	"time"

	domain "github.com/tailor-market/api/internal/domain"
)

type deliveryPayload struct {
	Pickup  string `json:"pickup"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type jobPayload struct {
	DesignID string   `json:"designId"`
	Fabric   string   `json:"fabric"`
	Size     string   `json:"size"`
	Color    string   `json:"color"`
	Price    int64    `json:"price"`
	Images   []string `json:"images"`
	Quantity int      `json:"quantity"`
	Done     bool     `json:"done"`
}

type orderPayload struct {
	ID          string          `json:"id"`
	ClientID    string          `json:"clientId"`
	DesignerID  string          `json:"designerId"`
	Job         jobPayload      `json:"job"`
	Delivery    deliveryPayload `json:"delivery"`
	DeliveryFee int64           `json:"deliveryFee"`
	Total       int64           `json:"total"`
	Status      string          `json:"status"`
	CancelledAt string          `json:"cancelledAt,omitempty"`
	CreatedAt   string          `json:"createdAt"`
	UpdatedAt   string          `json:"updatedAt"`
}

type cartItemPayload struct {
	ID           string `json:"id"`
	DesignID     string `json:"designId"`
	MaterialID   string `json:"materialId"`
	SizeID       string `json:"sizeId"`
	ColorID      string `json:"colorId"`
	Quantity     int    `json:"quantity"`
	ShippingCost int64  `json:"shippingCost"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

type transactionPayload struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Amount    int64  `json:"amount"`
	Action    string `json:"action"`
	Type      string `json:"type"`
	Platform  string `json:"platform"`
	Item      string `json:"item,omitempty"`
	Reference string `json:"reference,omitempty"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type walletPayload struct {
	UserID    string `json:"userId"`
	Main      int64  `json:"main"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

func buildOrderPayload(order domain.Order) orderPayload {
	images := order.Job.Images
	if images == nil {
		images = []string{}
	}
	payload := orderPayload{
		ID:         order.ID,
		ClientID:   order.ClientID,
		DesignerID: order.DesignerID,
		Job: jobPayload{
			DesignID: order.Job.DesignID,
			Fabric:   order.Job.Fabric,
			Size:     order.Job.Size,
			Color:    order.Job.Color,
			Price:    order.Job.Price,
			Images:   images,
			Quantity: order.Job.Quantity,
			Done:     order.Job.Done,
		},
		Delivery: deliveryPayload{
			Pickup:  string(order.Delivery.Pickup),
			Address: order.Delivery.Address,
			Phone:   order.Delivery.Phone,
		},
		DeliveryFee: order.DeliveryFee,
		Total:       order.Total,
		Status:      string(order.Status),
		CreatedAt:   formatTime(order.CreatedAt),
		UpdatedAt:   formatTime(order.UpdatedAt),
	}
	if order.CancelledAt != nil {
		payload.CancelledAt = formatTime(*order.CancelledAt)
	}
	return payload
}

func buildCartItemPayload(item domain.CartItem) cartItemPayload {
	return cartItemPayload{
		ID:           item.ID,
		DesignID:     item.DesignID,
		MaterialID:   item.MaterialID,
		SizeID:       item.SizeID,
		ColorID:      item.ColorID,
		Quantity:     item.Quantity,
		ShippingCost: item.ShippingCost,
		CreatedAt:    formatTime(item.CreatedAt),
		UpdatedAt:    formatTime(item.UpdatedAt),
	}
}

func buildTransactionPayload(txn domain.Transaction) transactionPayload {
	return transactionPayload{
		ID:        txn.ID,
		Title:     txn.Title,
		Amount:    txn.Amount,
		Action:    string(txn.Action),
		Type:      string(txn.Type),
		Platform:  txn.Platform,
		Item:      txn.Item,
		Reference: txn.Reference,
		Status:    string(txn.Status),
		CreatedAt: formatTime(txn.CreatedAt),
		UpdatedAt: formatTime(txn.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

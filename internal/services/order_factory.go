package services

import (
	"slices"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/tailor-market/api/internal/domain"
)

const (
	orderIDPrefix = "ord_"

	// DefaultDeliveryFee is the flat home-delivery fee in minor units.
	DefaultDeliveryFee int64 = 1000
)

// OrderFactoryDeps configures order construction.
type OrderFactoryDeps struct {
	DeliveryFee int64
	Clock       func() time.Time
	IDGenerator func() string
}

type orderFactory struct {
	deliveryFee int64
	clock       func() time.Time
	newID       func() string
}

var _ OrderFactory = (*orderFactory)(nil)

// NewOrderFactory builds an OrderFactory. A negative fee falls back to DefaultDeliveryFee; zero makes
// home delivery free.
func NewOrderFactory(deps OrderFactoryDeps) OrderFactory {
	fee := deps.DeliveryFee
	if fee < 0 {
		fee = DefaultDeliveryFee
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	return &orderFactory{
		deliveryFee: fee,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID: idGen,
	}
}

func (f *orderFactory) DeliveryFee(delivery Delivery) int64 {
	if delivery.Pickup == domain.PickupStation {
		return 0
	}
	return f.deliveryFee
}

// Build freezes the snapshot and quantity into a PROCESSING order. Total is price times quantity plus
// the delivery fee.
func (f *orderFactory) Build(item CartItem, snapshot LineSnapshot, delivery Delivery) Order {
	now := f.clock()
	fee := f.DeliveryFee(delivery)
	return Order{
		ID:         orderIDPrefix + f.newID(),
		ClientID:   item.ClientID,
		DesignerID: snapshot.DesignerID,
		Job: domain.Job{
			DesignID: snapshot.DesignID,
			Fabric:   snapshot.Fabric,
			Size:     snapshot.SizeValue,
			Color:    snapshot.ColorValue,
			Price:    snapshot.Price,
			Images:   slices.Clone(snapshot.Images),
			Quantity: item.Quantity,
		},
		Delivery:    delivery,
		DeliveryFee: fee,
		Total:       snapshot.Price*int64(item.Quantity) + fee,
		Status:      domain.OrderStatusProcessing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

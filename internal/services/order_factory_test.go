package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domain "github.com/tailor-market/api/internal/domain"
)

func TestOrderFactoryBuild(t *testing.T) {
	factory := NewOrderFactory(OrderFactoryDeps{DeliveryFee: 1500, Clock: fixedClock, IDGenerator: func() string { return "01J" }})
	item := CartItem{ID: "cart_1", ClientID: "client_1", Quantity: 3}
	snapshot := LineSnapshot{
		DesignID: "dsg_1", DesignerID: "designer_1", Fabric: "Lace", SizeValue: "S",
		Price: 2000, ColorValue: "Gold", Images: []string{"gold.png"},
	}

	order := factory.Build(item, snapshot, Delivery{Pickup: domain.PickupHome, Address: "a", Phone: "p"})
	assert.Equal(t, "ord_01J", order.ID)
	assert.Equal(t, "client_1", order.ClientID)
	assert.Equal(t, "designer_1", order.DesignerID)
	assert.Equal(t, int64(1500), order.DeliveryFee)
	assert.Equal(t, int64(2000*3+1500), order.Total)
	assert.Equal(t, domain.OrderStatusProcessing, order.Status)
	assert.False(t, order.Job.Done)
	assert.Nil(t, order.CancelledAt)
	assert.Equal(t, fixedNow, order.CreatedAt)

	snapshot.Images[0] = "changed.png"
	assert.Equal(t, "gold.png", order.Job.Images[0])
}

func TestOrderFactoryDeliveryFee(t *testing.T) {
	factory := NewOrderFactory(OrderFactoryDeps{DeliveryFee: 1500})
	assert.Equal(t, int64(0), factory.DeliveryFee(Delivery{Pickup: domain.PickupStation}))
	assert.Equal(t, int64(1500), factory.DeliveryFee(Delivery{Pickup: domain.PickupHome}))

	free := NewOrderFactory(OrderFactoryDeps{})
	assert.Equal(t, int64(0), free.DeliveryFee(Delivery{Pickup: domain.PickupHome}))

	fallback := NewOrderFactory(OrderFactoryDeps{DeliveryFee: -1})
	assert.Equal(t, DefaultDeliveryFee, fallback.DeliveryFee(Delivery{Pickup: domain.PickupHome}))
}

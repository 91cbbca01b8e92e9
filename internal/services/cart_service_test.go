package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartServiceCreate(t *testing.T) {
	h := newHarness(t)

	item, err := h.cart.Create(context.Background(), CreateCartItemCommand{
		ClientID:     " client_1 ",
		DesignID:     "dsg_agbada",
		MaterialID:   "mat_aso_oke",
		SizeID:       "size_m",
		ColorID:      "col_indigo",
		Quantity:     2,
		ShippingCost: 300,
	})
	require.NoError(t, err)
	assert.Equal(t, CartItem{
		ID:           "cart_0001",
		ClientID:     "client_1",
		DesignID:     "dsg_agbada",
		MaterialID:   "mat_aso_oke",
		SizeID:       "size_m",
		ColorID:      "col_indigo",
		Quantity:     2,
		ShippingCost: 300,
		CreatedAt:    fixedNow,
		UpdatedAt:    fixedNow,
	}, item)

	stored, err := h.cart.Get(context.Background(), "client_1", item.ID)
	require.NoError(t, err)
	assert.Equal(t, item, stored)
}

func TestCartServiceCreateRejectsDuplicateSelection(t *testing.T) {
	h := newHarness(t)
	h.addToCart(t, "client_1", "size_m", 1)

	_, err := h.cart.Create(context.Background(), CreateCartItemCommand{
		ClientID: "client_1", DesignID: "dsg_agbada", MaterialID: "mat_aso_oke", SizeID: "size_m", ColorID: "col_indigo", Quantity: 4,
	})
	require.ErrorIs(t, err, ErrConflict)

	// Another client may hold the same selection.
	h.addToCart(t, "client_2", "size_m", 1)
}

func TestCartServiceConcurrentCreateKeepsOneLine(t *testing.T) {
	h := newHarness(t)
	const attempts = 50

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.cart.Create(context.Background(), CreateCartItemCommand{
				ClientID: "client_1", DesignID: "dsg_agbada", MaterialID: "mat_aso_oke", SizeID: "size_m", ColorID: "col_indigo", Quantity: 1,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, attempts-1, conflicts)
	items, err := h.cart.ItemsFor(context.Background(), "client_1")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestCartServiceCreateValidatesSelection(t *testing.T) {
	h := newHarness(t)

	_, err := h.cart.Create(context.Background(), CreateCartItemCommand{
		ClientID: "client_1", DesignID: "dsg_agbada", MaterialID: "mat_aso_oke", SizeID: "size_xxl", ColorID: "col_indigo", Quantity: 1,
	})
	entity, ok := NotFoundEntity(err)
	require.True(t, ok)
	assert.Equal(t, EntitySize, entity)

	_, err = h.cart.Create(context.Background(), CreateCartItemCommand{
		ClientID: "client_1", DesignID: "dsg_agbada", MaterialID: "mat_aso_oke", SizeID: "size_m", ColorID: "col_indigo",
	})
	require.ErrorIs(t, err, ErrValidation)

	items, err := h.cart.ItemsFor(context.Background(), "client_1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCartServiceUpdateQuantityAndOwnership(t *testing.T) {
	h := newHarness(t)
	item := h.addToCart(t, "client_1", "size_m", 1)

	updated, err := h.cart.UpdateQuantity(context.Background(), UpdateCartItemCommand{ClientID: "client_1", ItemID: item.ID, Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Quantity)

	_, err = h.cart.UpdateQuantity(context.Background(), UpdateCartItemCommand{ClientID: "client_2", ItemID: item.ID, Quantity: 2})
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = h.cart.UpdateQuantity(context.Background(), UpdateCartItemCommand{ClientID: "client_1", ItemID: item.ID, Quantity: 0})
	require.ErrorIs(t, err, ErrValidation)

	_, err = h.cart.UpdateQuantity(context.Background(), UpdateCartItemCommand{ClientID: "client_1", ItemID: "cart_missing", Quantity: 2})
	entity, ok := NotFoundEntity(err)
	require.True(t, ok)
	assert.Equal(t, EntityCartItem, entity)
}

func TestCartServiceRemove(t *testing.T) {
	h := newHarness(t)
	item := h.addToCart(t, "client_1", "size_m", 1)

	require.ErrorIs(t, h.cart.Remove(context.Background(), "client_2", item.ID), ErrUnauthorized)
	require.NoError(t, h.cart.Remove(context.Background(), "client_1", item.ID))
	require.ErrorIs(t, h.cart.Remove(context.Background(), "client_1", item.ID), ErrNotFound)
}

func TestCartServiceItemsForOrdersByCreation(t *testing.T) {
	h := newHarness(t)
	first := h.addToCart(t, "client_1", "size_m", 1)
	second := h.addToCart(t, "client_1", "size_l", 1)
	h.addToCart(t, "client_2", "size_m", 1)

	items, err := h.cart.ItemsFor(context.Background(), "client_1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, first.ID, items[0].ID)
	assert.Equal(t, second.ID, items[1].ID)

	_, err = h.cart.ItemsFor(context.Background(), "")
	require.ErrorIs(t, err, ErrValidation)
}

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailor-market/api/internal/services"
)

func cartRouter(uid string, svc services.CartService) http.Handler {
	return NewRouter(
		WithMiddlewares(withIdentity(uid, "client")),
		WithCartRoutes(NewCartHandlers(nil, svc).Routes),
	)
}

func TestCartListItems(t *testing.T) {
	svc := &stubCartService{itemsFn: func(_ context.Context, clientID string) ([]services.CartItem, error) {
		assert.Equal(t, "client-1", clientID)
		return []services.CartItem{{ID: "cart_1", DesignID: "d1", Quantity: 2}}, nil
	}}

	rr := doRequest(t, cartRouter("client-1", svc), http.MethodGet, "/api/v1/cart", "")

	require.Equal(t, http.StatusOK, rr.Code)
	var resp cartResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "cart_1", resp.Items[0].ID)
	assert.Equal(t, 2, resp.Items[0].Quantity)
}

func TestCartCreateItem(t *testing.T) {
	svc := &stubCartService{createFn: func(_ context.Context, cmd services.CreateCartItemCommand) (services.CartItem, error) {
		assert.Equal(t, "client-1", cmd.ClientID)
		assert.Equal(t, 3, cmd.Quantity)
		return services.CartItem{ID: "cart_9", ClientID: cmd.ClientID, DesignID: cmd.DesignID, Quantity: cmd.Quantity}, nil
	}}

	rr := doRequest(t, cartRouter("client-1", svc), http.MethodPost, "/api/v1/cart/items",
		`{"designId":"d1","materialId":"m1","sizeId":"s1","colorId":"c1","quantity":3}`)

	require.Equal(t, http.StatusCreated, rr.Code)
	var item cartItemPayload
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &item))
	assert.Equal(t, "cart_9", item.ID)
}

func TestCartCreateDuplicateIsConflict(t *testing.T) {
	svc := &stubCartService{createFn: func(context.Context, services.CreateCartItemCommand) (services.CartItem, error) {
		return services.CartItem{}, fmt.Errorf("%w: item already in cart", services.ErrConflict)
	}}

	rr := doRequest(t, cartRouter("client-1", svc), http.MethodPost, "/api/v1/cart/items",
		`{"designId":"d1","materialId":"m1","sizeId":"s1","colorId":"c1","quantity":1}`)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestCartItemOwnedByAnotherClient(t *testing.T) {
	svc := &stubCartService{getFn: func(context.Context, string, string) (services.CartItem, error) {
		return services.CartItem{}, fmt.Errorf("%w: cart item cart_1", services.ErrUnauthorized)
	}}

	rr := doRequest(t, cartRouter("client-2", svc), http.MethodGet, "/api/v1/cart/items/cart_1", "")

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "forbidden", decodeError(t, rr).Code)
}

func TestCartUpdateAndRemove(t *testing.T) {
	var removed string
	svc := &stubCartService{
		updateFn: func(_ context.Context, cmd services.UpdateCartItemCommand) (services.CartItem, error) {
			assert.Equal(t, "cart_1", cmd.ItemID)
			return services.CartItem{ID: cmd.ItemID, Quantity: cmd.Quantity}, nil
		},
		removeFn: func(_ context.Context, _ string, itemID string) error {
			removed = itemID
			return nil
		},
	}
	router := cartRouter("client-1", svc)

	rr := doRequest(t, router, http.MethodPatch, "/api/v1/cart/items/cart_1", `{"quantity":4}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"quantity":4`)

	rr = doRequest(t, router, http.MethodDelete, "/api/v1/cart/items/cart_1", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "cart_1", removed)
}

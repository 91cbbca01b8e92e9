package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tailor-market/api/internal/platform/auth"
	"github.com/tailor-market/api/internal/platform/httpx"
	"github.com/tailor-market/api/internal/services"
)

// CartHandlers exposes the caller's cart.
type CartHandlers struct {
	authn *auth.Authenticator
	cart  services.CartService
}

// NewCartHandlers constructs cart handlers guarded by Firebase authentication.
func NewCartHandlers(authn *auth.Authenticator, cart services.CartService) *CartHandlers {
	return &CartHandlers{
		authn: authn,
		cart:  cart,
	}
}

// Routes registers the /cart endpoints.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireUser(auth.RoleClient))
	}
	r.Get("/", h.listItems)
	r.Post("/items", h.createItem)
	r.Get("/items/{itemID}", h.getItem)
	r.Patch("/items/{itemID}", h.updateItem)
	r.Delete("/items/{itemID}", h.removeItem)
}

type cartResponse struct {
	Items []cartItemPayload `json:"items"`
}

type createCartItemRequest struct {
	DesignID     string `json:"designId"`
	MaterialID   string `json:"materialId"`
	SizeID       string `json:"sizeId"`
	ColorID      string `json:"colorId"`
	Quantity     int    `json:"quantity"`
	ShippingCost int64  `json:"shippingCost"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandlers) listItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.cart == nil {
		serviceUnavailable(ctx, w, "cart")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	items, err := h.cart.ItemsFor(ctx, identity.UID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	resp := cartResponse{Items: make([]cartItemPayload, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, buildCartItemPayload(item))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *CartHandlers) createItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.cart == nil {
		serviceUnavailable(ctx, w, "cart")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req createCartItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeDecodeError(ctx, w, err)
		return
	}
	item, err := h.cart.Create(ctx, services.CreateCartItemCommand{
		ClientID:     identity.UID,
		DesignID:     req.DesignID,
		MaterialID:   req.MaterialID,
		SizeID:       req.SizeID,
		ColorID:      req.ColorID,
		Quantity:     req.Quantity,
		ShippingCost: req.ShippingCost,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, buildCartItemPayload(item))
}

func (h *CartHandlers) getItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.cart == nil {
		serviceUnavailable(ctx, w, "cart")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	item, err := h.cart.Get(ctx, identity.UID, strings.TrimSpace(chi.URLParam(r, "itemID")))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildCartItemPayload(item))
}

func (h *CartHandlers) updateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.cart == nil {
		serviceUnavailable(ctx, w, "cart")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req updateCartItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeDecodeError(ctx, w, err)
		return
	}
	item, err := h.cart.UpdateQuantity(ctx, services.UpdateCartItemCommand{
		ClientID: identity.UID,
		ItemID:   strings.TrimSpace(chi.URLParam(r, "itemID")),
		Quantity: req.Quantity,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildCartItemPayload(item))
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.cart == nil {
		serviceUnavailable(ctx, w, "cart")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	if err := h.cart.Remove(ctx, identity.UID, strings.TrimSpace(chi.URLParam(r, "itemID"))); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	domain "github.com/tailor-market/api/internal/domain"
	"github.com/tailor-market/api/internal/platform/auth"
	"github.com/tailor-market/api/internal/platform/httpx"
	"github.com/tailor-market/api/internal/services"
)

// CheckoutHandlers exposes checkout for authenticated clients.
type CheckoutHandlers struct {
	authn    *auth.Authenticator
	checkout services.CheckoutService
	replay   func(http.Handler) http.Handler
}

// CheckoutOption customises CheckoutHandlers.
type CheckoutOption func(*CheckoutHandlers)

// WithIdempotency installs mw after authentication so replayed responses are scoped to the caller.
func WithIdempotency(mw func(http.Handler) http.Handler) CheckoutOption {
	return func(h *CheckoutHandlers) {
		h.replay = mw
	}
}

// NewCheckoutHandlers constructs checkout handlers guarded by Firebase authentication.
func NewCheckoutHandlers(authn *auth.Authenticator, checkout services.CheckoutService, opts ...CheckoutOption) *CheckoutHandlers {
	h := &CheckoutHandlers{
		authn:    authn,
		checkout: checkout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes registers the /checkout endpoint.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireUser(auth.RoleClient))
	}
	if h.replay != nil {
		r.Use(h.replay)
	}
	r.Post("/", h.checkoutCart)
}

type checkoutRequest struct {
	Delivery  deliveryPayload `json:"delivery"`
	Platform  string          `json:"platform"`
	Reference string          `json:"reference"`
}

type checkoutResponse struct {
	Orders []orderPayload `json:"orders"`
}

func (h *CheckoutHandlers) checkoutCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		serviceUnavailable(ctx, w, "checkout")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req checkoutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeDecodeError(ctx, w, err)
		return
	}

	orders, err := h.checkout.Checkout(ctx, services.CheckoutCommand{
		ClientID: identity.UID,
		Delivery: services.Delivery{
			Pickup:  domain.PickupMethod(req.Delivery.Pickup),
			Address: req.Delivery.Address,
			Phone:   req.Delivery.Phone,
		},
		Platform:  req.Platform,
		Reference: req.Reference,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	resp := checkoutResponse{Orders: make([]orderPayload, 0, len(orders))}
	for _, order := range orders {
		resp.Orders = append(resp.Orders, buildOrderPayload(order))
	}
	httpx.WriteJSON(w, http.StatusCreated, resp)
}

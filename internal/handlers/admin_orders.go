package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/tailor-market/api/internal/domain"
	"github.com/tailor-market/api/internal/platform/auth"
	"github.com/tailor-market/api/internal/platform/httpx"
	"github.com/tailor-market/api/internal/services"
)

// AdminOrderHandlers lets administrators override order status.
type AdminOrderHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderLifecycle
}

// NewAdminOrderHandlers constructs handlers restricted to the admin role.
func NewAdminOrderHandlers(authn *auth.Authenticator, orders services.OrderLifecycle) *AdminOrderHandlers {
	return &AdminOrderHandlers{
		authn:  authn,
		orders: orders,
	}
}

// Routes registers the /admin order endpoints.
func (h *AdminOrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireUser(auth.RoleAdmin))
	}
	r.Put("/orders/{orderID}/status", h.setStatus)
}

type setOrderStatusRequest struct {
	Status string `json:"status"`
}

func (h *AdminOrderHandlers) setStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		serviceUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	if !identity.HasRole(auth.RoleAdmin) {
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "admin role required", http.StatusForbidden))
		return
	}

	var req setOrderStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeDecodeError(ctx, w, err)
		return
	}
	order, err := h.orders.SetStatus(ctx, services.SetOrderStatusCommand{
		OrderID: strings.TrimSpace(chi.URLParam(r, "orderID")),
		Status:  domain.OrderStatus(req.Status),
		ActorID: identity.UID,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

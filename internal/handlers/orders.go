package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/tailor-market/api/internal/domain"
	"github.com/tailor-market/api/internal/platform/auth"
	"github.com/tailor-market/api/internal/platform/httpx"
	"github.com/tailor-market/api/internal/platform/pagination"
	"github.com/tailor-market/api/internal/services"
)

// OrderHandlers exposes orders to their client, their designer and administrators.
type OrderHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderLifecycle
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderLifecycle) *OrderHandlers {
	return &OrderHandlers{
		authn:  authn,
		orders: orders,
	}
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireUser())
	}
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Post("/{orderID}:cancel", h.cancelOrder)
	r.Post("/{orderID}:complete-job", h.completeJob)
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		serviceUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	query := r.URL.Query()
	params, err := pagination.Parse(query)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	filter := services.OrderListFilter{
		Status: domain.OrderStatus(strings.ToUpper(strings.TrimSpace(query.Get("status")))),
		Sort:   params.Sort,
		Limit:  params.Limit,
		Offset: params.Offset,
	}

	switch as := strings.ToLower(strings.TrimSpace(query.Get("as"))); as {
	case "", auth.RoleClient:
		filter.ClientID = identity.UID
	case auth.RoleDesigner:
		if !identity.HasRole(auth.RoleDesigner) {
			httpx.WriteError(ctx, w, httpx.NewError("forbidden", "designer role required", http.StatusForbidden))
			return
		}
		filter.DesignerID = identity.UID
	case auth.RoleAdmin:
		if !identity.HasRole(auth.RoleAdmin) {
			httpx.WriteError(ctx, w, httpx.NewError("forbidden", "admin role required", http.StatusForbidden))
			return
		}
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "as must be client, designer or admin", http.StatusBadRequest))
		return
	}

	page, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, pagination.NewResponse(page, buildOrderPayload))
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		serviceUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	order, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	// Orders of other users are reported as missing.
	if order.ClientID != identity.UID && order.DesignerID != identity.UID && !identity.HasRole(auth.RoleAdmin) {
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound).WithEntity(services.EntityOrder))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		serviceUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	order, err := h.orders.Cancel(ctx, services.CancelOrderCommand{
		OrderID:  strings.TrimSpace(chi.URLParam(r, "orderID")),
		ClientID: identity.UID,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) completeJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		serviceUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	if !identity.HasRole(auth.RoleDesigner) {
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "designer role required", http.StatusForbidden))
		return
	}

	order, err := h.orders.CompleteJob(ctx, services.CompleteJobCommand{
		OrderID:    strings.TrimSpace(chi.URLParam(r, "orderID")),
		DesignerID: identity.UID,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

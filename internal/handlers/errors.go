package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/tailor-market/api/internal/platform/auth"
	"github.com/tailor-market/api/internal/platform/httpx"
	"github.com/tailor-market/api/internal/platform/requestctx"
	"github.com/tailor-market/api/internal/services"
)

// writeServiceError maps the services error taxonomy onto the JSON error envelope.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrEmptyCart):
		httpx.WriteError(ctx, w, httpx.NewError("cart_empty", "cart is empty", http.StatusBadRequest))
	case errors.Is(err, services.ErrNotFound):
		entity, _ := services.NotFoundEntity(err)
		if entity == "" {
			entity = "resource"
		}
		httpx.WriteError(ctx, w, httpx.NewError(entity+"_not_found", err.Error(), http.StatusNotFound).WithEntity(entity))
	case errors.Is(err, services.ErrConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrUnauthorized):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "not allowed to access this resource", http.StatusForbidden))
	case errors.Is(err, services.ErrBusinessRule):
		httpx.WriteError(ctx, w, httpx.NewError("business_rule", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrInsufficientFunds):
		// Kept at 501 for compatibility with existing clients.
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_funds", "insufficient wallet balance", http.StatusNotImplemented))
	case errors.Is(err, services.ErrInfrastructure):
		requestctx.Logger(ctx).Error("dependency failure", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("unavailable", "service temporarily unavailable", http.StatusServiceUnavailable))
	case errors.Is(err, context.DeadlineExceeded):
		httpx.WriteError(ctx, w, httpx.NewError("timeout", "request timed out", http.StatusGatewayTimeout))
	default:
		requestctx.Logger(ctx).Error("unhandled error", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("internal", "internal error", http.StatusInternalServerError))
	}
}

// requireIdentity returns the authenticated user or writes 401.
func requireIdentity(ctx context.Context, w http.ResponseWriter) (*auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity.UID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func writeDecodeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, httpx.ErrBodyTooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), status))
}

func serviceUnavailable(ctx context.Context, w http.ResponseWriter, name string) {
	httpx.WriteError(ctx, w, httpx.NewError(name+"_unavailable", name+" service unavailable", http.StatusServiceUnavailable))
}

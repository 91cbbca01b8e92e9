package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	domain "github.com/tailor-market/api/internal/domain"
	"github.com/tailor-market/api/internal/platform/auth"
	"github.com/tailor-market/api/internal/platform/httpx"
	"github.com/tailor-market/api/internal/platform/requestctx"
	"github.com/tailor-market/api/internal/services"
)

// InternalTransactionHandlers lets payment workers settle external transactions. The group is
// guarded by service-to-service OIDC tokens.
type InternalTransactionHandlers struct {
	ledger services.WalletLedger
}

// NewInternalTransactionHandlers constructs the reconciliation endpoint.
func NewInternalTransactionHandlers(ledger services.WalletLedger) *InternalTransactionHandlers {
	return &InternalTransactionHandlers{ledger: ledger}
}

// Routes registers the /internal transaction endpoints.
func (h *InternalTransactionHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/transactions/{txnID}:reconcile", h.reconcile)
}

type reconcileRequest struct {
	Status string `json:"status"`
}

func (h *InternalTransactionHandlers) reconcile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.ledger == nil {
		serviceUnavailable(ctx, w, "wallet")
		return
	}

	var req reconcileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeDecodeError(ctx, w, err)
		return
	}
	txnID := strings.TrimSpace(chi.URLParam(r, "txnID"))
	status := domain.TransactionStatus(strings.ToUpper(strings.TrimSpace(req.Status)))

	txn, err := h.ledger.ReconcileTransaction(ctx, txnID, status)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	fields := []zap.Field{zap.String("transaction_id", txn.ID), zap.String("status", string(txn.Status))}
	if caller, ok := auth.ServiceIdentityFromContext(ctx); ok {
		fields = append(fields, zap.String("caller", caller.Email))
	}
	requestctx.Logger(ctx).Info("transaction reconciled", fields...)
	httpx.WriteJSON(w, http.StatusOK, transactionResponse{Transaction: buildTransactionPayload(txn)})
}

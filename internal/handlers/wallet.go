package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/tailor-market/api/internal/domain"
	"github.com/tailor-market/api/internal/platform/auth"
	"github.com/tailor-market/api/internal/platform/httpx"
	"github.com/tailor-market/api/internal/platform/pagination"
	"github.com/tailor-market/api/internal/services"
)

// WalletHandlers exposes the caller's balance and payment ledger.
type WalletHandlers struct {
	authn  *auth.Authenticator
	ledger services.WalletLedger
}

// NewWalletHandlers constructs wallet handlers guarded by Firebase authentication.
func NewWalletHandlers(authn *auth.Authenticator, ledger services.WalletLedger) *WalletHandlers {
	return &WalletHandlers{
		authn:  authn,
		ledger: ledger,
	}
}

// Routes registers the /wallet endpoints.
func (h *WalletHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireUser())
	}
	r.Get("/", h.getBalance)
	r.Get("/transactions", h.listTransactions)
	r.Get("/transactions/{txnID}", h.getTransaction)
}

type transactionResponse struct {
	Transaction transactionPayload `json:"transaction"`
}

func (h *WalletHandlers) getBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.ledger == nil {
		serviceUnavailable(ctx, w, "wallet")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	wallet, err := h.ledger.Balance(ctx, identity.UID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, walletPayload{
		UserID:    wallet.UserID,
		Main:      wallet.Main,
		UpdatedAt: formatTime(wallet.UpdatedAt),
	})
}

func (h *WalletHandlers) listTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.ledger == nil {
		serviceUnavailable(ctx, w, "wallet")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	filter, err := parseTransactionFilter(r.URL.Query())
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	filter.UserID = identity.UID

	page, err := h.ledger.ListTransactions(ctx, filter)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, pagination.NewResponse(page, buildTransactionPayload))
}

func (h *WalletHandlers) getTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.ledger == nil {
		serviceUnavailable(ctx, w, "wallet")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	txn, err := h.ledger.GetTransaction(ctx, strings.TrimSpace(chi.URLParam(r, "txnID")), identity.UID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, transactionResponse{Transaction: buildTransactionPayload(txn)})
}

// parseTransactionFilter reads the ledger query parameters. Dates are RFC 3339; amounts are minor units.
func parseTransactionFilter(query url.Values) (services.TransactionListFilter, error) {
	params, err := pagination.Parse(query)
	if err != nil {
		return services.TransactionListFilter{}, err
	}
	filter := services.TransactionListFilter{
		Type:     domain.TransactionType(strings.ToUpper(strings.TrimSpace(query.Get("type")))),
		Action:   domain.TransactionAction(strings.ToUpper(strings.TrimSpace(query.Get("action")))),
		Status:   domain.TransactionStatus(strings.ToUpper(strings.TrimSpace(query.Get("status")))),
		Platform: strings.TrimSpace(query.Get("platform")),
		Sort:     params.Sort,
		Limit:    params.Limit,
		Offset:   params.Offset,
	}
	if filter.MinDate, err = parseTimeParam(query, "minDate"); err != nil {
		return services.TransactionListFilter{}, err
	}
	if filter.MaxDate, err = parseTimeParam(query, "maxDate"); err != nil {
		return services.TransactionListFilter{}, err
	}
	if filter.MinAmount, err = parseAmountParam(query, "minAmount"); err != nil {
		return services.TransactionListFilter{}, err
	}
	if filter.MaxAmount, err = parseAmountParam(query, "maxAmount"); err != nil {
		return services.TransactionListFilter{}, err
	}
	return filter, nil
}

func parseTimeParam(query url.Values, name string) (time.Time, error) {
	raw := strings.TrimSpace(query.Get(name))
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be an RFC 3339 timestamp", name)
	}
	return t.UTC(), nil
}

func parseAmountParam(query url.Values, name string) (*int64, error) {
	raw := strings.TrimSpace(query.Get(name))
	if raw == "" {
		return nil, nil
	}
	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || amount < 0 {
		return nil, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return &amount, nil
}

package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/tailor-market/api/internal/domain"
	"github.com/tailor-market/api/internal/repositories"
)

const externalPaymentTitle = "Order commission payment"

// PaymentRouterDeps bundles collaborators required to construct the payment router.
type PaymentRouterDeps struct {
	Ledger       WalletLedger
	Transactions repositories.TransactionRepository
	Clock        func() time.Time
	IDGenerator  func() string
}

type paymentRouter struct {
	ledger       WalletLedger
	transactions repositories.TransactionRepository
	clock        func() time.Time
	newID        func() string
}

var _ PaymentRouter = (*paymentRouter)(nil)

// NewPaymentRouter constructs a PaymentRouter.
func NewPaymentRouter(deps PaymentRouterDeps) (PaymentRouter, error) {
	if deps.Ledger == nil {
		return nil, errors.New("payment router: wallet ledger is required")
	}
	if deps.Transactions == nil {
		return nil, errors.New("payment router: transaction repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	return &paymentRouter{
		ledger:       deps.Ledger,
		transactions: deps.Transactions,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID: idGen,
	}, nil
}

// ValidatePayment checks the platform and reference without touching storage. External platforms
// need the provider reference the client paid under.
func (r *paymentRouter) ValidatePayment(platform, reference string) error {
	platform = strings.TrimSpace(platform)
	if platform == "" {
		return validationError("payment platform is required")
	}
	if platform != domain.PlatformWallet && strings.TrimSpace(reference) == "" {
		return validationError("payment reference is required for platform %s", platform)
	}
	return nil
}

// Pay debits the wallet for WALLET payments and otherwise records a pending external payment.
func (r *paymentRouter) Pay(ctx context.Context, tx repositories.Tx, req PaymentRequest) (Transaction, error) {
	if err := r.ValidatePayment(req.Platform, req.Reference); err != nil {
		return Transaction{}, err
	}
	platform := strings.TrimSpace(req.Platform)
	if platform == domain.PlatformWallet {
		return r.ledger.Debit(ctx, tx, req.UserID, req.Amount, req.Item)
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return Transaction{}, validationError("user id is required")
	}
	if req.Amount <= 0 {
		return Transaction{}, validationError("amount must be positive")
	}

	now := r.clock()
	txn := Transaction{
		ID:        transactionIDPrefix + r.newID(),
		UserID:    userID,
		Title:     externalPaymentTitle,
		Amount:    req.Amount,
		Action:    domain.TransactionActionNone,
		Type:      domain.TransactionTypeOrder,
		Platform:  platform,
		Item:      req.Item,
		Reference: strings.TrimSpace(req.Reference),
		Status:    domain.TransactionStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.transactions.Append(ctx, tx, txn); err != nil {
		return Transaction{}, mapRepositoryError(err, EntityTransaction, txn.ID)
	}
	return txn, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	domain "github.com/tailor-market/api/internal/domain"
	"github.com/tailor-market/api/internal/repositories"
)

const (
	transactionIDPrefix = "txn_"

	walletCreditTitle = "Credit Wallet"
	walletDebitTitle  = "Debit Wallet"

	defaultTransactionPageSize = 20
	maxTransactionPageSize     = 100

	servicesMeterName = "github.com/tailor-market/api/internal/services"
)

// WalletLedgerDeps bundles collaborators required to construct the wallet ledger.
type WalletLedgerDeps struct {
	Wallets      repositories.WalletRepository
	Transactions repositories.TransactionRepository
	UnitOfWork   repositories.UnitOfWork
	// Replicated rejects wallet mutations that arrive without a unit of work instead of opening one.
	Replicated  bool
	Clock       func() time.Time
	IDGenerator func() string
	Meter       metric.Meter
	Logger      Logger
}

type walletLedger struct {
	wallets      repositories.WalletRepository
	transactions repositories.TransactionRepository
	unitOfWork   repositories.UnitOfWork
	replicated   bool
	clock        func() time.Time
	newID        func() string
	postings     metric.Int64Counter
	logger       Logger
}

var _ WalletLedger = (*walletLedger)(nil)

// NewWalletLedger wires the wallet and transaction repositories into a WalletLedger.
func NewWalletLedger(deps WalletLedgerDeps) (WalletLedger, error) {
	if deps.Wallets == nil {
		return nil, errors.New("wallet ledger: wallet repository is required")
	}
	if deps.Transactions == nil {
		return nil, errors.New("wallet ledger: transaction repository is required")
	}
	if deps.UnitOfWork == nil {
		return nil, errors.New("wallet ledger: unit of work is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	meter := deps.Meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(servicesMeterName)
	}
	postings, err := meter.Int64Counter(
		"wallet.ledger.postings",
		metric.WithDescription("Count of wallet postings by action and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("wallet ledger: register postings counter: %w", err)
	}

	return &walletLedger{
		wallets:      deps.Wallets,
		transactions: deps.Transactions,
		unitOfWork:   deps.UnitOfWork,
		replicated:   deps.Replicated,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:    idGen,
		postings: postings,
		logger:   logger,
	}, nil
}

// UpdateWallet applies one credit or debit and appends the matching ledger entry in the same unit of
// work. A nil tx opens a unit of work unless the ledger is replicated.
func (l *walletLedger) UpdateWallet(ctx context.Context, tx repositories.Tx, update WalletUpdate) (Transaction, error) {
	update.UserID = strings.TrimSpace(update.UserID)
	if update.UserID == "" {
		return Transaction{}, validationError("user id is required")
	}
	if update.Action != domain.TransactionActionCredit && update.Action != domain.TransactionActionDebit {
		return Transaction{}, validationError("wallet action must be %s or %s", domain.TransactionActionCredit, domain.TransactionActionDebit)
	}
	if update.Amount <= 0 {
		return Transaction{}, validationError("amount must be positive")
	}

	if tx != nil {
		return l.post(ctx, tx, update)
	}
	if l.replicated {
		return Transaction{}, validationError("wallet update requires a unit of work")
	}

	var txn Transaction
	err := l.unitOfWork.RunInTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		var err error
		txn, err = l.post(ctx, tx, update)
		return err
	})
	if err != nil {
		return Transaction{}, mapCommitError(err)
	}
	return txn, nil
}

func (l *walletLedger) post(ctx context.Context, tx repositories.Tx, update WalletUpdate) (Transaction, error) {
	wallet, err := l.wallets.Get(ctx, tx, update.UserID)
	if err != nil {
		return Transaction{}, mapRepositoryError(err, EntityUser, update.UserID)
	}
	if wallet.UserStatus == domain.UserStatusHidden {
		return Transaction{}, notFound(EntityUser, update.UserID)
	}

	balance := wallet.Main + update.Amount
	title := walletCreditTitle
	if update.Action == domain.TransactionActionDebit {
		balance = wallet.Main - update.Amount
		title = walletDebitTitle
	}
	if balance < 0 {
		l.record(ctx, update.Action, "insufficient_funds")
		return Transaction{}, fmt.Errorf("%w: user %s balance %d, debit %d", ErrInsufficientFunds, update.UserID, wallet.Main, update.Amount)
	}

	now := l.clock()
	txn := Transaction{
		ID:        transactionIDPrefix + l.newID(),
		UserID:    update.UserID,
		Title:     title,
		Amount:    update.Amount,
		Action:    update.Action,
		Type:      domain.TransactionTypeWallet,
		Platform:  domain.PlatformWallet,
		Item:      update.Item,
		Status:    domain.TransactionStatusSuccess,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := l.transactions.Append(ctx, tx, txn); err != nil {
		return Transaction{}, mapRepositoryError(err, EntityTransaction, txn.ID)
	}
	if err := l.wallets.SetBalance(ctx, tx, update.UserID, balance, now); err != nil {
		return Transaction{}, mapRepositoryError(err, EntityUser, update.UserID)
	}
	l.record(ctx, update.Action, "posted")
	return txn, nil
}

func (l *walletLedger) Debit(ctx context.Context, tx repositories.Tx, userID string, amount int64, item string) (Transaction, error) {
	return l.UpdateWallet(ctx, tx, WalletUpdate{UserID: userID, Action: domain.TransactionActionDebit, Amount: amount, Item: item})
}

func (l *walletLedger) Credit(ctx context.Context, tx repositories.Tx, userID string, amount int64, item string) (Transaction, error) {
	return l.UpdateWallet(ctx, tx, WalletUpdate{UserID: userID, Action: domain.TransactionActionCredit, Amount: amount, Item: item})
}

func (l *walletLedger) Balance(ctx context.Context, userID string) (Wallet, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Wallet{}, validationError("user id is required")
	}
	wallet, err := l.wallets.Get(ctx, nil, userID)
	if err != nil {
		return Wallet{}, mapRepositoryError(err, EntityUser, userID)
	}
	if wallet.UserStatus == domain.UserStatusHidden {
		return Wallet{}, notFound(EntityUser, userID)
	}
	return wallet, nil
}

// ListTransactions applies listing defaults. A zero MaxDate means now, read once per call.
func (l *walletLedger) ListTransactions(ctx context.Context, filter TransactionListFilter) (domain.Page[Transaction], error) {
	if filter.MaxDate.IsZero() {
		filter.MaxDate = l.clock()
	}
	if !filter.MinDate.IsZero() && filter.MinDate.After(filter.MaxDate) {
		return domain.Page[Transaction]{}, validationError("min date is after max date")
	}
	if filter.MinAmount != nil && filter.MaxAmount != nil && *filter.MinAmount > *filter.MaxAmount {
		return domain.Page[Transaction]{}, validationError("min amount is above max amount")
	}
	if filter.Offset < 0 {
		return domain.Page[Transaction]{}, validationError("offset must not be negative")
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultTransactionPageSize
	case filter.Limit > maxTransactionPageSize:
		filter.Limit = maxTransactionPageSize
	}
	switch filter.Sort {
	case "":
		filter.Sort = domain.SortDesc
	case domain.SortAsc, domain.SortDesc:
	default:
		return domain.Page[Transaction]{}, validationError("unknown sort order %q", filter.Sort)
	}

	page, err := l.transactions.List(ctx, filter)
	if err != nil {
		return domain.Page[Transaction]{}, mapRepositoryError(err, EntityTransaction, "")
	}
	return page, nil
}

// GetTransaction loads one ledger entry. A non-empty userID must own it.
func (l *walletLedger) GetTransaction(ctx context.Context, txnID, userID string) (Transaction, error) {
	txnID = strings.TrimSpace(txnID)
	if txnID == "" {
		return Transaction{}, validationError("transaction id is required")
	}
	txn, err := l.transactions.FindByID(ctx, nil, txnID)
	if err != nil {
		return Transaction{}, mapRepositoryError(err, EntityTransaction, txnID)
	}
	if userID = strings.TrimSpace(userID); userID != "" && txn.UserID != userID {
		return Transaction{}, fmt.Errorf("%w: transaction %s", ErrUnauthorized, txnID)
	}
	return txn, nil
}

// ReconcileTransaction settles a pending external payment. Wallet postings are final.
func (l *walletLedger) ReconcileTransaction(ctx context.Context, txnID string, status TransactionStatus) (Transaction, error) {
	txnID = strings.TrimSpace(txnID)
	if txnID == "" {
		return Transaction{}, validationError("transaction id is required")
	}
	if status != domain.TransactionStatusSuccess && status != domain.TransactionStatusFailed {
		return Transaction{}, validationError("reconciled status must be %s or %s", domain.TransactionStatusSuccess, domain.TransactionStatusFailed)
	}

	var out Transaction
	err := l.unitOfWork.RunInTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		txn, err := l.transactions.FindByID(ctx, tx, txnID)
		if err != nil {
			return mapRepositoryError(err, EntityTransaction, txnID)
		}
		if txn.Type == domain.TransactionTypeWallet || txn.Platform == domain.PlatformWallet {
			return fmt.Errorf("%w: wallet transaction %s cannot be reconciled", ErrBusinessRule, txnID)
		}
		if txn.Status != domain.TransactionStatusPending {
			return fmt.Errorf("%w: transaction %s is already %s", ErrBusinessRule, txnID, txn.Status)
		}
		now := l.clock()
		if err := l.transactions.UpdateStatus(ctx, tx, txnID, status, now); err != nil {
			return mapRepositoryError(err, EntityTransaction, txnID)
		}
		txn.Status = status
		txn.UpdatedAt = now
		out = txn
		return nil
	})
	if err != nil {
		return Transaction{}, mapCommitError(err)
	}
	l.logger(ctx, "wallet.transaction.reconciled", map[string]any{
		"transactionID": txnID,
		"status":        string(status),
		"userID":        out.UserID,
	})
	return out, nil
}

func (l *walletLedger) record(ctx context.Context, action TransactionAction, outcome string) {
	l.postings.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", string(action)),
		attribute.String("outcome", outcome),
	))
}

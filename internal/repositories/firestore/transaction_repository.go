package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/tailor-market/api/internal/domain"
	pfirestore "github.com/tailor-market/api/internal/platform/firestore"
	"github.com/tailor-market/api/internal/repositories"
)

// TransactionRepository stores ledger entries. Entries are never deleted.
type TransactionRepository struct {
	base *pfirestore.BaseRepository[transactionDocument]
}

var _ repositories.TransactionRepository = (*TransactionRepository)(nil)

// NewTransactionRepository constructs a Firestore-backed ledger repository.
func NewTransactionRepository(provider *pfirestore.Provider) (*TransactionRepository, error) {
	if provider == nil {
		return nil, errors.New("transaction repository: firestore provider is required")
	}
	return &TransactionRepository{base: pfirestore.NewBaseRepository[transactionDocument](provider, transactionsCollection)}, nil
}

func (r *TransactionRepository) Append(ctx context.Context, tx repositories.Tx, txn domain.Transaction) error {
	if r == nil || r.base == nil {
		return errors.New("transaction repository not initialised")
	}
	ftx, err := txFrom(tx)
	if err != nil {
		return err
	}
	return r.base.Create(ctx, ftx, txn.ID, encodeTransaction(txn))
}

func (r *TransactionRepository) UpdateStatus(ctx context.Context, tx repositories.Tx, txnID string, status domain.TransactionStatus, updatedAt time.Time) error {
	if r == nil || r.base == nil {
		return errors.New("transaction repository not initialised")
	}
	ftx, err := txFrom(tx)
	if err != nil {
		return err
	}
	doc, err := r.base.Get(ctx, ftx, txnID)
	if err != nil {
		return err
	}
	doc.Status = string(status)
	doc.UpdatedAt = updatedAt.UTC()
	return r.base.Set(ctx, ftx, txnID, doc)
}

func (r *TransactionRepository) FindByID(ctx context.Context, tx repositories.Tx, txnID string) (domain.Transaction, error) {
	if r == nil || r.base == nil {
		return domain.Transaction{}, errors.New("transaction repository not initialised")
	}
	ftx, err := txFrom(tx)
	if err != nil {
		return domain.Transaction{}, err
	}
	doc, err := r.base.Get(ctx, ftx, strings.TrimSpace(txnID))
	if err != nil {
		return domain.Transaction{}, err
	}
	return decodeTransaction(doc), nil
}

func (r *TransactionRepository) List(ctx context.Context, filter repositories.TransactionListFilter) (domain.Page[domain.Transaction], error) {
	if r == nil || r.base == nil {
		return domain.Page[domain.Transaction]{}, errors.New("transaction repository not initialised")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.UserID != "" {
			q = q.Where("userId", "==", filter.UserID)
		}
		if !filter.MinDate.IsZero() {
			q = q.Where("createdAt", ">=", filter.MinDate.UTC())
		}
		if !filter.MaxDate.IsZero() {
			q = q.Where("createdAt", "<=", filter.MaxDate.UTC())
		}
		if filter.MinAmount != nil {
			q = q.Where("amount", ">=", *filter.MinAmount)
		}
		if filter.MaxAmount != nil {
			q = q.Where("amount", "<=", *filter.MaxAmount)
		}
		if filter.Type != "" {
			q = q.Where("type", "==", string(filter.Type))
		}
		if filter.Action != "" {
			q = q.Where("action", "==", string(filter.Action))
		}
		if filter.Status != "" {
			q = q.Where("status", "==", string(filter.Status))
		}
		if filter.Platform != "" {
			q = q.Where("platform", "==", filter.Platform)
		}
		return paged(q, filter.Sort, filter.Limit, filter.Offset)
	})
	if err != nil {
		return domain.Page[domain.Transaction]{}, err
	}
	items := make([]domain.Transaction, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeTransaction(doc))
	}
	return trimPage(items, filter.Limit, filter.Offset), nil
}

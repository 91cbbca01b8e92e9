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

// WalletRepository reads and writes the wallet stored on user documents.
type WalletRepository struct {
	base *pfirestore.BaseRepository[userDocument]
}

var _ repositories.WalletRepository = (*WalletRepository)(nil)

// NewWalletRepository constructs a Firestore-backed wallet repository.
func NewWalletRepository(provider *pfirestore.Provider) (*WalletRepository, error) {
	if provider == nil {
		return nil, errors.New("wallet repository: firestore provider is required")
	}
	return &WalletRepository{base: pfirestore.NewBaseRepository[userDocument](provider, usersCollection)}, nil
}

func (r *WalletRepository) Get(ctx context.Context, tx repositories.Tx, userID string) (domain.Wallet, error) {
	if r == nil || r.base == nil {
		return domain.Wallet{}, errors.New("wallet repository not initialised")
	}
	ftx, err := txFrom(tx)
	if err != nil {
		return domain.Wallet{}, err
	}
	uid := strings.TrimSpace(userID)
	doc, err := r.base.Get(ctx, ftx, uid)
	if err != nil {
		return domain.Wallet{}, err
	}
	status := domain.UserStatus(doc.Status)
	if status == "" {
		status = domain.UserStatusActive
	}
	return domain.Wallet{
		UserID:     uid,
		Main:       doc.Wallet.Main,
		UserStatus: status,
		UpdatedAt:  doc.UpdatedAt,
	}, nil
}

// SetBalance overwrites wallet.main on an existing user document.
func (r *WalletRepository) SetBalance(ctx context.Context, tx repositories.Tx, userID string, balance int64, updatedAt time.Time) error {
	if r == nil || r.base == nil {
		return errors.New("wallet repository not initialised")
	}
	ftx, err := txFrom(tx)
	if err != nil {
		return err
	}
	uid := strings.TrimSpace(userID)
	doc, err := r.base.Get(ctx, ftx, uid)
	if err != nil {
		return err
	}
	doc.Wallet.Main = balance
	doc.UpdatedAt = updatedAt.UTC()
	return r.base.Set(ctx, ftx, uid, doc, firestore.Merge([]string{"wallet", "main"}, []string{"updatedAt"}))
}

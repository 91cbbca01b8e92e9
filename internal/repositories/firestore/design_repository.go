package firestore

import (
	"context"
	"errors"
	"strings"

	domain "github.com/tailor-market/api/internal/domain"
	pfirestore "github.com/tailor-market/api/internal/platform/firestore"
	"github.com/tailor-market/api/internal/repositories"
)

// DesignRepository reads catalog designs.
type DesignRepository struct {
	base *pfirestore.BaseRepository[designDocument]
}

var _ repositories.DesignRepository = (*DesignRepository)(nil)

// NewDesignRepository constructs a Firestore-backed design repository.
func NewDesignRepository(provider *pfirestore.Provider) (*DesignRepository, error) {
	if provider == nil {
		return nil, errors.New("design repository: firestore provider is required")
	}
	return &DesignRepository{base: pfirestore.NewBaseRepository[designDocument](provider, designsCollection)}, nil
}

// FindByID loads a design regardless of its status.
func (r *DesignRepository) FindByID(ctx context.Context, tx repositories.Tx, designID string) (domain.Design, error) {
	if r == nil || r.base == nil {
		return domain.Design{}, errors.New("design repository not initialised")
	}
	ftx, err := txFrom(tx)
	if err != nil {
		return domain.Design{}, err
	}
	doc, err := r.base.Get(ctx, ftx, strings.TrimSpace(designID))
	if err != nil {
		return domain.Design{}, err
	}
	design := decodeDesign(doc)
	if design.ID == "" {
		design.ID = designID
	}
	return design, nil
}

// Put stores a design. Used by seeding and integration tests; catalog management is handled elsewhere.
func (r *DesignRepository) Put(ctx context.Context, design domain.Design) error {
	if r == nil || r.base == nil {
		return errors.New("design repository not initialised")
	}
	return r.base.Set(ctx, nil, design.ID, encodeDesign(design))
}

package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"

	domain "github.com/tailor-market/api/internal/domain"
	pfirestore "github.com/tailor-market/api/internal/platform/firestore"
	"github.com/tailor-market/api/internal/repositories"
)

// CartRepository persists cart lines, one document per line. Each line also owns a guard document
// keyed by its selection so two lines for the same selection cannot coexist.
type CartRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[cartItemDocument]
	lines    *pfirestore.BaseRepository[cartLineDocument]
}

var _ repositories.CartRepository = (*CartRepository)(nil)

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	return &CartRepository{
		provider: provider,
		base:     pfirestore.NewBaseRepository[cartItemDocument](provider, cartsCollection),
		lines:    pfirestore.NewBaseRepository[cartLineDocument](provider, cartLinesCollection),
	}, nil
}

// Insert stores the line and its guard together. A second line for the same selection fails the
// guard create with a conflict.
func (r *CartRepository) Insert(ctx context.Context, item domain.CartItem) error {
	if r == nil || r.base == nil {
		return errors.New("cart repository not initialised")
	}
	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *pfirestore.Tx) error {
		guard := cartLineDocument{ItemID: item.ID, ClientID: item.ClientID}
		if err := r.lines.Create(ctx, tx, item.LineKey(), guard); err != nil {
			return err
		}
		return r.base.Create(ctx, tx, item.ID, encodeCartItem(item))
	})
}

func (r *CartRepository) Update(ctx context.Context, item domain.CartItem) error {
	if r == nil || r.base == nil {
		return errors.New("cart repository not initialised")
	}
	ref, err := r.base.DocumentRef(ctx, item.ID)
	if err != nil {
		return err
	}
	updates := []firestore.Update{
		{Path: "quantity", Value: item.Quantity},
		{Path: "shippingCost", Value: item.ShippingCost},
		{Path: "updatedAt", Value: item.UpdatedAt.UTC()},
	}
	if _, err := ref.Update(ctx, updates); err != nil {
		return pfirestore.WrapError("carts.update", err)
	}
	return nil
}

func (r *CartRepository) Delete(ctx context.Context, itemID string) error {
	if r == nil || r.base == nil {
		return errors.New("cart repository not initialised")
	}
	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *pfirestore.Tx) error {
		doc, err := r.base.Get(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if err := r.base.Delete(ctx, tx, itemID); err != nil {
			return err
		}
		return r.lines.Delete(ctx, tx, decodeCartItem(doc).LineKey())
	})
}

func (r *CartRepository) FindByID(ctx context.Context, itemID string) (domain.CartItem, error) {
	if r == nil || r.base == nil {
		return domain.CartItem{}, errors.New("cart repository not initialised")
	}
	doc, err := r.base.Get(ctx, nil, strings.TrimSpace(itemID))
	if err != nil {
		return domain.CartItem{}, err
	}
	return decodeCartItem(doc), nil
}

// FindDuplicate looks for another line of the same client with an identical selection.
func (r *CartRepository) FindDuplicate(ctx context.Context, item domain.CartItem) (domain.CartItem, bool, error) {
	if r == nil || r.base == nil {
		return domain.CartItem{}, false, errors.New("cart repository not initialised")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("clientId", "==", item.ClientID).
			Where("designId", "==", item.DesignID).
			Where("materialId", "==", item.MaterialID).
			Where("sizeId", "==", item.SizeID).
			Where("colorId", "==", item.ColorID).
			Limit(2)
	})
	if err != nil {
		return domain.CartItem{}, false, err
	}
	for _, doc := range docs {
		if doc.ID != item.ID {
			return decodeCartItem(doc), true, nil
		}
	}
	return domain.CartItem{}, false, nil
}

// ListByClient returns the client's lines oldest first.
func (r *CartRepository) ListByClient(ctx context.Context, clientID string) ([]domain.CartItem, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("cart repository not initialised")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("clientId", "==", clientID).
			OrderBy("createdAt", firestore.Asc).
			OrderBy(firestore.DocumentID, firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	items := make([]domain.CartItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeCartItem(doc))
	}
	return items, nil
}

// RemoveByClient deletes the listed lines owned by clientID, or all of them when itemIDs is empty.
func (r *CartRepository) RemoveByClient(ctx context.Context, tx repositories.Tx, clientID string, itemIDs []string) error {
	if r == nil || r.base == nil {
		return errors.New("cart repository not initialised")
	}
	ftx, err := txFrom(tx)
	if err != nil {
		return err
	}

	ids := itemIDs
	if len(ids) == 0 {
		items, err := r.ListByClient(ctx, clientID)
		if err != nil {
			return err
		}
		for _, item := range items {
			ids = append(ids, item.ID)
		}
	}

	for _, id := range ids {
		doc, err := r.base.Get(ctx, ftx, id)
		if err != nil {
			var repoErr repositories.RepositoryError
			if errors.As(err, &repoErr) && repoErr.IsNotFound() {
				continue
			}
			return err
		}
		if doc.ClientID != clientID {
			continue
		}
		if err := r.base.Delete(ctx, ftx, id); err != nil {
			return err
		}
		if err := r.lines.Delete(ctx, ftx, decodeCartItem(doc).LineKey()); err != nil {
			return err
		}
	}
	return nil
}

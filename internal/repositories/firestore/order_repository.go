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

// OrderRepository persists orders.
type OrderRepository struct {
	base *pfirestore.BaseRepository[orderDocument]
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository: firestore provider is required")
	}
	return &OrderRepository{base: pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection)}, nil
}

func (r *OrderRepository) Insert(ctx context.Context, tx repositories.Tx, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	ftx, err := txFrom(tx)
	if err != nil {
		return err
	}
	return r.base.Create(ctx, ftx, order.ID, encodeOrder(order))
}

// Update replaces the stored order. The order must exist.
func (r *OrderRepository) Update(ctx context.Context, tx repositories.Tx, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	ftx, err := txFrom(tx)
	if err != nil {
		return err
	}
	if _, err := r.base.Get(ctx, ftx, order.ID); err != nil {
		return err
	}
	return r.base.Set(ctx, ftx, order.ID, encodeOrder(order))
}

func (r *OrderRepository) FindByID(ctx context.Context, tx repositories.Tx, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	ftx, err := txFrom(tx)
	if err != nil {
		return domain.Order{}, err
	}
	doc, err := r.base.Get(ctx, ftx, strings.TrimSpace(orderID))
	if err != nil {
		return domain.Order{}, err
	}
	return decodeOrder(doc), nil
}

func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.Page[domain.Order], error) {
	if r == nil || r.base == nil {
		return domain.Page[domain.Order]{}, errors.New("order repository not initialised")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.ClientID != "" {
			q = q.Where("clientId", "==", filter.ClientID)
		}
		if filter.DesignerID != "" {
			q = q.Where("designerId", "==", filter.DesignerID)
		}
		if filter.Status != "" {
			q = q.Where("status", "==", string(filter.Status))
		}
		return paged(q, filter.Sort, filter.Limit, filter.Offset)
	})
	if err != nil {
		return domain.Page[domain.Order]{}, err
	}
	items := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeOrder(doc))
	}
	return trimPage(items, filter.Limit, filter.Offset), nil
}

// paged orders by creation time and fetches one extra row so callers can report HasMore.
func paged(q firestore.Query, sort domain.SortOrder, limit, offset int) firestore.Query {
	dir := firestore.Desc
	if sort == domain.SortAsc {
		dir = firestore.Asc
	}
	q = q.OrderBy("createdAt", dir).OrderBy(firestore.DocumentID, dir)
	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit + 1)
	}
	return q
}

func trimPage[T any](items []T, limit, offset int) domain.Page[T] {
	page := domain.Page[T]{Items: items, Limit: limit, Offset: offset}
	if limit > 0 && len(items) > limit {
		page.Items = items[:limit]
		page.HasMore = true
	}
	return page
}

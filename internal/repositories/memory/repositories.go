package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	domain "github.com/tailor-market/api/internal/domain"
	"github.com/tailor-market/api/internal/repositories"
)

type designRepository struct{ s *Store }

func (r designRepository) FindByID(_ context.Context, tx repositories.Tx, designID string) (domain.Design, error) {
	var out domain.Design
	err := r.s.read(tx, func(st *state) error {
		design, ok := st.designs[designID]
		if !ok {
			return notFound("designs.get", designID)
		}
		out = design
		return nil
	})
	return out, err
}

type cartRepository struct{ s *Store }

func (r cartRepository) Insert(_ context.Context, item domain.CartItem) error {
	return r.s.write(nil, func(st *state) error {
		if _, ok := st.carts[item.ID]; ok {
			return conflict("carts.insert", item.ID)
		}
		for _, existing := range st.carts {
			if existing.SameLine(item) {
				return conflict("carts.insert", existing.ID)
			}
		}
		st.carts[item.ID] = item
		return nil
	})
}

func (r cartRepository) Update(_ context.Context, item domain.CartItem) error {
	return r.s.write(nil, func(st *state) error {
		if _, ok := st.carts[item.ID]; !ok {
			return notFound("carts.update", item.ID)
		}
		st.carts[item.ID] = item
		return nil
	})
}

func (r cartRepository) Delete(_ context.Context, itemID string) error {
	return r.s.write(nil, func(st *state) error {
		if _, ok := st.carts[itemID]; !ok {
			return notFound("carts.delete", itemID)
		}
		delete(st.carts, itemID)
		return nil
	})
}

func (r cartRepository) FindByID(_ context.Context, itemID string) (domain.CartItem, error) {
	var out domain.CartItem
	err := r.s.read(nil, func(st *state) error {
		item, ok := st.carts[itemID]
		if !ok {
			return notFound("carts.get", itemID)
		}
		out = item
		return nil
	})
	return out, err
}

func (r cartRepository) FindDuplicate(_ context.Context, item domain.CartItem) (domain.CartItem, bool, error) {
	var (
		out   domain.CartItem
		found bool
	)
	err := r.s.read(nil, func(st *state) error {
		for _, existing := range st.carts {
			if existing.ID != item.ID && existing.SameLine(item) {
				out, found = existing, true
				return nil
			}
		}
		return nil
	})
	return out, found, err
}

func (r cartRepository) ListByClient(_ context.Context, clientID string) ([]domain.CartItem, error) {
	var items []domain.CartItem
	err := r.s.read(nil, func(st *state) error {
		for _, item := range st.carts {
			if item.ClientID == clientID {
				items = append(items, item)
			}
		}
		return nil
	})
	slices.SortFunc(items, func(a, b domain.CartItem) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return items, err
}

func (r cartRepository) RemoveByClient(_ context.Context, tx repositories.Tx, clientID string, itemIDs []string) error {
	return r.s.write(tx, func(st *state) error {
		for id, item := range st.carts {
			if item.ClientID != clientID {
				continue
			}
			if len(itemIDs) == 0 || slices.Contains(itemIDs, id) {
				delete(st.carts, id)
			}
		}
		return nil
	})
}

type orderRepository struct{ s *Store }

func (r orderRepository) Insert(_ context.Context, tx repositories.Tx, order domain.Order) error {
	return r.s.write(tx, func(st *state) error {
		if _, ok := st.orders[order.ID]; ok {
			return conflict("orders.insert", order.ID)
		}
		st.orders[order.ID] = order
		return nil
	})
}

func (r orderRepository) Update(_ context.Context, tx repositories.Tx, order domain.Order) error {
	return r.s.write(tx, func(st *state) error {
		if _, ok := st.orders[order.ID]; !ok {
			return notFound("orders.update", order.ID)
		}
		st.orders[order.ID] = order
		return nil
	})
}

func (r orderRepository) FindByID(_ context.Context, tx repositories.Tx, orderID string) (domain.Order, error) {
	var out domain.Order
	err := r.s.read(tx, func(st *state) error {
		order, ok := st.orders[orderID]
		if !ok {
			return notFound("orders.get", orderID)
		}
		out = order
		return nil
	})
	return out, err
}

func (r orderRepository) List(_ context.Context, filter repositories.OrderListFilter) (domain.Page[domain.Order], error) {
	var matched []domain.Order
	err := r.s.read(nil, func(st *state) error {
		for _, order := range st.orders {
			if filter.ClientID != "" && order.ClientID != filter.ClientID {
				continue
			}
			if filter.DesignerID != "" && order.DesignerID != filter.DesignerID {
				continue
			}
			if filter.Status != "" && order.Status != filter.Status {
				continue
			}
			matched = append(matched, order)
		}
		return nil
	})
	if err != nil {
		return domain.Page[domain.Order]{}, err
	}
	sortByCreated(matched, filter.Sort, func(o domain.Order) (time.Time, string) { return o.CreatedAt, o.ID })
	return page(matched, filter.Limit, filter.Offset), nil
}

type transactionRepository struct{ s *Store }

func (r transactionRepository) Append(_ context.Context, tx repositories.Tx, txn domain.Transaction) error {
	return r.s.write(tx, func(st *state) error {
		if _, ok := st.transactions[txn.ID]; ok {
			return conflict("transactions.append", txn.ID)
		}
		st.transactions[txn.ID] = txn
		return nil
	})
}

func (r transactionRepository) UpdateStatus(_ context.Context, tx repositories.Tx, txnID string, status domain.TransactionStatus, updatedAt time.Time) error {
	return r.s.write(tx, func(st *state) error {
		txn, ok := st.transactions[txnID]
		if !ok {
			return notFound("transactions.update", txnID)
		}
		txn.Status = status
		txn.UpdatedAt = updatedAt
		st.transactions[txnID] = txn
		return nil
	})
}

func (r transactionRepository) FindByID(_ context.Context, tx repositories.Tx, txnID string) (domain.Transaction, error) {
	var out domain.Transaction
	err := r.s.read(tx, func(st *state) error {
		txn, ok := st.transactions[txnID]
		if !ok {
			return notFound("transactions.get", txnID)
		}
		out = txn
		return nil
	})
	return out, err
}

func (r transactionRepository) List(_ context.Context, filter repositories.TransactionListFilter) (domain.Page[domain.Transaction], error) {
	var matched []domain.Transaction
	err := r.s.read(nil, func(st *state) error {
		for _, txn := range st.transactions {
			if matchTransaction(txn, filter) {
				matched = append(matched, txn)
			}
		}
		return nil
	})
	if err != nil {
		return domain.Page[domain.Transaction]{}, err
	}
	sortByCreated(matched, filter.Sort, func(t domain.Transaction) (time.Time, string) { return t.CreatedAt, t.ID })
	return page(matched, filter.Limit, filter.Offset), nil
}

func matchTransaction(txn domain.Transaction, f repositories.TransactionListFilter) bool {
	switch {
	case f.UserID != "" && txn.UserID != f.UserID:
		return false
	case !f.MinDate.IsZero() && txn.CreatedAt.Before(f.MinDate):
		return false
	case !f.MaxDate.IsZero() && txn.CreatedAt.After(f.MaxDate):
		return false
	case f.MinAmount != nil && txn.Amount < *f.MinAmount:
		return false
	case f.MaxAmount != nil && txn.Amount > *f.MaxAmount:
		return false
	case f.Type != "" && txn.Type != f.Type:
		return false
	case f.Action != "" && txn.Action != f.Action:
		return false
	case f.Status != "" && txn.Status != f.Status:
		return false
	case f.Platform != "" && txn.Platform != f.Platform:
		return false
	}
	return true
}

type walletRepository struct{ s *Store }

func (r walletRepository) Get(_ context.Context, tx repositories.Tx, userID string) (domain.Wallet, error) {
	var out domain.Wallet
	err := r.s.read(tx, func(st *state) error {
		wallet, ok := st.wallets[userID]
		if !ok {
			return notFound("users.get", userID)
		}
		out = wallet
		return nil
	})
	return out, err
}

func (r walletRepository) SetBalance(_ context.Context, tx repositories.Tx, userID string, balance int64, updatedAt time.Time) error {
	return r.s.write(tx, func(st *state) error {
		wallet, ok := st.wallets[userID]
		if !ok {
			return notFound("users.update", userID)
		}
		wallet.Main = balance
		wallet.UpdatedAt = updatedAt
		st.wallets[userID] = wallet
		return nil
	})
}

// sortByCreated orders by creation time then id, descending unless sort is asc.
func sortByCreated[T any](items []T, sort domain.SortOrder, key func(T) (time.Time, string)) {
	slices.SortFunc(items, func(a, b T) int {
		at, aid := key(a)
		bt, bid := key(b)
		c := at.Compare(bt)
		if c == 0 {
			c = cmp.Compare(aid, bid)
		}
		if sort == domain.SortAsc {
			return c
		}
		return -c
	})
}

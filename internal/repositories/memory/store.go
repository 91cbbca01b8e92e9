// Package memory provides a process-local repositories.Registry. Units of work are serialised and
// see a private copy of the data; their writes reach the shared copy only when the callback succeeds.
package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	domain "github.com/tailor-market/api/internal/domain"
	"github.com/tailor-market/api/internal/repositories"
)

// BackendName identifies memory transaction handles.
const BackendName = "memory"

type state struct {
	designs      map[string]domain.Design
	carts        map[string]domain.CartItem
	orders       map[string]domain.Order
	transactions map[string]domain.Transaction
	wallets      map[string]domain.Wallet
}

func newState() *state {
	return &state{
		designs:      make(map[string]domain.Design),
		carts:        make(map[string]domain.CartItem),
		orders:       make(map[string]domain.Order),
		transactions: make(map[string]domain.Transaction),
		wallets:      make(map[string]domain.Wallet),
	}
}

func (s *state) clone() *state {
	return &state{
		designs:      maps.Clone(s.designs),
		carts:        maps.Clone(s.carts),
		orders:       maps.Clone(s.orders),
		transactions: maps.Clone(s.transactions),
		wallets:      maps.Clone(s.wallets),
	}
}

type mutation func(*state) error

// Tx is the memory unit-of-work handle.
type Tx struct {
	view *state
	log  []mutation
	done bool
}

// Backend implements repositories.Tx.
func (t *Tx) Backend() string { return BackendName }

// Store holds every collection in memory.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data *state

	health repositories.HealthRepository
}

var _ repositories.Registry = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	store := &Store{data: newState()}
	health, _ := repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{{
		Name:  BackendName,
		Check: func(context.Context) error { return nil },
	}})
	store.health = health
	return store
}

// RunInTx runs fn against a private view of the store. Units of work never interleave.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx repositories.Tx) error) error {
	if fn == nil {
		return errors.New("memory: transaction function is nil")
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	tx := &Tx{view: s.data.clone()}
	s.mu.RUnlock()

	err := fn(ctx, tx)
	tx.done = true
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.data.clone()
	for _, apply := range tx.log {
		if err := apply(next); err != nil {
			return &Error{op: "memory.commit", err: err, conflict: true}
		}
	}
	s.data = next
	return nil
}

// Close implements repositories.Registry.
func (s *Store) Close(context.Context) error { return nil }

func (s *Store) Designs() repositories.DesignRepository           { return designRepository{s} }
func (s *Store) Carts() repositories.CartRepository               { return cartRepository{s} }
func (s *Store) Orders() repositories.OrderRepository             { return orderRepository{s} }
func (s *Store) Transactions() repositories.TransactionRepository { return transactionRepository{s} }
func (s *Store) Wallets() repositories.WalletRepository           { return walletRepository{s} }
func (s *Store) Health() repositories.HealthRepository            { return s.health }

// PutDesign stores or replaces a catalog design.
func (s *Store) PutDesign(design domain.Design) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.designs[design.ID] = design
}

// PutWallet stores or replaces a user's wallet.
func (s *Store) PutWallet(wallet domain.Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.wallets[wallet.UserID] = wallet
}

func unwrap(tx repositories.Tx) (*Tx, error) {
	if tx == nil {
		return nil, nil
	}
	mt, ok := tx.(*Tx)
	if !ok {
		return nil, fmt.Errorf("memory: foreign transaction handle from %s backend", tx.Backend())
	}
	if mt.done {
		return nil, errors.New("memory: transaction already finished")
	}
	return mt, nil
}

// read runs fn against the transaction view, or the shared data under a read lock.
func (s *Store) read(tx repositories.Tx, fn func(*state) error) error {
	mt, err := unwrap(tx)
	if err != nil {
		return err
	}
	if mt != nil {
		return fn(mt.view)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

// write applies m to the transaction view and journals it, or applies it to the shared data.
func (s *Store) write(tx repositories.Tx, m mutation) error {
	mt, err := unwrap(tx)
	if err != nil {
		return err
	}
	if mt != nil {
		if err := m(mt.view); err != nil {
			return err
		}
		mt.log = append(mt.log, m)
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return m(s.data)
}

func page[T any](items []T, limit, offset int) domain.Page[T] {
	if offset < 0 {
		offset = 0
	}
	if offset > len(items) {
		offset = len(items)
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return domain.Page[T]{
		Items:   slices.Clone(items[offset:end]),
		Limit:   limit,
		Offset:  offset,
		HasMore: end < len(items),
	}
}

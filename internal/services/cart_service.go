package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/tailor-market/api/internal/repositories"
)

const cartItemIDPrefix = "cart_"

// CartServiceDeps bundles collaborators required to construct the cart service.
type CartServiceDeps struct {
	Carts       repositories.CartRepository
	Catalog     CatalogResolver
	Clock       func() time.Time
	IDGenerator func() string
	Logger      Logger
}

type cartService struct {
	carts   repositories.CartRepository
	catalog CatalogResolver
	clock   func() time.Time
	newID   func() string
	logger  Logger
}

var _ CartService = (*cartService)(nil)

// NewCartService constructs a CartService.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Carts == nil {
		return nil, errors.New("cart service: cart repository is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("cart service: catalog resolver is required")
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
	return &cartService{
		carts:   deps.Carts,
		catalog: deps.Catalog,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// ItemsFor returns the client's cart lines, oldest first.
func (s *cartService) ItemsFor(ctx context.Context, clientID string) ([]CartItem, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, validationError("client id is required")
	}
	items, err := s.carts.ListByClient(ctx, clientID)
	if err != nil {
		return nil, mapRepositoryError(err, EntityCartItem, "")
	}
	return items, nil
}

// Clear deletes the given lines of the client's cart inside tx. Lines owned by others are untouched.
func (s *cartService) Clear(ctx context.Context, tx repositories.Tx, clientID string, itemIDs []string) error {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return validationError("client id is required")
	}
	if err := s.carts.RemoveByClient(ctx, tx, clientID, itemIDs); err != nil {
		return mapRepositoryError(err, EntityCartItem, clientID)
	}
	return nil
}

// Create adds a catalog selection to the cart. The selection must resolve and must not already be in
// the client's cart.
func (s *cartService) Create(ctx context.Context, cmd CreateCartItemCommand) (CartItem, error) {
	clientID := strings.TrimSpace(cmd.ClientID)
	if clientID == "" {
		return CartItem{}, validationError("client id is required")
	}
	if cmd.Quantity < 1 {
		return CartItem{}, validationError("quantity must be at least 1")
	}
	if cmd.ShippingCost < 0 {
		return CartItem{}, validationError("shipping cost must not be negative")
	}

	ref := LineRef{
		DesignID:   strings.TrimSpace(cmd.DesignID),
		MaterialID: strings.TrimSpace(cmd.MaterialID),
		SizeID:     strings.TrimSpace(cmd.SizeID),
		ColorID:    strings.TrimSpace(cmd.ColorID),
	}
	if _, err := s.catalog.ResolveLine(ctx, nil, ref); err != nil {
		return CartItem{}, err
	}

	now := s.clock()
	item := CartItem{
		ID:           cartItemIDPrefix + s.newID(),
		ClientID:     clientID,
		DesignID:     ref.DesignID,
		MaterialID:   ref.MaterialID,
		SizeID:       ref.SizeID,
		ColorID:      ref.ColorID,
		Quantity:     cmd.Quantity,
		ShippingCost: cmd.ShippingCost,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, exists, err := s.carts.FindDuplicate(ctx, item); err != nil {
		return CartItem{}, mapRepositoryError(err, EntityCartItem, item.ID)
	} else if exists {
		return CartItem{}, fmt.Errorf("%w: item already in cart", ErrConflict)
	}

	if err := s.carts.Insert(ctx, item); err != nil {
		return CartItem{}, mapRepositoryError(err, EntityCartItem, item.ID)
	}
	s.logger(ctx, "cart.item.created", map[string]any{
		"clientID": clientID,
		"itemID":   item.ID,
		"designID": item.DesignID,
	})
	return item, nil
}

func (s *cartService) UpdateQuantity(ctx context.Context, cmd UpdateCartItemCommand) (CartItem, error) {
	if cmd.Quantity < 1 {
		return CartItem{}, validationError("quantity must be at least 1")
	}
	item, err := s.Get(ctx, cmd.ClientID, cmd.ItemID)
	if err != nil {
		return CartItem{}, err
	}
	item.Quantity = cmd.Quantity
	item.UpdatedAt = s.clock()
	if err := s.carts.Update(ctx, item); err != nil {
		return CartItem{}, mapRepositoryError(err, EntityCartItem, item.ID)
	}
	return item, nil
}

func (s *cartService) Remove(ctx context.Context, clientID, itemID string) error {
	item, err := s.Get(ctx, clientID, itemID)
	if err != nil {
		return err
	}
	if err := s.carts.Delete(ctx, item.ID); err != nil {
		return mapRepositoryError(err, EntityCartItem, item.ID)
	}
	return nil
}

// Get loads a cart line that must belong to clientID.
func (s *cartService) Get(ctx context.Context, clientID, itemID string) (CartItem, error) {
	clientID = strings.TrimSpace(clientID)
	itemID = strings.TrimSpace(itemID)
	if clientID == "" || itemID == "" {
		return CartItem{}, validationError("client id and item id are required")
	}
	item, err := s.carts.FindByID(ctx, itemID)
	if err != nil {
		return CartItem{}, mapRepositoryError(err, EntityCartItem, itemID)
	}
	if item.ClientID != clientID {
		return CartItem{}, fmt.Errorf("%w: cart item %s", ErrUnauthorized, itemID)
	}
	return item, nil
}

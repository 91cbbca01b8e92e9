package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/tailor-market/api/internal/domain"
	"github.com/tailor-market/api/internal/repositories"
)

const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
)

// Statuses an administrator may set. CANCELLED is reachable only through Cancel.
var adminSettableStatuses = map[domain.OrderStatus]bool{
	domain.OrderStatusProcessing: true,
	domain.OrderStatusOrdered:    true,
	domain.OrderStatusInTransit:  true,
	domain.OrderStatusDelivered:  true,
}

// OrderLifecycleDeps bundles collaborators required to construct the order lifecycle service.
type OrderLifecycleDeps struct {
	Orders     repositories.OrderRepository
	UnitOfWork repositories.UnitOfWork
	Clock      func() time.Time
	Events     OrderEventPublisher
	Logger     Logger
}

type orderLifecycle struct {
	orders     repositories.OrderRepository
	unitOfWork repositories.UnitOfWork
	clock      func() time.Time
	events     OrderEventPublisher
	logger     Logger
}

var _ OrderLifecycle = (*orderLifecycle)(nil)

// NewOrderLifecycle wires dependencies into a concrete OrderLifecycle implementation.
func NewOrderLifecycle(deps OrderLifecycleDeps) (OrderLifecycle, error) {
	if deps.Orders == nil {
		return nil, errors.New("order lifecycle: order repository is required")
	}
	if deps.UnitOfWork == nil {
		return nil, errors.New("order lifecycle: unit of work is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &orderLifecycle{
		orders:     deps.Orders,
		unitOfWork: deps.UnitOfWork,
		clock: func() time.Time {
			return clock().UTC()
		},
		events: deps.Events,
		logger: logger,
	}, nil
}

// SetStatus overrides the status of an order. Any live status may follow any other; a cancelled
// order stays cancelled.
func (s *orderLifecycle) SetStatus(ctx context.Context, cmd SetOrderStatusCommand) (Order, error) {
	status := domain.OrderStatus(strings.ToUpper(strings.TrimSpace(string(cmd.Status))))
	if !adminSettableStatuses[status] {
		return Order{}, validationError("status %q cannot be set", cmd.Status)
	}
	var previous OrderStatus
	order, err := s.mutate(ctx, cmd.OrderID, func(order *Order, now time.Time) error {
		if order.Status == domain.OrderStatusCancelled {
			return fmt.Errorf("%w: order %s is cancelled", ErrBusinessRule, order.ID)
		}
		previous = order.Status
		order.Status = status
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.publishEvent(ctx, orderEventStatusChanged, order, previous, cmd.ActorID)
	return order, nil
}

// Cancel cancels a PROCESSING order on behalf of its client.
func (s *orderLifecycle) Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error) {
	clientID := strings.TrimSpace(cmd.ClientID)
	if clientID == "" {
		return Order{}, validationError("client id is required")
	}
	var previous OrderStatus
	order, err := s.mutate(ctx, cmd.OrderID, func(order *Order, now time.Time) error {
		if order.ClientID != clientID {
			return fmt.Errorf("%w: order %s belongs to another client", ErrUnauthorized, order.ID)
		}
		if order.Status != domain.OrderStatusProcessing {
			return fmt.Errorf("%w: order %s is %s and can no longer be cancelled", ErrBusinessRule, order.ID, order.Status)
		}
		previous = order.Status
		order.Status = domain.OrderStatusCancelled
		cancelledAt := now
		order.CancelledAt = &cancelledAt
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.publishEvent(ctx, orderEventCancelled, order, previous, clientID)
	return order, nil
}

// CompleteJob marks the tailoring job done on behalf of the order's designer.
func (s *orderLifecycle) CompleteJob(ctx context.Context, cmd CompleteJobCommand) (Order, error) {
	designerID := strings.TrimSpace(cmd.DesignerID)
	if designerID == "" {
		return Order{}, validationError("designer id is required")
	}
	order, err := s.mutate(ctx, cmd.OrderID, func(order *Order, now time.Time) error {
		if order.DesignerID != designerID {
			return fmt.Errorf("%w: order %s belongs to another designer", ErrUnauthorized, order.ID)
		}
		order.Job.Done = true
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.publishEvent(ctx, orderEventJobCompleted, order, order.Status, designerID)
	return order, nil
}

func (s *orderLifecycle) GetOrder(ctx context.Context, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, validationError("order id is required")
	}
	order, err := s.orders.FindByID(ctx, nil, orderID)
	if err != nil {
		return Order{}, mapRepositoryError(err, EntityOrder, orderID)
	}
	return order, nil
}

func (s *orderLifecycle) ListOrders(ctx context.Context, filter OrderListFilter) (domain.Page[Order], error) {
	if filter.Status != "" && filter.Status != domain.OrderStatusCancelled && !adminSettableStatuses[filter.Status] {
		return domain.Page[Order]{}, validationError("unknown order status %q", filter.Status)
	}
	if filter.Offset < 0 {
		return domain.Page[Order]{}, validationError("offset must not be negative")
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultOrderPageSize
	case filter.Limit > maxOrderPageSize:
		filter.Limit = maxOrderPageSize
	}
	switch filter.Sort {
	case "":
		filter.Sort = domain.SortDesc
	case domain.SortAsc, domain.SortDesc:
	default:
		return domain.Page[Order]{}, validationError("unknown sort order %q", filter.Sort)
	}
	page, err := s.orders.List(ctx, filter)
	if err != nil {
		return domain.Page[Order]{}, mapRepositoryError(err, EntityOrder, "")
	}
	return page, nil
}

// mutate runs a read-modify-write of one order inside its own unit of work.
func (s *orderLifecycle) mutate(ctx context.Context, orderID string, apply func(order *Order, now time.Time) error) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, validationError("order id is required")
	}
	var out Order
	err := s.unitOfWork.RunInTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		order, err := s.orders.FindByID(ctx, tx, orderID)
		if err != nil {
			return mapRepositoryError(err, EntityOrder, orderID)
		}
		now := s.clock()
		if err := apply(&order, now); err != nil {
			return err
		}
		order.UpdatedAt = now
		if err := s.orders.Update(ctx, tx, order); err != nil {
			return mapRepositoryError(err, EntityOrder, orderID)
		}
		out = order
		return nil
	})
	if err != nil {
		return Order{}, mapCommitError(err)
	}
	return out, nil
}

func (s *orderLifecycle) publishEvent(ctx context.Context, eventType string, order Order, previous OrderStatus, actorID string) {
	publishOrderEvent(ctx, s.events, s.logger, OrderEvent{
		Type:           eventType,
		OrderID:        order.ID,
		ClientID:       order.ClientID,
		DesignerID:     order.DesignerID,
		PreviousStatus: string(previous),
		CurrentStatus:  string(order.Status),
		ActorID:        strings.TrimSpace(actorID),
		OccurredAt:     order.UpdatedAt,
	})
}

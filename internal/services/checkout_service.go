package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	domain "github.com/tailor-market/api/internal/domain"
	"github.com/tailor-market/api/internal/platform/textutil"
	"github.com/tailor-market/api/internal/repositories"
)

const orderEventCreated = "order.created"

var deliveryPhonePattern = regexp.MustCompile(`^[\+]?[(]?[0-9]{3}[)]?[-\s\.]?[0-9]{3}[-\s\.]?[0-9]{4,7}$`)

// CheckoutServiceDeps wires the dependencies required by the checkout service.
type CheckoutServiceDeps struct {
	UnitOfWork repositories.UnitOfWork
	Orders     repositories.OrderRepository
	Cart       CartService
	Catalog    CatalogResolver
	Factory    OrderFactory
	Payments   PaymentRouter
	// ClearCart removes the checked-out lines inside the same unit of work.
	ClearCart bool
	Events    OrderEventPublisher
	Tracer    trace.Tracer
	Meter     metric.Meter
	Logger    Logger
}

type checkoutService struct {
	unitOfWork repositories.UnitOfWork
	orders     repositories.OrderRepository
	cart       CartService
	catalog    CatalogResolver
	factory    OrderFactory
	payments   PaymentRouter
	clearCart  bool
	events     OrderEventPublisher
	tracer     trace.Tracer
	checkouts  metric.Int64Counter
	logger     Logger
}

var _ CheckoutService = (*checkoutService)(nil)

// NewCheckoutService constructs a CheckoutService validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.UnitOfWork == nil {
		return nil, errors.New("checkout service: unit of work is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("checkout service: order repository is required")
	}
	if deps.Cart == nil {
		return nil, errors.New("checkout service: cart service is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("checkout service: catalog resolver is required")
	}
	if deps.Factory == nil {
		return nil, errors.New("checkout service: order factory is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("checkout service: payment router is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer(servicesMeterName)
	}
	meter := deps.Meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(servicesMeterName)
	}
	checkouts, err := meter.Int64Counter(
		"checkout.completed",
		metric.WithDescription("Count of checkout attempts by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("checkout service: register checkout counter: %w", err)
	}

	return &checkoutService{
		unitOfWork: deps.UnitOfWork,
		orders:     deps.Orders,
		cart:       deps.Cart,
		catalog:    deps.Catalog,
		factory:    deps.Factory,
		payments:   deps.Payments,
		clearCart:  deps.ClearCart,
		events:     deps.Events,
		tracer:     tracer,
		checkouts:  checkouts,
		logger:     logger,
	}, nil
}

// Checkout creates and pays one order per cart line. Either every line commits or none does.
func (s *checkoutService) Checkout(ctx context.Context, cmd CheckoutCommand) ([]Order, error) {
	ctx, span := s.tracer.Start(ctx, "checkout", trace.WithAttributes(
		attribute.String("checkout.platform", strings.TrimSpace(cmd.Platform)),
	))
	defer span.End()

	orders, err := s.checkout(ctx, cmd)
	outcome := checkoutOutcome(err)
	s.checkouts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return nil, err
	}
	span.SetAttributes(attribute.Int("checkout.orders", len(orders)))
	return orders, nil
}

func (s *checkoutService) checkout(ctx context.Context, cmd CheckoutCommand) ([]Order, error) {
	clientID := strings.TrimSpace(cmd.ClientID)
	if clientID == "" {
		return nil, validationError("client id is required")
	}
	delivery, err := normaliseDelivery(cmd.Delivery)
	if err != nil {
		return nil, err
	}
	platform := strings.TrimSpace(cmd.Platform)
	reference := strings.TrimSpace(cmd.Reference)
	if err := s.payments.ValidatePayment(platform, reference); err != nil {
		return nil, err
	}

	items, err := s.cart.ItemsFor(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	var orders []Order
	err = s.unitOfWork.RunInTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		// The callback may run more than once when the store retries a contended transaction.
		orders = make([]Order, 0, len(items))
		for _, item := range items {
			order, err := s.checkoutLine(ctx, tx, item, delivery, platform, reference)
			if err != nil {
				return err
			}
			orders = append(orders, order)
		}
		if !s.clearCart {
			return nil
		}
		ids := make([]string, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.ID)
		}
		return s.cart.Clear(ctx, tx, clientID, ids)
	})
	if err != nil {
		err = mapCommitError(err)
		s.logger(ctx, "checkout.failed", map[string]any{
			"clientID": clientID,
			"lines":    len(items),
			"platform": platform,
			"error":    err.Error(),
		})
		return nil, err
	}

	for _, order := range orders {
		s.publishEvent(ctx, OrderEvent{
			Type:          orderEventCreated,
			OrderID:       order.ID,
			ClientID:      order.ClientID,
			DesignerID:    order.DesignerID,
			CurrentStatus: string(order.Status),
			ActorID:       clientID,
			OccurredAt:    order.CreatedAt,
			Metadata: map[string]any{
				"total":    order.Total,
				"platform": platform,
			},
		})
	}
	s.logger(ctx, "checkout.completed", map[string]any{
		"clientID": clientID,
		"orders":   len(orders),
		"platform": platform,
	})
	return orders, nil
}

func (s *checkoutService) checkoutLine(ctx context.Context, tx repositories.Tx, item CartItem, delivery Delivery, platform, reference string) (Order, error) {
	snapshot, err := s.catalog.ResolveLine(ctx, tx, LineRef{
		DesignID:   item.DesignID,
		MaterialID: item.MaterialID,
		SizeID:     item.SizeID,
		ColorID:    item.ColorID,
	})
	if err != nil {
		return Order{}, err
	}

	order := s.factory.Build(item, snapshot, delivery)
	if err := s.orders.Insert(ctx, tx, order); err != nil {
		return Order{}, mapRepositoryError(err, EntityOrder, order.ID)
	}

	if _, err := s.payments.Pay(ctx, tx, PaymentRequest{
		UserID:    item.ClientID,
		Amount:    order.Total,
		Platform:  platform,
		Reference: reference,
		Item:      order.ID,
	}); err != nil {
		return Order{}, err
	}
	return order, nil
}

func (s *checkoutService) publishEvent(ctx context.Context, event OrderEvent) {
	publishOrderEvent(ctx, s.events, s.logger, event)
}

// normaliseDelivery validates the delivery block. Addresses lose any markup; phone numbers are
// width-folded before matching so full-width digits are accepted.
func normaliseDelivery(delivery Delivery) (Delivery, error) {
	pickup := domain.PickupMethod(strings.ToUpper(strings.TrimSpace(string(delivery.Pickup))))
	if pickup != domain.PickupStation && pickup != domain.PickupHome {
		return Delivery{}, validationError("pickup must be %s or %s", domain.PickupStation, domain.PickupHome)
	}
	address := textutil.StripMarkup(delivery.Address)
	if address == "" {
		return Delivery{}, validationError("delivery address is required")
	}
	phone := textutil.FoldWidth(delivery.Phone)
	if !deliveryPhonePattern.MatchString(phone) {
		return Delivery{}, validationError("delivery phone is invalid")
	}
	return Delivery{Pickup: pickup, Address: address, Phone: phone}, nil
}

func checkoutOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}

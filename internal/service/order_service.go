package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/schoolshop/internal/domain"
	"github.com/nikolayk812/schoolshop/internal/observability"
	"github.com/nikolayk812/schoolshop/internal/port"
	"github.com/oklog/ulid/v2"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	orderEventCreated       = "order.created"
	orderEventStatusChanged = "order.status.changed"
	orderEventCancelled     = "order.cancelled"
	orderEventTracking      = "order.tracking.added"
	orderEventRefunded      = "order.refunded"

	orderNumberPrefix = "ORD-"

	defaultMaxUpdateAttempts = 3
)

// errUnexpectedStatus marks a conflict caused by ExpectedStatus, which a retry cannot fix.
var errUnexpectedStatus = errors.New("unexpected order status")

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders     port.OrderRepository
	Transactor port.Transactor
	Pricing    domain.PricingPolicy

	Clock                func() time.Time
	IDGenerator          func() uuid.UUID
	OrderNumberGenerator func() string

	Logger  *zap.Logger
	Metrics *observability.Metrics

	// MaxUpdateAttempts bounds re-reads after an optimistic version conflict.
	MaxUpdateAttempts int
}

type OrderService struct {
	orders     port.OrderRepository
	transactor port.Transactor
	pricing    domain.PricingPolicy

	clock          func() time.Time
	newID          func() uuid.UUID
	newOrderNumber func() string

	logger  *zap.Logger
	metrics *observability.Metrics

	maxUpdateAttempts int
}

func NewOrderService(deps OrderServiceDeps) (*OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Transactor == nil {
		return nil, errors.New("order service: transactor is required")
	}
	if err := deps.Pricing.Validate(); err != nil {
		return nil, fmt.Errorf("order service: pricing: %w", err)
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = uuid.New
	}

	numberGen := deps.OrderNumberGenerator
	if numberGen == nil {
		numberGen = NewOrderNumber
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	metrics := deps.Metrics
	if metrics == nil {
		metrics = observability.NewNopMetrics()
	}

	attempts := deps.MaxUpdateAttempts
	if attempts < 1 {
		attempts = defaultMaxUpdateAttempts
	}

	return &OrderService{
		orders:     deps.Orders,
		transactor: deps.Transactor,
		pricing:    deps.Pricing,
		clock: func() time.Time {
			// storage keeps microseconds
			return clock().UTC().Truncate(time.Microsecond)
		},
		newID:             idGen,
		newOrderNumber:    numberGen,
		logger:            logger,
		metrics:           metrics,
		maxUpdateAttempts: attempts,
	}, nil
}

// NewOrderNumber returns "ORD-" followed by a ULID: unique, and sortable by creation time.
func NewOrderNumber() string {
	return orderNumberPrefix + ulid.Make().String()
}

func (s *OrderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (_ domain.Order, err error) {
	ctx, span := observability.StartSpan(ctx, "OrderService.CreateOrder",
		trace.WithAttributes(attribute.Int("order.lines", len(cmd.Lines))))
	defer func() {
		observability.EndSpan(span, err)
		if err != nil {
			s.metrics.OrderFailed("create_order", err)
		}
	}()

	order, err := s.draftOrder(cmd)
	if err != nil {
		return domain.Order{}, err
	}

	// one entry per catalog item, ascending, so concurrent orders lock rows in the same order
	quantities := order.Quantities()
	itemIDs := lo.Keys(quantities)
	slices.SortFunc(itemIDs, compareUUID)

	err = s.transactor.WithinTx(ctx, func(ctx context.Context, repos port.Repositories) error {
		catalogItems := make(map[uuid.UUID]domain.CatalogItem, len(itemIDs))

		// every line is checked before anything is written
		for _, itemID := range itemIDs {
			item, err := repos.Catalog.GetItem(ctx, itemID)
			if err != nil {
				return wrapRepoError("repos.Catalog.GetItem", err)
			}
			if !item.IsActive {
				return fmt.Errorf("item %s is inactive: %w", itemID, domain.ErrItemNotFound)
			}
			if item.UnitPrice.Currency != s.pricing.Currency {
				return fmt.Errorf("%w: item %s is priced in %s, orders are in %s",
					domain.ErrInvalidInput, itemID, item.UnitPrice.Currency, s.pricing.Currency)
			}
			if requested := quantities[itemID]; requested > item.AvailableStock {
				return fmt.Errorf("item %s: requested %d, available %d: %w",
					itemID, requested, item.AvailableStock, domain.ErrInsufficientStock)
			}
			catalogItems[itemID] = item
		}

		order.SetItems(lo.Map(order.Items, func(line domain.OrderLineItem, _ int) domain.OrderLineItem {
			item := catalogItems[line.CatalogItemID]
			line.TitleSnapshot = item.Title
			line.UnitPriceSnapshot = item.UnitPrice.Amount
			line.ImageSnapshot = item.Image
			return line
		}))
		order.ApplyCharges(s.pricing)

		for _, itemID := range itemIDs {
			if err := repos.Catalog.ReserveStock(ctx, itemID, quantities[itemID]); err != nil {
				return wrapRepoError("repos.Catalog.ReserveStock", err)
			}
		}

		if _, err := repos.Orders.InsertOrder(ctx, order); err != nil {
			return wrapRepoError("repos.Orders.InsertOrder", err)
		}

		return nil
	})
	if err != nil {
		s.logger.Info("order rejected",
			zap.String("customer_id", cmd.CustomerID),
			zap.String("kind", string(domain.Kind(err))),
			zap.Error(err))
		return domain.Order{}, fmt.Errorf("transactor.WithinTx: %w", err)
	}

	s.metrics.OrderCreated(order.PaymentMethod)
	s.logger.Info(orderEventCreated,
		zap.Stringer("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("customer_id", order.CustomerID),
		zap.Stringer("total", order.Total),
		zap.Int("lines", len(order.Items)))

	return order, nil
}

// draftOrder validates the command and returns a pending order without snapshots.
func (s *OrderService) draftOrder(cmd CreateOrderCommand) (domain.Order, error) {
	if len(cmd.Lines) == 0 {
		return domain.Order{}, domain.ErrEmptyOrder
	}

	now := s.clock()

	order := domain.Order{
		ID:              s.newID(),
		OrderNumber:     s.newOrderNumber(),
		CustomerID:      strings.TrimSpace(cmd.CustomerID),
		ShippingAddress: cmd.ShippingAddress.Normalize(),
		PaymentMethod:   cmd.PaymentMethod,
		Currency:        s.pricing.Currency,
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatusPending,
		Notes:           strings.TrimSpace(cmd.Notes),
		Gift: domain.GiftOptions{
			IsGift:    cmd.Gift.IsGift,
			Message:   strings.TrimSpace(cmd.Gift.Message),
			IsWrapped: cmd.Gift.IsWrapped,
		},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, line := range cmd.Lines {
		if line.CatalogItemID == uuid.Nil {
			return domain.Order{}, fmt.Errorf("%w: catalog item id is empty", domain.ErrInvalidInput)
		}
		order.Items = append(order.Items, domain.OrderLineItem{
			CatalogItemID: line.CatalogItemID,
			Quantity:      line.Quantity,
		})
	}

	if err := order.Validate(); err != nil {
		return domain.Order{}, fmt.Errorf("order.Validate: %w", err)
	}

	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (_ domain.Order, err error) {
	ctx, span := observability.StartSpan(ctx, "OrderService.GetOrder",
		trace.WithAttributes(attribute.String("order.id", orderID.String())))
	defer func() { observability.EndSpan(span, err) }()

	if orderID == uuid.Nil {
		return domain.Order{}, fmt.Errorf("%w: order id is empty", domain.ErrInvalidInput)
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, wrapRepoError("orders.GetOrder", err)
	}

	return order, nil
}

// GetCustomerOrder is GetOrder restricted to orders placed by customerID.
// Another customer's order is reported as not found.
func (s *OrderService) GetCustomerOrder(ctx context.Context, customerID string, orderID uuid.UUID) (domain.Order, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return domain.Order{}, fmt.Errorf("%w: customer id is empty", domain.ErrInvalidInput)
	}

	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}

	if err := checkOwner(order, customerID); err != nil {
		return domain.Order{}, err
	}

	return order, nil
}

// UpdateOrderStatus moves the order along the transition table. A move into
// cancelled gives reserved stock back, same as CancelOrder.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (_ domain.Order, err error) {
	ctx, span := observability.StartSpan(ctx, "OrderService.UpdateOrderStatus",
		trace.WithAttributes(
			attribute.String("order.id", cmd.OrderID.String()),
			attribute.String("order.status", string(cmd.Status))))
	defer func() {
		observability.EndSpan(span, err)
		if err != nil {
			s.metrics.OrderFailed("update_status", err)
		}
	}()

	var previous domain.OrderStatus

	order, err := s.mutate(ctx, cmd.OrderID, orderGuard{expected: cmd.ExpectedStatus}, func(ctx context.Context, repos port.Repositories, order *domain.Order, now time.Time) error {
		previous = order.Status

		if err := order.TransitionTo(cmd.Status, cmd.Notes, now); err != nil {
			return err
		}

		if cmd.Status == domain.OrderStatusShipped && strings.TrimSpace(cmd.TrackingNumber) != "" {
			if err := order.AddTracking(cmd.TrackingNumber, cmd.TrackingURL, now); err != nil {
				return err
			}
		}

		if cmd.Status == domain.OrderStatusCancelled {
			return s.releaseStock(ctx, repos, *order)
		}

		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.metrics.OrderTransitioned(previous, order.Status)
	s.logger.Info(orderEventStatusChanged,
		zap.Stringer("order_id", order.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(order.Status)))

	return order, nil
}

// CancelOrder is the customer facing cancellation. It is narrower than
// UpdateOrderStatus: only pending, confirmed and processing orders qualify.
func (s *OrderService) CancelOrder(ctx context.Context, cmd CancelOrderCommand) (_ domain.Order, err error) {
	ctx, span := observability.StartSpan(ctx, "OrderService.CancelOrder",
		trace.WithAttributes(attribute.String("order.id", cmd.OrderID.String())))
	defer func() {
		observability.EndSpan(span, err)
		if err != nil {
			s.metrics.OrderFailed("cancel_order", err)
		}
	}()

	var previous domain.OrderStatus

	order, err := s.mutate(ctx, cmd.OrderID, orderGuard{customerID: cmd.CustomerID, expected: cmd.ExpectedStatus}, func(ctx context.Context, repos port.Repositories, order *domain.Order, now time.Time) error {
		previous = order.Status

		if err := order.Cancel(cmd.Reason, now); err != nil {
			return err
		}

		return s.releaseStock(ctx, repos, *order)
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.metrics.OrderTransitioned(previous, order.Status)
	s.logger.Info(orderEventCancelled,
		zap.Stringer("order_id", order.ID),
		zap.String("from", string(previous)),
		zap.String("reason", order.CancellationReason))

	return order, nil
}

func (s *OrderService) AddTracking(ctx context.Context, cmd AddTrackingCommand) (_ domain.Order, err error) {
	ctx, span := observability.StartSpan(ctx, "OrderService.AddTracking",
		trace.WithAttributes(attribute.String("order.id", cmd.OrderID.String())))
	defer func() {
		observability.EndSpan(span, err)
		if err != nil {
			s.metrics.OrderFailed("add_tracking", err)
		}
	}()

	order, err := s.mutate(ctx, cmd.OrderID, orderGuard{expected: cmd.ExpectedStatus}, func(_ context.Context, _ port.Repositories, order *domain.Order, now time.Time) error {
		return order.AddTracking(cmd.TrackingNumber, cmd.TrackingURL, now)
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.logger.Info(orderEventTracking,
		zap.Stringer("order_id", order.ID),
		zap.String("tracking_number", order.TrackingNumber))

	return order, nil
}

// ProcessRefund records a refund against the order total. The order status is unchanged.
func (s *OrderService) ProcessRefund(ctx context.Context, cmd ProcessRefundCommand) (_ domain.Order, err error) {
	ctx, span := observability.StartSpan(ctx, "OrderService.ProcessRefund",
		trace.WithAttributes(
			attribute.String("order.id", cmd.OrderID.String()),
			attribute.String("refund.amount", cmd.Amount.String())))
	defer func() {
		observability.EndSpan(span, err)
		if err != nil {
			s.metrics.OrderFailed("process_refund", err)
		}
	}()

	order, err := s.mutate(ctx, cmd.OrderID, orderGuard{expected: cmd.ExpectedStatus}, func(_ context.Context, _ port.Repositories, order *domain.Order, now time.Time) error {
		return order.ApplyRefund(cmd.Amount, cmd.Reason, now)
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.logger.Info(orderEventRefunded,
		zap.Stringer("order_id", order.ID),
		zap.Stringer("amount", order.RefundAmount),
		zap.String("payment_status", string(order.PaymentStatus)))

	return order, nil
}

type mutation func(ctx context.Context, repos port.Repositories, order *domain.Order, now time.Time) error

// orderGuard holds the preconditions checked on every read inside mutate.
type orderGuard struct {
	// customerID, when set, must own the order.
	customerID string
	expected   *domain.OrderStatus
}

// mutate reads the order, applies fn and writes it back in one unit of work.
// A version conflict is retried with a fresh read up to maxUpdateAttempts times.
func (s *OrderService) mutate(ctx context.Context, orderID uuid.UUID, guard orderGuard, fn mutation) (domain.Order, error) {
	if orderID == uuid.Nil {
		return domain.Order{}, fmt.Errorf("%w: order id is empty", domain.ErrInvalidInput)
	}

	var lastErr error

	for attempt := 1; attempt <= s.maxUpdateAttempts; attempt++ {
		var result domain.Order

		err := s.transactor.WithinTx(ctx, func(ctx context.Context, repos port.Repositories) error {
			order, err := repos.Orders.GetOrder(ctx, orderID)
			if err != nil {
				return wrapRepoError("repos.Orders.GetOrder", err)
			}

			if guard.customerID != "" {
				if err := checkOwner(order, guard.customerID); err != nil {
					return err
				}
			}

			if guard.expected != nil && order.Status != *guard.expected {
				return fmt.Errorf("%w: %w: expected %s, got %s", domain.ErrConflict, errUnexpectedStatus, *guard.expected, order.Status)
			}

			if err := fn(ctx, repos, &order, s.clock()); err != nil {
				return err
			}

			updated, err := repos.Orders.UpdateOrder(ctx, order)
			if err != nil {
				return wrapRepoError("repos.Orders.UpdateOrder", err)
			}

			result = updated
			return nil
		})
		if err == nil {
			return result, nil
		}

		if !errors.Is(err, domain.ErrConflict) || errors.Is(err, errUnexpectedStatus) {
			return domain.Order{}, fmt.Errorf("transactor.WithinTx: %w", err)
		}

		lastErr = err
		s.logger.Debug("order version conflict, retrying",
			zap.Stringer("order_id", orderID),
			zap.Int("attempt", attempt))
	}

	return domain.Order{}, fmt.Errorf("giving up after %d attempts: %w", s.maxUpdateAttempts, lastErr)
}

// releaseStock returns every reserved unit of order to the catalog, in ascending item order.
// Items that have since been removed from the catalog are skipped.
func (s *OrderService) releaseStock(ctx context.Context, repos port.Repositories, order domain.Order) error {
	quantities := order.Quantities()
	itemIDs := lo.Keys(quantities)
	slices.SortFunc(itemIDs, compareUUID)

	for _, itemID := range itemIDs {
		err := repos.Catalog.ReleaseStock(ctx, itemID, quantities[itemID])
		if errors.Is(err, domain.ErrItemNotFound) {
			s.logger.Warn("catalog item gone, stock not restored",
				zap.Stringer("order_id", order.ID),
				zap.Stringer("item_id", itemID),
				zap.Int("quantity", quantities[itemID]))
			continue
		}
		if err != nil {
			return wrapRepoError("repos.Catalog.ReleaseStock", err)
		}
	}

	return nil
}

// wrapRepoError marks errors that carry no domain meaning as persistence failures.
func wrapRepoError(op string, err error) error {
	if domain.Kind(err) == domain.KindInternal {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrPersistence, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func checkOwner(order domain.Order, customerID string) error {
	if order.CustomerID != strings.TrimSpace(customerID) {
		return fmt.Errorf("order %s: %w", order.ID, domain.ErrOrderNotFound)
	}
	return nil
}

func compareUUID(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}

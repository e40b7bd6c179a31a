package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/nikolayk812/schoolshop/internal/domain"
	"github.com/nikolayk812/schoolshop/internal/port"
	"github.com/nikolayk812/schoolshop/internal/repository/memory"
	"github.com/nikolayk812/schoolshop/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/text/currency"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	store *memory.Store
	svc   *service.OrderService
	now   time.Time

	// lastID is the id handed to the most recent order draft
	lastID uuid.UUID
}

type depsOption func(f *fixture, deps *service.OrderServiceDeps)

func newFixture(t *testing.T, opts ...depsOption) *fixture {
	t.Helper()

	f := &fixture{
		store: memory.NewStore(),
		now:   time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC),
	}

	deps := service.OrderServiceDeps{
		Orders:     f.store.Orders(),
		Transactor: f.store.Transactor(),
		Pricing:    domain.DefaultPricingPolicy(),
		Clock:      func() time.Time { return f.now },
		IDGenerator: func() uuid.UUID {
			f.lastID = uuid.New()
			return f.lastID
		},
	}
	for _, opt := range opts {
		opt(f, &deps)
	}

	svc, err := service.NewOrderService(deps)
	require.NoError(t, err)
	f.svc = svc

	return f
}

func withTransactor(wrap func(repos port.Repositories) port.Repositories) depsOption {
	return func(f *fixture, deps *service.OrderServiceDeps) {
		deps.Transactor = wrappingTransactor{inner: f.store.Transactor(), wrap: wrap}
	}
}

func withConcurrentIDs() depsOption {
	return func(_ *fixture, deps *service.OrderServiceDeps) {
		deps.IDGenerator = uuid.New
	}
}

func (f *fixture) seed(t *testing.T, price string, stock int) domain.CatalogItem {
	t.Helper()

	item := domain.CatalogItem{
		ID:             uuid.New(),
		Title:          gofakeit.ProductName(),
		Image:          gofakeit.URL(),
		UnitPrice:      domain.Money{Amount: decimal.RequireFromString(price), Currency: currency.USD},
		AvailableStock: stock,
		IsActive:       true,
	}
	require.NoError(t, f.store.Catalog().UpsertItem(t.Context(), item))

	return item
}

func (f *fixture) stock(t *testing.T, itemID uuid.UUID) int {
	t.Helper()

	item, err := f.store.Catalog().GetItem(t.Context(), itemID)
	require.NoError(t, err)

	return item.AvailableStock
}

func (f *fixture) placeOrder(t *testing.T, lines ...service.CreateOrderLine) domain.Order {
	t.Helper()

	order, err := f.svc.CreateOrder(t.Context(), createCommand(lines...))
	require.NoError(t, err)

	return order
}

// advance moves order through the given statuses.
func (f *fixture) advance(t *testing.T, orderID uuid.UUID, statuses ...domain.OrderStatus) domain.Order {
	t.Helper()

	var (
		order domain.Order
		err   error
	)
	for _, status := range statuses {
		order, err = f.svc.UpdateOrderStatus(t.Context(), service.UpdateOrderStatusCommand{
			OrderID: orderID,
			Status:  status,
		})
		require.NoError(t, err)
	}

	return order
}

func createCommand(lines ...service.CreateOrderLine) service.CreateOrderCommand {
	return service.CreateOrderCommand{
		CustomerID: gofakeit.UUID(),
		Lines:      lines,
		ShippingAddress: domain.ShippingAddress{
			Name:   gofakeit.Name(),
			Street: gofakeit.Street(),
			City:   gofakeit.City(),
			State:  gofakeit.State(),
			Zip:    gofakeit.Zip(),
		},
		PaymentMethod: domain.PaymentMethodCreditCard,
	}
}

func line(item domain.CatalogItem, quantity int) service.CreateOrderLine {
	return service.CreateOrderLine{CatalogItemID: item.ID, Quantity: quantity}
}

func assertDecimal(t *testing.T, want string, actual decimal.Decimal) {
	t.Helper()

	expected := decimal.RequireFromString(want)
	assert.True(t, expected.Equal(actual), "want %s, got %s", expected, actual)
}

type wrappingTransactor struct {
	inner port.Transactor
	wrap  func(repos port.Repositories) port.Repositories
}

func (w wrappingTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, repos port.Repositories) error) error {
	return w.inner.WithinTx(ctx, func(ctx context.Context, repos port.Repositories) error {
		return fn(ctx, w.wrap(repos))
	})
}

// brokenOrders fails every insert like a dropped database connection.
type brokenOrders struct {
	port.OrderRepository
}

func (brokenOrders) InsertOrder(context.Context, domain.Order) (uuid.UUID, error) {
	return uuid.Nil, errors.New("connection reset by peer")
}

// conflictingOrders reports a version conflict for the first n updates.
type conflictingOrders struct {
	port.OrderRepository
	remaining *atomic.Int32
}

func (c conflictingOrders) UpdateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	if c.remaining.Add(-1) >= 0 {
		return order, domain.ErrConflict
	}
	return c.OrderRepository.UpdateOrder(ctx, order)
}

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/nikolayk812/schoolshop/internal/domain"
	"github.com/nikolayk812/schoolshop/internal/handler"
	"github.com/nikolayk812/schoolshop/internal/idempotency"
	"github.com/nikolayk812/schoolshop/internal/observability"
	"github.com/nikolayk812/schoolshop/internal/repository/memory"
	"github.com/nikolayk812/schoolshop/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/text/currency"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const defaultCustomer = "customer-1"

type harness struct {
	store  *memory.Store
	router http.Handler
	now    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		store: memory.NewStore(),
		now:   time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return h.now }

	svc, err := service.NewOrderService(service.OrderServiceDeps{
		Orders:     h.store.Orders(),
		Transactor: h.store.Transactor(),
		Pricing:    domain.DefaultPricingPolicy(),
		Clock:      clock,
	})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	h.router = handler.NewRouter(handler.RouterDeps{
		Orders:         handler.NewOrderHandler(svc, idempotency.NewMemoryStore(time.Hour), clock, nil),
		Metrics:        observability.NewMetrics(reg),
		Gatherer:       reg,
		RequestTimeout: 5 * time.Second,
	})

	return h
}

func (h *harness) seed(t *testing.T, price string, stock int) domain.CatalogItem {
	t.Helper()

	item := domain.CatalogItem{
		ID:             uuid.New(),
		Title:          gofakeit.ProductName(),
		UnitPrice:      domain.Money{Amount: decimal.RequireFromString(price), Currency: currency.USD},
		AvailableStock: stock,
		IsActive:       true,
	}
	require.NoError(t, h.store.Catalog().UpsertItem(t.Context(), item))

	return item
}

func (h *harness) stock(t *testing.T, itemID uuid.UUID) int {
	t.Helper()

	item, err := h.store.Catalog().GetItem(t.Context(), itemID)
	require.NoError(t, err)

	return item.AvailableStock
}

func (h *harness) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	if headers == nil {
		headers = map[string]string{handler.HeaderCustomerID: defaultCustomer}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	return rec
}

func (h *harness) create(t *testing.T, headers map[string]string, items ...map[string]any) *httptest.ResponseRecorder {
	t.Helper()

	return h.do(t, http.MethodPost, "/orders", createBody(items...), headers)
}

func createBody(items ...map[string]any) map[string]any {
	return map[string]any{
		"items": items,
		"shipping_address": map[string]any{
			"name":   "Ada Lovelace",
			"street": "1 Main St",
			"city":   "Springfield",
			"state":  "IL",
			"zip":    "62701",
		},
		"payment_method": "credit_card",
	}
}

func item(id uuid.UUID, quantity int) map[string]any {
	return map[string]any{"catalog_item_id": id, "quantity": quantity}
}

type orderBody struct {
	ID             uuid.UUID `json:"id"`
	OrderNumber    string    `json:"order_number"`
	Status         string    `json:"status"`
	PaymentStatus  string    `json:"payment_status"`
	Currency       string    `json:"currency"`
	Subtotal       string    `json:"subtotal"`
	ShippingCost   string    `json:"shipping_cost"`
	Tax            string    `json:"tax"`
	Total          string    `json:"total"`
	TrackingNumber string    `json:"tracking_number"`
	RefundAmount   string    `json:"refund_amount"`
	CanBeCancelled bool      `json:"can_be_cancelled"`
	CanBeReturned  bool      `json:"can_be_returned"`
	Version        int64     `json:"version"`
	Items          []struct {
		Title     string `json:"title"`
		UnitPrice string `json:"unit_price"`
		Quantity  int    `json:"quantity"`
		LineTotal string `json:"line_total"`
	} `json:"items"`
}

type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())

	return out
}

func TestCreateOrder(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "10.00", 10)
	b := h.seed(t, "5.00", 10)

	rec := h.create(t, nil, item(a.ID, 2), item(b.ID, 1))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	order := decode[orderBody](t, rec)
	assert.NotEqual(t, uuid.Nil, order.ID)
	assert.True(t, strings.HasPrefix(order.OrderNumber, "ORD-"))
	assert.Equal(t, "pending", order.Status)
	assert.Equal(t, "pending", order.PaymentStatus)
	assert.Equal(t, "USD", order.Currency)
	assert.Equal(t, "25.00", order.Subtotal)
	assert.Equal(t, "9.99", order.ShippingCost)
	assert.Equal(t, "2.00", order.Tax)
	assert.Equal(t, "36.99", order.Total)
	assert.True(t, order.CanBeCancelled)
	assert.False(t, order.CanBeReturned)
	require.Len(t, order.Items, 2)

	assert.Equal(t, 8, h.stock(t, a.ID))
	assert.Equal(t, 9, h.stock(t, b.ID))

	rec = h.do(t, http.MethodGet, "/orders/"+order.ID.String(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, order.OrderNumber, decode[orderBody](t, rec).OrderNumber)
}

func TestCreateOrderRejected(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		body       func(a domain.CatalogItem) any
		wantStatus int
		wantKind   string
	}{
		{
			name:       "missing customer header",
			headers:    map[string]string{},
			body:       func(a domain.CatalogItem) any { return createBody(item(a.ID, 1)) },
			wantStatus: http.StatusBadRequest,
			wantKind:   "invalid_input",
		},
		{
			name:       "no items",
			body:       func(domain.CatalogItem) any { return createBody() },
			wantStatus: http.StatusBadRequest,
			wantKind:   "empty_order",
		},
		{
			name:       "unknown item",
			body:       func(domain.CatalogItem) any { return createBody(item(uuid.New(), 1)) },
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   "item_not_found",
		},
		{
			name:       "not enough stock",
			body:       func(a domain.CatalogItem) any { return createBody(item(a.ID, 6)) },
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   "insufficient_stock",
		},
		{
			name:       "quantity zero",
			body:       func(a domain.CatalogItem) any { return createBody(item(a.ID, 0)) },
			wantStatus: http.StatusBadRequest,
			wantKind:   "invalid_input",
		},
		{
			name: "unknown payment method",
			body: func(a domain.CatalogItem) any {
				body := createBody(item(a.ID, 1))
				body["payment_method"] = "bitcoin"
				return body
			},
			wantStatus: http.StatusBadRequest,
			wantKind:   "invalid_input",
		},
		{
			name: "unknown field",
			body: func(a domain.CatalogItem) any {
				body := createBody(item(a.ID, 1))
				body["coupon"] = "FREE"
				return body
			},
			wantStatus: http.StatusBadRequest,
			wantKind:   "invalid_input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			a := h.seed(t, "10.00", 5)

			headers := tt.headers
			if headers == nil {
				headers = map[string]string{handler.HeaderCustomerID: "customer-1"}
			}

			rec := h.do(t, http.MethodPost, "/orders", tt.body(a), headers)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			body := decode[errorBody](t, rec)
			assert.Equal(t, tt.wantKind, body.Error)
			assert.NotEmpty(t, body.Message)
			assert.NotEmpty(t, body.RequestID)

			assert.Equal(t, 5, h.stock(t, a.ID))
		})
	}
}

func TestCreateOrderIdempotencyKey(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "10.00", 10)

	headers := map[string]string{
		handler.HeaderCustomerID:     "customer-1",
		handler.HeaderIdempotencyKey: "checkout-42",
	}

	first := h.create(t, headers, item(a.ID, 2))
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	placed := decode[orderBody](t, first)

	second := h.create(t, headers, item(a.ID, 2))
	require.Equal(t, http.StatusOK, second.Code, second.Body.String())
	assert.Equal(t, "true", second.Header().Get(handler.HeaderIdempotentReplay))
	assert.Equal(t, placed.ID, decode[orderBody](t, second).ID)

	assert.Equal(t, 8, h.stock(t, a.ID))

	// same key, different customer
	other := h.create(t, map[string]string{
		handler.HeaderCustomerID:     "customer-2",
		handler.HeaderIdempotencyKey: "checkout-42",
	}, item(a.ID, 2))
	require.Equal(t, http.StatusCreated, other.Code, other.Body.String())
	assert.NotEqual(t, placed.ID, decode[orderBody](t, other).ID)

	assert.Equal(t, 6, h.stock(t, a.ID))
}

func TestCreateOrderIdempotencyKeyReusedForDifferentRequest(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "10.00", 10)

	headers := map[string]string{
		handler.HeaderCustomerID:     "customer-1",
		handler.HeaderIdempotencyKey: "checkout-9",
	}

	rec := h.create(t, headers, item(a.ID, 1))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.create(t, headers, item(a.ID, 3))
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Equal(t, "conflict", decode[errorBody](t, rec).Error)
	assert.Empty(t, rec.Header().Get(handler.HeaderIdempotentReplay))

	assert.Equal(t, 9, h.stock(t, a.ID))
}

func TestCreateOrderIdempotencyKeyAfterFailure(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "10.00", 1)

	headers := map[string]string{
		handler.HeaderCustomerID:     "customer-1",
		handler.HeaderIdempotencyKey: "checkout-7",
	}

	rec := h.create(t, headers, item(a.ID, 2))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	// the failed attempt released the key
	rec = h.create(t, headers, item(a.ID, 1))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 0, h.stock(t, a.ID))
}

func TestOrderLifecycle(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "10.00", 10)

	rec := h.create(t, nil, item(a.ID, 2))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[orderBody](t, rec).ID.String()

	for _, status := range []string{"confirmed", "processing"} {
		rec = h.do(t, http.MethodPatch, "/orders/"+id+"/status", map[string]any{"status": status}, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, status, decode[orderBody](t, rec).Status)
	}

	rec = h.do(t, http.MethodPatch, "/orders/"+id+"/status", map[string]any{
		"status":          "shipped",
		"tracking_number": "1Z999",
		"expected_status": "processing",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	shipped := decode[orderBody](t, rec)
	assert.Equal(t, "1Z999", shipped.TrackingNumber)
	assert.False(t, shipped.CanBeCancelled)

	rec = h.do(t, http.MethodPatch, "/orders/"+id+"/tracking", map[string]any{"tracking_number": "1Z000"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "1Z000", decode[orderBody](t, rec).TrackingNumber)

	rec = h.do(t, http.MethodPatch, "/orders/"+id+"/cancel", map[string]any{"reason": "too late"}, nil)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Equal(t, "order_not_cancellable", decode[errorBody](t, rec).Error)

	rec = h.do(t, http.MethodPatch, "/orders/"+id+"/status", map[string]any{"status": "delivered"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[orderBody](t, rec).CanBeReturned)

	rec = h.do(t, http.MethodPatch, "/orders/"+id+"/refund", map[string]any{"amount": "100.00"}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.Equal(t, "refund_exceeds_total", decode[errorBody](t, rec).Error)

	rec = h.do(t, http.MethodPatch, "/orders/"+id+"/refund", map[string]any{"amount": "4.999"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, "invalid_input", decode[errorBody](t, rec).Error)

	rec = h.do(t, http.MethodPatch, "/orders/"+id+"/refund", map[string]any{"amount": 5, "reason": "scratched"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	refunded := decode[orderBody](t, rec)
	assert.Equal(t, "partially_refunded", refunded.PaymentStatus)
	assert.Equal(t, "5.00", refunded.RefundAmount)

	rec = h.do(t, http.MethodPatch, "/orders/"+id+"/status", map[string]any{"status": "processing"}, nil)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Equal(t, "invalid_transition", decode[errorBody](t, rec).Error)

	assert.Equal(t, 8, h.stock(t, a.ID))
}

type statsBody struct {
	Currency string `json:"currency"`
	ByStatus []struct {
		Status   string `json:"status"`
		Count    int64  `json:"count"`
		Total    string `json:"total"`
		Refunded string `json:"refunded"`
	} `json:"by_status"`
	TotalOrders int64  `json:"total_orders"`
	Revenue     string `json:"revenue"`
	Monthly     struct {
		Since   time.Time `json:"since"`
		Count   int64     `json:"count"`
		Revenue string    `json:"revenue"`
	} `json:"monthly"`
	Yearly struct {
		Since   time.Time `json:"since"`
		Count   int64     `json:"count"`
		Revenue string    `json:"revenue"`
	} `json:"yearly"`
	TopSellers []struct {
		CatalogItemID uuid.UUID `json:"catalog_item_id"`
		Quantity      int64     `json:"quantity"`
		Revenue       string    `json:"revenue"`
	} `json:"top_sellers"`
}

func TestOrderStats(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "10.00", 10)
	b := h.seed(t, "5.00", 10)
	alice := map[string]string{handler.HeaderCustomerID: "alice"}
	bob := map[string]string{handler.HeaderCustomerID: "bob"}

	// alice: 20.00 + 9.99 shipping + 1.60 tax, delivered
	rec := h.create(t, alice, item(a.ID, 2))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	delivered := decode[orderBody](t, rec).ID.String()
	for _, status := range []string{"confirmed", "processing", "shipped", "delivered"} {
		rec = h.do(t, http.MethodPatch, "/orders/"+delivered+"/status", map[string]any{"status": status}, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	rec = h.do(t, http.MethodPatch, "/orders/"+delivered+"/refund", map[string]any{"amount": "1.59"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// bob: 5.00 + 9.99 + 0.40, pending
	rec = h.create(t, bob, item(b.ID, 1))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// bob: 10.00 + 9.99 + 0.80, cancelled
	rec = h.create(t, bob, item(a.ID, 1))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cancelled := decode[orderBody](t, rec).ID.String()
	rec = h.do(t, http.MethodPatch, "/orders/"+cancelled+"/cancel", map[string]any{}, bob)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	t.Run("all orders", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/orders/stats", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		stats := decode[statsBody](t, rec)
		assert.Equal(t, "USD", stats.Currency)
		require.Len(t, stats.ByStatus, 3)
		assert.Equal(t, "cancelled", stats.ByStatus[0].Status)
		assert.Equal(t, "20.79", stats.ByStatus[0].Total)
		assert.Equal(t, "delivered", stats.ByStatus[1].Status)
		assert.Equal(t, "31.59", stats.ByStatus[1].Total)
		assert.Equal(t, "1.59", stats.ByStatus[1].Refunded)
		assert.Equal(t, "pending", stats.ByStatus[2].Status)
		assert.Equal(t, int64(1), stats.ByStatus[2].Count)
		assert.Equal(t, int64(3), stats.TotalOrders)
		assert.Equal(t, "31.59", stats.Revenue)

		assert.Equal(t, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), stats.Monthly.Since.UTC())
		assert.Equal(t, int64(1), stats.Monthly.Count)
		assert.Equal(t, "31.59", stats.Monthly.Revenue)
		assert.Equal(t, int64(1), stats.Yearly.Count)

		require.Len(t, stats.TopSellers, 2)
		assert.Equal(t, a.ID, stats.TopSellers[0].CatalogItemID)
		assert.Equal(t, int64(2), stats.TopSellers[0].Quantity)
		assert.Equal(t, "20.00", stats.TopSellers[0].Revenue)
		assert.Equal(t, b.ID, stats.TopSellers[1].CatalogItemID)
	})

	t.Run("one customer", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/orders/stats?customer_id=bob", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		stats := decode[statsBody](t, rec)
		assert.Equal(t, int64(2), stats.TotalOrders)
		assert.Equal(t, "0.00", stats.Revenue)
		assert.Equal(t, int64(0), stats.Monthly.Count)
		require.Len(t, stats.TopSellers, 1)
		assert.Equal(t, b.ID, stats.TopSellers[0].CatalogItemID)
	})

	t.Run("explicit status includes cancelled sales", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/orders/stats?status=cancelled&limit=1", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		stats := decode[statsBody](t, rec)
		require.Len(t, stats.ByStatus, 1)
		require.Len(t, stats.TopSellers, 1)
		assert.Equal(t, a.ID, stats.TopSellers[0].CatalogItemID)
		assert.Equal(t, "10.00", stats.TopSellers[0].Revenue)
	})

	t.Run("created range excludes everything", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/orders/stats?created_after=2025-09-02T00:00:00Z", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		stats := decode[statsBody](t, rec)
		assert.Empty(t, stats.ByStatus)
		assert.Equal(t, int64(0), stats.TotalOrders)
		assert.Empty(t, stats.TopSellers)
	})

	t.Run("next month", func(t *testing.T) {
		h.now = time.Date(2025, 10, 3, 8, 0, 0, 0, time.UTC)

		rec := h.do(t, http.MethodGet, "/orders/stats", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		stats := decode[statsBody](t, rec)
		assert.Equal(t, int64(0), stats.Monthly.Count)
		assert.Equal(t, int64(1), stats.Yearly.Count)
		assert.Equal(t, "31.59", stats.Yearly.Revenue)
	})
}

func TestOrderStatsRejected(t *testing.T) {
	h := newHarness(t)

	for _, query := range []string{
		"status=lost",
		"status=",
		"created_after=yesterday",
		"created_after=2025-09-02T00:00:00Z&created_before=2025-09-01T00:00:00Z",
		"limit=0",
		"limit=abc",
		"limit=101",
	} {
		t.Run(query, func(t *testing.T) {
			rec := h.do(t, http.MethodGet, "/orders/stats?"+query, nil, nil)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, "invalid_input", decode[errorBody](t, rec).Error)
		})
	}
}

func TestCancelOrderRestoresStock(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "10.00", 10)

	rec := h.create(t, nil, item(a.ID, 3))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[orderBody](t, rec).ID.String()
	require.Equal(t, 7, h.stock(t, a.ID))

	rec = h.do(t, http.MethodPatch, "/orders/"+id+"/cancel", map[string]any{
		"reason":          "changed my mind",
		"expected_status": "confirmed",
	}, nil)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Equal(t, "conflict", decode[errorBody](t, rec).Error)

	rec = h.do(t, http.MethodPatch, "/orders/"+id+"/cancel", map[string]any{"reason": "changed my mind"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "cancelled", decode[orderBody](t, rec).Status)

	assert.Equal(t, 10, h.stock(t, a.ID))
}

func TestOrderOfAnotherCustomer(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "10.00", 10)

	rec := h.create(t, map[string]string{handler.HeaderCustomerID: "alice"}, item(a.ID, 2))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	path := "/orders/" + decode[orderBody](t, rec).ID.String()

	mallory := map[string]string{handler.HeaderCustomerID: "mallory"}

	rec = h.do(t, http.MethodGet, path, nil, mallory)
	require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	assert.Equal(t, "not_found", decode[errorBody](t, rec).Error)

	rec = h.do(t, http.MethodPatch, path+"/cancel", map[string]any{"reason": "mine now"}, mallory)
	require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	assert.Equal(t, "not_found", decode[errorBody](t, rec).Error)

	rec = h.do(t, http.MethodPatch, path+"/cancel", map[string]any{}, map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, "invalid_input", decode[errorBody](t, rec).Error)

	rec = h.do(t, http.MethodGet, path, nil, map[string]string{handler.HeaderCustomerID: "alice"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "pending", decode[orderBody](t, rec).Status)

	assert.Equal(t, 8, h.stock(t, a.ID))
}

func TestOrderRequestErrors(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantKind   string
	}{
		{
			name:       "get unknown order",
			method:     http.MethodGet,
			path:       "/orders/" + uuid.NewString(),
			wantStatus: http.StatusNotFound,
			wantKind:   "not_found",
		},
		{
			name:       "malformed order id",
			method:     http.MethodGet,
			path:       "/orders/not-a-uuid",
			wantStatus: http.StatusBadRequest,
			wantKind:   "invalid_input",
		},
		{
			name:       "unknown status",
			method:     http.MethodPatch,
			path:       "/orders/" + uuid.NewString() + "/status",
			body:       map[string]any{"status": "teleported"},
			wantStatus: http.StatusBadRequest,
			wantKind:   "invalid_input",
		},
		{
			name:       "cancel unknown order",
			method:     http.MethodPatch,
			path:       "/orders/" + uuid.NewString() + "/cancel",
			body:       map[string]any{},
			wantStatus: http.StatusNotFound,
			wantKind:   "not_found",
		},
		{
			name:       "refund amount not a number",
			method:     http.MethodPatch,
			path:       "/orders/" + uuid.NewString() + "/refund",
			body:       map[string]any{"amount": "lots"},
			wantStatus: http.StatusBadRequest,
			wantKind:   "invalid_input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			rec := h.do(t, tt.method, tt.path, tt.body, nil)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantKind, decode[errorBody](t, rec).Error)
		})
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	stub := &stubOrderService{err: errors.New("pq: password authentication failed for user schoolshop")}
	router := handler.NewRouter(handler.RouterDeps{
		Orders: handler.NewOrderHandler(stub, nil, nil, nil),
	})

	req := httptest.NewRequest(http.MethodGet, "/orders/"+uuid.NewString(), nil)
	req.Header.Set(handler.HeaderCustomerID, defaultCustomer)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "internal", body.Error)
	assert.NotContains(t, body.Message, "password")
}

func TestPanicRecovered(t *testing.T) {
	router := handler.NewRouter(handler.RouterDeps{
		Orders: handler.NewOrderHandler(&stubOrderService{panics: true}, nil, nil, nil),
	})

	req := httptest.NewRequest(http.MethodGet, "/orders/"+uuid.NewString(), nil)
	req.Header.Set(handler.HeaderCustomerID, defaultCustomer)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal", decode[errorBody](t, rec).Error)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/orders/"+uuid.NewString(), nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `schoolshop_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
	assert.Contains(t, rec.Body.String(), `route="/orders/{orderID}`)
}

type stubOrderService struct {
	err    error
	panics bool
}

func (s *stubOrderService) CreateOrder(context.Context, service.CreateOrderCommand) (domain.Order, error) {
	return domain.Order{}, s.fail()
}

func (s *stubOrderService) GetCustomerOrder(context.Context, string, uuid.UUID) (domain.Order, error) {
	return domain.Order{}, s.fail()
}

func (s *stubOrderService) UpdateOrderStatus(context.Context, service.UpdateOrderStatusCommand) (domain.Order, error) {
	return domain.Order{}, s.fail()
}

func (s *stubOrderService) CancelOrder(context.Context, service.CancelOrderCommand) (domain.Order, error) {
	return domain.Order{}, s.fail()
}

func (s *stubOrderService) AddTracking(context.Context, service.AddTrackingCommand) (domain.Order, error) {
	return domain.Order{}, s.fail()
}

func (s *stubOrderService) ProcessRefund(context.Context, service.ProcessRefundCommand) (domain.Order, error) {
	return domain.Order{}, s.fail()
}

func (s *stubOrderService) GetOrderStats(context.Context, service.OrderStatsQuery) (domain.OrderStats, error) {
	return domain.OrderStats{}, s.fail()
}

func (s *stubOrderService) fail() error {
	if s.panics {
		panic("boom")
	}
	return s.err
}

// Package handler exposes the order service over HTTP/JSON.
package handler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/nikolayk812/schoolshop/internal/domain"
	"github.com/nikolayk812/schoolshop/internal/idempotency"
	"github.com/nikolayk812/schoolshop/internal/observability"
	"github.com/nikolayk812/schoolshop/internal/service"
	"go.uber.org/zap"
)

const (
	HeaderCustomerID       = "X-Customer-ID"
	HeaderIdempotencyKey   = "Idempotency-Key"
	HeaderIdempotentReplay = "Idempotent-Replayed"

	maxBodySize = 64 * 1024

	fingerprintSeparator = "|"
)

type OrderService interface {
	CreateOrder(ctx context.Context, cmd service.CreateOrderCommand) (domain.Order, error)
	GetCustomerOrder(ctx context.Context, customerID string, orderID uuid.UUID) (domain.Order, error)
	UpdateOrderStatus(ctx context.Context, cmd service.UpdateOrderStatusCommand) (domain.Order, error)
	CancelOrder(ctx context.Context, cmd service.CancelOrderCommand) (domain.Order, error)
	AddTracking(ctx context.Context, cmd service.AddTrackingCommand) (domain.Order, error)
	ProcessRefund(ctx context.Context, cmd service.ProcessRefundCommand) (domain.Order, error)
	GetOrderStats(ctx context.Context, q service.OrderStatsQuery) (domain.OrderStats, error)
}

type OrderHandler struct {
	orders      OrderService
	idempotency idempotency.Store
	clock       func() time.Time
	logger      *zap.Logger
}

func NewOrderHandler(orders OrderService, idem idempotency.Store, clock func() time.Time, logger *zap.Logger) *OrderHandler {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OrderHandler{
		orders:      orders,
		idempotency: idem,
		clock:       clock,
		logger:      logger,
	}
}

// Routes registers the /orders endpoints.
func (h *OrderHandler) Routes(r chi.Router) {
	r.Post("/", h.createOrder)
	r.Get("/stats", h.getOrderStats)
	r.Route("/{orderID}", func(r chi.Router) {
		r.Get("/", h.getOrder)
		r.Patch("/status", h.updateStatus)
		r.Patch("/cancel", h.cancelOrder)
		r.Patch("/tracking", h.addTracking)
		r.Patch("/refund", h.processRefund)
	})
}

func (h *OrderHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	customerID, err := customerIDHeader(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req createOrderRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	cmd, err := req.toCommand(customerID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	key := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
	if key == "" || h.idempotency == nil {
		h.placeOrder(ctx, w, cmd)
		return
	}

	fingerprint, err := requestFingerprint(req)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if h.replay(ctx, w, customerID, key, fingerprint) {
		return
	}

	locked, err := h.idempotency.TryLock(ctx, customerID, key)
	if err != nil {
		writeError(ctx, w, fmt.Errorf("idempotency.TryLock: %w", err))
		return
	}
	if !locked {
		// the first request may have completed since the recall above
		if h.replay(ctx, w, customerID, key, fingerprint) {
			return
		}
		writeError(ctx, w, fmt.Errorf("%w: a request with this %s is in progress", domain.ErrConflict, HeaderIdempotencyKey))
		return
	}

	order, ok := h.placeOrder(ctx, w, cmd)
	if !ok {
		// a failed attempt must not block the client from retrying
		if err := h.idempotency.Unlock(context.WithoutCancel(ctx), customerID, key); err != nil {
			h.log(ctx).Warn("idempotency unlock failed", zap.String("key", key), zap.Error(err))
		}
		return
	}

	if err := h.idempotency.Remember(context.WithoutCancel(ctx), customerID, key, rememberedValue(order.ID, fingerprint)); err != nil {
		h.log(ctx).Warn("idempotency remember failed",
			zap.String("key", key),
			zap.Stringer("order_id", order.ID),
			zap.Error(err))
	}
}

func (h *OrderHandler) placeOrder(ctx context.Context, w http.ResponseWriter, cmd service.CreateOrderCommand) (domain.Order, bool) {
	order, err := h.orders.CreateOrder(ctx, cmd)
	if err != nil {
		writeError(ctx, w, err)
		return domain.Order{}, false
	}

	writeJSON(w, http.StatusCreated, mapOrderResponse(order, h.clock()))
	return order, true
}

// replay writes the order an earlier request with the same key produced.
// A key reused for a different request body is a conflict.
// It reports whether a response was written.
func (h *OrderHandler) replay(ctx context.Context, w http.ResponseWriter, customerID, key, fingerprint string) bool {
	value, found, err := h.idempotency.Recall(ctx, customerID, key)
	if err != nil {
		writeError(ctx, w, fmt.Errorf("idempotency.Recall: %w", err))
		return true
	}
	if !found {
		return false
	}

	rawID, storedFingerprint, _ := strings.Cut(value, fingerprintSeparator)
	if storedFingerprint != fingerprint {
		writeError(ctx, w, fmt.Errorf("%w: %s already used for a different request", domain.ErrConflict, HeaderIdempotencyKey))
		return true
	}

	orderID, err := uuid.Parse(rawID)
	if err != nil {
		writeError(ctx, w, fmt.Errorf("idempotency.Recall: stored order id %q: %w", rawID, err))
		return true
	}

	order, err := h.orders.GetCustomerOrder(ctx, customerID, orderID)
	if err != nil {
		writeError(ctx, w, err)
		return true
	}

	w.Header().Set(HeaderIdempotentReplay, "true")
	writeJSON(w, http.StatusOK, mapOrderResponse(order, h.clock()))
	return true
}

func (h *OrderHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	customerID, err := customerIDHeader(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	orderID, err := orderIDParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	order, err := h.orders.GetCustomerOrder(ctx, customerID, orderID)
	h.respond(ctx, w, order, err)
}

func (h *OrderHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := orderIDParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req updateStatusRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	status, err := parseStatus(req.Status, false)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	expected, err := parseStatus(req.ExpectedStatus, true)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	order, err := h.orders.UpdateOrderStatus(ctx, service.UpdateOrderStatusCommand{
		OrderID:        orderID,
		Status:         *status,
		Notes:          req.Notes,
		TrackingNumber: req.TrackingNumber,
		TrackingURL:    req.TrackingURL,
		ExpectedStatus: expected,
	})
	h.respond(ctx, w, order, err)
}

func (h *OrderHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	customerID, err := customerIDHeader(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	orderID, err := orderIDParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req cancelOrderRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	expected, err := parseStatus(req.ExpectedStatus, true)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	order, err := h.orders.CancelOrder(ctx, service.CancelOrderCommand{
		OrderID:        orderID,
		CustomerID:     customerID,
		Reason:         req.Reason,
		ExpectedStatus: expected,
	})
	h.respond(ctx, w, order, err)
}

func (h *OrderHandler) addTracking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := orderIDParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req addTrackingRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	expected, err := parseStatus(req.ExpectedStatus, true)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	order, err := h.orders.AddTracking(ctx, service.AddTrackingCommand{
		OrderID:        orderID,
		TrackingNumber: req.TrackingNumber,
		TrackingURL:    req.TrackingURL,
		ExpectedStatus: expected,
	})
	h.respond(ctx, w, order, err)
}

func (h *OrderHandler) processRefund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := orderIDParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req processRefundRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	expected, err := parseStatus(req.ExpectedStatus, true)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	order, err := h.orders.ProcessRefund(ctx, service.ProcessRefundCommand{
		OrderID:        orderID,
		Amount:         req.Amount,
		Reason:         req.Reason,
		ExpectedStatus: expected,
	})
	h.respond(ctx, w, order, err)
}

func (h *OrderHandler) getOrderStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q, err := parseStatsQuery(r.URL.Query())
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	stats, err := h.orders.GetOrderStats(ctx, q)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapOrderStatsResponse(stats))
}

func (h *OrderHandler) respond(ctx context.Context, w http.ResponseWriter, order domain.Order, err error) {
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrderResponse(order, h.clock()))
}

func (h *OrderHandler) log(ctx context.Context) *zap.Logger {
	return observability.FromContext(ctx, h.logger)
}

// requestFingerprint hashes the decoded request, so formatting differences
// in the body do not count as a different request.
func requestFingerprint(req createOrderRequest) (string, error) {
	canonical, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("json.Marshal: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

func rememberedValue(orderID uuid.UUID, fingerprint string) string {
	return orderID.String() + fingerprintSeparator + fingerprint
}

// customerIDHeader returns the calling customer. Reads and cancellations are
// limited to that customer's orders.
func customerIDHeader(r *http.Request) (string, error) {
	customerID := strings.TrimSpace(r.Header.Get(HeaderCustomerID))
	if customerID == "" {
		return "", fmt.Errorf("%w: %s header is required", domain.ErrInvalidInput, HeaderCustomerID)
	}
	return customerID, nil
}

func orderIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderID"))
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: order id %q is not a uuid", domain.ErrInvalidInput, raw)
	}
	return orderID, nil
}

// decodeBody reads a single JSON object. An empty body decodes to the zero value.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: malformed request body: %v", domain.ErrInvalidInput, err)
	}

	return nil
}

package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/schoolshop/internal/domain"
	"github.com/nikolayk812/schoolshop/internal/service"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const moneyPlaces = 2

type createOrderRequest struct {
	Items           []orderLinePayload     `json:"items"`
	ShippingAddress shippingAddressPayload `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method"`
	Gift            giftPayload            `json:"gift"`
	Notes           string                 `json:"notes"`
}

type orderLinePayload struct {
	CatalogItemID uuid.UUID `json:"catalog_item_id"`
	Quantity      int       `json:"quantity"`
}

type shippingAddressPayload struct {
	Name    string `json:"name"`
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

type giftPayload struct {
	IsGift    bool   `json:"is_gift"`
	Message   string `json:"message,omitempty"`
	IsWrapped bool   `json:"is_wrapped"`
}

type updateStatusRequest struct {
	Status         string `json:"status"`
	Notes          string `json:"notes"`
	TrackingNumber string `json:"tracking_number"`
	TrackingURL    string `json:"tracking_url"`
	ExpectedStatus string `json:"expected_status"`
}

type cancelOrderRequest struct {
	Reason         string `json:"reason"`
	ExpectedStatus string `json:"expected_status"`
}

type addTrackingRequest struct {
	TrackingNumber string `json:"tracking_number"`
	TrackingURL    string `json:"tracking_url"`
	ExpectedStatus string `json:"expected_status"`
}

// Amount accepts both a JSON string and a JSON number.
type processRefundRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	Reason         string          `json:"reason"`
	ExpectedStatus string          `json:"expected_status"`
}

type orderResponse struct {
	ID              uuid.UUID              `json:"id"`
	OrderNumber     string                 `json:"order_number"`
	CustomerID      string                 `json:"customer_id"`
	Items           []orderItemPayload     `json:"items"`
	ShippingAddress shippingAddressPayload `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method"`
	PaymentStatus   string                 `json:"payment_status"`
	Status          string                 `json:"status"`
	Currency        string                 `json:"currency"`

	Subtotal     string `json:"subtotal"`
	ShippingCost string `json:"shipping_cost"`
	Tax          string `json:"tax"`
	Discount     string `json:"discount"`
	GiftWrapCost string `json:"gift_wrap_cost"`
	Total        string `json:"total"`

	TrackingNumber     string      `json:"tracking_number,omitempty"`
	TrackingURL        string      `json:"tracking_url,omitempty"`
	Notes              string      `json:"notes,omitempty"`
	Gift               giftPayload `json:"gift"`
	CancellationReason string      `json:"cancellation_reason,omitempty"`
	RefundAmount       string      `json:"refund_amount,omitempty"`
	RefundReason       string      `json:"refund_reason,omitempty"`

	CanBeCancelled bool `json:"can_be_cancelled"`
	CanBeReturned  bool `json:"can_be_returned"`

	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	RefundedAt  *time.Time `json:"refunded_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Version     int64      `json:"version"`
}

type orderItemPayload struct {
	CatalogItemID uuid.UUID `json:"catalog_item_id"`
	Title         string    `json:"title"`
	UnitPrice     string    `json:"unit_price"`
	Quantity      int       `json:"quantity"`
	LineTotal     string    `json:"line_total"`
	Image         string    `json:"image,omitempty"`
}

func (req createOrderRequest) toCommand(customerID string) (service.CreateOrderCommand, error) {
	var method domain.PaymentMethod
	if raw := strings.TrimSpace(req.PaymentMethod); raw != "" {
		parsed, err := domain.ToPaymentMethod(raw)
		if err != nil {
			return service.CreateOrderCommand{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		method = parsed
	}

	return service.CreateOrderCommand{
		CustomerID: customerID,
		Lines: lo.Map(req.Items, func(item orderLinePayload, _ int) service.CreateOrderLine {
			return service.CreateOrderLine{CatalogItemID: item.CatalogItemID, Quantity: item.Quantity}
		}),
		ShippingAddress: domain.ShippingAddress(req.ShippingAddress),
		PaymentMethod:   method,
		Gift:            domain.GiftOptions(req.Gift),
		Notes:           req.Notes,
	}, nil
}

// parseStatus converts a request status. An empty value yields nil when optional.
func parseStatus(raw string, optional bool) (*domain.OrderStatus, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" && optional {
		return nil, nil
	}

	status, err := domain.ToOrderStatus(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v: %q", domain.ErrInvalidInput, err, raw)
	}

	return &status, nil
}

func mapOrderResponse(order domain.Order, now time.Time) orderResponse {
	resp := orderResponse{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		Items: lo.Map(order.Items, func(item domain.OrderLineItem, _ int) orderItemPayload {
			return orderItemPayload{
				CatalogItemID: item.CatalogItemID,
				Title:         item.TitleSnapshot,
				UnitPrice:     item.UnitPriceSnapshot.StringFixed(moneyPlaces),
				Quantity:      item.Quantity,
				LineTotal:     item.LineTotal().StringFixed(moneyPlaces),
				Image:         item.ImageSnapshot,
			}
		}),
		ShippingAddress: shippingAddressPayload(order.ShippingAddress),
		PaymentMethod:   string(order.PaymentMethod),
		PaymentStatus:   string(order.PaymentStatus),
		Status:          string(order.Status),
		Currency:        order.Currency.String(),

		Subtotal:     order.Subtotal.StringFixed(moneyPlaces),
		ShippingCost: order.ShippingCost.StringFixed(moneyPlaces),
		Tax:          order.Tax.StringFixed(moneyPlaces),
		Discount:     order.Discount.StringFixed(moneyPlaces),
		GiftWrapCost: order.GiftWrapCost.StringFixed(moneyPlaces),
		Total:        order.Total.StringFixed(moneyPlaces),

		TrackingNumber:     order.TrackingNumber,
		TrackingURL:        order.TrackingURL,
		Notes:              order.Notes,
		Gift:               giftPayload(order.Gift),
		CancellationReason: order.CancellationReason,
		RefundReason:       order.RefundReason,

		CanBeCancelled: order.CanBeCancelled(),
		CanBeReturned:  order.CanBeReturned(now),

		DeliveredAt: order.DeliveredAt,
		CancelledAt: order.CancelledAt,
		RefundedAt:  order.RefundedAt,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
		Version:     order.Version,
	}

	if order.RefundAmount.IsPositive() {
		resp.RefundAmount = order.RefundAmount.StringFixed(moneyPlaces)
	}

	return resp
}

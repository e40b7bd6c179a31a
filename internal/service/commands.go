package service

import (
	"github.com/google/uuid"
	"github.com/nikolayk812/schoolshop/internal/domain"
	"github.com/shopspring/decimal"
)

type CreateOrderLine struct {
	CatalogItemID uuid.UUID
	Quantity      int
}

type CreateOrderCommand struct {
	CustomerID      string
	Lines           []CreateOrderLine
	ShippingAddress domain.ShippingAddress
	PaymentMethod   domain.PaymentMethod
	Gift            domain.GiftOptions
	Notes           string
}

// ExpectedStatus, when set on a command, must match the stored status or the
// command fails with domain.ErrConflict.
type UpdateOrderStatusCommand struct {
	OrderID        uuid.UUID
	Status         domain.OrderStatus
	Notes          string
	TrackingNumber string
	TrackingURL    string
	ExpectedStatus *domain.OrderStatus
}

// CancelOrderCommand cancels on behalf of CustomerID. An empty CustomerID skips
// the ownership check and is meant for back office callers.
type CancelOrderCommand struct {
	OrderID        uuid.UUID
	CustomerID     string
	Reason         string
	ExpectedStatus *domain.OrderStatus
}

type AddTrackingCommand struct {
	OrderID        uuid.UUID
	TrackingNumber string
	TrackingURL    string
	ExpectedStatus *domain.OrderStatus
}

type ProcessRefundCommand struct {
	OrderID        uuid.UUID
	Amount         decimal.Decimal
	Reason         string
	ExpectedStatus *domain.OrderStatus
}

// OrderStatsQuery scopes the stats overview. TopSellersLimit defaults to
// domain.DefaultTopSellersLimit when zero.
type OrderStatsQuery struct {
	Filter          domain.OrderFilter
	TopSellersLimit int
}

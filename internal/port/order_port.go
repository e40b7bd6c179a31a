package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/nikolayk812/schoolshop/internal/domain"
	"golang.org/x/text/currency"
)

type OrderRepository interface {
	GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error)

	InsertOrder(ctx context.Context, order domain.Order) (uuid.UUID, error)

	// UpdateOrder writes the mutable lifecycle fields of order if the stored
	// version still equals order.Version, and returns the order with its new version.
	// A version mismatch yields domain.ErrConflict.
	UpdateOrder(ctx context.Context, order domain.Order) (domain.Order, error)

	// OrderStats groups orders in unit matching filter by status, ordered by status.
	OrderStats(ctx context.Context, unit currency.Unit, filter domain.OrderFilter) ([]domain.StatusStats, error)

	// TopSellers returns at most limit catalog items of orders in unit matching filter,
	// by sold quantity descending.
	TopSellers(ctx context.Context, unit currency.Unit, filter domain.OrderFilter, limit int) ([]domain.ItemSales, error)
}

package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/nikolayk812/schoolshop/internal/domain"
)

type CatalogRepository interface {
	GetItem(ctx context.Context, itemID uuid.UUID) (domain.CatalogItem, error)

	// ReserveStock atomically decrements available stock by quantity.
	// It fails with domain.ErrInsufficientStock when less than quantity is available.
	ReserveStock(ctx context.Context, itemID uuid.UUID, quantity int) error

	ReleaseStock(ctx context.Context, itemID uuid.UUID, quantity int) error

	UpsertItem(ctx context.Context, item domain.CatalogItem) error
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/schoolshop/internal/db"
	"github.com/nikolayk812/schoolshop/internal/domain"
	"github.com/nikolayk812/schoolshop/internal/port"
	"golang.org/x/text/currency"
)

type catalogRepository struct {
	q *db.Queries
}

func NewCatalog(pool *pgxpool.Pool) port.CatalogRepository {
	return &catalogRepository{
		q: db.New(pool),
	}
}

func NewCatalogWithTx(tx pgx.Tx) port.CatalogRepository {
	return &catalogRepository{
		q: db.New(tx),
	}
}

func (r *catalogRepository) GetItem(ctx context.Context, itemID uuid.UUID) (domain.CatalogItem, error) {
	var item domain.CatalogItem

	row, err := r.q.GetCatalogItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return item, fmt.Errorf("q.GetCatalogItem[%s]: %w", itemID, domain.ErrItemNotFound)
		}
		return item, fmt.Errorf("q.GetCatalogItem: %w", err)
	}

	item, err = mapDBCatalogItemToDomain(row)
	if err != nil {
		return item, fmt.Errorf("mapDBCatalogItemToDomain: %w", err)
	}

	return item, nil
}

func (r *catalogRepository) ReserveStock(ctx context.Context, itemID uuid.UUID, quantity int) error {
	if quantity <= 0 || quantity > domain.MaxAvailableStock {
		return fmt.Errorf("quantity must be in [1, %d], got %d", domain.MaxAvailableStock, quantity)
	}

	rows, err := r.q.ReserveStock(ctx, db.ReserveStockParams{
		Quantity: int32(quantity),
		ID:       itemID,
	})
	if err != nil {
		return fmt.Errorf("q.ReserveStock: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("q.ReserveStock[%s]: %w", itemID, domain.ErrInsufficientStock)
	}

	return nil
}

func (r *catalogRepository) ReleaseStock(ctx context.Context, itemID uuid.UUID, quantity int) error {
	if quantity <= 0 || quantity > domain.MaxAvailableStock {
		return fmt.Errorf("quantity must be in [1, %d], got %d", domain.MaxAvailableStock, quantity)
	}

	rows, err := r.q.ReleaseStock(ctx, db.ReleaseStockParams{
		Quantity: int32(quantity),
		ID:       itemID,
	})
	if err != nil {
		return fmt.Errorf("q.ReleaseStock: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("q.ReleaseStock[%s]: %w", itemID, domain.ErrItemNotFound)
	}

	return nil
}

func (r *catalogRepository) UpsertItem(ctx context.Context, item domain.CatalogItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("item.Validate: %w", err)
	}

	if err := r.q.UpsertCatalogItem(ctx, db.UpsertCatalogItemParams{
		ID:             item.ID,
		Title:          item.Title,
		Image:          item.Image,
		PriceAmount:    item.UnitPrice.Amount,
		PriceCurrency:  item.UnitPrice.Currency.String(),
		AvailableStock: int32(item.AvailableStock),
		IsActive:       item.IsActive,
	}); err != nil {
		return fmt.Errorf("q.UpsertCatalogItem: %w", err)
	}

	return nil
}

func mapDBCatalogItemToDomain(row db.CatalogItem) (domain.CatalogItem, error) {
	parsedCurrency, err := currency.ParseISO(row.PriceCurrency)
	if err != nil {
		return domain.CatalogItem{}, fmt.Errorf("currency[%s] is not valid: %w", row.PriceCurrency, err)
	}

	return domain.CatalogItem{
		ID:             row.ID,
		Title:          row.Title,
		Image:          row.Image,
		UnitPrice:      domain.Money{Amount: row.PriceAmount, Currency: parsedCurrency},
		AvailableStock: int(row.AvailableStock),
		IsActive:       row.IsActive,
	}, nil
}

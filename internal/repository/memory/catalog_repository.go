package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/nikolayk812/schoolshop/internal/domain"
)

type catalogRepository struct {
	s  *Store
	tx *journal
}

func (r *catalogRepository) GetItem(ctx context.Context, itemID uuid.UUID) (domain.CatalogItem, error) {
	var item domain.CatalogItem

	err := r.s.run(r.tx, func(_ *journal) error {
		stored, ok := r.s.items[itemID]
		if !ok {
			return fmt.Errorf("GetItem[%s]: %w", itemID, domain.ErrItemNotFound)
		}
		item = stored
		return nil
	})

	return item, err
}

func (r *catalogRepository) ReserveStock(ctx context.Context, itemID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	return r.s.run(r.tx, func(j *journal) error {
		item, ok := r.s.items[itemID]
		if !ok || !item.IsActive || item.AvailableStock < quantity {
			return fmt.Errorf("ReserveStock[%s]: %w", itemID, domain.ErrInsufficientStock)
		}

		r.adjust(j, item, -quantity)
		return nil
	})
}

func (r *catalogRepository) ReleaseStock(ctx context.Context, itemID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	return r.s.run(r.tx, func(j *journal) error {
		item, ok := r.s.items[itemID]
		if !ok {
			return fmt.Errorf("ReleaseStock[%s]: %w", itemID, domain.ErrItemNotFound)
		}

		r.adjust(j, item, quantity)
		return nil
	})
}

func (r *catalogRepository) UpsertItem(ctx context.Context, item domain.CatalogItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("item.Validate: %w", err)
	}

	return r.s.run(r.tx, func(j *journal) error {
		previous, existed := r.s.items[item.ID]
		r.s.items[item.ID] = item
		j.record(func() {
			if existed {
				r.s.items[item.ID] = previous
			} else {
				delete(r.s.items, item.ID)
			}
		})
		return nil
	})
}

func (r *catalogRepository) adjust(j *journal, item domain.CatalogItem, delta int) {
	previous := item.AvailableStock
	item.AvailableStock += delta
	r.s.items[item.ID] = item

	j.record(func() {
		stored := r.s.items[item.ID]
		stored.AvailableStock = previous
		r.s.items[item.ID] = stored
	})
}

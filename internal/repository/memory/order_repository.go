package memory

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/nikolayk812/schoolshop/internal/domain"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

type orderRepository struct {
	s  *Store
	tx *journal
}

func (r *orderRepository) GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	var o domain.Order

	if orderID == uuid.Nil {
		return o, fmt.Errorf("orderID is empty")
	}

	err := r.s.run(r.tx, func(_ *journal) error {
		stored, ok := r.s.orders[orderID]
		if !ok {
			return fmt.Errorf("GetOrder: %w", domain.ErrOrderNotFound)
		}
		o = cloneOrder(stored)
		return nil
	})

	return o, err
}

func (r *orderRepository) InsertOrder(ctx context.Context, order domain.Order) (uuid.UUID, error) {
	if order.ID == uuid.Nil {
		return uuid.Nil, errors.New("order id is empty")
	}
	if len(order.Items) == 0 {
		return uuid.Nil, errors.New("no items in order")
	}

	err := r.s.run(r.tx, func(j *journal) error {
		if _, ok := r.s.orders[order.ID]; ok {
			return fmt.Errorf("InsertOrder: order %s already exists", order.ID)
		}
		if _, ok := r.s.orderNumbers[order.OrderNumber]; ok {
			return fmt.Errorf("InsertOrder: %w", domain.ErrDuplicateOrderNumber)
		}

		stored := cloneOrder(order)
		if stored.Version <= 0 {
			stored.Version = 1
		}

		r.s.orders[order.ID] = stored
		r.s.orderNumbers[order.OrderNumber] = order.ID
		j.record(func() {
			delete(r.s.orders, order.ID)
			delete(r.s.orderNumbers, order.OrderNumber)
		})

		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	return order.ID, nil
}

func (r *orderRepository) UpdateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	if order.ID == uuid.Nil {
		return order, fmt.Errorf("order id is empty")
	}

	err := r.s.run(r.tx, func(j *journal) error {
		previous, ok := r.s.orders[order.ID]
		if !ok {
			return fmt.Errorf("UpdateOrder: %w", domain.ErrOrderNotFound)
		}
		if previous.Version != order.Version {
			return fmt.Errorf("UpdateOrder: version %d: %w", order.Version, domain.ErrConflict)
		}

		// only lifecycle fields are mutable
		next := previous
		next.Status = order.Status
		next.PaymentStatus = order.PaymentStatus
		next.TrackingNumber = order.TrackingNumber
		next.TrackingURL = order.TrackingURL
		next.Notes = order.Notes
		next.CancellationReason = order.CancellationReason
		next.RefundAmount = order.RefundAmount
		next.RefundReason = order.RefundReason
		next.DeliveredAt = order.DeliveredAt
		next.CancelledAt = order.CancelledAt
		next.RefundedAt = order.RefundedAt
		next.UpdatedAt = order.UpdatedAt
		next.Version = previous.Version + 1

		r.s.orders[order.ID] = next
		j.record(func() {
			r.s.orders[order.ID] = previous
		})

		order.Version = next.Version
		return nil
	})

	return order, err
}

func (r *orderRepository) OrderStats(ctx context.Context, unit currency.Unit, filter domain.OrderFilter) ([]domain.StatusStats, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("filter.Validate: %w", err)
	}

	byStatus := make(map[domain.OrderStatus]domain.StatusStats)
	err := r.s.run(r.tx, func(_ *journal) error {
		for _, o := range r.s.orders {
			if o.Currency != unit || !filter.Matches(o) {
				continue
			}

			row, ok := byStatus[o.Status]
			if !ok {
				row = domain.StatusStats{Status: o.Status, Total: decimal.Zero, Refunded: decimal.Zero}
			}
			row.Count++
			row.Total = row.Total.Add(o.Total)
			row.Refunded = row.Refunded.Add(o.RefundAmount)
			byStatus[o.Status] = row
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := lo.Values(byStatus)
	slices.SortFunc(result, func(a, b domain.StatusStats) int {
		return cmp.Compare(a.Status, b.Status)
	})

	return result, nil
}

func (r *orderRepository) TopSellers(ctx context.Context, unit currency.Unit, filter domain.OrderFilter, limit int) ([]domain.ItemSales, error) {
	if limit <= 0 || limit > domain.MaxTopSellersLimit {
		return nil, fmt.Errorf("limit must be in [1, %d], got %d", domain.MaxTopSellersLimit, limit)
	}
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("filter.Validate: %w", err)
	}

	byItem := make(map[uuid.UUID]domain.ItemSales)
	err := r.s.run(r.tx, func(_ *journal) error {
		for _, o := range r.s.orders {
			if o.Currency != unit || !filter.Matches(o) {
				continue
			}

			for _, line := range o.Items {
				row, ok := byItem[line.CatalogItemID]
				if !ok {
					row = domain.ItemSales{CatalogItemID: line.CatalogItemID, Revenue: decimal.Zero}
				}
				row.Title = max(row.Title, line.TitleSnapshot)
				row.Quantity += int64(line.Quantity)
				row.Revenue = row.Revenue.Add(line.LineTotal())
				byItem[line.CatalogItemID] = row
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := lo.Values(byItem)
	slices.SortFunc(result, func(a, b domain.ItemSales) int {
		if c := cmp.Compare(b.Quantity, a.Quantity); c != 0 {
			return c
		}
		return bytes.Compare(a.CatalogItemID[:], b.CatalogItemID[:])
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

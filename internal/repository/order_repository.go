package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/schoolshop/internal/db"
	"github.com/nikolayk812/schoolshop/internal/domain"
	"github.com/nikolayk812/schoolshop/internal/port"
	"github.com/samber/lo"
	"golang.org/x/text/currency"
)

const uniqueViolation = "23505"

type orderRepository struct {
	q    *db.Queries
	dbtx db.DBTX
}

func NewOrder(pool *pgxpool.Pool) port.OrderRepository {
	return &orderRepository{
		q:    db.New(pool),
		dbtx: pool,
	}
}

func NewOrderWithTx(tx pgx.Tx) port.OrderRepository {
	return &orderRepository{
		q:    db.New(tx),
		dbtx: tx,
	}
}

func (r *orderRepository) GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	var o domain.Order

	if orderID == uuid.Nil {
		return o, fmt.Errorf("orderID is empty")
	}

	dbOrder, err := r.q.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return o, fmt.Errorf("q.GetOrder: %w", domain.ErrOrderNotFound)
		}
		return o, fmt.Errorf("q.GetOrder: %w", err)
	}

	dbOrderItems, err := r.q.GetOrderItems(ctx, orderID)
	if err != nil {
		return o, fmt.Errorf("q.GetOrderItems: %w", err)
	}

	o, err = mapDBOrderToDomain(dbOrder, dbOrderItems)
	if err != nil {
		return o, fmt.Errorf("mapDBOrderToDomain: %w", err)
	}

	return o, nil
}

func (r *orderRepository) InsertOrder(ctx context.Context, order domain.Order) (uuid.UUID, error) {
	if order.ID == uuid.Nil {
		return uuid.Nil, errors.New("order id is empty")
	}
	if len(order.Items) == 0 {
		return uuid.Nil, errors.New("no items in order")
	}

	orderID, err := withQueries(ctx, r.dbtx, func(q *db.Queries) (uuid.UUID, error) {
		if err := q.InsertOrder(ctx, mapDomainOrderToInsertParams(order)); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return uuid.Nil, fmt.Errorf("q.InsertOrder: %w", domain.ErrDuplicateOrderNumber)
			}
			return uuid.Nil, fmt.Errorf("q.InsertOrder: %w", err)
		}

		for idx, item := range order.Items {
			arg := db.InsertOrderItemParams{
				OrderID:           order.ID,
				LineNo:            int32(idx + 1),
				CatalogItemID:     item.CatalogItemID,
				TitleSnapshot:     item.TitleSnapshot,
				UnitPriceSnapshot: item.UnitPriceSnapshot,
				Quantity:          int32(item.Quantity),
				ImageSnapshot:     item.ImageSnapshot,
			}
			if err := q.InsertOrderItem(ctx, arg); err != nil {
				return uuid.Nil, fmt.Errorf("q.InsertOrderItem: %w", err)
			}
		}

		return order.ID, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("withTx: %w", err)
	}

	return orderID, nil
}

func (r *orderRepository) UpdateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	if order.ID == uuid.Nil {
		return order, fmt.Errorf("order id is empty")
	}

	rows, err := r.q.UpdateOrder(ctx, db.UpdateOrderParams{
		OrderStatus:        string(order.Status),
		PaymentStatus:      string(order.PaymentStatus),
		TrackingNumber:     order.TrackingNumber,
		TrackingUrl:        order.TrackingURL,
		Notes:              order.Notes,
		CancellationReason: order.CancellationReason,
		RefundAmount:       order.RefundAmount,
		RefundReason:       order.RefundReason,
		DeliveredAt:        order.DeliveredAt,
		CancelledAt:        order.CancelledAt,
		RefundedAt:         order.RefundedAt,
		UpdatedAt:          order.UpdatedAt,
		ID:                 order.ID,
		ExpectedVersion:    order.Version,
	})
	if err != nil {
		return order, fmt.Errorf("q.UpdateOrder: %w", err)
	}

	if rows == 0 {
		// either the order is gone or someone else bumped the version
		if _, err := r.q.GetOrder(ctx, order.ID); errors.Is(err, pgx.ErrNoRows) {
			return order, fmt.Errorf("q.UpdateOrder: %w", domain.ErrOrderNotFound)
		}
		return order, fmt.Errorf("q.UpdateOrder: version %d: %w", order.Version, domain.ErrConflict)
	}

	order.Version++
	return order, nil
}

func (r *orderRepository) OrderStats(ctx context.Context, unit currency.Unit, filter domain.OrderFilter) ([]domain.StatusStats, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("filter.Validate: %w", err)
	}

	p := mapDomainOrderFilterToDBFilter(unit, filter)

	rows, err := r.q.GetOrderStats(ctx, db.GetOrderStatsParams{
		Currency:      p.Currency,
		CustomerIds:   p.CustomerIds,
		Statuses:      p.Statuses,
		CreatedAfter:  p.CreatedAfter,
		CreatedBefore: p.CreatedBefore,
	})
	if err != nil {
		return nil, fmt.Errorf("q.GetOrderStats: %w", err)
	}

	result := make([]domain.StatusStats, 0, len(rows))
	for _, row := range rows {
		status, err := domain.ToOrderStatus(row.OrderStatus)
		if err != nil {
			return nil, fmt.Errorf("domain.ToOrderStatus[%s]: %w", row.OrderStatus, err)
		}

		result = append(result, domain.StatusStats{
			Status:   status,
			Count:    row.OrderCount,
			Total:    row.TotalValue,
			Refunded: row.Refunded,
		})
	}

	return result, nil
}

func (r *orderRepository) TopSellers(ctx context.Context, unit currency.Unit, filter domain.OrderFilter, limit int) ([]domain.ItemSales, error) {
	if limit <= 0 || limit > domain.MaxTopSellersLimit {
		return nil, fmt.Errorf("limit must be in [1, %d], got %d", domain.MaxTopSellersLimit, limit)
	}
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("filter.Validate: %w", err)
	}

	p := mapDomainOrderFilterToDBFilter(unit, filter)
	p.MaxRows = int32(limit)

	rows, err := r.q.GetTopSellers(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("q.GetTopSellers: %w", err)
	}

	return lo.Map(rows, func(row db.GetTopSellersRow, _ int) domain.ItemSales {
		return domain.ItemSales{
			CatalogItemID: row.CatalogItemID,
			Title:         row.Title,
			Quantity:      row.QuantitySold,
			Revenue:       row.Revenue,
		}
	}), nil
}

func mapDomainOrderFilterToDBFilter(unit currency.Unit, filter domain.OrderFilter) db.GetTopSellersParams {
	statuses := lo.Map(filter.Statuses, func(status domain.OrderStatus, _ int) string { return string(status) })

	var createdAfter, createdBefore *time.Time
	if filter.CreatedAt != nil {
		createdAfter = filter.CreatedAt.After
		createdBefore = filter.CreatedAt.Before
	}

	return db.GetTopSellersParams{
		Currency:      unit.String(),
		CustomerIds:   nilSliceIfEmpty(filter.CustomerIDs),
		Statuses:      nilSliceIfEmpty(statuses),
		CreatedAfter:  createdAfter,
		CreatedBefore: createdBefore,
	}
}

// nilSliceIfEmpty turns an empty filter field into SQL NULL, which matches everything.
func nilSliceIfEmpty[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	return s
}

func mapDomainOrderToInsertParams(o domain.Order) db.InsertOrderParams {
	return db.InsertOrderParams{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		CustomerID:      o.CustomerID,
		ShippingName:    o.ShippingAddress.Name,
		ShippingStreet:  o.ShippingAddress.Street,
		ShippingCity:    o.ShippingAddress.City,
		ShippingState:   o.ShippingAddress.State,
		ShippingZip:     o.ShippingAddress.Zip,
		ShippingCountry: o.ShippingAddress.Country,
		ShippingPhone:   o.ShippingAddress.Phone,
		PaymentMethod:   string(o.PaymentMethod),
		Currency:        o.Currency.String(),
		Subtotal:        o.Subtotal,
		ShippingCost:    o.ShippingCost,
		Tax:             o.Tax,
		Discount:        o.Discount,
		GiftWrapCost:    o.GiftWrapCost,
		Total:           o.Total,
		OrderStatus:     string(o.Status),
		PaymentStatus:   string(o.PaymentStatus),
		Notes:           o.Notes,
		IsGift:          o.Gift.IsGift,
		GiftMessage:     o.Gift.Message,
		GiftWrapped:     o.Gift.IsWrapped,
		Version:         lo.Ternary(o.Version > 0, o.Version, 1),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func mapDBOrderItemToDomain(row db.OrderItem) domain.OrderLineItem {
	return domain.OrderLineItem{
		CatalogItemID:     row.CatalogItemID,
		TitleSnapshot:     row.TitleSnapshot,
		UnitPriceSnapshot: row.UnitPriceSnapshot,
		Quantity:          int(row.Quantity),
		ImageSnapshot:     row.ImageSnapshot,
	}
}

func mapDBOrderToDomain(dbOrder db.Order, dbOrderItems []db.OrderItem) (domain.Order, error) {
	var o domain.Order

	parsedCurrency, err := currency.ParseISO(dbOrder.Currency)
	if err != nil {
		return o, fmt.Errorf("currency[%s] is not valid: %w", dbOrder.Currency, err)
	}

	status, err := domain.ToOrderStatus(dbOrder.OrderStatus)
	if err != nil {
		return o, fmt.Errorf("domain.ToOrderStatus[%s]: %w", dbOrder.OrderStatus, err)
	}

	paymentStatus, err := domain.ToPaymentStatus(dbOrder.PaymentStatus)
	if err != nil {
		return o, fmt.Errorf("domain.ToPaymentStatus[%s]: %w", dbOrder.PaymentStatus, err)
	}

	paymentMethod, err := domain.ToPaymentMethod(dbOrder.PaymentMethod)
	if err != nil {
		return o, fmt.Errorf("domain.ToPaymentMethod[%s]: %w", dbOrder.PaymentMethod, err)
	}

	return domain.Order{
		ID:          dbOrder.ID,
		OrderNumber: dbOrder.OrderNumber,
		CustomerID:  dbOrder.CustomerID,
		Items:       lo.Map(dbOrderItems, func(row db.OrderItem, _ int) domain.OrderLineItem { return mapDBOrderItemToDomain(row) }),
		ShippingAddress: domain.ShippingAddress{
			Name:    dbOrder.ShippingName,
			Street:  dbOrder.ShippingStreet,
			City:    dbOrder.ShippingCity,
			State:   dbOrder.ShippingState,
			Zip:     dbOrder.ShippingZip,
			Country: dbOrder.ShippingCountry,
			Phone:   dbOrder.ShippingPhone,
		},
		PaymentMethod:  paymentMethod,
		Currency:       parsedCurrency,
		Subtotal:       dbOrder.Subtotal,
		ShippingCost:   dbOrder.ShippingCost,
		Tax:            dbOrder.Tax,
		Discount:       dbOrder.Discount,
		GiftWrapCost:   dbOrder.GiftWrapCost,
		Total:          dbOrder.Total,
		Status:         status,
		PaymentStatus:  paymentStatus,
		TrackingNumber: dbOrder.TrackingNumber,
		TrackingURL:    dbOrder.TrackingUrl,
		Notes:          dbOrder.Notes,
		Gift: domain.GiftOptions{
			IsGift:    dbOrder.IsGift,
			Message:   dbOrder.GiftMessage,
			IsWrapped: dbOrder.GiftWrapped,
		},
		CancellationReason: dbOrder.CancellationReason,
		RefundAmount:       dbOrder.RefundAmount,
		RefundReason:       dbOrder.RefundReason,
		DeliveredAt:        dbOrder.DeliveredAt,
		CancelledAt:        dbOrder.CancelledAt,
		RefundedAt:         dbOrder.RefundedAt,
		Version:            dbOrder.Version,
		CreatedAt:          dbOrder.CreatedAt,
		UpdatedAt:          dbOrder.UpdatedAt,
	}, nil
}

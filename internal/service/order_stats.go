package service

import (
	"context"
	"fmt"
	"time"

	"github.com/nikolayk812/schoolshop/internal/domain"
	"github.com/nikolayk812/schoolshop/internal/observability"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// GetOrderStats reports orders in the pricing currency.
//
// ByStatus and the totals follow q.Filter. Monthly and Yearly count delivered
// orders created since the start of the current month and year, within the
// filter's customers. TopSellers follows q.Filter and leaves cancelled orders
// out unless the filter names statuses explicitly.
func (s *OrderService) GetOrderStats(ctx context.Context, q OrderStatsQuery) (_ domain.OrderStats, err error) {
	ctx, span := observability.StartSpan(ctx, "OrderService.GetOrderStats",
		trace.WithAttributes(attribute.Int("filter.customers", len(q.Filter.CustomerIDs))))
	defer func() { observability.EndSpan(span, err) }()

	if err := q.Filter.Validate(); err != nil {
		return domain.OrderStats{}, fmt.Errorf("%w: filter: %v", domain.ErrInvalidInput, err)
	}

	limit := q.TopSellersLimit
	if limit == 0 {
		limit = domain.DefaultTopSellersLimit
	}
	if limit < 0 || limit > domain.MaxTopSellersLimit {
		return domain.OrderStats{}, fmt.Errorf("%w: top sellers limit must be in [1, %d], got %d",
			domain.ErrInvalidInput, domain.MaxTopSellersLimit, limit)
	}

	now := s.clock()
	unit := s.pricing.Currency
	stats := domain.OrderStats{
		Currency: unit,
		Monthly:  domain.PeriodStats{Since: domain.StartOfMonth(now)},
		Yearly:   domain.PeriodStats{Since: domain.StartOfYear(now)},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := s.orders.OrderStats(gctx, unit, q.Filter)
		if err != nil {
			return wrapRepoError("orders.OrderStats", err)
		}
		stats.ByStatus = rows
		stats.TotalOrders, stats.Revenue = domain.SummarizeStatuses(rows)
		return nil
	})

	for _, period := range []*domain.PeriodStats{&stats.Monthly, &stats.Yearly} {
		g.Go(func() error {
			rows, err := s.orders.OrderStats(gctx, unit, deliveredSince(q.Filter, period.Since))
			if err != nil {
				return wrapRepoError("orders.OrderStats", err)
			}
			period.Count, period.Revenue = domain.SummarizeStatuses(rows)
			return nil
		})
	}

	g.Go(func() error {
		filter := q.Filter
		if len(filter.Statuses) == 0 {
			filter.Statuses = lo.Without(domain.OrderStatuses(), domain.OrderStatusCancelled)
		}

		rows, err := s.orders.TopSellers(gctx, unit, filter, limit)
		if err != nil {
			return wrapRepoError("orders.TopSellers", err)
		}
		stats.TopSellers = rows
		return nil
	})

	if err := g.Wait(); err != nil {
		return domain.OrderStats{}, err
	}

	return stats, nil
}

func deliveredSince(base domain.OrderFilter, since time.Time) domain.OrderFilter {
	return domain.OrderFilter{
		CustomerIDs: base.CustomerIDs,
		Statuses:    []domain.OrderStatus{domain.OrderStatusDelivered},
		CreatedAt:   &domain.TimeRange{After: &since},
	}
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const (
	DefaultTopSellersLimit = 10
	MaxTopSellersLimit     = 100
)

// StatusStats aggregates the orders sharing one status.
type StatusStats struct {
	Status   OrderStatus
	Count    int64
	Total    decimal.Decimal
	Refunded decimal.Decimal
}

// ItemSales aggregates the order lines of one catalog item.
type ItemSales struct {
	CatalogItemID uuid.UUID
	Title         string
	Quantity      int64
	Revenue       decimal.Decimal
}

// PeriodStats covers delivered orders created since Since.
type PeriodStats struct {
	Since   time.Time
	Count   int64
	Revenue decimal.Decimal
}

// OrderStats is the reporting overview of orders in one currency.
// Revenue counts delivered orders only.
type OrderStats struct {
	Currency    currency.Unit
	ByStatus    []StatusStats
	TotalOrders int64
	Revenue     decimal.Decimal
	Monthly     PeriodStats
	Yearly      PeriodStats
	TopSellers  []ItemSales
}

// SummarizeStatuses folds per status rows into the order count and delivered revenue.
func SummarizeStatuses(rows []StatusStats) (count int64, revenue decimal.Decimal) {
	revenue = decimal.Zero
	for _, row := range rows {
		count += row.Count
		if row.Status == OrderStatusDelivered {
			revenue = revenue.Add(row.Total)
		}
	}
	return count, revenue
}

// StartOfMonth returns midnight UTC on the first day of now's month.
func StartOfMonth(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// StartOfYear returns midnight UTC on January 1st of now's year.
func StartOfYear(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}

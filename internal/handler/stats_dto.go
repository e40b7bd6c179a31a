package handler

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/schoolshop/internal/domain"
	"github.com/nikolayk812/schoolshop/internal/service"
	"github.com/samber/lo"
)

type orderStatsResponse struct {
	Currency    string               `json:"currency"`
	ByStatus    []statusStatsPayload `json:"by_status"`
	TotalOrders int64                `json:"total_orders"`
	Revenue     string               `json:"revenue"`
	Monthly     periodStatsPayload   `json:"monthly"`
	Yearly      periodStatsPayload   `json:"yearly"`
	TopSellers  []itemSalesPayload   `json:"top_sellers"`
}

type statusStatsPayload struct {
	Status   string `json:"status"`
	Count    int64  `json:"count"`
	Total    string `json:"total"`
	Refunded string `json:"refunded"`
}

type periodStatsPayload struct {
	Since   time.Time `json:"since"`
	Count   int64     `json:"count"`
	Revenue string    `json:"revenue"`
}

type itemSalesPayload struct {
	CatalogItemID uuid.UUID `json:"catalog_item_id"`
	Title         string    `json:"title"`
	Quantity      int64     `json:"quantity"`
	Revenue       string    `json:"revenue"`
}

// parseStatsQuery reads repeatable customer_id and status parameters, an
// optional RFC 3339 created_after/created_before range and a top sellers limit.
func parseStatsQuery(values url.Values) (service.OrderStatsQuery, error) {
	var q service.OrderStatsQuery

	q.Filter.CustomerIDs = lo.Compact(lo.Map(values["customer_id"], func(id string, _ int) string {
		return strings.TrimSpace(id)
	}))

	for _, raw := range values["status"] {
		status, err := parseStatus(raw, false)
		if err != nil {
			return q, err
		}
		q.Filter.Statuses = append(q.Filter.Statuses, *status)
	}

	after, err := parseTimeParam(values, "created_after")
	if err != nil {
		return q, err
	}
	before, err := parseTimeParam(values, "created_before")
	if err != nil {
		return q, err
	}
	if after != nil || before != nil {
		q.Filter.CreatedAt = &domain.TimeRange{After: after, Before: before}
	}

	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return q, fmt.Errorf("%w: limit must be a positive integer: %q", domain.ErrInvalidInput, raw)
		}
		q.TopSellersLimit = limit
	}

	return q, nil
}

func parseTimeParam(values url.Values, name string) (*time.Time, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return nil, nil
	}

	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC 3339: %q", domain.ErrInvalidInput, name, raw)
	}
	return &ts, nil
}

func mapOrderStatsResponse(stats domain.OrderStats) orderStatsResponse {
	return orderStatsResponse{
		Currency: stats.Currency.String(),
		ByStatus: lo.Map(stats.ByStatus, func(row domain.StatusStats, _ int) statusStatsPayload {
			return statusStatsPayload{
				Status:   string(row.Status),
				Count:    row.Count,
				Total:    row.Total.StringFixed(moneyPlaces),
				Refunded: row.Refunded.StringFixed(moneyPlaces),
			}
		}),
		TotalOrders: stats.TotalOrders,
		Revenue:     stats.Revenue.StringFixed(moneyPlaces),
		Monthly:     mapPeriodStats(stats.Monthly),
		Yearly:      mapPeriodStats(stats.Yearly),
		TopSellers: lo.Map(stats.TopSellers, func(row domain.ItemSales, _ int) itemSalesPayload {
			return itemSalesPayload{
				CatalogItemID: row.CatalogItemID,
				Title:         row.Title,
				Quantity:      row.Quantity,
				Revenue:       row.Revenue.StringFixed(moneyPlaces),
			}
		}),
	}
}

func mapPeriodStats(p domain.PeriodStats) periodStatsPayload {
	return periodStatsPayload{
		Since:   p.Since,
		Count:   p.Count,
		Revenue: p.Revenue.StringFixed(moneyPlaces),
	}
}

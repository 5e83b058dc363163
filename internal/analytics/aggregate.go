package analytics

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/money"
)

// DefaultWindow is the trailing period used for windowed revenue.
const DefaultWindow = 30 * 24 * time.Hour

// TimeSeriesPoint is one day of revenue in cents.
type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Value int64  `json:"value"`
}

// SellerStats summarises one seller's orders. Revenue only counts the
// seller's own items on delivered and paid orders.
type SellerStats struct {
	SellerID               uuid.UUID                   `json:"seller_id"`
	TotalRevenueCents      int64                       `json:"total_revenue_cents"`
	TotalRevenue           string                      `json:"total_revenue"`
	WindowRevenueCents     int64                       `json:"window_revenue_cents"`
	WindowRevenue          string                      `json:"window_revenue"`
	WindowStart            time.Time                   `json:"window_start"`
	WindowEnd              time.Time                   `json:"window_end"`
	OrderCounts            map[enums.OrderStatus]int64 `json:"order_counts"`
	TotalOrders            int64                       `json:"total_orders"`
	CompletedOrders        int64                       `json:"completed_orders"`
	ItemsSold              int64                       `json:"items_sold"`
	AverageOrderValueCents int64                       `json:"average_order_value_cents"`
	AverageOrderValue      string                      `json:"average_order_value"`
	DailyRevenue           []TimeSeriesPoint           `json:"daily_revenue"`
}

// Aggregate computes SellerStats over orders. Orders without an item of
// sellerID are ignored; other sellers' items never contribute revenue.
func Aggregate(sellerID uuid.UUID, orders []models.Order, now time.Time, window time.Duration) SellerStats {
	if window <= 0 {
		window = DefaultWindow
	}
	now = now.UTC()
	windowStart := now.Add(-window)

	stats := SellerStats{
		SellerID:    sellerID,
		WindowStart: windowStart,
		WindowEnd:   now,
		OrderCounts: make(map[enums.OrderStatus]int64, len(enums.OrderStatuses())),
	}
	for _, status := range enums.OrderStatuses() {
		stats.OrderCounts[status] = 0
	}

	daily := map[string]int64{}
	for _, order := range orders {
		var subtotal int64
		var quantity int64
		owned := false
		for _, item := range order.Items {
			if item.SellerID != sellerID {
				continue
			}
			owned = true
			subtotal += item.SubtotalCents()
			quantity += int64(item.Quantity)
		}
		if !owned {
			continue
		}

		stats.TotalOrders++
		stats.OrderCounts[order.OrderStatus]++

		if order.OrderStatus != enums.OrderStatusDelivered || order.PaymentStatus != enums.PaymentStatusPaid {
			continue
		}
		stats.CompletedOrders++
		stats.TotalRevenueCents += subtotal
		stats.ItemsSold += quantity

		created := order.CreatedAt.UTC()
		if !created.Before(windowStart) && !created.After(now) {
			stats.WindowRevenueCents += subtotal
			daily[created.Format("2006-01-02")] += subtotal
		}
	}

	if stats.CompletedOrders > 0 {
		stats.AverageOrderValueCents = decimal.NewFromInt(stats.TotalRevenueCents).
			Div(decimal.NewFromInt(stats.CompletedOrders)).
			Round(0).
			IntPart()
	}
	stats.TotalRevenue = money.FormatCents(stats.TotalRevenueCents)
	stats.WindowRevenue = money.FormatCents(stats.WindowRevenueCents)
	stats.AverageOrderValue = money.FormatCents(stats.AverageOrderValueCents)

	stats.DailyRevenue = make([]TimeSeriesPoint, 0, len(daily))
	for date, value := range daily {
		stats.DailyRevenue = append(stats.DailyRevenue, TimeSeriesPoint{Date: date, Value: value})
	}
	sort.Slice(stats.DailyRevenue, func(i, j int) bool {
		return stats.DailyRevenue[i].Date < stats.DailyRevenue[j].Date
	})
	return stats
}

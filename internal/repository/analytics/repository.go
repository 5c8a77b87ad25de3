// Package analytics runs the reporting aggregations over orders and the
// catalog.
package analytics

import (
	"context"
	"time"

	"storefront/internal/domain"
)

// Totals summarises every order. Revenue and the average only count paid
// orders.
type Totals struct {
	Orders            int64
	Revenue           domain.Price
	AverageOrderValue domain.Price
}

type MonthRevenue struct {
	Month   time.Time    `json:"month"`
	Revenue domain.Price `json:"revenue"`
	Orders  int64        `json:"orders"`
}

type ProductSales struct {
	ProductID     int64        `json:"product_id"`
	Name          string       `json:"product_display_name"`
	Image         string       `json:"image,omitempty"`
	TotalQuantity int64        `json:"total_quantity"`
	TotalRevenue  domain.Price `json:"total_revenue"`
	OrderCount    int64        `json:"order_count"`
}

type ProductRevenue struct {
	ProductID int64        `json:"product_id"`
	Name      string       `json:"product_display_name"`
	Revenue   domain.Price `json:"revenue"`
}

type Repository interface {
	Totals(ctx context.Context) (Totals, error)
	OrdersByStatus(ctx context.Context) (map[domain.OrderStatus]int64, error)
	// RevenueByMonth buckets paid orders created at or after since.
	RevenueByMonth(ctx context.Context, since time.Time) ([]MonthRevenue, error)
	TopSelling(ctx context.Context, limit int) ([]ProductSales, error)
	RevenueByProduct(ctx context.Context, limit int) ([]ProductRevenue, error)
	ProductsByCategory(ctx context.Context) (map[string]int64, error)
	ProductCount(ctx context.Context) (int64, error)
}

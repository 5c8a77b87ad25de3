package analytics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logging"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger)}
}

func (r *postgresRepo) Totals(ctx context.Context) (Totals, error) {
	var (
		out          Totals
		revenue, avg string
	)
	err := r.pool.QueryRow(ctx, `
SELECT count(*),
       COALESCE(sum(final_amount) FILTER (WHERE payment_status = 'paid'), 0)::text,
       COALESCE(round(avg(final_amount) FILTER (WHERE payment_status = 'paid'), 2), 0)::text
FROM orders
`).Scan(&out.Orders, &revenue, &avg)
	if err != nil {
		r.logger.Error("analytics repo: totals", zap.Error(err))
		return Totals{}, err
	}
	if out.Revenue, err = domain.ParsePrice(revenue); err != nil {
		return Totals{}, err
	}
	if out.AverageOrderValue, err = domain.ParsePrice(avg); err != nil {
		return Totals{}, err
	}
	return out, nil
}

func (r *postgresRepo) OrdersByStatus(ctx context.Context) (map[domain.OrderStatus]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, count(*) FROM orders GROUP BY status`)
	if err != nil {
		r.logger.Error("analytics repo: orders by status", zap.Error(err))
		return nil, err
	}
	out := make(map[domain.OrderStatus]int64)
	var (
		status string
		count  int64
	)
	_, err = pgx.ForEachRow(rows, []any{&status, &count}, func() error {
		out[domain.OrderStatus(status)] = count
		return nil
	})
	return out, err
}

func (r *postgresRepo) RevenueByMonth(ctx context.Context, since time.Time) ([]MonthRevenue, error) {
	rows, err := r.pool.Query(ctx, `
SELECT date_trunc('month', created_at) AS month, sum(final_amount)::text, count(*)
FROM orders
WHERE payment_status = 'paid' AND created_at >= $1
GROUP BY month
ORDER BY month
`, since)
	if err != nil {
		r.logger.Error("analytics repo: revenue by month", zap.Error(err))
		return nil, err
	}
	out := []MonthRevenue{}
	var (
		row     MonthRevenue
		revenue string
	)
	_, err = pgx.ForEachRow(rows, []any{&row.Month, &revenue, &row.Orders}, func() error {
		p, err := domain.ParsePrice(revenue)
		if err != nil {
			return err
		}
		row.Revenue = p
		row.Month = row.Month.UTC()
		out = append(out, row)
		return nil
	})
	return out, err
}

// TopSelling ranks products by units sold. Names fall back to the snapshot on
// the order line when the product has since been deleted from the catalog.
func (r *postgresRepo) TopSelling(ctx context.Context, limit int) ([]ProductSales, error) {
	rows, err := r.pool.Query(ctx, `
SELECT oi.product_id,
       COALESCE(max(p.product_display_name), max(oi.product_name)),
       COALESCE(max(p.image), ''),
       sum(oi.quantity),
       sum(oi.total_price)::text,
       count(DISTINCT oi.order_id)
FROM order_items oi
LEFT JOIN products p ON p.id = oi.product_id
WHERE oi.product_id IS NOT NULL
GROUP BY oi.product_id
ORDER BY sum(oi.quantity) DESC, oi.product_id
LIMIT $1
`, limit)
	if err != nil {
		r.logger.Error("analytics repo: top selling", zap.Error(err))
		return nil, err
	}
	out := []ProductSales{}
	var (
		row     ProductSales
		revenue string
	)
	_, err = pgx.ForEachRow(rows, []any{&row.ProductID, &row.Name, &row.Image, &row.TotalQuantity, &revenue, &row.OrderCount}, func() error {
		p, err := domain.ParsePrice(revenue)
		if err != nil {
			return err
		}
		row.TotalRevenue = p
		out = append(out, row)
		return nil
	})
	return out, err
}

func (r *postgresRepo) RevenueByProduct(ctx context.Context, limit int) ([]ProductRevenue, error) {
	rows, err := r.pool.Query(ctx, `
SELECT oi.product_id,
       COALESCE(max(p.product_display_name), max(oi.product_name)),
       sum(oi.total_price)::text
FROM order_items oi
LEFT JOIN products p ON p.id = oi.product_id
WHERE oi.product_id IS NOT NULL
GROUP BY oi.product_id
ORDER BY sum(oi.total_price) DESC, oi.product_id
LIMIT $1
`, limit)
	if err != nil {
		r.logger.Error("analytics repo: revenue by product", zap.Error(err))
		return nil, err
	}
	out := []ProductRevenue{}
	var (
		row     ProductRevenue
		revenue string
	)
	_, err = pgx.ForEachRow(rows, []any{&row.ProductID, &row.Name, &revenue}, func() error {
		p, err := domain.ParsePrice(revenue)
		if err != nil {
			return err
		}
		row.Revenue = p
		out = append(out, row)
		return nil
	})
	return out, err
}

func (r *postgresRepo) ProductsByCategory(ctx context.Context) (map[string]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT master_category, count(*) FROM products GROUP BY master_category`)
	if err != nil {
		r.logger.Error("analytics repo: products by category", zap.Error(err))
		return nil, err
	}
	out := make(map[string]int64)
	var (
		category string
		count    int64
	)
	_, err = pgx.ForEachRow(rows, []any{&category, &count}, func() error {
		out[category] = count
		return nil
	})
	return out, err
}

func (r *postgresRepo) ProductCount(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&n); err != nil {
		r.logger.Error("analytics repo: product count", zap.Error(err))
		return 0, err
	}
	return n, nil
}

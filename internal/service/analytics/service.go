// Package analytics assembles the back-office sales and catalog reports.
package analytics

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storefront/internal/domain"
	"storefront/internal/logging"
	analyticsrepo "storefront/internal/repository/analytics"
	orderrepo "storefront/internal/repository/order"
)

const (
	recentOrders     = 10
	topSellingLimit  = 10
	productRankLimit = 20
	revenueWindow    = 365 * 24 * time.Hour
)

type orderLister interface {
	ListAll(ctx context.Context, filter orderrepo.ListFilter) ([]domain.Order, error)
}

type SalesStats struct {
	TotalOrders       int64                        `json:"total_orders"`
	TotalRevenue      domain.Price                 `json:"total_revenue"`
	AverageOrderValue domain.Price                 `json:"average_order_value"`
	OrdersByStatus    map[domain.OrderStatus]int64 `json:"orders_by_status"`
	RevenueByMonth    []analyticsrepo.MonthRevenue `json:"revenue_by_month"`
	RecentOrders      []domain.Order               `json:"recent_orders"`
}

type ProductPerformance struct {
	TopSelling         []analyticsrepo.ProductSales   `json:"top_selling_products"`
	RevenueByProduct   []analyticsrepo.ProductRevenue `json:"revenue_by_product"`
	ProductsByCategory map[string]int64               `json:"products_by_category"`
	TotalProducts      int64                          `json:"total_products"`
}

type Service struct {
	repo   analyticsrepo.Repository
	orders orderLister
	logger *zap.Logger
	now    func() time.Time
}

func New(repo analyticsrepo.Repository, orders orderLister, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		orders: orders,
		logger: logging.OrNop(logger),
		now:    time.Now,
	}
}

// Sales runs the order aggregations concurrently. Revenue by month covers the
// trailing year.
func (s *Service) Sales(ctx context.Context) (*SalesStats, error) {
	var out SalesStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		totals, err := s.repo.Totals(gctx)
		if err != nil {
			return err
		}
		out.TotalOrders = totals.Orders
		out.TotalRevenue = totals.Revenue
		out.AverageOrderValue = totals.AverageOrderValue
		return nil
	})
	g.Go(func() (err error) {
		out.OrdersByStatus, err = s.repo.OrdersByStatus(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.RevenueByMonth, err = s.repo.RevenueByMonth(gctx, s.now().Add(-revenueWindow))
		return err
	})
	g.Go(func() (err error) {
		out.RecentOrders, err = s.orders.ListAll(gctx, orderrepo.ListFilter{Limit: recentOrders})
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("analytics: sales stats", zap.Error(err))
		return nil, err
	}
	if out.RecentOrders == nil {
		out.RecentOrders = []domain.Order{}
	}
	return &out, nil
}

func (s *Service) Products(ctx context.Context) (*ProductPerformance, error) {
	var out ProductPerformance
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.TopSelling, err = s.repo.TopSelling(gctx, topSellingLimit)
		return err
	})
	g.Go(func() (err error) {
		out.RevenueByProduct, err = s.repo.RevenueByProduct(gctx, productRankLimit)
		return err
	})
	g.Go(func() (err error) {
		out.ProductsByCategory, err = s.repo.ProductsByCategory(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.TotalProducts, err = s.repo.ProductCount(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("analytics: product performance", zap.Error(err))
		return nil, err
	}
	return &out, nil
}

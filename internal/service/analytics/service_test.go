package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	analyticsrepo "storefront/internal/repository/analytics"
	orderrepo "storefront/internal/repository/order"
)

type stubRepo struct {
	err       error
	lastSince time.Time
	lastLimit []int
}

func (s *stubRepo) Totals(context.Context) (analyticsrepo.Totals, error) {
	return analyticsrepo.Totals{Orders: 3, Revenue: domain.MustPrice("209.98"), AverageOrderValue: domain.MustPrice("104.99")}, s.err
}

func (s *stubRepo) OrdersByStatus(context.Context) (map[domain.OrderStatus]int64, error) {
	return map[domain.OrderStatus]int64{domain.OrderConfirmed: 2, domain.OrderPending: 1}, nil
}

func (s *stubRepo) RevenueByMonth(_ context.Context, since time.Time) ([]analyticsrepo.MonthRevenue, error) {
	s.lastSince = since
	return []analyticsrepo.MonthRevenue{{Month: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Revenue: domain.MustPrice("209.98"), Orders: 2}}, nil
}

func (s *stubRepo) TopSelling(_ context.Context, limit int) ([]analyticsrepo.ProductSales, error) {
	return []analyticsrepo.ProductSales{{ProductID: 1, Name: "Shirt", TotalQuantity: 3, TotalRevenue: domain.MustPrice("89.97"), OrderCount: 2}}, s.err
}

func (s *stubRepo) RevenueByProduct(_ context.Context, limit int) ([]analyticsrepo.ProductRevenue, error) {
	return []analyticsrepo.ProductRevenue{{ProductID: 2, Name: "Watch", Revenue: domain.MustPrice("120")}}, nil
}

func (s *stubRepo) ProductsByCategory(context.Context) (map[string]int64, error) {
	return map[string]int64{"Apparel": 1, "Accessories": 2}, nil
}

func (s *stubRepo) ProductCount(context.Context) (int64, error) {
	return 3, nil
}

type stubOrders struct {
	lastFilter orderrepo.ListFilter
}

func (s *stubOrders) ListAll(_ context.Context, f orderrepo.ListFilter) ([]domain.Order, error) {
	s.lastFilter = f
	return nil, nil
}

func TestServiceSales(t *testing.T) {
	repo := &stubRepo{}
	orders := &stubOrders{}
	svc := New(repo, orders, nil)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	got, err := svc.Sales(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 3, got.TotalOrders)
	assert.True(t, got.TotalRevenue.Equal(domain.MustPrice("209.98")))
	assert.True(t, got.AverageOrderValue.Equal(domain.MustPrice("104.99")))
	assert.EqualValues(t, 2, got.OrdersByStatus[domain.OrderConfirmed])
	require.Len(t, got.RevenueByMonth, 1)
	assert.NotNil(t, got.RecentOrders)
	assert.Equal(t, recentOrders, orders.lastFilter.Limit)
	assert.Equal(t, now.Add(-revenueWindow), repo.lastSince)
}

func TestServiceProducts(t *testing.T) {
	svc := New(&stubRepo{}, &stubOrders{}, nil)
	got, err := svc.Products(context.Background())
	require.NoError(t, err)

	require.Len(t, got.TopSelling, 1)
	assert.EqualValues(t, 3, got.TopSelling[0].TotalQuantity)
	require.Len(t, got.RevenueByProduct, 1)
	assert.EqualValues(t, 2, got.ProductsByCategory["Accessories"])
	assert.EqualValues(t, 3, got.TotalProducts)
}

func TestServicePropagatesErrors(t *testing.T) {
	svc := New(&stubRepo{err: errors.New("db down")}, &stubOrders{}, nil)
	_, err := svc.Sales(context.Background())
	require.EqualError(t, err, "db down")
	_, err = svc.Products(context.Background())
	require.EqualError(t, err, "db down")
}

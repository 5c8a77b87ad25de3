package httpserver

import (
	"context"
	"errors"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logging"
	orderrepo "storefront/internal/repository/order"
	"storefront/internal/service/analytics"
	cartsvc "storefront/internal/service/cart"
	"storefront/internal/service/checkout"
	ordersvc "storefront/internal/service/order"
	productsvc "storefront/internal/service/product"
)

type productService interface {
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	Get(ctx context.Context, id int64) (*domain.Product, error)
}

type cartService interface {
	Get(ctx context.Context, sessionID string) (cartsvc.View, error)
	AddItem(ctx context.Context, sessionID string, productID int64, quantity int) (cartsvc.View, error)
	UpdateQuantity(ctx context.Context, sessionID string, productID int64, quantity int) (cartsvc.View, error)
	RemoveItem(ctx context.Context, sessionID string, productID int64) (cartsvc.View, error)
	Clear(ctx context.Context, sessionID string) (cartsvc.View, error)
}

type checkoutService interface {
	Checkout(ctx context.Context, sessionID string, in checkout.Input) (*checkout.Result, error)
}

type orderService interface {
	Get(ctx context.Context, sessionID, number string) (*domain.Order, error)
	List(ctx context.Context, sessionID string) ([]domain.Order, error)
	Cancel(ctx context.Context, sessionID, number string) (*domain.Order, error)

	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	ListAll(ctx context.Context, filter orderrepo.ListFilter) ([]domain.Order, error)
	MarkShipped(ctx context.Context, number string) (*domain.Order, error)
	ConfirmDelivery(ctx context.Context, number string) (*domain.Order, error)
	Refund(ctx context.Context, number string) (*domain.Order, error)
}

// catalogService is the back-office side of the product catalog.
type catalogService interface {
	Create(ctx context.Context, product domain.Product) (*domain.Product, error)
	Update(ctx context.Context, id int64, patch domain.ProductPatch) (*domain.Product, error)
	Delete(ctx context.Context, id int64) error
	BulkDelete(ctx context.Context, ids []int64) (int64, error)
	BulkUpdate(ctx context.Context, ids []int64, patch domain.ProductPatch) ([]domain.Product, error)
}

type analyticsService interface {
	Sales(ctx context.Context) (*analytics.SalesStats, error)
	Products(ctx context.Context) (*analytics.ProductPerformance, error)
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, deps Deps) (*gin.Engine, error) {
	if deps.Products == nil || deps.Carts == nil || deps.Checkout == nil || deps.Orders == nil ||
		deps.Catalog == nil || deps.Analytics == nil {
		return nil, errors.New("httpserver: missing service dependency")
	}

	logger = logging.OrNop(logger)
	router := gin.New()
	router.Use(requestLogger(logger), gin.Recovery())
	if len(deps.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", sessionHeader},
			ExposeHeaders:    []string{sessionHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.DB))

	h := &handlers{
		products:  deps.Products,
		carts:     deps.Carts,
		checkout:  deps.Checkout,
		orders:    deps.Orders,
		catalog:   deps.Catalog,
		analytics: deps.Analytics,
		logger:    logger,
	}

	api := router.Group("/api")
	api.GET("/products", h.listProducts)
	api.GET("/products/:id", h.getProduct)

	session := api.Group("", sessionMiddleware())
	session.GET("/cart", h.getCart)
	session.POST("/cart/items", h.addCartItem)
	session.PATCH("/cart/items/:productId", h.updateCartItem)
	session.DELETE("/cart/items/:productId", h.removeCartItem)
	session.DELETE("/cart", h.clearCart)

	session.POST("/checkout", h.submitCheckout)

	session.GET("/orders", h.listOrders)
	session.GET("/orders/:number", h.getOrder)
	session.POST("/orders/:number/cancel", h.cancelOrder)

	admin := api.Group("/admin", adminAuth(deps.AdminToken, logger))
	admin.POST("/products", h.createProduct)
	admin.PATCH("/products/:id", h.updateProduct)
	admin.DELETE("/products/:id", h.deleteProduct)
	admin.POST("/products/bulk-update", h.bulkUpdateProducts)
	admin.POST("/products/bulk-delete", h.bulkDeleteProducts)

	admin.GET("/orders", h.listAllOrders)
	admin.GET("/orders/:number", h.getAnyOrder)
	admin.POST("/orders/:number/ship", h.adminOrderAction(deps.Orders.MarkShipped))
	admin.POST("/orders/:number/deliver", h.adminOrderAction(deps.Orders.ConfirmDelivery))
	admin.POST("/orders/:number/refund", h.adminOrderAction(deps.Orders.Refund))

	admin.GET("/stats/sales", h.salesStats)
	admin.GET("/stats/products", h.productStats)

	return router, nil
}

// handlers holds the services behind the API routes.
type handlers struct {
	products  productService
	carts     cartService
	checkout  checkoutService
	orders    orderService
	catalog   catalogService
	analytics analyticsService
	logger    *zap.Logger
}

// orderTransition is the signature shared by back-office order status changes.
type orderTransition func(ctx context.Context, number string) (*domain.Order, error)

var (
	_ productService   = (*productsvc.Service)(nil)
	_ catalogService   = (*productsvc.Service)(nil)
	_ cartService      = (*cartsvc.Service)(nil)
	_ checkoutService  = (*checkout.Service)(nil)
	_ orderService     = (*ordersvc.Service)(nil)
	_ analyticsService = (*analytics.Service)(nil)
)

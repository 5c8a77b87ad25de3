package httpserver

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/domain"
	orderrepo "storefront/internal/repository/order"
)

const adminTokenHeader = "X-Admin-Token"

// adminAuth accepts "Authorization: Bearer <token>" or X-Admin-Token. With no
// token configured every admin route answers 403.
func adminAuth(token string, logger *zap.Logger) gin.HandlerFunc {
	want := []byte(token)
	return func(c *gin.Context) {
		if token == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin api disabled"})
			return
		}
		got := c.GetHeader(adminTokenHeader)
		if bearer, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
			got = bearer
		}
		if got == "" || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), want) != 1 {
			logger.Warn("http: admin auth rejected", zap.String("path", c.FullPath()), zap.String("ip", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid admin token"})
			return
		}
		c.Next()
	}
}

type bulkDeleteRequest struct {
	IDs []int64 `json:"ids" binding:"required"`
}

type bulkUpdateRequest struct {
	IDs     []int64             `json:"ids" binding:"required"`
	Updates domain.ProductPatch `json:"updates"`
}

func (h *handlers) createProduct(c *gin.Context) {
	var req domain.Product
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	product, err := h.catalog.Create(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *handlers) updateProduct(c *gin.Context) {
	id, ok := adminProductID(c)
	if !ok {
		return
	}
	var patch domain.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	product, err := h.catalog.Update(c.Request.Context(), id, patch)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *handlers) deleteProduct(c *gin.Context) {
	id, ok := adminProductID(c)
	if !ok {
		return
	}
	if err := h.catalog.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) bulkDeleteProducts(c *gin.Context) {
	var req bulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	deleted, err := h.catalog.BulkDelete(c.Request.Context(), req.IDs)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *handlers) bulkUpdateProducts(c *gin.Context) {
	var req bulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	updated, err := h.catalog.BulkUpdate(c.Request.Context(), req.IDs, req.Updates)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": updated, "updated": len(updated)})
}

func (h *handlers) listAllOrders(c *gin.Context) {
	filter := orderrepo.ListFilter{Status: domain.OrderStatus(c.Query("status"))}
	var err error
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		badRequest(c, err.Error())
		return
	}
	if filter.Offset, err = queryInt(c, "offset"); err != nil {
		badRequest(c, err.Error())
		return
	}
	orders, err := h.orders.ListAll(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"results": orders, "count": len(orders)})
}

func (h *handlers) getAnyOrder(c *gin.Context) {
	order, err := h.orders.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *handlers) adminOrderAction(apply orderTransition) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := apply(c.Request.Context(), c.Param("number"))
		if err != nil {
			h.writeError(c, err)
			return
		}
		h.logger.Info("http: admin order action",
			zap.String("path", c.FullPath()),
			zap.String("number", order.Number),
			zap.String("status", string(order.Status)),
			zap.String("payment", string(order.PaymentStatus)))
		c.JSON(http.StatusOK, order)
	}
}

func (h *handlers) salesStats(c *gin.Context) {
	stats, err := h.analytics.Sales(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *handlers) productStats(c *gin.Context) {
	stats, err := h.analytics.Products(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func adminProductID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid product id")
		return 0, false
	}
	return id, true
}

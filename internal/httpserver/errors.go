package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/domain"
	cartsvc "storefront/internal/service/cart"
	"storefront/internal/service/checkout"
	ordersvc "storefront/internal/service/order"
	"storefront/internal/service/payment"
	productsvc "storefront/internal/service/product"
)

var badRequestErrors = []error{
	domain.ErrInvalidPrice,
	productsvc.ErrInvalidFilter,
	productsvc.ErrInvalidProduct,
	cartsvc.ErrInvalidSession,
	cartsvc.ErrInvalidQuantity,
	ordersvc.ErrEmptyOrder,
	ordersvc.ErrInvalidItem,
	ordersvc.ErrProductNotFound,
	checkout.ErrEmptyCart,
	checkout.ErrInvalidShipping,
	payment.ErrInvalidCard,
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, payment.ErrPaymentDeclined):
		return http.StatusPaymentRequired
	case errors.Is(err, ordersvc.ErrInvalidTransition), errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

func (h *handlers) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("http: request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
)

func (h *handlers) listProducts(c *gin.Context) {
	filter, err := parseProductFilter(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	products, err := h.products.List(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	c.JSON(http.StatusOK, gin.H{
		"results": products,
		"count":   len(products),
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})
}

func (h *handlers) getProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid product id")
		return
	}
	product, err := h.products.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func parseProductFilter(c *gin.Context) (domain.ProductFilter, error) {
	f := domain.ProductFilter{
		Gender:         strings.TrimSpace(c.Query("gender")),
		MasterCategory: strings.TrimSpace(c.Query("master_category")),
		SubCategory:    strings.TrimSpace(c.Query("sub_category")),
		Season:         strings.TrimSpace(c.Query("season")),
		Usage:          strings.TrimSpace(c.Query("usage")),
		Search:         strings.TrimSpace(c.Query("search")),
	}
	var err error
	if f.Limit, err = queryInt(c, "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = queryInt(c, "offset"); err != nil {
		return f, err
	}
	if f.MinPrice, err = queryPrice(c, "min_price"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = queryPrice(c, "max_price"); err != nil {
		return f, err
	}
	return f, nil
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &queryError{name: name}
	}
	return v, nil
}

func queryPrice(c *gin.Context, name string) (*domain.Price, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	p, err := domain.ParsePrice(raw)
	if err != nil {
		return nil, &queryError{name: name}
	}
	return &p, nil
}

type queryError struct {
	name string
}

func (e *queryError) Error() string {
	return "invalid query parameter " + e.name
}

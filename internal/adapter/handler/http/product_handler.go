package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainRepo "github.com/beanbound/beanbound/internal/domain/repository"
)

// ProductHandler serves the coffee catalog.
type ProductHandler struct {
	products domainRepo.ProductRepository
	logger   *zap.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(products domainRepo.ProductRepository, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{products: products, logger: logger}
}

// GetProducts lists active, in-stock products.
func (h *ProductHandler) GetProducts(c echo.Context) error {
	products, err := h.products.ListActiveInStock(c.Request().Context())
	if err != nil {
		h.logger.Error("Error fetching products", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to fetch products",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"products": products,
		"count":    len(products),
	})
}

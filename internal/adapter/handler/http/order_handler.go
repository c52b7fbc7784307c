package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainErrors "github.com/beanbound/beanbound/internal/domain/errors"
	domainRepo "github.com/beanbound/beanbound/internal/domain/repository"
	"github.com/beanbound/beanbound/internal/middleware/auth"
)

// OrderHandler serves order lookups for the customer dashboard.
type OrderHandler struct {
	orders domainRepo.OrderRepository
	logger *zap.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders domainRepo.OrderRepository, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

// GetOrder returns one of the caller's orders by order number. Another
// user's order number comes back as not found, not forbidden, so order
// numbers cannot be probed.
func (h *OrderHandler) GetOrder(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	number := c.Param("number")
	if number == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "order number is required",
		})
	}

	order, err := h.orders.GetByNumber(c.Request().Context(), number)
	if err != nil {
		h.logger.Error("Error loading order", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to load order",
		})
	}
	if order == nil || order.UserID != user.UserID {
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": domainErrors.ErrOrderNotFound.Error(),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"order": order})
}

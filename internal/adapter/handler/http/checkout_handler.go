package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainErrors "github.com/beanbound/beanbound/internal/domain/errors"
	"github.com/beanbound/beanbound/internal/middleware/auth"
	"github.com/beanbound/beanbound/internal/usecase"
)

// CheckoutHandler starts hosted checkout flows.
type CheckoutHandler struct {
	subscriptions *usecase.SubscriptionService
	checkout      *usecase.CheckoutService
	clientURL     string
	logger        *zap.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(subscriptions *usecase.SubscriptionService, checkout *usecase.CheckoutService, clientURL string, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		subscriptions: subscriptions,
		checkout:      checkout,
		clientURL:     clientURL,
		logger:        logger,
	}
}

// CreateSubscriptionRequest is the body for starting a subscription checkout.
type CreateSubscriptionRequest struct {
	PlanID uint64 `json:"plan_id" validate:"required"`
}

// CreateSubscription starts a subscription checkout session for a plan.
func (h *CheckoutHandler) CreateSubscription(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	var req CreateSubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "plan_id is required",
		})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	session, err := h.subscriptions.StartCheckout(
		c.Request().Context(),
		user.UserID,
		req.PlanID,
		h.clientURL+"/subscribe/success?session_id={CHECKOUT_SESSION_ID}",
		h.clientURL+"/subscribe/cancelled",
	)
	if err != nil {
		if errors.Is(err, domainErrors.ErrPlanNotFound) || errors.Is(err, domainErrors.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
		}
		h.logger.Error("Error creating subscription checkout", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to create checkout session",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"session_id":   session.ID,
		"checkout_url": session.URL,
	})
}

// OneTimeCheckoutRequest is the body for starting a one-time purchase.
type OneTimeCheckoutRequest struct {
	Items []usecase.CartItem `json:"items" validate:"required,min=1,dive"`
}

// CreateOneTimeCheckout starts a one-time purchase checkout session.
func (h *CheckoutHandler) CreateOneTimeCheckout(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	var req OneTimeCheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "items are required",
		})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	session, err := h.checkout.StartOneTimeCheckout(
		c.Request().Context(),
		user.UserID,
		req.Items,
		h.clientURL+"/shop/success?session_id={CHECKOUT_SESSION_ID}",
		h.clientURL+"/shop/cancelled",
	)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrUserNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
		case errors.Is(err, domainErrors.ErrNoProductsAvailable):
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
		}
		h.logger.Error("Error creating one-time checkout", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to create checkout session",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"session_id":   session.ID,
		"checkout_url": session.URL,
	})
}

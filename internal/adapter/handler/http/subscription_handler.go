package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainErrors "github.com/beanbound/beanbound/internal/domain/errors"
	"github.com/beanbound/beanbound/internal/domain/model"
	"github.com/beanbound/beanbound/internal/middleware/auth"
	"github.com/beanbound/beanbound/internal/usecase"
)

// SubscriptionHandler serves dashboard subscription actions.
type SubscriptionHandler struct {
	service *usecase.SubscriptionService
	logger  *zap.Logger
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(service *usecase.SubscriptionService, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{service: service, logger: logger}
}

// GetCurrentSubscription returns the caller's active or paused subscription.
func (h *SubscriptionHandler) GetCurrentSubscription(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	sub, err := h.service.Current(c.Request().Context(), user.UserID)
	if err != nil {
		h.logger.Error("Error loading current subscription", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to load subscription",
		})
	}
	if sub == nil {
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "no active subscription",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"subscription": sub})
}

// PauseSubscription pauses the caller's subscription.
func (h *SubscriptionHandler) PauseSubscription(c echo.Context) error {
	return h.lifecycleAction(c, h.service.Pause)
}

// ResumeSubscription resumes the caller's paused subscription.
func (h *SubscriptionHandler) ResumeSubscription(c echo.Context) error {
	return h.lifecycleAction(c, h.service.Resume)
}

// CancelSubscription cancels the caller's subscription.
func (h *SubscriptionHandler) CancelSubscription(c echo.Context) error {
	return h.lifecycleAction(c, h.service.Cancel)
}

// AttachPaymentMethodRequest is the body for attaching a payment method.
type AttachPaymentMethodRequest struct {
	PaymentMethodID string `json:"payment_method_id" validate:"required"`
}

// AttachPaymentMethod attaches a provider payment method to the caller.
func (h *SubscriptionHandler) AttachPaymentMethod(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	var req AttachPaymentMethodRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "payment_method_id is required",
		})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	pm, err := h.service.AttachPaymentMethod(c.Request().Context(), user.UserID, req.PaymentMethodID)
	if err != nil {
		if pm != nil {
			// Card declined but the method was stored locally.
			return c.JSON(http.StatusOK, echo.Map{
				"payment_method": pm,
				"warning":        err.Error(),
			})
		}
		return h.mapError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"payment_method": pm})
}

func (h *SubscriptionHandler) lifecycleAction(
	c echo.Context,
	action func(ctx context.Context, userID uuid.UUID, subscriptionID uint64) (*model.Subscription, error),
) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "invalid subscription id",
		})
	}

	sub, err := action(c.Request().Context(), user.UserID, id)
	if err != nil {
		return h.mapError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"subscription": sub})
}

func (h *SubscriptionHandler) mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domainErrors.ErrSubscriptionNotFound),
		errors.Is(err, domainErrors.ErrUserNotFound),
		errors.Is(err, domainErrors.ErrPlanNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, domainErrors.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	default:
		h.logger.Error("Subscription action failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "internal error",
		})
	}
}

package http

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/beanbound/beanbound/internal/usecase"
)

// WebhookHandler receives provider webhook deliveries.
type WebhookHandler struct {
	processor *usecase.WebhookProcessor
	logger    *zap.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(processor *usecase.WebhookProcessor, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{processor: processor, logger: logger}
}

// HandleWebhook processes one webhook delivery. The response contract is
// fixed: 200 {"status":"success"} acknowledges the event, 400 tells the
// provider to retry.
func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		h.logger.Error("Error reading webhook body", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"status":  "error",
			"message": "failed to read request body",
		})
	}

	sig := c.Request().Header.Get("Stripe-Signature")

	result := h.processor.Handle(c.Request().Context(), body, sig)
	if !result.OK() {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"status":  "error",
			"message": result.Err.Error(),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "success"})
}

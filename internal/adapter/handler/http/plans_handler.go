package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainRepo "github.com/beanbound/beanbound/internal/domain/repository"
)

// PlansHandler serves the subscription plan catalog.
type PlansHandler struct {
	plans  domainRepo.PlanRepository
	logger *zap.Logger
}

// NewPlansHandler creates a new plans handler
func NewPlansHandler(plans domainRepo.PlanRepository, logger *zap.Logger) *PlansHandler {
	return &PlansHandler{plans: plans, logger: logger}
}

// GetPlans lists the active subscription plans.
func (h *PlansHandler) GetPlans(c echo.Context) error {
	plans, err := h.plans.ListActive(c.Request().Context())
	if err != nil {
		h.logger.Error("Error fetching plans", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to fetch plans",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"plans": plans,
		"count": len(plans),
	})
}

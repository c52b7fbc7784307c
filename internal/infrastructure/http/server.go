package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	handlers "github.com/beanbound/beanbound/internal/adapter/handler/http"
	"github.com/beanbound/beanbound/internal/config"
	"github.com/beanbound/beanbound/internal/infrastructure/database"
	"github.com/beanbound/beanbound/internal/middleware/auth"
	"github.com/beanbound/beanbound/internal/usecase"
)

// Services bundles the usecase-layer collaborators the HTTP surface exposes.
type Services struct {
	Webhooks      *usecase.WebhookProcessor
	Subscriptions *usecase.SubscriptionService
	Checkout      *usecase.CheckoutService
}

// requestValidator adapts go-playground/validator to echo's Validator interface.
type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	repos    *database.Repositories
	services Services
}

func NewServer(cfg *config.Config, logger *zap.Logger, repos *database.Repositories, services Services) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &requestValidator{validate: validator.New()}

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Service.ClientURL},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))

	return &Server{
		config:   cfg,
		logger:   logger,
		echo:     e,
		repos:    repos,
		services: services,
	}
}

func (s *Server) Start() error {
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(s.services.Webhooks, s.logger)
	plansHandler := handlers.NewPlansHandler(s.repos.Plans, s.logger)
	productHandler := handlers.NewProductHandler(s.repos.Products, s.logger)
	checkoutHandler := handlers.NewCheckoutHandler(s.services.Subscriptions, s.services.Checkout, s.config.Service.ClientURL, s.logger)
	subscriptionHandler := handlers.NewSubscriptionHandler(s.services.Subscriptions, s.logger)
	orderHandler := handlers.NewOrderHandler(s.repos.Orders, s.logger)

	// JWT middleware configuration
	jwtConfig := auth.JWTConfig{
		Secret: s.config.Service.JWTSecret,
		Logger: s.logger,
		SkipPaths: []string{
			"/health",
			"/webhook",
			"/api/v1/plans",
			"/api/v1/products",
		},
	}

	// API v1 routes
	v1 := s.echo.Group("/api/v1")

	// Public catalog routes
	v1.GET("/plans", plansHandler.GetPlans)
	v1.GET("/products", productHandler.GetProducts)

	// Protected routes (require JWT authentication)
	protected := v1.Group("", auth.JWTMiddleware(jwtConfig))

	subscriptions := protected.Group("/subscriptions")
	subscriptions.POST("", checkoutHandler.CreateSubscription)
	subscriptions.GET("/current", subscriptionHandler.GetCurrentSubscription)
	subscriptions.POST("/:id/pause", subscriptionHandler.PauseSubscription)
	subscriptions.POST("/:id/resume", subscriptionHandler.ResumeSubscription)
	subscriptions.DELETE("/:id", subscriptionHandler.CancelSubscription)

	protected.POST("/checkout", checkoutHandler.CreateOneTimeCheckout)
	protected.GET("/orders/:number", orderHandler.GetOrder)
	protected.POST("/payment-methods", subscriptionHandler.AttachPaymentMethod)

	// Webhook route (outside API versioning)
	s.echo.POST("/webhook", webhookHandler.HandleWebhook)
}

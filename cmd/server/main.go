package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/beanbound/beanbound/internal/config"
	"github.com/beanbound/beanbound/internal/infrastructure/database"
	httpServer "github.com/beanbound/beanbound/internal/infrastructure/http"
	"github.com/beanbound/beanbound/internal/infrastructure/mail"
	stripeProvider "github.com/beanbound/beanbound/internal/infrastructure/provider/stripe"
	"github.com/beanbound/beanbound/internal/infrastructure/queue"
	"github.com/beanbound/beanbound/internal/logger"
	"github.com/beanbound/beanbound/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, zapLogger); err != nil {
			zapLogger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations
	if err := database.Migrate(db, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories
	repos := database.NewRepositories(db, zapLogger)

	// Redis backs the job queue and the sweep lease
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	jobs := queue.NewQueue(redisClient, cfg.Redis.Workers, zapLogger)

	hostname, _ := os.Hostname()
	locker := queue.NewRedisLocker(redisClient, fmt.Sprintf("%s-%d", hostname, os.Getpid()))

	// Usecase wiring
	notifier := usecase.NewNotifier(jobs, zapLogger)
	mailer := mail.NewMailer(cfg.SMTP, zapLogger)
	payments := stripeProvider.NewProvider(cfg.Service.StripeSecretKey, zapLogger)

	tax, err := usecase.NewPercentTax(cfg.Billing.TaxRate)
	if err != nil {
		zapLogger.Fatal("Invalid tax rate", zap.Error(err))
	}
	shipping := usecase.FlatRateShipping{Cents: cfg.Billing.ShippingFlatCents}

	generator := usecase.NewOrderGenerator(
		repos.Orders,
		repos.Products,
		repos.Plans,
		repos.Users,
		repos.Addresses,
		shipping,
		tax,
		notifier,
		zapLogger,
	)

	processor := usecase.NewWebhookProcessor(
		usecase.WebhookProcessorConfig{
			WebhookSecret:           cfg.Service.StripeWebhookSecret,
			Production:              cfg.Service.IsProduction(),
			FailedPaymentThreshold:  cfg.Billing.FailedPaymentThreshold,
			AutoCancelAfterFailures: cfg.Billing.AutoCancelAfterFailures,
		},
		usecase.WebhookStores{
			Events:         repos.WebhookEvents,
			Subscriptions:  repos.Subscriptions,
			Orders:         repos.Orders,
			Products:       repos.Products,
			Plans:          repos.Plans,
			Users:          repos.Users,
			Addresses:      repos.Addresses,
			PaymentMethods: repos.PaymentMethods,
		},
		jobs,
		notifier,
		zapLogger,
	)

	subscriptionService := usecase.NewSubscriptionService(
		repos.Subscriptions,
		repos.Users,
		repos.PaymentMethods,
		repos.Plans,
		payments,
		notifier,
		zapLogger,
	)
	checkoutService := usecase.NewCheckoutService(repos.Users, repos.Products, payments, zapLogger)

	// Background job handlers
	jobs.Register(usecase.TaskGenerateOrder, func(ctx context.Context, payload json.RawMessage) error {
		var task usecase.GenerateOrderTask
		if err := json.Unmarshal(payload, &task); err != nil {
			return fmt.Errorf("failed to parse generate_order payload: %w", err)
		}
		sub, err := repos.Subscriptions.GetByID(ctx, task.SubscriptionID)
		if err != nil {
			return err
		}
		if sub == nil {
			zapLogger.Warn("Subscription gone before order generation",
				zap.Uint64("subscription_id", task.SubscriptionID))
			return nil
		}
		_, err = generator.Generate(ctx, sub, task.InvoiceID)
		return err
	})
	jobs.Register(usecase.TaskSendEmail, func(ctx context.Context, payload json.RawMessage) error {
		var task usecase.SendEmailTask
		if err := json.Unmarshal(payload, &task); err != nil {
			return fmt.Errorf("failed to parse send_email payload: %w", err)
		}
		return mailer.Send(task.To, task.Subject, task.Body)
	})
	jobs.Start()
	defer jobs.Stop()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// In-process delivery sweep; the redis lease keeps replicas from
	// sweeping concurrently.
	if cfg.Billing.SweepInterval != "" {
		interval, err := time.ParseDuration(cfg.Billing.SweepInterval)
		if err != nil {
			zapLogger.Fatal("Invalid sweep interval", zap.Error(err))
		}
		scheduler := usecase.NewScheduler(repos.Subscriptions, generator, locker, zapLogger)
		go scheduler.Run(ctx, interval)
	}

	httpSrv := httpServer.NewServer(cfg, zapLogger, repos, httpServer.Services{
		Webhooks:      processor,
		Subscriptions: subscriptionService,
		Checkout:      checkoutService,
	})

	go func() {
		if err := httpSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLogger.Info("Shutting down...")
	cancel()

	if err := httpSrv.Shutdown(context.Background()); err != nil {
		zapLogger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	zapLogger.Info("Server shut down successfully")
}

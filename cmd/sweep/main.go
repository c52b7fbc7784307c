package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/beanbound/beanbound/internal/config"
	"github.com/beanbound/beanbound/internal/infrastructure/database"
	"github.com/beanbound/beanbound/internal/infrastructure/queue"
	"github.com/beanbound/beanbound/internal/logger"
	"github.com/beanbound/beanbound/internal/usecase"
)

// One-shot delivery sweep, intended for cron or a scheduled job runner.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := database.NewConnection(&cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db, zapLogger)

	repos := database.NewRepositories(db, zapLogger)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	hostname, _ := os.Hostname()
	locker := queue.NewRedisLocker(redisClient, fmt.Sprintf("%s-%d", hostname, os.Getpid()))
	jobs := queue.NewQueue(redisClient, cfg.Redis.Workers, zapLogger)

	notifier := usecase.NewNotifier(jobs, zapLogger)

	tax, err := usecase.NewPercentTax(cfg.Billing.TaxRate)
	if err != nil {
		zapLogger.Fatal("Invalid tax rate", zap.Error(err))
	}

	generator := usecase.NewOrderGenerator(
		repos.Orders,
		repos.Products,
		repos.Plans,
		repos.Users,
		repos.Addresses,
		usecase.FlatRateShipping{Cents: cfg.Billing.ShippingFlatCents},
		tax,
		notifier,
		zapLogger,
	)

	scheduler := usecase.NewScheduler(repos.Subscriptions, generator, locker, zapLogger)

	result, err := scheduler.RunSweep(context.Background())
	if err != nil {
		zapLogger.Fatal("Sweep failed", zap.Error(err))
	}

	zapLogger.Info("Sweep finished",
		zap.Int("selected", result.Selected),
		zap.Int("generated", result.Generated),
		zap.Int("failed", result.Failed),
		zap.Bool("skipped", result.Skipped))
}

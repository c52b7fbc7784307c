package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	domainErrors "github.com/beanbound/beanbound/internal/domain/errors"
	domainRepo "github.com/beanbound/beanbound/internal/domain/repository"
)

// Locker serializes sweeps across replicas. A nil Locker runs unguarded,
// which is fine for a single instance.
type Locker interface {
	// Acquire takes the named lease for ttl. It returns false without error
	// when another holder has it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string) error
}

const sweepLease = "delivery_sweep"

// SweepResult summarizes one scheduler pass.
type SweepResult struct {
	Selected  int
	Generated int
	Failed    int
	// Skipped means another replica held the sweep lease.
	Skipped bool
}

// Scheduler periodically generates delivery orders for subscriptions whose
// next delivery date has arrived. One subscription failing never blocks the
// rest of the sweep.
type Scheduler struct {
	subscriptions domainRepo.SubscriptionRepository
	generator     *OrderGenerator
	locker        Locker
	logger        *zap.Logger

	now func() time.Time
}

// NewScheduler creates a new delivery scheduler
func NewScheduler(subscriptions domainRepo.SubscriptionRepository, generator *OrderGenerator, locker Locker, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		subscriptions: subscriptions,
		generator:     generator,
		locker:        locker,
		logger:        logger,
		now:           time.Now,
	}
}

// Run sweeps on the given interval until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Delivery scheduler started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Delivery scheduler stopped")
			return
		case <-ticker.C:
			result, err := s.RunSweep(ctx)
			if err != nil {
				s.logger.Error("Delivery sweep failed", zap.Error(err))
				continue
			}
			if !result.Skipped {
				s.logger.Info("Delivery sweep finished",
					zap.Int("selected", result.Selected),
					zap.Int("generated", result.Generated),
					zap.Int("failed", result.Failed))
			}
		}
	}
}

// RunSweep performs a single pass over due subscriptions.
func (s *Scheduler) RunSweep(ctx context.Context) (SweepResult, error) {
	if s.locker != nil {
		acquired, err := s.locker.Acquire(ctx, sweepLease, 10*time.Minute)
		if err != nil {
			return SweepResult{}, fmt.Errorf("failed to acquire sweep lease: %w", err)
		}
		if !acquired {
			s.logger.Debug("Sweep lease held elsewhere, skipping")
			return SweepResult{Skipped: true}, nil
		}
		defer func() {
			if err := s.locker.Release(ctx, sweepLease); err != nil {
				s.logger.Warn("Failed to release sweep lease", zap.Error(err))
			}
		}()
	}

	due, err := s.subscriptions.ListDue(ctx, s.now())
	if err != nil {
		return SweepResult{}, fmt.Errorf("failed to list due subscriptions: %w", err)
	}

	result := SweepResult{Selected: len(due)}
	for _, sub := range due {
		if err := s.generateOne(ctx, sub.ID); err != nil {
			result.Failed++
			if domainErrors.IsIneligibility(err) {
				s.logger.Warn("Subscription not eligible for delivery",
					zap.Uint64("subscription_id", sub.ID),
					zap.Error(err))
			} else {
				s.logger.Error("Delivery generation failed for subscription",
					zap.Uint64("subscription_id", sub.ID),
					zap.Error(err))
			}
			continue
		}
		result.Generated++
	}
	return result, nil
}

// generateOne isolates a single subscription's generation, including
// converting a panic into an error so the sweep continues.
func (s *Scheduler) generateOne(ctx context.Context, subscriptionID uint64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic generating delivery: %v", r)
		}
	}()

	sub, err := s.subscriptions.GetByID(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if sub == nil {
		return fmt.Errorf("subscription %d disappeared during sweep", subscriptionID)
	}

	_, err = s.generator.Generate(ctx, sub, "")
	return err
}

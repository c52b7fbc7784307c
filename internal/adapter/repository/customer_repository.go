package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/beanbound/beanbound/internal/domain/model"
	domainRepo "github.com/beanbound/beanbound/internal/domain/repository"
)

type userRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB, logger *zap.Logger) domainRepo.UserRepository {
	return &userRepository{db: db, logger: logger}
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get user",
			zap.String("user_id", id.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User

	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get user by email", zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (r *userRepository) GetByProviderCustomerID(ctx context.Context, customerID string) (*model.User, error) {
	var user model.User

	err := r.db.WithContext(ctx).
		Where("provider_customer_id = ?", customerID).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get user by provider customer ID",
			zap.String("provider_customer_id", customerID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (r *userRepository) SetProviderCustomerID(ctx context.Context, userID uuid.UUID, customerID string) error {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("provider_customer_id", customerID)

	if result.Error != nil {
		r.logger.Error("Failed to set provider customer ID",
			zap.String("user_id", userID.String()),
			zap.Error(result.Error))
		return fmt.Errorf("failed to set provider customer ID: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}

	return nil
}

type addressRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewAddressRepository creates a new address repository
func NewAddressRepository(db *gorm.DB, logger *zap.Logger) domainRepo.AddressRepository {
	return &addressRepository{db: db, logger: logger}
}

func (r *addressRepository) GetByID(ctx context.Context, id uint64) (*model.Address, error) {
	var addr model.Address

	err := r.db.WithContext(ctx).First(&addr, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get address",
			zap.Uint64("address_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get address: %w", err)
	}

	return &addr, nil
}

// FirstForUser returns the default address, falling back to the oldest one.
func (r *addressRepository) FirstForUser(ctx context.Context, userID uuid.UUID) (*model.Address, error) {
	var addr model.Address

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, created_at ASC").
		First(&addr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get address for user",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get address: %w", err)
	}

	return &addr, nil
}

type paymentMethodRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPaymentMethodRepository creates a new payment-method repository
func NewPaymentMethodRepository(db *gorm.DB, logger *zap.Logger) domainRepo.PaymentMethodRepository {
	return &paymentMethodRepository{db: db, logger: logger}
}

func (r *paymentMethodRepository) GetByID(ctx context.Context, id uint64) (*model.PaymentMethod, error) {
	var pm model.PaymentMethod

	err := r.db.WithContext(ctx).First(&pm, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get payment method",
			zap.Uint64("payment_method_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get payment method: %w", err)
	}

	return &pm, nil
}

// DefaultForUser returns the default payment method, falling back to the
// oldest one.
func (r *paymentMethodRepository) DefaultForUser(ctx context.Context, userID uuid.UUID) (*model.PaymentMethod, error) {
	var pm model.PaymentMethod

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, created_at ASC").
		First(&pm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get payment method for user",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get payment method: %w", err)
	}

	return &pm, nil
}

// Upsert creates or refreshes the local copy keyed by provider method ID.
func (r *paymentMethodRepository) Upsert(ctx context.Context, pm *model.PaymentMethod) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider_method_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"brand", "last4", "exp_month", "exp_year", "updated_at"}),
		}).
		Create(pm).Error

	if err != nil {
		r.logger.Error("Failed to upsert payment method",
			zap.String("provider_method_id", pm.ProviderMethodID),
			zap.Error(err))
		return fmt.Errorf("failed to upsert payment method: %w", err)
	}

	return nil
}

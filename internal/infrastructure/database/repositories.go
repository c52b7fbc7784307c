package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/beanbound/beanbound/internal/adapter/repository"
	domainRepo "github.com/beanbound/beanbound/internal/domain/repository"
)

// Repositories holds all repository instances
type Repositories struct {
	WebhookEvents  domainRepo.WebhookEventRepository
	Subscriptions  domainRepo.SubscriptionRepository
	Orders         domainRepo.OrderRepository
	Products       domainRepo.ProductRepository
	Plans          domainRepo.PlanRepository
	Users          domainRepo.UserRepository
	Addresses      domainRepo.AddressRepository
	PaymentMethods domainRepo.PaymentMethodRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		WebhookEvents:  repository.NewWebhookEventRepository(db, logger),
		Subscriptions:  repository.NewSubscriptionRepository(db, logger),
		Orders:         repository.NewOrderRepository(db, logger),
		Products:       repository.NewProductRepository(db, logger),
		Plans:          repository.NewPlanRepository(db, logger),
		Users:          repository.NewUserRepository(db, logger),
		Addresses:      repository.NewAddressRepository(db, logger),
		PaymentMethods: repository.NewPaymentMethodRepository(db, logger),
	}
}

package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	handlers "github.com/beanbound/beanbound/internal/adapter/handler/http"
	"github.com/beanbound/beanbound/internal/domain/model"
	"github.com/beanbound/beanbound/internal/middleware/auth"
)

// MockOrderRepository is a mock implementation of OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) CreateForDelivery(ctx context.Context, order *model.Order, sub *model.Subscription) error {
	args := m.Called(ctx, order, sub)
	return args.Error(0)
}

func (m *MockOrderRepository) GetBySubscriptionInvoice(ctx context.Context, subscriptionID uint64, invoiceID string) (*model.Order, error) {
	args := m.Called(ctx, subscriptionID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func bearerToken(userID uuid.UUID) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID.String(),
		"email": "test@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	})
	tokenString, _ := token.SignedString([]byte("test-secret"))
	return tokenString
}

func getOrderRequest(t *testing.T, orders *MockOrderRepository, userID uuid.UUID, number string) *httptest.ResponseRecorder {
	t.Helper()

	handler := handlers.NewOrderHandler(orders, zap.NewNop())
	middleware := auth.JWTMiddleware(auth.JWTConfig{Secret: "test-secret", Logger: zap.NewNop()})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+number, nil)
	req.Header.Set("Authorization", "Bearer "+bearerToken(userID))
	rec := httptest.NewRecorder()

	c := e.NewContext(req, rec)
	c.SetParamNames("number")
	c.SetParamValues(number)

	err := middleware(handler.GetOrder)(c)
	assert.NoError(t, err)
	return rec
}

func TestOrderHandler_GetOrder(t *testing.T) {
	ownerID := uuid.New()
	order := &model.Order{
		ID:          1,
		OrderNumber: "ORD-1700000000-A1B2C3",
		UserID:      ownerID,
		Type:        model.OrderTypeOneTime,
		TotalCents:  2500,
	}

	t.Run("owner can fetch their order", func(t *testing.T) {
		orders := new(MockOrderRepository)
		orders.On("GetByNumber", mock.Anything, order.OrderNumber).Return(order, nil)

		rec := getOrderRequest(t, orders, ownerID, order.OrderNumber)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), order.OrderNumber)
	})

	t.Run("another user's order is not found", func(t *testing.T) {
		orders := new(MockOrderRepository)
		orders.On("GetByNumber", mock.Anything, order.OrderNumber).Return(order, nil)

		rec := getOrderRequest(t, orders, uuid.New(), order.OrderNumber)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "order not found")
	})

	t.Run("unknown order number is not found", func(t *testing.T) {
		orders := new(MockOrderRepository)
		orders.On("GetByNumber", mock.Anything, "ORD-0-000000").Return(nil, nil)

		rec := getOrderRequest(t, orders, ownerID, "ORD-0-000000")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

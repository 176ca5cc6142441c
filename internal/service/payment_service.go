package service

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/digkill/aieditor/internal/models"
	"github.com/digkill/aieditor/internal/repository"
)

// PaymentService simulates the top-up flow. Orders live only in memory;
// the payment URI is a stand-in for a real provider's QR payload. Only a
// successful order credits the user, and only once.
type PaymentService struct {
	config  *repository.PaymentConfigRepository
	credits *CreditService
	mu      sync.Mutex
	orders  map[string]*models.PaymentOrder
}

func NewPaymentService(config *repository.PaymentConfigRepository, credits *CreditService) *PaymentService {
	return &PaymentService{
		config:  config,
		credits: credits,
		orders:  make(map[string]*models.PaymentOrder),
	}
}

// Config returns the current pricing singleton.
func (s *PaymentService) Config() models.PaymentConfig {
	return s.config.Get()
}

// UpdateConfig replaces the pricing singleton, admin only.
func (s *PaymentService) UpdateConfig(cfg models.PaymentConfig) error {
	if cfg.PricePerCredit <= 0 {
		return fmt.Errorf("%w: price per credit must be positive", ErrInvalidInput)
	}
	if cfg.InitialFreeCredits < 0 {
		return fmt.Errorf("%w: initial free credits cannot be negative", ErrInvalidInput)
	}
	return s.config.Save(cfg)
}

// CreateOrder opens a pending order for the given number of credits.
func (s *PaymentService) CreateOrder(userID string, credits int) (*models.PaymentOrder, error) {
	if credits <= 0 {
		return nil, fmt.Errorf("%w: credits must be positive", ErrInvalidInput)
	}

	price := s.config.Get().PricePerCredit
	amount := math.Round(price*float64(credits)*100) / 100

	order := &models.PaymentOrder{
		OrderID:    fmt.Sprintf("ORDER_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8]),
		UserID:     userID,
		Amount:     amount,
		Credits:    credits,
		Status:     models.PaymentPending,
		PaymentURI: "weixin://wxpay/bizpayurl?pr=" + uuid.NewString()[:10],
		CreatedAt:  time.Now().UTC(),
	}

	s.mu.Lock()
	s.orders[order.OrderID] = order
	s.mu.Unlock()
	return order, nil
}

// OrderStatus reports the current status of an order.
func (s *PaymentService) OrderStatus(orderID string) (models.PaymentStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return "", fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	return order.Status, nil
}

// SimulateSuccess marks a pending order paid and credits the user. Already
// settled orders are left alone so credits are granted exactly once.
func (s *PaymentService) SimulateSuccess(orderID string) (*models.PaymentOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	if order.Status != models.PaymentPending {
		return order, nil
	}
	if err := s.credits.Credit(order.UserID, order.Credits); err != nil {
		return nil, err
	}
	order.Status = models.PaymentSuccess
	return order, nil
}

// SimulateFailure marks a pending order failed.
func (s *PaymentService) SimulateFailure(orderID string) (*models.PaymentOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	if order.Status == models.PaymentPending {
		order.Status = models.PaymentFailed
	}
	return order, nil
}

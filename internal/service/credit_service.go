package service

import (
	"fmt"
	"sync"

	"github.com/digkill/aieditor/internal/repository"
)

// CreditService is the single debit path for every paid operation. The
// mutex spans check, decrement and persist so two concurrent debits can
// never both pass the affordability check.
type CreditService struct {
	users *repository.UserRepository
	mu    sync.Mutex
}

func NewCreditService(users *repository.UserRepository) *CreditService {
	return &CreditService{users: users}
}

// Balance returns the user's current credit balance.
func (s *CreditService) Balance(userID string) (int, error) {
	user := s.users.FindByID(userID)
	if user == nil {
		return 0, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	return user.Credits, nil
}

// CanAfford reports whether the balance covers cost.
func (s *CreditService) CanAfford(userID string, cost int) bool {
	balance, err := s.Balance(userID)
	return err == nil && balance >= cost
}

// Debit atomically checks and decrements. Fails with
// ErrInsufficientCredits (balance untouched) when the cost is not covered.
func (s *CreditService) Debit(userID string, cost int) error {
	if cost <= 0 {
		return fmt.Errorf("%w: debit cost must be positive", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user := s.users.FindByID(userID)
	if user == nil {
		return fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	if user.Credits < cost {
		return ErrInsufficientCredits
	}
	user.Credits -= cost
	return s.users.Update(*user)
}

// Credit increases the balance; used by the payment flow.
func (s *CreditService) Credit(userID string, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("%w: credit amount must be positive", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user := s.users.FindByID(userID)
	if user == nil {
		return fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	user.Credits += amount
	return s.users.Update(*user)
}

// SetCredits is the admin override. Negative values are rejected.
func (s *CreditService) SetCredits(userID string, newValue int) error {
	if newValue < 0 {
		return fmt.Errorf("%w: credits cannot be negative", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user := s.users.FindByID(userID)
	if user == nil {
		return fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	user.Credits = newValue
	return s.users.Update(*user)
}

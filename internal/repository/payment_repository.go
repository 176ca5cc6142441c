package repository

import (
	"errors"
	"fmt"

	"github.com/digkill/aieditor/internal/models"
	"github.com/digkill/aieditor/internal/store"
)

const (
	paymentConfigKey = "payment_config"
	sessionKey       = "session"
)

// PaymentConfigRepository persists the pricing singleton.
type PaymentConfigRepository struct {
	store    *store.Store
	defaults models.PaymentConfig
}

func NewPaymentConfigRepository(s *store.Store, defaults models.PaymentConfig) *PaymentConfigRepository {
	return &PaymentConfigRepository{store: s, defaults: defaults}
}

// Get returns the stored config, falling back to the configured defaults
// on first run or corrupt data.
func (r *PaymentConfigRepository) Get() models.PaymentConfig {
	cfg := r.defaults
	r.store.GetOr(paymentConfigKey, &cfg)
	if cfg.PricePerCredit <= 0 {
		cfg.PricePerCredit = r.defaults.PricePerCredit
	}
	if cfg.InitialFreeCredits < 0 {
		cfg.InitialFreeCredits = r.defaults.InitialFreeCredits
	}
	return cfg
}

func (r *PaymentConfigRepository) Save(cfg models.PaymentConfig) error {
	if err := r.store.Put(paymentConfigKey, cfg); err != nil {
		return fmt.Errorf("save payment config: %w", err)
	}
	return nil
}

// SessionRepository persists the current-session marker: the signed token
// that identifies the logged-in user across restarts.
type SessionRepository struct {
	store *store.Store
}

func NewSessionRepository(s *store.Store) *SessionRepository {
	return &SessionRepository{store: s}
}

func (r *SessionRepository) Token() string {
	var token string
	if err := r.store.Get(sessionKey, &token); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			// A corrupt marker just means nobody is logged in.
			return ""
		}
		return ""
	}
	return token
}

func (r *SessionRepository) Save(token string) error {
	if err := r.store.Put(sessionKey, token); err != nil {
		return fmt.Errorf("save session marker: %w", err)
	}
	return nil
}

func (r *SessionRepository) Clear() error {
	return r.store.Delete(sessionKey)
}

package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/aieditor/internal/models"
	"github.com/digkill/aieditor/internal/repository"
)

func newPaymentService(t *testing.T) (*PaymentService, *CreditService, models.User) {
	t.Helper()
	st := testStore(t)
	users := repository.NewUserRepository(st)
	user := addUser(t, users, "alice", 0, false)
	credits := NewCreditService(users)
	config := repository.NewPaymentConfigRepository(st, models.PaymentConfig{
		PricePerCredit:     0.5,
		InitialFreeCredits: 3,
	})
	return NewPaymentService(config, credits), credits, user
}

func TestCreateOrderComputesAmount(t *testing.T) {
	svc, _, user := newPaymentService(t)

	order, err := svc.CreateOrder(user.ID, 10)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, order.Amount, 1e-9)
	assert.Equal(t, 10, order.Credits)
	assert.Equal(t, models.PaymentPending, order.Status)
	assert.True(t, strings.HasPrefix(order.OrderID, "ORDER_"))
	assert.True(t, strings.HasPrefix(order.PaymentURI, "weixin://wxpay/bizpayurl?pr="))
}

func TestCreateOrderRejectsNonPositiveCredits(t *testing.T) {
	svc, _, user := newPaymentService(t)

	_, err := svc.CreateOrder(user.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateOrder(user.ID, -5)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSimulateSuccessCreditsExactlyOnce(t *testing.T) {
	svc, credits, user := newPaymentService(t)

	order, err := svc.CreateOrder(user.ID, 7)
	require.NoError(t, err)

	settled, err := svc.SimulateSuccess(order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, settled.Status)

	balance, err := credits.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, balance)

	// A second success call on a settled order does not credit again.
	_, err = svc.SimulateSuccess(order.OrderID)
	require.NoError(t, err)
	balance, err = credits.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, balance)
}

func TestSimulateFailureGrantsNothing(t *testing.T) {
	svc, credits, user := newPaymentService(t)

	order, err := svc.CreateOrder(user.ID, 4)
	require.NoError(t, err)

	failed, err := svc.SimulateFailure(order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, failed.Status)

	balance, err := credits.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, balance)

	// A failed order cannot be flipped to success afterwards.
	settled, err := svc.SimulateSuccess(order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, settled.Status)
}

func TestOrderStatus(t *testing.T) {
	svc, _, user := newPaymentService(t)

	order, err := svc.CreateOrder(user.ID, 1)
	require.NoError(t, err)

	status, err := svc.OrderStatus(order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, status)

	_, err = svc.OrderStatus("ORDER_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateConfigValidation(t *testing.T) {
	svc, _, _ := newPaymentService(t)

	assert.ErrorIs(t, svc.UpdateConfig(models.PaymentConfig{PricePerCredit: 0}), ErrInvalidInput)
	assert.ErrorIs(t, svc.UpdateConfig(models.PaymentConfig{PricePerCredit: 1, InitialFreeCredits: -1}), ErrInvalidInput)

	require.NoError(t, svc.UpdateConfig(models.PaymentConfig{PricePerCredit: 0.8, InitialFreeCredits: 5}))
	cfg := svc.Config()
	assert.InDelta(t, 0.8, cfg.PricePerCredit, 1e-9)
	assert.Equal(t, 5, cfg.InitialFreeCredits)
}

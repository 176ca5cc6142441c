package admin

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/aieditor/internal/models"
	"github.com/digkill/aieditor/internal/repository"
	"github.com/digkill/aieditor/internal/service"
	"github.com/digkill/aieditor/internal/store"
)

type fixture struct {
	server *Server
	users  *repository.UserRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(t.TempDir(), log)
	require.NoError(t, err)

	users := repository.NewUserRepository(st)
	sessions := repository.NewSessionRepository(st)
	paymentCfg := repository.NewPaymentConfigRepository(st, models.PaymentConfig{
		PricePerCredit:     0.5,
		InitialFreeCredits: 3,
	})
	userSvc := service.NewUserService(users, sessions, paymentCfg, log, []byte("secret"), time.Hour)
	creditSvc := service.NewCreditService(users)
	paymentSvc := service.NewPaymentService(paymentCfg, creditSvc)
	templateSvc := service.NewTemplateService(repository.NewTemplateRepository(st), log)
	historySvc := service.NewHistoryService(repository.NewHistoryRepository(st), nil, log)

	server := NewServer(":0", "admin", "hunter2", log, userSvc, creditSvc, paymentSvc, templateSvc, historySvc)
	return &fixture{server: server, users: users}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.SetBasicAuth("admin", "hunter2")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *fixture) seedUser(t *testing.T, username string, credits int) models.User {
	t.Helper()
	user := models.User{ID: "user-" + username, Username: username, Credits: credits}
	require.NoError(t, f.users.Create(user))
	return user
}

func TestRejectsMissingOrWrongCredentials(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/users", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListUsersOmitsPasswordHash(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice", 3)

	rec := f.do(t, http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "alice", out[0]["username"])
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestUpdateUserPartialFields(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "alice", 3)

	rec := f.do(t, http.MethodPut, "/users/"+user.ID, `{"credits": 10}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, float64(10), out["credits"])
	assert.Equal(t, "alice", out["username"], "omitted fields keep their values")
}

func TestUpdateUserNegativeCredits(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "alice", 3)

	rec := f.do(t, http.MethodPut, "/users/"+user.ID, `{"credits": -5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateUnknownUser(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPut, "/users/ghost", `{"credits": 1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetCredits(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "alice", 3)

	rec := f.do(t, http.MethodPut, "/users/"+user.ID+"/credits", `{"credits": 50}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, float64(50), out["credits"])
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "alice", 3)

	rec := f.do(t, http.MethodDelete, "/users/"+user.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, f.users.FindByID(user.ID))
}

func TestPaymentConfigRoundTrip(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/payment-config", `{"price_per_credit": 0.8, "initial_free_credits": 5}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/payment-config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cfg models.PaymentConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.InDelta(t, 0.8, cfg.PricePerCredit, 1e-9)
	assert.Equal(t, 5, cfg.InitialFreeCredits)
}

func TestPaymentConfigRejectsZeroPrice(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPut, "/payment-config", `{"price_per_credit": 0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteBuiltinTemplateRejected(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodDelete, "/templates/style-oil-painting", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistoryListAndDelete(t *testing.T) {
	f := newFixture(t)
	entry, err := f.server.history.Append("b3JpZw", "image/png", "warm it up", "ZWRpdGVk", "", "")
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "warm it up")
	assert.NotContains(t, rec.Body.String(), "b3JpZw", "history listing carries no image blobs")

	rec = f.do(t, http.MethodDelete, "/history/"+entry.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestShareWithoutUploader(t *testing.T) {
	f := newFixture(t)
	entry, err := f.server.history.Append("b3JpZw", "image/png", "p", "ZWRpdGVk", "", "")
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/history/"+entry.ID+"/share", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

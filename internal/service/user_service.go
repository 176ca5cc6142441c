package service

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/digkill/aieditor/internal/auth"
	"github.com/digkill/aieditor/internal/models"
	"github.com/digkill/aieditor/internal/repository"
)

const seedAdminUsername = "admin"

// UserService handles registration, login and the admin user pool. The
// logged-in user is tracked through a signed token in the session marker.
type UserService struct {
	users      *repository.UserRepository
	sessions   *repository.SessionRepository
	payments   *repository.PaymentConfigRepository
	log        *slog.Logger
	secret     []byte
	sessionTTL time.Duration
}

func NewUserService(users *repository.UserRepository, sessions *repository.SessionRepository, payments *repository.PaymentConfigRepository, log *slog.Logger, secret []byte, sessionTTL time.Duration) *UserService {
	return &UserService{
		users:      users,
		sessions:   sessions,
		payments:   payments,
		log:        log,
		secret:     secret,
		sessionTTL: sessionTTL,
	}
}

// EnsureSeedAdmin creates the admin user on first run. Idempotent; called
// explicitly during initialization, never as an import-time side effect.
func (s *UserService) EnsureSeedAdmin(password string) error {
	if s.users.FindByUsername(seedAdminUsername) != nil {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	admin := models.User{
		ID:           uuid.NewString(),
		Username:     seedAdminUsername,
		PasswordHash: string(hash),
		IsAdmin:      true,
		Credits:      99999,
	}
	if err := s.users.Create(admin); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	s.log.Info("seeded admin user")
	return nil
}

// Register creates a user with the configured number of free credits and
// logs them in.
func (s *UserService) Register(username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	if s.users.FindByUsername(username) != nil {
		return nil, fmt.Errorf("%w: username %q already exists", ErrInvalidInput, username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Credits:      s.payments.Get().InitialFreeCredits,
	}
	if err := s.users.Create(user); err != nil {
		return nil, err
	}
	if err := s.startSession(user.ID); err != nil {
		s.log.Warn("session marker not saved", "err", err)
	}
	return &user, nil
}

// Login verifies credentials and stores a fresh session marker.
func (s *UserService) Login(username, password string) (*models.User, error) {
	user := s.users.FindByUsername(strings.TrimSpace(username))
	if user == nil {
		return nil, ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrUnauthorized
	}
	if err := s.startSession(user.ID); err != nil {
		s.log.Warn("session marker not saved", "err", err)
	}
	return user, nil
}

// Logout clears the session marker.
func (s *UserService) Logout() error {
	return s.sessions.Clear()
}

// CurrentUser resolves the session marker to a user, or nil when nobody is
// logged in or the token no longer verifies.
func (s *UserService) CurrentUser() *models.User {
	token := s.sessions.Token()
	if token == "" {
		return nil
	}
	userID, err := auth.UserIDFromToken(token, s.secret)
	if err != nil {
		s.log.Warn("stale session marker discarded", "err", err)
		return nil
	}
	return s.users.FindByID(userID)
}

func (s *UserService) startSession(userID string) error {
	token, err := auth.GenerateToken(userID, s.secret, s.sessionTTL)
	if err != nil {
		return fmt.Errorf("mint session token: %w", err)
	}
	return s.sessions.Save(token)
}

// All returns every user, for the admin panel.
func (s *UserService) All() []models.User {
	return s.users.All()
}

func (s *UserService) Get(id string) (*models.User, error) {
	user := s.users.FindByID(id)
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	return user, nil
}

// AdminUpdate replaces a user record wholesale. Credits still may not go
// negative, even from the admin panel.
func (s *UserService) AdminUpdate(user models.User) (*models.User, error) {
	if user.Credits < 0 {
		return nil, fmt.Errorf("%w: credits cannot be negative", ErrInvalidInput)
	}
	existing := s.users.FindByID(user.ID)
	if existing == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, user.ID)
	}
	if user.Username == "" {
		user.Username = existing.Username
	}
	if user.PasswordHash == "" {
		user.PasswordHash = existing.PasswordHash
	}
	if err := s.users.Update(user); err != nil {
		return nil, err
	}
	return s.users.FindByID(user.ID), nil
}

// Delete removes a user; if it was the logged-in user the session ends too.
func (s *UserService) Delete(id string) error {
	current := s.CurrentUser()
	if err := s.users.Delete(id); err != nil {
		return err
	}
	if current != nil && current.ID == id {
		if err := s.sessions.Clear(); err != nil {
			s.log.Warn("session marker not cleared", "err", err)
		}
	}
	return nil
}

package repository

import (
	"fmt"
	"time"

	"github.com/digkill/aieditor/internal/models"
	"github.com/digkill/aieditor/internal/store"
)

const usersKey = "users"

// UserRepository persists the user pool as one JSON record. The pool is
// small (a simulated backend), so load-modify-save per call is fine.
type UserRepository struct {
	store *store.Store
}

func NewUserRepository(s *store.Store) *UserRepository {
	return &UserRepository{store: s}
}

func (r *UserRepository) All() []models.User {
	var users []models.User
	r.store.GetOr(usersKey, &users)
	return users
}

func (r *UserRepository) SaveAll(users []models.User) error {
	if err := r.store.Put(usersKey, users); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(id string) *models.User {
	for _, u := range r.All() {
		if u.ID == id {
			user := u
			return &user
		}
	}
	return nil
}

func (r *UserRepository) FindByUsername(username string) *models.User {
	for _, u := range r.All() {
		if u.Username == username {
			user := u
			return &user
		}
	}
	return nil
}

func (r *UserRepository) Create(user models.User) error {
	users := r.All()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	return r.SaveAll(append(users, user))
}

// Update replaces the stored record matching user.ID.
func (r *UserRepository) Update(user models.User) error {
	users := r.All()
	for i := range users {
		if users[i].ID == user.ID {
			user.CreatedAt = users[i].CreatedAt
			user.UpdatedAt = time.Now().UTC()
			users[i] = user
			return r.SaveAll(users)
		}
	}
	return fmt.Errorf("user %s not found", user.ID)
}

// Delete removes the user. Deleting an absent id is a no-op.
func (r *UserRepository) Delete(id string) error {
	users := r.All()
	kept := users[:0]
	for _, u := range users {
		if u.ID != id {
			kept = append(kept, u)
		}
	}
	return r.SaveAll(kept)
}

package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/724parcabul/storefront/internal/core/domain"
)

// UserRepository keeps accounts keyed by lower-cased email.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: map[string]domain.User{}}
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(user.Email))

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[email]; ok {
		return nil, domain.ErrUserExists
	}

	u := *user
	u.Email = email
	u.Role = domain.NormalizeRole(u.Role)
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	r.users[email] = u
	return &u, nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

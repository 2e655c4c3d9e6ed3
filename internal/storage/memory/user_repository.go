package memory

import (
	"context"
	"sync"

	"github.com/AdanSoria/Project-Shop/internal/domain"
)

type userRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.User
}

// NewUserRepository создаёт in-memory справочник пользователей.
func NewUserRepository(users ...domain.User) domain.UserRepository {
	repo := &userRepositoryInMemory{items: make(map[string]domain.User, len(users))}
	for _, u := range users {
		repo.items[u.ID] = u
	}
	return repo
}

func (r *userRepositoryInMemory) Get(_ context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.items[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (r *userRepositoryInMemory) Upsert(_ context.Context, user domain.User) error {
	if user.ID == "" {
		return domain.ErrUserRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[user.ID] = user
	return nil
}

var _ domain.UserRepository = (*userRepositoryInMemory)(nil)

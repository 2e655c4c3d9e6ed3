package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AdanSoria/Project-Shop/internal/domain"
)

// cartRepositoryInMemory хранит корзины по userID.
type cartRepositoryInMemory struct {
	mu     sync.RWMutex
	byUser map[string]domain.Cart
}

// NewCartRepository возвращает in-memory репозиторий корзин.
func NewCartRepository() domain.CartRepository {
	return &cartRepositoryInMemory{
		byUser: make(map[string]domain.Cart),
	}
}

// GetOrCreate возвращает корзину пользователя; создание атомарно под мьютексом.
func (r *cartRepositoryInMemory) GetOrCreate(_ context.Context, userID string) (domain.Cart, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Cart{}, domain.ErrUserRequired
	}

	r.mu.RLock()
	cart, ok := r.byUser[userID]
	r.mu.RUnlock()
	if ok {
		return cart.Clone(), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Повторная проверка: между RUnlock и Lock корзину мог создать другой запрос.
	if cart, ok := r.byUser[userID]; ok {
		return cart.Clone(), nil
	}

	now := time.Now().UTC()
	cart = domain.Cart{
		ID:        uuid.NewString(),
		UserID:    userID,
		Items:     []domain.CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.byUser[userID] = cart
	return cart.Clone(), nil
}

// ReplaceItems перезаписывает строки корзины, создавая её при необходимости.
func (r *cartRepositoryInMemory) ReplaceItems(ctx context.Context, userID string, items []domain.CartItem) (domain.Cart, error) {
	if _, err := r.GetOrCreate(ctx, userID); err != nil {
		return domain.Cart{}, err
	}
	userID = strings.TrimSpace(userID)

	r.mu.Lock()
	defer r.mu.Unlock()

	cart := r.byUser[userID]
	cart.Items = domain.CloneCartItems(items)
	cart.UpdatedAt = time.Now().UTC()
	r.byUser[userID] = cart

	return cart.Clone(), nil
}

var _ domain.CartRepository = (*cartRepositoryInMemory)(nil)

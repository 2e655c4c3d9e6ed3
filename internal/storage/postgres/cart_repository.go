package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AdanSoria/Project-Shop/internal/domain"
)

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository создаёт PostgreSQL-реализацию CartRepository.
// Строки корзины хранятся в jsonb-колонке и перезаписываются целиком.
func NewCartRepository(store *Store) domain.CartRepository {
	return &cartRepository{db: store.DB()}
}

func (r *cartRepository) GetOrCreate(ctx context.Context, userID string) (domain.Cart, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Cart{}, domain.ErrUserRequired
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	// ON CONFLICT по уникальному user_id делает создание атомарным.
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO carts (id, user_id, items, created_at, updated_at)
		VALUES ($1, $2, '[]'::jsonb, $3, $3)
		ON CONFLICT (user_id) DO NOTHING
	`, uuid.NewString(), userID, now); err != nil {
		return domain.Cart{}, fmt.Errorf("ensure cart: %w", err)
	}

	return r.load(ctx, userID)
}

func (r *cartRepository) ReplaceItems(ctx context.Context, userID string, items []domain.CartItem) (domain.Cart, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Cart{}, domain.ErrUserRequired
	}

	raw, err := json.Marshal(domain.CloneCartItems(items))
	if err != nil {
		return domain.Cart{}, fmt.Errorf("marshal cart items: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO carts (id, user_id, items, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, $4, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET items = EXCLUDED.items,
		    updated_at = EXCLUDED.updated_at
	`, uuid.NewString(), userID, string(raw), now); err != nil {
		return domain.Cart{}, fmt.Errorf("replace cart items: %w", err)
	}

	return r.load(ctx, userID)
}

func (r *cartRepository) load(ctx context.Context, userID string) (domain.Cart, error) {
	var (
		cart     domain.Cart
		itemsRaw []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, items, created_at, updated_at
		FROM carts
		WHERE user_id = $1
	`, userID).Scan(&cart.ID, &cart.UserID, &itemsRaw, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("select cart: %w", err)
	}

	if err := json.Unmarshal(itemsRaw, &cart.Items); err != nil {
		return domain.Cart{}, fmt.Errorf("decode cart items: %w", err)
	}
	cart.Items = domain.CloneCartItems(cart.Items)

	return cart, nil
}

var _ domain.CartRepository = (*cartRepository)(nil)

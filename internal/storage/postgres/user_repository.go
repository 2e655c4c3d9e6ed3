package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AdanSoria/Project-Shop/internal/domain"
)

type userRepository struct {
	db *sql.DB
}

// NewUserRepository создаёт PostgreSQL-реализацию справочника пользователей.
func NewUserRepository(store *Store) domain.UserRepository {
	return &userRepository{db: store.DB()}
}

func (r *userRepository) Get(ctx context.Context, id string) (domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var user domain.User
	err := r.db.QueryRowContext(ctx, `SELECT id, email, name FROM users WHERE id = $1`, id).
		Scan(&user.ID, &user.Email, &user.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

func (r *userRepository) Upsert(ctx context.Context, user domain.User) error {
	if user.ID == "" {
		return domain.ErrUserRequired
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email,
		    name = EXCLUDED.name,
		    updated_at = EXCLUDED.updated_at
	`, user.ID, user.Email, user.Name)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

var _ domain.UserRepository = (*userRepository)(nil)

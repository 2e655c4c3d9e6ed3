package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AdanSoria/Project-Shop/internal/domain"
)

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию каталога.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{db: store.DB()}
}

const productColumns = `id, name, description, price_minor, stock, image_url`

func (r *productRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	product, err := scanProduct(r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	return product, nil
}

func (r *productRepository) List(ctx context.Context) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

func (r *productRepository) Upsert(ctx context.Context, product domain.Product) error {
	if product.ID == "" {
		return domain.ErrProductIDRequired
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, name, description, price_minor, stock, image_url, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    description = EXCLUDED.description,
		    price_minor = EXCLUDED.price_minor,
		    stock = EXCLUDED.stock,
		    image_url = EXCLUDED.image_url,
		    updated_at = EXCLUDED.updated_at
	`, product.ID, product.Name, product.Description, product.Price.Minor(), product.Stock, product.ImageURL)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p          domain.Product
		priceMinor int64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &priceMinor, &p.Stock, &p.ImageURL); err != nil {
		return domain.Product{}, err
	}
	p.Price = domain.Money(priceMinor)
	return p, nil
}

var _ domain.ProductRepository = (*productRepository)(nil)

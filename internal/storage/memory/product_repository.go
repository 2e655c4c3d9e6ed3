package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/AdanSoria/Project-Shop/internal/domain"
)

type productRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Product
}

// NewProductRepository создаёт in-memory каталог, опционально заполненный товарами.
func NewProductRepository(products ...domain.Product) domain.ProductRepository {
	repo := &productRepositoryInMemory{
		items: make(map[string]domain.Product, len(products)),
	}
	for _, p := range products {
		repo.items[p.ID] = p
	}
	return repo
}

func (r *productRepositoryInMemory) Get(_ context.Context, id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

func (r *productRepositoryInMemory) List(_ context.Context) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Product, 0, len(r.items))
	for _, p := range r.items {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *productRepositoryInMemory) Upsert(_ context.Context, product domain.Product) error {
	if product.ID == "" {
		return domain.ErrProductIDRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[product.ID] = product
	return nil
}

// Delete убирает товар из каталога. Нужен тестам сценария «товар пропал».
func (r *productRepositoryInMemory) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
}

var _ domain.ProductRepository = (*productRepositoryInMemory)(nil)

package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AdanSoria/Project-Shop/internal/domain"
)

type productRepository struct {
	collection *mongo.Collection
}

// NewProductRepository создаёт MongoDB-реализацию каталога.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{collection: store.collection(collectionProducts)}
}

func (r *productRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var product domain.Product
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("find product: %w", err)
	}
	return product, nil
}

func (r *productRepository) List(ctx context.Context) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	products := make([]domain.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}

func (r *productRepository) Upsert(ctx context.Context, product domain.Product) error {
	if product.ID == "" {
		return domain.ErrProductIDRequired
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": product.ID}, product, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

type userRepository struct {
	collection *mongo.Collection
}

// NewUserRepository создаёт MongoDB-реализацию справочника пользователей.
func NewUserRepository(store *Store) domain.UserRepository {
	return &userRepository{collection: store.collection(collectionUsers)}
}

func (r *userRepository) Get(ctx context.Context, id string) (domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var user domain.User
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (r *userRepository) Upsert(ctx context.Context, user domain.User) error {
	if user.ID == "" {
		return domain.ErrUserRequired
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": user.ID}, user, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

var (
	_ domain.ProductRepository = (*productRepository)(nil)
	_ domain.UserRepository    = (*userRepository)(nil)
)

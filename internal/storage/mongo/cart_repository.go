package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AdanSoria/Project-Shop/internal/domain"
)

type cartRepository struct {
	collection *mongo.Collection
}

// NewCartRepository создаёт MongoDB-реализацию CartRepository.
// Корзина хранится одним документом, строки — вложенным массивом.
func NewCartRepository(store *Store) domain.CartRepository {
	return &cartRepository{collection: store.collection(collectionCarts)}
}

func (r *cartRepository) GetOrCreate(ctx context.Context, userID string) (domain.Cart, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Cart{}, domain.ErrUserRequired
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":        uuid.NewString(),
			"items":      []domain.CartItem{},
			"created_at": now,
			"updated_at": now,
		},
	}
	return r.upsert(ctx, userID, update)
}

func (r *cartRepository) ReplaceItems(ctx context.Context, userID string, items []domain.CartItem) (domain.Cart, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Cart{}, domain.ErrUserRequired
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"items":      domain.CloneCartItems(items),
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"_id":        uuid.NewString(),
			"created_at": now,
		},
	}
	return r.upsert(ctx, userID, update)
}

// upsert повторяет операцию один раз, если параллельный upsert успел вставить
// документ первым и уникальный индекс по user_id отклонил второй.
func (r *cartRepository) upsert(ctx context.Context, userID string, update bson.M) (domain.Cart, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	filter := bson.M{"user_id": userID}

	var cart domain.Cart
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&cart)
	if mongo.IsDuplicateKeyError(err) {
		err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&cart)
	}
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Cart{}, fmt.Errorf("cart for user %s vanished after upsert", userID)
		}
		return domain.Cart{}, fmt.Errorf("upsert cart: %w", err)
	}

	cart.Items = domain.CloneCartItems(cart.Items)
	return cart, nil
}

var _ domain.CartRepository = (*cartRepository)(nil)

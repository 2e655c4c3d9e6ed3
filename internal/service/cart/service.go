// Package cart реализует операции над корзиной покупателя.
package cart

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/AdanSoria/Project-Shop/internal/domain"
)

// Service изменяет корзину через чтение, правку в памяти и полную перезапись строк.
// Параллельные правки одной корзины не сериализуются: побеждает последняя запись.
type Service struct {
	carts    domain.CartRepository
	products domain.ProductRepository
	logger   *log.Entry
}

// NewService создаёт сервис корзины.
func NewService(carts domain.CartRepository, products domain.ProductRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Service{
		carts:    carts,
		products: products,
		logger:   logger.WithField("component", "cart"),
	}
}

// Get возвращает корзину пользователя, создавая пустую при первом обращении.
func (s *Service) Get(ctx context.Context, userID string) (domain.Cart, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Cart{}, domain.ErrUserRequired
	}
	return s.carts.GetOrCreate(ctx, userID)
}

// AddItem добавляет товар в корзину или увеличивает количество существующей строки.
func (s *Service) AddItem(ctx context.Context, userID, productID string, qty int) (domain.Cart, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Cart{}, domain.ErrProductIDRequired
	}
	if !domain.ValidLineQuantity(qty) {
		return domain.Cart{}, domain.ErrItemQtyInvalid
	}

	if _, err := s.products.Get(ctx, productID); err != nil {
		return domain.Cart{}, err
	}

	cart, err := s.Get(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}

	items := domain.CloneCartItems(cart.Items)
	if idx := cart.Line(productID); idx >= 0 {
		// Сравнение через вычитание: сумма не вычисляется до проверки.
		if qty > domain.MaxLineQuantity-items[idx].Quantity {
			return domain.Cart{}, domain.ErrItemQtyInvalid
		}
		items[idx].Quantity += qty
	} else {
		items = append(items, domain.CartItem{ProductID: productID, Quantity: qty})
	}

	return s.save(ctx, cart.UserID, items, "add")
}

// SetQuantity перезаписывает количество строки. qty <= 0 удаляет строку,
// qty больше MaxLineQuantity отклоняется.
func (s *Service) SetQuantity(ctx context.Context, userID, productID string, qty int) (domain.Cart, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Cart{}, domain.ErrProductIDRequired
	}

	cart, err := s.Get(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}

	idx := cart.Line(productID)
	if idx < 0 {
		return domain.Cart{}, fmt.Errorf("%w: %s", domain.ErrCartItemNotFound, productID)
	}

	items := domain.CloneCartItems(cart.Items)
	switch {
	case qty <= 0:
		items = append(items[:idx], items[idx+1:]...)
	case qty > domain.MaxLineQuantity:
		return domain.Cart{}, domain.ErrItemQtyInvalid
	default:
		items[idx].Quantity = qty
	}

	return s.save(ctx, cart.UserID, items, "set_quantity")
}

// RemoveItem удаляет строку с товаром. Отсутствие строки не ошибка.
func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (domain.Cart, error) {
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}

	idx := cart.Line(strings.TrimSpace(productID))
	if idx < 0 {
		return cart, nil
	}

	items := domain.CloneCartItems(cart.Items)
	items = append(items[:idx], items[idx+1:]...)
	return s.save(ctx, cart.UserID, items, "remove")
}

// Clear очищает корзину. Сама корзина сохраняется.
func (s *Service) Clear(ctx context.Context, userID string) (domain.Cart, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Cart{}, domain.ErrUserRequired
	}
	return s.save(ctx, userID, nil, "clear")
}

func (s *Service) save(ctx context.Context, userID string, items []domain.CartItem, op string) (domain.Cart, error) {
	cart, err := s.carts.ReplaceItems(ctx, userID, items)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"user_id": userID,
			"op":      op,
		}).Error("failed to save cart")
		return domain.Cart{}, fmt.Errorf("save cart: %w", err)
	}

	s.logger.WithFields(log.Fields{
		"user_id": userID,
		"op":      op,
		"lines":   len(cart.Items),
	}).Debug("cart updated")
	return cart, nil
}

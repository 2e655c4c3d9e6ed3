// Package orders отдаёт пользователю историю его заказов.
package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/AdanSoria/Project-Shop/internal/domain"
)

// DefaultListLimit ограничивает выдачу истории, если клиент не задал limit.
const DefaultListLimit = 50

// Service — чтение заказов с проверкой владельца.
type Service struct {
	orders domain.OrderRepository
}

// NewService создаёт сервис заказов.
func NewService(orders domain.OrderRepository) *Service {
	return &Service{orders: orders}
}

// List возвращает заказы пользователя от новых к старым.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrUserRequired
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	orders, err := s.orders.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// Get возвращает заказ, если он принадлежит пользователю.
// Чужой заказ — ErrOrderForbidden.
func (s *Service) Get(ctx context.Context, userID, orderID string) (domain.Order, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Order{}, domain.ErrUserRequired
	}

	order, err := s.orders.Get(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return domain.Order{}, err
	}
	if order.UserID != userID {
		return domain.Order{}, domain.ErrOrderForbidden
	}
	return order, nil
}

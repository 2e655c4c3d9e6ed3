package domain

import "time"

// MaxLineQuantity — верхняя граница количества в одной строке корзины и заказа.
// Держит Money.Mul и колонку INTEGER в postgres далеко от переполнения.
const MaxLineQuantity = 9999

// ValidLineQuantity сообщает, что qty лежит в [1, MaxLineQuantity].
func ValidLineQuantity(qty int) bool {
	return qty > 0 && qty <= MaxLineQuantity
}

// CartItem — строка корзины. Quantity всегда в [1, MaxLineQuantity].
type CartItem struct {
	ProductID string `json:"productId" bson:"product_id"`
	Quantity  int    `json:"quantity" bson:"quantity"`
}

// Cart — корзина пользователя. У пользователя не больше одной корзины;
// корзина создаётся лениво и никогда не удаляется, только очищается.
type Cart struct {
	ID        string     `json:"id" bson:"_id"`
	UserID    string     `json:"userId" bson:"user_id"`
	Items     []CartItem `json:"items" bson:"items"`
	CreatedAt time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt" bson:"updated_at"`
}

// IsEmpty сообщает, что в корзине нет ни одной строки.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Line возвращает индекс строки с товаром или -1.
func (c Cart) Line(productID string) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// Clone возвращает копию корзины с независимым срезом строк.
func (c Cart) Clone() Cart {
	dst := c
	dst.Items = CloneCartItems(c.Items)
	return dst
}

// CloneCartItems копирует срез строк; nil превращается в пустой срез,
// чтобы пустая корзина сериализовалась как [].
func CloneCartItems(items []CartItem) []CartItem {
	dst := make([]CartItem, len(items))
	copy(dst, items)
	return dst
}

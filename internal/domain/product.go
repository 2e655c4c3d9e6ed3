package domain

// Product — позиция каталога. Корзина и оформление заказа каталог не меняют.
type Product struct {
	ID          string `json:"id" bson:"_id" yaml:"id"`
	Name        string `json:"name" bson:"name" yaml:"name"`
	Description string `json:"description,omitempty" bson:"description" yaml:"description"`
	Price       Money  `json:"price" bson:"price_minor" yaml:"-"`
	Stock       int    `json:"stock" bson:"stock" yaml:"stock"`
	ImageURL    string `json:"imageUrl,omitempty" bson:"image_url" yaml:"image_url"`
}

// User — запись справочника пользователей, нужна для адреса письма-подтверждения.
type User struct {
	ID    string `json:"id" bson:"_id" yaml:"id"`
	Email string `json:"email" bson:"email" yaml:"email"`
	Name  string `json:"name" bson:"name" yaml:"name"`
}

// Package seed загружает фикстуры каталога и пользователей из YAML.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AdanSoria/Project-Shop/internal/domain"
)

//go:embed default.yaml
var defaultFixtures []byte

// Fixtures — содержимое файла фикстур.
type Fixtures struct {
	Products []domain.Product
	Users    []domain.User
}

// productFixture повторяет domain.Product, но цену держит строкой ("10.00"),
// чтобы YAML не превращал её во float.
type productFixture struct {
	domain.Product `yaml:",inline"`
	Price          string `yaml:"price"`
}

type fixtureFile struct {
	Products []productFixture `yaml:"products"`
	Users    []domain.User    `yaml:"users"`
}

// Default возвращает встроенный демонстрационный каталог.
func Default() (Fixtures, error) {
	return Parse(bytes.NewReader(defaultFixtures))
}

// LoadFile читает фикстуры из файла.
func LoadFile(path string) (Fixtures, error) {
	f, err := os.Open(path)
	if err != nil {
		return Fixtures{}, fmt.Errorf("open fixtures %s: %w", path, err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse разбирает YAML с разделами products и users.
func Parse(r io.Reader) (Fixtures, error) {
	var raw fixtureFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && err != io.EOF {
		return Fixtures{}, fmt.Errorf("decode fixtures: %w", err)
	}

	out := Fixtures{
		Products: make([]domain.Product, 0, len(raw.Products)),
		Users:    make([]domain.User, 0, len(raw.Users)),
	}
	seen := make(map[string]struct{}, len(raw.Products))
	for i, p := range raw.Products {
		if p.ID == "" {
			return Fixtures{}, fmt.Errorf("product #%d: %w", i, domain.ErrProductIDRequired)
		}
		if _, dup := seen[p.ID]; dup {
			return Fixtures{}, fmt.Errorf("product %s: duplicate id", p.ID)
		}
		seen[p.ID] = struct{}{}

		price, err := domain.ParseMoney(p.Price)
		if err != nil {
			return Fixtures{}, fmt.Errorf("product %s: %w", p.ID, err)
		}
		if price < 0 {
			return Fixtures{}, fmt.Errorf("product %s: %w", p.ID, domain.ErrAmountNegative)
		}

		product := p.Product
		product.Price = price
		out.Products = append(out.Products, product)
	}
	for i, u := range raw.Users {
		if u.ID == "" {
			return Fixtures{}, fmt.Errorf("user #%d: %w", i, domain.ErrUserRequired)
		}
		out.Users = append(out.Users, u)
	}

	return out, nil
}

// Apply записывает фикстуры в хранилище через Upsert, поэтому повторный запуск безопасен.
func (f Fixtures) Apply(ctx context.Context, products domain.ProductRepository, users domain.UserRepository) error {
	for _, p := range f.Products {
		if err := products.Upsert(ctx, p); err != nil {
			return fmt.Errorf("seed product %s: %w", p.ID, err)
		}
	}
	for _, u := range f.Users {
		if err := users.Upsert(ctx, u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}
	return nil
}

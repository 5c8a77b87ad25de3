package product

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
	// Create inserts a new product, allocating the next id when product.ID is
	// zero. An existing id yields domain.ErrConflict.
	Create(ctx context.Context, product domain.Product) (*domain.Product, error)
	Delete(ctx context.Context, id int64) error
	// DeleteMany removes every listed product and reports how many existed.
	DeleteMany(ctx context.Context, ids []int64) (int64, error)
}

package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/domain"
	productrepo "storefront/internal/repository/product"
)

var (
	ErrInvalidFilter  = errors.New("invalid product filter")
	ErrInvalidProduct = errors.New("invalid product")
)

// maxBulkIDs bounds a single bulk request.
const maxBulkIDs = 500

type Service struct {
	repo productrepo.Repository
}

func New(repo productrepo.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Product, error) {
	if id <= 0 {
		return nil, domain.ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// Create validates and inserts a product. A zero ID lets the store pick one.
func (s *Service) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if p.ID < 0 {
		return nil, errors.Join(ErrInvalidProduct, errors.New("id must not be negative"))
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, p)
}

// Update applies patch to an existing product.
func (s *Service) Update(ctx context.Context, id int64, patch domain.ProductPatch) (*domain.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(p)
	if err := validateProduct(*p); err != nil {
		return nil, err
	}
	return s.repo.Upsert(ctx, *p)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return domain.ErrNotFound
	}
	return s.repo.Delete(ctx, id)
}

// BulkDelete removes the listed products and reports how many existed.
func (s *Service) BulkDelete(ctx context.Context, ids []int64) (int64, error) {
	if err := validateIDs(ids); err != nil {
		return 0, err
	}
	return s.repo.DeleteMany(ctx, ids)
}

// BulkUpdate applies one patch to every listed product. Unknown ids are
// skipped; the result holds the products that were updated.
func (s *Service) BulkUpdate(ctx context.Context, ids []int64, patch domain.ProductPatch) ([]domain.Product, error) {
	if err := validateIDs(ids); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, errors.Join(ErrInvalidProduct, errors.New("no fields to update"))
	}
	updated := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		p, err := s.Update(ctx, id, patch)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return updated, err
		}
		updated = append(updated, *p)
	}
	return updated, nil
}

func validateProduct(p domain.Product) error {
	if strings.TrimSpace(p.DisplayName) == "" {
		return errors.Join(ErrInvalidProduct, errors.New("product_display_name is required"))
	}
	if p.Price.IsNegative() {
		return errors.Join(ErrInvalidProduct, errors.New("price must not be negative"))
	}
	return nil
}

func validateIDs(ids []int64) error {
	if len(ids) == 0 {
		return errors.Join(ErrInvalidProduct, errors.New("ids must not be empty"))
	}
	if len(ids) > maxBulkIDs {
		return errors.Join(ErrInvalidProduct, fmt.Errorf("at most %d ids per request", maxBulkIDs))
	}
	for _, id := range ids {
		if id <= 0 {
			return errors.Join(ErrInvalidProduct, fmt.Errorf("invalid id %d", id))
		}
	}
	return nil
}

func validateFilter(f domain.ProductFilter) error {
	if f.Limit < 0 || f.Offset < 0 {
		return errors.Join(ErrInvalidFilter, errors.New("limit and offset must not be negative"))
	}
	if f.MinPrice != nil && f.MinPrice.IsNegative() {
		return errors.Join(ErrInvalidFilter, errors.New("min_price must not be negative"))
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.Cmp(*f.MaxPrice) > 0 {
		return errors.Join(ErrInvalidFilter, errors.New("min_price greater than max_price"))
	}
	return nil
}

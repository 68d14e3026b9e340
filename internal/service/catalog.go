package service

import (
	"context"
	"errors"
	"strings"

	"herbmanager/backend/internal/domain"
	"herbmanager/backend/internal/store"
)

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryRequest) (domain.Category, error) {
	name, err := requireName(req.Name)
	if err != nil {
		return domain.Category{}, err
	}

	created, err := s.repo.CreateCategory(ctx, name)
	if err != nil {
		return domain.Category{}, err
	}
	return *created, nil
}

func (s *Service) UpdateCategory(ctx context.Context, req domain.CategoryRequest) (domain.Category, error) {
	if err := requireID("id", req.ID); err != nil {
		return domain.Category{}, err
	}
	name, err := requireName(req.Name)
	if err != nil {
		return domain.Category{}, err
	}

	updated, err := s.repo.UpdateCategory(ctx, req.ID, name)
	if err != nil {
		return domain.Category{}, err
	}
	return *updated, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if err := requireID("id", id); err != nil {
		return err
	}
	return s.repo.DeleteCategory(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	if err := requireID("id", id); err != nil {
		return domain.Product{}, err
	}
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductRequest) (domain.Product, error) {
	product, err := normalizeProduct(req)
	if err != nil {
		return domain.Product{}, err
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, categoryNotFound(err)
	}
	s.stats.Invalidate(ctx)
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, req domain.ProductRequest) (domain.Product, error) {
	if err := requireID("id", req.ID); err != nil {
		return domain.Product{}, err
	}
	product, err := normalizeProduct(req)
	if err != nil {
		return domain.Product{}, err
	}
	product.ID = req.ID

	if _, err := s.repo.GetProduct(ctx, req.ID); err != nil {
		return domain.Product{}, err
	}
	updated, err := s.repo.UpdateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, categoryNotFound(err)
	}
	s.stats.Invalidate(ctx)
	return *updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := requireID("id", id); err != nil {
		return err
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.stats.Invalidate(ctx)
	return nil
}

func normalizeProduct(req domain.ProductRequest) (domain.Product, error) {
	name, err := requireName(req.Name)
	if err != nil {
		return domain.Product{}, err
	}
	if req.CategoryID != nil && *req.CategoryID < 1 {
		return domain.Product{}, store.Invalid("categoryId", msgInvalidCategory)
	}

	product := domain.Product{Name: name, Unit: strings.TrimSpace(req.Unit)}
	if req.CategoryID != nil {
		id := *req.CategoryID
		product.CategoryID = &id
	}
	return product, nil
}

// categoryNotFound reports a dangling category reference as bad input. The
// product itself is known to exist by the time this is called.
func categoryNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return store.Invalid("categoryId", msgInvalidCategory)
	}
	return err
}

package service

import (
	"context"

	"github.com/kahawahub/kahawa/backend/internal/entity"
	"github.com/kahawahub/kahawa/backend/internal/repository"
)

// CatalogService serves product reads. Catalog writes happen through
// admin tooling outside this service; order placement mutates stock only
// through its own transaction.
type CatalogService struct {
	products repository.ProductRepository
}

func NewCatalogService(products repository.ProductRepository) *CatalogService {
	return &CatalogService{products: products}
}

// ListProducts returns all active products.
func (s *CatalogService) ListProducts(ctx context.Context) ([]entity.Product, error) {
	return s.products.FindAll(ctx)
}

// GetProduct returns a single product by id.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	return s.products.FindByID(ctx, id)
}

package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/mezze/backend/internal/domain/catalog"
	"github.com/mezze/backend/internal/domain/shared"
)

// ProductService serves the product catalog read surface. The catalog is
// operator-managed reference data; the pipeline resolves against it but
// never creates products.
type ProductService struct {
	products catalog.ProductRepository
	units    catalog.ProductUnitRepository
	prices   catalog.ProductPriceRepository
}

// NewProductService creates a new ProductService
func NewProductService(
	products catalog.ProductRepository,
	units catalog.ProductUnitRepository,
	prices catalog.ProductPriceRepository,
) *ProductService {
	return &ProductService{
		products: products,
		units:    units,
		prices:   prices,
	}
}

// ProductDetail is one product with its unit conversions and price history
type ProductDetail struct {
	Product catalog.Product
	Units   []catalog.ProductUnit
	Prices  []catalog.ProductPrice
}

// ListProducts returns products matching the filter
func (s *ProductService) ListProducts(ctx context.Context, filter shared.Filter) ([]catalog.Product, int64, error) {
	products, err := s.products.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.products.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// GetProduct returns one product with its configured units and prices
func (s *ProductService) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDetail, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, shared.ErrNotFound
	}

	units, err := s.units.FindByProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	prices, err := s.prices.FindByProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	return &ProductDetail{
		Product: *product,
		Units:   units,
		Prices:  prices,
	}, nil
}

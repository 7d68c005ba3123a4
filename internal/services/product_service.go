// Package services – ProductService
//
// This file implements ProductService, which owns the product lifecycle. It
// mirrors CategoryService; the category reference of a product is enforced by
// the store's foreign key, so an unknown categoryId surfaces as a
// *repo.ConstraintError rather than a service-level check.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-catalog-backend/internal/domain"
	"github.com/tbourn/go-catalog-backend/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ProductService provides product-level operations.
type ProductService struct {
	DB             *gorm.DB
	IdempotencyTTL time.Duration
}

// NewProductService constructs a ProductService. A non-positive ttl falls
// back to 24h.
func NewProductService(db *gorm.DB, ttl time.Duration) *ProductService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ProductService{DB: db, IdempotencyTTL: ttl}
}

// List returns every product in ID order.
func (s *ProductService) List(ctx context.Context) ([]domain.Product, error) {
	ctx, span := otel.Tracer("services/ProductService").Start(ctx, "List")
	defer span.End()

	items, err := repo.ListProducts(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Product{}
	}
	return items, nil
}

// Get returns one product.
func (s *ProductService) Get(ctx context.Context, id uint) (*domain.Product, error) {
	ctx, span := otel.Tracer("services/ProductService").Start(ctx, "Get",
		trace.WithAttributes(attribute.Int64("product.id", int64(id))),
	)
	defer span.End()

	return repo.GetProduct(ctx, s.DB, id)
}

// Create inserts a product, honoring idemKey like CategoryService.Create.
func (s *ProductService) Create(ctx context.Context, in domain.ProductInput, idemKey string) (p *domain.Product, replayed bool, err error) {
	ctx, span := otel.Tracer("services/ProductService").Start(ctx, "Create",
		trace.WithAttributes(
			attribute.Int64("category.id", int64(in.CategoryID)),
			attribute.Bool("idempotent", idemKey != ""),
		),
	)
	defer span.End()

	return createOnce(ctx, s.DB, ScopeProducts, idemKey, s.IdempotencyTTL,
		func(tx *gorm.DB, id uint) (*domain.Product, error) {
			return repo.GetProduct(ctx, tx, id)
		},
		func(tx *gorm.DB) (*domain.Product, uint, error) {
			p, err := repo.CreateProduct(ctx, tx, in)
			if err != nil {
				return nil, 0, err
			}
			return p, p.ID, nil
		},
	)
}

// Update replaces every mutable field of the product.
func (s *ProductService) Update(ctx context.Context, id uint, in domain.ProductInput) (*domain.Product, error) {
	ctx, span := otel.Tracer("services/ProductService").Start(ctx, "Update",
		trace.WithAttributes(attribute.Int64("product.id", int64(id))),
	)
	defer span.End()

	var out *domain.Product
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := repo.UpdateProduct(ctx, tx, id, in)
		if err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the product and returns it as it was before deletion.
func (s *ProductService) Delete(ctx context.Context, id uint) (*domain.Product, error) {
	ctx, span := otel.Tracer("services/ProductService").Start(ctx, "Delete",
		trace.WithAttributes(attribute.Int64("product.id", int64(id))),
	)
	defer span.End()

	var out *domain.Product
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := repo.DeleteProduct(ctx, tx, id)
		if err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Stats returns the row count and latest UpdatedAt, used for list ETags.
func (s *ProductService) Stats(ctx context.Context) (int64, *time.Time, error) {
	return repo.ProductsStats(ctx, s.DB)
}

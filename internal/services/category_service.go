// Package services – CategoryService
//
// This file implements CategoryService, the application-level component that
// owns the category lifecycle: listing, lookup (optionally with products),
// creation with optional idempotency, full replacement and deletion.
//
// Update and delete read the row and write it inside one transaction so a
// concurrent delete cannot slip between the existence check and the write.
// Missing rows surface as repo.ErrNotFound; schema violations as
// *repo.ConstraintError.
//
// Observability: all public methods are OpenTelemetry-instrumented.
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

// CategoryService provides category-level operations.
type CategoryService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// IdempotencyTTL bounds how long an Idempotency-Key is remembered.
	IdempotencyTTL time.Duration
}

// NewCategoryService constructs a CategoryService. A non-positive ttl falls
// back to 24h.
func NewCategoryService(db *gorm.DB, ttl time.Duration) *CategoryService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CategoryService{DB: db, IdempotencyTTL: ttl}
}

// List returns every category in ID order. An empty catalogue yields an
// empty, non-nil slice.
func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	ctx, span := otel.Tracer("services/CategoryService").Start(ctx, "List")
	defer span.End()

	items, err := repo.ListCategories(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Category{}
	}
	return items, nil
}

// Get returns one category. withProducts preloads the category's products.
func (s *CategoryService) Get(ctx context.Context, id uint, withProducts bool) (*domain.Category, error) {
	ctx, span := otel.Tracer("services/CategoryService").Start(ctx, "Get",
		trace.WithAttributes(
			attribute.Int64("category.id", int64(id)),
			attribute.Bool("include.products", withProducts),
		),
	)
	defer span.End()

	return repo.GetCategory(ctx, s.DB, id, withProducts)
}

// Create inserts a category. With a non-empty idemKey a retry inside the TTL
// returns the originally created category and replayed=true.
func (s *CategoryService) Create(ctx context.Context, in domain.CategoryInput, idemKey string) (c *domain.Category, replayed bool, err error) {
	ctx, span := otel.Tracer("services/CategoryService").Start(ctx, "Create",
		trace.WithAttributes(attribute.Bool("idempotent", idemKey != "")),
	)
	defer span.End()

	return createOnce(ctx, s.DB, ScopeCategories, idemKey, s.IdempotencyTTL,
		func(tx *gorm.DB, id uint) (*domain.Category, error) {
			return repo.GetCategory(ctx, tx, id, false)
		},
		func(tx *gorm.DB) (*domain.Category, uint, error) {
			c, err := repo.CreateCategory(ctx, tx, in)
			if err != nil {
				return nil, 0, err
			}
			return c, c.ID, nil
		},
	)
}

// Update replaces the category's mutable fields and returns the new state.
func (s *CategoryService) Update(ctx context.Context, id uint, in domain.CategoryInput) (*domain.Category, error) {
	ctx, span := otel.Tracer("services/CategoryService").Start(ctx, "Update",
		trace.WithAttributes(attribute.Int64("category.id", int64(id))),
	)
	defer span.End()

	var out *domain.Category
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := repo.UpdateCategory(ctx, tx, id, in)
		if err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the category and returns it as it was before deletion.
// Categories still referenced by products are rejected by the store.
func (s *CategoryService) Delete(ctx context.Context, id uint) (*domain.Category, error) {
	ctx, span := otel.Tracer("services/CategoryService").Start(ctx, "Delete",
		trace.WithAttributes(attribute.Int64("category.id", int64(id))),
	)
	defer span.End()

	var out *domain.Category
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := repo.DeleteCategory(ctx, tx, id)
		if err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Stats returns the row count and latest UpdatedAt, used for list ETags.
func (s *CategoryService) Stats(ctx context.Context) (int64, *time.Time, error) {
	return repo.CategoriesStats(ctx, s.DB)
}
